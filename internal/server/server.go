// Package server exposes the engagement core over HTTP.
package server

import (
	"context"
	"fmt"
	"time"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/events"
	"agora/internal/featureflags"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	events         events.Publisher
	featureFlags   *featureflags.Manager

	userRepo    repository.UserRepository
	contentRepo repository.ContentRepository

	relations  *service.RelationService
	engagement *service.EngagementService
	moderation *service.ModerationService
	cascade    *service.CascadeCoordinator
	lifecycle  *service.LifecycleService
}

// NewServer creates a Server over already-initialized dependencies. A nil
// redis client disables the tally cache and rate limiting; a nil publisher
// drops events.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, pub events.Publisher) *Server {
	if pub == nil {
		pub = events.Nop{}
	}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	relationRepo := repository.NewRelationRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var tallies *cache.TallyCache
	if redisClient != nil {
		tallies = cache.NewTallyCache(redisClient, time.Duration(cfg.TallyCacheTTLSeconds)*time.Second)
	}
	flags := featureflags.NewManager(cfg.FeatureFlags)
	cascade := service.NewCascadeCoordinator(db, relationRepo, favoriteRepo, voteRepo, reportRepo, tallies, pub)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("agora-api"),
		events:         pub,
		featureFlags:   flags,
		userRepo:       userRepo,
		contentRepo:    contentRepo,
		relations:      service.NewRelationService(db, relationRepo, userRepo, flags, pub),
		engagement:     service.NewEngagementService(favoriteRepo, voteRepo, contentRepo, tallies, pub),
		moderation:     service.NewModerationService(reportRepo, contentRepo, pub),
		cascade:        cascade,
		lifecycle:      service.NewLifecycleService(db, userRepo, contentRepo, cascade, pub),
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Public reads
	api.Get("/users/:id/karma", s.GetKarma)
	api.Get("/votes/:type", s.GetTallies)
	api.Get("/votes/:type/:id/tally", s.GetTally)

	protected := api.Group("", middleware.AuthRequired)

	// Content (collaborator surface, enough to exercise the core)
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 5, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id/favorite", s.IsFavorite)
	posts.Post("/:id/favorite", s.AddFavorite)
	posts.Delete("/:id/favorite", s.RemoveFavorite)
	posts.Delete("/:id", s.DeletePost)
	protected.Delete("/comments/:id", s.DeleteComment)

	// Relations
	relations := protected.Group("/relations")
	relations.Get("/status/:userId", s.GetRelationStatus)
	relations.Get("/:kind", s.ListRelations)
	relations.Get("/:kind/incoming", s.ListIncomingRelations)
	relations.Get("/:kind/:userId", s.RelationExists)
	relations.Put("/:kind/:userId", middleware.RateLimit(s.redis, 30, time.Minute, "relation"), s.AddRelation)
	relations.Delete("/:kind/:userId", s.RemoveRelation)

	// Engagement
	me := protected.Group("/me")
	me.Get("/favorites", s.ListFavorites)
	me.Get("/votes", s.ListMyVotes)
	protected.Put("/votes/:type/:id", middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.CastVote)
	protected.Get("/votes/:type/:id", s.GetMyVote)

	// Moderation
	protected.Post("/reports", middleware.RateLimit(s.redis, 10, 10*time.Minute, "report"), s.FileReport)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/reports", s.ListReports)
	admin.Get("/reports/pending", s.ListPendingReports)
	admin.Get("/reports/count", s.CountPendingReports)
	admin.Post("/reports/:id/resolve", s.ResolveReport)
	admin.Post("/reports/:id/dismiss", s.DismissReport)
	admin.Delete("/users/:id", s.DeleteUser)
	admin.Post("/cascade/content/:type/:id", s.RunContentCascade)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// NewApp builds the fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Agora API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional:
// without it the tally cache and rate limits are off but the API works.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus == "unhealthy":
		overall = "degraded"
	}

	var sinks []string
	if f, ok := s.events.(*events.Fanout); ok {
		sinks = f.Sinks()
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"event_sinks": sinks,
		"time":        time.Now(),
	})
}

// AdminRequired rejects non-admin users with 403. It must run after
// middleware.AuthRequired. The flag is read from the users table.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := s.currentUser(c)
		if err != nil {
			return s.respond(c, err)
		}
		if !actor.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start listens until the app is shut down.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones. Closing
// the database, Redis and event sinks belongs to the runtime owner.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
