// Package bootstrap wires the process runtime: database, Redis, event sinks
// and the development root admin.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/events"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations (or AutoMigrate) per DB_SCHEMA_MODE.
	ApplySchema bool
	// SkipEvents leaves the publisher as a no-op, for one-shot commands.
	SkipEvents bool
}

// Runtime holds the shared dependencies of a process.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Events events.Publisher

	closers []func()
}

// InitRuntime connects to the database and Redis and builds the event fanout.
// Redis is optional; a failed ping leaves Redis nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: opts.ApplySchema})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db, Redis: cache.InitRedis(cfg.RedisURL), Events: events.Nop{}}

	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if !opts.SkipEvents {
		pub, closers, err := buildPublisher(ctx, cfg, rt.Redis)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Events = pub
		rt.closers = append(rt.closers, closers...)
	}
	return rt, nil
}

// buildPublisher assembles one sink per EVENT_SINKS entry. The redis sink is
// skipped with a warning when Redis is unreachable; a nats sink that cannot
// connect is an error.
func buildPublisher(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*events.Fanout, []func(), error) {
	var sinks []events.Publisher
	var closers []func()
	for _, name := range cfg.Sinks() {
		switch name {
		case "log":
			sinks = append(sinks, events.NewLogPublisher(middleware.Logger))
		case "redis":
			if rdb == nil {
				middleware.Logger.Warn("redis event sink disabled: redis unavailable")
				continue
			}
			sinks = append(sinks, events.NewRedisPublisher(rdb))
		case "nats":
			js, err := events.NewJetStreamPublisher(ctx, cfg.NATSURL)
			if err != nil {
				for _, c := range closers {
					c()
				}
				return nil, nil, fmt.Errorf("nats event sink: %w", err)
			}
			sinks = append(sinks, js)
			closers = append(closers, js.Close)
		}
	}
	return events.NewFanout(sinks...), closers, nil
}

// Close releases event sinks, Redis and the database, in that order.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			middleware.Logger.Warn("error closing redis", "error", err)
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				middleware.Logger.Warn("error closing database", "error", err)
			}
		}
	}
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "agora_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@agora.local"
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("DEV_ROOT_EMAIL: %w", err)
	}
	if err := validation.ValidatePassword(cfg.DevRootPassword); err != nil {
		return fmt.Errorf("DEV_ROOT_PASSWORD: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				IsAdmin:  true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		}

		updates := map[string]any{"is_admin": true}
		if cfg.DevRootForceCredentials {
			updates["email"] = email
			updates["password"] = string(hashedPassword)
		}
		return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", "username", username, "email", email)
	return nil
}
