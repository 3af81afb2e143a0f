package service

import (
	"path/filepath"
	"testing"
	"time"

	"agora/internal/cache"
	"agora/internal/database"
	"agora/internal/featureflags"
	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// newFileTestDB returns a migrated SQLite database on disk with a small pool,
// so concurrent writers really contend for the lock.
func newFileTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "agora.db") + "?_busy_timeout=10000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// testEnv wires real repositories and services over one SQLite database.
type testEnv struct {
	db         *gorm.DB
	recorder   *eventRecorder
	relations  *RelationService
	engagement *EngagementService
	moderation *ModerationService
	cascade    *CascadeCoordinator
	lifecycle  *LifecycleService
}

func newTestEnv(t *testing.T, tallies *cache.TallyCache, flags *featureflags.Manager) *testEnv {
	t.Helper()
	db := newTestDB(t)
	rec := &eventRecorder{}

	relRepo := repository.NewRelationRepository(db)
	userRepo := repository.NewUserRepository(db)
	favRepo := repository.NewFavoriteRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	reportRepo := repository.NewReportRepository(db)
	contentRepo := repository.NewContentRepository(db)

	cascade := NewCascadeCoordinator(db, relRepo, favRepo, voteRepo, reportRepo, tallies, rec)
	return &testEnv{
		db:         db,
		recorder:   rec,
		relations:  NewRelationService(db, relRepo, userRepo, flags, rec),
		engagement: NewEngagementService(favRepo, voteRepo, contentRepo, tallies, rec),
		moderation: NewModerationService(reportRepo, contentRepo, rec),
		cascade:    cascade,
		lifecycle:  NewLifecycleService(db, userRepo, contentRepo, cascade, rec),
	}
}

func (e *testEnv) user(t *testing.T, name string, admin bool) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", IsAdmin: admin}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) post(t *testing.T, authorID uint) *models.Post {
	t.Helper()
	p := &models.Post{Title: "title", Content: "body", UserID: authorID, CreatedAt: time.Now()}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) comment(t *testing.T, postID, authorID uint) *models.Comment {
	t.Helper()
	c := &models.Comment{Content: "reply", PostID: postID, UserID: authorID}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
