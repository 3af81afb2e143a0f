package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"agora/internal/cache"
	"agora/internal/events"
	"agora/internal/models"
	"agora/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// failDeletesOn makes every DELETE against table error after it ran, so the
// surrounding transaction has to roll it back.
func failDeletesOn(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	require.NoError(t, db.Callback().Delete().After("gorm:delete").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	}))
}

func TestCascade_UserDeleted(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, cache.NewTallyCache(rdb, time.Minute), nil)
	ctx := context.Background()
	u := env.user(t, "u", false)
	v := env.user(t, "v", false)
	w := env.user(t, "w", false)
	post := env.post(t, v.ID)
	comment := env.comment(t, post.ID, w.ID)

	require.NoError(t, env.relations.Add(ctx, models.RelationFollow, u.ID, v.ID))
	require.NoError(t, env.relations.Add(ctx, models.RelationFollow, v.ID, u.ID))
	require.NoError(t, env.relations.Add(ctx, models.RelationFriend, u.ID, w.ID))
	require.NoError(t, env.relations.Add(ctx, models.RelationBlock, w.ID, u.ID))
	require.NoError(t, env.relations.Add(ctx, models.RelationFollow, v.ID, w.ID))
	require.NoError(t, env.engagement.AddFavorite(ctx, u.ID, post.ID))
	require.NoError(t, env.engagement.AddFavorite(ctx, w.ID, post.ID))
	require.NoError(t, env.engagement.CastVote(ctx, u.ID, models.TargetPost, post.ID, 1))
	require.NoError(t, env.engagement.CastVote(ctx, w.ID, models.TargetPost, post.ID, 1))
	_, err := env.moderation.FileReport(ctx, u.ID, models.TargetComment, comment.ID, "rude")
	require.NoError(t, err)

	tally, err := env.engagement.Tally(ctx, models.TargetPost, post.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), tally.Upvotes)

	report, err := env.cascade.OnUserDeleted(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Relations)
	assert.Equal(t, int64(1), report.Favorites)
	assert.Equal(t, int64(1), report.Votes)
	assert.Equal(t, int64(1), report.Reports)
	assert.Equal(t, []models.VoteTarget{{TargetType: models.TargetPost, TargetID: post.ID}}, report.Targets)

	for _, kind := range models.RelationKinds {
		out, err := env.relations.List(ctx, kind, u.ID)
		require.NoError(t, err)
		assert.Empty(t, out)
		in, err := env.relations.ListIncoming(ctx, kind, u.ID)
		require.NoError(t, err)
		assert.Empty(t, in)
	}
	ok, err := env.relations.Exists(ctx, models.RelationFollow, v.ID, w.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, int64(1), env.count(t, &models.Favorite{}, "post_id = ?", post.ID))
	assert.Equal(t, int64(0), env.count(t, &models.Report{}, "reporter_id = ?", u.ID))

	// the cached tally was dropped, so the next read reflects the cascade
	tally, err = env.engagement.Tally(ctx, models.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.Upvotes)

	assert.Equal(t, events.CascadeUser, env.recorder.events[len(env.recorder.events)-1].Type)
}

func TestCascade_ContentDeleted(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	author := env.user(t, "author", false)
	a := env.user(t, "a", false)
	b := env.user(t, "b", false)
	post := env.post(t, author.ID)
	other := env.post(t, author.ID)
	comment := env.comment(t, post.ID, a.ID)

	require.NoError(t, env.engagement.AddFavorite(ctx, a.ID, post.ID))
	require.NoError(t, env.engagement.AddFavorite(ctx, b.ID, post.ID))
	require.NoError(t, env.engagement.AddFavorite(ctx, b.ID, other.ID))
	require.NoError(t, env.engagement.CastVote(ctx, a.ID, models.TargetPost, post.ID, 1))
	require.NoError(t, env.engagement.CastVote(ctx, b.ID, models.TargetPost, post.ID, -1))
	require.NoError(t, env.engagement.CastVote(ctx, b.ID, models.TargetComment, comment.ID, 1))
	_, err := env.moderation.FileReport(ctx, a.ID, models.TargetPost, post.ID, "spam")
	require.NoError(t, err)

	report, err := env.cascade.OnContentDeleted(ctx, models.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, CascadeReport{
		Favorites: 2,
		Votes:     2,
		Reports:   1,
		Targets:   []models.VoteTarget{{TargetType: models.TargetPost, TargetID: post.ID}},
	}, report)

	assert.Equal(t, int64(1), env.count(t, &models.Favorite{}, "user_id = ?", b.ID))
	assert.Equal(t, int64(1), env.count(t, &models.Vote{}, "target_type = ? AND target_id = ?", models.TargetComment, comment.ID))

	_, err = env.cascade.OnContentDeleted(ctx, models.TargetType("user"), post.ID)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestCascade_UserDeletedRollsBack(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	u := env.user(t, "u", false)
	v := env.user(t, "v", false)
	post := env.post(t, v.ID)

	require.NoError(t, env.relations.Add(ctx, models.RelationFollow, u.ID, v.ID))
	require.NoError(t, env.engagement.AddFavorite(ctx, u.ID, post.ID))
	require.NoError(t, env.engagement.CastVote(ctx, u.ID, models.TargetPost, post.ID, 1))
	published := len(env.recorder.events)

	failDeletesOn(t, env.db, "votes")

	_, err := env.cascade.OnUserDeleted(ctx, u.ID)
	require.Error(t, err)

	ok, err := env.relations.Exists(ctx, models.RelationFollow, u.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), env.count(t, &models.Favorite{}, "user_id = ?", u.ID))
	assert.Equal(t, int64(1), env.count(t, &models.Vote{}, "user_id = ?", u.ID))
	assert.Len(t, env.recorder.events, published)
}

func TestCascade_UserDeletedRollbackSequence(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	rec := &eventRecorder{}
	c := NewCascadeCoordinator(db,
		repository.NewRelationRepository(db),
		repository.NewFavoriteRepository(db),
		repository.NewVoteRepository(db),
		repository.NewReportRepository(db),
		nil, rec)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "user_friends"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "user_follows"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "user_blocks"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "favorites"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT DISTINCT`).
		WillReturnRows(sqlmock.NewRows([]string{"target_type", "target_id"}).AddRow("post", 7))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "votes"`)).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err = c.OnUserDeleted(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
