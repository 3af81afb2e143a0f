package service

import (
	"context"
	"testing"

	"agora/internal/events"
	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleService_DeleteUserRules(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	admin := env.user(t, "admin", true)
	peer := env.user(t, "peer", true)
	member := env.user(t, "member", false)

	tests := []struct {
		name   string
		actor  models.AuthenticatedUser
		target uint
		code   string
	}{
		{"non admin", models.AuthenticatedUser{ID: member.ID}, admin.ID, models.CodeForbidden},
		{"self", models.AuthenticatedUser{ID: admin.ID, IsAdmin: true}, admin.ID, models.CodeForbidden},
		{"another admin", models.AuthenticatedUser{ID: admin.ID, IsAdmin: true}, peer.ID, models.CodeForbidden},
		{"unknown user", models.AuthenticatedUser{ID: admin.ID, IsAdmin: true}, 9999, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.lifecycle.DeleteUser(ctx, tt.actor, tt.target)
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Equal(t, int64(3), env.count(t, &models.User{}, "1 = 1"))
}

func TestLifecycleService_DeleteUserRemovesContent(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	admin := models.AuthenticatedUser{ID: env.user(t, "admin", true).ID, IsAdmin: true}
	u := env.user(t, "u", false)
	v := env.user(t, "v", false)

	own := env.post(t, u.ID)
	replyOnOwn := env.comment(t, own.ID, v.ID)
	theirs := env.post(t, v.ID)
	replyOnTheirs := env.comment(t, theirs.ID, u.ID)

	require.NoError(t, env.engagement.CastVote(ctx, v.ID, models.TargetPost, own.ID, 1))
	require.NoError(t, env.engagement.CastVote(ctx, v.ID, models.TargetComment, replyOnOwn.ID, 1))
	require.NoError(t, env.engagement.CastVote(ctx, v.ID, models.TargetComment, replyOnTheirs.ID, -1))
	require.NoError(t, env.engagement.CastVote(ctx, u.ID, models.TargetPost, theirs.ID, 1))
	require.NoError(t, env.engagement.AddFavorite(ctx, v.ID, own.ID))
	_, err := env.moderation.FileReport(ctx, v.ID, models.TargetPost, own.ID, "spam")
	require.NoError(t, err)
	require.NoError(t, env.relations.Add(ctx, models.RelationFollow, v.ID, u.ID))

	report, err := env.lifecycle.DeleteUser(ctx, admin, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Relations)
	assert.Equal(t, int64(1), report.Favorites)
	assert.Equal(t, int64(4), report.Votes)
	assert.Equal(t, int64(1), report.Reports)

	assert.Equal(t, int64(0), env.count(t, &models.User{}, "id = ?", u.ID))
	assert.Equal(t, int64(0), env.count(t, &models.Post{}, "user_id = ?", u.ID))
	assert.Equal(t, int64(0), env.count(t, &models.Comment{}, "1 = 1"))
	assert.Equal(t, int64(1), env.count(t, &models.Post{}, "id = ?", theirs.ID))
	assert.Equal(t, int64(0), env.count(t, &models.Vote{}, "1 = 1"))

	last := env.recorder.events[len(env.recorder.events)-1]
	assert.Equal(t, events.UserDeleted, last.Type)
	assert.Equal(t, admin.ID, last.ActorID)
}

func TestLifecycleService_DeleteUserRollsBack(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	admin := models.AuthenticatedUser{ID: env.user(t, "admin", true).ID, IsAdmin: true}
	u := env.user(t, "u", false)
	v := env.user(t, "v", false)
	post := env.post(t, u.ID)
	require.NoError(t, env.engagement.CastVote(ctx, v.ID, models.TargetPost, post.ID, 1))

	failDeletesOn(t, env.db, "users")

	_, err := env.lifecycle.DeleteUser(ctx, admin, u.ID)
	require.Error(t, err)
	assert.Equal(t, int64(1), env.count(t, &models.Post{}, "id = ?", post.ID))
	assert.Equal(t, int64(1), env.count(t, &models.Vote{}, "target_id = ?", post.ID))
}

func TestLifecycleService_DeleteContentPermissions(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	author := env.user(t, "author", false)
	stranger := env.user(t, "stranger", false)
	admin := env.user(t, "admin", true)
	post := env.post(t, author.ID)
	comment := env.comment(t, post.ID, stranger.ID)
	second := env.post(t, author.ID)

	_, err := env.lifecycle.DeletePost(ctx, models.AuthenticatedUser{ID: stranger.ID}, post.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	_, err = env.lifecycle.DeleteComment(ctx, models.AuthenticatedUser{ID: author.ID}, comment.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	require.NoError(t, env.engagement.CastVote(ctx, author.ID, models.TargetComment, comment.ID, 1))
	report, err := env.lifecycle.DeletePost(ctx, models.AuthenticatedUser{ID: author.ID}, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Votes)
	assert.Equal(t, int64(0), env.count(t, &models.Comment{}, "id = ?", comment.ID))

	_, err = env.lifecycle.DeletePost(ctx, models.AuthenticatedUser{ID: admin.ID, IsAdmin: true}, second.ID)
	require.NoError(t, err)

	_, err = env.lifecycle.DeletePost(ctx, models.AuthenticatedUser{ID: author.ID}, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
