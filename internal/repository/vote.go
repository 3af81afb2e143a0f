package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository stores at most one live vote per (user, target).
type VoteRepository interface {
	WithTx(tx *gorm.DB) VoteRepository
	// Upsert inserts the vote or overwrites the value of the existing row.
	Upsert(ctx context.Context, vote *models.Vote) error
	// Get returns the stored value, or 0 when the user has not voted.
	Get(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (int8, error)
	Tally(ctx context.Context, targetType models.TargetType, targetID uint) (models.VoteTally, error)
	TallyMany(ctx context.Context, targetType models.TargetType, targetIDs []uint) (map[uint]models.VoteTally, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Vote, error)
	UpvotesReceived(ctx context.Context, userID uint) (int64, error)
	// TargetsByUser lists every target the user has voted on.
	TargetsByUser(ctx context.Context, userID uint) ([]models.VoteTarget, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	DeleteByTarget(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) WithTx(tx *gorm.DB) VoteRepository {
	return &voteRepository{db: tx}
}

var voteKeyColumns = []clause.Column{{Name: "user_id"}, {Name: "target_type"}, {Name: "target_id"}}

func (r *voteRepository) Upsert(ctx context.Context, vote *models.Vote) error {
	now := time.Now()
	vote.CreatedAt = now
	vote.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   voteKeyColumns,
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(vote).Error
	if err != nil {
		err = storageError(err)
		if !models.HasCode(err, models.CodeConflict) {
			observability.NewRepoLogger("votes").LogError(ctx, err, "upsert")
		}
		return err
	}
	return nil
}

func (r *voteRepository) Get(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (int8, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Take(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, storageError(err)
	}
	return vote.Value, nil
}

const tallySelect = "COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0) AS upvotes, " +
	"COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0) AS downvotes"

func (r *voteRepository) Tally(ctx context.Context, targetType models.TargetType, targetID uint) (models.VoteTally, error) {
	tally := models.VoteTally{TargetType: targetType, TargetID: targetID}
	var row struct {
		Upvotes   int64
		Downvotes int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select(tallySelect).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Scan(&row).Error; err != nil {
		return tally, storageError(err)
	}
	tally.Upvotes, tally.Downvotes = row.Upvotes, row.Downvotes
	return tally, nil
}

// TallyMany returns a tally for every requested ID, zero-valued when unvoted.
func (r *voteRepository) TallyMany(ctx context.Context, targetType models.TargetType, targetIDs []uint) (map[uint]models.VoteTally, error) {
	out := make(map[uint]models.VoteTally, len(targetIDs))
	for _, id := range targetIDs {
		out[id] = models.VoteTally{TargetType: targetType, TargetID: id}
	}
	if len(targetIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		TargetID  uint
		Upvotes   int64
		Downvotes int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("target_id, "+tallySelect).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Group("target_id").
		Scan(&rows).Error; err != nil {
		return nil, storageError(err)
	}
	for _, row := range rows {
		out[row.TargetID] = models.VoteTally{
			TargetType: targetType,
			TargetID:   row.TargetID,
			Upvotes:    row.Upvotes,
			Downvotes:  row.Downvotes,
		}
	}
	return out, nil
}

// ListByUser returns the user's votes, most recently changed first.
func (r *voteRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Vote, error) {
	limit, _ = pageBounds(limit, 0)
	votes := []models.Vote{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").Order("id DESC").
		Limit(limit).
		Find(&votes).Error; err != nil {
		return nil, storageError(err)
	}
	return votes, nil
}

// UpvotesReceived counts upvotes on posts and comments authored by userID.
func (r *voteRepository) UpvotesReceived(ctx context.Context, userID uint) (int64, error) {
	db := r.db.WithContext(ctx)
	posts := db.Table("posts").Select("id").Where("user_id = ?", userID)
	comments := db.Table("comments").Select("id").Where("user_id = ?", userID)

	var n int64
	if err := db.Model(&models.Vote{}).
		Where("value = ?", models.VoteUp).
		Where("(target_type = ? AND target_id IN (?)) OR (target_type = ? AND target_id IN (?))",
			models.TargetPost, posts, models.TargetComment, comments).
		Count(&n).Error; err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

func (r *voteRepository) TargetsByUser(ctx context.Context, userID uint) ([]models.VoteTarget, error) {
	targets := []models.VoteTarget{}
	if err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Distinct("target_type", "target_id").
		Where("user_id = ?", userID).
		Scan(&targets).Error; err != nil {
		return nil, storageError(err)
	}
	return targets, nil
}

func (r *voteRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Vote{})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	observability.NewRepoLogger("votes").LogDelete(ctx, res.RowsAffected, slog.Uint64("user_id", uint64(userID)))
	return res.RowsAffected, nil
}

func (r *voteRepository) DeleteByTarget(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Delete(&models.Vote{})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	observability.NewRepoLogger("votes").LogDelete(ctx, res.RowsAffected,
		slog.String("target_type", string(targetType)),
		slog.Uint64("target_id", uint64(targetID)),
	)
	return res.RowsAffected, nil
}
