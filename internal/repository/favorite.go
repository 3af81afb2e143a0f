package repository

import (
	"context"
	"log/slog"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository stores the user -> post favorite set.
type FavoriteRepository interface {
	WithTx(tx *gorm.DB) FavoriteRepository
	Add(ctx context.Context, userID, postID uint) (bool, error)
	Remove(ctx context.Context, userID, postID uint) (bool, error)
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	List(ctx context.Context, userID uint, order models.FavoriteOrder, limit, offset int) ([]uint, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	DeleteByPost(ctx context.Context, postID uint) (int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) WithTx(tx *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: tx}
}

func (r *favoriteRepository) Add(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{UserID: userID, PostID: postID})
	if res.Error != nil {
		return false, storageError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, storageError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error; err != nil {
		return false, storageError(err)
	}
	return n > 0, nil
}

// List returns favorited post IDs, newest first by the chosen ordering key.
func (r *favoriteRepository) List(ctx context.Context, userID uint, order models.FavoriteOrder, limit, offset int) ([]uint, error) {
	limit, offset = pageBounds(limit, offset)
	q := r.db.WithContext(ctx).Table("favorites").Where("favorites.user_id = ?", userID)

	switch order {
	case models.PostCreatedDesc:
		q = q.Joins("JOIN posts ON posts.id = favorites.post_id").
			Order("posts.created_at DESC").
			Order("favorites.post_id DESC")
	default:
		q = q.Order("favorites.created_at DESC").Order("favorites.post_id DESC")
	}

	ids := []uint{}
	if err := q.Limit(limit).Offset(offset).Pluck("favorites.post_id", &ids).Error; err != nil {
		return nil, storageError(err)
	}
	return ids, nil
}

func (r *favoriteRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	return r.deleteWhere(ctx, "user_id = ?", userID)
}

func (r *favoriteRepository) DeleteByPost(ctx context.Context, postID uint) (int64, error) {
	return r.deleteWhere(ctx, "post_id = ?", postID)
}

func (r *favoriteRepository) deleteWhere(ctx context.Context, cond string, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where(cond, id).Delete(&models.Favorite{})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	observability.NewRepoLogger("favorites").LogDelete(ctx, res.RowsAffected, slog.String("where", cond), slog.Uint64("id", uint64(id)))
	return res.RowsAffected, nil
}
