package repository

import (
	"context"
	"log/slog"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// ContentRepository is the storage side of the content provider: posts and
// comments referenced by (target type, id).
type ContentRepository interface {
	WithTx(tx *gorm.DB) ContentRepository
	Exists(ctx context.Context, targetType models.TargetType, id uint) (bool, error)
	// AuthorOf returns the owning user of a post or comment.
	AuthorOf(ctx context.Context, targetType models.TargetType, id uint) (uint, error)
	SetReported(ctx context.Context, targetType models.TargetType, id uint, reported bool) error
	CreatePost(ctx context.Context, post *models.Post) error
	CreateComment(ctx context.Context, comment *models.Comment) error
	PostIDsByAuthor(ctx context.Context, userID uint) ([]uint, error)
	CommentIDsByAuthor(ctx context.Context, userID uint) ([]uint, error)
	CommentIDsByPost(ctx context.Context, postID uint) ([]uint, error)
	Delete(ctx context.Context, targetType models.TargetType, id uint) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) WithTx(tx *gorm.DB) ContentRepository {
	return &contentRepository{db: tx}
}

func contentModel(targetType models.TargetType) (interface{}, error) {
	switch targetType {
	case models.TargetPost:
		return &models.Post{}, nil
	case models.TargetComment:
		return &models.Comment{}, nil
	}
	return nil, models.NewValidationError("target_type must be post or comment")
}

func (r *contentRepository) Exists(ctx context.Context, targetType models.TargetType, id uint) (bool, error) {
	model, err := contentModel(targetType)
	if err != nil {
		return false, err
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, storageError(err)
	}
	return n > 0, nil
}

func (r *contentRepository) AuthorOf(ctx context.Context, targetType models.TargetType, id uint) (uint, error) {
	model, err := contentModel(targetType)
	if err != nil {
		return 0, err
	}
	var authors []uint
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Limit(1).Pluck("user_id", &authors).Error; err != nil {
		return 0, storageError(err)
	}
	if len(authors) == 0 {
		return 0, models.NewNotFoundError(string(targetType), id)
	}
	return authors[0], nil
}

func (r *contentRepository) SetReported(ctx context.Context, targetType models.TargetType, id uint, reported bool) error {
	model, err := contentModel(targetType)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Update("is_reported", reported)
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(string(targetType), id)
	}
	return nil
}

func (r *contentRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return storageError(err)
	}
	return nil
}

func (r *contentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return storageError(err)
	}
	return nil
}

func (r *contentRepository) PostIDsByAuthor(ctx context.Context, userID uint) ([]uint, error) {
	return r.ids(ctx, &models.Post{}, "user_id = ?", userID)
}

func (r *contentRepository) CommentIDsByAuthor(ctx context.Context, userID uint) ([]uint, error) {
	return r.ids(ctx, &models.Comment{}, "user_id = ?", userID)
}

func (r *contentRepository) CommentIDsByPost(ctx context.Context, postID uint) ([]uint, error) {
	return r.ids(ctx, &models.Comment{}, "post_id = ?", postID)
}

func (r *contentRepository) ids(ctx context.Context, model interface{}, cond string, id uint) ([]uint, error) {
	ids := []uint{}
	if err := r.db.WithContext(ctx).Model(model).Where(cond, id).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, storageError(err)
	}
	return ids, nil
}

// Delete removes the content row itself. Dependent engagement rows are the
// cascade's job.
func (r *contentRepository) Delete(ctx context.Context, targetType models.TargetType, id uint) error {
	model, err := contentModel(targetType)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(string(targetType), id)
	}
	observability.NewRepoLogger(string(targetType)+"s").LogDelete(ctx, res.RowsAffected, slog.Uint64("id", uint64(id)))
	return nil
}
