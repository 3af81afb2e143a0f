package repository

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// UserRepository is the identity side of the store: lookups, admin flag, deletion.
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	IsAdmin(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	SetAdmin(ctx context.Context, id uint, admin bool) error
	ListAdmins(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, storageError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", username)
		}
		return nil, storageError(err)
	}
	return &user, nil
}

func (r *userRepository) IsAdmin(ctx context.Context, id uint) (bool, error) {
	var flags []bool
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("is_admin", &flags).Error; err != nil {
		return false, storageError(err)
	}
	if len(flags) == 0 {
		return false, models.NewNotFoundError("User", id)
	}
	return flags[0], nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewValidationError("User already exists")
		}
		return storageError(err)
	}
	observability.NewRepoLogger("users").LogCreate(ctx, slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin)
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	admins := []models.User{}
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&admins).Error; err != nil {
		return nil, storageError(err)
	}
	return admins, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	observability.NewRepoLogger("users").LogDelete(ctx, res.RowsAffected, slog.Uint64("user_id", uint64(id)))
	return nil
}
