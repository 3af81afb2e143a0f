package repository

import (
	"errors"

	"agora/internal/models"

	"gorm.io/gorm"
)

// storageError maps a GORM failure onto the AppError taxonomy.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.NewConflictError("concurrent write on a unique key", err)
	}
	return models.NewInternalError(err)
}

// pageBounds clamps a limit/offset pair to sane values.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
