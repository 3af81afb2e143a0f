// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"log/slog"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository stores directed user -> user edges, one table per kind.
type RelationRepository interface {
	WithTx(tx *gorm.DB) RelationRepository
	Exists(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error)
	// Add reports whether a new edge was written.
	Add(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error)
	// Remove reports whether an edge was deleted.
	Remove(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error)
	ListOutgoing(ctx context.Context, kind models.RelationKind, subjectID uint) ([]uint, error)
	ListIncoming(ctx context.Context, kind models.RelationKind, objectID uint) ([]uint, error)
	DeleteForUser(ctx context.Context, kind models.RelationKind, userID uint) (int64, error)
}

type relationRepository struct {
	db *gorm.DB
}

// NewRelationRepository creates a new relation repository
func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

func (r *relationRepository) WithTx(tx *gorm.DB) RelationRepository {
	return &relationRepository{db: tx}
}

func (r *relationRepository) table(ctx context.Context, kind models.RelationKind) (*gorm.DB, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("unknown relation kind")
	}
	return r.db.WithContext(ctx).Table(kind.Table()), nil
}

func (r *relationRepository) Exists(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return false, err
	}
	var n int64
	if err := q.Where("subject_id = ? AND object_id = ?", subjectID, objectID).Count(&n).Error; err != nil {
		return false, storageError(err)
	}
	return n > 0, nil
}

func (r *relationRepository) Add(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return false, err
	}
	edge := models.RelationEdge{SubjectID: subjectID, ObjectID: objectID}
	res := q.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if res.Error != nil {
		return false, storageError(res.Error)
	}
	if res.RowsAffected > 0 {
		observability.NewRepoLogger(kind.Table()).LogCreate(ctx,
			slog.Uint64("subject_id", uint64(subjectID)),
			slog.Uint64("object_id", uint64(objectID)),
		)
	}
	return res.RowsAffected > 0, nil
}

func (r *relationRepository) Remove(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return false, err
	}
	res := q.Where("subject_id = ? AND object_id = ?", subjectID, objectID).Delete(&models.RelationEdge{})
	if res.Error != nil {
		return false, storageError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *relationRepository) ListOutgoing(ctx context.Context, kind models.RelationKind, subjectID uint) ([]uint, error) {
	return r.pluck(ctx, kind, "object_id", "subject_id", subjectID)
}

func (r *relationRepository) ListIncoming(ctx context.Context, kind models.RelationKind, objectID uint) ([]uint, error) {
	return r.pluck(ctx, kind, "subject_id", "object_id", objectID)
}

func (r *relationRepository) pluck(ctx context.Context, kind models.RelationKind, column, by string, id uint) ([]uint, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	ids := []uint{}
	if err := q.Where(by+" = ?", id).Order("created_at DESC").Order(column + " ASC").Pluck(column, &ids).Error; err != nil {
		return nil, storageError(err)
	}
	return ids, nil
}

// DeleteForUser removes every edge of kind where userID is subject or object.
func (r *relationRepository) DeleteForUser(ctx context.Context, kind models.RelationKind, userID uint) (int64, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return 0, err
	}
	res := q.Where("subject_id = ? OR object_id = ?", userID, userID).Delete(&models.RelationEdge{})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	observability.NewRepoLogger(kind.Table()).LogDelete(ctx, res.RowsAffected, slog.Uint64("user_id", uint64(userID)))
	return res.RowsAffected, nil
}
