package service

import (
	"context"

	"agora/internal/events"
	"agora/internal/featureflags"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"

	"gorm.io/gorm"
)

// RelationService manages friend, follow and block edges between users.
type RelationService struct {
	runTx     txRunner
	relations repository.RelationRepository
	users     repository.UserRepository
	flags     *featureflags.Manager
	events    events.Publisher
}

// NewRelationService returns a new RelationService.
func NewRelationService(
	db *gorm.DB,
	relations repository.RelationRepository,
	users repository.UserRepository,
	flags *featureflags.Manager,
	pub events.Publisher,
) *RelationService {
	return &RelationService{
		runTx:     gormTx(db),
		relations: relations,
		users:     users,
		flags:     flags,
		events:    pub,
	}
}

// mutual reports whether a friend change by subjectID writes both directions.
// The flag is read for the acting user only: when a rollout covers one side
// of a friendship, a removal by the user outside it drops only their own edge.
func (s *RelationService) mutual(kind models.RelationKind, subjectID uint) bool {
	return kind == models.RelationFriend && s.flags.Enabled(featureflags.MutualFriends, subjectID)
}

// Add creates the subject -> object edge. Adding an existing edge is a no-op.
func (s *RelationService) Add(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) error {
	if !kind.Valid() {
		return models.NewValidationError("unknown relation kind")
	}
	if err := validation.DistinctUsers(subjectID, objectID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, objectID); err != nil {
		return err
	}

	var created bool
	var err error
	if s.mutual(kind, subjectID) {
		err = s.runTx(ctx, func(tx *gorm.DB) error {
			repo := s.relations.WithTx(tx)
			forward, err := repo.Add(ctx, kind, subjectID, objectID)
			if err != nil {
				return err
			}
			backward, err := repo.Add(ctx, kind, objectID, subjectID)
			created = forward || backward
			return err
		})
	} else {
		created, err = s.relations.Add(ctx, kind, subjectID, objectID)
	}
	if err != nil || !created {
		return err
	}

	observability.RelationChanges.WithLabelValues(string(kind), "add").Inc()
	events.Emit(ctx, s.events, events.New(events.RelationAdded, subjectID,
		map[string]any{"kind": kind, "subject_id": subjectID, "object_id": objectID},
		subjectID, objectID))
	return nil
}

// Remove deletes the subject -> object edge. Removing a missing edge is a no-op.
func (s *RelationService) Remove(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) error {
	if !kind.Valid() {
		return models.NewValidationError("unknown relation kind")
	}

	var removed bool
	var err error
	if s.mutual(kind, subjectID) {
		err = s.runTx(ctx, func(tx *gorm.DB) error {
			repo := s.relations.WithTx(tx)
			forward, err := repo.Remove(ctx, kind, subjectID, objectID)
			if err != nil {
				return err
			}
			backward, err := repo.Remove(ctx, kind, objectID, subjectID)
			removed = forward || backward
			return err
		})
	} else {
		removed, err = s.relations.Remove(ctx, kind, subjectID, objectID)
	}
	if err != nil || !removed {
		return err
	}

	observability.RelationChanges.WithLabelValues(string(kind), "remove").Inc()
	events.Emit(ctx, s.events, events.New(events.RelationRemoved, subjectID,
		map[string]any{"kind": kind, "subject_id": subjectID, "object_id": objectID},
		subjectID, objectID))
	return nil
}

func (s *RelationService) Exists(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	return s.relations.Exists(ctx, kind, subjectID, objectID)
}

// List returns the users subjectID points at (friends, following, blocking).
func (s *RelationService) List(ctx context.Context, kind models.RelationKind, subjectID uint) ([]uint, error) {
	return s.relations.ListOutgoing(ctx, kind, subjectID)
}

// ListIncoming returns the users pointing at objectID (friend_of, followers, blocked_by).
func (s *RelationService) ListIncoming(ctx context.Context, kind models.RelationKind, objectID uint) ([]uint, error) {
	return s.relations.ListIncoming(ctx, kind, objectID)
}

// Status reports every relation between viewer and target, in both directions.
func (s *RelationService) Status(ctx context.Context, viewerID, targetID uint) (models.RelationStatus, error) {
	var status models.RelationStatus
	for _, kind := range models.RelationKinds {
		out, err := s.relations.Exists(ctx, kind, viewerID, targetID)
		if err != nil {
			return status, err
		}
		in, err := s.relations.Exists(ctx, kind, targetID, viewerID)
		if err != nil {
			return status, err
		}
		status.Set(kind, true, out)
		status.Set(kind, false, in)
	}
	return status, nil
}
