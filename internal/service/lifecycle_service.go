package service

import (
	"context"

	"agora/internal/events"
	"agora/internal/models"
	"agora/internal/repository"

	"gorm.io/gorm"
)

// LifecycleService deletes users, posts and comments together with
// everything that references them.
type LifecycleService struct {
	runTx   txRunner
	users   repository.UserRepository
	content repository.ContentRepository
	cascade *CascadeCoordinator
	events  events.Publisher
}

// NewLifecycleService returns a new LifecycleService.
func NewLifecycleService(
	db *gorm.DB,
	users repository.UserRepository,
	content repository.ContentRepository,
	cascade *CascadeCoordinator,
	pub events.Publisher,
) *LifecycleService {
	return &LifecycleService{
		runTx:   gormTx(db),
		users:   users,
		content: content,
		cascade: cascade,
		events:  pub,
	}
}

// DeleteUser removes a user, their content, and every edge, vote, favorite
// and report tied to them. Only admins may delete users, never themselves
// or another admin.
func (s *LifecycleService) DeleteUser(ctx context.Context, actor models.AuthenticatedUser, userID uint) (CascadeReport, error) {
	if !actor.IsAdmin {
		return CascadeReport{}, models.NewForbiddenError("admin access required")
	}
	if actor.ID == userID {
		return CascadeReport{}, models.NewForbiddenError("admins cannot delete their own account")
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return CascadeReport{}, err
	}
	if target.IsAdmin {
		return CascadeReport{}, models.NewForbiddenError("cannot delete another admin")
	}

	var report CascadeReport
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		r, err := s.cascade.OnUserDeletedTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		report.merge(r)

		content := s.content.WithTx(tx)
		comments, err := content.CommentIDsByAuthor(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range comments {
			if err := s.deleteContentTx(ctx, tx, models.TargetComment, id, &report); err != nil {
				return err
			}
		}

		posts, err := content.PostIDsByAuthor(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range posts {
			if err := s.deletePostTx(ctx, tx, id, &report); err != nil {
				return err
			}
		}

		return s.users.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		return CascadeReport{}, err
	}

	s.cascade.Settle(ctx, report)
	events.Emit(ctx, s.events, events.New(events.UserDeleted, actor.ID, map[string]any{
		"user_id": userID,
		"removed": report,
	}, userID))
	return report, nil
}

// DeletePost removes a post, its comments, and everything referencing them.
// Authors may delete their own posts; admins may delete any.
func (s *LifecycleService) DeletePost(ctx context.Context, actor models.AuthenticatedUser, postID uint) (CascadeReport, error) {
	return s.deleteContent(ctx, actor, models.TargetPost, postID)
}

// DeleteComment removes a comment and everything referencing it.
func (s *LifecycleService) DeleteComment(ctx context.Context, actor models.AuthenticatedUser, commentID uint) (CascadeReport, error) {
	return s.deleteContent(ctx, actor, models.TargetComment, commentID)
}

func (s *LifecycleService) deleteContent(ctx context.Context, actor models.AuthenticatedUser, targetType models.TargetType, id uint) (CascadeReport, error) {
	author, err := s.content.AuthorOf(ctx, targetType, id)
	if err != nil {
		return CascadeReport{}, err
	}
	if author != actor.ID && !actor.IsAdmin {
		return CascadeReport{}, models.NewForbiddenError("only the author or an admin can delete this " + string(targetType))
	}

	var report CascadeReport
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if targetType == models.TargetPost {
			return s.deletePostTx(ctx, tx, id, &report)
		}
		return s.deleteContentTx(ctx, tx, targetType, id, &report)
	})
	if err != nil {
		return CascadeReport{}, err
	}

	s.cascade.Settle(ctx, report)
	events.Emit(ctx, s.events, events.New(events.ContentDeleted, actor.ID, map[string]any{
		"target_type": targetType,
		"target_id":   id,
		"removed":     report,
	}, author))
	return report, nil
}

func (s *LifecycleService) deletePostTx(ctx context.Context, tx *gorm.DB, postID uint, report *CascadeReport) error {
	comments, err := s.content.WithTx(tx).CommentIDsByPost(ctx, postID)
	if err != nil {
		return err
	}
	for _, id := range comments {
		if err := s.deleteContentTx(ctx, tx, models.TargetComment, id, report); err != nil {
			return err
		}
	}
	return s.deleteContentTx(ctx, tx, models.TargetPost, postID, report)
}

func (s *LifecycleService) deleteContentTx(ctx context.Context, tx *gorm.DB, targetType models.TargetType, id uint, report *CascadeReport) error {
	r, err := s.cascade.OnContentDeletedTx(ctx, tx, targetType, id)
	if err != nil {
		return err
	}
	report.merge(r)
	return s.content.WithTx(tx).Delete(ctx, targetType, id)
}
