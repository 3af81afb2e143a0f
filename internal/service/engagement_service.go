package service

import (
	"context"
	"strconv"

	"agora/internal/cache"
	"agora/internal/events"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// EngagementService handles favorites and votes.
type EngagementService struct {
	favorites repository.FavoriteRepository
	votes     repository.VoteRepository
	content   repository.ContentRepository
	tallies   *cache.TallyCache
	events    events.Publisher
}

// NewEngagementService returns a new EngagementService.
func NewEngagementService(
	favorites repository.FavoriteRepository,
	votes repository.VoteRepository,
	content repository.ContentRepository,
	tallies *cache.TallyCache,
	pub events.Publisher,
) *EngagementService {
	return &EngagementService{
		favorites: favorites,
		votes:     votes,
		content:   content,
		tallies:   tallies,
		events:    pub,
	}
}

func (s *EngagementService) requireContent(ctx context.Context, targetType models.TargetType, id uint) error {
	if !targetType.Valid() {
		return models.NewValidationError("target_type must be post or comment")
	}
	ok, err := s.content.Exists(ctx, targetType, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError(string(targetType), id)
	}
	return nil
}

// AddFavorite adds the post to the user's favorites. Repeats are no-ops.
func (s *EngagementService) AddFavorite(ctx context.Context, userID, postID uint) error {
	if err := s.requireContent(ctx, models.TargetPost, postID); err != nil {
		return err
	}
	added, err := s.favorites.Add(ctx, userID, postID)
	if err != nil || !added {
		return err
	}
	observability.FavoriteChanges.WithLabelValues("add").Inc()
	events.Emit(ctx, s.events, events.New(events.FavoriteAdded, userID, map[string]any{"post_id": postID}, userID))
	return nil
}

// RemoveFavorite drops the post from the user's favorites. Missing entries are no-ops.
func (s *EngagementService) RemoveFavorite(ctx context.Context, userID, postID uint) error {
	removed, err := s.favorites.Remove(ctx, userID, postID)
	if err != nil || !removed {
		return err
	}
	observability.FavoriteChanges.WithLabelValues("remove").Inc()
	events.Emit(ctx, s.events, events.New(events.FavoriteRemoved, userID, map[string]any{"post_id": postID}, userID))
	return nil
}

func (s *EngagementService) IsFavorite(ctx context.Context, userID, postID uint) (bool, error) {
	return s.favorites.Exists(ctx, userID, postID)
}

func (s *EngagementService) ListFavorites(ctx context.Context, userID uint, order models.FavoriteOrder, limit, offset int) ([]uint, error) {
	return s.favorites.List(ctx, userID, order, limit, offset)
}

// CastVote records value for the user on the target, replacing any earlier
// vote. A uniqueness conflict from a concurrent first vote is retried once.
func (s *EngagementService) CastVote(ctx context.Context, userID uint, targetType models.TargetType, targetID uint, value int) (err error) {
	ctx, span := observability.StartSpan(ctx, "engagement.cast_vote",
		attribute.String("target_type", string(targetType)),
		attribute.Int64("target_id", int64(targetID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	v, err := validation.VoteValue(value)
	if err != nil {
		return err
	}
	if err := s.requireContent(ctx, targetType, targetID); err != nil {
		return err
	}

	upsert := func() error {
		return s.votes.Upsert(ctx, &models.Vote{UserID: userID, TargetType: targetType, TargetID: targetID, Value: v})
	}
	err = upsert()
	if models.HasCode(err, models.CodeConflict) {
		observability.VoteConflictRetries.Inc()
		err = upsert()
	}
	if err != nil {
		return err
	}

	s.tallies.Forget(ctx, targetType, targetID)
	observability.VotesCast.WithLabelValues(string(targetType), strconv.Itoa(int(v))).Inc()
	events.Emit(ctx, s.events, events.New(events.VoteCast, userID,
		map[string]any{"target_type": targetType, "target_id": targetID, "value": v}, userID))
	return nil
}

// GetVote returns the user's vote on the target, 0 when there is none.
func (s *EngagementService) GetVote(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (int8, error) {
	if !targetType.Valid() {
		return 0, models.NewValidationError("target_type must be post or comment")
	}
	return s.votes.Get(ctx, userID, targetType, targetID)
}

// Tally returns up and down counts, served from the tally cache when warm.
func (s *EngagementService) Tally(ctx context.Context, targetType models.TargetType, targetID uint) (models.VoteTally, error) {
	if !targetType.Valid() {
		return models.VoteTally{}, models.NewValidationError("target_type must be post or comment")
	}
	return s.tallies.Get(ctx, targetType, targetID, func() (models.VoteTally, error) {
		return s.votes.Tally(ctx, targetType, targetID)
	})
}

func (s *EngagementService) TallyMany(ctx context.Context, targetType models.TargetType, targetIDs []uint) (map[uint]models.VoteTally, error) {
	if !targetType.Valid() {
		return nil, models.NewValidationError("target_type must be post or comment")
	}
	return s.votes.TallyMany(ctx, targetType, targetIDs)
}

func (s *EngagementService) ListVotesByUser(ctx context.Context, userID uint, limit int) ([]models.Vote, error) {
	return s.votes.ListByUser(ctx, userID, limit)
}

// UpvotesReceived is the user's karma: upvotes on everything they wrote.
func (s *EngagementService) UpvotesReceived(ctx context.Context, userID uint) (int64, error) {
	return s.votes.UpvotesReceived(ctx, userID)
}
