package service

import (
	"context"

	"agora/internal/cache"
	"agora/internal/events"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CascadeReport counts what a cascade removed and which tallies it touched.
type CascadeReport struct {
	Relations int64               `json:"relations"`
	Favorites int64               `json:"favorites"`
	Votes     int64               `json:"votes"`
	Reports   int64               `json:"reports"`
	Targets   []models.VoteTarget `json:"-"`
}

func (r *CascadeReport) merge(o CascadeReport) {
	r.Relations += o.Relations
	r.Favorites += o.Favorites
	r.Votes += o.Votes
	r.Reports += o.Reports
	r.Targets = append(r.Targets, o.Targets...)
}

// CascadeCoordinator removes every relation, favorite, vote and report that
// references a deleted user or content item, all in one transaction.
type CascadeCoordinator struct {
	runTx     txRunner
	relations repository.RelationRepository
	favorites repository.FavoriteRepository
	votes     repository.VoteRepository
	reports   repository.ReportRepository
	tallies   *cache.TallyCache
	events    events.Publisher
}

func NewCascadeCoordinator(
	db *gorm.DB,
	relations repository.RelationRepository,
	favorites repository.FavoriteRepository,
	votes repository.VoteRepository,
	reports repository.ReportRepository,
	tallies *cache.TallyCache,
	pub events.Publisher,
) *CascadeCoordinator {
	return &CascadeCoordinator{
		runTx:     gormTx(db),
		relations: relations,
		favorites: favorites,
		votes:     votes,
		reports:   reports,
		tallies:   tallies,
		events:    pub,
	}
}

// OnUserDeleted runs the user cascade in its own transaction.
func (c *CascadeCoordinator) OnUserDeleted(ctx context.Context, userID uint) (CascadeReport, error) {
	var report CascadeReport
	err := c.runTx(ctx, func(tx *gorm.DB) error {
		var err error
		report, err = c.OnUserDeletedTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return CascadeReport{}, err
	}
	c.Settle(ctx, report)
	events.Emit(ctx, c.events, events.New(events.CascadeUser, 0, map[string]any{"user_id": userID, "removed": report}, userID))
	return report, nil
}

// OnUserDeletedTx removes the user's relation edges in either direction, then
// favorites, votes and filed reports, all on tx. The caller commits.
func (c *CascadeCoordinator) OnUserDeletedTx(ctx context.Context, tx *gorm.DB, userID uint) (report CascadeReport, err error) {
	ctx, span := observability.StartSpan(ctx, "cascade.user", attribute.Int64("user_id", int64(userID)))
	done := observability.TrackCascade("user")
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	relations := c.relations.WithTx(tx)
	for _, kind := range models.RelationKinds {
		n, err := relations.DeleteForUser(ctx, kind, userID)
		if err != nil {
			return CascadeReport{}, err
		}
		report.Relations += n
	}

	if report.Favorites, err = c.favorites.WithTx(tx).DeleteByUser(ctx, userID); err != nil {
		return CascadeReport{}, err
	}

	votes := c.votes.WithTx(tx)
	if report.Targets, err = votes.TargetsByUser(ctx, userID); err != nil {
		return CascadeReport{}, err
	}
	if report.Votes, err = votes.DeleteByUser(ctx, userID); err != nil {
		return CascadeReport{}, err
	}

	if report.Reports, err = c.reports.WithTx(tx).DeleteByReporter(ctx, userID); err != nil {
		return CascadeReport{}, err
	}
	return report, nil
}

// OnContentDeleted runs the content cascade in its own transaction.
func (c *CascadeCoordinator) OnContentDeleted(ctx context.Context, targetType models.TargetType, targetID uint) (CascadeReport, error) {
	if !targetType.Valid() {
		return CascadeReport{}, models.NewValidationError("target_type must be post or comment")
	}
	var report CascadeReport
	err := c.runTx(ctx, func(tx *gorm.DB) error {
		var err error
		report, err = c.OnContentDeletedTx(ctx, tx, targetType, targetID)
		return err
	})
	if err != nil {
		return CascadeReport{}, err
	}
	c.Settle(ctx, report)
	events.Emit(ctx, c.events, events.New(events.CascadeContent, 0, map[string]any{
		"target_type": targetType,
		"target_id":   targetID,
		"removed":     report,
	}))
	return report, nil
}

// OnContentDeletedTx removes favorites (posts only), votes and reports that
// reference the target, all on tx. The caller commits.
func (c *CascadeCoordinator) OnContentDeletedTx(ctx context.Context, tx *gorm.DB, targetType models.TargetType, targetID uint) (report CascadeReport, err error) {
	ctx, span := observability.StartSpan(ctx, "cascade.content",
		attribute.String("target_type", string(targetType)),
		attribute.Int64("target_id", int64(targetID)),
	)
	done := observability.TrackCascade("content")
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	if targetType == models.TargetPost {
		if report.Favorites, err = c.favorites.WithTx(tx).DeleteByPost(ctx, targetID); err != nil {
			return CascadeReport{}, err
		}
	}
	if report.Votes, err = c.votes.WithTx(tx).DeleteByTarget(ctx, targetType, targetID); err != nil {
		return CascadeReport{}, err
	}
	if report.Votes > 0 {
		report.Targets = []models.VoteTarget{{TargetType: targetType, TargetID: targetID}}
	}
	if report.Reports, err = c.reports.WithTx(tx).DeleteByTarget(ctx, targetType, targetID); err != nil {
		return CascadeReport{}, err
	}
	return report, nil
}

// Settle applies the after-commit effects of a cascade: row metrics and
// tally cache invalidation. Call it only once the transaction committed.
func (c *CascadeCoordinator) Settle(ctx context.Context, report CascadeReport) {
	observability.CascadeRowsRemoved.WithLabelValues("relations").Add(float64(report.Relations))
	observability.CascadeRowsRemoved.WithLabelValues("favorites").Add(float64(report.Favorites))
	observability.CascadeRowsRemoved.WithLabelValues("votes").Add(float64(report.Votes))
	observability.CascadeRowsRemoved.WithLabelValues("reports").Add(float64(report.Reports))
	for _, t := range report.Targets {
		c.tallies.Forget(ctx, t.TargetType, t.TargetID)
	}
}
