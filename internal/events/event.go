// Package events publishes domain events after the core commits a change.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agora/internal/middleware"
	"agora/internal/observability"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	RelationAdded   Type = "relation.added"
	RelationRemoved Type = "relation.removed"
	VoteCast        Type = "vote.cast"
	FavoriteAdded   Type = "favorite.added"
	FavoriteRemoved Type = "favorite.removed"
	ReportFiled     Type = "report.filed"
	ReportResolved  Type = "report.resolved"
	ReportDismissed Type = "report.dismissed"
	CascadeUser     Type = "cascade.user"
	CascadeContent  Type = "cascade.content"
	UserDeleted     Type = "user.deleted"
	ContentDeleted  Type = "content.deleted"
)

// Event is one domain event. Users lists the accounts the event concerns,
// for per-user fan-out.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    uint           `json:"actor_id,omitempty"`
	Users      []uint         `json:"users,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// New stamps an event with a fresh ID and the current time.
func New(t Type, actorID uint, data map[string]any, users ...uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Users:      users,
		Data:       data,
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout struct {
	sinks []Publisher
}

func NewFanout(sinks ...Publisher) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			observability.EventPublishFailures.WithLabelValues(sink.Name()).Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sinks returns the configured sink names.
func (f *Fanout) Sinks() []string {
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Emit publishes ev and logs a failure instead of returning it. Events go
// out after commit, so a failed publish cannot undo the change.
func Emit(ctx context.Context, pub Publisher, ev Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "domain event publish failed",
			slog.String("event_id", ev.ID),
			slog.String("event_type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Name() string { return "nop" }
func (Nop) Publish(context.Context, Event) error { return nil }
