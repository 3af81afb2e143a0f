package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "domain event",
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		slog.Uint64("actor_id", uint64(ev.ActorID)),
		slog.Any("users", ev.Users),
		slog.Any("data", ev.Data),
	)
	return nil
}
