package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	StreamName     = "AGORA"
	SubjectPattern = "agora.>"
)

// JetStreamPublisher appends events to a persistent JetStream stream, the
// durable audit trail of the core.
type JetStreamPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewJetStreamPublisher connects and ensures the stream exists.
func NewJetStreamPublisher(ctx context.Context, url string) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("agora"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &JetStreamPublisher{nc: nc, js: js}, nil
}

// Subject maps an event type onto the stream, e.g. agora.vote.cast.
func Subject(t Type) string {
	return "agora." + string(t)
}

func (p *JetStreamPublisher) Name() string { return "nats" }

func (p *JetStreamPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(Subject(ev.Type))
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if _, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(ev.ID)); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (p *JetStreamPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
