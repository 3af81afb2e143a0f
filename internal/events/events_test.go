package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name   string
	err    error
	events []Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, ev Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestNew(t *testing.T) {
	ev := New(VoteCast, 3, map[string]any{"value": 1}, 3, 9)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, VoteCast, ev.Type)
	assert.Equal(t, uint(3), ev.ActorID)
	assert.Equal(t, []uint{3, 9}, ev.Users)
	assert.WithinDuration(t, time.Now(), ev.OccurredAt, time.Minute)
	assert.NotEqual(t, ev.ID, New(VoteCast, 3, nil).ID)
}

func TestFanout_PublishesToEverySinkAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("sink down")}
	f := NewFanout(bad, ok)

	err := f.Publish(context.Background(), New(ReportFiled, 1, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, bad.err)
	assert.Len(t, ok.events, 1, "a failing sink does not stop the others")
	assert.Equal(t, []string{"bad", "ok"}, f.Sinks())
}

func TestEmit_SwallowsFailure(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("nope")}
	assert.NotPanics(t, func() {
		Emit(context.Background(), bad, New(RelationAdded, 1, nil))
		Emit(context.Background(), nil, New(RelationAdded, 1, nil))
	})
	assert.Len(t, bad.events, 1)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), New(FavoriteAdded, 4, map[string]any{"post_id": 8})))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "domain event", line["msg"])
	assert.Equal(t, "favorite.added", line["event_type"])
}

func TestRedisPublisher_TypeAndUserChannels(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, TypeChannel(RelationAdded), UserChannel(7))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := New(RelationAdded, 3, map[string]any{"kind": "follow"}, 3, 7)
	require.NoError(t, NewRedisPublisher(rdb).Publish(ctx, ev))

	got := map[string]Event{}
	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var decoded Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
		got[msg.Channel] = decoded
	}
	assert.Equal(t, ev.ID, got["agora:events:relation.added"].ID)
	assert.Equal(t, ev.ID, got["agora:user:7"].ID)
}

func TestRedisPublisher_NilClient(t *testing.T) {
	assert.NoError(t, NewRedisPublisher(nil).Publish(context.Background(), New(VoteCast, 1, nil)))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "agora.cascade.user", Subject(CascadeUser))
	assert.Equal(t, "agora:events:vote.cast", TypeChannel(VoteCast))
	assert.Equal(t, "agora:user:12", UserChannel(12))
}
