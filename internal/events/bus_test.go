package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	events []Event
	err    error
}

func (f *fakeStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if f.err != nil {
		return Event{}, f.err
	}
	ev := Event{
		ID:          int64(len(f.events) + 1),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	f.events = append(f.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []Event
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) error {
	r.seen = append(r.seen, ev)
	return r.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &fakeStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	id := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicOrderCreated, id, map[string]any{"total": 285.0})
	require.NoError(t, err)
	require.Equal(t, TopicOrderCreated, ev.Topic)
	require.Equal(t, id, ev.AggregateID)
	require.Len(t, store.events, 1)
	require.Len(t, notifier.seen, 1)
	require.JSONEq(t, `{"total":285}`, string(ev.Payload))
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &Bus{Store: &fakeStore{}}
	_, err := bus.Emit(context.Background(), " ", uuid.New(), nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), TopicProductUpdated, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitNotifierFailureDoesNotLoseEvent(t *testing.T) {
	store := &fakeStore{}
	notifier := &recordingNotifier{err: errors.New("sink down")}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}
	ev, err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), nil)
	require.Error(t, err)
	require.NotZero(t, ev.ID)
	require.Len(t, store.events, 1)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &Bus{Store: &fakeStore{}}
	_, err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), []byte("{broken"))
	require.Error(t, err)
}
