package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	broadcast chan []byte
}

func newFakeSink() *fakeSink {
	return &fakeSink{broadcast: make(chan []byte, 16)}
}

func (s *fakeSink) GetBroadcast() chan []byte {
	return s.broadcast
}

func (s *fakeSink) receive(t *testing.T) Event {
	t.Helper()
	select {
	case payload := <-s.broadcast:
		var evt Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return Event{}
	}
}

func TestDispatcherBroadcastsEvents(t *testing.T) {
	sink := newFakeSink()
	d := NewDispatcher(sink, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Event{
		EventID:       "evt-1",
		Type:          "request.transitioned",
		RequestNumber: "REQ-20260830-00001",
		FromState:     "PENDING_CHECK",
		ToState:       "CHECKED",
		OccurredAt:    time.Now(),
	})

	got := sink.receive(t)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "request.transitioned", got.Type)
	assert.Equal(t, "CHECKED", got.ToState)
}

func TestDispatcherDeduplicatesByEventID(t *testing.T) {
	sink := newFakeSink()
	d := NewDispatcher(sink, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// Redelivery of the same event must broadcast once.
	evt := Event{EventID: "evt-dup", Type: "po.created", OccurredAt: time.Now()}
	d.Enqueue(evt)
	d.Enqueue(evt)
	d.Enqueue(Event{EventID: "evt-next", Type: "po.created", OccurredAt: time.Now()})

	first := sink.receive(t)
	second := sink.receive(t)
	assert.Equal(t, "evt-dup", first.EventID)
	assert.Equal(t, "evt-next", second.EventID)

	select {
	case extra := <-sink.broadcast:
		t.Fatalf("unexpected extra broadcast: %s", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	// No consumer running and a single-slot buffer: the overflow must be
	// dropped, not block the caller.
	d := NewDispatcher(newFakeSink(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Enqueue(Event{EventID: "evt", Type: "request.created"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full buffer")
	}
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	sink := newFakeSink()
	d := NewDispatcher(sink, 16)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
