package notification

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Event describes a workflow occurrence interested parties get told about.
// EventID is unique per occurrence; consumers deduplicate on it because
// delivery is at-least-once.
type Event struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"` // request.created, request.transitioned, po.created, po.status_changed
	RequestID     string    `json:"request_id,omitempty"`
	RequestNumber string    `json:"request_number,omitempty"`
	FromState     string    `json:"from_state,omitempty"`
	ToState       string    `json:"to_state,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	PONumber      string    `json:"po_number,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sink is where dispatched events go, typically the websocket hub.
type Sink interface {
	GetBroadcast() chan []byte
}

// Dispatcher consumes engine events asynchronously and fans them out to the
// sink. The engine never blocks on it: Enqueue drops (with a log line) when
// the buffer is full, and a dispatch failure never affects a committed
// transition.
type Dispatcher struct {
	events chan Event
	sink   Sink
	seen   map[string]struct{}
}

const seenCap = 4096

func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		events: make(chan Event, buffer),
		sink:   sink,
		seen:   make(map[string]struct{}),
	}
}

// Enqueue hands an event to the dispatcher without blocking the caller.
func (d *Dispatcher) Enqueue(evt Event) {
	select {
	case d.events <- evt:
	default:
		log.Printf("notification buffer full, dropping event %s (%s)", evt.EventID, evt.Type)
	}
}

// Run consumes events until ctx is cancelled. Duplicate event IDs are
// swallowed so a redelivered event is only broadcast once.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-d.events:
			if _, dup := d.seen[evt.EventID]; dup {
				continue
			}
			d.remember(evt.EventID)
			d.broadcast(evt)
		}
	}
}

func (d *Dispatcher) remember(eventID string) {
	// Crude bound: reset the dedup window instead of growing forever.
	if len(d.seen) >= seenCap {
		d.seen = make(map[string]struct{})
	}
	d.seen[eventID] = struct{}{}
}

func (d *Dispatcher) broadcast(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("failed to marshal notification event %s: %v", evt.EventID, err)
		return
	}

	if d.sink == nil {
		return
	}
	select {
	case d.sink.GetBroadcast() <- payload:
	default:
		log.Printf("notification sink busy, dropping event %s", evt.EventID)
	}
}
