package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for everything the coordinator sends outward
type Event struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"` // Assigned by the coordinator, strictly increasing
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`

	// To addresses a single participant; empty means the whole room
	To string `json:"-"`
}

// EventType names an outbound event on the wire
type EventType string

const (
	EventTypeLoginSuccess EventType = "login_success"
	EventTypeLoginError   EventType = "login_error"
	EventTypeUsers        EventType = "update_users"
	EventTypePrice        EventType = "update_price"
	EventTypeBudget       EventType = "update_budget"
	EventTypeTimer        EventType = "timer_update"
	EventTypeRoundStart   EventType = "auction_start"
	EventTypeRoundEnd     EventType = "auction_end"
	EventTypeLog          EventType = "log"
	EventTypeSound        EventType = "play_sound"
	EventTypeSold         EventType = "auction_sold"
	EventTypeKicked       EventType = "kicked"
	EventTypeReload       EventType = "force_reload"
)

// New builds a room-wide event
func New(eventType EventType, payload interface{}, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// NewPrivate builds an event addressed to one participant
func NewPrivate(to string, eventType EventType, payload interface{}, at time.Time) (*Event, error) {
	e, err := New(eventType, payload, at)
	if err != nil {
		return nil, err
	}
	e.To = to
	return e, nil
}

// Private reports whether the event targets a single participant
func (e *Event) Private() bool {
	return e.To != ""
}

// Emitter receives events in the order they are produced
type Emitter interface {
	Emit(event *Event)
}

// Fanout forwards every event to each emitter in turn
type Fanout []Emitter

func (f Fanout) Emit(event *Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(event)
		}
	}
}

// Recorder keeps every emitted event in memory
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *Recorder) Emit(event *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of what has been recorded
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// ParseEventPayload decodes event data into the payload struct for its type
func ParseEventPayload(event *Event) (interface{}, error) {
	var target interface{}
	switch event.Type {
	case EventTypeLoginSuccess:
		target = &LoginSuccessPayload{}
	case EventTypeLoginError:
		target = &LoginErrorPayload{}
	case EventTypeUsers:
		target = &UsersPayload{}
	case EventTypePrice:
		target = &PricePayload{}
	case EventTypeBudget:
		target = &BudgetPayload{}
	case EventTypeTimer:
		target = &TimerPayload{}
	case EventTypeRoundStart, EventTypeRoundEnd:
		target = &RoundPayload{}
	case EventTypeLog:
		target = &LogPayload{}
	case EventTypeSound:
		target = &SoundPayload{}
	case EventTypeSold:
		target = &SoldPayload{}
	case EventTypeKicked:
		target = &KickedPayload{}
	case EventTypeReload:
		target = &ReloadPayload{}
	default:
		return nil, nil // Unknown event type
	}

	if err := json.Unmarshal(event.Data, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
	}
	return target, nil
}
