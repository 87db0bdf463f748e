// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Type represents the type of event
type Type string

// Common event types
const (
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
	RopeInitialized   Type = "rope_initialized"
	GestureBegan      Type = "gesture_began"
	GestureEnded      Type = "gesture_ended"
	ImpulseReleased   Type = "impulse_released"
	ImpulseReceived   Type = "impulse_received"
	ReceiverFailed    Type = "receiver_failed"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// copy so a concurrent Publish keeps its own slice intact
			remaining := make([]subscriber, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			b.handlers[eventType] = remaining
			return
		}
	}
}

// Publish sends an event to all subscribed handlers, synchronously and in
// subscription order
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// GestureEvent reports a drag beginning or ending at a pointer position
type GestureEvent struct {
	BaseEvent
	Position physics.Vector2D
	Tick     uint64
}

// NewGestureEvent creates a new gesture event
func NewGestureEvent(eventType Type, source interface{}, position physics.Vector2D, tick uint64) *GestureEvent {
	return &GestureEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Position: position,
		Tick:     tick,
	}
}

// ImpulseEvent carries a release force, either produced locally or received
// by a remote board
type ImpulseEvent struct {
	BaseEvent
	Impulse physics.Vector2D
	Seq     uint64
}

// NewImpulseEvent creates a new impulse event
func NewImpulseEvent(eventType Type, source interface{}, impulse physics.Vector2D, seq uint64) *ImpulseEvent {
	return &ImpulseEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Impulse: impulse,
		Seq:     seq,
	}
}

// RopeEvent reports a (re)built rope
type RopeEvent struct {
	BaseEvent
	Anchor        physics.Vector2D
	SegmentCount  int
	SegmentLength float64
}

// NewRopeEvent creates a RopeInitialized event
func NewRopeEvent(source interface{}, anchor physics.Vector2D, segmentCount int, segmentLength float64) *RopeEvent {
	return &RopeEvent{
		BaseEvent: BaseEvent{
			EventType: RopeInitialized,
			Source:    source,
		},
		Anchor:        anchor,
		SegmentCount:  segmentCount,
		SegmentLength: segmentLength,
	}
}

// ErrorEvent wraps a failure that was logged and dropped
type ErrorEvent struct {
	BaseEvent
	Err error
}

// NewErrorEvent creates a new error event
func NewErrorEvent(eventType Type, source interface{}, err error) *ErrorEvent {
	return &ErrorEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Err: err,
	}
}
