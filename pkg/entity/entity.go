// pkg/entity/entity.go
package entity

import (
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// ID is a unique identifier for an entity
type ID uint64

// Entity is the base interface for every simulated body
type Entity interface {
	GetID() ID
	GetPosition() physics.Vector2D
	Update(deltaTime float64)
	Render(r Renderer)
}

// ImpulseReceiver is anything a release force can be applied to. The
// simulation owns exactly one.
type ImpulseReceiver interface {
	ApplyImpulse(impulse physics.Vector2D)
}

// ImpulseReceiverFunc adapts a function to ImpulseReceiver
type ImpulseReceiverFunc func(impulse physics.Vector2D)

// ApplyImpulse calls f(impulse)
func (f ImpulseReceiverFunc) ApplyImpulse(impulse physics.Vector2D) {
	f(impulse)
}

// BaseEntity contains common functionality for all entities
type BaseEntity struct {
	ID       ID
	Position physics.Vector2D
	Velocity physics.Vector2D
	Rotation float64
	Active   bool
}

// GetID returns the entity's unique identifier
func (e *BaseEntity) GetID() ID {
	return e.ID
}

// GetPosition returns the entity's position
func (e *BaseEntity) GetPosition() physics.Vector2D {
	return e.Position
}

// Update moves the entity along its velocity
func (e *BaseEntity) Update(deltaTime float64) {
	e.Position = e.Position.Add(e.Velocity.Scale(deltaTime))
}

// Render does nothing; concrete entities draw themselves
func (e *BaseEntity) Render(r Renderer) {}
