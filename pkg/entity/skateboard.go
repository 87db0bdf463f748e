// pkg/entity/skateboard.go
package entity

import (
	"math"
	"sync"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Board dimensions in world units
const (
	BoardHalfLength = 1.0
	BoardHalfWidth  = 0.15
)

// Skateboard is a rigid body that receives release impulses. A linear
// impulse changes velocity by impulse/Mass and its X component also spins
// the board about its long axis by impulse.X/Inertia.
type Skateboard struct {
	BaseEntity
	AngularVelocity float64
	Mass            float64
	Inertia         float64
	LinearDamping   float64
	AngularDamping  float64

	impulses uint64
	mu       sync.RWMutex
}

// Pose is a consistent snapshot of the board's kinematic state
type Pose struct {
	Position        physics.Vector2D `json:"position"`
	Velocity        physics.Vector2D `json:"velocity"`
	Angle           float64          `json:"angle"`
	AngularVelocity float64          `json:"angularVelocity"`
	Impulses        uint64           `json:"impulses"`
}

// NewSkateboard creates a board at rest
func NewSkateboard(id ID, position physics.Vector2D, mass, inertia float64) *Skateboard {
	return &Skateboard{
		BaseEntity: BaseEntity{
			ID:       id,
			Position: position,
			Active:   true,
		},
		Mass:    mass,
		Inertia: inertia,
	}
}

// SetDamping sets the exponential velocity decay rates, per second
func (s *Skateboard) SetDamping(linear, angular float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LinearDamping = linear
	s.AngularDamping = angular
}

// ApplyImpulse implements ImpulseReceiver. Non-finite impulses are ignored.
func (s *Skateboard) ApplyImpulse(impulse physics.Vector2D) {
	if !impulse.IsFinite() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Mass > 0 {
		s.Velocity = s.Velocity.Add(impulse.Scale(1 / s.Mass))
	}
	if s.Inertia > 0 {
		s.AngularVelocity += impulse.X / s.Inertia
	}
	s.impulses++
}

// Update integrates position and rotation, then applies damping
func (s *Skateboard) Update(deltaTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Position = s.Position.Add(s.Velocity.Scale(deltaTime))
	s.Rotation = normalizeAngle(s.Rotation + s.AngularVelocity*deltaTime)

	s.Velocity = s.Velocity.Scale(math.Exp(-s.LinearDamping * deltaTime))
	s.AngularVelocity *= math.Exp(-s.AngularDamping * deltaTime)
}

// GetPosition returns the board's position
func (s *Skateboard) GetPosition() physics.Vector2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Position
}

// Pose returns the current kinematic state
func (s *Skateboard) Pose() Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Pose{
		Position:        s.Position,
		Velocity:        s.Velocity,
		Angle:           s.Rotation,
		AngularVelocity: s.AngularVelocity,
		Impulses:        s.impulses,
	}
}

// Outline returns the closed rectangle of the board in world space
func (s *Skateboard) Outline() []physics.Vector2D {
	pose := s.Pose()
	axis := physics.FromAngle(pose.Angle, BoardHalfLength)
	side := axis.Perp().Normalize().Scale(BoardHalfWidth)

	c := pose.Position
	return []physics.Vector2D{
		c.Add(axis).Add(side),
		c.Sub(axis).Add(side),
		c.Sub(axis).Sub(side),
		c.Add(axis).Sub(side),
		c.Add(axis).Add(side),
	}
}

// Render draws the board outline
func (s *Skateboard) Render(r Renderer) {
	r.DrawPolyline(LayerBoard, s.Outline())
}

// normalizeAngle wraps an angle into (-pi, pi]
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
