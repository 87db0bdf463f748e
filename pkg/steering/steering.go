// Package steering turns a press/drag/release gesture into a quadratic
// Bezier curve and a release force.
//
// A gesture captures up to three control points: the start (on press), an
// interior candidate (first qualifying move) and the end (second qualifying
// move, then overwritten by every later move). Once all three exist, each
// move recomputes the interior point from the start and end using the
// configured Policy.
package steering

import (
	"fmt"
	"iter"

	"github.com/opd-ai/go-slingrope/pkg/bezier"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// GestureState is the drag state machine
type GestureState int

const (
	Idle GestureState = iota
	Dragging
)

// String implements fmt.Stringer
func (s GestureState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("GestureState(%d)", int(s))
	}
}

// Policy selects how the interior control point follows the end point
type Policy string

const (
	// PolicyOffset places the interior point at the start/end midpoint,
	// shifted horizontally by ControlPointOffset away from the drag
	// direction: -X when the end is at or right of the start, +X otherwise.
	PolicyOffset Policy = "offset"
	// PolicyReflect mirrors the end point across the horizontal line
	// y = start.Y + ControlPointOffset.
	PolicyReflect Policy = "reflect"
	// PolicyMidpoint places the interior point at the start/end midpoint
	// raised by ControlPointOffset.
	PolicyMidpoint Policy = "midpoint"
	// PolicyCaptured keeps the interior candidate captured during the drag.
	PolicyCaptured Policy = "captured"
)

// ParsePolicy validates a policy name. The empty string selects PolicyOffset.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case "":
		return PolicyOffset, nil
	case PolicyOffset, PolicyReflect, PolicyMidpoint, PolicyCaptured:
		return p, nil
	default:
		return "", fmt.Errorf("unknown steering policy %q", name)
	}
}

// Interior computes the interior control point for a start/end pair.
// candidate is the currently stored interior point.
func (p Policy) Interior(start, end, candidate physics.Vector2D, offset float64) physics.Vector2D {
	switch p {
	case PolicyReflect:
		mirrorY := start.Y + offset
		return physics.Vector2D{X: end.X, Y: 2*mirrorY - end.Y}
	case PolicyMidpoint:
		return start.Midpoint(end).Add(physics.Vector2D{Y: offset})
	case PolicyCaptured:
		return candidate
	default:
		mid := start.Midpoint(end)
		if end.X >= start.X {
			mid.X -= offset
		} else {
			mid.X += offset
		}
		return mid
	}
}

// Options configures a Steering
type Options struct {
	MinDistance        float64
	CurveResolution    int
	ControlPointOffset float64
	ReleaseScale       float64
	Policy             Policy
}

// Steering owns the control points of the current gesture
type Steering struct {
	opts   Options
	state  GestureState
	points []physics.Vector2D

	releaseForce physics.Vector2D
}

// New creates an idle Steering
func New(opts Options) *Steering {
	if opts.Policy == "" {
		opts.Policy = PolicyOffset
	}
	return &Steering{
		opts:   opts,
		points: make([]physics.Vector2D, 0, 3),
	}
}

// Options returns the active options
func (s *Steering) Options() Options {
	return s.opts
}

// State returns the gesture state
func (s *Steering) State() GestureState {
	return s.state
}

// Begin starts a gesture at p
func (s *Steering) Begin(p physics.Vector2D) {
	s.points = s.points[:0]
	s.points = append(s.points, p)
	s.state = Dragging
}

// Move feeds a pointer position to an active gesture. It reports whether
// the control points changed; moves while idle or within MinDistance of the
// last recorded point are ignored.
func (s *Steering) Move(p physics.Vector2D) bool {
	if s.state != Dragging || len(s.points) == 0 {
		return false
	}
	last := s.points[len(s.points)-1]
	if p.Distance(last) <= s.opts.MinDistance {
		return false
	}

	switch len(s.points) {
	case 1, 2:
		s.points = append(s.points, p)
	default:
		s.points[2] = p
		s.points[1] = s.opts.Policy.Interior(s.points[0], s.points[2], s.points[1], s.opts.ControlPointOffset)
	}
	return true
}

// End finishes the gesture, clears the control points and returns the
// release force derived from the final points.
func (s *Steering) End() physics.Vector2D {
	if s.state != Dragging {
		return physics.Vector2D{}
	}
	s.releaseForce = s.computeRelease()
	s.points = s.points[:0]
	s.state = Idle
	return s.releaseForce
}

// Cancel abandons the gesture without producing a release force
func (s *Steering) Cancel() {
	s.points = s.points[:0]
	s.state = Idle
}

// computeRelease pulls from the end back toward the interior point (or the
// start when the curve never formed)
func (s *Steering) computeRelease() physics.Vector2D {
	switch len(s.points) {
	case 3:
		return s.points[1].Sub(s.points[2]).Scale(s.opts.ReleaseScale)
	case 2:
		return s.points[0].Sub(s.points[1]).Scale(s.opts.ReleaseScale)
	default:
		return physics.Vector2D{}
	}
}

// ReleaseForce returns the force produced by the most recent End
func (s *Steering) ReleaseForce() physics.Vector2D {
	return s.releaseForce
}

// ControlPoints returns a copy of the recorded control points
func (s *Steering) ControlPoints() []physics.Vector2D {
	out := make([]physics.Vector2D, len(s.points))
	copy(out, s.points)
	return out
}

// Curve returns the Bezier curve and true once three control points exist
func (s *Steering) Curve() (bezier.Quadratic, bool) {
	if len(s.points) != 3 {
		return bezier.Quadratic{}, false
	}
	return bezier.Quadratic{P0: s.points[0], P1: s.points[1], P2: s.points[2]}, true
}

// CurveSeq lazily yields CurveResolution+1 curve points, or nothing when
// the curve is not yet formed
func (s *Steering) CurveSeq() iter.Seq[physics.Vector2D] {
	q, ok := s.Curve()
	if !ok {
		return func(func(physics.Vector2D) bool) {}
	}
	return q.Points(s.opts.CurveResolution)
}

// CurvePoints returns the sampled curve, or nil when the curve is not formed
func (s *Steering) CurvePoints() []physics.Vector2D {
	q, ok := s.Curve()
	if !ok {
		return nil
	}
	return q.Sample(s.opts.CurveResolution)
}

// GuideLine returns the straight guide through the recorded control points.
// The last recorded point is always the latest accepted pointer position.
// Empty while idle.
func (s *Steering) GuideLine() []physics.Vector2D {
	if s.state != Dragging {
		return nil
	}
	return s.ControlPoints()
}
