// Package bezier evaluates quadratic Bezier curves over physics.Vector2D.
package bezier

import (
	"iter"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Quadratic is a curve from P0 to P2 pulled toward the interior control point P1
type Quadratic struct {
	P0 physics.Vector2D
	P1 physics.Vector2D
	P2 physics.Vector2D
}

// Eval returns B(t) = (1-t)^2*P0 + 2(1-t)t*P1 + t^2*P2.
// Eval(0) is exactly P0 and Eval(1) is exactly P2.
func (q Quadratic) Eval(t float64) physics.Vector2D {
	mt := 1 - t
	a := mt * mt
	b := 2 * mt * t
	c := t * t
	return physics.Vector2D{
		X: a*q.P0.X + b*q.P1.X + c*q.P2.X,
		Y: a*q.P0.Y + b*q.P1.Y + c*q.P2.Y,
	}
}

// Derivative returns dB/dt at t
func (q Quadratic) Derivative(t float64) physics.Vector2D {
	d0 := q.P1.Sub(q.P0).Scale(2 * (1 - t))
	d1 := q.P2.Sub(q.P1).Scale(2 * t)
	return d0.Add(d1)
}

// Points yields resolution+1 samples at t = i/resolution. The sequence is
// recomputed on every iteration, and is empty when resolution < 1.
func (q Quadratic) Points(resolution int) iter.Seq[physics.Vector2D] {
	return func(yield func(physics.Vector2D) bool) {
		if resolution < 1 {
			return
		}
		for i := 0; i <= resolution; i++ {
			var t float64
			if i == resolution {
				t = 1
			} else {
				t = float64(i) / float64(resolution)
			}
			if !yield(q.Eval(t)) {
				return
			}
		}
	}
}

// Sample collects Points into a slice
func (q Quadratic) Sample(resolution int) []physics.Vector2D {
	if resolution < 1 {
		return nil
	}
	out := make([]physics.Vector2D, 0, resolution+1)
	for p := range q.Points(resolution) {
		out = append(out, p)
	}
	return out
}
