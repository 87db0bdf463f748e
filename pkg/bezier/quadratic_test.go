package bezier

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

func TestQuadratic_EvalEndpointsExact(t *testing.T) {
	curves := []Quadratic{
		{P0: physics.Vector2D{X: 0, Y: 0}, P1: physics.Vector2D{X: 2, Y: 0}, P2: physics.Vector2D{X: 4, Y: 1}},
		{P0: physics.Vector2D{X: 0.1, Y: -0.7}, P1: physics.Vector2D{X: 1e9, Y: -3}, P2: physics.Vector2D{X: 0.3, Y: 0.3}},
		{P0: physics.Vector2D{X: -5, Y: 5}, P1: physics.Vector2D{X: -5, Y: 5}, P2: physics.Vector2D{X: -5, Y: 5}},
		{P0: physics.Vector2D{X: 1.0 / 3.0, Y: 2.0 / 3.0}, P1: physics.Vector2D{}, P2: physics.Vector2D{X: math.Pi, Y: math.E}},
	}

	for i, q := range curves {
		if got := q.Eval(0); got != q.P0 {
			t.Errorf("curve %d: Eval(0) = %v, expected %v", i, got, q.P0)
		}
		if got := q.Eval(1); got != q.P2 {
			t.Errorf("curve %d: Eval(1) = %v, expected %v", i, got, q.P2)
		}
	}
}

func TestQuadratic_EvalMidpoint(t *testing.T) {
	q := Quadratic{
		P0: physics.Vector2D{X: 0, Y: 0},
		P1: physics.Vector2D{X: 1, Y: 2},
		P2: physics.Vector2D{X: 2, Y: 0},
	}
	// 0.25*P0 + 0.5*P1 + 0.25*P2
	if got := q.Eval(0.5); got != (physics.Vector2D{X: 1, Y: 1}) {
		t.Errorf("Eval(0.5) = %v, expected (1, 1)", got)
	}
}

func TestQuadratic_Derivative(t *testing.T) {
	q := Quadratic{
		P0: physics.Vector2D{X: 0, Y: 0},
		P1: physics.Vector2D{X: 1, Y: 2},
		P2: physics.Vector2D{X: 2, Y: 0},
	}
	if got := q.Derivative(0); got != (physics.Vector2D{X: 2, Y: 4}) {
		t.Errorf("Derivative(0) = %v, expected (2, 4)", got)
	}
	if got := q.Derivative(1); got != (physics.Vector2D{X: 2, Y: -4}) {
		t.Errorf("Derivative(1) = %v, expected (2, -4)", got)
	}
}

func TestQuadratic_Sample(t *testing.T) {
	q := Quadratic{
		P0: physics.Vector2D{X: 0, Y: 0},
		P1: physics.Vector2D{X: 2, Y: 0},
		P2: physics.Vector2D{X: 4, Y: 0},
	}

	tests := []struct {
		name       string
		resolution int
		expected   []physics.Vector2D
	}{
		{"zero_resolution", 0, nil},
		{"negative_resolution", -3, nil},
		{"single_span", 1, []physics.Vector2D{{X: 0}, {X: 4}}},
		{"four_spans", 4, []physics.Vector2D{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := q.Sample(tt.resolution)
			if diff := cmp.Diff(tt.expected, got, cmpopts.EquateApprox(0, 1e-12), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Sample(%d) mismatch (-want +got):\n%s", tt.resolution, diff)
			}
		})
	}
}

func TestQuadratic_PointsIsRestartable(t *testing.T) {
	q := Quadratic{
		P0: physics.Vector2D{X: 0, Y: 0},
		P1: physics.Vector2D{X: 1, Y: 3},
		P2: physics.Vector2D{X: 5, Y: 1},
	}
	seq := q.Points(50)

	var first, second []physics.Vector2D
	for p := range seq {
		first = append(first, p)
	}
	for p := range seq {
		second = append(second, p)
	}

	if len(first) != 51 {
		t.Fatalf("expected 51 points, got %d", len(first))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second iteration differs (-first +second):\n%s", diff)
	}
	if first[50] != q.P2 {
		t.Errorf("last sample = %v, expected exactly %v", first[50], q.P2)
	}
}

func TestQuadratic_PointsStopsEarly(t *testing.T) {
	q := Quadratic{P2: physics.Vector2D{X: 1}}
	count := 0
	for range q.Points(100) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected early break after 3 points, got %d", count)
	}
}
