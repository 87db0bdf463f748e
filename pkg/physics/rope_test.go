// pkg/physics/rope_test.go
package physics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNewRope_HangsStraightDownAtRest(t *testing.T) {
	anchor := Vector2D{X: 2, Y: 5}
	rope := NewRope(anchor, 4, 0.25)

	if rope.Len() != 4 {
		t.Fatalf("Len() = %d, expected 4", rope.Len())
	}
	if rope.SegmentLength() != 0.25 {
		t.Errorf("SegmentLength() = %v, expected 0.25", rope.SegmentLength())
	}

	expected := []Vector2D{
		{X: 2, Y: 5},
		{X: 2, Y: 4.75},
		{X: 2, Y: 4.5},
		{X: 2, Y: 4.25},
	}
	if diff := cmp.Diff(expected, rope.Positions(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Positions() mismatch (-want +got):\n%s", diff)
	}

	for i, seg := range rope.Segments() {
		if seg.Velocity() != (Vector2D{}) {
			t.Errorf("segment %d has velocity %v, expected zero", i, seg.Velocity())
		}
	}
}

func TestRope_InitializeRebuildsChain(t *testing.T) {
	rope := NewRope(Vector2D{}, 10, 1)
	rope.Step(0.02, Vector2D{X: 3}, Vector2D{Y: -1}, 5)

	rope.Initialize(Vector2D{X: 1, Y: 1}, 2, 0.5)
	if rope.Len() != 2 {
		t.Fatalf("Len() after re-initialize = %d, expected 2", rope.Len())
	}
	if got := rope.Segment(1); got.Current != (Vector2D{X: 1, Y: 0.5}) || got.Previous != got.Current {
		t.Errorf("Segment(1) = %+v, expected at rest at (1, 0.5)", got)
	}
}

func TestRope_Step_PinsAnchorExactly(t *testing.T) {
	anchors := []Vector2D{
		{X: 0, Y: 0},
		{X: -3.75, Y: 12.125},
		{X: 1e6, Y: -1e6},
		{X: 0.1, Y: 0.2},
	}

	rope := NewRope(Vector2D{}, 8, 0.25)
	for _, anchor := range anchors {
		rope.Step(1.0/60.0, anchor, Vector2D{Y: -9.8}, 10)
		if got := rope.Segment(0).Current; got != anchor {
			t.Errorf("segment 0 = %v after Step, expected anchor %v", got, anchor)
		}
	}
}

func TestRope_Step_ThreeSegmentScenario(t *testing.T) {
	rope := NewRope(Vector2D{}, 3, 1)
	rope.Step(0.02, Vector2D{}, Vector2D{Y: -1}, 50)

	expected := []Vector2D{
		{X: 0, Y: 0},
		{X: 0, Y: -1},
		{X: 0, Y: -2},
	}
	if diff := cmp.Diff(expected, rope.Positions(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("Positions() mismatch (-want +got):\n%s", diff)
	}
}

func TestRope_Constrain_ErrorNonIncreasing(t *testing.T) {
	rope := NewRope(Vector2D{}, 3, 1)
	// stretched collinear chain, at rest
	rope.segments[1] = RopeSegment{Current: Vector2D{Y: -1.5}, Previous: Vector2D{Y: -1.5}}
	rope.segments[2] = RopeSegment{Current: Vector2D{Y: -3}, Previous: Vector2D{Y: -3}}

	prev := rope.PairError(0)
	for iter := 0; iter < 50; iter++ {
		rope.Constrain(Vector2D{})
		cur := rope.PairError(0)
		if cur > prev {
			t.Fatalf("iteration %d: pair error grew from %v to %v", iter, prev, cur)
		}
		prev = cur
	}
	if rope.MaxStretchError() > 1e-9 {
		t.Errorf("MaxStretchError() = %v after 50 passes, expected convergence", rope.MaxStretchError())
	}
}

func TestRope_ZeroGravityReachesRestLength(t *testing.T) {
	rope := NewRope(Vector2D{}, 4, 1)
	perturbed := []Vector2D{
		{X: 0, Y: 0},
		{X: 0.3, Y: -1.4},
		{X: 1.0, Y: -2.5},
		{X: 1.2, Y: -3.9},
	}
	for i, p := range perturbed {
		rope.segments[i] = RopeSegment{Current: p, Previous: p}
	}

	for step := 0; step < 20; step++ {
		rope.Step(0.02, Vector2D{}, Vector2D{}, 100)
		if e := rope.MaxStretchError(); e > 1e-4 {
			t.Fatalf("step %d: MaxStretchError() = %v, expected <= 1e-4", step, e)
		}
	}
}

func TestRope_CoincidentSegmentsStayFinite(t *testing.T) {
	rope := NewRope(Vector2D{}, 5, 0.5)
	for i := range rope.segments {
		rope.segments[i] = RopeSegment{}
	}

	rope.Constrain(Vector2D{})
	if !rope.IsFinite() {
		t.Fatal("rope produced non-finite positions for coincident segments")
	}
	// no direction to push along, so nothing moves
	for i, p := range rope.Positions() {
		if p != (Vector2D{}) {
			t.Errorf("segment %d moved to %v, expected origin", i, p)
		}
	}
}

func TestRope_HangsBelowMovingAnchor(t *testing.T) {
	rope := NewRope(Vector2D{}, 10, 0.25)
	anchor := Vector2D{}
	for i := 0; i < 200; i++ {
		anchor.X = math.Sin(float64(i) * 0.05)
		rope.Step(0.02, anchor, Vector2D{Y: -1}, 50)
	}

	if !rope.IsFinite() {
		t.Fatal("rope became non-finite")
	}
	free := rope.Segment(rope.Len() - 1).Current
	if free.Y >= anchor.Y {
		t.Errorf("free end Y = %v, expected below anchor Y = %v", free.Y, anchor.Y)
	}
	if e := rope.MaxStretchError(); e > 0.05 {
		t.Errorf("MaxStretchError() = %v, expected a nearly inextensible rope", e)
	}
}

func TestRope_EmptyRopeIsNoOp(t *testing.T) {
	rope := NewRope(Vector2D{}, 0, 1)
	rope.Step(0.02, Vector2D{X: 1}, Vector2D{Y: -1}, 10)
	if rope.Len() != 0 || len(rope.Positions()) != 0 {
		t.Errorf("empty rope grew to %d segments", rope.Len())
	}
	if rope.MaxStretchError() != 0 {
		t.Errorf("MaxStretchError() = %v on empty rope", rope.MaxStretchError())
	}
}
