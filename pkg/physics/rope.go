// pkg/physics/rope.go
package physics

// RopeSegment is a single verlet point-mass. Velocity is implicit:
// Current - Previous is the displacement over the last step.
type RopeSegment struct {
	Current  Vector2D
	Previous Vector2D
}

// Velocity returns the displacement carried into the next step
func (s RopeSegment) Velocity() Vector2D {
	return s.Current.Sub(s.Previous)
}

// Rope is an ordered chain of segments. Index 0 is pinned to an external
// anchor; the last index is the free end.
type Rope struct {
	segments      []RopeSegment
	segmentLength float64
}

// NewRope creates a rope hanging straight down from anchor
func NewRope(anchor Vector2D, segmentCount int, segmentLength float64) *Rope {
	r := &Rope{}
	r.Initialize(anchor, segmentCount, segmentLength)
	return r
}

// Initialize rebuilds the whole chain. Each segment is placed segmentLength
// below the previous one, at rest.
func (r *Rope) Initialize(anchor Vector2D, segmentCount int, segmentLength float64) {
	if segmentCount < 0 {
		segmentCount = 0
	}
	r.segmentLength = segmentLength
	r.segments = make([]RopeSegment, segmentCount)

	pos := anchor
	for i := range r.segments {
		r.segments[i] = RopeSegment{Current: pos, Previous: pos}
		pos.Y -= segmentLength
	}
}

// Len returns the number of segments
func (r *Rope) Len() int {
	return len(r.segments)
}

// SegmentLength returns the target separation between adjacent segments
func (r *Rope) SegmentLength() float64 {
	return r.segmentLength
}

// Segment returns a copy of segment i
func (r *Rope) Segment(i int) RopeSegment {
	return r.segments[i]
}

// Segments returns a copy of the segment chain
func (r *Rope) Segments() []RopeSegment {
	out := make([]RopeSegment, len(r.segments))
	copy(out, r.segments)
	return out
}

// Positions returns the current position of every segment, anchor first
func (r *Rope) Positions() []Vector2D {
	out := make([]Vector2D, len(r.segments))
	for i, s := range r.segments {
		out[i] = s.Current
	}
	return out
}

// Step advances the rope by one physics tick: verlet integration of every
// segment followed by iterations passes of distance-constraint relaxation.
func (r *Rope) Step(deltaTime float64, anchor, gravity Vector2D, iterations int) {
	r.Integrate(deltaTime, gravity)
	for i := 0; i < iterations; i++ {
		r.Constrain(anchor)
	}
}

// Integrate applies one verlet step to every segment. Segment 0 is
// integrated too; Constrain overwrites it with the anchor.
func (r *Rope) Integrate(deltaTime float64, gravity Vector2D) {
	accel := gravity.Scale(deltaTime)
	for i := range r.segments {
		seg := &r.segments[i]
		velocity := seg.Current.Sub(seg.Previous)
		seg.Previous = seg.Current
		seg.Current = seg.Current.Add(velocity).Add(accel)
	}
}

// Constrain runs one relaxation pass: pin segment 0 to anchor, then pull each
// adjacent pair toward the target separation.
func (r *Rope) Constrain(anchor Vector2D) {
	if len(r.segments) == 0 {
		return
	}
	r.segments[0].Current = anchor

	for i := 0; i < len(r.segments)-1; i++ {
		first := &r.segments[i]
		next := &r.segments[i+1]

		correction := pairCorrection(first.Current, next.Current, r.segmentLength)
		if i == 0 {
			// segment 0 is pinned, the neighbour takes the whole correction
			next.Current = next.Current.Add(correction)
			continue
		}
		half := correction.Scale(0.5)
		first.Current = first.Current.Sub(half)
		next.Current = next.Current.Add(half)
	}
}

// pairCorrection returns the displacement to add to b (and subtract from a)
// so that |a-b| moves to target. Coincident points yield no correction.
func pairCorrection(a, b Vector2D, target float64) Vector2D {
	dist := a.Distance(b)
	var dir Vector2D
	switch {
	case dist > target:
		dir = a.Sub(b).Normalize()
	case dist < target:
		dir = b.Sub(a).Normalize()
	default:
		return Vector2D{}
	}
	errAmount := dist - target
	if errAmount < 0 {
		errAmount = -errAmount
	}
	return dir.Scale(errAmount)
}

// PairError returns | |pos[i]-pos[i+1]| - segmentLength |
func (r *Rope) PairError(i int) float64 {
	d := r.segments[i].Current.Distance(r.segments[i+1].Current) - r.segmentLength
	if d < 0 {
		return -d
	}
	return d
}

// MaxStretchError returns the largest PairError over the chain
func (r *Rope) MaxStretchError() float64 {
	maxErr := 0.0
	for i := 0; i < len(r.segments)-1; i++ {
		if e := r.PairError(i); e > maxErr {
			maxErr = e
		}
	}
	return maxErr
}

// IsFinite reports whether every segment position is finite
func (r *Rope) IsFinite() bool {
	for _, s := range r.segments {
		if !s.Current.IsFinite() || !s.Previous.IsFinite() {
			return false
		}
	}
	return true
}
