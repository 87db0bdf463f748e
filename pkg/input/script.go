package input

import (
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Script replays a fixed list of snapshots, one per frame. After the last
// entry it keeps returning the final snapshot.
type Script struct {
	frames []Snapshot
	next   int
}

// NewScript creates a script from snapshots
func NewScript(frames ...Snapshot) *Script {
	return &Script{frames: frames}
}

// Snapshot implements Source
func (s *Script) Snapshot() Snapshot {
	if len(s.frames) == 0 {
		return Snapshot{}
	}
	if s.next >= len(s.frames) {
		return s.frames[len(s.frames)-1]
	}
	snap := s.frames[s.next]
	s.next++
	return snap
}

// Done reports whether every scripted frame has been consumed
func (s *Script) Done() bool {
	return s.next >= len(s.frames)
}

// Remaining returns how many scripted frames are left
func (s *Script) Remaining() int {
	return len(s.frames) - s.next
}

// Drag builds a press at the first waypoint, held moves through the rest
// (interpolated into steps frames per leg), then a release at the last
// waypoint.
func Drag(steps int, waypoints ...physics.Vector2D) []Snapshot {
	if len(waypoints) == 0 {
		return nil
	}
	if steps < 1 {
		steps = 1
	}

	frames := []Snapshot{{Position: waypoints[0], Pressed: true}}
	for i := 1; i < len(waypoints); i++ {
		from, to := waypoints[i-1], waypoints[i]
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			frames = append(frames, Snapshot{Position: from.Lerp(to, t), Pressed: true})
		}
	}
	last := waypoints[len(waypoints)-1]
	return append(frames, Snapshot{Position: last, Pressed: false})
}
