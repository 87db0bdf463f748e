// Package input supplies pointer samples to the simulation. A Source is
// polled exactly once per frame so that press, move and release decisions in
// that frame all see the same sample.
package input

import (
	"sync"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Snapshot is one consistent pointer sample in world coordinates
type Snapshot struct {
	Position physics.Vector2D `json:"position"`
	Pressed  bool             `json:"pressed"`
}

// Source provides the pointer state for the current frame
type Source interface {
	Snapshot() Snapshot
}

// SourceFunc adapts a function to Source
type SourceFunc func() Snapshot

// Snapshot calls f()
func (f SourceFunc) Snapshot() Snapshot {
	return f()
}

// Pointer is a Source fed by an event-driven front-end (terminal mouse
// events, window callbacks). Writers call Set; the simulation reads the
// latest value once per frame.
type Pointer struct {
	current Snapshot
	mu      sync.RWMutex
}

// NewPointer creates a released pointer at the origin
func NewPointer() *Pointer {
	return &Pointer{}
}

// Set records the latest pointer state
func (p *Pointer) Set(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = s
}

// MoveTo updates the position and keeps the button state
func (p *Pointer) MoveTo(pos physics.Vector2D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.Position = pos
}

// Snapshot implements Source
func (p *Pointer) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}
