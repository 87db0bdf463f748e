// pkg/engine/simulation.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/input"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/physics"
	"github.com/opd-ai/go-slingrope/pkg/steering"
)

// ErrNotRunning is returned by operations that need a started simulation
var ErrNotRunning = errors.New("simulation not running")

// ImpulseSender is a receiver whose delivery can fail, such as a remote
// board. The simulation prefers it over ApplyImpulse when available.
type ImpulseSender interface {
	SendImpulse(ctx context.Context, impulse physics.Vector2D) error
}

// Body is a receiver the simulation also integrates and draws
type Body interface {
	Update(deltaTime float64)
	Render(r entity.Renderer)
}

type poser interface {
	Pose() entity.Pose
}

// Option configures a Simulation
type Option func(*Simulation)

// WithLogger sets the simulation logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// Simulation owns one rope, one gesture steering and one impulse receiver.
// Each Frame reads a single input snapshot, feeds the gesture edges to the
// steering and advances the rope on a fixed physics step.
type Simulation struct {
	cfg      *config.Config
	rope     *physics.Rope
	steering *steering.Steering
	source   input.Source
	receiver entity.ImpulseReceiver
	bus      *event.Bus
	logger   *logging.Logger

	mu          sync.RWMutex
	running     bool
	initialized bool
	pressed     bool
	accumulator float64
	tick        uint64
	releases    uint64
	dropped     uint64
	anchor      physics.Vector2D
	lastUpdate  time.Time
}

// State is a copy of everything a front-end needs to draw one frame
type State struct {
	Running      bool                  `json:"running"`
	Tick         uint64                `json:"tick"`
	Gesture      steering.GestureState `json:"gesture"`
	Pointer      input.Snapshot        `json:"pointer"`
	Rope         []physics.Vector2D    `json:"rope"`
	Guide        []physics.Vector2D    `json:"guide,omitempty"`
	Curve        []physics.Vector2D    `json:"curve,omitempty"`
	ReleaseForce physics.Vector2D      `json:"releaseForce"`
	Releases     uint64                `json:"releases"`
	Board        *entity.Pose          `json:"board,omitempty"`
}

// NewSimulation creates a stopped simulation. source must not be nil;
// receiver and bus may be.
func NewSimulation(cfg *config.Config, source input.Source, receiver entity.ImpulseReceiver, bus *event.Bus, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if source == nil {
		return nil, errors.New("simulation requires an input source")
	}
	policy, err := steering.ParsePolicy(cfg.Steering.Policy)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		bus = event.NewEventBus()
	}

	s := &Simulation{
		cfg:      cfg,
		rope:     physics.NewRope(physics.Vector2D{}, cfg.Rope.SegmentCount, cfg.Rope.SegmentLength),
		source:   source,
		receiver: receiver,
		bus:      bus,
		logger:   logging.NewLogger(),
		steering: steering.New(steering.Options{
			MinDistance:        cfg.Steering.MinDistance,
			CurveResolution:    cfg.Steering.CurveResolution,
			ControlPointOffset: cfg.Steering.ControlPointOffset,
			ReleaseScale:       cfg.Steering.ReleaseScale,
			Policy:             policy,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Component("simulation")

	return s, nil
}

// EventBus returns the bus the simulation publishes on
func (s *Simulation) EventBus() *event.Bus {
	return s.bus
}

// Start begins accepting frames. The rope is rebuilt at the first frame's
// pointer position.
func (s *Simulation) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.initialized = false
	s.pressed = false
	s.accumulator = 0
	s.lastUpdate = time.Now()
	s.mu.Unlock()

	s.logger.Info(context.Background(), "simulation started",
		"segment_count", s.cfg.Rope.SegmentCount,
		"tick_rate", s.cfg.Simulation.TickRate,
		"policy", s.cfg.Steering.Policy,
	)
	s.bus.Publish(&event.BaseEvent{EventType: event.SimulationStarted, Source: s})
}

// Stop halts the simulation. An active gesture is abandoned without a release.
func (s *Simulation) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.steering.Cancel()
	tick := s.tick
	s.mu.Unlock()

	s.logger.Info(context.Background(), "simulation stopped", "tick", tick)
	s.bus.Publish(&event.BaseEvent{EventType: event.SimulationStopped, Source: s})
}

// Running reports whether the simulation accepts frames
func (s *Simulation) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Update runs one frame using the wall-clock time since the previous call,
// capped at 0.1s
func (s *Simulation) Update() (int, error) {
	return s.Frame(s.calculateDeltaTime())
}

func (s *Simulation) calculateDeltaTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	deltaTime := now.Sub(s.lastUpdate).Seconds()
	s.lastUpdate = now

	if deltaTime > 0.1 {
		deltaTime = 0.1
	}
	return deltaTime
}

// releasedImpulse is a release waiting to be delivered outside the lock
type releasedImpulse struct {
	force physics.Vector2D
	seq   uint64
}

// Frame advances the simulation by frameDelta seconds. It takes exactly one
// input snapshot, translates press/hold/release edges into gesture calls and
// runs as many fixed physics ticks as the accumulated time allows, capped at
// MaxTicksPerFrame. It returns the number of ticks run.
func (s *Simulation) Frame(frameDelta float64) (int, error) {
	var (
		events  []event.Event
		release *releasedImpulse
	)

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return 0, ErrNotRunning
	}

	snap := s.source.Snapshot()
	if !snap.Position.IsFinite() {
		// keep the rope finite; treat the sample as a stationary pointer
		snap.Position = s.anchor
	}
	s.anchor = snap.Position

	if !s.initialized {
		s.rope.Initialize(snap.Position, s.cfg.Rope.SegmentCount, s.cfg.Rope.SegmentLength)
		s.initialized = true
		events = append(events, event.NewRopeEvent(s, snap.Position, s.cfg.Rope.SegmentCount, s.cfg.Rope.SegmentLength))
	}

	events, release = s.handleGesture(snap, events)
	ticks := s.advance(frameDelta, snap.Position)
	s.mu.Unlock()

	for _, e := range events {
		s.bus.Publish(e)
	}
	if release != nil {
		s.deliver(*release)
	}
	return ticks, nil
}

// handleGesture must be called with s.mu held
func (s *Simulation) handleGesture(snap input.Snapshot, events []event.Event) ([]event.Event, *releasedImpulse) {
	var release *releasedImpulse

	switch {
	case snap.Pressed && !s.pressed:
		s.steering.Begin(snap.Position)
		events = append(events, event.NewGestureEvent(event.GestureBegan, s, snap.Position, s.tick))
	case snap.Pressed && s.pressed:
		s.steering.Move(snap.Position)
	case !snap.Pressed && s.pressed:
		force := s.steering.End()
		s.releases++
		events = append(events,
			event.NewGestureEvent(event.GestureEnded, s, snap.Position, s.tick),
			event.NewImpulseEvent(event.ImpulseReleased, s, force, s.releases),
		)
		if force != (physics.Vector2D{}) {
			release = &releasedImpulse{force: force, seq: s.releases}
		}
	}
	s.pressed = snap.Pressed

	return events, release
}

// advance must be called with s.mu held
func (s *Simulation) advance(frameDelta float64, anchor physics.Vector2D) int {
	if frameDelta > 0 && !math.IsInf(frameDelta, 0) {
		s.accumulator += frameDelta
	}

	step := s.cfg.TimeStep()
	body, _ := s.receiver.(Body)

	ticks := 0
	for s.accumulator >= step && ticks < s.cfg.Simulation.MaxTicksPerFrame {
		s.rope.Step(step, anchor, s.cfg.Rope.Gravity, s.cfg.Rope.ConstraintIterations)
		if body != nil {
			body.Update(step)
		}
		s.accumulator -= step
		s.tick++
		ticks++
	}

	if s.accumulator >= step {
		// spiral-of-death guard: drop the backlog instead of catching up
		s.dropped += uint64(s.accumulator / step)
		s.accumulator = math.Mod(s.accumulator, step)
	}
	return ticks
}

// deliver forwards a release to the receiver. Failures are logged and
// published, never returned.
func (s *Simulation) deliver(r releasedImpulse) {
	if s.receiver == nil {
		return
	}

	sender, ok := s.receiver.(ImpulseSender)
	if !ok {
		s.receiver.ApplyImpulse(r.force)
		s.logger.Debug(context.Background(), "impulse applied", "seq", r.seq, "x", r.force.X, "y", r.force.Y)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Network.WriteTimeout.Std())
	defer cancel()
	ctx = logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())

	if err := sender.SendImpulse(ctx, r.force); err != nil {
		s.logger.Error(ctx, "impulse delivery failed", err, "seq", r.seq)
		s.bus.Publish(event.NewErrorEvent(event.ReceiverFailed, s, err))
		return
	}
	s.logger.Debug(ctx, "impulse sent", "seq", r.seq, "x", r.force.X, "y", r.force.Y)
}

// Render draws the current frame: rope, guide line, curve, then the body
// when the receiver draws itself
func (s *Simulation) Render(r entity.Renderer) {
	s.mu.RLock()
	rope := s.rope.Positions()
	guide := s.steering.GuideLine()
	curve := s.steering.CurvePoints()
	s.mu.RUnlock()

	r.Clear()
	r.DrawPolyline(entity.LayerRope, rope)
	if len(guide) >= 2 {
		r.DrawPolyline(entity.LayerGuide, guide)
	}
	if len(curve) > 0 {
		r.DrawPolyline(entity.LayerCurve, curve)
	}
	if body, ok := s.receiver.(Body); ok {
		body.Render(r)
	}
	r.Present()
}

// State returns a copy of the simulation state
func (s *Simulation) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Running:      s.running,
		Tick:         s.tick,
		Gesture:      s.steering.State(),
		Rope:         s.rope.Positions(),
		Guide:        s.steering.GuideLine(),
		Curve:        s.steering.CurvePoints(),
		ReleaseForce: s.steering.ReleaseForce(),
		Releases:     s.releases,
	}
	state.Pointer = input.Snapshot{Position: s.anchor, Pressed: s.pressed}
	if p, ok := s.receiver.(poser); ok {
		pose := p.Pose()
		state.Board = &pose
	}
	return state
}

// MaxStretchError reports the rope's largest segment length error
func (s *Simulation) MaxStretchError() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rope.MaxStretchError()
}

// RopeFinite reports whether every rope position is finite
func (s *Simulation) RopeFinite() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rope.IsFinite()
}

// DroppedTicks returns how many physics ticks were skipped by the
// per-frame cap
func (s *Simulation) DroppedTicks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}
