// pkg/audio/player.go
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/logging"
)

// Player turns simulation events into cues. Until Initialize succeeds every
// cue is dropped, so a machine without audio runs silently.
type Player struct {
	reference float64
	logger    *logging.Logger

	// play hands a finished cue to the output
	play func(beep.Streamer)

	subscriptions []*event.Subscription
	initialized   bool
	mu            sync.Mutex
}

// NewPlayer creates a player. reference is the release force magnitude
// that plays at the top of the pitch range.
func NewPlayer(reference float64, logger *logging.Logger) *Player {
	if logger == nil {
		logger = logging.NewLogger().Component("audio")
	}
	return &Player{
		reference: reference,
		logger:    logger,
		play:      func(s beep.Streamer) { speaker.Play(s) },
	}
}

// Initialize opens the speaker
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return logging.WrapError(err, "speaker init")
	}
	p.initialized = true
	return nil
}

// Subscribe plays a twang for every release and a buzz for every failed
// delivery published on bus
func (p *Player) Subscribe(bus *event.Bus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscriptions = append(p.subscriptions,
		bus.Subscribe(event.ImpulseReleased, func(e event.Event) {
			if ie, ok := e.(*event.ImpulseEvent); ok {
				p.Release(ie.Impulse.Length())
			}
		}),
		bus.Subscribe(event.ReceiverFailed, func(event.Event) {
			p.Failure()
		}),
	)
}

// Release plays the twang for a release of the given force magnitude
func (p *Player) Release(magnitude float64) {
	s, err := NewTwang(magnitude, p.reference)
	if err != nil {
		p.logger.Warn(context.Background(), "release cue unavailable", "error", err.Error())
		return
	}
	p.emit(s)
}

// Failure plays the failed-delivery buzz
func (p *Player) Failure() {
	s, err := NewBuzz()
	if err != nil {
		p.logger.Warn(context.Background(), "failure cue unavailable", "error", err.Error())
		return
	}
	p.emit(s)
}

func (p *Player) emit(s beep.Streamer) {
	p.mu.Lock()
	ready := p.initialized
	play := p.play
	p.mu.Unlock()

	if ready {
		play(s)
	}
}

// Close cancels subscriptions and silences the speaker
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subscriptions {
		sub.Cancel()
	}
	p.subscriptions = nil

	if p.initialized {
		speaker.Clear()
		p.initialized = false
	}
}
