// Package audio plays short synthesized cues for sling releases
package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// SampleRate is the rate every cue is synthesized at
const SampleRate = beep.SampleRate(44100)

// Pitch range of the release twang, in Hz
const (
	MinPitch = 220.0
	MaxPitch = 880.0
)

const (
	twangDuration = 250 * time.Millisecond
	buzzDuration  = 150 * time.Millisecond
	buzzPitch     = 110.0
)

// ForceToPitch maps a release force magnitude onto [MinPitch, MaxPitch].
// reference is the magnitude that reaches MaxPitch; larger forces clamp.
// The mapping is logarithmic so equal force ratios sound like equal
// intervals.
func ForceToPitch(magnitude, reference float64) float64 {
	if reference <= 0 || !(magnitude > 0) {
		return MinPitch
	}
	t := magnitude / reference
	if t > 1 || math.IsInf(t, 1) {
		t = 1
	}
	return MinPitch * math.Pow(MaxPitch/MinPitch, t)
}

// ForceToVolume maps a release force onto a gain in (0, 1]
func ForceToVolume(magnitude, reference float64) float64 {
	if reference <= 0 || !(magnitude > 0) {
		return 0.25
	}
	t := math.Min(magnitude/reference, 1)
	return 0.25 + 0.75*t
}

// decay fades a stream linearly to silence over total samples
type decay struct {
	streamer beep.Streamer
	position int
	total    int
}

// NewDecay shapes s with a linear fade lasting duration
func NewDecay(s beep.Streamer, duration time.Duration, rate beep.SampleRate) beep.Streamer {
	return &decay{streamer: s, total: rate.N(duration)}
}

func (d *decay) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = d.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		if d.position >= d.total {
			return i, false
		}
		vol := float64(d.total-d.position) / float64(d.total)
		samples[i][0] *= vol
		samples[i][1] *= vol
		d.position++
	}
	return n, ok
}

func (d *decay) Err() error { return d.streamer.Err() }

// newVolume wraps s in a linear gain. Zero or less is silent.
func newVolume(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain)}
}

// tone returns a decaying sine of freq lasting duration
func tone(freq float64, duration time.Duration, gain float64) (beep.Streamer, error) {
	sine, err := generators.SineTone(SampleRate, freq)
	if err != nil {
		return nil, fmt.Errorf("sine tone %.1fHz: %w", freq, err)
	}
	shaped := NewDecay(beep.Take(SampleRate.N(duration), sine), duration, SampleRate)
	return newVolume(shaped, gain), nil
}

// NewTwang synthesizes the release cue for a force magnitude. The cue is a
// fundamental plus a quieter octave, both decaying.
func NewTwang(magnitude, reference float64) (beep.Streamer, error) {
	pitch := ForceToPitch(magnitude, reference)
	gain := ForceToVolume(magnitude, reference)

	fundamental, err := tone(pitch, twangDuration, 0.7)
	if err != nil {
		return nil, err
	}
	octave, err := tone(pitch*2, twangDuration/2, 0.3)
	if err != nil {
		return nil, err
	}
	return newVolume(beep.Mix(fundamental, octave), gain), nil
}

// NewBuzz synthesizes the cue for a failed delivery
func NewBuzz() (beep.Streamer, error) {
	return tone(buzzPitch, buzzDuration, 0.5)
}
