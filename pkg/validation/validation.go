// Package validation checks data arriving at the impulse daemon: frame
// payloads, client names, impulses and sequence numbers.
package validation

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Payload and name limits
const (
	MaxMessageSize           = 4 * 1024
	MaxClientNameLen         = 32
	DefaultMaxMessagesPerMin = 600
)

// Allow alphanumeric, spaces, hyphens, underscores, dots and parentheses
var validClientNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.()]+$`)

// MessageValidator checks raw payloads and applies per-client rate limiting
type MessageValidator struct {
	rateLimiter *RateLimiter
	maxPerMin   int
}

// NewMessageValidator creates a validator allowing maxPerMin messages per
// client per minute. Non-positive values use DefaultMaxMessagesPerMin.
func NewMessageValidator(maxPerMin int) *MessageValidator {
	if maxPerMin <= 0 {
		maxPerMin = DefaultMaxMessagesPerMin
	}
	return &MessageValidator{
		rateLimiter: NewRateLimiter(maxPerMin, time.Minute),
		maxPerMin:   maxPerMin,
	}
}

// Close releases resources used by the message validator
func (v *MessageValidator) Close() {
	if v.rateLimiter != nil {
		v.rateLimiter.Close()
	}
}

// Forget drops the rate limiting state of a disconnected client
func (v *MessageValidator) Forget(clientID string) {
	v.rateLimiter.Remove(clientID)
}

// ValidateMessage validates a raw payload against size, format and rate
// constraints
func (v *MessageValidator) ValidateMessage(data []byte, clientID string) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}

	if !v.rateLimiter.Allow(clientID) {
		return fmt.Errorf("rate limit exceeded: max %d messages per minute", v.maxPerMin)
	}

	return nil
}

// ValidateClientName validates and sanitizes a client name
func ValidateClientName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("client name cannot be empty")
	}

	if len(name) > MaxClientNameLen {
		return "", fmt.Errorf("client name too long: %d characters (max %d)", len(name), MaxClientNameLen)
	}

	if !utf8.ValidString(name) {
		return "", fmt.Errorf("client name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("client name cannot be only whitespace")
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("client name contains control characters")
		}
	}

	if !validClientNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("client name contains invalid characters (only alphanumeric, spaces, hyphens, underscores, dots and parentheses allowed)")
	}

	return html.EscapeString(trimmed), nil
}

// ValidateImpulse rejects non-finite impulses and, when maxMagnitude is
// positive, impulses longer than maxMagnitude
func ValidateImpulse(v physics.Vector2D, maxMagnitude float64) error {
	if !v.IsFinite() {
		return fmt.Errorf("impulse is not finite: (%v, %v)", v.X, v.Y)
	}
	if maxMagnitude > 0 && v.Length() > maxMagnitude {
		return fmt.Errorf("impulse too large: %.3f (max %.3f)", v.Length(), maxMagnitude)
	}
	return nil
}

// ValidateSequence requires sequence numbers to increase per connection
func ValidateSequence(seq, last uint64) error {
	if seq <= last {
		return fmt.Errorf("stale sequence number %d (last %d)", seq, last)
	}
	return nil
}

// ValidateToken compares a presented token with the expected one in
// constant time. An empty expected token accepts anything.
func ValidateToken(presented, expected string) error {
	if expected == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return fmt.Errorf("invalid auth token")
	}
	return nil
}
