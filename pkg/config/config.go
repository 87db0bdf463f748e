// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// ErrInvalidConfig wraps every configuration rejected by a consumer
var ErrInvalidConfig = errors.New("invalid configuration")

// Config contains every tunable of the rope/slingshot simulation
type Config struct {
	Rope       RopeConfig       `json:"rope"`
	Steering   SteeringConfig   `json:"steering"`
	Skateboard SkateboardConfig `json:"skateboard"`
	Simulation SimulationConfig `json:"simulation"`
	Network    NetworkConfig    `json:"network"`
	Display    DisplayConfig    `json:"display"`
}

// RopeConfig configures the verlet rope
type RopeConfig struct {
	SegmentCount         int              `json:"segmentCount"`
	SegmentLength        float64          `json:"segmentLength"`
	Gravity              physics.Vector2D `json:"gravity"`
	ConstraintIterations int              `json:"constraintIterations"`
	LineWidth            float64          `json:"lineWidth"`
}

// SteeringConfig configures the Bezier gesture steering
type SteeringConfig struct {
	MinDistance        float64 `json:"minDistance"`
	CurveResolution    int     `json:"curveResolution"`
	ControlPointOffset float64 `json:"controlPointOffset"`
	ReleaseScale       float64 `json:"releaseScale"`
	Policy             string  `json:"policy"`
}

// SkateboardConfig configures the impulse-receiving rigid body
type SkateboardConfig struct {
	Mass           float64          `json:"mass"`
	Inertia        float64          `json:"inertia"`
	LinearDamping  float64          `json:"linearDamping"`
	AngularDamping float64          `json:"angularDamping"`
	Position       physics.Vector2D `json:"position"`
}

// SimulationConfig configures the fixed-step loop
type SimulationConfig struct {
	TickRate         int `json:"tickRate"`         // physics ticks per second
	MaxTicksPerFrame int `json:"maxTicksPerFrame"` // cap on catch-up ticks after a slow frame
}

// NetworkConfig configures the remote impulse receiver (boardd) and the
// client that talks to it
type NetworkConfig struct {
	ServerAddress     string   `json:"serverAddress"`
	MaxClients        int      `json:"maxClients"`
	UpdateRate        int      `json:"updateRate"` // board integration ticks per second
	ReadTimeout       Duration `json:"readTimeout"`
	WriteTimeout      Duration `json:"writeTimeout"`
	AuthToken         string   `json:"authToken,omitempty"`
	MaxImpulse        float64  `json:"maxImpulse"`
	MaxMessagesPerMin int      `json:"maxMessagesPerMin"`
	HealthPort        int      `json:"healthPort"`

	CircuitBreakerMaxRequests         int      `json:"circuitBreakerMaxRequests"`
	CircuitBreakerInterval            Duration `json:"circuitBreakerInterval"`
	CircuitBreakerTimeout             Duration `json:"circuitBreakerTimeout"`
	CircuitBreakerMaxConsecutiveFails int      `json:"circuitBreakerMaxConsecutiveFails"`
}

// DisplayConfig configures the front-ends
type DisplayConfig struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	PixelsPerUnit float64 `json:"pixelsPerUnit"` // engo window scale
	CellsPerUnit  float64 `json:"cellsPerUnit"`  // terminal scale, horizontal cells per world unit
	Sound         bool    `json:"sound"`         // play a release cue
}

// Duration is a time.Duration that reads and writes JSON as "1.5s"
type Duration time.Duration

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler. Bare numbers are nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TimeStep returns the fixed physics step in seconds
func (c *Config) TimeStep() float64 {
	if c.Simulation.TickRate <= 0 {
		return 1.0 / 50.0
	}
	return 1.0 / float64(c.Simulation.TickRate)
}

// LoadConfig loads a configuration from a JSON file. Fields missing from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig writes a configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the default configuration. Rope and steering values
// match the tuning the slingshot was designed around: 35 segments of 0.25
// units, 50 constraint passes, 50 curve samples.
func DefaultConfig() *Config {
	return &Config{
		Rope: RopeConfig{
			SegmentCount:         35,
			SegmentLength:        0.25,
			Gravity:              physics.Vector2D{X: 0, Y: -1},
			ConstraintIterations: 50,
			LineWidth:            0.1,
		},
		Steering: SteeringConfig{
			MinDistance:        0.1,
			CurveResolution:    50,
			ControlPointOffset: 1,
			ReleaseScale:       1,
			Policy:             "offset",
		},
		Skateboard: SkateboardConfig{
			Mass:           5,
			Inertia:        2,
			LinearDamping:  0.5,
			AngularDamping: 1,
			Position:       physics.Vector2D{X: 0, Y: -8},
		},
		Simulation: SimulationConfig{
			TickRate:         50,
			MaxTicksPerFrame: 5,
		},
		Network: NetworkConfig{
			ServerAddress:                     "localhost:4570",
			MaxClients:                        8,
			UpdateRate:                        60,
			ReadTimeout:                       Duration(30 * time.Second),
			WriteTimeout:                      Duration(5 * time.Second),
			MaxImpulse:                        1000,
			MaxMessagesPerMin:                 600,
			HealthPort:                        8080,
			CircuitBreakerMaxRequests:         3,
			CircuitBreakerInterval:            Duration(60 * time.Second),
			CircuitBreakerTimeout:             Duration(30 * time.Second),
			CircuitBreakerMaxConsecutiveFails: 5,
		},
		Display: DisplayConfig{
			Width:         1024,
			Height:        768,
			PixelsPerUnit: 40,
			CellsPerUnit:  4,
		},
	}
}
