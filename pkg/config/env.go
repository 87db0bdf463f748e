// pkg/config/env.go
package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"
)

// ValidationError reports the configuration field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// EnvironmentConfig holds the deployment settings read from SLINGROPE_*
// environment variables
type EnvironmentConfig struct {
	BoardAddr    string
	BoardPort    int
	MaxClients   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UpdateRate   int
	TickRate     int
	AuthToken    string
	HealthPort   int
	Sound        bool

	SegmentCount    int
	SteeringPolicy  string
	ReleaseScale    float64
	CurveResolution int

	CircuitBreakerMaxRequests         int
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails int
}

// LoadConfigFromEnv reads and validates the environment configuration.
// Unset variables take their DefaultConfig values.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	return loadEnvironment(DefaultConfig())
}

// loadEnvironment reads SLINGROPE_* variables, falling back to defaults
func loadEnvironment(defaults *Config) (*EnvironmentConfig, error) {
	host, port := splitAddress(defaults.Network.ServerAddress)

	config := &EnvironmentConfig{
		BoardAddr:    getEnvOrDefault("SLINGROPE_BOARD_ADDR", host),
		BoardPort:    getEnvAsIntOrDefault("SLINGROPE_BOARD_PORT", port),
		MaxClients:   getEnvAsIntOrDefault("SLINGROPE_MAX_CLIENTS", defaults.Network.MaxClients),
		ReadTimeout:  getEnvAsDurationOrDefault("SLINGROPE_READ_TIMEOUT", defaults.Network.ReadTimeout.Std()),
		WriteTimeout: getEnvAsDurationOrDefault("SLINGROPE_WRITE_TIMEOUT", defaults.Network.WriteTimeout.Std()),
		UpdateRate:   getEnvAsIntOrDefault("SLINGROPE_UPDATE_RATE", defaults.Network.UpdateRate),
		TickRate:     getEnvAsIntOrDefault("SLINGROPE_TICK_RATE", defaults.Simulation.TickRate),
		AuthToken:    getEnvOrDefault("SLINGROPE_AUTH_TOKEN", defaults.Network.AuthToken),
		HealthPort:   getEnvAsIntOrDefault("SLINGROPE_HEALTH_PORT", defaults.Network.HealthPort),
		Sound:        getEnvAsBoolOrDefault("SLINGROPE_SOUND", defaults.Display.Sound),

		SegmentCount:    getEnvAsIntOrDefault("SLINGROPE_SEGMENT_COUNT", defaults.Rope.SegmentCount),
		SteeringPolicy:  getEnvOrDefault("SLINGROPE_STEERING_POLICY", defaults.Steering.Policy),
		ReleaseScale:    getEnvAsFloatOrDefault("SLINGROPE_RELEASE_SCALE", defaults.Steering.ReleaseScale),
		CurveResolution: getEnvAsIntOrDefault("SLINGROPE_CURVE_RESOLUTION", defaults.Steering.CurveResolution),

		CircuitBreakerMaxRequests:         getEnvAsIntOrDefault("SLINGROPE_CB_MAX_REQUESTS", defaults.Network.CircuitBreakerMaxRequests),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault("SLINGROPE_CB_INTERVAL", defaults.Network.CircuitBreakerInterval.Std()),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault("SLINGROPE_CB_TIMEOUT", defaults.Network.CircuitBreakerTimeout.Std()),
		CircuitBreakerMaxConsecutiveFails: getEnvAsIntOrDefault("SLINGROPE_CB_MAX_FAILS", defaults.Network.CircuitBreakerMaxConsecutiveFails),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, fmt.Errorf("environment configuration validation failed: %w", err)
	}

	return config, nil
}

func validateEnvironmentConfig(config *EnvironmentConfig) error {
	if config.BoardAddr == "" {
		return &ValidationError{Field: "BoardAddr", Message: "cannot be empty"}
	}
	if config.BoardPort < 1 || config.BoardPort > 65535 {
		return &ValidationError{Field: "BoardPort", Message: "must be between 1 and 65535"}
	}
	if config.MaxClients < 1 || config.MaxClients > 1000 {
		return &ValidationError{Field: "MaxClients", Message: "must be between 1 and 1000"}
	}
	if config.ReadTimeout < time.Second || config.ReadTimeout > 5*time.Minute {
		return &ValidationError{Field: "ReadTimeout", Message: "must be between 1s and 5m"}
	}
	if config.WriteTimeout < time.Second || config.WriteTimeout > 5*time.Minute {
		return &ValidationError{Field: "WriteTimeout", Message: "must be between 1s and 5m"}
	}
	if config.UpdateRate < 1 || config.UpdateRate > 240 {
		return &ValidationError{Field: "UpdateRate", Message: "must be between 1 and 240"}
	}
	if config.TickRate < 1 || config.TickRate > 1000 {
		return &ValidationError{Field: "TickRate", Message: "must be between 1 and 1000"}
	}
	if config.HealthPort < 1 || config.HealthPort > 65535 {
		return &ValidationError{Field: "HealthPort", Message: "must be between 1 and 65535"}
	}
	if config.SegmentCount < 0 || config.SegmentCount > 10000 {
		return &ValidationError{Field: "SegmentCount", Message: "must be between 0 and 10000"}
	}
	if !validPolicy(config.SteeringPolicy) {
		return &ValidationError{Field: "SteeringPolicy", Message: fmt.Sprintf("unknown policy %q", config.SteeringPolicy)}
	}
	if math.IsNaN(config.ReleaseScale) || math.IsInf(config.ReleaseScale, 0) {
		return &ValidationError{Field: "ReleaseScale", Message: "must be finite"}
	}
	if config.CurveResolution < 1 {
		return &ValidationError{Field: "CurveResolution", Message: "must be at least 1"}
	}
	if config.CircuitBreakerMaxRequests < 1 || config.CircuitBreakerMaxRequests > 100 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Message: "must be between 1 and 100"}
	}
	if config.CircuitBreakerInterval < time.Second {
		return &ValidationError{Field: "CircuitBreakerInterval", Message: "must be at least 1s"}
	}
	if config.CircuitBreakerTimeout < time.Second {
		return &ValidationError{Field: "CircuitBreakerTimeout", Message: "must be at least 1s"}
	}
	if config.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Message: "must be at least 1"}
	}
	return nil
}

// ApplyEnvironmentOverrides copies SLINGROPE_* settings over a loaded config.
// Variables that are not set leave the config untouched.
func ApplyEnvironmentOverrides(config *Config) error {
	env, err := loadEnvironment(config)
	if err != nil {
		return err
	}

	config.Network.ServerAddress = net.JoinHostPort(env.BoardAddr, strconv.Itoa(env.BoardPort))
	config.Network.MaxClients = env.MaxClients
	config.Network.ReadTimeout = Duration(env.ReadTimeout)
	config.Network.WriteTimeout = Duration(env.WriteTimeout)
	config.Network.UpdateRate = env.UpdateRate
	config.Network.HealthPort = env.HealthPort
	config.Network.AuthToken = env.AuthToken
	config.Network.CircuitBreakerMaxRequests = env.CircuitBreakerMaxRequests
	config.Network.CircuitBreakerInterval = Duration(env.CircuitBreakerInterval)
	config.Network.CircuitBreakerTimeout = Duration(env.CircuitBreakerTimeout)
	config.Network.CircuitBreakerMaxConsecutiveFails = env.CircuitBreakerMaxConsecutiveFails

	config.Simulation.TickRate = env.TickRate
	config.Display.Sound = env.Sound
	config.Rope.SegmentCount = env.SegmentCount
	config.Steering.Policy = env.SteeringPolicy
	config.Steering.ReleaseScale = env.ReleaseScale
	config.Steering.CurveResolution = env.CurveResolution

	return nil
}

// Validate checks the simulation settings of a full config
func (c *Config) Validate() error {
	if c.Rope.SegmentCount < 0 {
		return &ValidationError{Field: "rope.segmentCount", Message: "cannot be negative"}
	}
	if !(c.Rope.SegmentLength > 0) || math.IsInf(c.Rope.SegmentLength, 0) {
		return &ValidationError{Field: "rope.segmentLength", Message: "must be positive and finite"}
	}
	if !c.Rope.Gravity.IsFinite() {
		return &ValidationError{Field: "rope.gravity", Message: "must be finite"}
	}
	if c.Rope.ConstraintIterations < 0 {
		return &ValidationError{Field: "rope.constraintIterations", Message: "cannot be negative"}
	}
	if c.Steering.MinDistance < 0 || math.IsNaN(c.Steering.MinDistance) {
		return &ValidationError{Field: "steering.minDistance", Message: "cannot be negative"}
	}
	if c.Steering.CurveResolution < 1 {
		return &ValidationError{Field: "steering.curveResolution", Message: "must be at least 1"}
	}
	if math.IsNaN(c.Steering.ControlPointOffset) || math.IsInf(c.Steering.ControlPointOffset, 0) {
		return &ValidationError{Field: "steering.controlPointOffset", Message: "must be finite"}
	}
	if math.IsNaN(c.Steering.ReleaseScale) || math.IsInf(c.Steering.ReleaseScale, 0) {
		return &ValidationError{Field: "steering.releaseScale", Message: "must be finite"}
	}
	if !validPolicy(c.Steering.Policy) {
		return &ValidationError{Field: "steering.policy", Message: fmt.Sprintf("unknown policy %q", c.Steering.Policy)}
	}
	if !(c.Skateboard.Mass > 0) {
		return &ValidationError{Field: "skateboard.mass", Message: "must be positive"}
	}
	if !(c.Skateboard.Inertia > 0) {
		return &ValidationError{Field: "skateboard.inertia", Message: "must be positive"}
	}
	if c.Skateboard.LinearDamping < 0 || c.Skateboard.AngularDamping < 0 {
		return &ValidationError{Field: "skateboard.damping", Message: "cannot be negative"}
	}
	if c.Simulation.TickRate < 1 {
		return &ValidationError{Field: "simulation.tickRate", Message: "must be at least 1"}
	}
	if c.Simulation.MaxTicksPerFrame < 1 {
		return &ValidationError{Field: "simulation.maxTicksPerFrame", Message: "must be at least 1"}
	}
	if _, _, err := net.SplitHostPort(c.Network.ServerAddress); err != nil {
		return &ValidationError{Field: "network.serverAddress", Message: err.Error()}
	}
	if !(c.Network.MaxImpulse > 0) {
		return &ValidationError{Field: "network.maxImpulse", Message: "must be positive"}
	}
	return nil
}

// validPolicy mirrors steering.ParsePolicy without importing it
func validPolicy(name string) bool {
	switch name {
	case "", "offset", "reflect", "midpoint", "captured":
		return true
	}
	return false
}

func splitAddress(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
