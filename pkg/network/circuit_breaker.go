// Package network carries release impulses to a remote skateboard. Sends go
// through a circuit breaker so a dead receiver costs one fast error per
// release instead of a stalled simulation.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/logging"
)

// NetworkService wraps network operations with circuit breaker functionality
type NetworkService struct {
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NetworkOperation represents a function that performs a network operation.
// It should return an error if the operation fails.
type NetworkOperation func() error

// ErrRejected marks an error the remote side reported. The connection worked,
// so the breaker does not count it as a failure.
var ErrRejected = errors.New("rejected by receiver")

// NewNetworkService creates a NetworkService with a breaker configured from
// the network settings
func NewNetworkService(name string, nc config.NetworkConfig, logger *logging.Logger) *NetworkService {
	if logger == nil {
		logger = logging.NewLogger().Component("network")
	}

	maxFails := nc.CircuitBreakerMaxConsecutiveFails
	if maxFails <= 0 {
		maxFails = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(nc.CircuitBreakerMaxRequests),
		Interval:    nc.CircuitBreakerInterval.Std(),
		Timeout:     nc.CircuitBreakerTimeout.Std(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFails)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &NetworkService{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		maxRetries: 3,
		baseDelay:  200 * time.Millisecond,
	}
}

// Execute runs a network operation through the circuit breaker.
// If the circuit is open it returns an error immediately.
func (ns *NetworkService) Execute(ctx context.Context, operation NetworkOperation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("circuit breaker: %w", err)
	}

	_, err := ns.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err != nil {
		ns.logger.LogWithContext(ctx, slog.LevelDebug, "circuit breaker execution failed",
			"error", err.Error(),
			"state", ns.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}

	return nil
}

// ExecuteWithRetry runs an operation with linear backoff between attempts.
// Retries stop as soon as the breaker opens or the remote side rejects.
func (ns *NetworkService) ExecuteWithRetry(ctx context.Context, operation NetworkOperation) error {
	for attempt := 0; attempt < ns.maxRetries; attempt++ {
		err := ns.Execute(ctx, operation)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrRejected) {
			return err
		}

		if ns.breaker.State() == gobreaker.StateOpen {
			ns.logger.LogWithContext(ctx, slog.LevelWarn, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", ns.maxRetries,
			)
			return err
		}

		if attempt == ns.maxRetries-1 {
			return fmt.Errorf("max retries (%d) exceeded: %w", ns.maxRetries, err)
		}

		delay := time.Duration(attempt+1) * ns.baseDelay
		ns.logger.LogWithContext(ctx, slog.LevelWarn, "operation failed, retrying",
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("unexpected exit from retry loop")
}

// GetState returns the current state of the circuit breaker
func (ns *NetworkService) GetState() gobreaker.State {
	return ns.breaker.State()
}

// GetCounts returns the current failure/success counts of the circuit breaker
func (ns *NetworkService) GetCounts() gobreaker.Counts {
	return ns.breaker.Counts()
}
