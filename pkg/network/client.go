// pkg/network/client.go
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Client event types
const (
	ClientConnected    event.Type = "client_connected"
	ClientDisconnected event.Type = "client_disconnected"
)

// ConnectionEvent reports a session opening or closing
type ConnectionEvent struct {
	event.BaseEvent
	Address string
	Err     error
}

// ErrNotConnected is returned when a send finds no session and cannot open one
var ErrNotConnected = errors.New("not connected")

// ImpulseClient delivers impulses to a remote ImpulseServer. It satisfies
// entity.ImpulseReceiver and the simulation's fallible sender interface.
// A broken session is dropped and reopened on the next send.
type ImpulseClient struct {
	conn          net.Conn
	clientID      uint64
	serverAddress string
	name          string
	token         string
	connected     bool
	seq           uint64
	lastPose      *entity.Pose
	latency       time.Duration
	mu            sync.Mutex

	networkService *NetworkService
	eventBus       *event.Bus
	logger         *logging.Logger

	connectionTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
}

// NewImpulseClient creates a client for the daemon at nc.ServerAddress.
// bus may be nil.
func NewImpulseClient(nc config.NetworkConfig, name string, bus *event.Bus, logger *logging.Logger) *ImpulseClient {
	if logger == nil {
		logger = logging.NewLogger().Component("impulse_client")
	}
	readTimeout := nc.ReadTimeout.Std()
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := nc.WriteTimeout.Std()
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &ImpulseClient{
		serverAddress:     nc.ServerAddress,
		name:              name,
		token:             nc.AuthToken,
		networkService:    NewNetworkService("slingrope-impulse", nc, logger),
		eventBus:          bus,
		logger:            logger,
		connectionTimeout: 10 * time.Second,
		readTimeout:       readTimeout,
		writeTimeout:      writeTimeout,
	}
}

// Connect opens a session through the circuit breaker
func (c *ImpulseClient) Connect(ctx context.Context) error {
	return c.networkService.Execute(ctx, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.ensureConnected(ctx)
	})
}

// ensureConnected dials and performs the handshake unless a session is open.
// Callers hold c.mu.
func (c *ImpulseClient) ensureConnected(ctx context.Context) error {
	if c.connected {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.connectionTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", c.serverAddress)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.serverAddress, err)
	}
	c.conn = conn

	if err := c.performHandshake(dialCtx); err != nil {
		c.cleanupConnection()
		return err
	}

	c.connected = true
	c.logger.Info(ctx, "connected to board", "address", c.serverAddress, "client_id", c.clientID)
	c.publish(ClientConnected, nil)
	return nil
}

func (c *ImpulseClient) performHandshake(ctx context.Context) error {
	if err := c.writeMessage(ctx, MsgHello, HelloPayload{Name: c.name, Token: c.token}); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	msgType, data, err := c.readMessage(ctx)
	if err != nil {
		return fmt.Errorf("failed to read hello ack: %w", err)
	}
	if msgType != MsgHelloAck {
		return fmt.Errorf("expected %s, got %s", MsgHelloAck, msgType)
	}

	var ack HelloAckPayload
	if err := decode(msgType, data, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return fmt.Errorf("handshake: %s: %w", ack.Error, ErrRejected)
	}

	c.clientID = ack.ClientID
	c.seq = 0
	return nil
}

// cleanupConnection closes the socket and marks the session gone. Callers
// hold c.mu.
func (c *ImpulseClient) cleanupConnection() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// dropConnection tears down a session that failed mid-exchange
func (c *ImpulseClient) dropConnection(err error) {
	wasConnected := c.connected
	c.cleanupConnection()
	if wasConnected {
		c.logger.Warn(context.Background(), "connection to board lost", "error", err.Error())
		c.publish(ClientDisconnected, err)
	}
}

// Close ends the session
func (c *ImpulseClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.cleanupConnection()
	c.publish(ClientDisconnected, nil)
	return nil
}

// IsConnected reports whether a session is open
func (c *ImpulseClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SendImpulse delivers one impulse and waits for the daemon's ack. A refused
// impulse returns an error wrapping ErrRejected.
func (c *ImpulseClient) SendImpulse(ctx context.Context, impulse physics.Vector2D) error {
	return c.networkService.Execute(ctx, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.sendImpulse(ctx, impulse)
	})
}

// ApplyImpulse sends with the configured write timeout and logs failures
func (c *ImpulseClient) ApplyImpulse(impulse physics.Vector2D) {
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout+c.readTimeout)
	defer cancel()
	if err := c.SendImpulse(ctx, impulse); err != nil {
		c.logger.Warn(ctx, "impulse not delivered", "error", err.Error())
	}
}

func (c *ImpulseClient) sendImpulse(ctx context.Context, impulse physics.Vector2D) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	c.seq++
	seq := c.seq
	if err := c.writeMessage(ctx, MsgImpulse, ImpulsePayload{X: impulse.X, Y: impulse.Y, Seq: seq}); err != nil {
		c.dropConnection(err)
		return fmt.Errorf("send impulse %d: %w", seq, err)
	}

	for {
		msgType, data, err := c.readMessage(ctx)
		if err != nil {
			c.dropConnection(err)
			return fmt.Errorf("await ack %d: %w", seq, err)
		}
		if msgType != MsgImpulseAck {
			continue
		}

		var ack ImpulseAckPayload
		if err := decode(msgType, data, &ack); err != nil {
			c.dropConnection(err)
			return err
		}
		if ack.Seq != seq {
			continue
		}
		if !ack.Accepted {
			return fmt.Errorf("impulse %d: %s: %w", seq, ack.Error, ErrRejected)
		}
		c.lastPose = ack.Pose
		return nil
	}
}

// Ping measures the round trip to the daemon
func (c *ImpulseClient) Ping(ctx context.Context) (time.Duration, error) {
	var latency time.Duration
	err := c.networkService.Execute(ctx, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()

		if err := c.ensureConnected(ctx); err != nil {
			return err
		}
		if err := c.writeMessage(ctx, MsgPing, PingPayload{Sent: time.Now().UnixNano()}); err != nil {
			c.dropConnection(err)
			return err
		}
		for {
			msgType, data, err := c.readMessage(ctx)
			if err != nil {
				c.dropConnection(err)
				return err
			}
			if msgType != MsgPong {
				continue
			}
			var pong PingPayload
			if err := decode(msgType, data, &pong); err != nil {
				return err
			}
			latency = pong.Elapsed(time.Now())
			c.latency = latency
			return nil
		}
	})
	return latency, err
}

// GetLatency returns the last measured round trip
func (c *ImpulseClient) GetLatency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// Pose returns the board pose from the last accepted impulse
func (c *ImpulseClient) Pose() (entity.Pose, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPose == nil {
		return entity.Pose{}, false
	}
	return *c.lastPose, true
}

// BreakerState returns the circuit breaker state
func (c *ImpulseClient) BreakerState() gobreaker.State {
	return c.networkService.GetState()
}

func (c *ImpulseClient) publish(t event.Type, err error) {
	if c.eventBus == nil {
		return
	}
	c.eventBus.Publish(&ConnectionEvent{
		BaseEvent: event.BaseEvent{EventType: t, Source: c},
		Address:   c.serverAddress,
		Err:       err,
	})
}

// readResult contains the result of a read operation
type readResult struct {
	msgType MessageType
	data    []byte
	err     error
}

// readMessage reads a message from the server with context timeout support
func (c *ImpulseClient) readMessage(ctx context.Context) (MessageType, []byte, error) {
	c.setReadDeadline(ctx)
	conn := c.conn

	resultChan := make(chan readResult, 1)
	go func() {
		msgType, data, err := ReadMessage(conn)
		resultChan <- readResult{msgType: msgType, data: data, err: err}
	}()

	select {
	case result := <-resultChan:
		conn.SetReadDeadline(time.Time{})
		return result.msgType, result.data, result.err
	case <-ctx.Done():
		// the reader goroutine ends once the socket closes
		conn.Close()
		return 0, nil, ctx.Err()
	}
}

// setReadDeadline uses the context deadline or the configured timeout
func (c *ImpulseClient) setReadDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
	} else {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

// writeMessage writes one message with context timeout support
func (c *ImpulseClient) writeMessage(ctx context.Context, msgType MessageType, payload interface{}) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	conn := c.conn

	resultChan := make(chan error, 1)
	go func() {
		resultChan <- WriteMessage(conn, msgType, payload)
	}()

	select {
	case err := <-resultChan:
		conn.SetWriteDeadline(time.Time{})
		return err
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}
