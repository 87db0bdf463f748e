package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

func newTestClient(t *testing.T, nc config.NetworkConfig, bus *event.Bus) *ImpulseClient {
	t.Helper()
	client := NewImpulseClient(nc, "sling", bus, logging.Discard())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestImpulseClient_SendImpulse(t *testing.T) {
	board := entity.NewSkateboard(1, physics.Vector2D{}, 2, 1)
	nc := testNetworkConfig()
	server := startTestServer(t, board, nc)
	nc.ServerAddress = server.GetListenerAddress()

	bus := event.NewEventBus()
	connected := 0
	bus.Subscribe(ClientConnected, func(event.Event) { connected++ })
	client := newTestClient(t, nc, bus)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, ok := client.Pose(); ok {
		t.Error("expected no pose before the first ack")
	}
	if err := client.SendImpulse(ctx, physics.Vector2D{X: 4}); err != nil {
		t.Fatalf("SendImpulse() error = %v", err)
	}
	if err := client.SendImpulse(ctx, physics.Vector2D{Y: -2}); err != nil {
		t.Fatalf("SendImpulse() error = %v", err)
	}

	if !client.IsConnected() || connected != 1 {
		t.Errorf("IsConnected() = %v after %d connects, expected one reused session", client.IsConnected(), connected)
	}
	pose, ok := client.Pose()
	if !ok || pose.Impulses != 2 {
		t.Errorf("Pose() = %+v, %v; expected 2 impulses", pose, ok)
	}
	if got := board.Pose().Impulses; got != 2 {
		t.Errorf("board received %d impulses, expected 2", got)
	}
}

func TestImpulseClient_RejectedImpulse(t *testing.T) {
	nc := testNetworkConfig()
	server := startTestServer(t, entity.ImpulseReceiverFunc(func(physics.Vector2D) {}), nc)
	nc.ServerAddress = server.GetListenerAddress()
	nc.CircuitBreakerMaxConsecutiveFails = 1
	client := newTestClient(t, nc, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		err := client.SendImpulse(ctx, physics.Vector2D{X: 1000})
		if !errors.Is(err, ErrRejected) {
			t.Fatalf("attempt %d: expected ErrRejected, got %v", i, err)
		}
	}
	if client.BreakerState() != gobreaker.StateClosed {
		t.Errorf("rejections opened the breaker: %v", client.BreakerState())
	}
	if !client.IsConnected() {
		t.Error("a rejection dropped the session")
	}
}

func TestImpulseClient_BadTokenRejected(t *testing.T) {
	nc := testNetworkConfig()
	nc.AuthToken = "right"
	server := startTestServer(t, entity.ImpulseReceiverFunc(func(physics.Vector2D) {}), nc)

	nc.ServerAddress = server.GetListenerAddress()
	nc.AuthToken = "wrong"
	client := newTestClient(t, nc, nil)

	err := client.Connect(context.Background())
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Connect() = %v, expected ErrRejected", err)
	}
	if client.IsConnected() {
		t.Error("client connected with a bad token")
	}
}

func TestImpulseClient_UnreachableTripsBreaker(t *testing.T) {
	// reserve a port and close it so dials are refused
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	listener.Close()

	nc := testNetworkConfig()
	nc.ServerAddress = address
	nc.CircuitBreakerMaxConsecutiveFails = 2
	nc.CircuitBreakerTimeout = config.Duration(time.Minute)
	client := newTestClient(t, nc, nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := client.SendImpulse(ctx, physics.Vector2D{X: 1}); err == nil {
			t.Fatalf("attempt %d: expected a dial error", i)
		}
	}
	if client.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("BreakerState() = %v, expected open", client.BreakerState())
	}

	start := time.Now()
	err = client.SendImpulse(ctx, physics.Vector2D{X: 1})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("open breaker did not fail fast")
	}
}

func TestImpulseClient_ContextTimeout(t *testing.T) {
	// a peer that accepts but never answers
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		<-release
		conn.Close()
	}()

	nc := testNetworkConfig()
	nc.ServerAddress = listener.Addr().String()
	client := newTestClient(t, nc, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = client.SendImpulse(ctx, physics.Vector2D{X: 1})
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("SendImpulse took %v, expected it to honour the context deadline", elapsed)
	}
	if client.IsConnected() {
		t.Error("client reports a session after a failed handshake")
	}
}

func TestImpulseClient_ReconnectsAfterDrop(t *testing.T) {
	board := entity.NewSkateboard(1, physics.Vector2D{}, 1, 1)
	nc := testNetworkConfig()
	server := startTestServer(t, board, nc)
	nc.ServerAddress = server.GetListenerAddress()

	bus := event.NewEventBus()
	disconnected := 0
	bus.Subscribe(ClientDisconnected, func(event.Event) { disconnected++ })
	client := newTestClient(t, nc, bus)

	ctx := context.Background()
	if err := client.SendImpulse(ctx, physics.Vector2D{X: 1}); err != nil {
		t.Fatal(err)
	}

	// the socket dies under the client
	client.mu.Lock()
	client.conn.Close()
	client.mu.Unlock()

	if err := client.SendImpulse(ctx, physics.Vector2D{X: 1}); err == nil {
		t.Fatal("expected the send on a dead socket to fail")
	}
	if disconnected != 1 {
		t.Errorf("published %d disconnects, expected 1", disconnected)
	}

	if err := client.SendImpulse(ctx, physics.Vector2D{X: 1}); err != nil {
		t.Fatalf("expected a fresh session, got %v", err)
	}
	if got := board.Pose().Impulses; got != 2 {
		t.Errorf("board received %d impulses, expected 2", got)
	}
}

func TestImpulseClient_Ping(t *testing.T) {
	nc := testNetworkConfig()
	server := startTestServer(t, entity.ImpulseReceiverFunc(func(physics.Vector2D) {}), nc)
	nc.ServerAddress = server.GetListenerAddress()
	client := newTestClient(t, nc, nil)

	latency, err := client.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if latency <= 0 || latency > time.Second || client.GetLatency() != latency {
		t.Errorf("latency = %v, GetLatency() = %v", latency, client.GetLatency())
	}
}
