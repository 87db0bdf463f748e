// pkg/network/server.go
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/validation"
)

// integrator is a receiver that also advances in time
type integrator interface {
	Update(deltaTime float64)
}

type poser interface {
	Pose() entity.Pose
}

// ImpulseServer accepts impulse senders and applies their impulses to one
// board
type ImpulseServer struct {
	listener    net.Listener
	board       entity.ImpulseReceiver
	bus         *event.Bus
	validator   *validation.MessageValidator
	logger      *logging.Logger
	clients     map[uint64]*Client
	clientsLock sync.RWMutex
	boardLock   sync.Mutex
	running     atomic.Bool
	done        chan struct{}
	wg          sync.WaitGroup

	updateRate   time.Duration
	maxClients   int
	readTimeout  time.Duration
	writeTimeout time.Duration
	authToken    string
	maxImpulse   float64
	maxPerMin    int

	nextClientID atomic.Uint64
	received     atomic.Uint64
	rejected     atomic.Uint64
}

// Client represents a connected impulse sender
type Client struct {
	ID        uint64
	Conn      net.Conn
	Name      string
	LastSeq   uint64
	Connected time.Time
	writeLock sync.Mutex
}

// NewImpulseServer creates a server for board. bus may be nil.
func NewImpulseServer(board entity.ImpulseReceiver, nc config.NetworkConfig, bus *event.Bus, logger *logging.Logger) *ImpulseServer {
	if bus == nil {
		bus = event.NewEventBus()
	}
	if logger == nil {
		logger = logging.NewLogger().Component("impulse_server")
	}
	updateRate := time.Second / 60
	if nc.UpdateRate > 0 {
		updateRate = time.Second / time.Duration(nc.UpdateRate)
	}

	return &ImpulseServer{
		board:        board,
		bus:          bus,
		logger:       logger,
		clients:      make(map[uint64]*Client),
		updateRate:   updateRate,
		maxClients:   nc.MaxClients,
		readTimeout:  nc.ReadTimeout.Std(),
		writeTimeout: nc.WriteTimeout.Std(),
		authToken:    nc.AuthToken,
		maxImpulse:   nc.MaxImpulse,
		maxPerMin:    nc.MaxMessagesPerMin,
	}
}

// Start listens on address and begins integrating the board
func (s *ImpulseServer) Start(address string) error {
	if s.running.Load() {
		return errors.New("impulse server already running")
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.validator = validation.NewMessageValidator(s.maxPerMin)
	s.done = make(chan struct{})
	s.running.Store(true)

	s.wg.Add(2)
	go s.acceptConnections()
	go s.integrationLoop()

	s.logger.Info(context.Background(), "impulse server started", "address", listener.Addr().String())
	return nil
}

// Stop closes the listener and every client connection and waits for the
// server goroutines to exit
func (s *ImpulseServer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.clientsLock.Lock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.clientsLock.Unlock()

	s.wg.Wait()
	s.validator.Close()

	s.logger.Info(context.Background(), "impulse server stopped",
		"received", s.received.Load(),
		"rejected", s.rejected.Load(),
	)
}

// IsRunning reports whether the server accepts connections
func (s *ImpulseServer) IsRunning() bool {
	return s.running.Load()
}

// GetListenerAddress returns the bound address, useful with port 0
func (s *ImpulseServer) GetListenerAddress() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ClientCount returns the number of sessions past the handshake
func (s *ImpulseServer) ClientCount() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

// ImpulsesReceived returns how many impulses were applied
func (s *ImpulseServer) ImpulsesReceived() uint64 {
	return s.received.Load()
}

// EventBus returns the bus ImpulseReceived events are published on
func (s *ImpulseServer) EventBus() *event.Bus {
	return s.bus
}

// Pose returns the board pose when the receiver exposes one
func (s *ImpulseServer) Pose() (entity.Pose, bool) {
	p, ok := s.board.(poser)
	if !ok {
		return entity.Pose{}, false
	}
	s.boardLock.Lock()
	defer s.boardLock.Unlock()
	return p.Pose(), true
}

// acceptConnections accepts new client connections
func (s *ImpulseServer) acceptConnections() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.logger.Warn(context.Background(), "error accepting connection", "error", err.Error())
			}
			continue
		}

		if s.maxClients > 0 && s.ClientCount() >= s.maxClients {
			s.logger.Warn(context.Background(), "rejecting connection, server full",
				"remote", conn.RemoteAddr().String())
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// integrationLoop advances the board at the configured update rate
func (s *ImpulseServer) integrationLoop() {
	defer s.wg.Done()

	body, ok := s.board.(integrator)
	if !ok {
		return
	}

	ticker := time.NewTicker(s.updateRate)
	defer ticker.Stop()

	dt := s.updateRate.Seconds()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.boardLock.Lock()
			body.Update(dt)
			s.boardLock.Unlock()
		}
	}
}

// handleConnection runs the handshake and then the message loop
func (s *ImpulseServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	// unblock reads, including a pending handshake, when the server stops
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-finished:
		}
	}()

	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())
	client, err := s.handshake(ctx, conn)
	if err != nil {
		s.logger.Warn(ctx, "handshake failed",
			"remote", conn.RemoteAddr().String(),
			"error", err.Error(),
		)
		return
	}

	s.clientsLock.Lock()
	s.clients[client.ID] = client
	s.clientsLock.Unlock()

	s.logger.Info(ctx, "client connected", "client_id", client.ID, "name", client.Name)
	s.handleClientMessages(ctx, client)
}

func (s *ImpulseServer) handshake(ctx context.Context, conn net.Conn) (*Client, error) {
	s.setReadDeadline(conn)
	msgType, data, err := ReadMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if msgType != MsgHello {
		return nil, fmt.Errorf("expected %s, got %s", MsgHello, msgType)
	}

	var hello HelloPayload
	if err := decode(msgType, data, &hello); err != nil {
		return nil, err
	}

	reject := func(reason error) (*Client, error) {
		s.send(conn, nil, MsgHelloAck, HelloAckPayload{Success: false, Error: reason.Error()})
		return nil, reason
	}

	name, err := validation.ValidateClientName(hello.Name)
	if err != nil {
		return reject(err)
	}
	if err := validation.ValidateToken(hello.Token, s.authToken); err != nil {
		return reject(err)
	}

	client := &Client{
		ID:        s.nextClientID.Add(1),
		Conn:      conn,
		Name:      name,
		Connected: time.Now(),
	}
	if err := s.send(conn, client, MsgHelloAck, HelloAckPayload{Success: true, ClientID: client.ID}); err != nil {
		return nil, err
	}
	return client, nil
}

// handleClientMessages processes messages from a connected client
func (s *ImpulseServer) handleClientMessages(ctx context.Context, client *Client) {
	defer s.removeClient(client)

	key := fmt.Sprintf("%d", client.ID)
	for s.running.Load() {
		s.setReadDeadline(client.Conn)
		msgType, data, err := ReadMessage(client.Conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && s.running.Load() {
				s.logger.Debug(ctx, "client read ended", "client_id", client.ID, "error", err.Error())
			}
			return
		}

		if err := s.validator.ValidateMessage(data, key); err != nil {
			s.logger.Warn(ctx, "message rejected", "client_id", client.ID, "type", msgType.String(), "error", err.Error())
			if msgType == MsgImpulse {
				s.rejectImpulse(client, data, err)
			}
			continue
		}

		switch msgType {
		case MsgImpulse:
			s.handleImpulse(ctx, client, data)

		case MsgPing:
			s.sendFrame(client, MsgPong, data)

		default:
			s.logger.Warn(ctx, "unknown message type", "client_id", client.ID, "type", msgType.String())
		}
	}
}

// handleImpulse validates, applies and acknowledges one impulse
func (s *ImpulseServer) handleImpulse(ctx context.Context, client *Client, data []byte) {
	var p ImpulsePayload
	if err := decode(MsgImpulse, data, &p); err != nil {
		s.rejectImpulse(client, data, err)
		return
	}
	if err := validation.ValidateSequence(p.Seq, client.LastSeq); err != nil {
		s.rejectImpulse(client, data, err)
		return
	}
	client.LastSeq = p.Seq

	impulse := p.Vector()
	if err := validation.ValidateImpulse(impulse, s.maxImpulse); err != nil {
		s.rejectImpulse(client, data, err)
		return
	}

	ack := ImpulseAckPayload{Seq: p.Seq, Accepted: true}
	s.boardLock.Lock()
	s.board.ApplyImpulse(impulse)
	if b, ok := s.board.(poser); ok {
		pose := b.Pose()
		ack.Pose = &pose
	}
	s.boardLock.Unlock()

	s.received.Add(1)
	s.logger.Debug(ctx, "impulse applied",
		"client_id", client.ID,
		"seq", p.Seq,
		"x", impulse.X,
		"y", impulse.Y,
	)
	s.bus.Publish(event.NewImpulseEvent(event.ImpulseReceived, s, impulse, p.Seq))
	s.send(client.Conn, client, MsgImpulseAck, ack)
}

// rejectImpulse acknowledges an impulse as refused. The sequence number is
// recovered from the payload when it parses.
func (s *ImpulseServer) rejectImpulse(client *Client, data []byte, reason error) {
	s.rejected.Add(1)
	var p ImpulsePayload
	_ = decode(MsgImpulse, data, &p)
	s.send(client.Conn, client, MsgImpulseAck, ImpulseAckPayload{
		Seq:      p.Seq,
		Accepted: false,
		Error:    reason.Error(),
	})
}

// removeClient forgets a disconnected client
func (s *ImpulseServer) removeClient(client *Client) {
	s.clientsLock.Lock()
	delete(s.clients, client.ID)
	s.clientsLock.Unlock()

	s.validator.Forget(fmt.Sprintf("%d", client.ID))
	s.logger.Info(context.Background(), "client disconnected", "client_id", client.ID, "name", client.Name)
}

func (s *ImpulseServer) setReadDeadline(conn net.Conn) {
	if s.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
}

// send writes one message. client may be nil before the handshake completes.
func (s *ImpulseServer) send(conn net.Conn, client *Client, msgType MessageType, payload interface{}) error {
	if client != nil {
		client.writeLock.Lock()
		defer client.writeLock.Unlock()
	}
	if s.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := WriteMessage(conn, msgType, payload); err != nil {
		s.logger.Debug(context.Background(), "send failed", "type", msgType.String(), "error", err.Error())
		return err
	}
	return nil
}

func (s *ImpulseServer) sendFrame(client *Client, msgType MessageType, data []byte) {
	client.writeLock.Lock()
	defer client.writeLock.Unlock()
	if s.writeTimeout > 0 {
		client.Conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := WriteFrame(client.Conn, msgType, data); err != nil {
		s.logger.Debug(context.Background(), "send failed", "type", msgType.String(), "error", err.Error())
	}
}
