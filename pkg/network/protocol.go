// pkg/network/protocol.go
package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// MessageType identifies a frame on the impulse wire
type MessageType byte

const (
	MsgHello MessageType = iota + 1
	MsgHelloAck
	MsgImpulse
	MsgImpulseAck
	MsgPing
	MsgPong
)

// String returns the name used in logs
func (t MessageType) String() string {
	switch t {
	case MsgHello:
		return "hello"
	case MsgHelloAck:
		return "hello_ack"
	case MsgImpulse:
		return "impulse"
	case MsgImpulseAck:
		return "impulse_ack"
	case MsgPing:
		return "ping"
	case MsgPong:
		return "pong"
	default:
		return fmt.Sprintf("type(%d)", byte(t))
	}
}

// headerSize is one type byte plus a big-endian uint16 length
const headerSize = 3

// ErrFrameTooLarge is returned for payloads that do not fit the length field
var ErrFrameTooLarge = errors.New("frame payload too large")

// HelloPayload opens a session
type HelloPayload struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

// HelloAckPayload answers a hello
type HelloAckPayload struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	ClientID uint64 `json:"clientId,omitempty"`
}

// ImpulsePayload carries one release impulse
type ImpulsePayload struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Seq uint64  `json:"seq"`
}

// Vector returns the impulse as a vector
func (p ImpulsePayload) Vector() physics.Vector2D {
	return physics.Vector2D{X: p.X, Y: p.Y}
}

// ImpulseAckPayload answers an impulse with the board pose after applying it
type ImpulseAckPayload struct {
	Seq      uint64       `json:"seq"`
	Accepted bool         `json:"accepted"`
	Error    string       `json:"error,omitempty"`
	Pose     *entity.Pose `json:"pose,omitempty"`
}

// PingPayload is echoed back unchanged in a pong
type PingPayload struct {
	Sent int64 `json:"sent"` // unix nanoseconds
}

// Elapsed returns the time since the ping was sent
func (p PingPayload) Elapsed(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, p.Sent))
}

// WriteMessage encodes payload as JSON and writes one frame
func WriteMessage(w io.Writer, msgType MessageType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	return WriteFrame(w, msgType, data)
}

// WriteFrame writes a frame whose payload is already encoded. The header and
// payload go out in a single Write.
func WriteFrame(w io.Writer, msgType MessageType, data []byte) error {
	if len(data) > math.MaxUint16 {
		return fmt.Errorf("%s: %d bytes: %w", msgType, len(data), ErrFrameTooLarge)
	}

	frame := make([]byte, headerSize+len(data))
	frame[0] = byte(msgType)
	binary.BigEndian.PutUint16(frame[1:headerSize], uint16(len(data)))
	copy(frame[headerSize:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}

// ReadMessage reads one frame and returns its type and raw payload
func ReadMessage(r io.Reader) (MessageType, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	msgType := MessageType(header[0])
	length := binary.BigEndian.Uint16(header[1:])

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, fmt.Errorf("read %s payload: %w", msgType, err)
	}
	return msgType, data, nil
}

// decode unmarshals a payload, naming the message type on failure
func decode(msgType MessageType, data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", msgType, err)
	}
	return nil
}
