package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/amalg/go-quadris/internal/game"
)

// MaxMessageSize bounds a single frame body.
const MaxMessageSize = 1 << 20

// ErrMessageTooLarge is returned for frames over MaxMessageSize.
var ErrMessageTooLarge = errors.New("message too large")

// MsgType identifies the type of network message.
type MsgType string

const (
	MsgJoin    MsgType = "join"
	MsgWelcome MsgType = "welcome"
	MsgState   MsgType = "state"
	MsgError   MsgType = "error"
)

// Envelope wraps all messages with a type discriminator for deserialization.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// --- Spectator → Host Messages ---

// JoinMsg is sent by a spectator to start watching.
type JoinMsg struct {
	Name string `json:"name"`
}

// --- Host → Spectator Messages ---

// WelcomeMsg is sent to a spectator after joining.
type WelcomeMsg struct {
	SpectatorID string          `json:"spectator_id"`
	Room        string          `json:"room"`
	Config      game.GameConfig `json:"config"`
}

// StateMsg carries one playfield snapshot.
type StateMsg struct {
	State game.GameState `json:"state"`
}

// ErrorMsg notifies a spectator of an error.
type ErrorMsg struct {
	Message string `json:"message"`
}

// Encode serializes a message and writes it to the writer.
// Format: [4-byte big-endian length][JSON body]
func Encode(w io.Writer, msgType MsgType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	env := Envelope{
		Type:    msgType,
		Payload: json.RawMessage(payloadBytes),
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if len(body) > MaxMessageSize {
		return fmt.Errorf("encode %s: %w: %d bytes", msgType, ErrMessageTooLarge, len(body))
	}

	// Header and body go out in one write so concurrent frames never interleave
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// Decode reads a length-prefixed JSON message from the reader.
func Decode(r io.Reader) (*Envelope, error) {
	// Read 4-byte length header
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	if length > MaxMessageSize {
		return nil, fmt.Errorf("decode: %w: %d bytes", ErrMessageTooLarge, length)
	}

	// Read body
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	return &env, nil
}

// DecodePayload unmarshals the payload from an envelope into the target struct.
func DecodePayload(env *Envelope, target interface{}) error {
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}
