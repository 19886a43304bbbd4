package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type discriminates messages on the wire.
type Type string

// Built-in message types, independent of any extension.
const (
	// TypeReady is emitted once by the sandbox when its document model is queryable.
	TypeReady Type = "ready"
	// TypeStateUpdate carries a (possibly partial) state snapshot.
	TypeStateUpdate Type = "state-update"
	// TypeFocus is the baseline focus command every editor exposes.
	TypeFocus Type = "focus"
)

// Reserved reports whether t is one of the built-in types that extensions
// may not claim.
func Reserved(t Type) bool {
	switch t {
	case TypeReady, TypeStateUpdate, TypeFocus:
		return true
	}
	return false
}

var (
	ErrMalformed   = errors.New("malformed message")
	ErrEmptyType   = errors.New("message type is empty")
	ErrNoPayload   = errors.New("message has no payload")
	ErrPayloadType = errors.New("payload has unexpected shape")
)

// Message is the tagged union exchanged between host and sandbox.
type Message struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a message, serializing payload to JSON. A nil payload is omitted.
func New(t Type, payload any) (Message, error) {
	if t == "" {
		return Message{}, ErrEmptyType
	}
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		msg.Payload = raw
		return msg, nil
	}
	data, err := api.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	msg.Payload = data
	return msg, nil
}

// MustNew is New for payloads known to be serializable.
func MustNew(t Type, payload any) Message {
	msg, err := New(t, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// HasPayload reports whether the message carries a non-null payload.
func (m Message) HasPayload() bool {
	return len(m.Payload) > 0 && string(m.Payload) != "null"
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if !m.HasPayload() {
		return ErrNoPayload
	}
	if err := api.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrPayloadType, m.Type, err)
	}
	return nil
}

// String renders the message for logs.
func (m Message) String() string {
	if !m.HasPayload() {
		return string(m.Type)
	}
	return fmt.Sprintf("%s %s", m.Type, m.Payload)
}
