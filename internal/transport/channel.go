package transport

import (
	"context"
	"errors"

	"github.com/suPer8Hu/edge-chat-bridge/internal/event"
)

// State of the underlying connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var ErrNotConnected = errors.New("transport: not connected")

// Attachment is an inline binary payload on an outbound message.
type Attachment struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mimeType,omitempty"`
}

// chatRequest is the client -> server frame shape the assistant
// backend expects.
type chatRequest struct {
	Message   string       `json:"message"`
	SessionID string       `json:"sessionId,omitempty"`
	Images    []Attachment `json:"images,omitempty"`
}

// Channel is a persistent bidirectional stream to the assistant
// backend. Events are delivered on a single channel in arrival order;
// the consumer must process one event to completion before taking the
// next, which is what preserves the aggregation ordering guarantee.
//
// The session id is only ever written by the lifecycle controller; the
// channel itself never changes it.
type Channel interface {
	Connect(ctx context.Context) error
	Send(text string, attachments []Attachment) error
	Events() <-chan event.Event
	OnStateChange(fn func(State))
	SetSessionID(id string)
	SessionID() string
	IsConnected() bool
	Close() error
}
