package event

import "encoding/json"

// Wire type tags as the assistant backend emits them. The streaming
// event names are capitalized and the lifecycle/terminal ones are not;
// that asymmetry is the backend's, not ours.
const (
	TypeThinking      = "Thinking"
	TypeContent       = "Content"
	TypeToolCallStart = "ToolCallStart"
	TypeToolCallEnd   = "ToolCallEnd"
	TypeEnd           = "end"
	TypeError         = "Error"

	// synchronous (non-streamed) assistant reply
	TypeResponse = "response"

	TypeSessionCreated  = "session_created"
	TypeSessionSwitched = "session_switched"

	TypeDeviceUpdate = "device_update"

	TypePing = "ping"
	TypePong = "pong"
)

// Event is a decoded server frame. Only the fields relevant to the
// frame's type are populated; Raw keeps the original bytes for
// passthrough frames that get republished verbatim.
type Event struct {
	Type      string          `json:"type"`
	Content   string          `json:"content,omitempty"`
	Message   string          `json:"message,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Success   *bool           `json:"success,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`

	// device_update passthrough
	DeviceID string `json:"deviceId,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Decode parses a server frame. The raw bytes are copied so the caller
// may reuse its read buffer.
func Decode(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, err
	}
	ev.Raw = append(json.RawMessage(nil), frame...)
	return ev, nil
}
