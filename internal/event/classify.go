package event

// Class is the dispatch decision for one inbound event.
type Class int

const (
	// ClassIgnore covers unknown frames, keepalives, and anything
	// filtered out by the cross-session rule.
	ClassIgnore Class = iota

	// ClassDelta feeds the streaming aggregator.
	ClassDelta

	// ClassTerminal ends the in-flight turn (end / Error).
	ClassTerminal

	// ClassLifecycle changes the authoritative session id.
	ClassLifecycle

	// ClassResponse is a complete synchronous assistant reply, stored
	// directly as a final message without going through the aggregator.
	ClassResponse

	// ClassPassthrough is telemetry the chat core does not interpret.
	ClassPassthrough
)

// Classify maps an event to its dispatch class. Non-lifecycle frames
// tagged with a session id other than the active one are discarded so a
// stale stream cannot leak into the session the user switched to.
// Untagged frames always pass.
func Classify(ev Event, activeSession string) Class {
	switch ev.Type {
	case TypeSessionCreated, TypeSessionSwitched:
		if ev.SessionID == "" {
			return ClassIgnore
		}
		return ClassLifecycle
	}

	if ev.SessionID != "" && ev.SessionID != activeSession {
		return ClassIgnore
	}

	switch ev.Type {
	case TypeThinking, TypeContent, TypeToolCallStart, TypeToolCallEnd:
		return ClassDelta
	case TypeEnd, TypeError:
		return ClassTerminal
	case TypeResponse:
		return ClassResponse
	case TypeDeviceUpdate:
		return ClassPassthrough
	default:
		return ClassIgnore
	}
}
