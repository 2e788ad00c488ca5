package stream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suPer8Hu/edge-chat-bridge/internal/chat"
	"github.com/suPer8Hu/edge-chat-bridge/internal/common"
	"github.com/suPer8Hu/edge-chat-bridge/internal/event"
)

// DefaultCheckpointInterval gates time-based partial saves.
const DefaultCheckpointInterval = 500 * time.Millisecond

type EffectKind int

const (
	// EffectCheckpoint upserts a partial snapshot of the in-flight turn.
	EffectCheckpoint EffectKind = iota

	// EffectFinalize upserts the finished message (is_partial = false).
	EffectFinalize
)

// Effect is a store write the caller must execute. The message is a
// copied snapshot; later buffer mutation cannot reach it.
type Effect struct {
	Kind    EffectKind
	Message chat.Message
}

// Aggregator folds the delta events of one assistant turn into
// accumulation buffers and emits store effects: periodic checkpoints
// while streaming, exactly one finalize at the end. It never performs
// I/O itself, which keeps the accumulation rules unit-testable without
// a live transport.
//
// Not safe for concurrent use; the controller is the sole caller and
// applies events strictly in arrival order.
type Aggregator struct {
	interval time.Duration

	now       func() time.Time
	newID     func() string
	newToolID func() string

	active         bool
	content        strings.Builder
	thinking       strings.Builder
	toolCalls      []chat.ToolCall
	messageID      string
	startedAt      time.Time
	lastCheckpoint time.Time
}

func NewAggregator(interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	return &Aggregator{
		interval: interval,
		now:      time.Now,
		newID: func() string {
			id, err := common.NewULID()
			if err != nil {
				// entropy failure; uuid never errors
				return uuid.NewString()
			}
			return id
		},
		newToolID: uuid.NewString,
	}
}

// Active reports whether a turn is currently streaming.
func (a *Aggregator) Active() bool { return a.active }

// Apply folds one classified delta or terminal event into the turn and
// returns the store effects it produced. Error events abort the turn
// without storing anything; surfacing the error text is the caller's
// concern.
func (a *Aggregator) Apply(ev event.Event) []Effect {
	switch ev.Type {
	case event.TypeThinking:
		a.begin()
		a.thinking.WriteString(ev.Content)
		return a.checkpoint(false)

	case event.TypeContent:
		a.begin()
		a.content.WriteString(ev.Content)
		return a.checkpoint(false)

	case event.TypeToolCallStart:
		a.begin()
		a.toolCalls = append(a.toolCalls, chat.ToolCall{
			ID:        a.newToolID(),
			Name:      ev.Tool,
			Arguments: cloneRaw(ev.Arguments),
		})
		// tool-call boundaries are high-value checkpoints, no time gate
		return a.checkpoint(true)

	case event.TypeToolCallEnd:
		if !a.complete(ev.Tool, ev.Result, ev.Success) {
			// no pending call by that name: benign race, drop it
			return nil
		}
		return a.checkpoint(true)

	case event.TypeEnd:
		return a.finish()

	case event.TypeError:
		a.reset()
		return nil
	}
	return nil
}

// Flush finalizes the in-flight turn as if an end event had arrived.
// The session lifecycle controller calls it on every session handoff so
// streamed content is not silently dropped mid-turn.
func (a *Aggregator) Flush() []Effect {
	return a.finish()
}

func (a *Aggregator) begin() {
	if a.active {
		return
	}
	a.active = true
	a.startedAt = a.now()
}

// complete binds a result to the last pending tool call with a matching
// name. The backend does not echo call ids, so name matching is the
// best available pairing; two in-flight calls to the same tool remain
// ambiguous and resolve newest-first.
func (a *Aggregator) complete(name string, result json.RawMessage, success *bool) bool {
	for i := len(a.toolCalls) - 1; i >= 0; i-- {
		tc := &a.toolCalls[i]
		if tc.Name == name && tc.Result == nil {
			tc.Result = cloneRaw(result)
			tc.Success = success
			return true
		}
	}
	return false
}

func (a *Aggregator) checkpoint(force bool) []Effect {
	if a.empty() {
		return nil
	}
	if !force && a.now().Sub(a.lastCheckpoint) < a.interval {
		return nil
	}
	if a.messageID == "" {
		a.messageID = a.newID()
	}
	a.lastCheckpoint = a.now()
	return []Effect{{Kind: EffectCheckpoint, Message: a.snapshot(true)}}
}

func (a *Aggregator) finish() []Effect {
	if a.empty() {
		// duplicate end, or a turn that never produced anything
		a.reset()
		return nil
	}
	if a.messageID == "" {
		a.messageID = a.newID()
	}
	msg := a.snapshot(false)
	a.reset()
	return []Effect{{Kind: EffectFinalize, Message: msg}}
}

// snapshot copies the live buffers into a message. The final message is
// always built from the buffers, not from the last checkpoint, so text
// appended between the last checkpoint and the end event is captured.
func (a *Aggregator) snapshot(partial bool) chat.Message {
	var calls chat.ToolCalls
	if len(a.toolCalls) > 0 {
		calls = append(chat.ToolCalls(nil), a.toolCalls...)
	}
	return chat.Message{
		MessageID: a.messageID,
		Role:      chat.RoleAssistant,
		Content:   a.content.String(),
		Thinking:  a.thinking.String(),
		ToolCalls: calls,
		IsPartial: partial,
		CreatedAt: a.startedAt,
	}
}

func (a *Aggregator) empty() bool {
	return a.content.Len() == 0 && a.thinking.Len() == 0 && len(a.toolCalls) == 0
}

func (a *Aggregator) reset() {
	a.active = false
	a.content.Reset()
	a.thinking.Reset()
	a.toolCalls = nil
	a.messageID = ""
	a.startedAt = time.Time{}
	a.lastCheckpoint = time.Time{}
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}
