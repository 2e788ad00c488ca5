package stream

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/suPer8Hu/edge-chat-bridge/internal/chat"
	"github.com/suPer8Hu/edge-chat-bridge/internal/common"
	"github.com/suPer8Hu/edge-chat-bridge/internal/event"
	"github.com/suPer8Hu/edge-chat-bridge/internal/transport"
)

// SessionCreator is the remote session API, used as a fallback when a
// message is sent before the backend has assigned a session.
type SessionCreator interface {
	CreateSession(ctx context.Context) (string, error)
}

// Publisher receives passthrough telemetry frames the chat core does
// not interpret.
type Publisher interface {
	PublishDeviceUpdate(ctx context.Context, frame []byte) error
}

// Controller owns the active session id and drives the streaming
// aggregator from the transport's event channel. It is the single
// consumer of that channel and the single writer of the session id into
// the transport, so every id change - server- or client-initiated -
// flows through the same handoff: flush the in-flight turn into the old
// session, reset accumulation, rescope the store.
type Controller struct {
	ch   transport.Channel
	repo *chat.Repo
	agg  *Aggregator
	api  SessionCreator

	// optional collaborators, set before Run
	Publisher Publisher
	// OnError receives protocol error text for user-visible reporting.
	OnError func(message string)
	// OnSessionChange observes every applied session id change.
	OnSessionChange func(sessionID string)

	// mu serializes event handling with client-initiated calls
	// (Send / SelectSession), so no two events' effects interleave.
	mu      sync.Mutex
	session string
}

func NewController(ch transport.Channel, repo *chat.Repo, api SessionCreator, agg *Aggregator) *Controller {
	if agg == nil {
		agg = NewAggregator(DefaultCheckpointInterval)
	}
	return &Controller{ch: ch, repo: repo, agg: agg, api: api}
}

// Session returns the active session id, or "" when none is assigned.
func (c *Controller) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Run consumes transport events until the context is canceled or the
// channel closes. Each event is handled to completion before the next
// is taken. On shutdown any in-flight turn is flushed so streamed
// content survives a restart.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.executeLocked(context.Background(), c.session, c.agg.Flush())
			c.mu.Unlock()
			return ctx.Err()
		case ev, ok := <-c.ch.Events():
			if !ok {
				c.mu.Lock()
				c.executeLocked(context.Background(), c.session, c.agg.Flush())
				c.mu.Unlock()
				return nil
			}
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Classify(ev, c.session) {
	case event.ClassLifecycle:
		c.applySessionLocked(ctx, ev.SessionID)

	case event.ClassDelta:
		c.executeLocked(ctx, c.session, c.agg.Apply(ev))

	case event.ClassTerminal:
		if ev.Type == event.TypeError {
			// abort the turn; nothing is stored
			c.agg.Apply(ev)
			log.Printf("assistant error session=%s: %s", c.session, ev.Message)
			if c.OnError != nil {
				c.OnError(ev.Message)
			}
			return
		}
		c.executeLocked(ctx, c.session, c.agg.Apply(ev))

	case event.ClassResponse:
		c.storeResponseLocked(ctx, ev)

	case event.ClassPassthrough:
		if c.Publisher == nil {
			return
		}
		if err := c.Publisher.PublishDeviceUpdate(ctx, ev.Raw); err != nil {
			log.Printf("publish device update failed device=%s err=%v", ev.DeviceID, err)
		}
	}
}

// applySessionLocked performs the session handoff. Flushing before the
// id change means in-flight content finalizes under the old session;
// the aggregator is empty by the time the new session accepts events.
func (c *Controller) applySessionLocked(ctx context.Context, id string) {
	if id == "" || id == c.session {
		return
	}

	old := c.session
	effects := c.agg.Flush()
	if old != "" {
		c.executeLocked(ctx, old, effects)
	}

	c.session = id
	c.ch.SetSessionID(id)

	if err := c.repo.EnsureSession(ctx, id); err != nil {
		log.Printf("ensure session %s failed: %v", id, err)
	}
	if c.OnSessionChange != nil {
		c.OnSessionChange(id)
	}
}

// executeLocked writes aggregator effects into the store, scoped to the
// given session. Store failures are logged, never propagated back into
// event processing.
func (c *Controller) executeLocked(ctx context.Context, sessionID string, effects []Effect) {
	if len(effects) == 0 {
		return
	}
	if sessionID == "" {
		log.Printf("dropping %d effect(s): no active session", len(effects))
		return
	}
	for _, ef := range effects {
		msg := ef.Message
		msg.SessionID = sessionID
		if err := c.repo.UpsertMessage(ctx, &msg); err != nil {
			log.Printf("store message %s failed: %v", msg.MessageID, err)
			continue
		}
		if ef.Kind == EffectFinalize {
			if err := c.repo.TouchSession(ctx, sessionID); err != nil {
				log.Printf("touch session %s failed: %v", sessionID, err)
			}
		}
	}
}

// storeResponseLocked persists a synchronous (non-streamed) assistant
// reply. These are the only assistant messages created final directly.
func (c *Controller) storeResponseLocked(ctx context.Context, ev event.Event) {
	if c.session == "" {
		log.Printf("dropping synchronous response: no active session")
		return
	}
	id, err := common.NewULID()
	if err != nil {
		id = uuid.NewString()
	}
	m := &chat.Message{
		MessageID: id,
		SessionID: c.session,
		Role:      chat.RoleAssistant,
		Content:   ev.Content,
		IsPartial: false,
	}
	if err := c.repo.InsertMessage(ctx, m); err != nil {
		log.Printf("store response failed: %v", err)
	}
}

// SelectSession applies a user-initiated session switch. The transport
// learns the new id as part of the same handoff.
func (c *Controller) SelectSession(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("empty session id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, id)
	return nil
}

// CreateSession asks the remote API for a fresh session and switches to it.
func (c *Controller) CreateSession(ctx context.Context) (string, error) {
	id, err := c.api.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, id)
	return id, nil
}

// Send persists the user message and hands it to the transport. With no
// session assigned yet it first creates one via the remote API; if that
// fails the send is aborted and the caller keeps the input for retry.
func (c *Controller) Send(ctx context.Context, text string, attachments []transport.Attachment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == "" {
		id, err := c.api.CreateSession(ctx)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		c.applySessionLocked(ctx, id)
	}

	id, err := common.NewULID()
	if err != nil {
		id = uuid.NewString()
	}
	m := &chat.Message{
		MessageID: id,
		SessionID: c.session,
		Role:      chat.RoleUser,
		Content:   text,
		IsPartial: false,
	}
	if err := c.repo.InsertMessage(ctx, m); err != nil {
		return err
	}
	if err := c.repo.TouchSession(ctx, c.session); err != nil {
		log.Printf("touch session %s failed: %v", c.session, err)
	}
	return c.ch.Send(text, attachments)
}
