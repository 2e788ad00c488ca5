package transport

import (
	"context"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suPer8Hu/edge-chat-bridge/internal/event"
)

// WSChannel is the gorilla/websocket implementation of Channel. It
// redials with capped exponential backoff after a read failure; a
// reconnect does not touch the events channel, so the consumer keeps
// its accumulated turn state across transport drops.
type WSChannel struct {
	url          string
	reconnectMin time.Duration
	reconnectMax time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	session  string
	state    State
	stateFns []func(State)
	closed   bool

	events chan event.Event
	done   chan struct{}
}

func NewWSChannel(rawURL string, reconnectMin, reconnectMax time.Duration) *WSChannel {
	if reconnectMin <= 0 {
		reconnectMin = 500 * time.Millisecond
	}
	if reconnectMax < reconnectMin {
		reconnectMax = 30 * time.Second
	}
	return &WSChannel{
		url:          rawURL,
		reconnectMin: reconnectMin,
		reconnectMax: reconnectMax,
		events:       make(chan event.Event, 64),
		done:         make(chan struct{}),
	}
}

// Connect dials the backend once synchronously so startup failures are
// visible to the caller, then keeps the connection alive in the
// background until Close.
func (c *WSChannel) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.setConn(conn)
	c.setState(StateConnected)
	go c.run(ctx, conn)
	return nil
}

func (c *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, err
	}
	if sid := c.SessionID(); sid != "" {
		q := u.Query()
		q.Set("session_id", sid)
		u.RawQuery = q.Encode()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// run reads frames until the connection fails, then redials with
// backoff. It is the only sender on c.events and closes it on exit.
func (c *WSChannel) run(ctx context.Context, conn *websocket.Conn) {
	defer close(c.events)

	for {
		c.readLoop(conn)

		c.setConn(nil)
		c.setState(StateDisconnected)

		conn = c.redial(ctx)
		if conn == nil {
			return
		}
		c.setConn(conn)
		c.setState(StateConnected)
	}
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Printf("transport read error: %v", err)
			}
			return
		}

		ev, err := event.Decode(data)
		if err != nil {
			log.Printf("transport bad frame: %v", err)
			continue
		}

		// answer server heartbeats inline; they never reach the consumer
		if ev.Type == event.TypePing {
			_ = c.writeJSON(map[string]string{"type": event.TypePong})
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *WSChannel) redial(ctx context.Context) *websocket.Conn {
	backoff := c.reconnectMin
	for {
		if c.isClosed() {
			return nil
		}
		c.setState(StateConnecting)

		conn, err := c.dial(ctx)
		if err == nil {
			return conn
		}
		log.Printf("transport redial failed, retrying in %s: %v", backoff, err)

		select {
		case <-time.After(backoff):
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		}

		backoff *= 2
		if backoff > c.reconnectMax {
			backoff = c.reconnectMax
		}
	}
}

// Send writes a chat request carrying the current session id.
func (c *WSChannel) Send(text string, attachments []Attachment) error {
	return c.writeJSON(chatRequest{
		Message:   text,
		SessionID: c.SessionID(),
		Images:    attachments,
	})
}

func (c *WSChannel) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(v)
}

func (c *WSChannel) Events() <-chan event.Event { return c.events }

func (c *WSChannel) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFns = append(c.stateFns, fn)
}

func (c *WSChannel) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = id
}

func (c *WSChannel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *WSChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

func (c *WSChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *WSChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *WSChannel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *WSChannel) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	fns := append([]func(State){}, c.stateFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
