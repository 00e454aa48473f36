package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/personarena/backend/internal/model/debate"
)

// ErrConnectionFailed marks a transport that could not be established
// within the configured attempt budget.
var ErrConnectionFailed = errors.New("connection failed")

// MessageHandler receives one delivered debate message per invocation.
type MessageHandler func(sessionID string, message debate.Message)

// Dialer establishes client connections to the broadcast relay with a
// bounded number of attempts and a short fixed delay between them.
type Dialer struct {
	URL      string
	Attempts int
	Delay    time.Duration
}

// Dial connects to the relay, retrying up to Attempts times. It never
// retries indefinitely; the last dial error is carried inside
// ErrConnectionFailed.
func (d Dialer) Dial(ctx context.Context) (*Conn, error) {
	attempts := d.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && d.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, ctx.Err())
			case <-time.After(d.Delay):
			}
		}

		ws, _, err := websocket.DefaultDialer.DialContext(ctx, d.URL, nil)
		if err == nil {
			conn := &Conn{ws: ws, done: make(chan struct{})}
			go conn.readLoop()
			return conn, nil
		}
		lastErr = err
		log.Printf("[realtime] dial attempt %d/%d failed: %v", i+1, attempts, err)
	}

	return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, lastErr)
}

// Conn is one client connection to the relay. A client holds at most
// one at a time; closing it leaves every joined room.
type Conn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	handlerMu sync.RWMutex
	handler   MessageHandler
	done      chan struct{}
	closeOnce sync.Once
}

// OnMessage registers the handler invoked once per delivered message.
// Register it before joining a room so nothing is dropped.
func (c *Conn) OnMessage(handler MessageHandler) {
	c.handlerMu.Lock()
	c.handler = handler
	c.handlerMu.Unlock()
}

// JoinRoom asks the relay to add this connection to the session's room.
func (c *Conn) JoinRoom(sessionID string) error {
	return c.write(newEnvelope(EventJoinDebate, debate.RoomID(sessionID), nil))
}

// Publish sends a debate message to every other member of the
// session's room.
func (c *Conn) Publish(sessionID string, message debate.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode debate message: %w", err)
	}
	return c.write(newEnvelope(EventDebateMessage, debate.RoomID(sessionID), data))
}

// Close releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

func (c *Conn) readLoop() {
	defer c.Close()

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[realtime] read error: %v", err)
			}
			return
		}

		if env.Type != EventDebateMessage {
			continue
		}

		var message debate.Message
		if err := json.Unmarshal(env.Data, &message); err != nil {
			log.Printf("[realtime] dropping malformed debate message: %v", err)
			continue
		}

		c.handlerMu.RLock()
		handler := c.handler
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(env.SessionID, message)
		}
	}
}
