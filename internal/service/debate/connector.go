package debate

import (
	"context"

	"github.com/personarena/backend/internal/config"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/realtime"
)

// realtimeConnector adapts the realtime dialer to the Connector
// contract.
type realtimeConnector struct {
	dialer realtime.Dialer
}

// NewRealtimeConnector builds the production connector from the
// realtime configuration.
func NewRealtimeConnector(cfg config.RealtimeConfig) Connector {
	return &realtimeConnector{
		dialer: realtime.Dialer{
			URL:      cfg.URL,
			Attempts: cfg.DialAttempts,
			Delay:    cfg.DialDelay,
		},
	}
}

func (c *realtimeConnector) Connect(ctx context.Context) (Connection, error) {
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return &realtimeConnection{conn: conn}, nil
}

type realtimeConnection struct {
	conn *realtime.Conn
}

func (c *realtimeConnection) OnMessage(handler func(sessionID string, message debate.Message)) {
	c.conn.OnMessage(realtime.MessageHandler(handler))
}

func (c *realtimeConnection) JoinRoom(sessionID string) error {
	return c.conn.JoinRoom(sessionID)
}

func (c *realtimeConnection) Publish(sessionID string, message debate.Message) error {
	return c.conn.Publish(sessionID, message)
}

func (c *realtimeConnection) Close() error {
	return c.conn.Close()
}
