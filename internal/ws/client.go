package ws

import (
	"context"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	sendQueue    = 64
	pingInterval = 15 * time.Second
	writeTimeout = 10 * time.Second
)

// Client is one websocket connection. Its id is the participant id used by
// the rooms.
type Client struct {
	id string
	// requestID ties the client's log lines to the upgrade request.
	requestID string
	conn      *websocket.Conn
	send      chan []byte
}

// writePump drains the send queue until it is closed, pinging while idle.
func (c *Client) writePump(ctx context.Context, log *zap.Logger) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Debug("write failed", zap.String("client", c.id), zap.Error(err))
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("ping failed", zap.String("client", c.id), zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
