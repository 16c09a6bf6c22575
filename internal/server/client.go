package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outgoing messages buffered per client before new ones are dropped
	sendBuffer = 256
)

// client is one connected websocket peer
type client struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	mu   sync.Mutex
	subs map[uint16]struct{}
}

func newClient(conn *websocket.Conn, remoteAddr string) *client {
	return &client{
		conn:       conn,
		remoteAddr: remoteAddr,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		subs:       make(map[uint16]struct{}),
	}
}

func (c *client) subscribe(ids []uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.subs[id] = struct{}{}
	}
}

func (c *client) subscribed(id uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[id]
	return ok
}

// enqueue queues env for the write pump. It never blocks.
func (c *client) enqueue(env protocol.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		logging.Error("Failed to encode envelope", zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
		logging.LogEnvelope("sent", env.Type, env.Command, env.Data)
	default:
		logging.Warn("Send buffer full, dropping message",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("type", protocol.MessageTypeName(env.Type)),
		)
	}
}

// close sends a close frame and releases the socket. Safe to call more
// than once.
func (c *client) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

// readPump reads envelopes until the connection fails. Frames that are not
// valid envelopes are logged and skipped.
func (c *client) readPump(handle func(*client, protocol.Envelope)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading frame",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			logging.Warn("Ignoring malformed frame",
				zap.String("remote_addr", c.remoteAddr),
				zap.Error(err),
			)
			logging.LogRawBytes("Malformed frame", data)
			continue
		}
		logging.LogEnvelope("received", env.Type, env.Command, env.Data)
		handle(c, env)
	}
}

// writePump owns all writes to the connection: queued envelopes, pings and
// heartbeats.
func (c *client) writePump(heartbeatInterval time.Duration) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	beat := time.NewTicker(heartbeatInterval)
	defer beat.Stop()

	write := func(messageType int, data []byte) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(messageType, data); err != nil {
			logging.Debug("Write failed",
				zap.String("remote_addr", c.remoteAddr),
				zap.Error(err),
			)
			return false
		}
		return true
	}

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if !write(websocket.TextMessage, data) {
				return
			}
		case <-ping.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		case <-beat.C:
			data, err := heartbeat().Marshal()
			if err != nil {
				continue
			}
			if !write(websocket.TextMessage, data) {
				return
			}
		}
	}
}
