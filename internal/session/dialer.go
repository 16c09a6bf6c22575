package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes used by the session
const (
	CloseNormal   = websocket.CloseNormalClosure   // 1000
	CloseAbnormal = websocket.CloseAbnormalClosure // 1006
)

// DefaultHandshakeTimeout bounds the websocket opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// Conn is one open websocket carrying text frames.
type Conn interface {
	// ReadMessage blocks until the next data frame arrives. It returns a
	// *websocket.CloseError when the peer sent a close frame.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	// Close sends a close frame with code and reason, then releases the
	// socket. It unblocks a pending ReadMessage.
	Close(code int, reason string) error
}

// Dialer opens a Conn to url. Cancelling ctx aborts an in-flight dial.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer is the gorilla/websocket Dialer.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	TLSClientConfig  *tls.Config
}

// Dial implements Dialer
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		TLSClientConfig:  d.TLSClientConfig,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s: %w (HTTP %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		// The controller only sends JSON text frames; tolerate binary too.
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
