package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/event"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/protocol"
)

// State is the socket readiness of a Session.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// CloseEvent describes how a connection ended.
type CloseEvent struct {
	Code     int
	Reason   string
	WasClean bool
	// ReconnectAttempt is the attempt scheduled after this close, or 0
	// when no reconnect follows.
	ReconnectAttempt int
	ReconnectDelay   time.Duration
}

// Timer is a pending reconnect.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// WithAfterFunc's adapter.
type AfterFunc func(d time.Duration, f func()) Timer

// Config holds the connection settings.
type Config struct {
	// URL is the full websocket URL. When empty it is derived from Host.
	URL string
	// Host is host[:port] of the controller.
	Host string
	// Secure selects wss when deriving the URL.
	Secure bool
	// DisableAutoReconnect stops Connect from enabling reconnects. By
	// default a reconnect is scheduled after every close until Disconnect.
	DisableAutoReconnect bool
	HandshakeTimeout     time.Duration
}

// DefaultConfig returns a Config for host with reconnects enabled.
func DefaultConfig(host string) Config {
	return Config{
		Host:             host,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// DeriveURL builds the controller websocket URL for host.
func DeriveURL(host string, secure bool) string {
	scheme := "ws://"
	if secure {
		scheme = "wss://"
	}
	return scheme + host + "/ws"
}

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithAfterFunc replaces the reconnect timer source.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Session) { s.afterFunc = fn }
}

// Session is one logical connection to the controller.
type Session struct {
	url       string
	reconnect bool
	dialer    Dialer
	afterFunc AfterFunc

	mu            sync.Mutex
	state         State
	conn          Conn
	gen           uint64
	cancelDial    context.CancelFunc
	userClosed    bool
	autoReconnect bool
	attempt       int
	timer         Timer
	timerSeq      uint64

	// writeMu serializes frames on the socket.
	writeMu sync.Mutex
	// dispatchMu keeps handler dispatch single-threaded across a
	// superseded connection goroutine and its successor.
	dispatchMu sync.Mutex

	messages event.Bus[protocol.Envelope]
	opens    event.Bus[struct{}]
	closes   event.Bus[CloseEvent]
	errs     event.Bus[error]
}

// New creates a Session. It does not connect.
func New(cfg Config, opts ...Option) *Session {
	url := cfg.URL
	if url == "" {
		url = DeriveURL(cfg.Host, cfg.Secure)
	}

	s := &Session{
		url:       url,
		reconnect: !cfg.DisableAutoReconnect,
		dialer:    &WebsocketDialer{HandshakeTimeout: cfg.HandshakeTimeout},
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		messages:  event.Bus[protocol.Envelope]{Name: "message"},
		opens:     event.Bus[struct{}]{Name: "open"},
		closes:    event.Bus[CloseEvent]{Name: "close"},
		errs:      event.Bus[error]{Name: "error"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the websocket URL the session dials.
func (s *Session) URL() string {
	return s.url
}

// Connect starts connecting unless the session is already open or
// connecting. It re-enables auto-reconnect and cancels a pending reconnect.
func (s *Session) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoReconnect = s.reconnect
	s.stopTimerLocked()

	if s.state == StateOpen || s.state == StateConnecting {
		logging.Debug("Already connected or connecting", zap.String("url", s.url))
		return
	}

	s.startLocked()
}

func (s *Session) startLocked() {
	s.gen++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelDial = cancel
	s.state = StateConnecting
	s.conn = nil
	s.userClosed = false

	logging.LogConnection(s.url, "connecting", zap.Int("attempt", s.attempt))
	go s.run(ctx, cancel, s.gen)
}

// Disconnect disables auto-reconnect and closes the socket with code 1000.
// An in-flight dial is cancelled. No reconnect is scheduled until the next
// Connect.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.autoReconnect = false
	s.attempt = 0
	s.stopTimerLocked()
	if s.cancelDial != nil {
		s.cancelDial()
	}
	conn := s.conn
	if s.state == StateConnecting || s.state == StateOpen {
		s.state = StateClosing
		s.userClosed = true
	}
	s.mu.Unlock()

	if conn == nil {
		return
	}

	s.writeMu.Lock()
	err := conn.Close(CloseNormal, "client disconnect")
	s.writeMu.Unlock()
	if err != nil {
		logging.Debug("Error closing websocket", zap.Error(err))
	}
}

// Send writes env when the session is open. Otherwise it logs and drops it.
func (s *Session) Send(env protocol.Envelope) {
	s.mu.Lock()
	conn := s.conn
	open := s.state == StateOpen
	s.mu.Unlock()

	if !open || conn == nil {
		logging.Warn("Cannot send, websocket not open",
			zap.String("message_type", protocol.MessageTypeName(env.Type)),
			zap.Uint8("command", env.Command),
		)
		return
	}

	if err := s.write(conn, env); err != nil {
		logging.Warn("Send error", zap.Error(err))
	}
}

// SubscribeToSignals sends one subscription request for ids in order.
// An empty list sends nothing.
func (s *Session) SubscribeToSignals(ids []uint16) {
	if len(ids) == 0 {
		logging.Debug("No signals to subscribe")
		return
	}
	logging.Info("Subscribing to signals", zap.Int("count", len(ids)))
	s.Send(protocol.BuildSubscription(ids))
}

// IsConnected reports whether the socket is open.
func (s *Session) IsConnected() bool {
	return s.State() == StateOpen
}

// State returns the current socket state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReconnectAttempt returns the attempt counter of the pending or last
// reconnect. It resets to 0 on open and on Disconnect.
func (s *Session) ReconnectAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// OnMessage registers a handler for every parsed incoming envelope.
func (s *Session) OnMessage(fn func(protocol.Envelope)) func() {
	return s.messages.Subscribe(fn)
}

// OnOpen registers a handler called after the handshake on every open.
func (s *Session) OnOpen(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return s.opens.Subscribe(func(struct{}) { fn() })
}

// OnClose registers a handler called when a connection ends.
func (s *Session) OnClose(fn func(CloseEvent)) func() {
	return s.closes.Subscribe(fn)
}

// OnError registers a handler for transport errors.
func (s *Session) OnError(fn func(error)) func() {
	return s.errs.Subscribe(fn)
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	conn, err := s.dialer.Dial(ctx, s.url)
	if err != nil {
		if !s.isCurrent(gen) {
			return
		}
		s.markClosed(gen)
		if ctx.Err() != nil {
			s.closeAndReconnect(gen, CloseEvent{Code: CloseNormal, Reason: "client disconnect", WasClean: true})
		} else {
			logging.LogConnection(s.url, "dial failed", zap.Error(err))
			s.publishError(err)
			s.closeAndReconnect(gen, CloseEvent{Code: CloseAbnormal, Reason: err.Error()})
		}
		return
	}

	// Hold writeMu across the state change so the handshake is the first
	// frame on the socket.
	s.writeMu.Lock()
	s.mu.Lock()
	if gen != s.gen || s.state != StateConnecting {
		current := gen == s.gen
		if current {
			s.state = StateClosed
		}
		s.mu.Unlock()
		_ = conn.Close(CloseNormal, "client disconnect")
		s.writeMu.Unlock()
		if current {
			s.publishClose(CloseEvent{Code: CloseNormal, Reason: "client disconnect", WasClean: true})
		}
		return
	}
	s.conn = conn
	s.state = StateOpen
	s.attempt = 0
	s.stopTimerLocked()
	s.mu.Unlock()

	logging.LogConnection(s.url, "connected")
	if err := s.writeLocked(conn, protocol.BuildHandshake()); err != nil {
		logging.Warn("Failed to send handshake", zap.Error(err))
	}
	s.writeMu.Unlock()

	s.dispatch(func() { s.opens.Publish(struct{}{}) })

	closeEvt := s.readLoop(conn, gen)

	s.mu.Lock()
	current := gen == s.gen
	if current {
		if s.userClosed {
			closeEvt = CloseEvent{Code: CloseNormal, Reason: "client disconnect", WasClean: true}
		}
		s.conn = nil
		s.state = StateClosed
	}
	s.mu.Unlock()

	if !current {
		return
	}

	logging.LogConnection(s.url, "closed",
		zap.Int("code", closeEvt.Code),
		zap.String("reason", closeEvt.Reason),
		zap.Bool("was_clean", closeEvt.WasClean),
	)
	s.closeAndReconnect(gen, closeEvt)
}

// closeAndReconnect arms the reconnect timer, then tells close handlers
// which attempt is pending.
func (s *Session) closeAndReconnect(gen uint64, evt CloseEvent) {
	evt.ReconnectAttempt, evt.ReconnectDelay = s.scheduleReconnect(gen)
	s.publishClose(evt)
}

// readLoop reads until the socket fails and returns the resulting close.
func (s *Session) readLoop(conn Conn, gen uint64) CloseEvent {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return s.closeEventFor(err, gen)
		}

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			logging.Warn("Failed to parse message",
				zap.Error(err),
				zap.Int("bytes", len(data)),
			)
			logging.LogRawBytes("Malformed frame", data)
			continue
		}
		logging.LogEnvelope("received", env.Type, env.Command, env.Data)

		if env.IsHeartbeat() {
			if err := s.write(conn, protocol.BuildHeartbeatAck()); err != nil {
				logging.Warn("Failed to acknowledge heartbeat", zap.Error(err))
			}
		}

		s.dispatch(func() { s.messages.Publish(env) })
	}
}

// closeEventFor maps a read error to a close event. A superseded
// connection was always closed by Disconnect, so only a failure of the
// current connection can be a transport error.
func (s *Session) closeEventFor(err error, gen uint64) CloseEvent {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseEvent{Code: ce.Code, Reason: ce.Text, WasClean: ce.Code != CloseAbnormal}
	}

	s.mu.Lock()
	userClosed := s.userClosed || gen != s.gen
	s.mu.Unlock()
	if !userClosed {
		s.publishError(err)
	}
	return CloseEvent{Code: CloseAbnormal, Reason: err.Error()}
}

func (s *Session) write(conn Conn, env protocol.Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(conn, env)
}

func (s *Session) writeLocked(conn Conn, env protocol.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", protocol.MessageTypeName(env.Type), err)
	}
	logging.LogEnvelope("sent", env.Type, env.Command, env.Data)
	return nil
}

// scheduleReconnect arms the reconnect timer and returns the attempt and
// delay, or zeros when no reconnect is scheduled.
func (s *Session) scheduleReconnect(gen uint64) (int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return 0, 0
	}
	if !s.autoReconnect {
		logging.Debug("Auto-reconnect disabled; skipping reconnect")
		return 0, 0
	}

	if s.attempt < MaxReconnectAttempt {
		s.attempt++
	}
	delay := ReconnectDelay(s.attempt)
	logging.LogConnection(s.url, "reconnect scheduled",
		zap.Int("attempt", s.attempt),
		zap.Duration("delay", delay),
	)

	s.stopTimerLocked()
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.afterFunc(delay, func() { s.fireReconnect(seq) })
	return s.attempt, delay
}

func (s *Session) fireReconnect(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.timerSeq || s.timer == nil {
		return
	}
	s.timer = nil
	if !s.autoReconnect || s.state == StateOpen || s.state == StateConnecting {
		return
	}
	s.startLocked()
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Session) markClosed(gen uint64) {
	s.mu.Lock()
	if gen == s.gen {
		s.state = StateClosed
		s.conn = nil
	}
	s.mu.Unlock()
}

func (s *Session) dispatch(fn func()) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	fn()
}

func (s *Session) publishClose(evt CloseEvent) {
	s.dispatch(func() { s.closes.Publish(evt) })
}

func (s *Session) publishError(err error) {
	s.dispatch(func() { s.errs.Publish(err) })
}
