package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/discovery"
	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/protocol"
)

const (
	// DefaultHeartbeatInterval is how often clients receive a heartbeat
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultInstance is the mDNS instance name when advertising
	DefaultInstance = "EmpirBus Simulator"
)

// Config holds the simulator configuration
type Config struct {
	Addr     string           // Listen address, e.g. ":8080"
	Hardware *hardware.Config // Outputs to simulate; nil means none

	HeartbeatInterval time.Duration // 0 = DefaultHeartbeatInterval
	SensorInterval    time.Duration // How often value signals drift; 0 = never

	Advertise bool   // Announce the simulator over mDNS
	Instance  string // mDNS instance name; "" = DefaultInstance
}

// Server is a simulated EmpirBus controller
type Server struct {
	config   *Config
	state    *state
	upgrader websocket.Upgrader

	httpServer *http.Server
	mdns       *zeroconf.Server
	wg         sync.WaitGroup

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New creates a simulator. It does not listen until ListenAndServe.
func New(config *Config) *Server {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if config.Instance == "" {
		config.Instance = DefaultInstance
	}
	return &Server{
		config: config,
		state:  newState(config.Hardware),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving the websocket and the
// configuration documents.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/configuration/hardware-config.json", s.handleHardware)
	mux.HandleFunc("/schema.json", s.handleSchema)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Simulated controller listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("outputs", s.outputCount()),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		if err := s.advertise(port); err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	if s.config.SensorInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.driftSensors(ctx)
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping simulator...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// advertise registers the simulator as an _http._tcp service.
func (s *Server) advertise(port int) error {
	txt := []string{"path=/ws", "model=simulator"}
	mdns, err := zeroconf.Register(s.config.Instance, discovery.ServiceType, discovery.ServiceDomain, port, txt, nil)
	if err != nil {
		return err
	}
	s.mdns = mdns
	logging.Info("Advertising over mDNS",
		zap.String("instance", s.config.Instance),
		zap.Int("port", port),
	)
	return nil
}

// Shutdown closes every client and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mdns != nil {
		s.mdns.Shutdown()
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Hijacked websocket connections are not tracked by http.Server
	s.mu.Lock()
	for c := range s.clients {
		logging.Info("Closing active connection", zap.String("remote_addr", c.remoteAddr))
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}
	return err
}

// GetActiveConnections returns the number of connected clients
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) outputCount() int {
	if s.config.Hardware == nil {
		return 0
	}
	return len(s.config.Hardware.Outputs)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := newClient(conn, r.RemoteAddr)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	logging.LogConnection(c.remoteAddr, "connection_accepted")

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.writePump(s.config.HeartbeatInterval)
	}()
	go func() {
		defer s.wg.Done()
		defer s.remove(c)
		c.readPump(s.handleMessage)
	}()
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close(websocket.CloseNormalClosure, "")
	logging.LogConnection(c.remoteAddr, "connection_closed")
}

// handleMessage dispatches one envelope received from c.
func (s *Server) handleMessage(c *client, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeSystemRequest:
		logging.Debug("Info request", zap.String("remote_addr", c.remoteAddr))
		c.enqueue(envelope(protocol.TypeAcknowledgement, protocol.CmdAck, []byte{0}))

	case protocol.TypeSubscription:
		ids := subscriptionIDs(env)
		c.subscribe(ids)
		logging.Info("Client subscribed",
			zap.String("remote_addr", c.remoteAddr),
			zap.Int("signals", len(ids)),
		)
		for _, id := range ids {
			c.enqueue(s.state.status(id))
		}

	case protocol.TypeDeviceCommand:
		for _, st := range s.state.apply(env) {
			s.broadcast(st)
		}

	case protocol.TypeAcknowledgement:
		logging.Debug("Heartbeat acknowledged", zap.String("remote_addr", c.remoteAddr))

	default:
		logging.Warn("Unhandled message",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("type", protocol.MessageTypeName(env.Type)),
			zap.Uint8("cmd", env.Command),
		)
	}
}

// broadcast sends a status message to every client subscribed to its id.
func (s *Server) broadcast(env protocol.Envelope) {
	id, ok := protocol.DecodeSignalID(env.Data)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if c.subscribed(id) {
			c.enqueue(env)
		}
	}
}

// driftSensors moves every value signal by a small random step.
func (s *Server) driftSensors(ctx context.Context) {
	ticker := time.NewTicker(s.config.SensorInterval)
	defer ticker.Stop()

	readings := make(map[uint16]int)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range s.state.valueIDs() {
				v := readings[id] + rand.Intn(21) - 10
				if v < 0 {
					v = 0
				}
				if v > 0xFFFF {
					v = 0xFFFF
				}
				readings[id] = v
				s.broadcast(s.state.setReading(id, uint16(v)))
			}
		}
	}
}

func (s *Server) handleHardware(w http.ResponseWriter, r *http.Request) {
	hw := s.config.Hardware
	if hw == nil {
		hw = &hardware.Config{Outputs: []hardware.Output{}}
	}
	writeJSON(w, hw)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	hw := s.config.Hardware
	if hw == nil {
		hw = &hardware.Config{Outputs: []hardware.Output{}}
	}
	writeJSON(w, map[string]any{"hardware": hw})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to write response", zap.Error(err))
	}
}
