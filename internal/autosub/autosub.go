package autosub

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/logging"
)

// DefaultLoadTimeout bounds one Loader call.
const DefaultLoadTimeout = 10 * time.Second

// Session is the part of session.Session the subscriber needs.
type Session interface {
	IsConnected() bool
	SubscribeToSignals(ids []uint16)
	OnOpen(fn func()) func()
}

// Loader supplies the controller's full hardware config. It is preferred
// over the schema hardware when it succeeds.
type Loader interface {
	LoadHardware(ctx context.Context) (*hardware.Config, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*hardware.Config, error)

// LoadHardware implements Loader
func (f LoaderFunc) LoadHardware(ctx context.Context) (*hardware.Config, error) {
	return f(ctx)
}

// ExtractSignalIDs returns every signal id cfg references, ascending and
// without duplicates. It reads each output's signalId and its toggle,
// momentary, dimmer and value signals.
func ExtractSignalIDs(cfg *hardware.Config) []uint16 {
	if cfg == nil {
		return []uint16{}
	}

	seen := make(map[uint16]struct{})
	add := func(p *uint16) {
		if p != nil {
			seen[*p] = struct{}{}
		}
	}
	for _, out := range cfg.Outputs {
		add(out.SignalID)
		if s := out.Signals; s != nil {
			add(s.Toggle)
			add(s.Momentary)
			add(s.Dimmer)
			add(s.Value)
		}
	}

	ids := make([]uint16, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithLoader loads the controller hardware config before each
// subscription, falling back to the schema hardware on error.
func WithLoader(l Loader) Option {
	return func(s *Subscriber) { s.loader = l }
}

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Subscriber) { s.timeout = d }
}

// Subscriber sends the subscription request for a hardware config.
type Subscriber struct {
	session Session
	schema  *hardware.Config
	loader  Loader
	timeout time.Duration

	wg sync.WaitGroup
}

// New creates a Subscriber for the schema hardware config.
func New(session Session, schema *hardware.Config, opts ...Option) *Subscriber {
	s := &Subscriber{
		session: session,
		schema:  schema,
		timeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubscribeToSchemaSignals subscribes when the session is open and logs
// otherwise. With a Loader the load and subscribe run in the background.
func (s *Subscriber) SubscribeToSchemaSignals() {
	if !s.session.IsConnected() {
		logging.Warn("Cannot subscribe, websocket not connected")
		return
	}

	if s.loader == nil {
		s.subscribe(s.schema, "schema")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		cfg, err := s.loader.LoadHardware(ctx)
		if err != nil {
			logging.Warn("Could not load hardware config, falling back to schema signals", zap.Error(err))
			s.subscribe(s.schema, "schema")
			return
		}
		logging.Info("Loaded hardware config", zap.Int("outputs", len(cfg.Outputs)))
		s.subscribe(cfg, "hardware-config")
	}()
}

func (s *Subscriber) subscribe(cfg *hardware.Config, source string) {
	ids := ExtractSignalIDs(cfg)
	if len(ids) == 0 {
		logging.Warn("No signals found to subscribe", zap.String("source", source))
		return
	}
	logging.Info("Subscribing to signals",
		zap.String("source", source),
		zap.Int("count", len(ids)),
	)
	s.session.SubscribeToSignals(ids)
}

// Setup subscribes on every open, and immediately if the session is
// already open. The returned func stops the re-subscription.
func (s *Subscriber) Setup() func() {
	unsub := s.session.OnOpen(s.SubscribeToSchemaSignals)
	if s.session.IsConnected() {
		s.SubscribeToSchemaSignals()
	}
	return unsub
}

// Wait blocks until background loads have finished.
func (s *Subscriber) Wait() {
	s.wg.Wait()
}
