package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/autosub"
	"github.com/muurk/empirlink/internal/binding"
	"github.com/muurk/empirlink/internal/config"
	"github.com/muurk/empirlink/internal/control"
	"github.com/muurk/empirlink/internal/deviceconfig"
	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/metrics"
	"github.com/muurk/empirlink/internal/session"
	"github.com/muurk/empirlink/internal/signals"
)

var errNoController = errors.New("no controller configured: pass --host or --url, or run 'empirlink scan --save'")

// app wires a session to the signal registry, the auto-subscriber and the
// optional metrics endpoint.
type app struct {
	cfg      *config.Config
	sess     *session.Session
	reg      *signals.Registry
	ctrl     *control.Controller
	sub      *autosub.Subscriber
	client   *deviceconfig.Client
	metrics  *metrics.Collector
	server   *http.Server
	detaches []func()

	reconnect bool

	mu     sync.RWMutex
	hw     *hardware.Config
	schema *hardware.Config
}

// newApp builds the pipeline without connecting.
func newApp(c *config.Config, reconnect bool) (*app, error) {
	if !c.HasController() {
		return nil, errNoController
	}

	sc := c.SessionConfig()
	if !reconnect {
		sc.DisableAutoReconnect = true
	}

	a := &app{
		cfg:       c,
		sess:      session.New(sc),
		reg:       signals.NewRegistry(),
		reconnect: !sc.DisableAutoReconnect,
	}
	a.ctrl = control.New(a.sess, binding.NewResolverFunc(a.hardware))

	if err := a.loadLocal(); err != nil {
		return nil, err
	}

	if c.FetchFromController {
		if host := httpHost(sc); host != "" {
			a.client = deviceconfig.NewClient(host)
		}
	}

	a.detaches = append(a.detaches, a.sess.OnMessage(a.reg.HandleStatusMessage))

	switch {
	case a.hw != nil:
		a.sub = autosub.New(a.sess, a.hw)
	case a.client != nil:
		a.sub = autosub.New(a.sess, a.schema, autosub.WithLoader(autosub.LoaderFunc(a.fetchHardware)))
	default:
		a.sub = autosub.New(a.sess, a.schema)
	}

	if c.MetricsAddr != "" {
		a.metrics = metrics.New()
		a.detaches = append(a.detaches, a.metrics.Attach(a.sess, a.reg))
	}
	return a, nil
}

// loadLocal reads the hardware config and schema files named in the config.
func (a *app) loadLocal() error {
	if a.cfg.HardwareConfig != "" {
		hw, err := hardware.Load(a.cfg.HardwareConfig)
		if err != nil {
			return err
		}
		a.hw = hw
	}
	if a.cfg.Schema != "" {
		schema, err := hardware.LoadSchema(a.cfg.Schema)
		if err != nil {
			return err
		}
		a.schema = schema
	}
	return nil
}

// httpHost returns the controller's web server host for fetching documents.
func httpHost(sc session.Config) string {
	if sc.URL == "" {
		return sc.Host
	}
	u, err := url.Parse(sc.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// fetchHardware loads the full hardware config from the controller, falling
// back to the schema's hardware. The result is kept for name resolution.
func (a *app) fetchHardware(ctx context.Context) (*hardware.Config, error) {
	hw, err := a.client.FetchHardwareConfig(ctx)
	if err != nil {
		logging.Debug("Hardware config fetch failed, trying schema",
			zap.String("reason", deviceconfig.GetShortErrorMessage(err)))
		hw, err = a.client.FetchSchemaHardware(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch hardware: %w", err)
		}
	}

	a.mu.Lock()
	a.hw = hw
	a.mu.Unlock()
	return hw, nil
}

// hardware returns the best known output list: the full config, else the
// schema's hardware.
func (a *app) hardware() *hardware.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.hw != nil {
		return a.hw
	}
	return a.schema
}

// ensureHardware fetches the hardware when nothing local was given. Named
// channels cannot resolve without it.
func (a *app) ensureHardware(ctx context.Context) error {
	if a.hardware() != nil || a.client == nil {
		return nil
	}
	_, err := a.fetchHardware(ctx)
	return err
}

// start serves metrics, installs the auto-subscriber and connects.
func (a *app) start() {
	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		a.server = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logging.Info("Serving metrics", zap.String("addr", a.cfg.MetricsAddr))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	a.detaches = append(a.detaches, a.sub.Setup())
	a.sess.Connect()
}

// waitOpen blocks until the session opens. Without reconnects a close or
// dial failure ends the wait early.
func (a *app) waitOpen(ctx context.Context) error {
	opened := make(chan struct{})
	closed := make(chan session.CloseEvent, 1)
	var once sync.Once

	unsubOpen := a.sess.OnOpen(func() { once.Do(func() { close(opened) }) })
	defer unsubOpen()
	unsubClose := a.sess.OnClose(func(evt session.CloseEvent) {
		select {
		case closed <- evt:
		default:
		}
	})
	defer unsubClose()

	if a.sess.IsConnected() {
		return nil
	}

	select {
	case <-opened:
		return nil
	case evt := <-closed:
		if a.reconnect {
			return a.waitOpen(ctx)
		}
		return fmt.Errorf("connection to %s closed (%d %s)", a.sess.URL(), evt.Code, evt.Reason)
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", a.sess.URL(), ctx.Err())
	}
}

// close disconnects and tears everything down.
func (a *app) close() {
	a.sess.Disconnect()
	a.sub.Wait()
	for _, d := range a.detaches {
		d()
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
}
