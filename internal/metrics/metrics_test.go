package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/empirlink/internal/event"
	"github.com/muurk/empirlink/internal/protocol"
	"github.com/muurk/empirlink/internal/session"
	"github.com/muurk/empirlink/internal/signals"
)

type fakeSession struct {
	open    event.Bus[struct{}]
	close   event.Bus[session.CloseEvent]
	errs    event.Bus[error]
	message event.Bus[protocol.Envelope]
}

func (f *fakeSession) OnOpen(fn func()) func() {
	return f.open.Subscribe(func(struct{}) { fn() })
}

func (f *fakeSession) OnClose(fn func(session.CloseEvent)) func() { return f.close.Subscribe(fn) }

func (f *fakeSession) OnError(fn func(error)) func() { return f.errs.Subscribe(fn) }

func (f *fakeSession) OnMessage(fn func(protocol.Envelope)) func() { return f.message.Subscribe(fn) }

// value returns the value of the metric with the given name and label set.
func value(t *testing.T, c *Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	if len(m.GetLabel()) != len(want) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestAttachSessionEvents(t *testing.T) {
	c := New()
	sess := &fakeSession{}
	detach := c.Attach(sess, nil)

	sess.open.Publish(struct{}{})
	assert.Equal(t, 1.0, value(t, c, "empirlink_connections_opened_total", nil))
	assert.Equal(t, 1.0, value(t, c, "empirlink_connected", nil))

	sess.message.Publish(protocol.Envelope{Type: protocol.TypeStatus})
	sess.message.Publish(protocol.Envelope{Type: protocol.TypeStatus})
	sess.message.Publish(protocol.Envelope{Type: protocol.TypeSystemCommand})
	assert.Equal(t, 2.0, value(t, c, "empirlink_messages_received_total", map[string]string{"type": "status"}))
	assert.Equal(t, 1.0, value(t, c, "empirlink_messages_received_total", map[string]string{"type": "system_command"}))

	sess.errs.Publish(errors.New("reset"))
	sess.close.Publish(session.CloseEvent{Code: session.CloseAbnormal})
	assert.Equal(t, 1.0, value(t, c, "empirlink_connection_errors_total", nil))
	assert.Equal(t, 1.0, value(t, c, "empirlink_connections_closed_total", map[string]string{"code": "abnormal"}))
	assert.Equal(t, 0.0, value(t, c, "empirlink_connected", nil))

	detach()
	sess.open.Publish(struct{}{})
	assert.Equal(t, 1.0, value(t, c, "empirlink_connections_opened_total", nil))
}

func TestAttachRegistry(t *testing.T) {
	c := New()
	reg := signals.NewRegistry()
	defer c.Attach(nil, reg)()

	now := time.Now()
	reg.Update(1, signals.ToggleState{On: true, At: now})
	reg.Update(2, signals.DimmerState{Percent: 40, At: now})
	reg.Update(1, signals.ToggleState{On: false, At: now})

	assert.Equal(t, 2.0, value(t, c, "empirlink_signal_updates_total", map[string]string{"kind": "toggle"}))
	assert.Equal(t, 1.0, value(t, c, "empirlink_signal_updates_total", map[string]string{"kind": "dimmer"}))
}

func TestCloseCodeLabel(t *testing.T) {
	assert.Equal(t, "normal", closeCodeLabel(session.CloseNormal))
	assert.Equal(t, "abnormal", closeCodeLabel(session.CloseAbnormal))
	assert.Equal(t, "other", closeCodeLabel(4000))
}

func TestHandler(t *testing.T) {
	c := New()
	c.ConnectionsOpened.Inc()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "empirlink_connections_opened_total 1")
}
