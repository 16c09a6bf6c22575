package autosub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/empirlink/internal/hardware"
)

func u16(v uint16) *uint16 { return &v }

type fakeSession struct {
	mu        sync.Mutex
	connected bool
	subs      [][]uint16
	opens     []func()
}

func (f *fakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSession) SubscribeToSignals(ids []uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, ids)
}

func (f *fakeSession) OnOpen(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, fn)
	idx := len(f.opens) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.opens[idx] = nil
	}
}

// open simulates a (re)connect.
func (f *fakeSession) open() {
	f.mu.Lock()
	f.connected = true
	handlers := append([]func(){}, f.opens...)
	f.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h()
		}
	}
}

func (f *fakeSession) subscriptions() [][]uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]uint16{}, f.subs...)
}

func schemaHardware() *hardware.Config {
	return &hardware.Config{Outputs: []hardware.Output{
		{ID: "a", SignalID: u16(30), Signals: &hardware.Signals{Toggle: u16(10), Dimmer: u16(12)}},
		{ID: "b", Signals: &hardware.Signals{Momentary: u16(10), Value: u16(2)}},
		{ID: "c"},
	}}
}

func TestExtractSignalIDs(t *testing.T) {
	tests := []struct {
		name string
		cfg  *hardware.Config
		want []uint16
	}{
		{"nil config", nil, []uint16{}},
		{"no outputs", &hardware.Config{}, []uint16{}},
		{"sorted and unique with value signals", schemaHardware(), []uint16{2, 10, 12, 30}},
		{
			"signalId only",
			&hardware.Config{Outputs: []hardware.Output{{ID: "x", SignalID: u16(65535)}, {ID: "y", SignalID: u16(0)}}},
			[]uint16{0, 65535},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSignalIDs(tt.cfg))
		})
	}
}

func TestSubscribeWhenNotConnectedIsNoop(t *testing.T) {
	sess := &fakeSession{}
	New(sess, schemaHardware()).SubscribeToSchemaSignals()
	assert.Empty(t, sess.subscriptions())
}

func TestSetupSubscribesOnEveryOpen(t *testing.T) {
	sess := &fakeSession{}
	sub := New(sess, schemaHardware())

	unsub := sub.Setup()
	assert.Empty(t, sess.subscriptions(), "not open yet")

	sess.open()
	sess.open() // reconnect
	require.Len(t, sess.subscriptions(), 2)
	assert.Equal(t, []uint16{2, 10, 12, 30}, sess.subscriptions()[1])

	unsub()
	sess.open()
	assert.Len(t, sess.subscriptions(), 2)
}

func TestSetupWhenAlreadyOpenSubscribesImmediately(t *testing.T) {
	sess := &fakeSession{connected: true}
	New(sess, schemaHardware()).Setup()
	assert.Len(t, sess.subscriptions(), 1)
}

func TestEmptyHardwareSendsNothing(t *testing.T) {
	sess := &fakeSession{connected: true}
	New(sess, &hardware.Config{}).SubscribeToSchemaSignals()
	assert.Empty(t, sess.subscriptions())
}

func TestLoaderPreferredOverSchema(t *testing.T) {
	sess := &fakeSession{connected: true}
	loader := LoaderFunc(func(ctx context.Context) (*hardware.Config, error) {
		return &hardware.Config{Outputs: []hardware.Output{
			{ID: "full", Signals: &hardware.Signals{Toggle: u16(500), Value: u16(501)}},
		}}, nil
	})

	sub := New(sess, schemaHardware(), WithLoader(loader))
	sub.SubscribeToSchemaSignals()
	sub.Wait()

	require.Len(t, sess.subscriptions(), 1)
	assert.Equal(t, []uint16{500, 501}, sess.subscriptions()[0])
}

func TestLoaderFailureFallsBackToSchema(t *testing.T) {
	sess := &fakeSession{connected: true}
	loader := LoaderFunc(func(ctx context.Context) (*hardware.Config, error) {
		return nil, errors.New("404 not found")
	})

	sub := New(sess, schemaHardware(), WithLoader(loader))
	sub.SubscribeToSchemaSignals()
	sub.Wait()

	require.Len(t, sess.subscriptions(), 1)
	assert.Equal(t, []uint16{2, 10, 12, 30}, sess.subscriptions()[0])
}
