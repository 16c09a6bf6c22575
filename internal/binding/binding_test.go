package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/empirlink/internal/hardware"
)

func u16(v uint16) *uint16 { return &v }
func intp(v int) *int       { return &v }

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Binding
		wantErr bool
	}{
		{
			name:  "static",
			input: `{"type": "static", "value": 42}`,
			want:  StaticBinding{Value: float64(42)},
		},
		{
			name:  "static without value",
			input: `{"type": "static"}`,
			want:  StaticBinding{},
		},
		{
			name:  "empirbus named channel",
			input: `{"type": "empirbus", "channel": "core-01", "property": "state"}`,
			want:  EmpirBusBinding{Channel: ChannelName("core-01"), Property: "state"},
		},
		{
			name:  "empirbus numeric channel",
			input: `{"type": "empirbus", "channel": 300}`,
			want:  EmpirBusBinding{Channel: ChannelID(300)},
		},
		{
			name:  "nmea2000",
			input: `{"type": "nmea2000", "pgn": 127505, "field": "level"}`,
			want:  NMEA2000Binding{PGN: 127505, Field: "level"},
		},
		{name: "channel out of range", input: `{"type": "empirbus", "channel": 70000}`, wantErr: true},
		{name: "fractional channel", input: `{"type": "empirbus", "channel": 1.5}`, wantErr: true},
		{name: "negative channel", input: `{"type": "empirbus", "channel": -1}`, wantErr: true},
		{name: "missing channel", input: `{"type": "empirbus"}`, wantErr: true},
		{name: "empty channel", input: `{"type": "empirbus", "channel": ""}`, wantErr: true},
		{name: "unknown type", input: `{"type": "canbus"}`, wantErr: true},
		{name: "not json", input: `{type`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNMEA2000Instance(t *testing.T) {
	b, err := Parse([]byte(`{"type": "nmea2000", "pgn": 127505, "field": "level", "instance": 2}`))
	require.NoError(t, err)
	n, ok := b.(NMEA2000Binding)
	require.True(t, ok)
	require.NotNil(t, n.Instance)
	assert.Equal(t, uint8(2), *n.Instance)
}

func TestParseChannel(t *testing.T) {
	assert.Equal(t, ChannelID(47), ParseChannel("47"))
	assert.Equal(t, ChannelName("core-01"), ParseChannel("core-01"))
	assert.Equal(t, ChannelName("70000"), ParseChannel("70000"))
	assert.Equal(t, "47", ChannelID(47).String())
	assert.Equal(t, "core-01", ChannelName("core-01").String())
}

func testHardware() *hardware.Config {
	return &hardware.Config{Outputs: []hardware.Output{
		{ID: "core-01", Channel: intp(5)},
		{ID: "core-02", Channel: intp(6), Signals: &hardware.Signals{
			Toggle: u16(47), Momentary: u16(48), Dimmer: u16(49),
		}},
		{ID: "core-03", Signals: &hardware.Signals{Toggle: u16(0)}},
		{ID: "core-04", Channel: intp(8), Signals: &hardware.Signals{Dimmer: u16(0)}},
		{ID: "core-05", Channel: intp(-3)},
	}}
}

func TestResolve(t *testing.T) {
	r := NewResolver(testHardware())

	tests := []struct {
		name    string
		binding Binding
		action  Action
		want    uint16
		wantOK  bool
	}{
		{"nil binding", nil, ActionToggle, 0, false},
		{"static", StaticBinding{Value: true}, ActionToggle, 0, false},
		{"nmea2000", NMEA2000Binding{PGN: 127505}, ActionNone, 0, false},
		{"numeric channel", EmpirBusBinding{Channel: ChannelID(300)}, ActionNone, 300, true},
		{"numeric channel ignores action", EmpirBusBinding{Channel: ChannelID(300)}, ActionDimmer, 300, true},
		{"legacy fallback", EmpirBusBinding{Channel: ChannelName("core-01")}, ActionToggle, 5, true},
		{"toggle signal", EmpirBusBinding{Channel: ChannelName("core-02")}, ActionToggle, 47, true},
		{"momentary signal", EmpirBusBinding{Channel: ChannelName("core-02")}, ActionMomentary, 48, true},
		{"dimmer signal", EmpirBusBinding{Channel: ChannelName("core-02")}, ActionDimmer, 49, true},
		{"no action falls back", EmpirBusBinding{Channel: ChannelName("core-02")}, ActionNone, 6, true},
		{"zero signal without channel", EmpirBusBinding{Channel: ChannelName("core-03")}, ActionToggle, 0, false},
		{"zero signal falls back", EmpirBusBinding{Channel: ChannelName("core-04")}, ActionDimmer, 8, true},
		{"negative legacy channel", EmpirBusBinding{Channel: ChannelName("core-05")}, ActionToggle, 0, false},
		{"unknown channel", EmpirBusBinding{Channel: ChannelName("does-not-exist")}, ActionNone, 0, false},
		{"pointer binding", &EmpirBusBinding{Channel: ChannelName("core-02")}, ActionToggle, 47, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got uint16
			var ok bool
			assert.NotPanics(t, func() { got, ok = r.Resolve(tt.binding, tt.action) })
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFromParsedBinding(t *testing.T) {
	b, err := Parse([]byte(`{"type": "empirbus", "channel": "core-01"}`))
	require.NoError(t, err)

	id, ok := NewResolver(testHardware()).Resolve(b, ActionToggle)
	require.True(t, ok)
	assert.Equal(t, uint16(5), id)
}

func TestResolveWithoutHardware(t *testing.T) {
	b := EmpirBusBinding{Channel: ChannelName("core-01")}

	_, ok := NewResolver(nil).Resolve(b, ActionToggle)
	assert.False(t, ok)

	var cfg *hardware.Config
	r := NewResolverFunc(func() *hardware.Config { return cfg })
	_, ok = r.Resolve(b, ActionToggle)
	assert.False(t, ok)

	// The provider is consulted on every call.
	cfg = testHardware()
	id, ok := r.Resolve(b, ActionToggle)
	assert.True(t, ok)
	assert.Equal(t, uint16(5), id)
}
