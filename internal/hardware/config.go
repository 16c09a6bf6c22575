package hardware

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Output control types
const (
	ControlNotUsed         = "not-used"
	ControlPushButton      = "push-button"
	ControlToggleButton    = "toggle-button"
	ControlSlider          = "slider"
	ControlHalfBridge      = "half-bridge"
	ControlDimmer          = "dimmer"
	ControlSpecialFunction = "special-function"
	ControlSignalValue     = "signal-value"
)

// ErrInvalidJSON is returned for documents that are not JSON.
var ErrInvalidJSON = errors.New("invalid JSON document")

// Config is a hardware configuration document.
type Config struct {
	SystemType string   `json:"systemType,omitempty"`
	Outputs    []Output `json:"outputs"`
}

// Output is one physical output channel.
type Output struct {
	ID      string `json:"id"`
	Source  string `json:"source,omitempty"`
	Label   string `json:"label,omitempty"`
	Control string `json:"control,omitempty"`
	Icon    string `json:"icon,omitempty"`
	// Channel is the legacy numeric channel, used as a signal id fallback.
	Channel  *int     `json:"channel,omitempty"`
	SignalID *uint16  `json:"signalId,omitempty"`
	Signals  *Signals `json:"signals,omitempty"`
	Range    *Range   `json:"range,omitempty"`
}

// Signals holds the action-specific signal ids of an output.
type Signals struct {
	Toggle    *uint16 `json:"toggle,omitempty"`
	Momentary *uint16 `json:"momentary,omitempty"`
	Dimmer    *uint16 `json:"dimmer,omitempty"`
	// Value is a read-only sensor signal.
	Value *uint16 `json:"value,omitempty"`
}

// Range bounds a slider output.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Lookup finds the output with the given id.
func (c *Config) Lookup(id string) (*Output, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Outputs {
		if c.Outputs[i].ID == id {
			return &c.Outputs[i], true
		}
	}
	return nil, false
}

// Parse decodes a hardware configuration document.
func Parse(data []byte) (*Config, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hardware config: %w", err)
	}
	return &cfg, nil
}

// Load reads a hardware configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware config %s: %w", path, err)
	}
	return Parse(data)
}

// FromSchema extracts the "hardware" object of a UI schema document. A
// schema without one yields an empty Config.
func FromSchema(schema []byte) (*Config, error) {
	if !gjson.ValidBytes(schema) {
		return nil, ErrInvalidJSON
	}
	hw := gjson.GetBytes(schema, "hardware")
	if !hw.Exists() || !hw.IsObject() {
		return &Config{}, nil
	}
	return Parse([]byte(hw.Raw))
}

// LoadSchema reads a UI schema file and extracts its hardware.
func LoadSchema(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return FromSchema(data)
}
