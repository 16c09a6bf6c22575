package signals

import (
	"encoding/binary"
	"time"

	"github.com/muurk/empirlink/internal/protocol"
)

// State is the latest decoded value of one signal. It is one of
// ToggleState, DimmerState, NumericState or OpaqueState.
type State interface {
	UpdatedAt() time.Time
	Kind() string
	isState()
}

// ToggleState is an on/off output or button.
type ToggleState struct {
	On bool
	At time.Time
}

// DimmerState is a dimmable output level in percent.
type DimmerState struct {
	Index   uint8
	Percent float64
	At      time.Time
}

// NumericState is an unsigned sensor or counter reading.
type NumericState struct {
	Raw uint16
	At  time.Time
}

// OpaqueState keeps the payload of a status command this package does not
// decode.
type OpaqueState struct {
	Command uint8
	Raw     []byte
	At      time.Time
}

func (s ToggleState) UpdatedAt() time.Time  { return s.At }
func (s DimmerState) UpdatedAt() time.Time  { return s.At }
func (s NumericState) UpdatedAt() time.Time { return s.At }
func (s OpaqueState) UpdatedAt() time.Time  { return s.At }

func (ToggleState) Kind() string  { return "toggle" }
func (DimmerState) Kind() string  { return "dimmer" }
func (NumericState) Kind() string { return "numeric" }
func (OpaqueState) Kind() string  { return "opaque" }

func (ToggleState) isState()  {}
func (DimmerState) isState()  {}
func (NumericState) isState() {}
func (OpaqueState) isState()  {}

// Decode turns a status envelope into a signal id and state stamped with
// now. ok is false when the envelope is not a status message or its
// payload is too short for its command.
//
// Payload layouts by command:
//
//	1 toggle:  [id lo, id hi, state]
//	3 dimmer:  [id lo, id hi, index, level lo, level hi]
//	5 numeric: [id lo, id hi, value lo, value hi]
//	           [id lo, id hi, r0, r1, value lo, value hi, m0, m1]
//
// A dimmer level above 100 is in tenths of a percent, otherwise it is
// already a percent. A level of exactly 100 therefore reads as 100%.
func Decode(env protocol.Envelope, now time.Time) (uint16, State, bool) {
	if env.Type != protocol.TypeStatus {
		return 0, nil, false
	}
	data := []byte(env.Data)
	id, ok := protocol.DecodeSignalID(data)
	if !ok {
		return 0, nil, false
	}

	switch env.Command {
	case protocol.CmdToggle:
		if len(data) < 3 {
			return id, nil, false
		}
		return id, ToggleState{On: data[2] == 1, At: now}, true

	case protocol.CmdDimmer:
		if len(data) < 5 {
			return id, nil, false
		}
		raw := binary.LittleEndian.Uint16(data[3:5])
		percent := float64(raw)
		if raw > 100 {
			percent = float64(raw) / 10
		}
		return id, DimmerState{Index: data[2], Percent: protocol.ClampPercent(percent), At: now}, true

	case protocol.CmdNumeric:
		switch {
		case len(data) >= 8:
			return id, NumericState{Raw: binary.LittleEndian.Uint16(data[4:6]), At: now}, true
		case len(data) >= 4:
			return id, NumericState{Raw: binary.LittleEndian.Uint16(data[2:4]), At: now}, true
		default:
			return id, nil, false
		}

	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return id, OpaqueState{Command: env.Command, Raw: raw, At: now}, true
	}
}
