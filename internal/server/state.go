package server

import (
	"encoding/binary"
	"math"
	"sort"
	"sync"

	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/protocol"
)

// maxLevel is 100% in tenths of a percent.
const maxLevel = 1000

// state is the simulated output state, keyed by signal id.
type state struct {
	mu       sync.Mutex
	latching map[uint16]bool
	dimmers  map[uint16]bool
	values   map[uint16]bool
	on       map[uint16]bool
	levels   map[uint16]uint16
	readings map[uint16]uint16
}

// newState classifies the signal ids of hw. Toggle signals latch, dimmer
// signals report levels and value signals report readings. Everything else
// behaves like a momentary switch.
func newState(hw *hardware.Config) *state {
	s := &state{
		latching: make(map[uint16]bool),
		dimmers:  make(map[uint16]bool),
		values:   make(map[uint16]bool),
		on:       make(map[uint16]bool),
		levels:   make(map[uint16]uint16),
		readings: make(map[uint16]uint16),
	}
	if hw == nil {
		return s
	}

	for _, out := range hw.Outputs {
		if out.SignalID != nil {
			switch out.Control {
			case hardware.ControlToggleButton:
				s.latching[*out.SignalID] = true
			case hardware.ControlDimmer, hardware.ControlSlider:
				s.dimmers[*out.SignalID] = true
			case hardware.ControlSignalValue:
				s.values[*out.SignalID] = true
			}
		}
		if sig := out.Signals; sig != nil {
			if sig.Toggle != nil {
				s.latching[*sig.Toggle] = true
			}
			if sig.Dimmer != nil {
				s.dimmers[*sig.Dimmer] = true
			}
			if sig.Value != nil {
				s.values[*sig.Value] = true
			}
		}
	}
	return s
}

// apply executes a device command and returns the status messages it
// produced. Malformed commands and toggle releases produce none.
func (s *state) apply(env protocol.Envelope) []protocol.Envelope {
	if env.Type != protocol.TypeDeviceCommand {
		return nil
	}
	data := []byte(env.Data)
	id, ok := protocol.DecodeSignalID(data)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch env.Command {
	case protocol.CmdToggle:
		if len(data) < 3 {
			return nil
		}
		pressed := data[2] == 1
		if s.latching[id] {
			if !pressed {
				return nil
			}
			s.on[id] = !s.on[id]
		} else {
			s.on[id] = pressed
		}

	case protocol.CmdDimmer:
		if len(data) < 5 {
			return nil
		}
		level := binary.LittleEndian.Uint16(data[3:5])
		if level > maxLevel {
			level = maxLevel
		}
		s.dimmers[id] = true
		s.levels[id] = level

	default:
		return nil
	}
	return []protocol.Envelope{s.statusLocked(id)}
}

// setReading stores a sensor reading and returns its status message.
func (s *state) setReading(id uint16, raw uint16) protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = true
	s.readings[id] = raw
	return s.statusLocked(id)
}

// status returns the current status message for id.
func (s *state) status(id uint16) protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(id)
}

func (s *state) statusLocked(id uint16) protocol.Envelope {
	switch {
	case s.dimmers[id]:
		return dimmerStatus(id, s.levels[id])
	case s.values[id]:
		return numericStatus(id, s.readings[id])
	default:
		return toggleStatus(id, s.on[id])
	}
}

// valueIDs returns the sensor signal ids, ascending.
func (s *state) valueIDs() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint16, 0, len(s.values))
	for id := range s.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func envelope(msgType, cmd uint8, data []byte) protocol.Envelope {
	return protocol.Envelope{Type: msgType, Command: cmd, Size: uint16(len(data)), Data: data}
}

func toggleStatus(id uint16, on bool) protocol.Envelope {
	lo, hi := protocol.EncodeSignalID(id)
	v := byte(0)
	if on {
		v = 1
	}
	return envelope(protocol.TypeStatus, protocol.CmdToggle, []byte{lo, hi, v})
}

// dimmerStatus reports level in tenths of a percent. Levels that would fit
// in 0..100 are sent as whole percent instead, since clients read small raw
// values as percent.
func dimmerStatus(id uint16, level uint16) protocol.Envelope {
	lo, hi := protocol.EncodeSignalID(id)
	raw := level
	if raw <= 100 {
		raw = uint16(math.Round(float64(level) / 10))
	}
	return envelope(protocol.TypeStatus, protocol.CmdDimmer, []byte{lo, hi, 0, byte(raw & 0xFF), byte(raw >> 8)})
}

func numericStatus(id uint16, raw uint16) protocol.Envelope {
	lo, hi := protocol.EncodeSignalID(id)
	return envelope(protocol.TypeStatus, protocol.CmdNumeric, []byte{lo, hi, byte(raw & 0xFF), byte(raw >> 8)})
}

func heartbeat() protocol.Envelope {
	return envelope(protocol.TypeSystemCommand, protocol.CmdHeartbeat, []byte{0})
}

// subscriptionIDs reads the id pairs of a subscription request.
func subscriptionIDs(env protocol.Envelope) []uint16 {
	data := []byte(env.Data)
	ids := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		id, _ := protocol.DecodeSignalID(data[i:])
		ids = append(ids, id)
	}
	return ids
}
