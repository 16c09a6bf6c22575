package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind names a binding variant.
type Kind string

const (
	KindStatic   Kind = "static"
	KindEmpirBus Kind = "empirbus"
	KindNMEA2000 Kind = "nmea2000"
)

var (
	ErrInvalidJSON = errors.New("invalid binding JSON")
	ErrUnknownType = errors.New("unknown binding type")
)

// Binding is one of StaticBinding, EmpirBusBinding or NMEA2000Binding.
type Binding interface {
	Kind() Kind
	isBinding()
}

// StaticBinding carries a literal value and never touches the wire.
type StaticBinding struct {
	Value any
}

// EmpirBusBinding refers to an EmpirBus channel by output name or id.
type EmpirBusBinding struct {
	Channel  ChannelRef
	Property string
}

// NMEA2000Binding refers to an NMEA 2000 PGN field. It is accepted but
// never resolved.
type NMEA2000Binding struct {
	PGN      uint32
	Field    string
	Instance *uint8
}

func (StaticBinding) Kind() Kind   { return KindStatic }
func (EmpirBusBinding) Kind() Kind { return KindEmpirBus }
func (NMEA2000Binding) Kind() Kind { return KindNMEA2000 }

func (StaticBinding) isBinding()   {}
func (EmpirBusBinding) isBinding() {}
func (NMEA2000Binding) isBinding() {}

// ChannelRef is either a symbolic hardware output id or a numeric signal id.
type ChannelRef struct {
	name    string
	id      uint16
	numeric bool
}

// ChannelName refers to the hardware output with the given id.
func ChannelName(name string) ChannelRef {
	return ChannelRef{name: name}
}

// ChannelID refers directly to a signal id.
func ChannelID(id uint16) ChannelRef {
	return ChannelRef{id: id, numeric: true}
}

// Numeric returns the signal id of a numeric reference.
func (c ChannelRef) Numeric() (uint16, bool) {
	return c.id, c.numeric
}

// Name returns the output id of a symbolic reference.
func (c ChannelRef) Name() (string, bool) {
	return c.name, !c.numeric
}

func (c ChannelRef) String() string {
	if c.numeric {
		return strconv.Itoa(int(c.id))
	}
	return c.name
}

// ParseChannel interprets a command-line channel argument: digits are a
// signal id, anything else an output name.
func ParseChannel(s string) ChannelRef {
	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		return ChannelID(uint16(n))
	}
	return ChannelName(s)
}

// Parse decodes one binding object.
func Parse(data []byte) (Binding, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	typ := gjson.GetBytes(data, "type")
	switch Kind(typ.String()) {
	case KindStatic:
		var v any
		if raw := gjson.GetBytes(data, "value"); raw.Exists() {
			if err := json.Unmarshal([]byte(raw.Raw), &v); err != nil {
				return nil, fmt.Errorf("failed to parse static value: %w", err)
			}
		}
		return StaticBinding{Value: v}, nil

	case KindEmpirBus:
		ch, err := parseChannel(gjson.GetBytes(data, "channel"))
		if err != nil {
			return nil, err
		}
		return EmpirBusBinding{
			Channel:  ch,
			Property: gjson.GetBytes(data, "property").String(),
		}, nil

	case KindNMEA2000:
		var aux struct {
			PGN      uint32 `json:"pgn"`
			Field    string `json:"field"`
			Instance *uint8 `json:"instance"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, fmt.Errorf("failed to parse nmea2000 binding: %w", err)
		}
		return NMEA2000Binding{PGN: aux.PGN, Field: aux.Field, Instance: aux.Instance}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ.String())
	}
}

func parseChannel(v gjson.Result) (ChannelRef, error) {
	switch v.Type {
	case gjson.String:
		if v.Str == "" {
			return ChannelRef{}, errors.New("empirbus binding has empty channel")
		}
		return ChannelName(v.Str), nil
	case gjson.Number:
		f := v.Num
		if f != math.Trunc(f) || f < 0 || f > math.MaxUint16 {
			return ChannelRef{}, fmt.Errorf("empirbus channel %v is not a 16-bit signal id", v.Raw)
		}
		return ChannelID(uint16(f)), nil
	default:
		return ChannelRef{}, errors.New("empirbus binding needs a string or numeric channel")
	}
}
