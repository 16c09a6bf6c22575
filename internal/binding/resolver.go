package binding

import (
	"math"

	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/logging"
)

// Action selects which of an output's signal ids to use.
type Action string

const (
	ActionNone      Action = ""
	ActionToggle    Action = "toggle"
	ActionMomentary Action = "momentary"
	ActionDimmer    Action = "dimmer"
)

// Resolver maps bindings to signal ids against the current hardware config.
// It holds no state of its own.
type Resolver struct {
	provider func() *hardware.Config
}

// NewResolver resolves against a fixed hardware config.
func NewResolver(cfg *hardware.Config) *Resolver {
	return &Resolver{provider: func() *hardware.Config { return cfg }}
}

// NewResolverFunc resolves against whatever config fn returns at call time.
func NewResolverFunc(fn func() *hardware.Config) *Resolver {
	return &Resolver{provider: fn}
}

// Resolve returns the signal id for b and action. ok is false for nil,
// static and nmea2000 bindings and for channel names that cannot be
// resolved.
//
// A named channel resolves to signals[action] when set and non-zero, else
// to the output's legacy channel number.
func (r *Resolver) Resolve(b Binding, action Action) (id uint16, ok bool) {
	switch b := b.(type) {
	case EmpirBusBinding:
		return r.resolveEmpirBus(b, action)
	case *EmpirBusBinding:
		if b == nil {
			return 0, false
		}
		return r.resolveEmpirBus(*b, action)
	case StaticBinding, *StaticBinding:
		return 0, false
	case NMEA2000Binding, *NMEA2000Binding:
		// Unresolved: there is no agreed scheme for mapping PGNs to ids.
		return 0, false
	default:
		return 0, false
	}
}

func (r *Resolver) resolveEmpirBus(b EmpirBusBinding, action Action) (uint16, bool) {
	if id, ok := b.Channel.Numeric(); ok {
		return id, true
	}

	name, _ := b.Channel.Name()
	var cfg *hardware.Config
	if r != nil && r.provider != nil {
		cfg = r.provider()
	}
	if cfg == nil || len(cfg.Outputs) == 0 {
		logging.Warn("No hardware config available to resolve channel", zap.String("channel", name))
		return 0, false
	}

	out, found := cfg.Lookup(name)
	if !found {
		logging.Warn("Could not resolve channel reference", zap.String("channel", name))
		return 0, false
	}

	if id, ok := signalFor(out.Signals, action); ok {
		logging.Debug("Resolved channel",
			zap.String("channel", name),
			zap.String("action", string(action)),
			zap.Uint16("signal_id", id),
		)
		return id, true
	}

	if out.Channel != nil {
		ch := *out.Channel
		if ch < 0 || ch > math.MaxUint16 {
			logging.Warn("Legacy channel number out of range",
				zap.String("channel", name),
				zap.Int("value", ch),
			)
			return 0, false
		}
		logging.Warn("Using fallback channel number, consider adding signals to the hardware config",
			zap.String("channel", name),
			zap.Int("value", ch),
		)
		return uint16(ch), true
	}

	logging.Warn("Could not resolve channel reference", zap.String("channel", name))
	return 0, false
}

// signalFor picks the action's signal id. Zero counts as unset.
func signalFor(s *hardware.Signals, action Action) (uint16, bool) {
	if s == nil {
		return 0, false
	}
	var p *uint16
	switch action {
	case ActionToggle:
		p = s.Toggle
	case ActionMomentary:
		p = s.Momentary
	case ActionDimmer:
		p = s.Dimmer
	default:
		return 0, false
	}
	if p == nil || *p == 0 {
		return 0, false
	}
	return *p, true
}
