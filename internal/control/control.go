package control

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/binding"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/protocol"
)

// PressDuration is how long Toggle holds the simulated button press.
const PressDuration = 75 * time.Millisecond

var (
	ErrStaticBinding = errors.New("static binding has no signal")
	ErrUnresolved    = errors.New("binding did not resolve to a signal")
	ErrNotConnected  = errors.New("not connected to controller")
)

// Sender is the part of session.Session used to send commands.
type Sender interface {
	IsConnected() bool
	Send(env protocol.Envelope)
}

// Controller turns bindings into device commands.
type Controller struct {
	sender   Sender
	resolver *binding.Resolver
	after    func(time.Duration, func())
}

// New creates a Controller.
func New(sender Sender, resolver *binding.Resolver) *Controller {
	return &Controller{
		sender:   sender,
		resolver: resolver,
		after:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func (c *Controller) resolve(b binding.Binding, action binding.Action) (uint16, error) {
	if _, ok := b.(binding.StaticBinding); ok {
		return 0, ErrStaticBinding
	}
	id, ok := c.resolver.Resolve(b, action)
	if !ok {
		return 0, ErrUnresolved
	}
	if !c.sender.IsConnected() {
		return 0, ErrNotConnected
	}
	return id, nil
}

// Toggle presses and releases the output's toggle signal. The controller
// flips the output on the press edge.
func (c *Controller) Toggle(b binding.Binding) error {
	id, err := c.resolve(b, binding.ActionToggle)
	if err != nil {
		return fmt.Errorf("toggle: %w", err)
	}

	logging.Debug("Toggle press", zap.Uint16("signal_id", id))
	c.sender.Send(protocol.BuildToggleCommand(id, true))
	c.after(PressDuration, func() {
		c.sender.Send(protocol.BuildToggleCommand(id, false))
	})
	return nil
}

// Press sends the pressed state of a momentary button.
func (c *Controller) Press(b binding.Binding) error {
	return c.momentary(b, true)
}

// Release sends the released state of a momentary button.
func (c *Controller) Release(b binding.Binding) error {
	return c.momentary(b, false)
}

func (c *Controller) momentary(b binding.Binding, pressed bool) error {
	id, err := c.resolve(b, binding.ActionMomentary)
	if err != nil {
		return fmt.Errorf("momentary: %w", err)
	}
	logging.Debug("Momentary", zap.Uint16("signal_id", id), zap.Bool("pressed", pressed))
	c.sender.Send(protocol.BuildToggleCommand(id, pressed))
	return nil
}

// SetLevel sets a dimmer output to percent, clamped to 0..100.
func (c *Controller) SetLevel(b binding.Binding, percent float64) error {
	id, err := c.resolve(b, binding.ActionDimmer)
	if err != nil {
		return fmt.Errorf("dimmer: %w", err)
	}
	logging.Debug("Dimmer level", zap.Uint16("signal_id", id), zap.Float64("percent", percent))
	c.sender.Send(protocol.BuildDimmerCommand(id, percent, 0))
	return nil
}
