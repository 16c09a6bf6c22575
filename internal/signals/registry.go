package signals

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/event"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/protocol"
)

// Change is published on every registry update.
type Change struct {
	ID    uint16
	State State
}

// Slot holds the live value for one signal id.
type Slot struct {
	mu    sync.RWMutex
	value State
	bus   event.Bus[State]
}

// Value returns the latest state, or nil before the first update.
func (s *Slot) Value() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Subscribe registers fn for every future update of this slot.
func (s *Slot) Subscribe(fn func(State)) func() {
	return s.bus.Subscribe(fn)
}

func (s *Slot) set(st State) {
	s.mu.Lock()
	s.value = st
	s.mu.Unlock()
	s.bus.Publish(st)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the timestamp source for decoded states.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry maps signal ids to slots.
type Registry struct {
	mu      sync.RWMutex
	slots   map[uint16]*Slot
	changes event.Bus[Change]
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		slots:   make(map[uint16]*Slot),
		changes: event.Bus[Change]{Name: "signal-change"},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the slot for id, creating an empty one if needed.
func (r *Registry) Get(id uint16) *Slot {
	r.mu.RLock()
	slot, ok := r.slots[id]
	r.mu.RUnlock()
	if ok {
		return slot
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[id]; ok {
		return slot
	}
	slot = &Slot{bus: event.Bus[State]{Name: "signal-slot"}}
	r.slots[id] = slot
	return slot
}

// Update stores st for id and notifies slot and registry subscribers.
func (r *Registry) Update(id uint16, st State) {
	r.Get(id).set(st)
	r.changes.Publish(Change{ID: id, State: st})
}

// Has reports whether id has received a value.
func (r *Registry) Has(id uint16) bool {
	r.mu.RLock()
	slot, ok := r.slots[id]
	r.mu.RUnlock()
	return ok && slot.Value() != nil
}

// IDs returns every id with a slot, ascending.
func (r *Registry) IDs() []uint16 {
	r.mu.RLock()
	ids := make([]uint16, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns the current value of every slot that has one.
func (r *Registry) Snapshot() map[uint16]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uint16]State, len(r.slots))
	for id, slot := range r.slots {
		if v := slot.Value(); v != nil {
			out[id] = v
		}
	}
	return out
}

// Clear drops every slot. Subscribers of dropped slots receive nothing
// further.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.slots = make(map[uint16]*Slot)
	r.mu.Unlock()
}

// OnChange registers fn for every update of any signal.
func (r *Registry) OnChange(fn func(Change)) func() {
	return r.changes.Subscribe(fn)
}

// HandleStatusMessage decodes a status envelope and stores the result.
// Other message types are ignored. Short payloads are logged and dropped.
func (r *Registry) HandleStatusMessage(env protocol.Envelope) {
	if env.Type != protocol.TypeStatus {
		return
	}

	id, st, ok := Decode(env, r.now())
	if !ok {
		logging.Warn("Invalid status message, insufficient data",
			zap.Uint8("command", env.Command),
			zap.Int("length", len(env.Data)),
		)
		return
	}

	logging.Debug("Signal updated",
		zap.Uint16("signal_id", id),
		zap.String("kind", st.Kind()),
	)
	r.Update(id, st)
}
