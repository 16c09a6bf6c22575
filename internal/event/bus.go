package event

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/logging"
)

type entry[T any] struct {
	id uint64
	fn func(T)
}

// Bus fans one value out to every registered handler. The zero value is
// ready to use.
type Bus[T any] struct {
	// Name labels log lines for recovered handler panics.
	Name string

	mu       sync.Mutex
	nextID   uint64
	handlers []entry[T]
}

// Subscribe registers fn and returns its unsubscribe func.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, entry[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, h := range b.handlers {
		if h.id == id {
			// Copy rather than splice in place; snapshots taken by an
			// in-flight Publish keep pointing at the old backing array.
			next := make([]entry[T], 0, len(b.handlers)-1)
			next = append(next, b.handlers[:i]...)
			next = append(next, b.handlers[i+1:]...)
			b.handlers = next
			return
		}
	}
}

// Publish calls every handler registered at the time of the call with v.
// It returns the number of handlers that panicked.
func (b *Bus[T]) Publish(v T) int {
	b.mu.Lock()
	snapshot := make([]entry[T], len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.Unlock()

	failed := 0
	for _, h := range snapshot {
		if !b.call(h.fn, v) {
			failed++
		}
	}
	return failed
}

func (b *Bus[T]) call(fn func(T), v T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			logging.Error("Recovered panic in event handler",
				zap.String("bus", b.Name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn(v)
	return true
}

// Len returns the number of registered handlers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Reset drops every handler.
func (b *Bus[T]) Reset() {
	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
}
