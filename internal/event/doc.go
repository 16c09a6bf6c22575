// Package event provides a small typed observer bus.
//
// Every Subscribe returns an unsubscribe func that removes exactly that
// handler and is a no-op after the first call. Publish dispatches over a
// snapshot of the handler list taken under the lock, so handlers may
// subscribe or unsubscribe while being dispatched. A panic in one handler is
// recovered and logged; the remaining handlers still run.
package event
