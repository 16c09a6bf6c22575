// Package session owns the websocket link to an EmpirBus controller.
//
// A Session moves through connecting, open, closing and closed. Each
// Connect starts one connection goroutine that dials, sends the handshake,
// notifies open handlers, then reads envelopes until the socket ends. That
// goroutine acknowledges heartbeats before dispatching them and is the only
// place handlers are called, so message handlers never run concurrently.
// After a close it schedules a reconnect with exponential backoff unless
// Disconnect was called or Config.DisableAutoReconnect is set.
package session
