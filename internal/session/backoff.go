package session

import "time"

// Reconnect backoff parameters
const (
	InitialReconnectDelay = 1 * time.Second
	MaxReconnectDelay     = 30 * time.Second

	// MaxReconnectAttempt caps the attempt counter used for the delay
	// computation. Reconnects continue past it at MaxReconnectDelay.
	MaxReconnectAttempt = 10
)

// ReconnectDelay returns the wait before reconnect attempt n (1-based):
// min(1s * 2^(n-1), 30s). Attempts below 1 count as 1.
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > MaxReconnectAttempt {
		attempt = MaxReconnectAttempt
	}

	delay := InitialReconnectDelay << uint(attempt-1)
	if delay > MaxReconnectDelay {
		return MaxReconnectDelay
	}
	return delay
}
