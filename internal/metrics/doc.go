// Package metrics exposes session and signal registry activity as
// Prometheus metrics.
package metrics
