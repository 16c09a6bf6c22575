// Package signals keeps the latest state of every EmpirBus signal seen on
// the wire.
//
// Each signal id has a Slot that is created on first access, so consumers can
// subscribe before any data arrives. The registry is written only by
// HandleStatusMessage (or Update in tests) and read by any number of
// consumers.
package signals
