// Package control sends output commands for bindings: toggle presses,
// momentary buttons and dimmer levels.
//
// Commands are fire-and-forget. The resulting output state arrives back as a
// status message and lands in the signal registry.
package control
