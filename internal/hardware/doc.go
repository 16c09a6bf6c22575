// Package hardware models the controller's hardware configuration: the list
// of physical outputs and the signal ids each one exposes.
//
// The document is read from the controller's /configuration/hardware-config.json,
// from a local file, or from the "hardware" object of a UI schema.
package hardware
