package server

import (
	_ "embed"

	"github.com/muurk/empirlink/internal/hardware"
)

//go:embed demo_hardware.json
var demoHardware []byte

// DemoHardware returns the built-in hardware config used when the simulator
// is started without one.
func DemoHardware() *hardware.Config {
	hw, err := hardware.Parse(demoHardware)
	if err != nil {
		panic("server: invalid embedded demo hardware: " + err.Error())
	}
	return hw
}
