package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/server"
)

var (
	simListen    string
	simAdvertise bool
	simInstance  string
	simHeartbeat time.Duration
	simSensors   time.Duration
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simListen, "listen", ":8080", "Address to listen on")
	simulateCmd.Flags().BoolVar(&simAdvertise, "advertise", false, "Announce the simulator over mDNS")
	simulateCmd.Flags().StringVar(&simInstance, "instance", server.DefaultInstance, "mDNS instance name")
	simulateCmd.Flags().DurationVar(&simHeartbeat, "heartbeat", server.DefaultHeartbeatInterval, "Heartbeat interval")
	simulateCmd.Flags().DurationVar(&simSensors, "sensors", 5*time.Second, "How often value signals change (0 disables)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated controller",
	Long: `Run a simulated EmpirBus controller for trying the client without hardware.

The simulator serves the websocket on /ws and the hardware config on
/configuration/hardware-config.json. Outputs come from --hardware, else a
built-in demo boat.`,
	Example: `  empirlink simulate --listen :8080
  empirlink simulate --hardware hardware-config.json --advertise
  empirlink monitor --host localhost:8080`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	hw := server.DemoHardware()
	if cfg.HardwareConfig != "" {
		loaded, err := hardware.Load(cfg.HardwareConfig)
		if err != nil {
			return err
		}
		hw = loaded
	}

	srv := server.New(&server.Config{
		Addr:              simListen,
		Hardware:          hw,
		HeartbeatInterval: simHeartbeat,
		SensorInterval:    simSensors,
		Advertise:         simAdvertise,
		Instance:          simInstance,
	})

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Simulating %d outputs on %s (Ctrl+C to stop)\n", len(hw.Outputs), simListen)
	return srv.ListenAndServe(ctx)
}
