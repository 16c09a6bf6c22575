package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/empirlink/internal/autosub"
	"github.com/muurk/empirlink/internal/binding"
	"github.com/muurk/empirlink/internal/config"
	"github.com/muurk/empirlink/internal/control"
	"github.com/muurk/empirlink/internal/deviceconfig"
	"github.com/muurk/empirlink/internal/discovery"
	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/protocol"
	"github.com/muurk/empirlink/internal/session"
	"github.com/muurk/empirlink/internal/signals"
	"github.com/muurk/empirlink/internal/ui"
)

// Command flags
var (
	watchRaw       bool
	pressHold      time.Duration
	cmdTimeout     time.Duration
	scanTimeout    time.Duration
	scanMatch      string
	scanSave       bool
	signalsIDsOnly bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(pressCmd)
	rootCmd.AddCommand(dimCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(scanCmd)

	watchCmd.Flags().BoolVar(&watchRaw, "raw", false, "Print every envelope instead of signal changes")
	pressCmd.Flags().DurationVar(&pressHold, "hold", 500*time.Millisecond, "How long to hold the button")
	for _, c := range []*cobra.Command{toggleCmd, pressCmd, dimCmd} {
		c.Flags().DurationVar(&cmdTimeout, "timeout", 10*time.Second, "Connect timeout")
	}
	signalsCmd.Flags().BoolVar(&signalsIDsOnly, "ids-only", false, "Print only the ids, one per line")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
	scanCmd.Flags().StringVar(&scanMatch, "match", "", "Regular expression matched against instance name or hostname")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Save the controller to the config file when exactly one is found")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal view of connection state and signals",
	Long: `Connect to the controller and show every signal as it changes.

Reconnects automatically. Falls back to 'watch' output when stdout is not
a terminal.`,
	Example: `  empirlink monitor --host 192.168.1.1
  empirlink monitor --url ws://192.168.1.1/ws --hardware hardware-config.json`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return runWatch(cmd, args)
	}

	// Log lines would tear the screen; send them to a file instead.
	if cfg.LogLevel != "" || os.Getenv(logging.LogLevelEnvVar) != "" {
		if dir, err := config.GetConfigDir(); err == nil && os.MkdirAll(dir, 0700) == nil {
			if err := logging.InitializeTo(cfg.LogLevel, filepath.Join(dir, "monitor.log")); err != nil {
				return err
			}
		}
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	p := tea.NewProgram(ui.NewMonitor(a.sess.URL(), ui.Labels(a.hardware())), tea.WithAltScreen(), tea.WithContext(ctx))
	defer ui.Bridge(p, a.sess, a.reg)()

	a.start()
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print signal changes as they arrive",
	Long: `Connect to the controller and print one line per signal change.

With --raw every received envelope is printed with its decoded meaning and
a hex dump of its payload.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	labels := ui.Labels(a.hardware())

	unsubs := []func(){
		a.sess.OnOpen(func() {
			fmt.Fprintf(errOut, "connected to %s\n", a.sess.URL())
		}),
		a.sess.OnClose(func(evt session.CloseEvent) {
			fmt.Fprintf(errOut, "disconnected (%d %s)\n", evt.Code, evt.Reason)
		}),
		a.sess.OnError(func(err error) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}),
	}
	if watchRaw {
		unsubs = append(unsubs, a.sess.OnMessage(func(env protocol.Envelope) {
			fmt.Fprintf(out, "%s  %-44s  [%s]\n",
				time.Now().Format("15:04:05.000"), protocol.Annotate(env), protocol.HexDump(env.Data))
		}))
	} else {
		unsubs = append(unsubs, a.reg.OnChange(func(ch signals.Change) {
			line := fmt.Sprintf("%s  %5d  %-8s %s",
				ch.State.UpdatedAt().Format("15:04:05.000"), ch.ID, ch.State.Kind(), ui.FormatState(ch.State))
			if l := labels[ch.ID]; l != "" {
				line += "  (" + l + ")"
			}
			fmt.Fprintln(out, line)
		}))
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	a.start()
	<-ctx.Done()
	return nil
}

// withController connects without reconnects, runs fn once open, and
// disconnects after settle.
func withController(fn func(a *app) error, settle time.Duration) error {
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	if err := a.ensureHardware(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s, only numeric channels will resolve\n", deviceconfig.GetShortErrorMessage(err))
	}

	a.start()
	if err := a.waitOpen(ctx); err != nil {
		return err
	}
	if err := fn(a); err != nil {
		return err
	}
	time.Sleep(settle)
	return nil
}

func channelBinding(arg string) binding.Binding {
	return binding.EmpirBusBinding{Channel: binding.ParseChannel(arg)}
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <channel>",
	Short: "Toggle an output",
	Long: `Toggle an output by pressing and releasing its toggle signal.

<channel> is an output id from the hardware config, or a numeric signal id.`,
	Example: `  empirlink toggle cabin-lights --host 192.168.1.1
  empirlink toggle 47 --host 192.168.1.1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(a *app) error {
			return a.ctrl.Toggle(channelBinding(args[0]))
		}, control.PressDuration+100*time.Millisecond)
	},
}

var pressCmd = &cobra.Command{
	Use:   "press <channel>",
	Short: "Press and hold a momentary output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b := channelBinding(args[0])
		return withController(func(a *app) error {
			if err := a.ctrl.Press(b); err != nil {
				return err
			}
			time.Sleep(pressHold)
			return a.ctrl.Release(b)
		}, 100*time.Millisecond)
	},
}

var dimCmd = &cobra.Command{
	Use:   "dim <channel> <percent>",
	Short: "Set a dimmer level (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid percent %q: %w", args[1], err)
		}
		return withController(func(a *app) error {
			return a.ctrl.SetLevel(channelBinding(args[0]), percent)
		}, 100*time.Millisecond)
	},
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the signal ids the client subscribes to",
	Long: `Load the hardware config (local file, or fetched from the controller)
and print every signal id that would be subscribed, with its output name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hw, err := loadHardwareOnly(ctx)
		if err != nil {
			ui.NewPrinter(cmd.ErrOrStderr()).PrintError("Load hardware config", err, deviceconfig.GetTroubleshootingHint(err))
			return err
		}

		ids := autosub.ExtractSignalIDs(hw)
		labels := ui.Labels(hw)
		out := cmd.OutOrStdout()
		for _, id := range ids {
			if signalsIDsOnly {
				fmt.Fprintln(out, id)
				continue
			}
			fmt.Fprintf(out, "%5d  %s\n", id, labels[id])
		}
		if !signalsIDsOnly {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d signals\n", len(ids))
		}
		return nil
	},
}

// loadHardwareOnly loads the output list without opening a websocket.
func loadHardwareOnly(ctx context.Context) (*hardware.Config, error) {
	switch {
	case cfg.HardwareConfig != "":
		return hardware.Load(cfg.HardwareConfig)
	case cfg.Schema != "":
		return hardware.LoadSchema(cfg.Schema)
	case !cfg.HasController():
		return nil, errNoController
	case !cfg.FetchFromController:
		return nil, fmt.Errorf("no hardware config: pass --hardware or --schema, or drop --no-fetch")
	}

	client := deviceconfig.NewClient(httpHost(cfg.SessionConfig()))
	hw, err := client.FetchHardwareConfig(ctx)
	if deviceconfig.IsNotFound(err) {
		return client.FetchSchemaHardware(ctx)
	}
	return hw, err
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find controllers on the network with mDNS",
	Example: `  empirlink scan
  empirlink scan --timeout 10s --match '(?i)empirbus'
  empirlink scan --match '(?i)empirbus' --save`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	var match *regexp.Regexp
	if scanMatch != "" {
		re, err := regexp.Compile(scanMatch)
		if err != nil {
			return fmt.Errorf("invalid --match: %w", err)
		}
		match = re
	}

	ctx, cancel := signalContext()
	defer cancel()

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Printf("Scanning for controllers (timeout: %s)...\n\n", scanTimeout)

	found, err := discovery.Scan(ctx, scanTimeout, match)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(found) == 0 {
		p.Println("No controllers found.")
		p.Println("\nTroubleshooting:")
		p.Println("  - Ensure you're on the same network as the controller")
		p.Println("  - Try a longer --timeout")
		p.Println("  - Use --host to specify the address manually")
		return nil
	}

	p.PrintTitle(fmt.Sprintf("Found %d controller(s)", len(found)))
	for i, c := range found {
		p.Printf("%d. %s\n", i+1, c.Instance)
		values := map[string]string{"Host": c.Host(), "Hostname": c.Hostname}
		keys := []string{"Host", "Hostname"}
		if path := c.GetMetadata("path"); path != "" {
			values["Path"] = path
			keys = append(keys, "Path")
		}
		p.Println(ui.RenderKeyValues(keys, values))
		p.Println("")
	}

	if scanSave {
		if len(found) != 1 {
			return fmt.Errorf("--save needs exactly one controller, found %d (narrow with --match)", len(found))
		}
		cfg.Controller.Host = found[0].Host()
		cfg.Controller.URL = ""
		cfg.RememberController(found[0].Instance, found[0].Host())
		if err := cfg.Save(flagConfig); err != nil {
			return err
		}
		p.PrintSuccess("Saved " + found[0].Host() + " as the default controller")
		return nil
	}

	p.Println("Use 'empirlink monitor --host <host>' to connect")
	return nil
}
