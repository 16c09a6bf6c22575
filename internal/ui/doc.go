// Package ui provides terminal UI components for the empirlink CLI.
//
// The Monitor is a Bubble Tea model that shows the session state and the
// live value of every signal the registry has seen. Dimmer levels render as
// progress bars. Bridge forwards session and registry events into a running
// program as messages:
//
//	m := ui.NewMonitor(sess.URL(), ui.Labels(hw))
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	detach := ui.Bridge(p, sess, reg)
//	defer detach()
//	_, err := p.Run()
//
// The package also carries the shared Lipgloss palette and a Printer for
// one-shot styled output such as error boxes.
//
// # Logging Integration
//
// zap logging is silent unless EMPIRLINK_LOG_LEVEL or --log-level is set,
// so log lines do not tear the monitor's rendering.
package ui
