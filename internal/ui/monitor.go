package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/protocol"
	"github.com/muurk/empirlink/internal/session"
	"github.com/muurk/empirlink/internal/signals"
)

// StateMsg reports a session state change.
type StateMsg struct {
	State   session.State
	Attempt int
	Close   *session.CloseEvent
}

// SignalMsg reports a registry update.
type SignalMsg signals.Change

// ErrorMsg reports a transport error.
type ErrorMsg struct {
	Err error
}

// Monitor is a Bubble Tea model showing the connection state and the live
// value of every signal received.
type Monitor struct {
	url       string
	state     session.State
	attempt   int
	lastClose *session.CloseEvent
	lastErr   error

	values  map[uint16]signals.State
	labels  map[uint16]string
	updates int

	spinner spinner.Model
	bar     progress.Model
	width   int
	height  int
}

// NewMonitor creates a monitor for url. labels maps signal ids to names.
func NewMonitor(url string, labels map[uint16]string) Monitor {
	width, height := GetTerminalSize()
	if labels == nil {
		labels = map[uint16]string{}
	}
	return Monitor{
		url:    url,
		state:  session.StateConnecting,
		values: make(map[uint16]signals.State),
		labels: labels,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(WarningColor)),
		),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		width:  width,
		height: height,
	}
}

// Init implements tea.Model
func (m Monitor) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.values = make(map[uint16]signals.State)
			m.updates = 0
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width, nil)
		m.height = msg.Height

	case StateMsg:
		m.state = msg.State
		m.attempt = msg.Attempt
		if msg.Close != nil {
			m.lastClose = msg.Close
		}
		if msg.State == session.StateOpen {
			m.lastErr = nil
		}

	case SignalMsg:
		m.values[msg.ID] = msg.State
		m.updates++

	case ErrorMsg:
		m.lastErr = msg.Err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m Monitor) View() string {
	inner := m.width - 4

	var lines []string
	lines = append(lines, m.renderTitle())
	lines = append(lines, RenderDivider(inner))
	lines = append(lines, ColumnHeaderStyle.Render(
		IDStyle.Render("ID")+" "+LabelStyle.Render("OUTPUT")+" "+KindStyle.Render("KIND")+" VALUE"))

	ids := make([]uint16, 0, len(m.values))
	for id := range m.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	maxRows := len(ids)
	if m.height > 10 && maxRows > m.height-10 {
		maxRows = m.height - 10
	}
	for _, id := range ids[:maxRows] {
		lines = append(lines, m.renderRow(id, m.values[id]))
	}
	if len(ids) == 0 {
		lines = append(lines, MutedStyle.Render("  waiting for status messages..."))
	} else if maxRows < len(ids) {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("  ... %d more", len(ids)-maxRows)))
	}

	lines = append(lines, RenderDivider(inner))
	lines = append(lines, m.renderFooter())

	return BoxStyle(m.width).Render(strings.Join(lines, "\n")) + "\n"
}

func (m Monitor) renderTitle() string {
	badge := StateStyle(m.state).Render(strings.ToUpper(m.state.String()))
	if m.state == session.StateConnecting {
		badge = m.spinner.View() + " " + badge
	}
	return TitleStyle.Render("EMPIRLINK MONITOR") + "  " + badge + "  " + MutedStyle.Render(m.url)
}

func (m Monitor) renderRow(id uint16, st signals.State) string {
	label := m.labels[id]
	if label == "" {
		label = "-"
	}
	return IDStyle.Render(fmt.Sprintf("%d", id)) + " " +
		LabelStyle.Render(truncate(label, 21)) + " " +
		KindStyle.Render(st.Kind()) + " " +
		m.renderValue(st)
}

func (m Monitor) renderValue(st signals.State) string {
	switch s := st.(type) {
	case signals.ToggleState:
		if s.On {
			return OnStyle.Render(OnMarker + " ON")
		}
		return OffStyle.Render(OffMarker + " off")
	case signals.DimmerState:
		return m.bar.ViewAs(s.Percent/100) + fmt.Sprintf(" %5.1f%%", s.Percent)
	default:
		return FormatState(st)
	}
}

func (m Monitor) renderFooter() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d signals, %d updates", len(m.values), m.updates))
	if m.state != session.StateOpen && m.attempt > 0 {
		parts = append(parts, fmt.Sprintf("reconnect attempt %d", m.attempt))
	}
	if m.lastClose != nil && m.state != session.StateOpen {
		parts = append(parts, fmt.Sprintf("closed %d %s", m.lastClose.Code, m.lastClose.Reason))
	}
	footer := MutedStyle.Render(" " + strings.Join(parts, "  ·  "))
	if m.lastErr != nil {
		footer += "\n" + ErrorMessageStyle.Render(" "+FailureMarker+" "+m.lastErr.Error())
	}
	return footer + "\n" + HintStyle.Render(" q quit  ·  c clear")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// FormatState renders a signal state as plain text.
func FormatState(st signals.State) string {
	switch s := st.(type) {
	case signals.ToggleState:
		if s.On {
			return "on"
		}
		return "off"
	case signals.DimmerState:
		return fmt.Sprintf("%.1f%% (index %d)", s.Percent, s.Index)
	case signals.NumericState:
		return fmt.Sprintf("%d", s.Raw)
	case signals.OpaqueState:
		return fmt.Sprintf("cmd=%d [%s]", s.Command, protocol.HexDump(s.Raw))
	default:
		return "?"
	}
}

// Labels maps every signal id in hw to a display name.
func Labels(hw *hardware.Config) map[uint16]string {
	labels := make(map[uint16]string)
	if hw == nil {
		return labels
	}

	add := func(id *uint16, name string) {
		if id == nil {
			return
		}
		if _, ok := labels[*id]; !ok {
			labels[*id] = name
		}
	}
	for _, o := range hw.Outputs {
		name := o.Label
		if name == "" {
			name = o.ID
		}
		add(o.SignalID, name)
		if o.Signals != nil {
			add(o.Signals.Toggle, name)
			add(o.Signals.Momentary, name+" (momentary)")
			add(o.Signals.Dimmer, name+" (dimmer)")
			add(o.Signals.Value, name+" (value)")
		}
	}
	return labels
}

// MonitorEvents is the part of session.Session the monitor listens to.
type MonitorEvents interface {
	OnOpen(fn func()) func()
	OnClose(fn func(session.CloseEvent)) func()
	OnError(fn func(error)) func()
}

// MessageSender receives forwarded events; *tea.Program satisfies it.
type MessageSender interface {
	Send(msg tea.Msg)
}

// Bridge forwards session and registry events to a running program. The
// returned function detaches every subscription.
func Bridge(p MessageSender, sess MonitorEvents, reg *signals.Registry) func() {
	unsubs := []func(){
		sess.OnOpen(func() {
			p.Send(StateMsg{State: session.StateOpen})
		}),
		sess.OnClose(func(evt session.CloseEvent) {
			e := evt
			p.Send(StateMsg{State: session.StateClosed, Attempt: evt.ReconnectAttempt, Close: &e})
		}),
		sess.OnError(func(err error) {
			p.Send(ErrorMsg{Err: err})
		}),
	}
	if reg != nil {
		unsubs = append(unsubs, reg.OnChange(func(ch signals.Change) {
			p.Send(SignalMsg(ch))
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
