package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderErrorBox renders a failure box with an optional multi-line hint
func RenderErrorBox(title string, err error, hint string, width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render(" " + FailureMarker + "  FAILED  ─  " + title),
		"",
	}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+err.Error()), "")
	}
	if hint != "" {
		for _, l := range strings.Split(hint, "\n") {
			lines = append(lines, HintStyle.Render(" "+l))
		}
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ErrorColor).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}

// RenderKeyValues renders aligned "key: value" lines in the given order
func RenderKeyValues(keys []string, values map[string]string) string {
	keyWidth := 0
	for _, k := range keys {
		if len(k) > keyWidth {
			keyWidth = len(k)
		}
	}
	keyStyle := MutedStyle.Width(keyWidth + 2)

	var lines []string
	for _, k := range keys {
		lines = append(lines, "  "+keyStyle.Render(k+":")+values[k])
	}
	return strings.Join(lines, "\n")
}

// Printer writes styled output to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// PrintTitle prints a bold title line
func (p *Printer) PrintTitle(title string) {
	p.Println(TitleStyle.Render(strings.ToUpper(title)))
	p.Println(RenderDivider(p.width - 2))
}

// PrintSuccess prints a single success line
func (p *Printer) PrintSuccess(msg string) {
	p.Println(OnStyle.Render(SuccessMarker) + " " + msg)
}

// PrintError prints an error box with a troubleshooting hint
func (p *Printer) PrintError(title string, err error, hint string) {
	p.Println(RenderErrorBox(title, err, hint, p.width))
}
