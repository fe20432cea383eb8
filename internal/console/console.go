// Package console renders the digest banner, the streamed answers and the
// follow-up question loop on a terminal or a plain writer.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/livecodelife/fleetio-digest/internal/model"
)

const ruleWidth = 80

type styles struct {
	title lipgloss.Style
	count lipgloss.Style
	trace lipgloss.Style
	err   lipgloss.Style
	ask   lipgloss.Style
}

// Console writes to out and reads answers from in. When live is set the
// output is a terminal and the reasoning trace is shown, then erased.
type Console struct {
	out   io.Writer
	in    *bufio.Reader
	live  bool
	width int
	st    styles

	traceRows int
	traceCol  int
	tracing   bool
}

// New builds a console. Terminal detection only applies when out is a file.
func New(in io.Reader, out io.Writer) *Console {
	return NewWithMode(in, out, IsTerminal(out))
}

// NewWithMode forces live mode on or off.
func NewWithMode(in io.Reader, out io.Writer, live bool) *Console {
	r := lipgloss.NewRenderer(out)
	c := &Console{
		out:   out,
		in:    bufio.NewReader(in),
		live:  live,
		width: ruleWidth,
		st: styles{
			title: r.NewStyle().Bold(true),
			count: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#87ceeb")),
			trace: r.NewStyle().Faint(true),
			err:   r.NewStyle().Foreground(lipgloss.Color("#ff5555")),
			ask:   r.NewStyle().Bold(true),
		},
	}
	if f, ok := out.(*os.File); ok && live {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			c.width = w
		}
	}
	return c
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) Rule() {
	fmt.Fprintln(c.out, strings.Repeat("=", ruleWidth))
}

// Banner prints the weekly totals shown before the first summary.
func (c *Console) Banner(d model.Digest) {
	t := d.Totals
	fmt.Fprintln(c.out)
	c.Rule()
	fmt.Fprintln(c.out, c.st.title.Render("FLEET WEEKLY DIGEST"))
	fmt.Fprintf(c.out, "%s to %s\n", d.Period.StartDate, d.Period.EndDate)
	fmt.Fprintln(c.out, "This week you have:")
	for _, row := range []struct {
		n     int
		label string
	}{
		{t.OpenIssues, "open issues"},
		{t.OverdueIssues, "overdue issues"},
		{t.ResolvedIssues, "resolved issues"},
		{t.ServiceReminders, "service reminders"},
	} {
		fmt.Fprintf(c.out, "- %s %s\n", c.st.count.Render(fmt.Sprint(row.n)), row.label)
	}
	c.Rule()
}

// Println writes a plain line.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Errorf prints a short diagnostic line.
func (c *Console) Errorf(format string, a ...any) {
	fmt.Fprintln(c.out, c.st.err.Render("error: "+fmt.Sprintf(format, a...)))
}

// Ask prints question and returns the next input line without its newline.
// io.EOF is returned once input is exhausted and nothing was typed.
func (c *Console) Ask(question string) (string, error) {
	fmt.Fprintf(c.out, "\n %s > ", c.st.ask.Render(question))
	line, err := c.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
