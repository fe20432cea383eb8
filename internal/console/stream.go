package console

import (
	"fmt"
	"io"
	"strings"
)

const (
	cursorUp  = "\x1b[1A"
	eraseLine = "\x1b[2K"
)

// Progress is called when the model has accepted the request.
func (c *Console) Progress() {
	fmt.Fprintln(c.out, "Please wait...")
}

// ReasoningDelta shows the reasoning trace on a terminal and tracks how many
// screen rows it occupies so it can be erased afterwards.
func (c *Console) ReasoningDelta(delta string) {
	if !c.live || delta == "" {
		return
	}
	if !c.tracing {
		c.tracing = true
		c.traceRows, c.traceCol = 0, 0
	}
	for _, r := range delta {
		if r == '\n' {
			c.traceRows++
			c.traceCol = 0
			continue
		}
		if c.traceCol == c.width {
			c.traceRows++
			c.traceCol = 0
		}
		c.traceCol++
	}
	// styled per line: a multi-line Render pads every line to the widest one
	parts := strings.Split(delta, "\n")
	for i, p := range parts {
		if p != "" {
			io.WriteString(c.out, c.st.trace.Render(p))
		}
		if i < len(parts)-1 {
			io.WriteString(c.out, "\n")
		}
	}
}

// ReasoningDone retracts exactly the rows written by ReasoningDelta.
func (c *Console) ReasoningDone(string) {
	if !c.live || !c.tracing {
		return
	}
	var b strings.Builder
	b.WriteString("\r" + eraseLine)
	for i := 0; i < c.traceRows; i++ {
		b.WriteString(cursorUp + eraseLine)
	}
	b.WriteString("\r")
	io.WriteString(c.out, b.String())
	c.tracing = false
	c.traceRows, c.traceCol = 0, 0
}

func (c *Console) OutputDelta(delta string) {
	io.WriteString(c.out, delta)
}
