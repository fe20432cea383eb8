package llm

import (
	"bytes"
	"encoding/json"
)

// Event types emitted by the responses stream that the session reacts to.
const (
	EventInProgress     = "response.in_progress"
	EventReasoningDelta = "response.reasoning_text.delta"
	EventReasoningDone  = "response.reasoning_text.done"
	EventOutputDelta    = "response.output_text.delta"
	EventCompleted      = "response.completed"
)

var dataPrefix = []byte("data: ")

// Event is one decoded SSE frame. Only the fields the session uses are kept.
type Event struct {
	Type     string         `json:"type"`
	Delta    string         `json:"delta,omitempty"`
	Text     string         `json:"text,omitempty"`
	Response *EventResponse `json:"response,omitempty"`
}

type EventResponse struct {
	ID string `json:"id"`
}

// ResponseID returns the id carried by a completed event, or "".
func (e Event) ResponseID() string {
	if e.Response == nil {
		return ""
	}
	return e.Response.ID
}

// StreamParser turns arbitrary body chunks into events. A frame split across
// chunks is held until its terminating newline arrives.
type StreamParser struct {
	buf     []byte
	skipped int
}

// Feed consumes one chunk and returns the events completed by it.
func (p *StreamParser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)
	var out []Event
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		p.buf = p.buf[i+1:]
		if ev, ok := p.parseLine(line); ok {
			out = append(out, ev)
		}
	}
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return out
}

// Flush parses whatever is left once the body is exhausted.
func (p *StreamParser) Flush() []Event {
	line := p.buf
	p.buf = nil
	if ev, ok := p.parseLine(line); ok {
		return []Event{ev}
	}
	return nil
}

// Skipped counts data frames that could not be decoded.
func (p *StreamParser) Skipped() int { return p.skipped }

func (p *StreamParser) parseLine(line []byte) (Event, bool) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}
	payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))
	if string(payload) == "[DONE]" {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		p.skipped++
		return Event{}, false
	}
	return ev, true
}
