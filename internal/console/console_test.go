package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/livecodelife/fleetio-digest/internal/llm"
	"github.com/livecodelife/fleetio-digest/internal/model"
)

type fakeSession struct {
	asked []string
	fail  map[string]error
}

func (f *fakeSession) Complete(_ context.Context, text string) (string, error) {
	f.asked = append(f.asked, text)
	if err, ok := f.fail[text]; ok {
		return "", err
	}
	return "answer to " + text, nil
}

func TestBannerShowsTotals(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader(""), &out, false)
	c.Banner(model.Digest{
		Period: model.Period{StartDate: "2024-01-01", EndDate: "2024-01-08"},
		Totals: model.Totals{OpenIssues: 3, OverdueIssues: 1, ResolvedIssues: 2, ServiceReminders: 5},
	})
	got := out.String()
	for _, want := range []string{
		"FLEET WEEKLY DIGEST",
		"2024-01-01 to 2024-01-08",
		"- 3 open issues",
		"- 1 overdue issues",
		"- 2 resolved issues",
		"- 5 service reminders",
		strings.Repeat("=", 80),
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("banner missing %q:\n%s", want, got)
		}
	}
}

func TestReasoningTraceErasedOnTerminal(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader(""), &out, true)
	c.Progress()
	c.ReasoningDelta("first line\nsecond")
	c.ReasoningDelta(" line\nthird")
	out.Reset()
	c.ReasoningDone("first line\nsecond line\nthird")

	got := out.String()
	if n := strings.Count(got, cursorUp); n != 2 {
		t.Fatalf("expected 2 cursor-up sequences, got %d in %q", n, got)
	}
	if n := strings.Count(got, eraseLine); n != 3 {
		t.Fatalf("expected 3 erased lines, got %d in %q", n, got)
	}
}

func TestReasoningTraceCountsWrappedRows(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader(""), &out, true)
	c.width = 10
	c.ReasoningDelta(strings.Repeat("x", 25))
	out.Reset()
	c.ReasoningDone("")
	if n := strings.Count(out.String(), cursorUp); n != 2 {
		t.Fatalf("25 runes at width 10 span 3 rows, got %d cursor-ups", n)
	}
}

func TestReasoningTraceHiddenWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader(""), &out, false)
	c.Progress()
	c.ReasoningDelta("secret thoughts")
	c.ReasoningDone("secret thoughts")
	c.OutputDelta("Hello")
	if got := out.String(); got != "Please wait...\nHello" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestChatUntilExit(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader("why?\n\nwhat next?\nexit\nignored\n"), &out, false)
	s := &fakeSession{}
	if err := c.Chat(context.Background(), s); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got := strings.Join(s.asked, "|"); got != "why?|what next?" {
		t.Fatalf("unexpected turns: %s", got)
	}
	got := out.String()
	if strings.Count(got, firstQuestion+" >") != 1 || strings.Count(got, nextQuestion+" >") != 3 {
		t.Fatalf("unexpected prompts:\n%s", got)
	}
}

func TestChatStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader("last question"), &out, false)
	s := &fakeSession{}
	if err := c.Chat(context.Background(), s); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(s.asked) != 1 || s.asked[0] != "last question" {
		t.Fatalf("unexpected turns: %v", s.asked)
	}
}

func TestChatReportsFailedTurnAndContinues(t *testing.T) {
	var out bytes.Buffer
	c := NewWithMode(strings.NewReader("broken\nagain\nexit\n"), &out, false)
	s := &fakeSession{fail: map[string]error{"broken": fmt.Errorf("%w: status 503", llm.ErrLLM)}}
	if err := c.Chat(context.Background(), s); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(s.asked) != 2 {
		t.Fatalf("expected 2 turns, got %v", s.asked)
	}
	if !strings.Contains(out.String(), "error: llm request failed: status 503") {
		t.Fatalf("failure not reported:\n%s", out.String())
	}
}

func TestChatReturnsUnexpectedError(t *testing.T) {
	boom := errors.New("boom")
	c := NewWithMode(strings.NewReader("q\n"), &bytes.Buffer{}, false)
	err := c.Chat(context.Background(), &fakeSession{fail: map[string]error{"q": boom}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestChatHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewWithMode(strings.NewReader("q\n"), &bytes.Buffer{}, false)
	if err := c.Chat(ctx, &fakeSession{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
