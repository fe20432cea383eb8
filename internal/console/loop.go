package console

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/livecodelife/fleetio-digest/internal/llm"
	"github.com/livecodelife/fleetio-digest/internal/observability"
)

const (
	firstQuestion = "Do you have any questions?"
	nextQuestion  = "Do you have any other questions?"
	exitCommand   = "exit"
)

// Completer runs one conversation turn.
type Completer interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Chat asks follow-up questions until the user types exit or input ends.
// A failed turn is reported and the question asked again.
func (c *Console) Chat(ctx context.Context, s Completer) error {
	log := observability.LoggerFromContext(ctx)
	question := firstQuestion
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := c.Ask(question)
		if errors.Is(err, io.EOF) {
			c.Println()
			return nil
		}
		if err != nil {
			return err
		}
		text := strings.TrimSpace(line)
		if text == exitCommand {
			return nil
		}
		if text == "" {
			continue
		}

		if _, err := s.Complete(ctx, text); err != nil {
			if ctx.Err() != nil || !errors.Is(err, llm.ErrLLM) {
				return err
			}
			log.Warn("turn failed", "err", err)
			c.Println()
			c.Errorf("%v", err)
			continue
		}
		c.Println()
		question = nextQuestion
	}
}
