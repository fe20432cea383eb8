package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/config"
	"github.com/livecodelife/fleetio-digest/internal/metrics"
	"github.com/livecodelife/fleetio-digest/internal/observability"
	"github.com/livecodelife/fleetio-digest/internal/util"
)

// ErrLLM wraps every failure to obtain a turn from the completion endpoint.
var ErrLLM = errors.New("llm request failed")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamHandler receives the visible side effects of a streamed turn.
type StreamHandler interface {
	Progress()
	ReasoningDelta(delta string)
	ReasoningDone(text string)
	OutputDelta(delta string)
}

// NopHandler discards every stream notification.
type NopHandler struct{}

func (NopHandler) Progress()             {}
func (NopHandler) ReasoningDelta(string) {}
func (NopHandler) ReasoningDone(string)  {}
func (NopHandler) OutputDelta(string)    {}

type reasoning struct {
	Effort string `json:"effort"`
}

type responsesRequest struct {
	Model              string    `json:"model"`
	Instructions       string    `json:"instructions"`
	Input              []Turn    `json:"input"`
	Stream             bool      `json:"stream"`
	PreviousResponseID *string   `json:"previous_response_id"`
	Reasoning          reasoning `json:"reasoning"`
}

// Session is one conversation with the completion endpoint. It owns the
// transcript and is not safe for concurrent use.
type Session struct {
	cfg      config.LLMConfig
	endpoint string
	http     *http.Client
	handler  StreamHandler
	metrics  *metrics.Metrics

	transcript []Turn
	previousID string
}

func NewSession(cfg config.LLMConfig, h StreamHandler, m *metrics.Metrics) (*Session, error) {
	var missing []string
	if strings.TrimSpace(cfg.BaseURL) == "" {
		missing = append(missing, config.EnvLLMBaseURL)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		missing = append(missing, config.EnvLLMModel)
	}
	if len(missing) > 0 {
		return nil, &config.MissingError{Names: missing}
	}
	if h == nil {
		h = NopHandler{}
	}
	if cfg.ReasoningEffort == "" {
		cfg.ReasoningEffort = "medium"
	}
	return &Session{
		cfg:      cfg,
		endpoint: normalizeBaseURL(cfg.BaseURL) + "/responses",
		http:     util.NewHTTPClient(util.DefaultDur(cfg.Timeout, 1000*time.Second)),
		handler:  h,
		metrics:  m,
	}, nil
}

// normalizeBaseURL accepts host:port, a bare origin or an origin with /v1.
func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []Turn {
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// PreviousResponseID is the id of the last completed response, or "".
func (s *Session) PreviousResponseID() string { return s.previousID }

// Complete sends userText as the next turn and streams the answer through the
// handler. On failure the user turn is dropped so the call can be repeated.
func (s *Session) Complete(ctx context.Context, userText string) (string, error) {
	began := time.Now()
	log := observability.LoggerFromContext(ctx).With("turn", len(s.transcript)/2+1)

	mark := len(s.transcript)
	s.transcript = append(s.transcript, Turn{Role: RoleUser, Content: userText})

	answer, err := s.stream(ctx)
	if err != nil {
		s.transcript = s.transcript[:mark]
		s.metrics.ObserveTurn("error", time.Since(began))
		log.Debug("turn failed", "err", err)
		return "", fmt.Errorf("%w: %w", ErrLLM, err)
	}

	s.transcript = append(s.transcript, Turn{Role: RoleAssistant, Content: answer})
	s.metrics.ObserveTurn("ok", time.Since(began))
	log.Debug("turn complete", "chars", len(answer), "response_id", s.previousID, "took", time.Since(began))
	return answer, nil
}

func (s *Session) stream(ctx context.Context) (string, error) {
	body := responsesRequest{
		Model:        s.cfg.Model,
		Instructions: Instructions,
		Input:        s.transcript,
		Stream:       true,
		Reasoning:    reasoning{Effort: s.cfg.ReasoningEffort},
	}
	if s.previousID != "" {
		id := s.previousID
		body.PreviousResponseID = &id
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.connect(ctx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var (
		parser  StreamParser
		answer  strings.Builder
		chunk   = make([]byte, 4096)
		skipped int
	)
	dispatch := func(events []Event) {
		for _, ev := range events {
			s.metrics.IncStreamEvent(ev.Type)
			switch ev.Type {
			case EventInProgress:
				s.handler.Progress()
			case EventReasoningDelta:
				s.handler.ReasoningDelta(ev.Delta)
			case EventReasoningDone:
				s.handler.ReasoningDone(ev.Text)
			case EventOutputDelta:
				answer.WriteString(ev.Delta)
				s.handler.OutputDelta(ev.Delta)
			case EventCompleted:
				if id := ev.ResponseID(); id != "" {
					s.previousID = id
				}
			}
		}
		for ; skipped < parser.Skipped(); skipped++ {
			s.metrics.IncSkippedFrame()
		}
	}

	for {
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			dispatch(parser.Feed(chunk[:n]))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("read stream: %w", rerr)
		}
	}
	dispatch(parser.Flush())
	return answer.String(), nil
}

// connect posts the request, retrying transport failures only. A non-2xx
// status ends the turn without another attempt.
func (s *Session) connect(ctx context.Context, payload []byte) (*http.Response, error) {
	attempts := s.cfg.ConnectRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := util.DefaultDur(s.cfg.Backoff, 500*time.Millisecond)

	var resp *http.Response
	err := util.Retry(ctx, attempts, backoff, backoff, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return util.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		r, err := s.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return util.Permanent(err)
			}
			return fmt.Errorf("request failed: %w", err)
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(r.Body, 512))
			r.Body.Close()
			msg := strings.TrimSpace(string(b))
			if msg == "" {
				return util.Permanent(fmt.Errorf("status %s", r.Status))
			}
			return util.Permanent(fmt.Errorf("status %s: %s", r.Status, msg))
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
