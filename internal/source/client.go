package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/config"
	"github.com/livecodelife/fleetio-digest/internal/metrics"
	"github.com/livecodelife/fleetio-digest/internal/util"
)

// Client talks to the fleet REST API. It is safe to reuse across resources
// but not designed for concurrent callers.
type Client struct {
	cfg     config.FleetConfig
	baseURL string
	client  *http.Client
	metrics *metrics.Metrics
}

// NewClient validates the credentials before any request is made.
func NewClient(cfg config.FleetConfig, m *metrics.Metrics) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, config.EnvFleetAPIKey)
	}
	if strings.TrimSpace(cfg.AccountToken) == "" {
		missing = append(missing, config.EnvFleetAccountToken)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		missing = append(missing, config.EnvFleetBaseURL)
	}
	if len(missing) > 0 {
		return nil, &config.MissingError{Names: missing}
	}
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid fleet base url %q", cfg.BaseURL)
	}
	to := cfg.Timeout
	if to == 0 {
		to = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(base.String(), "/") + "/",
		client:  util.NewHTTPClient(to),
		metrics: m,
	}, nil
}

// get performs an authenticated GET and decodes the JSON body with numbers
// kept as json.Number. Transient statuses and transport errors are retried.
func (c *Client) get(ctx context.Context, kind Kind, params url.Values) (any, error) {
	op := "GET " + kind.Path()
	endpoint := c.baseURL + kind.Path()
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var (
		body       []byte
		lastStatus int
		attempt    int
	)
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	err := util.Retry(ctx, attempts, util.DefaultDur(c.cfg.Backoff, 500*time.Millisecond), util.DefaultDur(c.cfg.MaxBackoff, 5*time.Second), func() error {
		if attempt > 0 {
			c.metrics.IncRetry(kind.String())
		}
		attempt++
		lastStatus = 0

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Authorization", c.cfg.APIKey)
		req.Header.Set("Account-Token", c.cfg.AccountToken)
		req.Header.Set("Accept", "application/json")
		if ua := c.cfg.UserAgent; ua != "" {
			req.Header.Set("User-Agent", ua)
		}

		r, err := c.client.Do(req)
		if err != nil {
			c.metrics.ObserveRequest(kind.String(), 0)
			if ctx.Err() != nil {
				return util.Permanent(err)
			}
			return err
		}
		b, err := io.ReadAll(r.Body)
		r.Body.Close()
		c.metrics.ObserveRequest(kind.String(), r.StatusCode)
		lastStatus = r.StatusCode
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = b
		if retryable(r.StatusCode) {
			return fmt.Errorf("transient status %d", r.StatusCode)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &APIError{Op: op, Status: lastStatus, Err: ErrRequest, Cause: err}
		}
		if lastStatus != 0 && retryable(lastStatus) {
			return nil, &APIError{Op: op, Status: lastStatus, Err: classify(lastStatus)}
		}
		return nil, &APIError{Op: op, Status: lastStatus, Err: ErrRequest, Cause: err}
	}
	if lastStatus/100 != 2 {
		return nil, &APIError{Op: op, Status: lastStatus, Err: classify(lastStatus)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &APIError{Op: op, Status: lastStatus, Err: ErrRequest, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}
