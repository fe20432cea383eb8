package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/config"
	"github.com/livecodelife/fleetio-digest/internal/source"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvFleetAPIKey, config.EnvFleetAccountToken, config.EnvFleetBaseURL,
		config.EnvLLMBaseURL, config.EnvLLMModel, config.EnvLogLevel, config.EnvLogFormat,
	} {
		t.Setenv(k, "")
	}
}

func fleetServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/api/v1/vehicles":
			_, _ = w.Write([]byte(`{"records":[{"id":1,"name":"Truck A"}],"next_cursor":null}`))
		case "/api/v1/issues":
			_, _ = w.Write([]byte(`[{"id":10,"vehicle_id":1,"summary":"Brake noise","state":"open","overdue":true,"updated_at":"2024-01-03T10:00:00Z"}]`))
		case "/api/v1/service_reminders":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

type llmServer struct {
	*httptest.Server
	prompts []string
}

func newLLMServer(t *testing.T) *llmServer {
	t.Helper()
	s := &llmServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []struct {
				Content string `json:"content"`
			} `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if n := len(body.Input); n > 0 {
			s.prompts = append(s.prompts, body.Input[n-1].Content)
		}
		_, _ = w.Write([]byte("data: {\"type\":\"response.in_progress\"}\n\n" +
			"data: {\"type\":\"response.output_text.delta\",\"delta\":\"Fix the brakes.\"}\n\n" +
			"data: {\"type\":\"response.completed\",\"response\":{\"id\":\"resp_1\"}}\n\n"))
	}))
	return s
}

func writeConfig(t *testing.T, fleetURL, llmURL, textfile string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := `fleet:
  base_url: ` + fleetURL + `/api/v1/
  api_key: Token abc
  account_token: acct-1
  backoff: 1ms
  max_backoff: 2ms
llm:
  base_url: ` + llmURL + `
  model: test-model
  backoff: 1ms
metrics:
  enable: true
  textfile: ` + textfile + `
log:
  level: error
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func fixedNow() time.Time { return time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) }

func TestRunPrintsBannerSummaryAndChats(t *testing.T) {
	clearEnv(t)
	fleet := fleetServer(t, http.StatusOK)
	defer fleet.Close()
	model := newLLMServer(t)
	defer model.Close()

	textfile := filepath.Join(t.TempDir(), "fleet_digest.prom")
	opts := &options{configPath: writeConfig(t, fleet.URL, model.URL, textfile), now: fixedNow}
	var out, errOut bytes.Buffer
	in := strings.NewReader("what about tires?\nexit\n")

	if err := run(context.Background(), opts, nil, in, &out, &errOut); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, errOut.String())
	}

	got := out.String()
	for _, want := range []string{
		"FLEET WEEKLY DIGEST",
		"2024-01-01 to 2024-01-08",
		"- 1 open issues",
		"- 1 overdue issues",
		"Please wait...",
		"Fix the brakes.",
		"Do you have any questions? >",
		"Do you have any other questions? >",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	if len(model.prompts) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(model.prompts))
	}
	if !strings.Contains(model.prompts[0], "  - Brake noise (overdue)") ||
		!strings.HasPrefix(model.prompts[0], "Summarize the following fleet activity") {
		t.Fatalf("unexpected first prompt:\n%s", model.prompts[0])
	}
	if model.prompts[1] != "what about tires?" {
		t.Fatalf("unexpected follow-up prompt %q", model.prompts[1])
	}

	b, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(b), `llm_turns_total{outcome="ok"} 2`) {
		t.Fatalf("unexpected metrics textfile:\n%s", b)
	}
}

func TestRunPositionalOverridesAndNoChat(t *testing.T) {
	clearEnv(t)
	fleet := fleetServer(t, http.StatusOK)
	defer fleet.Close()
	model := newLLMServer(t)
	defer model.Close()

	// config points the model server at a dead address; the positional URL wins
	opts := &options{
		configPath: writeConfig(t, fleet.URL, "http://127.0.0.1:1", filepath.Join(t.TempDir(), "m.prom")),
		noChat:     true,
		dumpDigest: true,
		now:        fixedNow,
	}
	var out bytes.Buffer
	err := run(context.Background(), opts, []string{"other-model", model.URL}, strings.NewReader("never read\n"), &out, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("--no-chat should stop after the summary, got %d turns", len(model.prompts))
	}
	if !strings.Contains(out.String(), `"start_date": "2024-01-01"`) {
		t.Fatalf("digest JSON not dumped:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Do you have any questions?") {
		t.Fatalf("question loop ran with --no-chat")
	}
}

func TestRunMissingConfiguration(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvFleetAPIKey, "Token abc")
	opts := &options{now: fixedNow}
	err := run(context.Background(), opts, nil, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})

	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *config.MissingError, got %v", err)
	}
	want := "FLEETIO_ACCOUNT_TOKEN,FLEETIO_BASE_URL,LM_STUDIO_BASE_URL,LM_STUDIO_MODEL"
	if got := strings.Join(missing.Names, ","); got != want {
		t.Fatalf("missing = %s, want %s", got, want)
	}
}

func TestRunFleetErrorStopsBeforeSummary(t *testing.T) {
	clearEnv(t)
	fleet := fleetServer(t, http.StatusUnauthorized)
	defer fleet.Close()
	model := newLLMServer(t)
	defer model.Close()

	opts := &options{configPath: writeConfig(t, fleet.URL, model.URL, ""), now: fixedNow}
	var out bytes.Buffer
	err := run(context.Background(), opts, nil, strings.NewReader(""), &out, &bytes.Buffer{})
	if !errors.Is(err, source.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if len(model.prompts) != 0 || strings.Contains(out.String(), "FLEET WEEKLY DIGEST") {
		t.Fatalf("nothing should be printed or sent after a fetch failure:\n%s", out.String())
	}
}

func TestRootCmdRejectsExtraArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"a", "b", "c"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error for three positional arguments")
	}
}
