package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names for the required settings.
const (
	EnvFleetAPIKey       = "FLEETIO_API_KEY"
	EnvFleetAccountToken = "FLEETIO_ACCOUNT_TOKEN"
	EnvFleetBaseURL      = "FLEETIO_BASE_URL"
	EnvLLMBaseURL        = "LM_STUDIO_BASE_URL"
	EnvLLMModel          = "LM_STUDIO_MODEL"

	EnvLogLevel  = "FLEET_DIGEST_LOG_LEVEL"
	EnvLogFormat = "FLEET_DIGEST_LOG_FORMAT"
)

type FleetConfig struct {
	BaseURL      string        `yaml:"base_url"`      // https://secure.fleetio.com/api/v1/
	APIKey       string        `yaml:"api_key"`       // sent verbatim as Authorization
	AccountToken string        `yaml:"account_token"` // sent as Account-Token
	UserAgent    string        `yaml:"user_agent"`
	PageSize     int           `yaml:"page_size"` // vehicles per_page, default 100
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"` // retries after the first attempt
	Backoff      time.Duration `yaml:"backoff"`     // initial backoff
	MaxBackoff   time.Duration `yaml:"max_backoff"`
}

type LLMConfig struct {
	BaseURL         string        `yaml:"base_url"` // http://localhost:1234
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`          // whole turn, stream included
	ReasoningEffort string        `yaml:"reasoning_effort"` // low | medium | high
	ConnectRetries  int           `yaml:"connect_retries"`
	Backoff         time.Duration `yaml:"backoff"`
}

type DigestConfig struct {
	Window time.Duration `yaml:"window"` // trailing window, default 168h
}

type MetricsConfig struct {
	Enable   bool   `yaml:"enable"`
	Textfile string `yaml:"textfile"` // optional node-exporter textfile path
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type Config struct {
	Fleet   FleetConfig   `yaml:"fleet"`
	LLM     LLMConfig     `yaml:"llm"`
	Digest  DigestConfig  `yaml:"digest"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// MissingError lists the required settings that were empty after loading.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Names, ", ")
}

// ErrMissing is matched by every *MissingError.
var ErrMissing = errors.New("missing required configuration")

func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// Load reads the optional YAML file at path, overlays the environment and
// applies defaults. It does not validate; call Validate before using the result.
func Load(path string) (Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	applyEnv(&c, os.LookupEnv)
	applyDefaults(&c)
	return c, nil
}

func applyEnv(c *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Fleet.APIKey, EnvFleetAPIKey)
	set(&c.Fleet.AccountToken, EnvFleetAccountToken)
	set(&c.Fleet.BaseURL, EnvFleetBaseURL)
	set(&c.LLM.BaseURL, EnvLLMBaseURL)
	set(&c.LLM.Model, EnvLLMModel)
	set(&c.Log.Level, EnvLogLevel)
	set(&c.Log.Format, EnvLogFormat)
}

func applyDefaults(c *Config) {
	if c.Fleet.PageSize <= 0 {
		c.Fleet.PageSize = 100
	}
	if c.Fleet.Timeout == 0 {
		c.Fleet.Timeout = 30 * time.Second
	}
	if c.Fleet.MaxRetries == 0 {
		c.Fleet.MaxRetries = 3
	}
	if c.Fleet.Backoff == 0 {
		c.Fleet.Backoff = 500 * time.Millisecond
	}
	if c.Fleet.MaxBackoff == 0 {
		c.Fleet.MaxBackoff = 5 * time.Second
	}
	if c.Fleet.UserAgent == "" {
		c.Fleet.UserAgent = "fleetio-digest"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 1000 * time.Second
	}
	if c.LLM.ReasoningEffort == "" {
		c.LLM.ReasoningEffort = "medium"
	}
	if c.LLM.ConnectRetries == 0 {
		c.LLM.ConnectRetries = 3
	}
	if c.LLM.Backoff == 0 {
		c.LLM.Backoff = 500 * time.Millisecond
	}
	if c.Digest.Window <= 0 {
		c.Digest.Window = 7 * 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every missing required setting at once, by env name.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{EnvFleetAPIKey, c.Fleet.APIKey},
		{EnvFleetAccountToken, c.Fleet.AccountToken},
		{EnvFleetBaseURL, c.Fleet.BaseURL},
		{EnvLLMBaseURL, c.LLM.BaseURL},
		{EnvLLMModel, c.LLM.Model},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}
	return nil
}
