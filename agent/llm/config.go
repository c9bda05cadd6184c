package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	openrouterx "github.com/tanpawarit/clinic-admin-console/pkg/openrouter"
)

// Config is loaded with the OPENROUTER prefix. A missing API key is not an
// error: the console starts with a warning banner and every turn fails.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"google/gemini-2.5-flash"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	MaxToolRounds        int           `envconfig:"MAX_TOOL_ROUNDS" split_words:"true" default:"10"`
	RetryMaxAttempts     int           `envconfig:"RETRY_MAX_ATTEMPTS" split_words:"true" default:"1"`
	RetryInitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" split_words:"true" default:"500ms"`
	ProbeOnStart         bool          `envconfig:"PROBE_ON_START" split_words:"true" default:"false"`
}

func (c Config) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	if c.MaxToolRounds < 0 {
		return fmt.Errorf("%w: max tool rounds must be >= 0", contractx.ErrValidation)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be >= 1", contractx.ErrValidation)
	}
	if c.RetryInitialInterval < 0 {
		return fmt.Errorf("%w: retry initial interval must be >= 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
