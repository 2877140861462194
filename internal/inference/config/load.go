package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EngineOAIHTTP = "oai_http"
	EngineGemini  = "gemini"
	EngineMock    = "mock"

	DefaultOpenAIBaseURL = "https://api.openai.com"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	return d.parse(strings.TrimSpace(string(b)), true)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got yaml kind %d", value.Kind)
	}
	// Quoted and bare YAML scalars both arrive here unquoted.
	return d.parse(strings.TrimSpace(value.Value), false)
}

func (d *Duration) parse(s string, quoted bool) error {
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if quoted && len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(u)
		if s == "" {
			d.Duration = 0
			return nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.Duration.String(), nil }

// NormalizeModels trims and defaults the route table in place.
func NormalizeModels(models []ModelConfig) error {
	if len(models) == 0 {
		return errors.New("config must define at least one model")
	}
	seen := map[string]bool{}
	for i := range models {
		m := &models[i]
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return errors.New("model id is required")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id: %s", m.ID)
		}
		seen[m.ID] = true
		if strings.TrimSpace(m.UpstreamModel) == "" {
			m.UpstreamModel = m.ID
		}
		m.UpstreamModel = strings.TrimSpace(m.UpstreamModel)

		m.Engine.Type = strings.ToLower(strings.TrimSpace(m.Engine.Type))
		m.Engine.BaseURL = strings.TrimRight(strings.TrimSpace(m.Engine.BaseURL), "/")
		m.Engine.APIKey = strings.TrimSpace(m.Engine.APIKey)
		m.Engine.ChatCompletionsPath = strings.TrimSpace(m.Engine.ChatCompletionsPath)
		if m.Engine.MaxRetries < 0 {
			return fmt.Errorf("model %q invalid engine.max_retries", m.ID)
		}

		switch m.Engine.Type {
		case "":
			return fmt.Errorf("model %q missing engine.type", m.ID)
		case "openai_http", "openai", EngineOAIHTTP:
			m.Engine.Type = EngineOAIHTTP
			if m.Engine.BaseURL == "" {
				m.Engine.BaseURL = DefaultOpenAIBaseURL
			}
			if m.Engine.ChatCompletionsPath == "" {
				m.Engine.ChatCompletionsPath = "/v1/chat/completions"
			}
			if m.Engine.Timeout.Duration <= 0 {
				m.Engine.Timeout = Duration{Duration: 60 * time.Second}
			}
			if m.Engine.RetryBackoff.Duration <= 0 {
				m.Engine.RetryBackoff = Duration{Duration: 2 * time.Second}
			}

			m.Engine.JSONSchema.Mode = strings.ToLower(strings.TrimSpace(m.Engine.JSONSchema.Mode))
			switch m.Engine.JSONSchema.Mode {
			case "", "auto":
				m.Engine.JSONSchema.Mode = "auto"
			case "none", "guided_json", "response_format", "prompt":
			default:
				return fmt.Errorf("model %q invalid engine.json_schema.mode=%q", m.ID, m.Engine.JSONSchema.Mode)
			}
			if m.Engine.JSONSchema.MaxRetries < 0 {
				return fmt.Errorf("model %q invalid engine.json_schema.max_retries", m.ID)
			}
			if m.Engine.JSONSchema.MaxPromptBytes < 0 {
				return fmt.Errorf("model %q invalid engine.json_schema.max_prompt_bytes", m.ID)
			}
			if m.Engine.JSONSchema.MaxPromptBytes == 0 {
				m.Engine.JSONSchema.MaxPromptBytes = 64 << 10
			}
		case EngineGemini, EngineMock:
		default:
			return fmt.Errorf("unsupported engine type %q for model %q", m.Engine.Type, m.ID)
		}
	}
	return nil
}

// RequiresAPIKey reports whether the route talks to a hosted endpoint that rejects anonymous calls.
func (e EngineConfig) RequiresAPIKey() bool {
	switch e.Type {
	case EngineGemini:
		return true
	case EngineOAIHTTP:
		return strings.HasPrefix(strings.TrimRight(e.BaseURL, "/"), DefaultOpenAIBaseURL)
	}
	return false
}
