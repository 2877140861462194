package config

import "time"

type Duration struct {
	Duration time.Duration
}

type JSONSchemaConfig struct {
	// Mode controls how schema outputs are requested from upstream engines.
	// - "none": ignore schema hints (best-effort)
	// - "guided_json": send guided decoding fields to the upstream OpenAI-compatible server (vLLM-style)
	// - "response_format": send OpenAI `response_format: json_schema`
	// - "prompt": append a system instruction with the schema text
	// - "auto": try response_format, then fall back to prompt
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// MaxRetries is the number of additional attempts when output is not valid JSON.
	// Total attempts = 1 + MaxRetries. Zero means a single attempt.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`

	// MaxPromptBytes caps how much schema JSON can be injected into a prompt when Mode includes "prompt".
	MaxPromptBytes int `json:"max_prompt_bytes,omitempty" yaml:"max_prompt_bytes,omitempty"`
}

type EngineConfig struct {
	// Type is one of "oai_http", "gemini", "mock".
	Type string `json:"type" yaml:"type"`

	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	ChatCompletionsPath string `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty"`

	// Timeout bounds one upstream HTTP call. The pipeline's per-concept deadline still applies on top.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxRetries is the number of extra attempts on retryable upstream statuses (408, 429, 5xx).
	MaxRetries   int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	RetryBackoff Duration `json:"retry_backoff,omitempty" yaml:"retry_backoff,omitempty"`

	JSONSchema JSONSchemaConfig `json:"json_schema,omitempty" yaml:"json_schema,omitempty"`
}

type ModelConfig struct {
	ID string `json:"id" yaml:"id"`

	// UpstreamModel overrides the model name sent to the engine. Defaults to ID.
	UpstreamModel string `json:"upstream_model,omitempty" yaml:"upstream_model,omitempty"`

	Engine EngineConfig `json:"engine" yaml:"engine"`
}
