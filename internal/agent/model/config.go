package model

// ================ Config ================

type GenerationConfig struct {
	Provider    string  `envconfig:"LLM_PROVIDER" default:"openai"`
	Model       string  `envconfig:"LLM_MODEL" default:"gpt-4"`
	APIKey      string  `envconfig:"OPENAI_API_KEY"`
	GeminiKey   string  `envconfig:"GEMINI_API_KEY"`
	BaseURL     string  `envconfig:"LLM_BASE_URL"`
	Temperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"2000"`
	Timeout     int     `envconfig:"LLM_TIMEOUT_SECONDS" default:"60"`
}

// Configured reports whether credentials for the selected provider are set.
func (c GenerationConfig) Configured() bool {
	if c.Provider == "gemini" {
		return c.GeminiKey != ""
	}
	return c.APIKey != ""
}

type SourcingConfig struct {
	APIKey         string `envconfig:"GOOGLE_API_KEY"`
	SearchEngineID string `envconfig:"GOOGLE_SEARCH_ENGINE_ID"`
	MaxResults     int    `envconfig:"SOURCING_MAX_RESULTS" default:"5"`
	Timeout        int    `envconfig:"SOURCING_TIMEOUT_SECONDS" default:"15"`
}

// Configured reports whether search credentials are set. An unconfigured
// sourcer returns empty results instead of failing turns.
func (c SourcingConfig) Configured() bool {
	return c.APIKey != "" && c.SearchEngineID != ""
}

type ConversationConfig struct {
	// TTL applies to the Redis-backed store only; "0" keeps conversations
	// forever, matching the in-memory store.
	TTL          string `envconfig:"CONVERSATION_TTL" default:"0"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
}

type ChannelConfig struct {
	OutboundURL string `envconfig:"CHANNEL_OUTBOUND_URL"`
	AuthToken   string `envconfig:"CHANNEL_AUTH_TOKEN"`
	SelfID      string `envconfig:"CHANNEL_SELF_ID"`
	Timeout     int    `envconfig:"CHANNEL_TIMEOUT_SECONDS" default:"10"`
}

type ServerConfig struct {
	Addr          string `envconfig:"HTTP_ADDR" default:":8000"`
	AllowedOrigin string `envconfig:"CORS_ALLOWED_ORIGIN" default:"http://localhost:4200"`
}
