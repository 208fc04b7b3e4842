package ollama

import "time"

// Default configuration values.
const (
	DefaultEndpoint  = "http://localhost:11434"
	DefaultModel     = "llama3.2"
	DefaultTimeout   = 2 * time.Minute
	DefaultKeepAlive = "5m"
)

// Config holds Ollama client configuration.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeepAlive string        `mapstructure:"keep_alive"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:  DefaultEndpoint,
		Model:     DefaultModel,
		Timeout:   DefaultTimeout,
		KeepAlive: DefaultKeepAlive,
	}
}

// generateRequest is the body of POST /api/generate.
// Format is either the string "json" or a JSON Schema object.
type generateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Stream    bool           `json:"stream"`
	Format    any            `json:"format,omitempty"`
	Options   *ollamaOptions `json:"options,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

// ollamaOptions represents model options.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is the non-streaming reply of /api/generate.
type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`

	// Timing information (only present when done=true)
	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

// ollamaErrorResponse represents an error response from Ollama.
type ollamaErrorResponse struct {
	Error string `json:"error"`
}
