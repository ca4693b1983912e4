// File: config/config.go

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/teilomillet/jobsum/utils"
)

const (
	DefaultProvider = "huggingface"
	// DefaultModel is the small text-to-text model the summarizer ships with.
	DefaultModel     = "t5-small"
	DefaultMaxTokens = 512
	// TokenEncodingNone disables the tiktoken encoder in favor of word counting.
	TokenEncodingNone = "none"
)

// Config holds everything needed to load a model and run greedy generation
// against it. Defaults come from NewConfig; LoadConfig overlays a YAML file
// and then the environment.
type Config struct {
	Provider            string            `env:"JOBSUM_PROVIDER" yaml:"provider" validate:"required"`
	Model               string            `env:"JOBSUM_MODEL" yaml:"model"`
	MaxTokens           int               `env:"JOBSUM_MAX_TOKENS" yaml:"max_tokens" validate:"min=1,max=8192"`
	Seed                int               `env:"JOBSUM_SEED" yaml:"seed" validate:"gte=0"`
	Timeout             time.Duration     `env:"JOBSUM_TIMEOUT" yaml:"timeout" validate:"gt=0"`
	RateLimit           float64           `env:"JOBSUM_RATE_LIMIT" yaml:"rate_limit" validate:"gte=0"`
	Workers             int               `env:"JOBSUM_WORKERS" yaml:"workers" validate:"min=1,max=64"`
	TokenEncoding       string            `env:"JOBSUM_TOKEN_ENCODING" yaml:"token_encoding"`
	StructuredOutput    bool              `env:"JOBSUM_STRUCTURED_OUTPUT" yaml:"structured_output"`
	LogLevel            utils.LogLevel    `env:"JOBSUM_LOG_LEVEL" yaml:"log_level"`
	OllamaEndpoint      string            `env:"OLLAMA_ENDPOINT" yaml:"ollama_endpoint" validate:"omitempty,url"`
	HFEndpoint          string            `env:"HF_ENDPOINT" yaml:"hf_endpoint" validate:"omitempty,url"`
	HFInferenceEndpoint string            `env:"HF_INFERENCE_ENDPOINT" yaml:"hf_inference_endpoint" validate:"omitempty,url"`
	OpenAIBaseURL       string            `env:"OPENAI_BASE_URL" yaml:"openai_base_url" validate:"omitempty,url"`
	APIKeys             map[string]string `yaml:"api_keys"`
	ExtraHeaders        map[string]string `yaml:"extra_headers"`
	Logger              utils.Logger      `yaml:"-"`
}

func NewConfig() *Config {
	return &Config{
		Provider:      DefaultProvider,
		Model:         DefaultModel,
		MaxTokens:     DefaultMaxTokens,
		Timeout:       2 * time.Minute,
		Workers:       1,
		TokenEncoding: "cl100k_base",
		LogLevel:      utils.LogLevelWarn,
		APIKeys:       make(map[string]string),
		ExtraHeaders:  make(map[string]string),
	}
}

// LoadConfig starts from NewConfig, overlays the YAML file at path (if path
// is not empty) and then the environment. Environment wins over the file.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	loadAPIKeys(cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = make(map[string]string)
	}
	if cfg.ExtraHeaders == nil {
		cfg.ExtraHeaders = make(map[string]string)
	}
	return nil
}

// loadAPIKeys picks up every *_API_KEY variable, keyed by lower-cased prefix
// (HUGGINGFACE_API_KEY -> "huggingface"). HF_API_KEY is accepted as an alias
// for the Hugging Face backend.
func loadAPIKeys(cfg *Config) {
	for _, envVar := range os.Environ() {
		key, value, found := strings.Cut(envVar, "=")
		if !found || value == "" || !strings.HasSuffix(strings.ToUpper(key), "_API_KEY") {
			continue
		}
		provider := strings.ToLower(strings.TrimSuffix(strings.ToUpper(key), "_API_KEY"))
		cfg.APIKeys[provider] = value
	}
	if key, ok := cfg.APIKeys["hf"]; ok {
		if _, exists := cfg.APIKeys["huggingface"]; !exists {
			cfg.APIKeys["huggingface"] = key
		}
	}
}

// APIKey returns the key configured for the active provider.
func (c *Config) APIKey() string {
	return c.APIKeys[c.Provider]
}

type ConfigOption func(*Config)

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetSeed(seed int) ConfigOption {
	return func(c *Config) {
		c.Seed = seed
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetRateLimit(perSecond float64) ConfigOption {
	return func(c *Config) {
		c.RateLimit = perSecond
	}
}

func SetWorkers(workers int) ConfigOption {
	return func(c *Config) {
		c.Workers = workers
	}
}

func SetTokenEncoding(encoding string) ConfigOption {
	return func(c *Config) {
		c.TokenEncoding = encoding
	}
}

func SetStructuredOutput(enabled bool) ConfigOption {
	return func(c *Config) {
		c.StructuredOutput = enabled
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

func SetLogger(logger utils.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func SetOllamaEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.OllamaEndpoint = endpoint
	}
}

// SetHFEndpoints points the Hugging Face backend at a hub (model metadata)
// and an inference host. Empty values keep the current setting.
func SetHFEndpoints(hub, inference string) ConfigOption {
	return func(c *Config) {
		if hub != "" {
			c.HFEndpoint = hub
		}
		if inference != "" {
			c.HFInferenceEndpoint = inference
		}
	}
}

func SetOpenAIBaseURL(baseURL string) ConfigOption {
	return func(c *Config) {
		c.OpenAIBaseURL = baseURL
	}
}

// SetAPIKey sets the key of the provider that is current when the option runs,
// so it must come after SetProvider.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[c.Provider] = apiKey
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}
