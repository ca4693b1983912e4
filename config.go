package jobsum

import (
	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/utils"
)

// Re-export configuration types so callers only import jobsum.
type (
	// Config represents the model, backend and generation settings of a
	// Summarizer. See config.Config for field documentation.
	Config = config.Config

	// ConfigOption modifies a Config.
	//
	// Example usage:
	//   s, err := New(ctx, SetProvider("ollama"), SetModel("llama3.2"))
	ConfigOption = config.ConfigOption

	LogLevel = utils.LogLevel
)

const (
	LogLevelOff   = utils.LogLevelOff
	LogLevelError = utils.LogLevelError
	LogLevelWarn  = utils.LogLevelWarn
	LogLevelInfo  = utils.LogLevelInfo
	LogLevelDebug = utils.LogLevelDebug
)

var (
	NewConfig    = config.NewConfig
	LoadConfig   = config.LoadConfig
	ApplyOptions = config.ApplyOptions
)

var (
	// Backend selection
	SetProvider       = config.SetProvider
	SetModel          = config.SetModel
	SetAPIKey         = config.SetAPIKey
	SetOllamaEndpoint = config.SetOllamaEndpoint
	SetHFEndpoints    = config.SetHFEndpoints
	SetOpenAIBaseURL  = config.SetOpenAIBaseURL
	SetExtraHeaders   = config.SetExtraHeaders
	SetTimeout        = config.SetTimeout

	// Generation parameters
	SetMaxTokens        = config.SetMaxTokens
	SetSeed             = config.SetSeed
	SetTokenEncoding    = config.SetTokenEncoding
	SetStructuredOutput = config.SetStructuredOutput

	// Batch
	SetWorkers   = config.SetWorkers
	SetRateLimit = config.SetRateLimit

	// Logging
	SetLogLevel = config.SetLogLevel
	SetLogger   = config.SetLogger
)
