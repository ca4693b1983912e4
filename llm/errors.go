package llm

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeLoad: the model identifier could not be resolved or loaded.
	ErrorTypeLoad
	// ErrorTypeGeneration: a generation call failed.
	ErrorTypeGeneration
	ErrorTypeConfig
	// ErrorTypeInvalidInput: the caller's input cannot be turned into a prompt.
	ErrorTypeInvalidInput
)

// LLMError represents an error raised while loading or running a model
type LLMError struct {
	Type     ErrorType
	Message  string
	Provider string
	Err      error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func (e *LLMError) TypeString() string {
	switch e.Type {
	case ErrorTypeLoad:
		return "LoadError"
	case ErrorTypeGeneration:
		return "GenerationError"
	case ErrorTypeConfig:
		return "ConfigError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	default:
		return "UnknownError"
	}
}

// LoggableFields returns key/value pairs suitable for a utils.Logger call.
func (e *LLMError) LoggableFields() []any {
	return []any{
		"error_type", e.TypeString(),
		"provider", e.Provider,
		"message", e.Message,
		"cause", errString(e.Err),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewLLMError creates a new LLMError
func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// WithProvider records the backend the error came from.
func (e *LLMError) WithProvider(name string) *LLMError {
	e.Provider = name
	return e
}

func NewLoadError(message string, err error) *LLMError {
	return NewLLMError(ErrorTypeLoad, message, err)
}

func NewGenerationError(message string, err error) *LLMError {
	return NewLLMError(ErrorTypeGeneration, message, err)
}

func NewInvalidInputError(message string, err error) *LLMError {
	return NewLLMError(ErrorTypeInvalidInput, message, err)
}

// IsErrorType reports whether any error in err's chain is an LLMError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Type == t
	}
	return false
}

func IsLoadError(err error) bool {
	return IsErrorType(err, ErrorTypeLoad)
}

func IsGenerationError(err error) bool {
	return IsErrorType(err, ErrorTypeGeneration)
}

func IsInvalidInputError(err error) bool {
	return IsErrorType(err, ErrorTypeInvalidInput)
}
