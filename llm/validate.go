package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// validate is the shared validator instance used across the package.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks s against its `validate` struct tags.
//
// Example:
//
//	type Config struct {
//	    Model     string `validate:"required"`
//	    MaxTokens int    `validate:"min=1,max=4096"`
//	}
//
//	if err := Validate(&Config{Model: "t5-small", MaxTokens: 512}); err != nil {
//	    log.Fatal(err)
//	}
func Validate(s any) error {
	return validate.Struct(s)
}

// RegisterCustomValidation registers a custom validation function with the validator.
func RegisterCustomValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}

// ValidationMessages flattens validator errors into "Field: tag" strings; any
// other error is returned as a single message.
func ValidationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return msgs
}

// GenerateJSONSchema reflects v into an inlined JSON schema. Fields are
// required unless tagged omitempty and unknown properties are rejected.
func GenerateJSONSchema(v any) ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(v)
	schema.Version = ""
	schema.ID = ""
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal JSON schema: %w", err)
	}
	return data, nil
}

// ExtractJSONObject returns the outermost {...} block of text, or "" when
// there is none.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
