package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name" validate:"required"`
	Tags  []string `json:"tags" validate:"dive,required"`
	Level int      `json:"level,omitempty" validate:"gte=0,lte=10"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(&sample{Name: "ok", Tags: []string{"a"}}))

	err := Validate(&sample{Tags: []string{""}, Level: 11})
	require.Error(t, err)

	msgs := ValidationMessages(err)
	assert.Contains(t, msgs, "sample.Name: required")
	assert.Contains(t, msgs, "sample.Tags[0]: required")
	assert.Contains(t, msgs, "sample.Level: lte=10")
}

type slugged struct {
	Slug string `validate:"lower_slug"`
}

func TestRegisterCustomValidation(t *testing.T) {
	err := RegisterCustomValidation("lower_slug", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v != "" && v == strings.ToLower(v) && !strings.Contains(v, " ")
	})
	require.NoError(t, err)

	assert.NoError(t, Validate(&slugged{Slug: "full-stack"}))
	err = Validate(&slugged{Slug: "Full Stack"})
	require.Error(t, err)
	assert.Equal(t, []string{"slugged.Slug: lower_slug"}, ValidationMessages(err))
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema(&sample{})
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$ref")
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "tags")
	assert.ElementsMatch(t, []any{"name", "tags"}, schema["required"])
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject(`Sure! {"a":1} hope this helps`))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSONObject("```json\n{\"a\":{\"b\":2}}\n```"))
	assert.Empty(t, ExtractJSONObject("no json here"))
	assert.Empty(t, ExtractJSONObject("} backwards {"))
}
