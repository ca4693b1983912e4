package llm

import (
	"bytes"
	"fmt"
	"text/template"
)

// JobDetailsTemplate asks a text-to-text model for the job_type, skills and
// description of a job posting. It has a single substitution point.
const JobDetailsTemplate = "Extract structured job details in JSON with fields: job_type, skills, description. Description: {{.Description}}"

// PromptTemplate represents a template for generating prompts
type PromptTemplate struct {
	Name        string
	Description string
	Template    string

	tmpl *template.Template
}

// NewPromptTemplate parses template once so Execute can be called
// concurrently.
func NewPromptTemplate(name, description, text string) (*PromptTemplate, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %q: %w", name, err)
	}
	return &PromptTemplate{
		Name:        name,
		Description: description,
		Template:    text,
		tmpl:        tmpl,
	}, nil
}

// NewJobDetailsPrompt returns the template built from JobDetailsTemplate.
func NewJobDetailsPrompt() *PromptTemplate {
	pt, err := NewPromptTemplate("job_details", "Structured job details extraction", JobDetailsTemplate)
	if err != nil {
		panic(err)
	}
	return pt
}

// Execute renders the template with data.
func (pt *PromptTemplate) Execute(data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := pt.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template %q: %w", pt.Name, err)
	}
	return buf.String(), nil
}
