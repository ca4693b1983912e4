// Package presets turns raw summarizer output into typed results.
package presets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/teilomillet/jobsum"
	"github.com/teilomillet/jobsum/llm"
)

// ErrMalformedOutput is wrapped when generated text holds no usable job
// details. The fallback JobDetails is still returned alongside it.
var ErrMalformedOutput = errors.New("malformed job details output")

const (
	JobTypeRemote   = "remote"
	JobTypePartTime = "part time"
	JobTypeFullTime = "full time"
	JobTypeUnknown  = "unknown"
)

func init() {
	if err := llm.RegisterCustomValidation("job_type", validateJobType); err != nil {
		panic(err)
	}
}

// validateJobType accepts only the normalized job types.
func validateJobType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case JobTypeRemote, JobTypePartTime, JobTypeFullTime, JobTypeUnknown:
		return true
	}
	return false
}

// JobDetails is the structure the job details prompt asks the model for.
type JobDetails struct {
	JobType     string   `json:"job_type" validate:"job_type" jsonschema:"enum=remote,enum=part time,enum=full time,enum=unknown"`
	Skills      []string `json:"skills" validate:"dive,required"`
	Description string   `json:"description"`
}

// UnmarshalJSON accepts skills as a list, as a comma separated string, or as
// an object whose keys are the skills. Models produce all three.
func (d *JobDetails) UnmarshalJSON(data []byte) error {
	type alias JobDetails
	aux := &struct {
		Skills any `json:"skills"`
		*alias
	}{
		alias: (*alias)(d),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	d.Skills = normalizeSkills(aux.Skills)
	return nil
}

// SkillsCSV joins the skills the way they are stored.
func (d *JobDetails) SkillsCSV() string {
	return strings.Join(d.Skills, ", ")
}

func normalizeSkills(v any) []string {
	skills := []string{}
	switch v := v.(type) {
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok {
				if str = strings.TrimSpace(str); str != "" {
					skills = append(skills, str)
				}
			}
		}
	case map[string]any:
		for k := range v {
			if k = strings.TrimSpace(k); k != "" {
				skills = append(skills, k)
			}
		}
		sort.Strings(skills)
	case string:
		skills = splitSkills(v)
	}
	return skills
}

func splitSkills(raw string) []string {
	raw = strings.ReplaceAll(raw, "•", "")
	skills := []string{}
	for _, part := range strings.Split(raw, ",") {
		if skill := strings.TrimSpace(part); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}

// NormalizeJobType maps free-form answers ("Remote", "Full-time",
// "part_time") onto the four job types.
func NormalizeJobType(raw string) string {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "remote"):
		return JobTypeRemote
	case strings.Contains(s, "part"):
		return JobTypePartTime
	case strings.Contains(s, "full"):
		return JobTypeFullTime
	default:
		return JobTypeUnknown
	}
}

func (d *JobDetails) normalize() {
	d.JobType = NormalizeJobType(d.JobType)
	d.Description = strings.TrimSpace(d.Description)
	if d.Skills == nil {
		d.Skills = []string{}
	}
}

// FallbackJobDetails keeps the raw text as the description when nothing
// could be parsed.
func FallbackJobDetails(raw string) *JobDetails {
	return &JobDetails{
		JobType:     JobTypeUnknown,
		Skills:      []string{},
		Description: strings.TrimSpace(raw),
	}
}

// ParseJobDetails reads job details out of generated text. It tries the
// outermost JSON object first, then "label: value" text such as
// "Job Type: Remote, Skills: Go, SQL". When neither works it returns the
// fallback details together with an error wrapping ErrMalformedOutput.
func ParseJobDetails(raw string) (*JobDetails, error) {
	if block := llm.ExtractJSONObject(raw); block != "" {
		var d JobDetails
		if err := json.Unmarshal([]byte(block), &d); err == nil {
			d.normalize()
			if err := llm.Validate(&d); err != nil {
				return FallbackJobDetails(raw), fmt.Errorf("%w: %s", ErrMalformedOutput, strings.Join(llm.ValidationMessages(err), "; "))
			}
			return &d, nil
		}
	}
	if d, ok := parseLabeled(raw); ok {
		return d, nil
	}
	return FallbackJobDetails(raw), fmt.Errorf("%w: no job details found", ErrMalformedOutput)
}

var labelPattern = regexp.MustCompile(`(?i)\b(job[_ ]type|skills(?: required)?|description)\s*:`)

func parseLabeled(raw string) (*JobDetails, bool) {
	matches := labelPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return nil, false
	}

	d := &JobDetails{Skills: []string{}}
	found := false
	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		label := strings.ToLower(raw[m[2]:m[3]])
		value := strings.Trim(strings.TrimSpace(raw[m[1]:end]), ",;\"")
		switch {
		case strings.HasPrefix(label, "job"):
			d.JobType = value
			found = true
		case strings.HasPrefix(label, "skills"):
			d.Skills = splitSkills(value)
			found = true
		default:
			d.Description = value
		}
	}
	if !found {
		return nil, false
	}
	d.normalize()
	return d, true
}

var jobDetailsSchema = sync.OnceValues(func() ([]byte, error) {
	return llm.GenerateJSONSchema(&JobDetails{})
})

// JobDetailsSchema returns the JSON schema of JobDetails.
func JobDetailsSchema() ([]byte, error) {
	return jobDetailsSchema()
}

// Summarizer is the part of *jobsum.Summarizer extraction needs.
type Summarizer interface {
	Summarize(ctx context.Context, description string, opts ...jobsum.GenerateOption) (string, error)
	SupportsStructuredResponse() bool
	StructuredOutput() bool
}

// ExtractJobDetails summarizes description and parses the result.
//
// The raw generated text is always returned when generation succeeded, so
// callers can store or print it whatever the parse outcome. A generation
// failure is returned as is (a GenerationError) with nil details. A parse
// failure returns FallbackJobDetails(raw) and an error wrapping
// ErrMalformedOutput.
//
// When structured output is enabled and the backend supports it, the
// JobDetails schema is attached to the request.
//
// Example usage:
//
//	details, raw, err := ExtractJobDetails(ctx, s, description)
//	if errors.Is(err, ErrMalformedOutput) {
//	    log.Printf("model output was not JSON: %q", raw)
//	} else if err != nil {
//	    return err
//	}
//	fmt.Println(details.JobType, details.SkillsCSV())
func ExtractJobDetails(ctx context.Context, s Summarizer, description string) (*JobDetails, string, error) {
	opts, err := JobDetailsOptions(s)
	if err != nil {
		return nil, "", err
	}

	raw, err := s.Summarize(ctx, description, opts...)
	if err != nil {
		return nil, "", err
	}
	details, err := ParseJobDetails(raw)
	return details, raw, err
}

// JobDetailsOptions returns the generate options ExtractJobDetails uses, for
// callers that summarize through SummarizeBatch and parse afterwards.
func JobDetailsOptions(s Summarizer) ([]jobsum.GenerateOption, error) {
	if !s.StructuredOutput() || !s.SupportsStructuredResponse() {
		return nil, nil
	}
	schema, err := JobDetailsSchema()
	if err != nil {
		return nil, fmt.Errorf("job details schema: %w", err)
	}
	return []jobsum.GenerateOption{jobsum.WithSchema(schema)}, nil
}
