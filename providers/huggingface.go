package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/utils"
)

const (
	DefaultHFEndpoint          = "https://huggingface.co"
	DefaultHFInferenceEndpoint = "https://router.huggingface.co/hf-inference"
)

// HuggingFaceProvider runs text2text-generation models (t5-small and
// friends) through the Hugging Face inference API. Load checks the model
// exists on the hub; Generate decodes with do_sample=false.
type HuggingFaceProvider struct {
	httpBackend
	apiKey            string
	model             string
	hubEndpoint       string
	inferenceEndpoint string
	loaded            atomic.Bool
}

func NewHuggingFaceProvider(apiKey, model string, extraHeaders map[string]string) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		httpBackend:       newHTTPBackend("huggingface", extraHeaders),
		apiKey:            apiKey,
		model:             model,
		hubEndpoint:       DefaultHFEndpoint,
		inferenceEndpoint: DefaultHFInferenceEndpoint,
	}
}

func (p *HuggingFaceProvider) Name() string  { return "huggingface" }
func (p *HuggingFaceProvider) Model() string { return p.model }

func (p *HuggingFaceProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *HuggingFaceProvider) SupportsStructuredResponse() bool { return false }

func (p *HuggingFaceProvider) SetDefaultOptions(cfg *config.Config) {
	if cfg.HFEndpoint != "" {
		p.hubEndpoint = trimEndpoint(cfg.HFEndpoint)
	}
	if cfg.HFInferenceEndpoint != "" {
		p.inferenceEndpoint = trimEndpoint(cfg.HFInferenceEndpoint)
	}
	p.setTimeout(cfg.Timeout)
}

func (p *HuggingFaceProvider) headers() map[string]string {
	if p.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

type hfModelInfo struct {
	ID          string `json:"id"`
	PipelineTag string `json:"pipeline_tag"`
}

// Load asks the hub for the model card. The hub answers 401 rather than 404
// for unknown repositories when the caller is anonymous.
func (p *HuggingFaceProvider) Load(ctx context.Context) error {
	if p.model == "" {
		return fmt.Errorf("%w: empty model identifier", ErrModelNotFound)
	}
	body, err := p.do(ctx, http.MethodGet, fmt.Sprintf("%s/api/models/%s", p.hubEndpoint, p.model), p.headers(), nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusUnauthorized) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, p.model)
		}
		return err
	}

	var info hfModelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("error parsing model info: %w", err)
	}
	switch info.PipelineTag {
	case "", "text2text-generation", "text-generation", "summarization", "translation":
	default:
		p.logger.Warn("Model pipeline is not a text generation pipeline", "model", p.model, "pipeline", info.PipelineTag)
	}

	p.loaded.Store(true)
	p.logger.Debug("Model loaded", "provider", p.Name(), "model", p.model, "pipeline", info.PipelineTag)
	return nil
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
	Error         string `json:"error"`
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if !p.loaded.Load() {
		return nil, ErrNotLoaded
	}
	payload := hfRequest{
		Inputs:     req.Prompt,
		Parameters: hfParameters{MaxLength: req.MaxTokens, DoSample: false},
		Options:    hfOptions{WaitForModel: true},
	}
	body, err := p.do(ctx, http.MethodPost, fmt.Sprintf("%s/models/%s", p.inferenceEndpoint, p.model), p.headers(), payload)
	if err != nil {
		return nil, err
	}
	text, err := parseHFResponse(body)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text}, nil
}

// parseHFResponse accepts the list form [{"generated_text": ...}] and the
// single-object form some inference servers answer with.
func parseHFResponse(body []byte) (string, error) {
	var list []hfGenerated
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", errors.New("huggingface returned no candidates")
		}
		return list[0].GeneratedText, nil
	}

	var single hfGenerated
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("error parsing Hugging Face response: %w", err)
	}
	if single.Error != "" {
		return "", fmt.Errorf("huggingface error: %s", single.Error)
	}
	return single.GeneratedText, nil
}

func (p *HuggingFaceProvider) Close() error {
	p.loaded.Store(false)
	p.close()
	return nil
}
