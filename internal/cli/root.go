// Package cli implements the jobsum command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teilomillet/jobsum"
	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/jobtext"
	"github.com/teilomillet/jobsum/llm"
	"github.com/teilomillet/jobsum/presets"
	"github.com/teilomillet/jobsum/providers"
	"github.com/teilomillet/jobsum/store"
	"github.com/teilomillet/jobsum/utils"
)

// DemoDescription is summarized when no description is given.
const DemoDescription = "We are looking for a remote full stack developer with experience in React and Node.js..."

// Version metadata injected via ldflags.
var version = "dev"

// errExit signals a non-zero exit after the command reported its own errors.
var errExit = errors.New("exit")

// cmdFlags holds all command-line flags
type cmdFlags struct {
	configPath string
	provider   string
	model      string
	apiKey     string
	logLevel   string
	maxTokens  int
	seed       int
	workers    int
	timeout    time.Duration
	file       string
	dbPath     string
	html       bool
	clean      bool
	extract    bool
	structured bool
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return run(ctx, args, stdout, stderr, providers.NewProviderRegistry())
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, registry *providers.ProviderRegistry) int {
	root := newRootCommand(stdout, stderr, registry)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer, registry *providers.ProviderRegistry) *cobra.Command {
	flags := &cmdFlags{}
	cmd := &cobra.Command{
		Use:   "jobsum [description...]",
		Short: "Summarize job descriptions into structured job details",
		Long: `jobsum prompts a pretrained text-to-text model for the job type, skills and
description of a job posting and prints the generated text.

Without arguments it summarizes a built-in demo description.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd.Context(), flags, cmd.Flags().Changed, args, stdout, stderr, registry)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&flags.provider, "provider", "", "Model backend (huggingface, ollama, openai, mock)")
	f.StringVar(&flags.model, "model", "", "Model identifier")
	f.StringVar(&flags.apiKey, "api-key", "", "API key for the selected backend")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level (off, error, warn, info, debug)")
	f.IntVar(&flags.maxTokens, "max-tokens", config.DefaultMaxTokens, "Maximum generated tokens")
	f.IntVar(&flags.seed, "seed", 0, "Decoding seed for backends that take one")
	f.IntVar(&flags.workers, "workers", 1, "Concurrent requests when summarizing a file")
	f.DurationVar(&flags.timeout, "timeout", 0, "Backend request timeout")
	f.StringVarP(&flags.file, "file", "f", "", "Summarize every non-empty line of a file, .jsonl for JSON Lines (- for stdin)")
	f.StringVar(&flags.dbPath, "db", "", "Store extracted job details in this SQLite database")
	f.BoolVar(&flags.html, "html", false, "Input is HTML; extract its text first")
	f.BoolVar(&flags.clean, "clean", false, "Normalize whitespace and punctuation before prompting")
	f.BoolVar(&flags.extract, "extract", false, "Print parsed job details as JSON instead of raw text")
	f.BoolVar(&flags.structured, "structured", false, "Ask backends that support it for schema constrained output")

	return cmd
}

type input struct {
	source      string
	description string
}

func runSummarize(
	ctx context.Context,
	flags *cmdFlags,
	changed func(string) bool,
	args []string,
	stdout, stderr io.Writer,
	registry *providers.ProviderRegistry,
) error {
	cfg, err := buildConfig(flags, changed, stderr)
	if err != nil {
		return err
	}

	inputs, err := readInputs(flags, args)
	if err != nil {
		return err
	}
	if inputs, err = prepareInputs(inputs, flags, changed("html"), cfg.Logger); err != nil {
		return err
	}

	s, err := jobsum.NewFromConfig(ctx, cfg, registry)
	if err != nil {
		return err
	}
	defer s.Close()

	var db *store.Store
	if flags.dbPath != "" {
		if db, err = store.Open(ctx, flags.dbPath, cfg.Logger); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	var opts []jobsum.GenerateOption
	if flags.extract || db != nil {
		if opts, err = presets.JobDetailsOptions(s); err != nil {
			return err
		}
	}

	descriptions := make([]string, len(inputs))
	for i, in := range inputs {
		descriptions[i] = in.description
	}
	results, err := s.SummarizeBatch(ctx, descriptions, opts...)
	if err != nil {
		return err
	}

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			if len(results) == 1 {
				return r.Err
			}
			fmt.Fprintf(stderr, "Error: %s: %v\n", inputs[i].source, r.Err)
			continue
		}
		if err := emit(ctx, stdout, cfg.Logger, db, s.Model(), inputs[i], r.Text, flags.extract); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errExit
	}
	return nil
}

func buildConfig(flags *cmdFlags, changed func(string) bool, stderr io.Writer) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	var opts []config.ConfigOption
	if changed("provider") {
		opts = append(opts, config.SetProvider(flags.provider))
	}
	if changed("model") {
		opts = append(opts, config.SetModel(flags.model))
	}
	if changed("api-key") {
		opts = append(opts, config.SetAPIKey(flags.apiKey))
	}
	if changed("max-tokens") {
		opts = append(opts, config.SetMaxTokens(flags.maxTokens))
	}
	if changed("seed") {
		opts = append(opts, config.SetSeed(flags.seed))
	}
	if changed("workers") {
		opts = append(opts, config.SetWorkers(flags.workers))
	}
	if changed("timeout") {
		opts = append(opts, config.SetTimeout(flags.timeout))
	}
	if changed("structured") {
		opts = append(opts, config.SetStructuredOutput(flags.structured))
	}
	if changed("log-level") {
		level, err := utils.ParseLogLevel(flags.logLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.SetLogLevel(level))
	}
	config.ApplyOptions(cfg, opts...)

	if cfg.Logger == nil {
		cfg.Logger = utils.NewLoggerWithWriter(stderr, cfg.LogLevel)
	}
	return cfg, nil
}

func readInputs(flags *cmdFlags, args []string) ([]input, error) {
	if flags.file == "" {
		if len(args) == 0 {
			return []input{{source: "demo", description: DemoDescription}}, nil
		}
		return []input{{source: "args", description: strings.Join(args, " ")}}, nil
	}
	if len(args) > 0 {
		return nil, llm.NewInvalidInputError("--file and positional descriptions are mutually exclusive", nil)
	}

	lines, err := utils.ReadDescriptionsFile(flags.file)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, llm.NewInvalidInputError("no descriptions in "+flags.file, nil)
	}
	inputs := make([]input, len(lines))
	for i, line := range lines {
		inputs[i] = input{source: fmt.Sprintf("%s:%d", flags.file, line.Number), description: line.Text}
	}
	return inputs, nil
}

// prepareInputs extracts text from HTML inputs and applies --clean. Without
// an explicit --html, inputs that look like HTML are extracted too.
func prepareInputs(inputs []input, flags *cmdFlags, htmlSet bool, logger utils.Logger) ([]input, error) {
	for i := range inputs {
		html := flags.html
		if !htmlSet && jobtext.LooksLikeHTML(inputs[i].description) {
			logger.Info("Input looks like HTML, extracting text", "source", inputs[i].source)
			html = true
		}
		switch {
		case html:
			text, err := jobtext.FromHTML(inputs[i].description)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", inputs[i].source, err)
			}
			inputs[i].description = text
		case flags.clean:
			inputs[i].description = jobtext.Clean(inputs[i].description)
		}
	}
	return inputs, nil
}

func emit(
	ctx context.Context,
	stdout io.Writer,
	logger utils.Logger,
	db *store.Store,
	model string,
	in input,
	raw string,
	extract bool,
) error {
	var details *presets.JobDetails
	if extract || db != nil {
		var err error
		details, err = presets.ParseJobDetails(raw)
		if err != nil {
			logger.Warn("Could not parse job details, using fallback", "source", in.source, "error", err)
		}
	}

	if db != nil {
		rec := &store.Record{
			Source:          in.source,
			DescriptionHash: store.HashDescription(in.description),
			RawOutput:       raw,
			JobType:         details.JobType,
			Skills:          details.Skills,
			Summary:         details.Description,
			Model:           model,
		}
		inserted, err := db.Save(ctx, rec)
		if err != nil {
			return err
		}
		logger.Info("Stored job details", "source", in.source, "id", rec.ID, "inserted", inserted)
	}

	if !extract {
		_, err := fmt.Fprintln(stdout, raw)
		return err
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal job details: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}
