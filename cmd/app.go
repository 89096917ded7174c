package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/ai/admission"
	"github.com/spigell/talent-scout/internal/ai/gemini"
	"github.com/spigell/talent-scout/internal/ai/retry"
	"github.com/spigell/talent-scout/internal/assistant"
	"github.com/spigell/talent-scout/internal/dom"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/metrics"
	"github.com/spigell/talent-scout/internal/page"
	"github.com/spigell/talent-scout/internal/scout"
	"github.com/spigell/talent-scout/internal/secrets"
)

// Output formats for command results.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// scoutApp is everything a command needs, built from the config.
type scoutApp struct {
	config  *Config
	logger  *zap.Logger
	metrics *metrics.Collector
	session *scout.Session
}

func newApp(ctx context.Context, logOpts ...logger.Option) (*scoutApp, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), logOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	log.Debug("starting with config",
		zap.String("loader", config.Page.Mode),
		zap.Int("sites", len(config.Sites)),
		zap.String("version", version),
	)

	loader, err := page.New(config.Page, log)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	mapper := dom.NewMapper(log, config.Sites...)

	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		log.Warn("ai assistant disabled",
			zap.Error(err),
			zap.String("hint", "run `scout key set`, set SCOUT_API_KEY_FILE or GEMINI_API_KEY"),
		)
	}

	svc := newAssistant(generator, config.AI, collector, log)

	session := scout.New(mapper, log,
		scout.WithLoader(loader),
		scout.WithAssistant(svc),
		scout.WithMetrics(collector),
	)

	return &scoutApp{config: config, logger: log, metrics: collector, session: session}, nil
}

// newGenerator returns nil and an error when no usable key is configured.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, ai.ErrNotConfigured
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	var opts []gemini.Option
	if cfg.Gemini.MaxLogLength > 0 {
		opts = append(opts, gemini.WithMaxLogLength(cfg.Gemini.MaxLogLength))
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, log, opts...)
	if err != nil {
		return nil, err
	}
	return generator, nil
}

func newAssistant(generator ai.Generator, cfg *AIConfig, collector *metrics.Collector, log *zap.Logger) *assistant.Service {
	var (
		guardOpts []admission.Option
		retryOpts = []retry.Option{retry.WithObserver(collector)}
	)
	if cfg != nil {
		if cfg.MinGap > 0 {
			guardOpts = append(guardOpts, admission.WithMinGap(cfg.MinGap))
		}
		if cfg.Retry != nil {
			retryOpts = append(retryOpts,
				retry.WithAttempts(cfg.Retry.Attempts),
				retry.WithBaseDelay(cfg.Retry.BaseDelay),
			)
		}
	}

	return assistant.New(generator, log,
		assistant.WithGuard(admission.New(guardOpts...)),
		assistant.WithRetry(retry.New(log, retryOpts...)),
		assistant.WithMetrics(collector),
	)
}

// printOutput writes v to w in the requested format. Text falls back to
// the string form when v has one.
func printOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case OutputText, "":
		if s, ok := v.(string); ok {
			_, err := fmt.Fprintln(w, s)
			return err
		}
		if s, ok := v.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w, s.String())
			return err
		}
		return printOutput(w, OutputYAML, v)
	default:
		return fmt.Errorf("unknown output format %q (expected %s, %s or %s)", format, OutputText, OutputJSON, OutputYAML)
	}
}

// readCandidate loads a candidate saved by `scout profile -o json|yaml`.
// "-" reads stdin.
func readCandidate(path string) (*ai.Candidate, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidate: %w", err)
	}

	var c ai.Candidate
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding candidate %q: %w", path, err)
	}
	return &c, nil
}

// readJob returns the job text. A value naming an existing file is read from
// disk, anything else is taken literally.
func readJob(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if value == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		data, err := os.ReadFile(value)
		return string(data), err
	}
	return value, nil
}

func readInput(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	switch path {
	case "":
		return nil, errors.New("path is required")
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(path)
	}
}

// userError turns model-call errors into something a person can act on.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(ai.UserMessage(err))
}
