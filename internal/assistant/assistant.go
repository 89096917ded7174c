// Package assistant runs the three model-backed operations of the scout:
// profile extraction, fit scoring and outreach generation.
//
// Every call goes through the same path: admission, retries with backoff,
// then normalisation of the raw model output.
package assistant

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/ai/admission"
	"github.com/spigell/talent-scout/internal/ai/retry"
	"github.com/spigell/talent-scout/internal/dom"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/metrics"
)

// Call site names used in logs and metrics.
const (
	OpExtractProfile = "extract_profile"
	OpScoreFit       = "score_fit"
	OpWriteOutreach  = "generate_outreach"
)

// MinOutreachLength is the shortest acceptable outreach message in characters.
const MinOutreachLength = 20

//go:embed prompts/*.md
var promptFS embed.FS

// Service is safe for concurrent use; concurrency is bounded by its guard.
type Service struct {
	generator ai.Generator
	guard     *admission.Guard
	retry     *retry.Engine
	logger    *zap.Logger
	metrics   *metrics.Collector
	sanitizer *bluemonday.Policy
}

type Option func(*Service)

func WithGuard(g *admission.Guard) Option {
	return func(s *Service) { s.guard = g }
}

func WithRetry(e *retry.Engine) Option {
	return func(s *Service) { s.retry = e }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds a service around generator. A nil generator is allowed; every
// call then fails with ai.ErrNotConfigured.
func New(generator ai.Generator, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		generator: generator,
		logger:    log,
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = admission.New()
	}
	if s.retry == nil {
		s.retry = retry.New(log, retry.WithObserver(s.metrics))
	}
	if generator != nil {
		s.logger = logger.WithCommonFields(log, "", generator.Model())
	}
	return s
}

// Configured reports whether a generator is wired in.
func (s *Service) Configured() bool {
	return s != nil && s.generator != nil
}

// ExtractProfile asks the model to structure a page map into a candidate.
// Maps that carry the empty or error marker are rejected without a call.
func (s *Service) ExtractProfile(ctx context.Context, textMap, pageURL string) (*ai.Candidate, error) {
	textMap = strings.TrimSpace(textMap)
	switch {
	case textMap == "", textMap == dom.EmptyMarker:
		return nil, ai.ErrNoContent
	case strings.HasPrefix(textMap, dom.ErrorMarker):
		return nil, fmt.Errorf("%w: %s", ai.ErrNoContent, strings.TrimSpace(strings.TrimPrefix(textMap, dom.ErrorMarker)))
	}

	prompt := ai.Prompt{
		System: mustPrompt("profile_system.md"),
		User: render(mustPrompt("profile.md"), map[string]string{
			"PAGE_URL": strings.TrimSpace(pageURL),
			"PAGE_MAP": textMap,
		}),
		Format: ai.FormatCandidate,
	}

	return call(ctx, s, OpExtractProfile, prompt, func(raw string) (*ai.Candidate, error) {
		return ai.ParseCandidate(raw, pageURL)
	})
}

// ScoreFit rates candidate against jobText. HTML job descriptions are
// converted to markdown first.
func (s *Service) ScoreFit(ctx context.Context, candidate *ai.Candidate, jobText string) (*ai.FitResult, error) {
	if candidate == nil {
		return nil, errors.New("candidate is required")
	}
	job := JobText(jobText)
	if job == "" {
		return nil, ai.ErrMissingJob
	}

	candidateJSON, err := marshalCandidate(candidate)
	if err != nil {
		return nil, err
	}

	prompt := ai.Prompt{
		System: mustPrompt("fit_system.md"),
		User: render(mustPrompt("fit.md"), map[string]string{
			"CANDIDATE_JSON": string(candidateJSON),
			"JOB_TEXT":       job,
		}),
		Format: ai.FormatFit,
	}

	return call(ctx, s, OpScoreFit, prompt, ai.ParseFit)
}

// WriteOutreach drafts a message to candidate. jobText may be empty.
func (s *Service) WriteOutreach(ctx context.Context, candidate *ai.Candidate, jobText string) (string, error) {
	if candidate == nil {
		return "", errors.New("candidate is required")
	}
	job := JobText(jobText)
	if job == "" {
		job = "Not provided. Keep the message general."
	}

	candidateJSON, err := marshalCandidate(candidate)
	if err != nil {
		return "", err
	}

	prompt := ai.Prompt{
		System: mustPrompt("outreach_system.md"),
		User: render(mustPrompt("outreach.md"), map[string]string{
			"CANDIDATE_JSON": string(candidateJSON),
			"JOB_TEXT":       job,
		}),
		Format: ai.FormatText,
	}

	return call(ctx, s, OpWriteOutreach, prompt, s.cleanOutreach)
}

// marshalCandidate renders a normalised copy of candidate for a prompt, so
// hand-written records reach the model with the same shape as extracted ones.
func marshalCandidate(candidate *ai.Candidate) ([]byte, error) {
	c := *candidate
	c.Normalize(c.ProfileURL)
	data, err := json.MarshalIndent(&c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}
	return data, nil
}

// cleanOutreach strips markup from the draft. The sanitizer escapes the text
// it keeps, so entities are decoded back into plain characters.
func (s *Service) cleanOutreach(raw string) (string, error) {
	text := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(raw)))
	if n := utf8.RuneCountInString(text); n < MinOutreachLength {
		return "", fmt.Errorf("%w: got %d characters, need %d", ai.ErrOutreachTooShort, n, MinOutreachLength)
	}
	return text, nil
}

// call admits one logical call, which then covers all of its retries.
func call[T any](ctx context.Context, s *Service, op string, prompt ai.Prompt, parse func(string) (T, error)) (T, error) {
	var zero T
	if !s.Configured() {
		return zero, ai.ErrNotConfigured
	}
	log := logger.WithCallSite(s.logger, op)

	release, err := s.guard.Acquire()
	if err != nil {
		var rejected *admission.RejectedError
		if errors.As(err, &rejected) {
			s.metrics.ObserveRejection(op, rejected.Reason.String())
		}
		log.Info("call rejected", zap.Error(err))
		return zero, err
	}
	defer release()

	result, err := retry.Do(ctx, s.retry, op, func(ctx context.Context) (T, error) {
		raw, err := s.generator.Generate(ctx, prompt)
		if err != nil {
			return zero, err
		}
		return parse(raw)
	})
	if err != nil {
		log.Warn("call failed", zap.Error(err))
		return zero, err
	}

	log.Debug("call completed")
	return result, nil
}

func mustPrompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
	}
	return string(data)
}

// render fills {{KEY}} placeholders in a single pass; substituted values are
// never scanned for placeholders again.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
