// Package scout ties the page loader, the mapper and the assistant together
// for the command line, the HTTP API and the MCP tools.
package scout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/assistant"
	"github.com/spigell/talent-scout/internal/dom"
	"github.com/spigell/talent-scout/internal/metrics"
	"github.com/spigell/talent-scout/internal/page"
)

// ErrNoLoader is returned by ScanTarget when the session has no page loader.
var ErrNoLoader = errors.New("no page loader configured")

// ScanResult is one scan as reported to users.
type ScanResult struct {
	ScanID    string `json:"scanId" yaml:"scanId"`
	URL       string `json:"url" yaml:"url"`
	Site      string `json:"site" yaml:"site"`
	Map       string `json:"map" yaml:"map"`
	Lines     int    `json:"lines" yaml:"lines"`
	Hidden    int    `json:"hidden" yaml:"hidden"`
	Forbidden int    `json:"forbidden" yaml:"forbidden"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Empty reports whether the scan produced no lines, either because nothing
// qualified or because it failed.
func (r *ScanResult) Empty() bool {
	return r == nil || r.Lines == 0
}

// Session holds the anchors of the latest scan. Scans replace each other;
// model calls are admitted one at a time by the assistant.
type Session struct {
	mapper    *dom.Mapper
	loader    page.Loader
	assistant *assistant.Service
	metrics   *metrics.Collector
	logger    *zap.Logger

	mu   sync.Mutex
	last *ScanResult
}

type Option func(*Session)

func WithLoader(l page.Loader) Option {
	return func(s *Session) { s.loader = l }
}

func WithAssistant(a *assistant.Service) Option {
	return func(s *Session) { s.assistant = a }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

func New(mapper *dom.Mapper, log *zap.Logger, opts ...Option) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if mapper == nil {
		mapper = dom.NewMapper(log)
	}
	s := &Session{mapper: mapper, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.assistant == nil {
		s.assistant = assistant.New(nil, log)
	}
	return s
}

// ScanTarget loads target (a path or URL) and scans it.
func (s *Session) ScanTarget(ctx context.Context, target string, debugIndicator bool) (*ScanResult, error) {
	if s.loader == nil {
		return nil, ErrNoLoader
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target is required")
	}

	doc, err := s.loader.Load(ctx, target)
	if err != nil {
		return nil, err
	}
	return s.ScanDocument(doc, debugIndicator), nil
}

// ScanHTML parses markup captured elsewhere, typically by the extension,
// and scans it.
func (s *Session) ScanHTML(markup, pageURL string, debugIndicator bool) (*ScanResult, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, errors.New("html is required")
	}
	doc, err := page.FromHTML([]byte(markup), "text/html; charset=utf-8", pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return s.ScanDocument(doc, debugIndicator), nil
}

// ScanDocument scans doc and remembers the result for later profile
// extraction.
func (s *Session) ScanDocument(doc *dom.Document, debugIndicator bool) *ScanResult {
	out, report := s.mapper.ScanReport(doc, debugIndicator)

	res := &ScanResult{
		ScanID:    report.ID,
		Site:      report.Site,
		Map:       out,
		Lines:     report.Lines,
		Hidden:    report.Hidden,
		Forbidden: report.Forbidden,
	}
	if doc != nil {
		res.URL = doc.URL
	}

	result := metrics.ScanOK
	switch {
	case report.Err != nil:
		res.Error = report.Err.Error()
		result = metrics.ScanError
	case report.Lines == 0:
		result = metrics.ScanEmpty
	}
	s.metrics.ObserveScan(result, report.Lines, report.Duration)

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	return res
}

// LastScan returns the latest scan or nil.
func (s *Session) LastScan() *ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Inspect re-extracts anchors of the latest scan.
func (s *Session) Inspect(anchors []int) map[int]dom.Element {
	return s.mapper.Extract(anchors)
}

// ExtractProfile structures textMap into a candidate. An empty textMap
// means the latest scan, with its URL used when pageURL is empty too.
func (s *Session) ExtractProfile(ctx context.Context, textMap, pageURL string) (*ai.Candidate, error) {
	if strings.TrimSpace(textMap) == "" {
		last := s.LastScan()
		if last == nil {
			return nil, ai.ErrNoContent
		}
		textMap = last.Map
		if strings.TrimSpace(pageURL) == "" {
			pageURL = last.URL
		}
	}
	return s.assistant.ExtractProfile(ctx, textMap, pageURL)
}

func (s *Session) ScoreFit(ctx context.Context, candidate *ai.Candidate, jobText string) (*ai.FitResult, error) {
	return s.assistant.ScoreFit(ctx, candidate, jobText)
}

func (s *Session) WriteOutreach(ctx context.Context, candidate *ai.Candidate, jobText string) (string, error) {
	return s.assistant.WriteOutreach(ctx, candidate, jobText)
}

// Zones describes the forbidden-zone rules applied to pageURL.
func (s *Session) Zones(pageURL string) []dom.ZoneStatus {
	return s.mapper.Zones(pageURL).Describe()
}

// AIConfigured reports whether model calls can be made.
func (s *Session) AIConfigured() bool {
	return s.assistant.Configured()
}

// Metrics returns the collector, which may be nil.
func (s *Session) Metrics() *metrics.Collector {
	return s.metrics
}
