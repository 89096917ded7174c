package scout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/assistant"
	"github.com/spigell/talent-scout/internal/dom"
	"github.com/spigell/talent-scout/internal/metrics"
)

const profileHTML = `<html><body>
<nav><a href="/feed">Home</a></nav>
<main>
  <h1>Jane Doe</h1>
  <a href="https://example.com/jane">Portfolio</a>
</main>
</body></html>`

type mapLoader map[string]string

func (m mapLoader) Load(_ context.Context, target string) (*dom.Document, error) {
	markup, ok := m[target]
	if !ok {
		return nil, errors.New("not found")
	}
	return dom.ParseString(markup, target)
}

type recordingGenerator struct {
	prompts []ai.Prompt
	reply   string
}

func (g *recordingGenerator) Generate(_ context.Context, p ai.Prompt) (string, error) {
	g.prompts = append(g.prompts, p)
	return g.reply, nil
}

func (g *recordingGenerator) Model() string { return "fake" }

func TestScanTargetAndInspect(t *testing.T) {
	collector := metrics.New()
	s := New(nil, nil,
		WithLoader(mapLoader{"https://www.linkedin.com/in/jane": profileHTML}),
		WithMetrics(collector),
	)

	res, err := s.ScanTarget(context.Background(), "https://www.linkedin.com/in/jane", false)
	require.NoError(t, err)
	require.Equal(t, 2, res.Lines)
	require.Equal(t, "https://www.linkedin.com/in/jane", res.URL)
	require.NotEmpty(t, res.ScanID)
	require.Equal(t, "[1] <H1> \"Jane Doe\"\n[2] <A> \"Portfolio (→ https://example.com/jane)\"", res.Map)
	require.Same(t, res, s.LastScan())

	got := s.Inspect([]int{2, 7})
	require.Equal(t, dom.Element{Tag: "A", Text: "Portfolio", Href: "https://example.com/jane"}, got[2])
	require.Equal(t, dom.NotFoundTag, got[7].Tag)

	n, err := testutil.GatherAndCount(collector.Registry(), "scout_scans_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.ScanTarget(context.Background(), "https://unknown.example", false)
	require.Error(t, err)
}

func TestScanWithoutLoader(t *testing.T) {
	s := New(nil, nil)
	_, err := s.ScanTarget(context.Background(), "page.html", false)
	require.ErrorIs(t, err, ErrNoLoader)
}

func TestScanHTMLEmptyAndError(t *testing.T) {
	s := New(nil, nil)

	res, err := s.ScanHTML(`<html><body><main><p>x</p></main></body></html>`, "", false)
	require.NoError(t, err)
	require.Equal(t, dom.EmptyMarker, res.Map)
	require.True(t, res.Empty())

	_, err = s.ScanHTML("   ", "", false)
	require.Error(t, err)
}

func TestExtractProfileUsesLastScan(t *testing.T) {
	gen := &recordingGenerator{reply: `{"fullName": "Jane Doe"}`}
	s := New(nil, nil, WithAssistant(assistant.New(gen, nil)))

	_, err := s.ExtractProfile(context.Background(), "", "")
	require.ErrorIs(t, err, ai.ErrNoContent)

	_, err = s.ScanHTML(profileHTML, "https://www.linkedin.com/in/jane", false)
	require.NoError(t, err)

	c, err := s.ExtractProfile(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", c.FullName)
	require.Equal(t, ai.SourceLinkedIn, c.Source)
	require.Equal(t, "https://www.linkedin.com/in/jane", c.ProfileURL)

	require.Len(t, gen.prompts, 1)
	require.True(t, strings.Contains(gen.prompts[0].User, `[1] <H1> "Jane Doe"`))
}

func TestAIConfigured(t *testing.T) {
	require.False(t, New(nil, nil).AIConfigured())
	require.True(t, New(nil, nil, WithAssistant(assistant.New(&recordingGenerator{}, nil))).AIConfigured())
}
