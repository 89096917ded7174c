package dom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const profilePage = `<html><body>
<header class="global-nav"><a href="/feed">Home feed</a></header>
<main>
  <h1>Jane Doe</h1>
  <div class="headline">Staff Engineer at Example</div>
  <section>
    <h2>Experience</h2>
    <ul>
      <li>Example Corp <span>2019 - now</span></li>
      <li style="display:none">Hidden job</li>
    </ul>
    <a href="https://example.com/jane">Portfolio</a>
    <button aria-label="Send message"></button>
    <p>x</p>
  </section>
  <aside><p>Promoted content here</p></aside>
</main>
<div id="msg-overlay"><p>Chat with recruiters</p></div>
<footer><p>About us</p></footer>
</body></html>`

var linePattern = regexp.MustCompile(`^\[(\d+)\] <([A-Z0-9]+)> "(.*)"$`)

func scanString(t *testing.T, m *Mapper, page string, debug bool) (string, *Document) {
	t.Helper()
	doc, err := ParseString(page, "https://www.example.com/in/jane")
	require.NoError(t, err)
	return m.Scan(doc, debug), doc
}

func parseLines(t *testing.T, out string) []string {
	t.Helper()
	return strings.Split(out, "\n")
}

func TestScanProducesDenseAnchors(t *testing.T) {
	m := NewMapper(zap.NewNop())
	out, _ := scanString(t, m, profilePage, false)

	lines := parseLines(t, out)
	require.NotEmpty(t, lines)

	for i, line := range lines {
		match := linePattern.FindStringSubmatch(line)
		require.NotNil(t, match, "unexpected line format: %q", line)
		anchor, err := strconv.Atoi(match[1])
		require.NoError(t, err)
		require.Equal(t, i+1, anchor)
	}
	require.Equal(t, len(lines), m.Anchors())
	require.Equal(t, len(lines), m.Report().Lines)
}

func TestScanOutput(t *testing.T) {
	m := NewMapper(zap.NewNop())
	out, _ := scanString(t, m, profilePage, false)

	expected := strings.Join([]string{
		`[1] <H1> "Jane Doe"`,
		`[2] <DIV> "Staff Engineer at Example"`,
		`[3] <H2> "Experience"`,
		`[4] <LI> "Example Corp"`,
		`[5] <SPAN> "2019 - now"`,
		`[6] <A> "Portfolio (→ https://example.com/jane)"`,
		`[7] <BUTTON> "Send message"`,
	}, "\n")
	require.Equal(t, expected, out)
}

func TestScanSkipsForbiddenZones(t *testing.T) {
	m := NewMapper(zap.NewNop())
	page := `<html><body>
<p>Visible paragraph</p>
<nav><ul><li>Jobs menu</li></ul></nav>
<div role="dialog"><div><span>Dialog body text</span></div></div>
<div id="msg-overlay"><div><p>Chat with recruiters</p></div></div>
<footer><p>About us</p></footer>
</body></html>`

	out, _ := scanString(t, m, page, false)
	require.Equal(t, `[1] <P> "Visible paragraph"`, out)
	require.Equal(t, 4, m.Report().Forbidden)
}

func TestScanRootInsideForbiddenZone(t *testing.T) {
	m := NewMapper(zap.NewNop())
	page := `<html><body><div role="dialog"><main><p>Inside a dialog</p></main></div></body></html>`

	out, _ := scanString(t, m, page, false)
	require.Equal(t, EmptyMarker, out)
}

func TestScanReturnsEmptyMarker(t *testing.T) {
	m := NewMapper(zap.NewNop())
	out, _ := scanString(t, m, `<html><body><main><div><img src="a.png"></div><p> </p></main></body></html>`, false)
	require.Equal(t, EmptyMarker, out)
	require.Zero(t, m.Anchors())
}

func TestScanReturnsErrorMarker(t *testing.T) {
	m := NewMapper(zap.NewNop())
	out := m.Scan(nil, false)
	require.True(t, strings.HasPrefix(out, ErrorMarker+" "), out)
	require.Error(t, m.Report().Err)
}

func TestScanTruncatesLongText(t *testing.T) {
	m := NewMapper(zap.NewNop())
	long := strings.Repeat("é", MaxTextLength+40)
	out, _ := scanString(t, m, fmt.Sprintf(`<html><body><p>%s</p></body></html>`, long), false)

	match := linePattern.FindStringSubmatch(out)
	require.NotNil(t, match)
	text := match[3]
	require.True(t, strings.HasSuffix(text, Ellipsis))
	require.Equal(t, MaxTextLength+1, utf8.RuneCountInString(text))
}

func TestScanDoesNotDuplicateChildText(t *testing.T) {
	m := NewMapper(zap.NewNop())
	out, _ := scanString(t, m, `<html><body><div>Parent text <span>Child text</span></div></body></html>`, false)

	lines := parseLines(t, out)
	require.Len(t, lines, 2)
	require.Equal(t, `[1] <DIV> "Parent text"`, lines[0])
	require.Equal(t, `[2] <SPAN> "Child text"`, lines[1])
}

func TestScanDescendsIntoCollapsedWrappers(t *testing.T) {
	m := NewMapper(zap.NewNop())
	page := `<html><body><main>
<div data-scout-box="0x0"><p data-scout-box="320x18">Senior Go Engineer</p></div>
<div style="visibility:hidden"><span>Hidden note</span><p style="visibility:visible">Open to relocation</p></div>
<div style="display:none"><p style="visibility:visible">Removed entirely</p></div>
</main></body></html>`

	out, _ := scanString(t, m, page, false)
	require.Equal(t, strings.Join([]string{
		`[1] <P> "Senior Go Engineer"`,
		`[2] <P> "Open to relocation"`,
	}, "\n"), out)
	require.Equal(t, 4, m.Report().Hidden)
}

func TestRescanClearsPreviousState(t *testing.T) {
	m := NewMapper(zap.NewNop())
	_, doc := scanString(t, m, profilePage, true)
	require.Equal(t, m.Anchors(), countAttr(doc, DebugAttr))

	// A second scan of the same tree without indicators leaves none behind.
	out := m.Scan(doc, false)
	require.NotEqual(t, EmptyMarker, out)
	require.Zero(t, countAttr(doc, DebugAttr))

	// Anchors restart at one.
	require.True(t, strings.HasPrefix(out, "[1] "))

	// Scanning another page drops anchors that only existed on the first one.
	other, err := ParseString(`<html><body><p>Only one</p></body></html>`, "")
	require.NoError(t, err)
	require.Equal(t, `[1] <P> "Only one"`, m.Scan(other, false))
	require.Equal(t, NotFoundTag, m.Extract([]int{2})[2].Tag)
}

func TestRepeatedDebugScansDoNotLeak(t *testing.T) {
	m := NewMapper(zap.NewNop())
	_, doc := scanString(t, m, profilePage, true)
	for i := 0; i < 5; i++ {
		m.Scan(doc, true)
	}
	require.Equal(t, m.Anchors(), countAttr(doc, DebugAttr))
}

func TestExtract(t *testing.T) {
	m := NewMapper(zap.NewNop())
	out, _ := scanString(t, m, profilePage, false)
	require.NotEqual(t, EmptyMarker, out)

	got := m.Extract([]int{4, 6, 999})

	require.Equal(t, Element{Tag: "LI", Text: "Example Corp 2019 - now"}, got[4])
	require.Equal(t, Element{Tag: "A", Text: "Portfolio", Href: "https://example.com/jane"}, got[6])
	require.Equal(t, Element{Tag: NotFoundTag}, got[999])
}

func TestExtractBeforeAnyScan(t *testing.T) {
	m := NewMapper(nil)
	got := m.Extract([]int{1})
	require.Equal(t, NotFoundTag, got[1].Tag)
	require.Empty(t, got[1].Text)
}

func TestSiteProfileRoots(t *testing.T) {
	m := NewMapper(zap.NewNop(), SiteProfile{
		Name:  "board",
		Hosts: []string{"board.example"},
		Roots: []string{"#profile"},
		Zones: map[string]string{"sidebar": ".sidebar"},
	})

	page := `<html><body>
<p>Outside the profile</p>
<div id="profile"><h1>Candidate</h1><div class="sidebar"><p>Sidebar noise</p></div></div>
</body></html>`

	doc, err := ParseString(page, "https://jobs.board.example/p/1")
	require.NoError(t, err)
	require.Equal(t, `[1] <H1> "Candidate"`, m.Scan(doc, false))
	require.Equal(t, "board", m.Report().Site)

	// Other hosts fall back to the default profile and scan the body.
	doc, err = ParseString(page, "https://elsewhere.example/p/1")
	require.NoError(t, err)
	out := m.Scan(doc, false)
	require.Contains(t, out, "Outside the profile")
	require.Contains(t, out, "Sidebar noise")
}

func TestSiteProfileInvalidZoneFailsOpen(t *testing.T) {
	m := NewMapper(zap.NewNop(), SiteProfile{
		Name:  "broken",
		Hosts: []string{"broken.example"},
		Zones: map[string]string{"bad": "div[[["},
	})

	doc, err := ParseString(`<html><body><p>Still scanned</p><footer><p>Footer</p></footer></body></html>`, "https://broken.example/")
	require.NoError(t, err)
	require.Equal(t, `[1] <P> "Still scanned"`, m.Scan(doc, false))
	require.Len(t, m.Zones("https://broken.example/").Invalid(), 1)
}

func countAttr(doc *Document, key string) int {
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := attr(n, key); ok {
				count++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return count
}
