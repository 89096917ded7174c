package dom

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	// MaxTextLength is the longest text reported for one element, in runes.
	MaxTextLength = 200
	// MinTextLength is the shortest text worth reporting, in runes.
	MinTextLength = 2
	// Ellipsis marks truncated text.
	Ellipsis = "…"

	// EmptyMarker is returned when a scan produced no lines.
	EmptyMarker = "[EMPTY]"
	// ErrorMarker prefixes the message of a failed scan.
	ErrorMarker = "[ERROR]"
	// NotFoundTag is reported for anchors the latest scan never assigned.
	NotFoundTag = "NOT_FOUND"

	// DebugAttr is the diagnostic indicator placed on mapped nodes.
	DebugAttr = "data-scout-debug"

	defaultSiteName = "default"
)

// candidateTags are the elements a scan reports on.
var candidateTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "span": true, "li": true, "div": true, "section": true, "article": true,
	"a": true, "button": true, "label": true, "dt": true, "dd": true,
	"td": true, "th": true, "time": true, "strong": true, "em": true,
}

// Element is the detailed view of one anchored node.
type Element struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// Report summarises the latest scan.
type Report struct {
	ID        string
	Site      string
	Lines     int
	Hidden    int
	Forbidden int
	Short     int
	Duration  time.Duration
	Err       error
}

// Mapper scans documents and keeps the anchors of the latest scan. One scan or
// extraction runs at a time.
type Mapper struct {
	mu sync.Mutex

	logger      *zap.Logger
	sites       []*site
	defaultSite *site

	anchors map[int]*html.Node
	marked  []*html.Node
	report  Report
}

// NewMapper builds a mapper for the provided site profiles. Pages that match
// no profile use DefaultRoots and DefaultRules.
func NewMapper(logger *zap.Logger, profiles ...SiteProfile) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Mapper{
		logger:      logger,
		defaultSite: compileSite(SiteProfile{Name: defaultSiteName}),
		anchors:     make(map[int]*html.Node),
	}

	for _, p := range profiles {
		m.sites = append(m.sites, compileSite(p))
	}

	for _, s := range append([]*site{m.defaultSite}, m.sites...) {
		for _, bad := range s.zones.Invalid() {
			logger.Warn("forbidden zone rule disabled",
				zap.String("site", s.name),
				zap.String("rule", bad.Name),
				zap.String("selector", bad.Selector),
				zap.String("error", bad.Error),
			)
		}
	}

	return m
}

// Zones returns the rules applied to pages at pageURL.
func (m *Mapper) Zones(pageURL string) *Zones {
	return m.siteFor(pageURL).zones
}

func (m *Mapper) siteFor(pageURL string) *site {
	host := hostOf(pageURL)
	if host != "" {
		for _, s := range m.sites {
			if s.matches(host) {
				return s
			}
		}
	}
	return m.defaultSite
}

// Scan maps the visible, meaningful text of doc. It returns one line per
// element in the form `[anchor] <TAG> "text"`, EmptyMarker when nothing
// qualified, or ErrorMarker followed by a message when the scan failed.
// Anchors and debug indicators of the previous scan are always cleared first.
func (m *Mapper) Scan(doc *Document, debugIndicator bool) string {
	out, _ := m.ScanReport(doc, debugIndicator)
	return out
}

// ScanReport is Scan that also returns the summary of this scan.
func (m *Mapper) ScanReport(doc *Document, debugIndicator bool) (out string, report Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()

	started := time.Now()
	report = Report{ID: uuid.NewString()}

	defer func() {
		if r := recover(); r != nil {
			m.reset()
			report.Err = fmt.Errorf("scan panicked: %v", r)
			out = ErrorMarker + " " + report.Err.Error()
		}
		report.Duration = time.Since(started)
		m.report = report

		fields := []zap.Field{
			zap.String("scan_id", report.ID),
			zap.String("site", report.Site),
			zap.Int("lines", report.Lines),
			zap.Int("hidden", report.Hidden),
			zap.Int("forbidden", report.Forbidden),
			zap.Int("short", report.Short),
			zap.Duration("duration", report.Duration),
		}
		if report.Err != nil {
			m.logger.Warn("scan failed", append(fields, zap.Error(report.Err))...)
			return
		}
		m.logger.Debug("scan completed", fields...)
	}()

	lines, err := m.scan(doc, debugIndicator, &report)
	if err != nil {
		m.reset()
		report.Err = err
		return ErrorMarker + " " + err.Error(), report
	}

	report.Lines = len(lines)
	if len(lines) == 0 {
		return EmptyMarker, report
	}
	return strings.Join(lines, "\n"), report
}

func (m *Mapper) scan(doc *Document, debugIndicator bool, report *Report) ([]string, error) {
	if doc == nil || doc.Document == nil {
		return nil, errors.New("no document to scan")
	}

	s := m.siteFor(doc.URL)
	report.Site = s.name

	root := s.roots.Root(doc)
	if root == nil {
		return nil, errors.New("no scan root found")
	}

	// Rules are matched per node while descending, so only the chain above
	// the root needs a full walk.
	if s.zones.Contains(root.Parent) {
		report.Forbidden++
		return nil, nil
	}

	vis := newVisibility(root)
	var lines []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if s.zones.Matches(c) {
				report.Forbidden++
				continue
			}
			if !vis.isRendered(c) {
				report.Hidden++
				continue
			}

			if !vis.visible(c) {
				// children of an empty or hidden wrapper can still show
				report.Hidden++
			} else if candidateTags[c.Data] {
				if line, ok := m.mapNode(c, len(lines)+1, debugIndicator); ok {
					lines = append(lines, line)
				} else {
					report.Short++
				}
			}

			walk(c)
		}
	}

	if s.zones.Matches(root) {
		report.Forbidden++
		return nil, nil
	}
	walk(root)

	return lines, nil
}

// mapNode assigns anchor to n when it carries enough text of its own.
func (m *Mapper) mapNode(n *html.Node, anchor int, debugIndicator bool) (string, bool) {
	text := nodeText(n)
	if utf8.RuneCountInString(text) < MinTextLength {
		return "", false
	}
	text = truncate(text)

	m.anchors[anchor] = n
	if debugIndicator {
		setAttr(n, DebugAttr, fmt.Sprint(anchor))
		m.marked = append(m.marked, n)
	}

	return fmt.Sprintf(`[%d] <%s> "%s"`, anchor, strings.ToUpper(n.Data), text), true
}

// nodeText is the direct text of n, with the link target appended for links
// and accessible-name fallbacks for controls that carry no text.
func nodeText(n *html.Node) string {
	text := directText(n)

	if text == "" && isInteractive(n) {
		for _, key := range []string{"aria-label", "title"} {
			if v := normalizeSpace(attrOr(n, key, "")); v != "" {
				text = v
				break
			}
		}
	}

	if n.Data == "a" && text != "" {
		if href := strings.TrimSpace(attrOr(n, "href", "")); href != "" && href != "#" {
			text += " (→ " + href + ")"
		}
	}

	return text
}

func isInteractive(n *html.Node) bool {
	switch n.Data {
	case "a", "button":
		return true
	}
	role, _ := attr(n, "role")
	return role == "button" || role == "link" || role == "tab"
}

// reset detaches everything the previous scan attached. It only touches nodes
// that scan recorded.
func (m *Mapper) reset() {
	for _, n := range m.marked {
		removeAttr(n, DebugAttr)
	}
	m.marked = nil
	if len(m.anchors) > 0 {
		m.anchors = make(map[int]*html.Node)
	}
}

// Clear drops the anchors of the latest scan without scanning again.
func (m *Mapper) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// Report returns the summary of the latest scan.
func (m *Mapper) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report
}

// Anchors returns the number of anchors held from the latest scan.
func (m *Mapper) Anchors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.anchors)
}

// Extract returns details for previously issued anchors. Unknown anchors are
// reported with NotFoundTag instead of failing the whole request.
func (m *Mapper) Extract(anchors []int) map[int]Element {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int]Element, len(anchors))
	for _, id := range anchors {
		n, ok := m.anchors[id]
		if !ok {
			out[id] = Element{Tag: NotFoundTag}
			continue
		}

		el := Element{
			Tag:  strings.ToUpper(n.Data),
			Text: truncate(fullText(n)),
		}
		if n.Data == "a" {
			el.Href = strings.TrimSpace(attrOr(n, "href", ""))
		}
		out[id] = el
	}
	return out
}
