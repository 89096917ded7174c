package dom

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// SiteProfile tunes scanning for one family of pages: where the primary
// content lives and which extra regions to ignore.
type SiteProfile struct {
	Name  string            `mapstructure:"name"`
	Hosts []string          `mapstructure:"hosts"`
	Roots []string          `mapstructure:"roots"`
	Zones map[string]string `mapstructure:"zones"`
}

// DefaultRoots are tried, in order, when a site does not define its own.
var DefaultRoots = []string{"main", "[role='main']", "#main-content", "#main"}

// DefaultSites ships profiles for the boards the assistant knows about.
var DefaultSites = []SiteProfile{
	{
		Name:  "linkedin",
		Hosts: []string{"linkedin.com"},
		Roots: []string{".scaffold-layout__main", "main", "#profile-content"},
		Zones: map[string]string{
			"right-rail":  ".scaffold-layout__aside",
			"pymk":        ".pv-browsemap-section, [data-view-name='profile-card-pymk']",
			"premium-ads": ".premium-upsell-link, .pv-profile-premium-upsell",
		},
	},
	{
		Name:  "indeed",
		Hosts: []string{"indeed.com"},
		Roots: []string{"#resume-content", "[data-testid='resume-page']", "main"},
		Zones: map[string]string{
			"similar-resumes": "[data-testid='similar-resumes']",
		},
	},
}

// RootSelector picks the container a scan is scoped to.
type RootSelector interface {
	Root(doc *Document) *html.Node
}

// SelectorRoot returns the first element matching one of its selectors, in
// selector order, falling back to <body>.
type SelectorRoot []string

func (s SelectorRoot) Root(doc *Document) *html.Node {
	if doc == nil || doc.Document == nil {
		return nil
	}
	for _, sel := range s {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		if found := safeFind(doc, sel); found != nil {
			return found
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body.Get(0)
	}
	if len(doc.Nodes) > 0 {
		return doc.Nodes[0]
	}
	return nil
}

// safeFind treats an unparsable selector as "no match".
func safeFind(doc *Document, sel string) (n *html.Node) {
	defer func() {
		if r := recover(); r != nil {
			n = nil
		}
	}()
	found := doc.Find(sel)
	if found.Length() == 0 {
		return nil
	}
	return found.Get(0)
}

type site struct {
	name  string
	hosts []string
	roots RootSelector
	zones *Zones
}

func compileSite(p SiteProfile) *site {
	roots := p.Roots
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	rules := append([]Rule{}, DefaultRules...)
	rules = append(rules, RulesFromMap(p.Zones)...)

	hosts := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}

	return &site{
		name:  p.Name,
		hosts: hosts,
		roots: SelectorRoot(roots),
		zones: NewZones(rules...),
	}
}

func (s *site) matches(host string) bool {
	for _, h := range s.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// hostOf returns the lower-cased host of a page address, or "" when the
// address is not a URL (for example a local file path).
func hostOf(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
