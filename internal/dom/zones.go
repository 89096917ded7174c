package dom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Rule names one noisy region of a page by CSS selector.
type Rule struct {
	Name     string `mapstructure:"name" json:"name"`
	Selector string `mapstructure:"selector" json:"selector"`
}

// DefaultRules is the maintained list of regions that never contribute text:
// chat overlays, global navigation, footers, modals, ads and dialogs.
var DefaultRules = []Rule{
	{Name: "messaging-overlay", Selector: "#msg-overlay, .msg-overlay-container, .msg-overlay-list-bubble"},
	{Name: "chat-widget", Selector: "[class*='chat-widget'], [id*='chat-widget'], .intercom-lightweight-app"},
	{Name: "global-nav", Selector: "header.global-nav, #global-nav, nav, [role='navigation']"},
	{Name: "footer", Selector: "footer, [role='contentinfo'], .global-footer"},
	{Name: "modal", Selector: ".modal, .artdeco-modal, .artdeco-modal-overlay, [aria-modal='true']"},
	{Name: "ads", Selector: "aside, .ad-banner-container, [data-ad], [id^='google_ads']"},
	{Name: "cookie-banner", Selector: "#onetrust-banner-sdk, .artdeco-global-alert"},
	{Name: "dialog", Selector: "dialog, [role='dialog']"},
	{Name: "alert-dialog", Selector: "[role='alertdialog']"},
}

type zone struct {
	rule    Rule
	matcher cascadia.Matcher
	err     error
}

// Zones is a compiled set of forbidden-zone rules.
type Zones struct {
	zones []zone
}

// ZoneStatus describes one rule and whether it could be compiled.
type ZoneStatus struct {
	Name     string `json:"name" yaml:"name"`
	Selector string `json:"selector" yaml:"selector"`
	Active   bool   `json:"active" yaml:"active"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewZones compiles rules. A rule that does not compile is kept but never
// matches, so one bad selector cannot break a scan.
func NewZones(rules ...Rule) *Zones {
	z := &Zones{zones: make([]zone, 0, len(rules))}
	for _, r := range rules {
		r.Name = strings.TrimSpace(r.Name)
		r.Selector = strings.TrimSpace(r.Selector)

		compiled := zone{rule: r}
		m, err := compileRule(r.Selector)
		if err != nil {
			compiled.err = err
		} else {
			compiled.matcher = m
		}
		z.zones = append(z.zones, compiled)
	}
	return z
}

// RulesFromMap turns a name -> selector map into rules ordered by name.
func RulesFromMap(m map[string]string) []Rule {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		rules = append(rules, Rule{Name: name, Selector: m[name]})
	}
	return rules
}

func compileRule(selector string) (m cascadia.Matcher, err error) {
	if selector == "" {
		return nil, fmt.Errorf("empty selector")
	}
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("compile selector %q: %v", selector, r)
		}
	}()
	return cascadia.Compile(selector)
}

// Contains reports whether n or any of its ancestors matches a rule.
func (z *Zones) Contains(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if z.Matches(cur) {
			return true
		}
	}
	return false
}

// Matches reports whether n itself matches a rule.
func (z *Zones) Matches(n *html.Node) bool {
	if z == nil || n == nil || n.Type != html.ElementNode {
		return false
	}
	for i := range z.zones {
		if z.zones[i].match(n) {
			return true
		}
	}
	return false
}

func (zn *zone) match(n *html.Node) (ok bool) {
	if zn.matcher == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return zn.matcher.Match(n)
}

// Invalid returns the rules that failed to compile.
func (z *Zones) Invalid() []ZoneStatus {
	var out []ZoneStatus
	for _, s := range z.Describe() {
		if !s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Describe returns status entries for every rule, in definition order.
func (z *Zones) Describe() []ZoneStatus {
	if z == nil {
		return nil
	}
	statuses := make([]ZoneStatus, 0, len(z.zones))
	for _, zn := range z.zones {
		status := ZoneStatus{Name: zn.rule.Name, Selector: zn.rule.Selector, Active: zn.err == nil}
		if zn.err != nil {
			status.Error = zn.err.Error()
		}
		statuses = append(statuses, status)
	}
	return statuses
}
