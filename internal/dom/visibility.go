package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Layout snapshot attributes written by the browser loader before the page is
// serialised. Static pages do not carry them and fall back to inline styles.
const (
	BoxAttr   = "data-scout-box"
	StyleAttr = "data-scout-style"

	noBox = "none"
)

// nonRendered elements never produce a layout box.
var nonRendered = map[string]bool{
	"head":     true,
	"title":    true,
	"meta":     true,
	"link":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
}

// Visible reports whether n is meaningfully visible below root. root is the
// scan container and is exempt from the layout-box check.
//
// Losing the layout box (no box, display:none, the hidden attribute) and
// opacity:0 hide the whole subtree. Zero size and visibility are judged per
// node: a 0x0 wrapper may still have visible children, and a child may
// declare visibility:visible under a hidden parent.
func Visible(n, root *html.Node) bool {
	return newVisibility(root).visible(n)
}

// visibility memoises per-node verdicts for the duration of one scan.
type visibility struct {
	root     *html.Node
	rendered map[*html.Node]bool
	keyword  map[*html.Node]string
}

func newVisibility(root *html.Node) *visibility {
	return &visibility{
		root:     root,
		rendered: make(map[*html.Node]bool),
		keyword:  make(map[*html.Node]string),
	}
}

// visible reports whether n itself shows on the page.
func (v *visibility) visible(n *html.Node) bool {
	if !v.isRendered(n) {
		return false
	}
	if zeroSize(n) {
		return false
	}
	switch v.visibilityOf(n) {
	case "hidden", "collapse":
		return false
	}
	return true
}

// isRendered reports whether n and its ancestors up to root keep their
// layout. A false verdict hides every descendant as well.
func (v *visibility) isRendered(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if got, ok := v.rendered[n]; ok {
		return got
	}

	ok := true
	if n != v.root {
		ok = !prunes(n)
		if ok {
			switch p := n.Parent; {
			case p == nil:
				// detached
				ok = false
			case p.Type == html.ElementNode:
				ok = v.isRendered(p)
			case p.Type != html.DocumentNode:
				ok = false
			}
		}
	}

	v.rendered[n] = ok
	return ok
}

// visibilityOf resolves the visibility keyword of n. The property is
// inherited unless the node declares its own; the browser snapshot
// declares the computed value on every element.
func (v *visibility) visibilityOf(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if got, ok := v.keyword[n]; ok {
		return got
	}

	kw, declared := computedStyle(n)["visibility"]
	if !declared {
		kw = v.visibilityOf(n.Parent)
	}

	v.keyword[n] = kw
	return kw
}

// prunes reports the conditions that remove n and its whole subtree.
func prunes(n *html.Node) bool {
	if !hasLayoutBox(n) {
		return true
	}
	style := computedStyle(n)
	if style["display"] == "none" {
		return true
	}
	if op, ok := style["opacity"]; ok {
		if f, err := strconv.ParseFloat(op, 64); err == nil && f <= 0 {
			return true
		}
	}
	return false
}

// zeroSize reports a box that is zero wide and zero high, measured by the
// browser or declared in the markup. Geometry is consulted before any style
// is parsed.
func zeroSize(n *html.Node) bool {
	if w, h, known := boxSize(n); known {
		return w == 0 && h == 0
	}
	w, h, known := declaredSize(n, computedStyle(n))
	return known && w == 0 && h == 0
}

func hasLayoutBox(n *html.Node) bool {
	if nonRendered[n.Data] {
		return false
	}
	if _, hidden := attr(n, "hidden"); hidden {
		return false
	}
	if box, ok := attr(n, BoxAttr); ok && strings.TrimSpace(box) == noBox {
		return false
	}
	if t, _ := attr(n, "type"); n.Data == "input" && strings.EqualFold(t, "hidden") {
		return false
	}
	return true
}

// boxSize reads the snapshot box ("WxH"). known is false when the page was
// not rendered by a browser.
func boxSize(n *html.Node) (w, h float64, known bool) {
	box, ok := attr(n, BoxAttr)
	if !ok {
		return 0, 0, false
	}
	ws, hs, found := strings.Cut(strings.TrimSpace(box), "x")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(ws, 64)
	h, errH := strconv.ParseFloat(hs, 64)
	if errW != nil || errH != nil {
		return 0, 0, false
	}
	return w, h, true
}

// computedStyle merges the snapshot style with the inline style attribute.
// Inline declarations win, matching how they override stylesheet rules.
func computedStyle(n *html.Node) map[string]string {
	style := make(map[string]string)
	if snap, ok := attr(n, StyleAttr); ok {
		parseDeclarations(snap, style)
	}
	if inline, ok := attr(n, "style"); ok {
		parseDeclarations(inline, style)
	}
	return style
}

func parseDeclarations(s string, into map[string]string) {
	for _, decl := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if key == "" || val == "" {
			continue
		}
		into[key] = val
	}
}

// declaredSize reports width and height from the inline style, falling back
// to the width and height attributes, when both are absolute pixel (or
// unitless) values.
func declaredSize(n *html.Node, style map[string]string) (w, h float64, known bool) {
	w, okW := pixels(style["width"])
	if !okW {
		w, okW = pixels(attrOr(n, "width", ""))
	}
	h, okH := pixels(style["height"])
	if !okH {
		h, okH = pixels(attrOr(n, "height", ""))
	}
	return w, h, okW && okH
}

func pixels(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
