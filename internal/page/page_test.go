package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/dom"
)

func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

func TestFromHTMLDetectsCharset(t *testing.T) {
	t.Parallel()

	body := "<html><body><h1>Café Müller</h1>" +
		strings.Repeat("<p>Expérience professionnelle à Zürich, développement logiciel et négociation.</p>", 20) +
		"</body></html>"

	doc, err := FromHTML(latin1(body), "", "https://example.com")
	if err != nil {
		t.Fatalf("FromHTML returned error: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Café Müller" {
		t.Fatalf("expected decoded heading, got %q", got)
	}
}

func TestFromHTMLHonoursContentType(t *testing.T) {
	t.Parallel()

	doc, err := FromHTML(latin1("<p>Jürgen</p>"), "text/html; charset=ISO-8859-1", "")
	if err != nil {
		t.Fatalf("FromHTML returned error: %v", err)
	}
	if got := doc.Find("p").Text(); got != "Jürgen" {
		t.Fatalf("expected Jürgen, got %q", got)
	}
}

func TestDetectCharsetUTF8(t *testing.T) {
	t.Parallel()

	if got := DetectCharset([]byte("<p>Jürgen</p>")); got != "utf-8" {
		t.Fatalf("expected utf-8, got %q", got)
	}
}

func TestFileLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	saved := filepath.Join(dir, "profile.html")
	html := `<html><head><link rel="canonical" href="https://www.linkedin.com/in/jane"></head><body><main><h1>Jane</h1></main></body></html>`
	if err := os.WriteFile(saved, []byte(html), 0o600); err != nil {
		t.Fatalf("write page: %v", err)
	}
	plain := filepath.Join(dir, "plain.html")
	if err := os.WriteFile(plain, []byte(`<p>hi</p>`), 0o600); err != nil {
		t.Fatalf("write page: %v", err)
	}

	loader := NewFileLoader(zap.NewNop())

	doc, err := loader.Load(context.Background(), saved)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc.URL != "https://www.linkedin.com/in/jane" {
		t.Fatalf("expected canonical URL, got %q", doc.URL)
	}

	doc, err = loader.Load(context.Background(), "file://"+plain)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !strings.HasPrefix(doc.URL, "file://") || !strings.HasSuffix(doc.URL, "plain.html") {
		t.Fatalf("expected file URL, got %q", doc.URL)
	}

	if _, err := loader.Load(context.Background(), filepath.Join(dir, "missing.html")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHTTPLoader(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		userAgent string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in/jane":
			mu.Lock()
			userAgent = r.Header.Get("User-Agent")
			mu.Unlock()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><main><h1>Jane Doe</h1></main></body></html>`))
		case "/old":
			http.Redirect(w, r, "/in/jane", http.StatusMovedPermanently)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewHTTPLoader(Config{UserAgent: "scout-test"}, zap.NewNop())

	doc, err := loader.Load(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc.URL != srv.URL+"/in/jane" {
		t.Fatalf("expected redirected URL, got %q", doc.URL)
	}
	if got := doc.Find("h1").Text(); got != "Jane Doe" {
		t.Fatalf("unexpected heading %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if userAgent != "scout-test" {
		t.Fatalf("expected configured user agent, got %q", userAgent)
	}

	if _, err := loader.Load(context.Background(), srv.URL+"/missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

func TestNewSelectsLoader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode string
		want any
	}{
		{mode: "", want: &autoLoader{}},
		{mode: ModeFile, want: &FileLoader{}},
		{mode: ModeHTTP, want: &HTTPLoader{}},
		{mode: "BROWSER", want: &BrowserLoader{}},
	}
	for _, tt := range tests {
		loader, err := New(Config{Mode: tt.mode}, nil)
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", tt.mode, err)
		}
		if got, want := typeName(loader), typeName(tt.want); got != want {
			t.Fatalf("New(%q) returned %s, want %s", tt.mode, got, want)
		}
	}

	if _, err := New(Config{Mode: "ftp"}, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *autoLoader:
		return "auto"
	case *FileLoader:
		return "file"
	case *HTTPLoader:
		return "http"
	case *BrowserLoader:
		return "browser"
	default:
		return "unknown"
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	for target, want := range map[string]bool{
		"https://www.linkedin.com/in/jane": true,
		"http://localhost:8080/x":          true,
		"profile.html":                     false,
		"file:///tmp/profile.html":         false,
		"https://":                         false,
	} {
		if got := IsRemote(target); got != want {
			t.Fatalf("IsRemote(%q) = %v, want %v", target, got, want)
		}
	}
}

func TestSnapshotScriptUsesDomAttributes(t *testing.T) {
	t.Parallel()

	if !strings.Contains(snapshotScript, dom.BoxAttr) || !strings.Contains(snapshotScript, dom.StyleAttr) {
		t.Fatal("snapshot script must write the attributes the visibility filter reads")
	}
}

func TestSnapshotAttributesDriveVisibility(t *testing.T) {
	t.Parallel()

	// What the browser loader produces for a page with a collapsed panel.
	html := `<html><body data-scout-box="1280x900"><main data-scout-box="800x600">
<h1 data-scout-box="300x40" data-scout-style="display:block;visibility:visible;opacity:1">Jane Doe</h1>
<p data-scout-box="none" data-scout-style="display:none;visibility:visible;opacity:1">Hidden teaser</p>
<p data-scout-box="0x0" data-scout-style="display:block;visibility:visible;opacity:1">Collapsed</p>
</main></body></html>`

	doc, err := dom.ParseString(html, "https://example.com")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := dom.NewMapper(nil).Scan(doc, false)
	if out != `[1] <H1> "Jane Doe"` {
		t.Fatalf("unexpected map %q", out)
	}
}
