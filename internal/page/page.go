// Package page loads profile pages into dom documents, from saved files,
// plain HTTP or a rendered browser tab.
package page

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/spigell/talent-scout/internal/dom"
)

// Loader modes.
const (
	ModeAuto    = "auto"
	ModeFile    = "file"
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	maxPageSize      = 20 << 20
)

// Loader fetches target and parses it.
type Loader interface {
	Load(ctx context.Context, target string) (*dom.Document, error)
}

// Config selects and tunes loaders.
type Config struct {
	Mode      string        `mapstructure:"loader"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// BrowserURL is the DevTools websocket of a running Chrome. Empty
	// launches a local headless one.
	BrowserURL string `mapstructure:"browser-url"`
}

func (c *Config) defaults() {
	if strings.TrimSpace(c.Mode) == "" {
		c.Mode = ModeAuto
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// New returns the loader for cfg.Mode. ModeAuto reads files from disk and
// fetches http(s) targets over plain HTTP.
func New(cfg Config, log *zap.Logger) (Loader, error) {
	cfg.defaults()
	if log == nil {
		log = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case ModeAuto:
		return &autoLoader{
			file: NewFileLoader(log),
			http: NewHTTPLoader(cfg, log),
		}, nil
	case ModeFile:
		return NewFileLoader(log), nil
	case ModeHTTP:
		return NewHTTPLoader(cfg, log), nil
	case ModeBrowser:
		return NewBrowserLoader(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown loader %q (expected %s, %s, %s or %s)", cfg.Mode, ModeAuto, ModeFile, ModeHTTP, ModeBrowser)
	}
}

type autoLoader struct {
	file Loader
	http Loader
}

func (a *autoLoader) Load(ctx context.Context, target string) (*dom.Document, error) {
	if IsRemote(target) {
		return a.http.Load(ctx, target)
	}
	return a.file.Load(ctx, target)
}

// IsRemote reports whether target is an http(s) URL.
func IsRemote(target string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FromHTML decodes data to UTF-8 and parses it. contentType may be empty;
// when it names no charset the encoding is detected from the bytes.
func FromHTML(data []byte, contentType, pageURL string) (*dom.Document, error) {
	if len(data) > maxPageSize {
		return nil, fmt.Errorf("page exceeds maximum size of %d bytes", maxPageSize)
	}

	if !hasCharset(contentType) {
		contentType = "text/html; charset=" + DetectCharset(data)
	}

	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return dom.NewDocument(bytes.NewReader(data), pageURL)
	}
	return dom.NewDocument(r, pageURL)
}

// DetectCharset returns the IANA name of the encoding of data. Valid UTF-8
// is reported as such without running the detector.
func DetectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	result, err := chardet.NewHtmlDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "windows-1252"
	}
	return strings.ToLower(result.Charset)
}

func hasCharset(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return false
	}
	_, params, err := mime.ParseMediaType(contentType)
	return err == nil && strings.TrimSpace(params["charset"]) != ""
}

// canonicalURL returns the address a saved page declares for itself.
func canonicalURL(doc *dom.Document) string {
	for _, sel := range []string{`link[rel="canonical"]`, `meta[property="og:url"]`} {
		s := doc.Find(sel).First()
		for _, key := range []string{"href", "content"} {
			if v, ok := s.Attr(key); ok && IsRemote(v) {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
