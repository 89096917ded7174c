package page

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/dom"
)

const maxRedirects = 10

// HTTPLoader fetches pages without running scripts. Pages that need a
// session or client-side rendering should use the browser loader.
type HTTPLoader struct {
	client *resty.Client
	logger *zap.Logger
}

func NewHTTPLoader(cfg Config, log *zap.Logger) *HTTPLoader {
	cfg.defaults()

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.8")

	return &HTTPLoader{client: client, logger: log}
}

func (l *HTTPLoader) Load(ctx context.Context, target string) (*dom.Document, error) {
	resp, err := l.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status())
	}

	finalURL := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	doc, err := FromHTML(resp.Body(), resp.Header().Get("Content-Type"), finalURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}

	l.logger.Debug("page loaded",
		zap.String("loader", ModeHTTP),
		zap.String("url", finalURL),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("took", resp.Time()),
	)
	return doc, nil
}
