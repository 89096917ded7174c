package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/dom"
)

// snapshotScript records what only a rendering engine knows, the layout box
// and the computed visibility styles, as attributes the dom package reads,
// then serialises the document.
var snapshotScript = fmt.Sprintf(`() => {
	for (const el of document.querySelectorAll('body, body *')) {
		const cs = window.getComputedStyle(el);
		if (cs.display !== 'contents') {
			if (el.getClientRects().length === 0) {
				el.setAttribute('%[1]s', 'none');
			} else {
				const r = el.getBoundingClientRect();
				el.setAttribute('%[1]s', Math.round(r.width) + 'x' + Math.round(r.height));
			}
		}
		el.setAttribute('%[2]s', 'display:' + cs.display + ';visibility:' + cs.visibility + ';opacity:' + cs.opacity);
	}
	return document.documentElement.outerHTML;
}`, dom.BoxAttr, dom.StyleAttr)

// BrowserLoader renders pages in Chrome with stealth patches applied. It
// connects to Config.BrowserURL or launches a headless browser per load.
type BrowserLoader struct {
	cfg    Config
	logger *zap.Logger
}

func NewBrowserLoader(cfg Config, log *zap.Logger) *BrowserLoader {
	cfg.defaults()
	return &BrowserLoader{cfg: cfg, logger: log}
}

func (l *BrowserLoader) Load(ctx context.Context, target string) (*dom.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	controlURL := strings.TrimSpace(l.cfg.BrowserURL)
	if controlURL == "" {
		lnch := launcher.New().
			Context(ctx).
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		defer lnch.Cleanup()
		defer lnch.Kill()
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if l.cfg.BrowserURL == "" {
		defer browser.Close()
	}

	p, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	defer p.Close()

	if err := p.Navigate(target); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", target, err)
	}
	if err := p.WaitLoad(); err != nil {
		l.logger.Warn("browser: wait load failed", zap.String("url", target), zap.Error(err))
	}

	res, err := p.Eval(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	html := res.Value.Str()

	finalURL := target
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	doc, err := dom.ParseString(html, finalURL)
	if err != nil {
		return nil, fmt.Errorf("browser: parse %s: %w", target, err)
	}

	l.logger.Debug("page loaded",
		zap.String("loader", ModeBrowser),
		zap.String("url", finalURL),
		zap.Int("bytes", len(html)),
	)
	return doc, nil
}
