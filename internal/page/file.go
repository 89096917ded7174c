package page

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/dom"
)

// FileLoader reads pages saved from a browser.
type FileLoader struct {
	logger *zap.Logger
}

func NewFileLoader(log *zap.Logger) *FileLoader {
	return &FileLoader{logger: log}
}

// Load reads target, a path or file:// URL. The document URL is the
// canonical address declared by the page when there is one.
func (l *FileLoader) Load(ctx context.Context, target string) (*dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimSpace(target)
	if u, err := url.Parse(path); err == nil && u.Scheme == "file" {
		path = u.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page %q: %w", path, err)
	}

	doc, err := FromHTML(data, "", fileURL(path))
	if err != nil {
		return nil, fmt.Errorf("parse page %q: %w", path, err)
	}
	if canonical := canonicalURL(doc); canonical != "" {
		doc.URL = canonical
	}

	l.logger.Debug("page loaded",
		zap.String("loader", ModeFile),
		zap.String("path", path),
		zap.String("url", doc.URL),
		zap.Int("bytes", len(data)),
	)
	return doc, nil
}
