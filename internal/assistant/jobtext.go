package assistant

import (
	"html"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlTag = regexp.MustCompile(`(?i)<(p|div|ul|ol|li|br|h[1-6]|strong|b|em|i|span|table|section|article)\b[^>]*>`)

	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	stripTags = bluemonday.StrictPolicy()
)

// JobText turns a job description into plain text or markdown. HTML input,
// as copied from a job board, is converted to markdown; anything else is
// returned trimmed.
func JobText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !htmlTag.MatchString(raw) {
		return raw
	}

	md, err := mdConverter.ConvertString(raw)
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(html.UnescapeString(stripTags.Sanitize(raw)))
	}
	return strings.TrimSpace(md)
}
