package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	minScore = 0
	maxScore = 100
)

// ParseCandidate turns raw model output into a fully populated candidate.
// pageURL is used when the model leaves out or garbles the profile address
// or the source.
func ParseCandidate(raw, pageURL string) (*Candidate, error) {
	data, err := parseObject(raw)
	if err != nil {
		return nil, err
	}

	c := &Candidate{
		FullName:       coerceString(data["fullName"]),
		CurrentRole:    coerceString(data["currentRole"]),
		Location:       coerceString(data["location"]),
		ProfileURL:     coerceString(data["profileUrl"]),
		Summary:        coerceString(data["summary"]),
		Email:          coerceString(data["email"]),
		Phone:          coerceString(data["phone"]),
		Skills:         coerceStrings(data["skills"]),
		Certifications: coerceStrings(data["certifications"]),
		Experience:     decodeEntries[Experience](data["experience"]),
		Education:      decodeEntries[Education](data["education"]),
		Status:         StatusNew,
	}

	if c.ProfileURL == "" {
		c.ProfileURL = strings.TrimSpace(pageURL)
	}
	c.Source = normalizeSource(coerceString(data["source"]), pageURL)

	return c, nil
}

// ParseFit turns raw model output into a fit result with a score in [0,100].
func ParseFit(raw string) (*FitResult, error) {
	data, err := parseObject(raw)
	if err != nil {
		return nil, err
	}

	return &FitResult{
		Score:          clampScore(coerceFloat(data["score"])),
		Verdict:        coerceString(data["verdict"]),
		MatchingSkills: coerceStrings(data["matchingSkills"]),
		Gaps:           coerceStrings(data["gaps"]),
		Strengths:      coerceStrings(data["strengths"]),
	}, nil
}

// Normalize fills every missing field of c with its default. It is used for
// records that come from users rather than from the model.
func (c *Candidate) Normalize(pageURL string) {
	if c.Skills == nil {
		c.Skills = []string{}
	}
	if c.Certifications == nil {
		c.Certifications = []string{}
	}
	if c.Experience == nil {
		c.Experience = []Experience{}
	}
	if c.Education == nil {
		c.Education = []Education{}
	}
	if strings.TrimSpace(c.ProfileURL) == "" {
		c.ProfileURL = strings.TrimSpace(pageURL)
	}
	c.Source = normalizeSource(c.Source, c.ProfileURL)
	c.Status = StatusNew
}

func parseObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, NewError(KindMalformed, "", errors.New("empty response"))
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		// Models sometimes wrap the object in prose.
		start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, NewError(KindMalformed, "", fmt.Errorf("parse response: %w", err))
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &decoded); err != nil {
			return nil, NewError(KindMalformed, "", fmt.Errorf("parse response: %w", err))
		}
	}

	switch val := decoded.(type) {
	case map[string]any:
		return val, nil
	case []any:
		if len(val) > 0 {
			if obj, ok := val[0].(map[string]any); ok {
				return obj, nil
			}
		}
	}

	return nil, NewError(KindMalformed, "", fmt.Errorf("response is %T, not an object", decoded))
}

// extractJSON strips markdown code fences around a JSON payload.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func normalizeSource(value, pageURL string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case SourceLinkedIn, SourceIndeed, SourceOther:
		return v
	}
	return SourceFromURL(pageURL)
}

// SourceFromURL infers the profile source from a page address.
func SourceFromURL(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return SourceOther
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com"):
		return SourceLinkedIn
	case host == "indeed.com" || strings.HasSuffix(host, ".indeed.com"):
		return SourceIndeed
	default:
		return SourceOther
	}
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return minScore
	}
	rounded := math.Round(score)
	switch {
	case rounded < minScore:
		return minScore
	case rounded > maxScore:
		return maxScore
	default:
		return int(rounded)
	}
}

// decodeEntries decodes a list of objects into T. Values are flattened to
// strings first, keys match case-insensitively and empty entries are dropped.
func decodeEntries[T any](v any) []T {
	items, _ := v.([]any)
	out := make([]T, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		flat := make(map[string]any, len(obj))
		nonEmpty := false
		for key, value := range obj {
			s := coerceString(value)
			flat[key] = s
			nonEmpty = nonEmpty || s != ""
		}
		if !nonEmpty {
			continue
		}

		var entry T
		if err := mapstructure.Decode(flat, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func coerceStrings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "%"))
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		// Objects and arrays where a plain value was expected.
		return ""
	}
}
