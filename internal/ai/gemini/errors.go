package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/talent-scout/internal/ai"
)

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// classify maps a genai failure to an *ai.Error. Context errors are returned
// unchanged so callers can tell cancellation apart from provider failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return ai.NewError(ai.KindOther, Provider, err)
	}

	if apiErr.Code != http.StatusTooManyRequests && !strings.EqualFold(apiErr.Status, statusResourceExhausted) {
		return ai.NewError(ai.KindOther, Provider, err)
	}

	if dailyQuotaExhausted(apiErr) {
		return ai.NewError(ai.KindQuotaExhausted, Provider, err)
	}
	return ai.NewError(ai.KindRateLimited, Provider, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// dailyQuotaExhausted reports whether the 429 names a per-day quota whose
// limit is zero.
func dailyQuotaExhausted(apiErr genai.APIError) bool {
	text := strings.ToLower(apiErr.Message + " " + fmt.Sprint(apiErr.Details))
	perDay := strings.Contains(text, "perday") || strings.Contains(text, "per day") || strings.Contains(text, "per_day")
	return perDay && strings.Contains(text, "limit: 0")
}
