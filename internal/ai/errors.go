package ai

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed model call.
type Kind int

const (
	// KindOther covers everything that is not classified below.
	KindOther Kind = iota
	// KindRateLimited is a transient rate limit worth waiting out.
	KindRateLimited
	// KindQuotaExhausted means the daily allowance is gone.
	KindQuotaExhausted
	// KindMalformed means the call succeeded but the output was unusable.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindMalformed:
		return "malformed_response"
	default:
		return "other"
	}
}

// Error is a classified failure reported by a Generator or the normaliser.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Provider != "" {
		prefix = e.Provider + " " + prefix
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind.
func NewError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// Terminal errors returned by the retry engine and the assistant.
var (
	ErrQuotaExhausted    = errors.New("daily quota exhausted")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrOutreachTooShort  = errors.New("outreach message is too short")
	ErrNotConfigured     = errors.New("ai assistant is not configured")
	ErrNoContent         = errors.New("page map has no content")
	ErrMissingJob        = errors.New("job description is required")
)

// QuotaRemediation is shown to users when the daily quota is exhausted.
const QuotaRemediation = "The daily AI quota for this API key is used up. " +
	"Wait for the quota to reset (midnight Pacific time), switch to another key with `scout key set`, " +
	"or enable billing for the Google AI project."

// rejection is implemented by admission errors so this package can render
// them without importing the admission package.
type rejection interface {
	error
	UserMessage() string
}

// UserMessage renders err as text suitable for end users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var rej rejection
	switch {
	case errors.As(err, &rej):
		return rej.UserMessage()
	case errors.Is(err, ErrQuotaExhausted):
		return QuotaRemediation
	case errors.Is(err, ErrMalformedResponse):
		return "The AI returned a response that could not be read. Please try again."
	case errors.Is(err, ErrRetriesExhausted):
		return "The AI service kept rate limiting the request. Please try again in a few minutes."
	case errors.Is(err, ErrOutreachTooShort):
		return "The AI returned an empty outreach message. Please try again."
	case errors.Is(err, ErrNoContent):
		return "Nothing readable was found on the page. Open the profile and scan again."
	case errors.Is(err, ErrMissingJob):
		return "Provide a job description to score against."
	case errors.Is(err, ErrNotConfigured):
		return "The AI assistant is not configured. Set an API key with `scout key set`."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI service did not answer in time."
	default:
		return "The AI request failed: " + err.Error()
	}
}
