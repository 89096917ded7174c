package ai

import (
	"context"
)

// Format tells the generator which response shape the caller expects.
type Format int

const (
	// FormatText is free text.
	FormatText Format = iota
	// FormatCandidate is a JSON candidate record.
	FormatCandidate
	// FormatFit is a JSON fit result.
	FormatFit
)

func (f Format) String() string {
	switch f {
	case FormatCandidate:
		return "candidate"
	case FormatFit:
		return "fit"
	default:
		return "text"
	}
}

// Prompt is one request to the model.
type Prompt struct {
	System string
	User   string
	Format Format
}

// Generator sends a prompt to a hosted model and returns its raw text output.
// Implementations report provider failures as *Error so retry policy never
// has to look at provider wording.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Model() string
}
