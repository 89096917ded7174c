package ai

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCandidateDefaults(t *testing.T) {
	t.Parallel()

	got, err := ParseCandidate(`{"fullName": "Jane Doe"}`, "https://www.linkedin.com/in/jane")
	if err != nil {
		t.Fatalf("ParseCandidate returned error: %v", err)
	}

	want := &Candidate{
		FullName:       "Jane Doe",
		ProfileURL:     "https://www.linkedin.com/in/jane",
		Source:         SourceLinkedIn,
		Skills:         []string{},
		Experience:     []Experience{},
		Certifications: []string{},
		Education:      []Education{},
		Status:         StatusNew,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCandidateCoercesFields(t *testing.T) {
	t.Parallel()

	raw := "```json\n" + `{
  "fullName": "  Jane Doe ",
  "currentRole": "Platform Engineer",
  "location": null,
  "profileUrl": "https://example.com/jane",
  "source": "LinkedIn",
  "skills": "Go, Kubernetes, , Terraform",
  "certifications": ["CKA", 42, {"nested": true}],
  "experience": [
    {"Company": "Example Corp", "role": "SRE", "duration": "2019 - now"},
    {},
    "not an object"
  ],
  "education": [{"institution": "MIT", "degree": "BSc", "year": 2015}],
  "status": "contacted"
}` + "\n```"

	got, err := ParseCandidate(raw, "https://www.indeed.com/r/jane")
	if err != nil {
		t.Fatalf("ParseCandidate returned error: %v", err)
	}

	want := &Candidate{
		FullName:       "Jane Doe",
		CurrentRole:    "Platform Engineer",
		ProfileURL:     "https://example.com/jane",
		Source:         SourceLinkedIn,
		Skills:         []string{"Go", "Kubernetes", "Terraform"},
		Certifications: []string{"CKA", "42"},
		Experience:     []Experience{{Company: "Example Corp", Role: "SRE", Duration: "2019 - now"}},
		Education:      []Education{{Institution: "MIT", Degree: "BSc", Year: "2015"}},
		Status:         StatusNew,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCandidateSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		pageURL string
		want    string
	}{
		{name: "valid value kept", source: "indeed", pageURL: "https://linkedin.com/in/x", want: SourceIndeed},
		{name: "missing inferred linkedin", pageURL: "https://de.linkedin.com/in/x", want: SourceLinkedIn},
		{name: "invalid inferred indeed", source: "monster", pageURL: "https://www.indeed.com/r/x", want: SourceIndeed},
		{name: "unknown host", source: "", pageURL: "https://example.org/cv", want: SourceOther},
		{name: "lookalike host", pageURL: "https://notlinkedin.com/in/x", want: SourceOther},
		{name: "no page url", want: SourceOther},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := `{"fullName": "X", "source": "` + tt.source + `"}`
			got, err := ParseCandidate(raw, tt.pageURL)
			if err != nil {
				t.Fatalf("ParseCandidate returned error: %v", err)
			}
			if got.Source != tt.want {
				t.Fatalf("expected source %q, got %q", tt.want, got.Source)
			}
		})
	}
}

func TestParseFitClampsScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "in range", raw: `{"score": 72}`, want: 72},
		{name: "above range", raw: `{"score": 150}`, want: 100},
		{name: "below range", raw: `{"score": -10}`, want: 0},
		{name: "rounded", raw: `{"score": 64.6}`, want: 65},
		{name: "percent string", raw: `{"score": "88%"}`, want: 88},
		{name: "garbage", raw: `{"score": "high"}`, want: 0},
		{name: "missing", raw: `{}`, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFit(tt.raw)
			if err != nil {
				t.Fatalf("ParseFit returned error: %v", err)
			}
			if got.Score != tt.want {
				t.Fatalf("expected score %d, got %d", tt.want, got.Score)
			}
		})
	}
}

func TestParseFitDefaults(t *testing.T) {
	t.Parallel()

	got, err := ParseFit("Here is the result:\n{\"score\": 80, \"verdict\": \"Strong fit\", \"gaps\": [\"Rust\"]}\nThanks!")
	if err != nil {
		t.Fatalf("ParseFit returned error: %v", err)
	}

	want := &FitResult{
		Score:          80,
		Verdict:        "Strong fit",
		MatchingSkills: []string{},
		Gaps:           []string{"Rust"},
		Strengths:      []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fit mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "```json\n```", "not json at all", `"just a string"`, `[1, 2]`, `{"broken": `} {
		_, err := ParseFit(raw)
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}
		if KindOf(err) != KindMalformed {
			t.Fatalf("expected malformed kind for %q, got %v", raw, KindOf(err))
		}

		_, err = ParseCandidate(raw, "")
		var aiErr *Error
		if !errors.As(err, &aiErr) || aiErr.Kind != KindMalformed {
			t.Fatalf("expected malformed *Error for %q, got %v", raw, err)
		}
	}
}

func TestParseArrayWrappedObject(t *testing.T) {
	t.Parallel()

	got, err := ParseFit(`[{"score": 55}]`)
	if err != nil {
		t.Fatalf("ParseFit returned error: %v", err)
	}
	if got.Score != 55 {
		t.Fatalf("expected score 55, got %d", got.Score)
	}
}

func TestCandidateNormalize(t *testing.T) {
	t.Parallel()

	c := &Candidate{FullName: "Jane", Source: "bogus", Status: "contacted"}
	c.Normalize("https://uk.indeed.com/r/jane")

	want := &Candidate{
		FullName:       "Jane",
		ProfileURL:     "https://uk.indeed.com/r/jane",
		Source:         SourceIndeed,
		Skills:         []string{},
		Experience:     []Experience{},
		Certifications: []string{},
		Education:      []Education{},
		Status:         StatusNew,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
	if got := UserMessage(NewError(KindQuotaExhausted, "gemini", ErrQuotaExhausted)); got != QuotaRemediation {
		t.Fatalf("expected quota remediation, got %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "The AI request failed: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}
