package ai

// Profile sources the extractor knows about.
const (
	SourceLinkedIn = "linkedin"
	SourceIndeed   = "indeed"
	SourceOther    = "other"

	// StatusNew is the only status an extracted candidate can have.
	StatusNew = "new"
)

// Candidate is the structured record built from a scraped profile page.
type Candidate struct {
	FullName       string       `json:"fullName" yaml:"fullName"`
	CurrentRole    string       `json:"currentRole" yaml:"currentRole"`
	Location       string       `json:"location" yaml:"location"`
	ProfileURL     string       `json:"profileUrl" yaml:"profileUrl"`
	Source         string       `json:"source" yaml:"source"`
	Summary        string       `json:"summary" yaml:"summary"`
	Email          string       `json:"email" yaml:"email"`
	Phone          string       `json:"phone" yaml:"phone"`
	Skills         []string     `json:"skills" yaml:"skills"`
	Experience     []Experience `json:"experience" yaml:"experience"`
	Certifications []string     `json:"certifications" yaml:"certifications"`
	Education      []Education  `json:"education" yaml:"education"`
	Status         string       `json:"status" yaml:"status"`
}

// Experience is one position held by a candidate.
type Experience struct {
	Company  string `json:"company" yaml:"company" mapstructure:"company"`
	Role     string `json:"role" yaml:"role" mapstructure:"role"`
	Duration string `json:"duration" yaml:"duration" mapstructure:"duration"`
}

// Education is one degree or course of study.
type Education struct {
	Institution string `json:"institution" yaml:"institution" mapstructure:"institution"`
	Degree      string `json:"degree" yaml:"degree" mapstructure:"degree"`
	Year        string `json:"year" yaml:"year" mapstructure:"year"`
}

// FitResult is the model's assessment of a candidate against a job.
type FitResult struct {
	Score          int      `json:"score" yaml:"score"`
	Verdict        string   `json:"verdict" yaml:"verdict"`
	MatchingSkills []string `json:"matchingSkills" yaml:"matchingSkills"`
	Gaps           []string `json:"gaps" yaml:"gaps"`
	Strengths      []string `json:"strengths" yaml:"strengths"`
}
