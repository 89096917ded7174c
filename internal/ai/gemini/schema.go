package gemini

import (
	"google.golang.org/genai"

	"github.com/spigell/talent-scout/internal/ai"
)

func stringSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString}
}

func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: stringSchema()}
}

func objectList(fields ...string) *genai.Schema {
	props := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		props[f] = stringSchema()
	}
	return &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeObject, Properties: props, PropertyOrdering: fields},
	}
}

var candidateSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"fullName":    stringSchema(),
		"currentRole": stringSchema(),
		"location":    stringSchema(),
		"profileUrl":  stringSchema(),
		"source": {
			Type:   genai.TypeString,
			Format: "enum",
			Enum:   []string{ai.SourceLinkedIn, ai.SourceIndeed, ai.SourceOther},
		},
		"summary":        stringSchema(),
		"email":          stringSchema(),
		"phone":          stringSchema(),
		"skills":         stringList(),
		"experience":     objectList("company", "role", "duration"),
		"certifications": stringList(),
		"education":      objectList("institution", "degree", "year"),
		"status": {
			Type:   genai.TypeString,
			Format: "enum",
			Enum:   []string{ai.StatusNew},
		},
	},
	Required: []string{"fullName", "source", "skills", "experience", "status"},
	PropertyOrdering: []string{
		"fullName", "currentRole", "location", "profileUrl", "source", "summary", "email", "phone",
		"skills", "experience", "certifications", "education", "status",
	},
}

var fitSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score": {
			Type:    genai.TypeInteger,
			Minimum: genai.Ptr[float64](0),
			Maximum: genai.Ptr[float64](100),
		},
		"verdict":        stringSchema(),
		"matchingSkills": stringList(),
		"gaps":           stringList(),
		"strengths":      stringList(),
	},
	Required:         []string{"score", "verdict", "matchingSkills", "gaps", "strengths"},
	PropertyOrdering: []string{"score", "verdict", "matchingSkills", "gaps", "strengths"},
}

// schemaFor returns the response schema for structured formats and nil for
// free text.
func schemaFor(format ai.Format) *genai.Schema {
	switch format {
	case ai.FormatCandidate:
		return candidateSchema
	case ai.FormatFit:
		return fitSchema
	default:
		return nil
	}
}
