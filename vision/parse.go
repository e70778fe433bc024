package vision

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/use-agent/harvester/models"
)

// jsonBlockPattern greedily grabs everything between the first "{" and the
// last "}" so markdown fences or prose around the block don't matter.
var jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)

// structuredPayload mirrors the camelCase JSON shape the prompt asks the
// model for. It exists only to decouple the wire keys from AnalysisResult's
// snake_case API encoding.
type structuredPayload struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	KeyFeatures       []string `json:"keyFeatures"`
	Materials         []string `json:"materials"`
	Colors            []string `json:"colors"`
	EstimatedSize     string   `json:"estimatedSize"`
	UseCase           string   `json:"useCase"`
	QualityAssessment string   `json:"qualityAssessment"`
	Confidence        float64  `json:"confidence"`
}

const fallbackTitle = "AI-Generated Product Analysis"

// parseResponse applies the two-tier parse to the model's reply.
//
// No JSON block at all is still a usable freeform answer: the text becomes
// the description at confidence 0.7. A block that fails to parse degrades
// the same way at confidence 0.5 with ParseError recorded. A clean parse
// passes the model's own fields and confidence through.
func parseResponse(content string) models.AnalysisResult {
	now := time.Now().UTC()

	block := jsonBlockPattern.FindString(content)
	if block == "" {
		return freeformResult(content, 0.7, "", now)
	}

	var payload structuredPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return freeformResult(content, 0.5, err.Error(), now)
	}

	return models.AnalysisResult{
		Success:           true,
		Title:             payload.Title,
		Description:       payload.Description,
		KeyFeatures:       orEmpty(payload.KeyFeatures),
		Materials:         orEmpty(payload.Materials),
		Colors:            orEmpty(payload.Colors),
		EstimatedSize:     payload.EstimatedSize,
		UseCase:           payload.UseCase,
		QualityAssessment: payload.QualityAssessment,
		Confidence:        payload.Confidence,
		GeneratedAt:       now,
		RawResponse:       content,
	}
}

func freeformResult(content string, confidence float64, parseError string, now time.Time) models.AnalysisResult {
	return models.AnalysisResult{
		Success:     true,
		Title:       fallbackTitle,
		Description: content,
		KeyFeatures: []string{},
		Materials:   []string{},
		Colors:      []string{},
		Confidence:  confidence,
		GeneratedAt: now,
		RawResponse: content,
		ParseError:  parseError,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
