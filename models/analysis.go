package models

import "time"

// AnalysisResult is the parsed outcome of a vision description request.
//
// Parsing is two-tier: when the response contains a brace-delimited JSON
// block it is unmarshalled directly into this struct and Confidence is
// whatever the model reported. When the block is malformed the result
// degrades to the raw text as Description with Confidence 0.5 and ParseError
// set; when no block exists at all, the same degraded shape with Confidence
// 0.7 and no ParseError.
type AnalysisResult struct {
	Success           bool      `json:"success"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	KeyFeatures       []string  `json:"key_features"`
	Materials         []string  `json:"materials"`
	Colors            []string  `json:"colors"`
	EstimatedSize     string    `json:"estimated_size"`
	UseCase           string    `json:"use_case"`
	QualityAssessment string    `json:"quality_assessment"`
	Confidence        float64   `json:"confidence"`
	GeneratedAt       time.Time `json:"generated_at"`
	RawResponse       string    `json:"raw_response,omitempty"`
	ParseError        string    `json:"parse_error,omitempty"`
}

// AnalysisContext carries page-derived hints appended to the vision prompt.
type AnalysisContext struct {
	ProductName         string `json:"product_name,omitempty"`
	ExistingDescription string `json:"existing_description,omitempty"`
	ProductType         string `json:"product_type,omitempty"`
}
