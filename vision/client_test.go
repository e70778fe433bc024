package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/models"
)

func testVisionConfig(baseURL string) config.VisionConfig {
	return config.VisionConfig{
		BaseURL:     baseURL,
		Model:       "gpt-4o-mini",
		MaxTokens:   500,
		Detail:      "high",
		Temperature: 0.3,
	}
}

func chatReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(reply)
	return string(b)
}

func TestAnalyzeStructuredResponse(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(chatReply(`Here you go:
{"title":"Oak Chair","description":"A sturdy chair.","keyFeatures":["solid oak"],"materials":["oak"],"colors":["brown"],"estimatedSize":"90cm tall","useCase":"dining","qualityAssessment":"excellent","confidence":0.92}`)))
	}))
	defer srv.Close()

	c := NewClient(testVisionConfig(srv.URL), srv.Client())
	result, err := c.Analyze(context.Background(), "base64payload", models.AnalysisContext{ProductName: "Oak Chair"}, "sk-test")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Oak Chair", result.Title)
	assert.Equal(t, []string{"solid oak"}, result.KeyFeatures)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Empty(t, result.ParseError)

	// Raw base64 payloads get wrapped into a data URI before sending.
	messages := gotBody["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	image := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,base64payload", image["url"])
	assert.Equal(t, "high", image["detail"])
}

func TestAnalyzeFreeformResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("This looks like a wooden chair with a tall back.")))
	}))
	defer srv.Close()

	c := NewClient(testVisionConfig(srv.URL), srv.Client())
	result, err := c.Analyze(context.Background(), "data:image/png;base64,xx", models.AnalysisContext{}, "sk-test")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, fallbackTitle, result.Title)
	assert.Equal(t, "This looks like a wooden chair with a tall back.", result.Description)
	assert.Equal(t, 0.7, result.Confidence)
	assert.Empty(t, result.ParseError)
}

func TestAnalyzeMalformedJSONBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"title": "Oak Chair", "confidence": not-a-number}`)))
	}))
	defer srv.Close()

	c := NewClient(testVisionConfig(srv.URL), srv.Client())
	result, err := c.Analyze(context.Background(), "data:image/png;base64,xx", models.AnalysisContext{}, "sk-test")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0.5, result.Confidence)
	assert.NotEmpty(t, result.ParseError)
	assert.Contains(t, result.RawResponse, "Oak Chair")
}

func TestAnalyzeErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrCodeVisionAuthFailure},
		{"forbidden", http.StatusForbidden, models.ErrCodeVisionAuthFailure},
		{"rate limited", http.StatusTooManyRequests, models.ErrCodeVisionRateLimited},
		{"server error", http.StatusInternalServerError, models.ErrCodeVisionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			c := NewClient(testVisionConfig(srv.URL), srv.Client())
			_, err := c.Analyze(context.Background(), "data:image/png;base64,xx", models.AnalysisContext{}, "sk-test")
			require.Error(t, err)

			var se *models.ScrapeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Contains(t, se.Message, "nope")
		})
	}
}

func TestAnalyzeRequiresKeyAndImage(t *testing.T) {
	c := NewClient(testVisionConfig("http://unused"), nil)

	_, err := c.Analyze(context.Background(), "img", models.AnalysisContext{}, "")
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeCredentialMissing, se.Code)

	_, err = c.Analyze(context.Background(), "", models.AnalysisContext{}, "sk-test")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
}

func TestBuildPromptHints(t *testing.T) {
	prompt := buildPrompt(models.AnalysisContext{
		ProductName:         "Oak Chair",
		ExistingDescription: "A chair.",
		ProductType:         "furniture",
	})

	assert.Contains(t, prompt, `Existing product name: "Oak Chair"`)
	assert.Contains(t, prompt, "enhance and expand")
	assert.Contains(t, prompt, "Product category: furniture")
	assert.Contains(t, prompt, `"keyFeatures"`)

	bare := buildPrompt(models.AnalysisContext{})
	assert.NotContains(t, bare, "Existing product name")
}
