package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/models"
)

// Client is a lightweight OpenAI-compatible vision API client for product
// description generation. It uses net/http directly — no third-party SDK
// needed.
type Client struct {
	cfg        config.VisionConfig
	httpClient *http.Client
}

// NewClient creates a vision client. Pass nil to use a default http.Client.
func NewClient(cfg config.VisionConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// chatRequest is the multimodal chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart is one element of a multimodal message: text or an image.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the vision provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Analyze sends a screenshot plus contextual hints to the vision API and
// parses the response. imageData is either a data URI or raw base64 PNG;
// apiKey is the caller's own key (BYOK).
func (c *Client) Analyze(ctx context.Context, imageData string, vctx models.AnalysisContext, apiKey string) (*models.AnalysisResult, error) {
	if apiKey == "" {
		return nil, models.NewScrapeError(models.ErrCodeCredentialMissing, "vision API key is not configured", nil)
	}
	if imageData == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "image data is required", nil)
	}

	if !strings.HasPrefix(imageData, "data:") {
		imageData = "data:image/png;base64," + imageData
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: buildPrompt(vctx)},
					{Type: "image_url", ImageURL: &imageURL{URL: imageData, Detail: c.cfg.Detail}},
				},
			},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "vision request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "failed to read vision response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyVisionError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "failed to parse vision response", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "vision API returned no content", nil)
	}

	result := parseResponse(chatResp.Choices[0].Message.Content)
	return &result, nil
}

// classifyVisionError maps HTTP status codes to appropriate error codes.
func classifyVisionError(statusCode int, body []byte) *models.ScrapeError {
	var errResp chatErrorResponse
	msg := "vision API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeVisionAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeVisionRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeVisionFailure, fmt.Sprintf("vision API returned %d: %s", statusCode, msg), nil)
	}
}
