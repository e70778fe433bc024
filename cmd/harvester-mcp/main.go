package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// extractRequest mirrors the Harvester API request model.
type extractRequest struct {
	URL       string `json:"url"`
	ProductID string `json:"product_id,omitempty"`
	FetchMode string `json:"fetch_mode,omitempty"`
	Stealth   bool   `json:"stealth,omitempty"`
}

// extractResponse mirrors the Harvester API response model.
type extractResponse struct {
	Success     bool            `json:"success"`
	Session     json.RawMessage `json:"session"`
	ImagesFound bool            `json:"images_found"`
	EngineUsed  string          `json:"engine_used"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// downloadRequest mirrors the Harvester download API request model.
type downloadRequest struct {
	Selected json.RawMessage `json:"selected"`
	Metadata json.RawMessage `json:"metadata"`
}

// downloadResponse mirrors the Harvester download API response model.
type downloadResponse struct {
	Success bool            `json:"success"`
	Batch   json.RawMessage `json:"batch"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// analyzeRequest mirrors the Harvester analyze API request model.
type analyzeRequest struct {
	ImageData string `json:"image_data,omitempty"`
	URL       string `json:"url,omitempty"`
	Context   struct {
		ProductName         string `json:"product_name,omitempty"`
		ExistingDescription string `json:"existing_description,omitempty"`
		ProductType         string `json:"product_type,omitempty"`
	} `json:"context"`
}

// analyzeResponse mirrors the Harvester analyze API response model.
type analyzeResponse struct {
	Success  bool            `json:"success"`
	Analysis json.RawMessage `json:"analysis"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("HARVESTER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("HARVESTER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "HARVESTER_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"harvester",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractProductTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Harvest a product page: collect every product image (galleries, lightboxes, lazy-loaded, CSS backgrounds) and the structured metadata record (name, vendor, prices, shipping, tags). Uses a headless browser for JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the product page to harvest"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("Fetching strategy: 'auto' (default, HTTP first with browser fallback), 'http' (pure HTTP), or 'browser' (headless Chrome)"),
			mcp.Enum("auto", "http", "browser"),
		),
		mcp.WithBoolean("stealth",
			mcp.Description("Enable anti-bot-detection evasions on the browser engine"),
		),
	)
	s.AddTool(extractProductTool, handleExtractProduct(apiURL, apiKey))

	downloadImagesTool := mcp.NewTool("download_images",
		mcp.WithDescription("Download a selection of images from a prior extract_product session to disk, writing a metadata JSON sidecar alongside them. Pass the image records and metadata record from the session unchanged."),
		mcp.WithString("selected",
			mcp.Required(),
			mcp.Description("JSON array of image records (from the session's images field) to download"),
		),
		mcp.WithString("metadata",
			mcp.Required(),
			mcp.Description("JSON object with the session's metadata record"),
		),
	)
	s.AddTool(downloadImagesTool, handleDownloadImages(apiURL, apiKey))

	analyzeScreenshotTool := mcp.NewTool("analyze_screenshot",
		mcp.WithDescription("Generate an AI product description from a page screenshot. Pass a URL to have the service capture the screenshot, or pass base64 image data directly. Requires a vision API key configured on the Harvester server."),
		mcp.WithString("url",
			mcp.Description("Page URL to screenshot and analyze (mutually exclusive with image_data)"),
		),
		mcp.WithString("image_data",
			mcp.Description("Base64-encoded image or data URI to analyze (mutually exclusive with url)"),
		),
		mcp.WithString("product_name",
			mcp.Description("Known product name, appended to the analysis prompt as a hint"),
		),
		mcp.WithString("product_type",
			mcp.Description("Known product category, appended to the analysis prompt as a hint"),
		),
	)
	s.AddTool(analyzeScreenshotTool, handleAnalyzeScreenshot(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleExtractProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		targetURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url parameter is required"), nil
		}
		if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
			return mcp.NewToolResultError("url must start with http:// or https://"), nil
		}

		payload := extractRequest{
			URL:       targetURL,
			FetchMode: request.GetString("fetch_mode", ""),
			Stealth:   request.GetBool("stealth", false),
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/extract", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp extractResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid API response: %v", err)), nil
		}
		if !resp.Success {
			if resp.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %s", resp.Error.Code, resp.Error.Message)), nil
			}
			return mcp.NewToolResultError("extraction failed"), nil
		}

		return mcp.NewToolResultText(string(resp.Session)), nil
	}
}

func handleDownloadImages(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		selected, err := request.RequireString("selected")
		if err != nil {
			return mcp.NewToolResultError("selected parameter is required"), nil
		}
		metadata, err := request.RequireString("metadata")
		if err != nil {
			return mcp.NewToolResultError("metadata parameter is required"), nil
		}

		payload := downloadRequest{
			Selected: json.RawMessage(selected),
			Metadata: json.RawMessage(metadata),
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/download", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp downloadResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid API response: %v", err)), nil
		}
		if !resp.Success {
			if resp.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %s", resp.Error.Code, resp.Error.Message)), nil
			}
			return mcp.NewToolResultError("download failed"), nil
		}

		return mcp.NewToolResultText(string(resp.Batch)), nil
	}
}

func handleAnalyzeScreenshot(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var payload analyzeRequest
		payload.URL = request.GetString("url", "")
		payload.ImageData = request.GetString("image_data", "")
		if (payload.URL == "") == (payload.ImageData == "") {
			return mcp.NewToolResultError("exactly one of url or image_data is required"), nil
		}
		payload.Context.ProductName = request.GetString("product_name", "")
		payload.Context.ProductType = request.GetString("product_type", "")

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/analyze", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp analyzeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid API response: %v", err)), nil
		}
		if !resp.Success {
			if resp.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %s", resp.Error.Code, resp.Error.Message)), nil
			}
			return mcp.NewToolResultError("analysis failed"), nil
		}

		return mcp.NewToolResultText(string(resp.Analysis)), nil
	}
}

// apiPost sends a POST request to the Harvester API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
