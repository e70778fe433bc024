package models

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the product page to harvest. Required.
	URL string `json:"url" binding:"required,url"`

	// ProductID overrides the product identifier derived from the URL path.
	ProductID string `json:"product_id,omitempty"`

	// WaitForImages polls the page on a backoff schedule until at least one
	// product image is present (or the wait window elapses) before the
	// extraction pass runs. Default: true.
	WaitForImages *bool `json:"wait_for_images,omitempty"`

	// Timeout is the maximum duration in seconds for the entire operation
	// (fetch + wait + extraction). Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Stealth enables anti-bot-detection evasions on the browser engine.
	// Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// FetchMode controls the fetching strategy.
	// "auto" (default): try HTTP first, fall back to browser if JS is needed.
	// "http": force pure HTTP. "browser": force headless Chrome.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`

	// MaxAge enables the extraction cache: a cached session younger than
	// MaxAge milliseconds is returned instead of re-fetching. 0 disables.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.WaitForImages == nil {
		t := true
		r.WaitForImages = &t
	}
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
}

// DownloadRequest is the payload for POST /api/v1/download. The caller sends
// the subset of the session's images it selected, plus the metadata record.
type DownloadRequest struct {
	Selected []ImageRecord  `json:"selected" binding:"required"`
	Metadata MetadataRecord `json:"metadata"`
}

// AnalyzeRequest is the payload for POST /api/v1/analyze. Exactly one of
// ImageData (base64 or data URI) or URL (page to screenshot) must be set.
type AnalyzeRequest struct {
	ImageData string          `json:"image_data,omitempty"`
	URL       string          `json:"url,omitempty" binding:"omitempty,url"`
	Context   AnalysisContext `json:"context"`
}

// WatchRequest is the payload for POST /api/v1/watch.
type WatchRequest struct {
	// URL is the product page to observe for new image-bearing content.
	URL string `json:"url" binding:"required,url"`

	// WebhookURL, when set, receives a signed watch.updated event each time
	// a debounced re-extraction produces a new session.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// CredentialRequest is the payload for PUT /api/v1/credential.
type CredentialRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}
