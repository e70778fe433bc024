package models

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	// Success indicates whether the extraction pass completed without errors.
	Success bool `json:"success"`

	// Session holds the images and metadata produced by this pass.
	Session *Session `json:"session,omitempty"`

	// ImagesFound reports whether the wait-for-images window resolved with
	// at least one matching image (false means the pass ran against a page
	// that never produced one before the timeout).
	ImagesFound bool `json:"images_found"`

	// StatusCode is the HTTP status code from the fetched page.
	StatusCode int `json:"status_code,omitempty"`

	// EngineUsed indicates which fetch engine produced the page
	// ("http" or "browser").
	EngineUsed string `json:"engine_used,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent acquiring the page (including any
	// wait-for-images polling).
	FetchMs int64 `json:"fetch_ms"`

	// ExtractMs is the time spent in the collector and metadata extractor.
	ExtractMs int64 `json:"extract_ms"`
}

// DownloadResponse is the response for POST /api/v1/download.
type DownloadResponse struct {
	Success bool           `json:"success"`
	Batch   *DownloadBatch `json:"batch,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// AnalyzeResponse is the response for POST /api/v1/analyze.
type AnalyzeResponse struct {
	Success bool `json:"success"`

	Analysis *AnalysisResult `json:"analysis,omitempty"`

	// Screenshot is the captured page image (PNG data URI) when the request
	// asked the service to capture one, so the caller can display it.
	Screenshot string `json:"screenshot,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// WatchResponse is the response for watch lifecycle operations.
type WatchResponse struct {
	Success bool         `json:"success"`
	WatchID string       `json:"watch_id,omitempty"`
	Status  string       `json:"status,omitempty"` // "observing", "stopped"
	Session *Session     `json:"session,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// CredentialResponse is the response for credential operations. The key is
// never echoed back in full; KeyHint carries the first characters only.
type CredentialResponse struct {
	Success bool         `json:"success"`
	HasKey  bool         `json:"has_key"`
	KeyHint string       `json:"key_hint,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// PingResponse is the response for GET /api/v1/ping.
type PingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status        string    `json:"status"` // "healthy" or "degraded"
	Uptime        string    `json:"uptime"`
	PoolStats     PoolStats `json:"pool_stats"`
	ActiveWatches int       `json:"active_watches"`
	Version       string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
