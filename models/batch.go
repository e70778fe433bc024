package models

import "sync"

// BatchRequest is the payload for POST /api/v1/batch/extract.
type BatchRequest struct {
	// URLs is the list of product pages to harvest. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=100"`

	// Options contains shared extraction options applied to all URLs.
	Options BatchOptions `json:"options"`

	// WebhookURL, when set, receives a signed batch.completed event once
	// every URL has been processed.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// BatchOptions are the shared settings applied to every URL in a batch.
type BatchOptions struct {
	WaitForImages *bool  `json:"wait_for_images,omitempty"`
	Timeout       int    `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
	Stealth       bool   `json:"stealth,omitempty"`
	FetchMode     string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/extract.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Completed int                `json:"completed"`
	Total     int                `json:"total"`
	Results   []*ExtractResponse `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch extraction. Workers record results
// through SetResult while status polls read through Snapshot; the mutex
// keeps the two sides consistent.
type BatchJob struct {
	mu sync.Mutex

	ID         string
	Status     string // "processing", "completed", "partial", "failed"
	Total      int
	Completed  int
	Results    []*ExtractResponse
	WebhookURL string
	CreatedAt  int64 // unix timestamp
}

// SetResult records the outcome for one URL and bumps the processed count.
func (j *BatchJob) SetResult(idx int, resp *ExtractResponse) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Results[idx] = resp
	j.Completed++
}

// Finish sets the terminal status once every URL has been processed.
func (j *BatchJob) Finish(status string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
}

// Snapshot returns a consistent view of the job for serialization.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()

	results := make([]*ExtractResponse, len(j.Results))
	copy(results, j.Results)
	return BatchStatusResponse{
		ID:        j.ID,
		Status:    j.Status,
		Completed: j.Completed,
		Total:     j.Total,
		Results:   results,
	}
}
