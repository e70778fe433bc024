package models

import "time"

// DownloadResult is the terminal outcome for one requested image. It is
// created once per image and never mutated afterwards.
type DownloadResult struct {
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Success    bool   `json:"success"`
	DownloadID int64  `json:"download_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SidecarResult reports the outcome of writing the metadata sidecar file.
type SidecarResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DownloadSummary counts a batch's outcomes.
// Invariant: Successful + Failed == Total == number of requested images.
type DownloadSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// DownloadBatch is the joined result of one download operation.
type DownloadBatch struct {
	Results        []DownloadResult `json:"results"`
	MetadataResult SidecarResult    `json:"metadata_result"`
	Summary        DownloadSummary  `json:"summary"`
}

// Sidecar is the companion JSON file written next to a batch of downloaded
// images: the full metadata record plus partitioned per-image outcomes.
type Sidecar struct {
	MetadataRecord
	// DescriptionMarkdown is the description block rendered as markdown
	// when the extraction captured description HTML.
	DescriptionMarkdown string           `json:"description_markdown,omitempty"`
	DownloadedImages    []DownloadResult `json:"downloaded_images"`
	FailedImages        []DownloadResult `json:"failed_images"`
	TotalImages         int              `json:"total_images"`
	SuccessfulDownloads int              `json:"successful_downloads"`
	DownloadedAt        time.Time        `json:"downloaded_at"`
}
