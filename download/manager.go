package download

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/models"
)

// Manager downloads user-selected images to disk with bounded retries and
// writes a metadata sidecar next to them. Safe for concurrent use.
type Manager struct {
	cfg    config.DownloadConfig
	client *http.Client
	conv   *converter.Converter

	// nextID numbers successful writes within this process, mirroring a
	// download-manager style monotonically increasing id.
	nextID atomic.Int64
}

// NewManager creates a Manager. client is the HTTP client used to fetch
// image bytes; nil falls back to http.DefaultClient.
func NewManager(cfg config.DownloadConfig, client *http.Client) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{
		cfg:    cfg,
		client: client,
		conv:   newMarkdownConverter(),
	}
}

// DownloadSelected fetches every selected image concurrently, then writes
// the sidecar. Per-image failures never fail the batch: each image resolves
// to its own DownloadResult and the summary counts both partitions.
//
// An empty selection is the caller's bug and returns NO_IMAGES_SELECTED.
func (m *Manager) DownloadSelected(ctx context.Context, selected []models.ImageRecord, meta models.MetadataRecord) (*models.DownloadBatch, error) {
	if len(selected) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeNoImagesSelected, "no images selected for download", nil)
	}

	productName := meta.ProductName
	if productName == "" {
		productName = meta.ProductID
	}
	if productName == "" {
		productName = "product"
	}

	dir := filepath.Join(m.cfg.Dir, m.cfg.Subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDownloadFailed, "failed to create download directory", err)
	}

	slog.Info("download: starting batch", "images", len(selected), "dir", dir)

	results := make([]models.DownloadResult, len(selected))
	var wg sync.WaitGroup
	for i, img := range selected {
		wg.Add(1)
		go func(i int, img models.ImageRecord) {
			defer wg.Done()
			results[i] = m.downloadImage(ctx, dir, img, productName)
		}(i, img)
	}
	wg.Wait()

	batch := &models.DownloadBatch{
		Results:        results,
		MetadataResult: m.writeSidecar(dir, productName, meta, results),
	}
	for _, r := range results {
		batch.Summary.Total++
		if r.Success {
			batch.Summary.Successful++
		} else {
			batch.Summary.Failed++
		}
	}

	slog.Info("download: batch complete",
		"successful", batch.Summary.Successful,
		"failed", batch.Summary.Failed,
	)
	return batch, nil
}

// downloadImage fetches one image with bounded retries and exponential
// backoff between attempts. The returned result is terminal.
func (m *Manager) downloadImage(ctx context.Context, dir string, img models.ImageRecord, productName string) models.DownloadResult {
	filename := GenerateFilename(productName, img.Filename)
	result := models.DownloadResult{Filename: filename, URL: img.URL}

	retries := m.cfg.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		data, err := m.fetchImage(ctx, img.URL)
		if err == nil {
			if err = os.WriteFile(filepath.Join(dir, filename), data, 0o644); err == nil {
				result.Success = true
				result.DownloadID = m.nextID.Add(1)
				return result
			}
		}
		lastErr = err

		slog.Warn("download: attempt failed",
			"filename", filename, "attempt", attempt, "error", err,
		)
		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			result.Error = ctx.Err().Error()
			return result
		case <-time.After(time.Duration(1<<uint(attempt)) * m.cfg.BackoffBase):
		}
	}

	result.Error = lastErr.Error()
	return result
}

// fetchImage resolves an image URL to raw bytes: data URIs decode in place,
// everything else goes over HTTP.
func (m *Manager) fetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURI(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// decodeDataURI unpacks "data:<mime>[;base64],<payload>".
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, fmt.Errorf("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}

// writeSidecar assembles and writes the companion metadata JSON. Sidecar
// failure never fails the batch; it is reported in its own result.
func (m *Manager) writeSidecar(dir, productName string, meta models.MetadataRecord, results []models.DownloadResult) models.SidecarResult {
	sidecar := models.Sidecar{
		MetadataRecord:      meta,
		DescriptionMarkdown: descriptionMarkdown(m.conv, meta.DescriptionHTML, meta.PageURL),
		DownloadedImages:    []models.DownloadResult{},
		FailedImages:        []models.DownloadResult{},
		TotalImages:         len(results),
		DownloadedAt:        time.Now().UTC(),
	}
	for _, r := range results {
		if r.Success {
			sidecar.DownloadedImages = append(sidecar.DownloadedImages, r)
		} else {
			sidecar.FailedImages = append(sidecar.FailedImages, r)
		}
	}
	sidecar.SuccessfulDownloads = len(sidecar.DownloadedImages)

	filename := Sanitize(productName + "_metadata.json")
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return models.SidecarResult{Success: false, Error: err.Error()}
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		slog.Warn("download: sidecar write failed", "filename", filename, "error", err)
		return models.SidecarResult{Success: false, Error: err.Error()}
	}
	return models.SidecarResult{Success: true, Filename: filename}
}
