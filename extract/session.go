package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/use-agent/harvester/models"
)

// Extractor runs one full extraction pass: parse, collect images, assemble
// metadata. Safe for concurrent use.
type Extractor struct {
	collector *Collector
	meta      *MetadataExtractor
}

// NewExtractor creates an Extractor. trustedHosts feed the image collector's
// URL acceptance check.
func NewExtractor(trustedHosts []string) *Extractor {
	return &Extractor{
		collector: NewCollector(trustedHosts),
		meta:      NewMetadataExtractor(),
	}
}

// Extract parses rawHTML and produces a fresh Session. Each call fully
// replaces any prior session for the page: image indices from an older
// session are meaningless against the new sequence.
func (e *Extractor) Extract(rawHTML, pageURL, productIDHint string) (*models.Session, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to parse document", err)
	}

	return &models.Session{
		ID:          uuid.NewString(),
		PageURL:     pageURL,
		Images:      e.collector.Collect(doc, pageURL),
		Metadata:    e.meta.Extract(doc, rawHTML, pageURL, productIDHint),
		ExtractedAt: time.Now().UTC(),
	}, nil
}

// ImageURLs returns just the accepted image URLs in the markup, in discovery
// order. The watcher diffs consecutive snapshots with this to spot new
// image-bearing content without paying for full metadata extraction.
func (e *Extractor) ImageURLs(rawHTML, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	records := e.collector.Collect(doc, pageURL)
	urls := make([]string, len(records))
	for i, r := range records {
		urls[i] = r.URL
	}
	return urls
}

// HasImages reports whether the markup already contains anything the image
// collector would accept. The watcher polls this while waiting for
// lazy-loaded galleries to arrive.
func (e *Extractor) HasImages(rawHTML, pageURL string) bool {
	return len(e.ImageURLs(rawHTML, pageURL)) > 0
}
