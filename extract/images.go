package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/harvester/models"
)

// imageCandidate is a raw URL found by a strategy before resolution,
// acceptance filtering, and deduplication.
type imageCandidate struct {
	url string
	alt string
}

// imageStrategy is one self-contained extraction rule. Strategies run in a
// fixed priority order; the first strategy to find a URL owns its provenance
// tag. A strategy that fails only loses its own candidates — it never aborts
// the remaining strategies.
type imageStrategy struct {
	name    models.ImageType
	collect func(doc *goquery.Document) []imageCandidate
}

// Collector gathers product images from a document by running every strategy
// and deduplicating by exact resolved URL.
type Collector struct {
	trustedHosts []string
	strategies   []imageStrategy
}

// NewCollector creates a Collector. trustedHosts are asset-host substrings
// accepted even when the URL carries no recognizable image extension.
func NewCollector(trustedHosts []string) *Collector {
	return &Collector{
		trustedHosts: trustedHosts,
		strategies: []imageStrategy{
			{models.ImageTypeLightbox, attrStrategy("src", lightboxSelectors...)},
			{models.ImageTypeFeatured, attrStrategy("src", featuredSelectors...)},
			{models.ImageTypeThumbnail, attrStrategy("src", thumbnailSelectors...)},
			{models.ImageTypePicture, collectPictures},
			{models.ImageTypeLazy, collectLazy},
			{models.ImageTypeBackground, collectBackgrounds},
			{models.ImageTypeSVG, collectSVGImages},
			{models.ImageTypeVideoPoster, attrStrategy("poster", "video[poster]")},
			{models.ImageTypeHidden, collectHidden},
			{models.ImageTypeFallback, collectFallback},
		},
	}
}

// Gallery selector lists. These are site data, not logic: extend them when
// the marketplace ships a redesign.
var (
	lightboxSelectors = []string{
		".ril-image-next", ".ril__imageNext", ".ril__image",
		`[class*="lightbox"] img`, ".modal img", `[class*="gallery-modal"] img`,
	}
	featuredSelectors = []string{
		`[class*="featured"] img`, `[class*="hero"] img`,
		`[class*="main-image"] img`, `[data-testid="product-image"] img`,
		`img[class*="product-image"]`,
	}
	thumbnailSelectors = []string{
		`[class*="thumbnail"] img`, `[class*="thumb"] img`,
		`[class*="carousel"] img`, `[class*="slider"] img`,
	}
)

// Collect runs all strategies against the document in priority order and
// returns the deduplicated image sequence. Relative URLs are resolved
// against pageURL; Index reflects insertion order across all strategies.
func (c *Collector) Collect(doc *goquery.Document, pageURL string) []models.ImageRecord {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	records := []models.ImageRecord{}
	seen := make(map[string]struct{})

	for _, st := range c.strategies {
		found := 0
		for _, cand := range st.collect(doc) {
			resolved := resolveImageURL(base, cand.url)
			if resolved == "" || !c.acceptURL(resolved) {
				continue
			}
			if _, dup := seen[resolved]; dup {
				continue
			}
			seen[resolved] = struct{}{}
			found++

			records = append(records, models.ImageRecord{
				URL:      resolved,
				Filename: filenameFromURL(resolved, st.name, found),
				Index:    len(records),
				Alt:      cand.alt,
				Type:     st.name,
			})
		}
	}

	return records
}

// acceptURL decides whether a resolved URL plausibly points at an image:
// an image data URI, a known image file extension, or a trusted asset host.
func (c *Collector) acceptURL(resolved string) bool {
	if strings.HasPrefix(resolved, "data:") {
		return strings.HasPrefix(resolved, "data:image/")
	}
	if hasImageExtension(resolved) {
		return true
	}
	lower := strings.ToLower(resolved)
	for _, host := range c.trustedHosts {
		if host != "" && strings.Contains(lower, strings.ToLower(host)) {
			return true
		}
	}
	return false
}

var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif", ".bmp", ".ico",
}

func hasImageExtension(raw string) bool {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// resolveImageURL makes candidate URLs absolute. Data URIs pass through;
// anything that doesn't resolve to http(s) is rejected.
func resolveImageURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "data:") {
		return raw
	}

	var resolved *url.URL
	var err error
	if base != nil {
		resolved, err = base.Parse(raw)
	} else {
		resolved, err = url.Parse(raw)
	}
	if err != nil {
		return ""
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// filenameFromURL derives a filename from the URL's last path segment,
// falling back to a strategy-specific synthetic name.
func filenameFromURL(resolved string, t models.ImageType, n int) string {
	if strings.HasPrefix(resolved, "data:") {
		return syntheticFilename(t, n)
	}
	path := resolved
	if u, err := url.Parse(resolved); err == nil {
		path = u.Path
	}
	seg := path[strings.LastIndex(path, "/")+1:]
	if seg == "" {
		return syntheticFilename(t, n)
	}
	return seg
}

func syntheticFilename(t models.ImageType, n int) string {
	return fmt.Sprintf("%s_image_%d.jpg", t, n)
}

// attrStrategy builds a strategy that pulls one attribute from every element
// matching any of the selectors.
func attrStrategy(attr string, selectors ...string) func(*goquery.Document) []imageCandidate {
	return func(doc *goquery.Document) []imageCandidate {
		var out []imageCandidate
		for _, sel := range selectors {
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
					out = append(out, imageCandidate{url: v, alt: s.AttrOr("alt", "")})
				}
			})
		}
		return out
	}
}

// collectPictures resolves <picture> elements to their highest-width srcset
// entry, falling back to the inner <img> src.
func collectPictures(doc *goquery.Document) []imageCandidate {
	var out []imageCandidate
	doc.Find("picture").Each(func(_ int, p *goquery.Selection) {
		best := ""
		bestWidth := -1
		p.Find("source[srcset], img[srcset]").Each(func(_ int, s *goquery.Selection) {
			if u, w := widestFromSrcset(s.AttrOr("srcset", "")); u != "" && w > bestWidth {
				best = u
				bestWidth = w
			}
		})

		img := p.Find("img").First()
		if best == "" {
			best = strings.TrimSpace(img.AttrOr("src", ""))
		}
		if best != "" {
			out = append(out, imageCandidate{url: best, alt: img.AttrOr("alt", "")})
		}
	})
	return out
}

// widestFromSrcset parses "url1 320w, url2 640w" and returns the entry with
// the largest width descriptor. Entries without a width count as width 0.
func widestFromSrcset(srcset string) (string, int) {
	best := ""
	bestWidth := -1
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		width := 0
		if len(fields) > 1 && strings.HasSuffix(fields[1], "w") {
			if n, err := strconv.Atoi(strings.TrimSuffix(fields[1], "w")); err == nil {
				width = n
			}
		}
		if width > bestWidth {
			best = fields[0]
			bestWidth = width
		}
	}
	return best, bestWidth
}

// collectLazy harvests lazy-load data attributes before the page's scripts
// get a chance to promote them into src.
func collectLazy(doc *goquery.Document) []imageCandidate {
	var out []imageCandidate
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original"} {
		doc.Find("img[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
				out = append(out, imageCandidate{url: v, alt: s.AttrOr("alt", "")})
			}
		})
	}
	doc.Find("[data-srcset]").Each(func(_ int, s *goquery.Selection) {
		if u, _ := widestFromSrcset(s.AttrOr("data-srcset", "")); u != "" {
			out = append(out, imageCandidate{url: u, alt: s.AttrOr("alt", "")})
		}
	})
	return out
}

var cssURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// collectBackgrounds parses inline background-image declarations.
func collectBackgrounds(doc *goquery.Document) []imageCandidate {
	var out []imageCandidate
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := s.AttrOr("style", "")
		if !strings.Contains(style, "background") {
			return
		}
		for _, m := range cssURLPattern.FindAllStringSubmatch(style, -1) {
			out = append(out, imageCandidate{url: m[1]})
		}
	})
	return out
}

// collectSVGImages pulls <image> references embedded in inline SVG.
func collectSVGImages(doc *goquery.Document) []imageCandidate {
	var out []imageCandidate
	doc.Find("svg image").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			href = strings.TrimSpace(s.AttrOr("xlink:href", ""))
		}
		if href != "" {
			out = append(out, imageCandidate{url: href})
		}
	})
	return out
}

// collectHidden reaches into containers the page keeps out of view (closed
// modals, preloaded galleries, ARIA-hidden decks).
func collectHidden(doc *goquery.Document) []imageCandidate {
	var out []imageCandidate
	selectors := []string{
		`[aria-hidden="true"] img`, "[hidden] img", ".hidden img",
		`[style*="display:none"] img`, `[style*="display: none"] img`,
	}
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			src := strings.TrimSpace(s.AttrOr("src", ""))
			if src == "" {
				src = strings.TrimSpace(s.AttrOr("data-src", ""))
			}
			if src != "" {
				out = append(out, imageCandidate{url: src, alt: s.AttrOr("alt", "")})
			}
		})
	}
	return out
}

// collectFallback is the final broad sweep: every plain <img>, plus anchors
// that link directly to an image file.
func collectFallback(doc *goquery.Document) []imageCandidate {
	var out []imageCandidate
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("src", "")); v != "" {
			out = append(out, imageCandidate{url: v, alt: s.AttrOr("alt", "")})
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href != "" && hasImageExtension(href) {
			out = append(out, imageCandidate{url: href})
		}
	})
	return out
}
