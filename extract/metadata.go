package extract

import (
	"log/slog"
	nurl "net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/harvester/models"
)

// Field chains. Each semantic field tries its lookups in order and takes the
// first non-empty trimmed match. Chains are site data; the matcher lives in
// lookup.go.
var (
	productNameChain = []Lookup{
		{Selector: `h1[data-testid="product-title"]`},
		{Selector: "h1.product-title"},
		{Selector: "h1"},
		{Selector: `[data-testid="product-name"]`},
		{Selector: ".product-name"},
		{Selector: `[class*="title"]`, Keywords: []string{"name", "title", "product", "item"}},
	}

	vendorChain = []Lookup{
		{Selector: `[data-testid="supplier-name"]`},
		{Selector: ".supplier-name"},
		{Selector: ".vendor-name"},
		{Selector: `[class*="supplier"]`, Keywords: []string{"vendor", "supplier", "brand", "seller", "by"}},
		{Selector: `[class*="vendor"]`, Keywords: []string{"vendor", "supplier", "brand", "seller", "by"}},
	}

	supplierLinkChain = []Lookup{
		{Selector: `a[data-testid="supplier-link"]`, Attr: "href"},
		{Selector: ".supplier-name a", Attr: "href"},
		{Selector: `a[class*="supplier"]`, Attr: "href"},
		{Selector: `a[href*="/supplier/"]`, Attr: "href"},
	}

	descriptionChain = []Lookup{
		{Selector: `[data-testid="product-description"]`},
		{Selector: ".product-description"},
		{Selector: `[class*="description"]`, Keywords: []string{"description", "details", "about", "info"}},
		{Selector: `[class*="desc"]`, Keywords: []string{"description", "details", "about", "info"}},
	}

	priceChain = []Lookup{
		{Selector: `[data-testid="product-price"]`},
		{Selector: ".price"},
		{Selector: ".product-price"},
		{Selector: `[class*="price"]`, Keywords: []string{"$", "price", "cost", "usd", "eur", "gbp"}},
		{Selector: ".cost"},
	}

	sellingPriceChain = []Lookup{
		{Selector: `[data-testid="selling-price"]`},
		{Selector: ".selling-price"},
		{Selector: `[class*="selling"]`, Keywords: []string{"sell", "retail", "price"}},
		{Selector: `[class*="retail"]`, Keywords: []string{"sell", "retail", "price"}},
	}

	processingTimeChain = []Lookup{
		{Selector: `[data-testid="processing-time"]`},
		{Selector: ".processing-time"},
		{Selector: `[class*="processing"]`, Keywords: []string{"processing", "handling"}},
	}

	shippingInfoChain = []Lookup{
		{Selector: `[data-testid="shipping-info"]`},
		{Selector: ".shipping-info"},
		{Selector: `[class*="shipping"]`, Keywords: []string{"shipping", "delivery"}},
		{Selector: `[class*="delivery"]`, Keywords: []string{"shipping", "delivery"}},
	}

	timeframesChain = []Lookup{
		{Selector: `[data-testid="delivery-time"]`},
		{Selector: ".delivery-time"},
		{Selector: `[class*="timeframe"]`, Keywords: []string{"day", "week", "delivery"}},
		{Selector: `[class*="delivery"]`, Keywords: []string{"day", "week", "delivery"}},
		{Selector: `[class*="processing"]`, Keywords: []string{"day", "week", "delivery"}},
	}

	marketplaceInfoChain = []Lookup{
		{Selector: `[data-testid="marketplace-info"]`},
		{Selector: ".marketplace-info"},
		{Selector: `[class*="marketplace"]`, Keywords: []string{"marketplace", "sold"}},
	}

	returnPolicyChain = []Lookup{
		{Selector: `[data-testid="return-policy"]`},
		{Selector: ".return-policy"},
		{Selector: `[class*="return"]`, Keywords: []string{"return", "refund", "policy"}},
		{Selector: `[class*="policy"]`, Keywords: []string{"return", "refund", "policy"}},
	}
)

// shippingRowContainers are the repeated elements that hold one
// region/timeframe pair each. Rows append in document order.
var shippingRowContainers = []string{
	`[class*="shipping-option"]`,
	`[class*="shipping"] tr`,
	".shipping-row",
}

var (
	shippingRegionChain = []Lookup{
		{Selector: `[class*="region"]`},
		{Selector: `[class*="country"]`},
		{Selector: "td:first-child"},
		{Selector: "span:first-child"},
	}
	shippingTimeChain = []Lookup{
		{Selector: `[class*="time"]`},
		{Selector: `[class*="day"]`},
		{Selector: "td:last-child"},
		{Selector: "span:last-child"},
	}
)

var (
	hashtagPattern      = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	dollarAmountPattern = regexp.MustCompile(`^\$\s*\d[\d,]*(?:\.\d+)?$`)
	productIDPattern    = regexp.MustCompile(`/product/([a-f0-9-]+)`)
)

// MetadataExtractor assembles the flat product record from a parsed page.
// Every field is best-effort: a field with no matching strategy stays an
// empty string/slice.
type MetadataExtractor struct{}

func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

// Extract builds a MetadataRecord from the document. rawHTML is the page
// markup used for the readability description fallback; productIDHint, when
// set, overrides ID detection from the URL.
func (m *MetadataExtractor) Extract(doc *goquery.Document, rawHTML, pageURL, productIDHint string) models.MetadataRecord {
	rec := models.MetadataRecord{
		ProductID:       productIDHint,
		ShippingDetails: []models.ShippingDetail{},
		PaymentMethods:  []string{},
		Tags:            []string{},
		ExtractedAt:     time.Now().UTC(),
		PageURL:         pageURL,
	}
	if rec.ProductID == "" {
		if match := productIDPattern.FindStringSubmatch(pageURL); match != nil {
			rec.ProductID = match[1]
		}
	}

	rec.ProductName = First(doc, productNameChain)
	rec.VendorName = First(doc, vendorChain)
	rec.SupplierLink = First(doc, supplierLinkChain)
	rec.ProcessingTime = First(doc, processingTimeChain)
	rec.ShippingInfo = First(doc, shippingInfoChain)
	rec.Timeframes = First(doc, timeframesChain)
	rec.MarketplaceInfo = First(doc, marketplaceInfoChain)
	rec.ReturnPolicy = First(doc, returnPolicyChain)

	m.extractDescription(doc, rawHTML, pageURL, &rec)
	m.extractPrices(doc, &rec)
	rec.ShippingDetails = extractShippingDetails(doc)
	rec.PaymentMethods = extractPaymentMethods(doc)
	rec.Tags = extractHashtags(doc)

	return rec
}

// extractDescription takes the first description chain match, keeping its
// markup for the sidecar's markdown rendition. When no selector hits it
// falls back to a readability pass over the whole page and uses the excerpt.
func (m *MetadataExtractor) extractDescription(doc *goquery.Document, rawHTML, pageURL string, rec *models.MetadataRecord) {
	if sel := FirstSelection(doc, descriptionChain); sel != nil {
		rec.ProductDescription = strings.TrimSpace(sel.Text())
		if html, err := goquery.OuterHtml(sel); err == nil {
			rec.DescriptionHTML = html
		}
		return
	}

	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("metadata: readability fallback failed", "url", pageURL, "error", err)
		return
	}
	rec.ProductDescription = strings.TrimSpace(article.Excerpt)
}

// extractPrices special-cases the common marketplace layout where the pay
// price and the suggested selling price render as two consecutive
// dollar-amount leaf elements. Fewer than two such leaves falls back to the
// generic chains. Deliberately order-dependent; best effort only.
func (m *MetadataExtractor) extractPrices(doc *goquery.Document, rec *models.MetadataRecord) {
	var amounts []string
	doc.Find("span, div, p, td, b, strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if text := strings.TrimSpace(s.Text()); dollarAmountPattern.MatchString(text) {
			amounts = append(amounts, text)
		}
		return len(amounts) < 2
	})

	if len(amounts) >= 2 {
		rec.Price = amounts[0]
		rec.SellingPrice = amounts[1]
		return
	}

	rec.Price = First(doc, priceChain)
	rec.SellingPrice = First(doc, sellingPriceChain)
}

// extractShippingDetails walks repeated shipping rows and pairs a region
// lookup with a time lookup inside each. The first container selector that
// yields any complete row wins; rows keep document order.
func extractShippingDetails(doc *goquery.Document) []models.ShippingDetail {
	details := []models.ShippingDetail{}
	for _, container := range shippingRowContainers {
		doc.Find(container).Each(func(_ int, row *goquery.Selection) {
			region := firstWithin(row, shippingRegionChain)
			timeText := firstWithin(row, shippingTimeChain)
			if region != "" && timeText != "" {
				details = append(details, models.ShippingDetail{Region: region, TimeText: timeText})
			}
		})
		if len(details) > 0 {
			break
		}
	}
	return details
}

// firstWithin is First scoped to one element's subtree.
func firstWithin(root *goquery.Selection, chain []Lookup) string {
	for _, lk := range chain {
		var found string
		root.Find(lk.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v := value(s, lk.Attr); v != "" {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func extractPaymentMethods(doc *goquery.Document) []string {
	methods := []string{}
	seen := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		methods = append(methods, v)
	}

	doc.Find(`[class*="payment"] img[alt]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("alt", ""))
	})
	doc.Find(`[class*="payment"] li, .payment-methods span`).Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})
	return methods
}

// extractHashtags scans the full page text for #word tags. Duplicates keep
// their first appearance.
func extractHashtags(doc *goquery.Document) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, match := range hashtagPattern.FindAllStringSubmatch(doc.Text(), -1) {
		tag := match[1]
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
