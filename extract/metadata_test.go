package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/models"
)

func extractRecord(t *testing.T, html, pageURL, hint string) models.MetadataRecord {
	t.Helper()
	m := NewMetadataExtractor()
	return m.Extract(mustDoc(t, html), html, pageURL, hint)
}

func TestExtractMetadataFields(t *testing.T) {
	html := `<html><body>
		<h1 data-testid="product-title">Oak Dining Chair</h1>
		<div class="supplier-name">Nordic Woodworks</div>
		<a class="supplier-link" href="/supplier/nordic">profile</a>
		<div data-testid="product-description"><p>Solid oak, hand finished.</p></div>
		<div data-testid="shipping-info">Ships from EU warehouses</div>
		<div class="processing-time">1-3 business days</div>
		<div class="delivery-time">5-7 days</div>
		<div class="return-policy">30 day returns</div>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/product/ab12cd-34", "")

	assert.Equal(t, "Oak Dining Chair", rec.ProductName)
	assert.Equal(t, "Nordic Woodworks", rec.VendorName)
	assert.Equal(t, "/supplier/nordic", rec.SupplierLink)
	assert.Equal(t, "Solid oak, hand finished.", rec.ProductDescription)
	assert.Contains(t, rec.DescriptionHTML, "<p>Solid oak, hand finished.</p>")
	assert.Equal(t, "Ships from EU warehouses", rec.ShippingInfo)
	assert.Equal(t, "1-3 business days", rec.ProcessingTime)
	assert.Equal(t, "5-7 days", rec.Timeframes)
	assert.Equal(t, "30 day returns", rec.ReturnPolicy)
	assert.Equal(t, "ab12cd-34", rec.ProductID)
	assert.Equal(t, "https://shop.example/product/ab12cd-34", rec.PageURL)
	assert.False(t, rec.ExtractedAt.IsZero())
}

func TestExtractMetadataIdempotent(t *testing.T) {
	html := `<html><body>
		<h1 class="product-title">Oak Dining Chair</h1>
		<span>$89.99</span><span>$119.99</span>
		<p>#woodwork #handmade</p>
	</body></html>`

	first := extractRecord(t, html, "https://shop.example/product/ab12cd-34", "")
	second := extractRecord(t, html, "https://shop.example/product/ab12cd-34", "")

	second.ExtractedAt = first.ExtractedAt
	assert.Equal(t, first, second)
}

func TestExtractMetadataProductIDHintWins(t *testing.T) {
	rec := extractRecord(t, "<html><body></body></html>", "https://shop.example/product/deadbeef", "custom-id")
	assert.Equal(t, "custom-id", rec.ProductID)
}

func TestExtractMetadataEmptyDocumentDefaults(t *testing.T) {
	rec := extractRecord(t, "<html><body></body></html>", "https://shop.example/", "")

	assert.Empty(t, rec.ProductName)
	assert.Empty(t, rec.Price)
	assert.NotNil(t, rec.ShippingDetails)
	assert.NotNil(t, rec.PaymentMethods)
	assert.NotNil(t, rec.Tags)
	assert.Empty(t, rec.ShippingDetails)
	assert.Empty(t, rec.Tags)
}

func TestExtractPricePair(t *testing.T) {
	html := `<html><body>
		<div class="pricing">
			<span>$12.50</span>
			<span>$29.99</span>
		</div>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	assert.Equal(t, "$12.50", rec.Price)
	assert.Equal(t, "$29.99", rec.SellingPrice)
}

func TestExtractPriceFallsBackToChains(t *testing.T) {
	html := `<html><body>
		<div class="product-price">From $15</div>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	assert.Equal(t, "From $15", rec.Price)
	assert.Empty(t, rec.SellingPrice)
}

func TestExtractPriceIgnoresNonLeafNodes(t *testing.T) {
	// The wrapper div contains both amounts but has child elements, so it is
	// not itself a candidate.
	html := `<html><body>
		<div><b>$5</b></div>
		<span>$7.00</span>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	assert.Equal(t, "$5", rec.Price)
	assert.Equal(t, "$7.00", rec.SellingPrice)
}

func TestExtractShippingDetailsInDocumentOrder(t *testing.T) {
	html := `<html><body>
		<div class="shipping-option">
			<span class="region">United States</span>
			<span class="time">5-8 days</span>
		</div>
		<div class="shipping-option">
			<span class="region">Europe</span>
			<span class="time">7-12 days</span>
		</div>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	require.Len(t, rec.ShippingDetails, 2)
	assert.Equal(t, models.ShippingDetail{Region: "United States", TimeText: "5-8 days"}, rec.ShippingDetails[0])
	assert.Equal(t, models.ShippingDetail{Region: "Europe", TimeText: "7-12 days"}, rec.ShippingDetails[1])
}

func TestExtractShippingDetailsSkipsIncompleteRows(t *testing.T) {
	html := `<html><body>
		<div class="shipping-option"><span class="region">US</span></div>
		<div class="shipping-option">
			<span class="region">Europe</span>
			<span class="time">7-12 days</span>
		</div>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	require.Len(t, rec.ShippingDetails, 1)
	assert.Equal(t, "Europe", rec.ShippingDetails[0].Region)
}

func TestExtractHashtags(t *testing.T) {
	html := `<html><body>
		<p>Trending: #oak #furniture and again #oak</p>
		<p>#hand_made pieces</p>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	assert.Equal(t, []string{"oak", "furniture", "hand_made"}, rec.Tags)
}

func TestExtractPaymentMethods(t *testing.T) {
	html := `<html><body>
		<div class="payment-options">
			<img alt="Visa" src="/i/visa.svg">
			<img alt="Mastercard" src="/i/mc.svg">
			<img alt="Visa" src="/i/visa2.svg">
		</div>
	</body></html>`

	rec := extractRecord(t, html, "https://shop.example/p", "")
	assert.Equal(t, []string{"Visa", "Mastercard"}, rec.PaymentMethods)
}
