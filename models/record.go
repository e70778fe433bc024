package models

import "time"

// ImageType tags an ImageRecord with the strategy that discovered it.
type ImageType string

const (
	ImageTypeLightbox    ImageType = "lightbox"
	ImageTypeFeatured    ImageType = "featured"
	ImageTypeThumbnail   ImageType = "thumbnail"
	ImageTypePicture     ImageType = "picture"
	ImageTypeLazy        ImageType = "lazy"
	ImageTypeBackground  ImageType = "background"
	ImageTypeSVG         ImageType = "svg"
	ImageTypeVideoPoster ImageType = "video-poster"
	ImageTypeHidden      ImageType = "hidden"
	ImageTypeFallback    ImageType = "fallback"
)

// ImageRecord is one product image discovered during an extraction pass.
// URL is unique within a single pass; Index is the insertion position.
type ImageRecord struct {
	URL      string    `json:"url"`
	Filename string    `json:"filename"`
	Index    int       `json:"index"`
	Alt      string    `json:"alt"`
	Type     ImageType `json:"type"`
}

// ShippingDetail is one region/timeframe row from a shipping table.
type ShippingDetail struct {
	Region   string `json:"region"`
	TimeText string `json:"time_text"`
}

// MetadataRecord is the flat product record assembled per extraction pass.
// Missing fields are empty strings/slices, never null.
type MetadataRecord struct {
	ProductID          string           `json:"product_id"`
	ProductName        string           `json:"product_name"`
	ProductDescription string           `json:"product_description"`
	// DescriptionHTML keeps the raw markup of the description block so the
	// sidecar can carry a markdown rendition. Omitted from JSON when empty.
	DescriptionHTML string           `json:"description_html,omitempty"`
	VendorName      string           `json:"vendor_name"`
	SupplierLink    string           `json:"supplier_link"`
	Price           string           `json:"price"`
	SellingPrice    string           `json:"selling_price"`
	ProcessingTime  string           `json:"processing_time"`
	ShippingInfo    string           `json:"shipping_info"`
	ShippingDetails []ShippingDetail `json:"shipping_details"`
	Timeframes      string           `json:"timeframes"`
	MarketplaceInfo string           `json:"marketplace_info"`
	ReturnPolicy    string           `json:"return_policy"`
	PaymentMethods  []string         `json:"payment_methods"`
	Tags            []string         `json:"tags"`
	ExtractedAt     time.Time        `json:"extracted_at"`
	PageURL         string           `json:"page_url"`
}

// Session is the value object produced by one extraction pass. Each pass
// fully replaces the prior session; held selection indices into an older
// session's image sequence are invalid against a newer one.
type Session struct {
	ID          string         `json:"id"`
	PageURL     string         `json:"page_url"`
	Images      []ImageRecord  `json:"images"`
	Metadata    MetadataRecord `json:"metadata"`
	ExtractedAt time.Time      `json:"extracted_at"`
}
