package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/models"
)

var testTrustedHosts = []string{"cloudfront.net", "cdn.shopify.com"}

func collect(t *testing.T, html, pageURL string) []models.ImageRecord {
	t.Helper()
	c := NewCollector(testTrustedHosts)
	return c.Collect(mustDoc(t, html), pageURL)
}

func TestCollectLightboxOwnsSharedURL(t *testing.T) {
	// The same URL appears in a lightbox and as a plain <img>; the lightbox
	// strategy runs first and owns the provenance tag.
	html := `<html><body>
		<img class="ril__image" src="/img/chair.jpg" alt="chair">
		<div class="modal"><img src="/img/chair.jpg"></div>
		<img src="/img/chair.jpg">
	</body></html>`

	images := collect(t, html, "https://shop.example/product/abc")
	require.Len(t, images, 1)
	assert.Equal(t, "https://shop.example/img/chair.jpg", images[0].URL)
	assert.Equal(t, models.ImageTypeLightbox, images[0].Type)
	assert.Equal(t, "chair", images[0].Alt)
}

func TestCollectURLsUniqueWithinPass(t *testing.T) {
	// Duplicates planted across several strategies collapse to one record
	// per resolved URL.
	html := `<html><body>
		<img class="product-image-main" src="/img/a.jpg">
		<img class="thumbnail" data-src="/img/a.jpg" src="/img/b.jpg">
		<div style="background-image: url('/img/b.jpg')"></div>
		<a href="/img/c.png">full size</a>
		<img src="/img/c.png">
	</body></html>`

	images := collect(t, html, "https://shop.example/product/abc")

	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		_, dup := seen[img.URL]
		assert.False(t, dup, "duplicate url %s", img.URL)
		seen[img.URL] = struct{}{}
	}
	assert.Len(t, seen, 3)
}

func TestCollectResolvesRelativeURLs(t *testing.T) {
	html := `<html><body><img src="../assets/chair.png"></body></html>`

	images := collect(t, html, "https://shop.example/products/chairs/")
	require.Len(t, images, 1)
	assert.Equal(t, "https://shop.example/products/assets/chair.png", images[0].URL)
	assert.Equal(t, "chair.png", images[0].Filename)
}

func TestCollectAcceptance(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"image extension", "https://other.example/a.webp", true},
		{"query string after extension path", "https://other.example/a.jpg?w=1200", true},
		{"trusted host without extension", "https://d1.cloudfront.net/asset/12345", true},
		{"untrusted host without extension", "https://other.example/asset/12345", false},
		{"image data uri", "data:image/png;base64,iVBORw0KGgo=", true},
		{"non-image data uri", "data:text/html;base64,PGh0bWw+", false},
		{"javascript scheme", "javascript:void(0)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<html><body><img src="` + tt.src + `"></body></html>`
			images := collect(t, html, "https://shop.example/p")
			if tt.want {
				assert.Len(t, images, 1)
			} else {
				assert.Empty(t, images)
			}
		})
	}
}

func TestCollectPicturePicksWidestSrcsetEntry(t *testing.T) {
	html := `<html><body><picture>
		<source srcset="/img/small.jpg 320w, /img/large.jpg 1280w, /img/mid.jpg 640w">
		<img src="/img/fallback.jpg" alt="sofa">
	</picture></body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.NotEmpty(t, images)
	assert.Equal(t, "https://shop.example/img/large.jpg", images[0].URL)
	assert.Equal(t, models.ImageTypePicture, images[0].Type)
	assert.Equal(t, "sofa", images[0].Alt)
}

func TestCollectLazyAttributes(t *testing.T) {
	html := `<html><body>
		<img data-src="/img/lazy1.jpg" alt="one">
		<img data-lazy-src="/img/lazy2.jpg">
		<img data-original="/img/lazy3.jpg">
	</body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 3)
	for _, img := range images {
		assert.Equal(t, models.ImageTypeLazy, img.Type)
	}
}

func TestCollectBackgroundImages(t *testing.T) {
	html := `<html><body>
		<div style="background-image: url('/img/bg.jpg'); color: red"></div>
		<div style="color: red"></div>
	</body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 1)
	assert.Equal(t, "https://shop.example/img/bg.jpg", images[0].URL)
	assert.Equal(t, models.ImageTypeBackground, images[0].Type)
}

func TestCollectSVGAndVideoPoster(t *testing.T) {
	html := `<html><body>
		<svg><image href="/img/vector.svg"></image></svg>
		<video poster="/img/poster.png"></video>
	</body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 2)
	assert.Equal(t, models.ImageTypeSVG, images[0].Type)
	assert.Equal(t, models.ImageTypeVideoPoster, images[1].Type)
}

func TestCollectHiddenContainers(t *testing.T) {
	html := `<html><body>
		<div aria-hidden="true"><img src="/img/hidden.jpg"></div>
	</body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 1)
	assert.Equal(t, models.ImageTypeHidden, images[0].Type)
}

func TestCollectFallbackAnchors(t *testing.T) {
	html := `<html><body>
		<a href="/img/full-size.jpg">full size</a>
		<a href="/about">about us</a>
	</body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 1)
	assert.Equal(t, "https://shop.example/img/full-size.jpg", images[0].URL)
	assert.Equal(t, models.ImageTypeFallback, images[0].Type)
}

func TestCollectIndexFollowsInsertionOrder(t *testing.T) {
	html := `<html><body>
		<div class="hero"><img src="/img/hero.jpg"></div>
		<div class="thumbnail"><img src="/img/thumb1.jpg"></div>
		<img src="/img/extra.jpg">
	</body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 3)
	for i, img := range images {
		assert.Equal(t, i, img.Index)
	}
	assert.Equal(t, models.ImageTypeFeatured, images[0].Type)
	assert.Equal(t, models.ImageTypeThumbnail, images[1].Type)
	assert.Equal(t, models.ImageTypeFallback, images[2].Type)
}

func TestCollectSyntheticFilenames(t *testing.T) {
	html := `<html><body><img src="data:image/png;base64,iVBORw0KGgo="></body></html>`

	images := collect(t, html, "https://shop.example/p")
	require.Len(t, images, 1)
	assert.Equal(t, "fallback_image_1.jpg", images[0].Filename)
}
