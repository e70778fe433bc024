package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFirstFallsThroughChain(t *testing.T) {
	doc := mustDoc(t, `<html><body><div class="product-name">Oak Chair</div></body></html>`)

	got := First(doc, []Lookup{
		{Selector: "#missing"},
		{Selector: ".product-name"},
	})
	assert.Equal(t, "Oak Chair", got)
}

func TestFirstSkipsInvalidSelector(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>Oak Chair</h1></body></html>`)

	got := First(doc, []Lookup{
		{Selector: "h1[[["},
		{Selector: "h1"},
	})
	assert.Equal(t, "Oak Chair", got)
}

func TestFirstSkipsEmptyMatches(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>   </h1><h2>Oak Chair</h2></body></html>`)

	got := First(doc, []Lookup{
		{Selector: "h1"},
		{Selector: "h2"},
	})
	assert.Equal(t, "Oak Chair", got)
}

func TestFirstReadsAttribute(t *testing.T) {
	doc := mustDoc(t, `<html><body><a class="supplier" href="/supplier/42">Acme</a></body></html>`)

	got := First(doc, []Lookup{
		{Selector: "a.supplier", Attr: "href"},
	})
	assert.Equal(t, "/supplier/42", got)
}

func TestFirstKeywordRankingPicksBestCandidate(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="sidebar-note">some price chatter</div>
		<div class="product-price" id="price">$19.99</div>
	</body></html>`)

	got := First(doc, []Lookup{
		{Selector: "div", Keywords: []string{"price"}},
	})
	assert.Equal(t, "$19.99", got)
}

func TestFirstKeywordRankingKeepsEarlierOnTie(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<span class="price">$10.00</span>
		<span class="price">$20.00</span>
	</body></html>`)

	got := First(doc, []Lookup{
		{Selector: "span", Keywords: []string{"price"}},
	})
	assert.Equal(t, "$10.00", got)
}

func TestFirstSelectionReturnsNilOnNoMatch(t *testing.T) {
	doc := mustDoc(t, `<html><body></body></html>`)

	assert.Nil(t, FirstSelection(doc, []Lookup{{Selector: ".missing"}}))
}
