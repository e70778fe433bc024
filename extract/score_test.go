package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreAccumulatesSignals(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		keywords []string
		want     int
	}{
		{
			name:     "no signals",
			html:     `<div><span>hello</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     0,
		},
		{
			name:     "text match only",
			html:     `<div><span>price: high</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     wTextMatch,
		},
		{
			name:     "class beats text",
			html:     `<div><span class="price-tag">$5</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     wClassMatch,
		},
		{
			name:     "id beats class",
			html:     `<div><span id="price">$5</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     wIDMatch,
		},
		{
			name:     "all substring signals stack",
			html:     `<div><span id="price" class="price">price</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     wTextMatch + wClassMatch + wIDMatch,
		},
		{
			name:     "product ancestor bonus",
			html:     `<div class="product-card"><span class="price">$5</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     wClassMatch + wProductCtx,
		},
		{
			name:     "data-testid bonus",
			html:     `<div><span data-testid="product-price" class="price">$5</span></div>`,
			selector: "span",
			keywords: []string{"price"},
			want:     wClassMatch + wTestID,
		},
		{
			name:     "heading bonus",
			html:     `<div><h1>Oak Chair name</h1></div>`,
			selector: "h1",
			keywords: []string{"name"},
			want:     wTextMatch + wHeading,
		},
		{
			name:     "each keyword contributes independently",
			html:     `<div><span class="price cost">fee</span></div>`,
			selector: "span",
			keywords: []string{"price", "cost"},
			want:     2 * wClassMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><body>"+tt.html+"</body></html>")
			sel := doc.Find(tt.selector).First()
			assert.Equal(t, tt.want, Score(sel, tt.keywords))
		})
	}
}

func TestScoreMatchingSubstringNeverLowers(t *testing.T) {
	plain := mustDoc(t, `<html><body><span>item</span></body></html>`).Find("span")
	classed := mustDoc(t, `<html><body><span class="item">item</span></body></html>`).Find("span")

	keywords := []string{"item"}
	assert.GreaterOrEqual(t, Score(classed, keywords), Score(plain, keywords))
}
