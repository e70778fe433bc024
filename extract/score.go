package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signal weights for the confidence scorer. Attribute matches outrank text
// matches because class/id names survive copy changes.
const (
	wTextMatch  = 10
	wClassMatch = 15
	wIDMatch    = 20
	wProductCtx = 5
	wTestID     = 10
	wHeading    = 5
)

// Score computes the heuristic confidence that an element carries the
// semantic field described by keywords. It is a pure, order-independent
// accumulation: every matching keyword contributes, there is no early exit,
// and adding a matching substring can only raise the score.
func Score(s *goquery.Selection, keywords []string) int {
	score := 0

	text := strings.ToLower(s.Text())
	class := strings.ToLower(s.AttrOr("class", ""))
	id := strings.ToLower(s.AttrOr("id", ""))

	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		if strings.Contains(text, k) {
			score += wTextMatch
		}
		if strings.Contains(class, k) {
			score += wClassMatch
		}
		if strings.Contains(id, k) {
			score += wIDMatch
		}
	}

	// Structural bonuses.
	if s.Closest(`[class*="product"]`).Length() > 0 {
		score += wProductCtx
	}
	if _, ok := s.Attr("data-testid"); ok {
		score += wTestID
	}
	if isHeading(goquery.NodeName(s)) {
		score += wHeading
	}

	return score
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
