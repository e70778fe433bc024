package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Lookup is one typed step in a fallback chain: a CSS selector, optionally
// narrowed to an attribute value, optionally ranked by keyword confidence.
//
// Chains are plain data so site-specific selectors can change without
// touching the matcher.
type Lookup struct {
	// Selector is the CSS selector to evaluate.
	Selector string

	// Attr, when non-empty, takes the named attribute value instead of the
	// element's text content.
	Attr string

	// Keywords, when non-empty, switches the lookup from first-match to
	// confidence-ranked: all matches are scored and the best one wins.
	// Ties keep the earlier element (document order is stable).
	Keywords []string
}

// First evaluates the chain in order and returns the first non-empty trimmed
// value. A lookup with invalid selector syntax is skipped; it never aborts
// the rest of the chain.
func First(doc *goquery.Document, chain []Lookup) string {
	s, attr := firstMatch(doc, chain)
	if s == nil {
		return ""
	}
	return value(s, attr)
}

// FirstSelection is First but returns the winning element, for callers that
// also need its markup or attributes. Returns nil when nothing matches.
func FirstSelection(doc *goquery.Document, chain []Lookup) *goquery.Selection {
	s, _ := firstMatch(doc, chain)
	return s
}

// firstMatch walks the chain and returns the winning element together with
// the attribute of the lookup that produced it.
func firstMatch(doc *goquery.Document, chain []Lookup) (*goquery.Selection, string) {
	for _, lk := range chain {
		matcher, err := cascadia.Compile(lk.Selector)
		if err != nil {
			continue // invalid selector syntax: skip, never abort
		}

		matches := doc.FindMatcher(matcher)
		if matches.Length() == 0 {
			continue
		}

		if len(lk.Keywords) > 0 {
			if best := bestByScore(matches, lk.Keywords, lk.Attr); best != nil {
				return best, lk.Attr
			}
			continue
		}

		var found *goquery.Selection
		matches.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if value(s, lk.Attr) != "" {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found, lk.Attr
		}
	}
	return nil, ""
}

// bestByScore ranks all matches with the confidence scorer and returns the
// highest-scoring element carrying a non-empty value. Only a strictly
// greater score replaces the current best, so earlier elements win ties.
func bestByScore(matches *goquery.Selection, keywords []string, attr string) *goquery.Selection {
	var best *goquery.Selection
	bestScore := -1
	matches.Each(func(_ int, s *goquery.Selection) {
		if value(s, attr) == "" {
			return
		}
		if score := Score(s, keywords); score > bestScore {
			best = s
			bestScore = score
		}
	})
	return best
}

// value extracts the lookup's result from an element: the named attribute
// when attr is set, otherwise the trimmed text content.
func value(s *goquery.Selection, attr string) string {
	if attr != "" {
		v, _ := s.Attr(attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.Text())
}
