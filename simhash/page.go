package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

// watchedAttrs are the attributes whose mutation signals new image content:
// direct sources, lazy-load sources, responsive sets, inline backgrounds.
var watchedAttrs = map[string]struct{}{
	"src":      {},
	"data-src": {},
	"srcset":   {},
	"style":    {},
}

// FingerprintPage computes a SimHash over the parts of a page that matter
// for image-change detection: tag names in sequence, the watched image
// attribute values, and character data. Markup churn outside those signals
// (class toggles, tracking params, ids) barely moves the fingerprint, so the
// watcher can compare consecutive snapshots with a small Hamming threshold.
func FingerprintPage(htmlStr string) uint64 {
	tokens := extractPageTokens(htmlStr)
	if len(tokens) == 0 {
		return 0
	}

	shingles := makeShingles(tokens, 3)
	if len(shingles) == 0 {
		// Too few tokens for shingles; hash the token sequence itself.
		return Fingerprint(strings.Join(tokens, " "))
	}

	return Fingerprint(strings.Join(shingles, " "))
}

// extractPageTokens walks the markup with the tokenizer and collects, in
// document order, every open tag name, the values of watched attributes,
// and words from text nodes.
func extractPageTokens(htmlStr string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var tokens []string

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return tokens

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tokens = append(tokens, string(tn))
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				if _, watched := watchedAttrs[string(key)]; watched && len(val) > 0 {
					tokens = append(tokens, string(val))
				}
			}

		case html.TextToken:
			if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
				tokens = append(tokens, strings.Fields(text)...)
			}
		}
	}
}
