package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var noscriptWarning = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// emptyRoots are SPA mount points whose emptiness marks an unrendered shell.
var emptyRoots = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
}

// NeedsBrowser decides whether HTTP-fetched HTML likely needs JS rendering:
// an SPA shell, a noscript warning, or a script-heavy page with almost no
// visible body text.
func NeedsBrowser(rawHTML string) bool {
	bodyText := extractVisibleText(rawHTML)
	if len(bodyText) < 200 {
		return true
	}

	lower := strings.ToLower(rawHTML)
	for _, root := range emptyRoots {
		if strings.Contains(lower, root) {
			return true
		}
	}
	if noscriptWarning.MatchString(lower) {
		return true
	}
	if strings.Count(lower, "<script") > 10 && len(bodyText) < 500 {
		return true
	}
	return false
}

// extractTitle finds the first <title> element's text.
func extractTitle(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}

// extractVisibleText strips tags plus script/style/noscript content from
// within <body>. Used for heuristic analysis only.
func extractVisibleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
