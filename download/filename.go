package download

import (
	"regexp"
	"strings"
)

var (
	unsafeChars   = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
)

// Sanitize makes a name safe for the filesystem: reserved characters and
// whitespace runs become single underscores, repeated underscores collapse,
// and leading/trailing whitespace is dropped.
func Sanitize(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.TrimSpace(s)
}

// GenerateFilename prefixes an image's original filename with the product
// name, both sanitized, joined by an underscore.
func GenerateFilename(productName, originalFilename string) string {
	return Sanitize(productName) + "_" + Sanitize(originalFilename)
}
