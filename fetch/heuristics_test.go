package fetch

import (
	"strings"
	"testing"
)

func richPage(extra string) string {
	body := strings.Repeat("Solid oak dining chair with hand finished joinery. ", 10)
	return "<html><head><title>Oak Chair</title></head><body><p>" + body + "</p>" + extra + "</body></html>"
}

func TestNeedsBrowser(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "server rendered page",
			html: richPage(""),
			want: false,
		},
		{
			name: "tiny body text",
			html: `<html><body><div id="root"><div>hi</div></div></body></html>`,
			want: true,
		},
		{
			name: "empty react root",
			html: richPage(`<div id="root"></div>`),
			want: true,
		},
		{
			name: "empty next root",
			html: richPage(`<div id="__next"></div>`),
			want: true,
		},
		{
			name: "noscript javascript warning",
			html: richPage(`<noscript>Please enable JavaScript to continue</noscript>`),
			want: true,
		},
		{
			name: "script heavy with little text",
			html: `<html><body><p>` + strings.Repeat("word ", 50) + `</p>` +
				strings.Repeat(`<script src="/x.js"></script>`, 12) + `</body></html>`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsBrowser(tt.html); got != tt.want {
				t.Errorf("NeedsBrowser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	if got := extractTitle(richPage("")); got != "Oak Chair" {
		t.Errorf("extractTitle() = %q, want %q", got, "Oak Chair")
	}
	if got := extractTitle("<html><body>no title</body></html>"); got != "" {
		t.Errorf("extractTitle() = %q, want empty", got)
	}
}

func TestExtractVisibleTextSkipsScripts(t *testing.T) {
	html := `<html><body><p>visible</p><script>hidden()</script><style>.x{}</style></body></html>`
	got := extractVisibleText(html)
	if !strings.Contains(got, "visible") {
		t.Errorf("expected visible text, got %q", got)
	}
	if strings.Contains(got, "hidden") || strings.Contains(got, ".x{}") {
		t.Errorf("script/style content leaked into %q", got)
	}
}
