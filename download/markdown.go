package download

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter creates the reusable, goroutine-safe Converter used
// to render description HTML into the sidecar:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea, HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: keeps spec tables readable with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// descriptionMarkdown converts the captured description block to Markdown.
// pageURL resolves relative links and images so the sidecar stands alone.
// Conversion failure is not fatal; the sidecar just omits the markdown.
func descriptionMarkdown(conv *converter.Converter, descriptionHTML, pageURL string) string {
	if descriptionHTML == "" {
		return ""
	}
	md, err := conv.ConvertString(descriptionHTML, converter.WithDomain(pageURL))
	if err != nil {
		return ""
	}
	return md
}
