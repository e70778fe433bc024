package vision

import (
	"fmt"
	"strings"

	"github.com/use-agent/harvester/models"
)

const basePrompt = `Analyze this product image and generate a comprehensive product description. Focus on:

1. **Product Identification**: What is the main product shown?
2. **Visual Features**: Colors, materials, design elements, size/scale indicators
3. **Key Selling Points**: Unique features that would appeal to customers
4. **Use Cases**: How and where this product would be used
5. **Quality Indicators**: Build quality, finish, craftsmanship visible in the image

Please provide the response in this JSON format:
{
  "title": "Product title based on visual analysis",
  "description": "Detailed product description (2-3 paragraphs)",
  "keyFeatures": ["feature1", "feature2", "feature3"],
  "materials": ["material1", "material2"],
  "colors": ["color1", "color2"],
  "estimatedSize": "size estimate based on visual cues",
  "useCase": "primary use case or target audience",
  "qualityAssessment": "assessment of visible quality/craftsmanship",
  "confidence": 0.95
}`

// buildPrompt appends page-derived hints to the base analysis prompt so the
// model grounds its output in what the page already claims.
func buildPrompt(vctx models.AnalysisContext) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if vctx.ProductName != "" {
		fmt.Fprintf(&b, "\n\nExisting product name: %q", vctx.ProductName)
	}
	if vctx.ExistingDescription != "" {
		fmt.Fprintf(&b, "\n\nExisting description: %q", vctx.ExistingDescription)
		b.WriteString("\n\nPlease enhance and expand upon the existing information.")
	}
	if vctx.ProductType != "" {
		fmt.Fprintf(&b, "\n\nProduct category: %s", vctx.ProductType)
	}

	return b.String()
}
