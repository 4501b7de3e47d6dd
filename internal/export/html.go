package export

import (
	"bytes"
	"fmt"
	"html"

	"readcast/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the Markdown export as a standalone page for in-browser preview.
func HTML(doc models.StudyDocument, m Metadata) (string, error) {
	var body bytes.Buffer
	if err := markdownRenderer.Convert([]byte(Markdown(doc, m)), &body); err != nil {
		return "", fmt.Errorf("render markdown preview: %w", err)
	}
	title := html.EscapeString(firstNonEmpty(doc.Title, m.Title))
	return fmt.Sprintf(`<!doctype html>
<html><head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body></html>
`, title, body.String()), nil
}
