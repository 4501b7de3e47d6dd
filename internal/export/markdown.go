package export

import (
	"fmt"
	"strings"

	"readcast/internal/models"
)

// Markdown renders the fixed section order and leaves out empty sections.
func Markdown(doc models.StudyDocument, m Metadata) string {
	l := LabelsFor(m.Language)
	var b strings.Builder

	title := firstNonEmpty(doc.Title, m.Title)
	fmt.Fprintf(&b, "# %s\n\n", title)
	if m.ArticleTitle != "" {
		fmt.Fprintf(&b, "**%s** %s\n\n", field(l, l.Original), m.ArticleTitle)
	}
	fmt.Fprintf(&b, "**%s** %s\n\n", field(l, l.Difficulty), l.Level(m.Difficulty))
	fmt.Fprintf(&b, "**%s** %s\n\n", field(l, l.GeneratedAt), generatedAt(m).Format(timeLayout))
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "## %s\n\n%s\n\n", l.Summary, firstNonEmpty(doc.Summary, l.NoSummary))

	if len(doc.KnowledgePoints) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", l.KnowledgePoints)
		for i, kp := range doc.KnowledgePoints {
			fmt.Fprintf(&b, "### %d. %s\n\n%s\n\n", i+1, kp.Point, kp.Explanation)
		}
	}

	if len(doc.Difficulties) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", l.Difficulties)
		for i, d := range doc.Difficulties {
			fmt.Fprintf(&b, "### %d. %s\n\n%s\n\n", i+1, d.Difficulty, d.Explanation)
			if len(d.Examples) > 0 {
				fmt.Fprintf(&b, "**%s**\n\n", field(l, l.Examples))
				for _, ex := range d.Examples {
					fmt.Fprintf(&b, "- %s\n", ex)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(doc.Terminology) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", l.Terminology)
		for i, t := range doc.Terminology {
			fmt.Fprintf(&b, "### %d. %s\n\n**%s** %s\n\n", i+1, t.Term, field(l, l.Definition), t.Definition)
			if t.Context != "" {
				fmt.Fprintf(&b, "**%s** %s\n\n", field(l, l.Context), t.Context)
			}
		}
	}

	if c := strings.TrimSpace(doc.CustomContent); c != "" {
		fmt.Fprintf(&b, "## %s\n\n%s\n", l.CustomContent, c)
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// field is the bold-safe form of Labels.Field: Markdown emphasis cannot end in a space.
func field(l Labels, name string) string {
	return strings.TrimRight(l.Field(name), " ")
}
