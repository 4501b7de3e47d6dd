package agents

import (
	"context"
	"fmt"
	"strings"

	"readcast/internal/logger"
	"readcast/internal/providers"
	"readcast/internal/util"
)

const (
	OpClassifyArticle = "classify_article"

	classifyTextBudget = 2000
	DefaultCategory    = "general"
)

var Categories = []string{"sports", "politics", "technology", "business", "science", "entertainment", DefaultCategory}

type Classifier struct {
	llm providers.LLMProvider
	log *logger.Logger
}

func NewClassifier(llm providers.LLMProvider, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{llm: llm, log: log.Component("classifier")}
}

// Classify returns one of Categories. A failed call degrades to DefaultCategory.
func (c *Classifier) Classify(ctx context.Context, title, content string) string {
	resp, _, err := c.llm.Generate(ctx, providers.GenerateRequest{
		Operation: OpClassifyArticle,
		System: fmt.Sprintf("Classify the article into exactly one of these categories: %s. Answer with the category word only.",
			strings.Join(Categories, ", ")),
		Prompt:      fmt.Sprintf("Title: %s\n\n%s", title, util.TruncateRunes(content, classifyTextBudget)),
		Temperature: providers.Temperature(0),
	})
	if err != nil {
		c.log.Ctx(ctx).Warn("classification failed, using default category", "error", err)
		return DefaultCategory
	}
	return MatchCategory(resp.Text)
}

// MatchCategory maps free-form model output onto a known category.
func MatchCategory(raw string) string {
	low := strings.ToLower(strings.TrimSpace(raw))
	for _, cat := range Categories {
		if low == cat {
			return cat
		}
	}
	for _, cat := range Categories {
		if strings.Contains(low, cat) {
			return cat
		}
	}
	return DefaultCategory
}
