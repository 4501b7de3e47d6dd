package agents

import (
	"context"
	"fmt"
	"strings"

	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/providers"
	"readcast/internal/util"
)

const (
	OpStudyDocument     = "study_document"
	OpFavoritesDocument = "favorites_document"

	documentTextBudget = 8000
	summaryPrefixRunes = 200
)

var difficultyPresets = map[models.Difficulty]string{
	models.DifficultyLow:    "Target beginners (CEFR A2-B1). Use common vocabulary, short sentences, and explain every grammar point step by step.",
	models.DifficultyMedium: "Target intermediate learners (CEFR B1-B2). Use moderately rich vocabulary, compound sentences, and explain idioms and collocations.",
	models.DifficultyHigh:   "Target advanced learners (CEFR C1+). Use precise academic vocabulary, complex structures, and analyze rhetoric and nuance.",
}

var languagePresets = map[models.LanguageMode]string{
	models.LanguageBilingual: "Write 80-90% of the content in English. Add short Chinese glosses in parentheses only for hard words or key explanations.",
	models.LanguageEnglish:   "Write everything in English only. Do not output any Chinese characters.",
}

var typeHints = map[string]string{
	"politics":   "This is a political/news article: focus on formal news register, political vocabulary, and how facts and opinions are reported.",
	"news":       "This is a political/news article: focus on formal news register, political vocabulary, and how facts and opinions are reported.",
	"sports":     "This is a sports article: focus on sports terminology, action verbs, and vivid descriptive language.",
	"technology": "This is a technology article: focus on technical terms, explanations of concepts, and precise descriptive language.",
}

const documentSchema = `Respond with a single JSON object of this shape and nothing else:
{
  "title": "document title",
  "summary": "short summary of the material",
  "knowledgePoints": [{"point": "...", "explanation": "..."}],
  "difficulties": [{"difficulty": "...", "explanation": "...", "examples": ["..."]}],
  "terminology": [{"term": "...", "definition": "...", "context": "..."}]
}`

type DocumentInput struct {
	Text               string
	Title              string
	Difficulty         models.Difficulty
	Language           models.LanguageMode
	CustomRequirements string
	TypeHint           string
}

type FavoritesInput struct {
	Favorites          []models.FavoriteSentence
	Difficulty         models.Difficulty
	Language           models.LanguageMode
	CustomRequirements string
	Selection          models.FavoritesSelection
}

// DocumentGenerator turns article text or favorite sentences into a StudyDocument.
// Unparseable model output degrades to a minimal document; only a failed call is an error.
type DocumentGenerator struct {
	llm providers.LLMProvider
	log *logger.Logger
}

func NewDocumentGenerator(llm providers.LLMProvider, log *logger.Logger) *DocumentGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentGenerator{llm: llm, log: log.Component("document_generator")}
}

func (g *DocumentGenerator) Generate(ctx context.Context, in DocumentInput) (models.StudyDocument, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Create an English study document for the following article.\n\nTitle: %s\n", in.Title)
	if hint, ok := typeHints[strings.ToLower(strings.TrimSpace(in.TypeHint))]; ok {
		b.WriteString("\n" + hint + "\n")
	}
	writeRequirements(&b, in.CustomRequirements)
	fmt.Fprintf(&b, "\nArticle:\n%s\n", util.TruncateRunes(in.Text, documentTextBudget))

	raw, err := g.call(ctx, OpStudyDocument, in.Difficulty, in.Language, b.String())
	if err != nil {
		return models.StudyDocument{}, err
	}
	fallbackTitle := degradedTitle(in.Title, in.Language)
	return g.finish(raw, fallbackTitle, in.Language, OpStudyDocument), nil
}

func (g *DocumentGenerator) GenerateFromFavorites(ctx context.Context, in FavoritesInput) (models.StudyDocument, error) {
	var b strings.Builder
	scope := "the learner's selected favorite sentences"
	if in.Selection == models.SelectToday {
		scope = "the sentences the learner saved today"
	}
	fmt.Fprintf(&b, "Create an English review document from %s.\n", scope)
	writeRequirements(&b, in.CustomRequirements)
	fmt.Fprintf(&b, "\nSentences:\n%s\n", util.TruncateRunes(FormatFavorites(in.Favorites, in.Language), documentTextBudget))

	raw, err := g.call(ctx, OpFavoritesDocument, in.Difficulty, in.Language, b.String())
	if err != nil {
		return models.StudyDocument{}, err
	}
	title := "收藏内容复习文档"
	if in.Language == models.LanguageEnglish {
		title = "Favorite Sentences Review"
	}
	return g.finish(raw, title, in.Language, OpFavoritesDocument), nil
}

func (g *DocumentGenerator) call(ctx context.Context, op string, d models.Difficulty, lang models.LanguageMode, prompt string) (string, error) {
	system := strings.Join([]string{
		"You are an experienced English teacher preparing study material for Chinese-speaking learners.",
		difficultyPresets[d],
		languagePresets[lang],
		documentSchema,
	}, "\n\n")
	resp, _, err := g.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   op,
		System:      system,
		Prompt:      prompt,
		Temperature: providers.Temperature(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("generate study document: %w", err)
	}
	return resp.Text, nil
}

func (g *DocumentGenerator) finish(raw, fallbackTitle string, lang models.LanguageMode, op string) models.StudyDocument {
	res := ExtractJSON[models.StudyDocument](raw)
	doc := res.Value
	if !res.Ok() {
		g.log.Warn("study document output not parseable, degrading", "operation", op, "raw_len", len(raw))
		doc = models.StudyDocument{Title: fallbackTitle, CustomContent: strings.TrimSpace(raw)}
	}
	return NormalizeDocument(doc, raw, fallbackTitle, lang)
}

// NormalizeDocument makes sure a document has a title, a summary and at least one body section.
func NormalizeDocument(doc models.StudyDocument, raw, fallbackTitle string, lang models.LanguageMode) models.StudyDocument {
	raw = strings.TrimSpace(raw)
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = fallbackTitle
	}
	if strings.TrimSpace(doc.Summary) == "" {
		doc.Summary = util.TruncateRunes(raw, summaryPrefixRunes)
	}
	if strings.TrimSpace(doc.Summary) == "" {
		doc.Summary = noSummary(lang)
	}
	if !doc.HasBody() {
		doc.CustomContent = raw
		if doc.CustomContent == "" {
			doc.CustomContent = doc.Summary
		}
	}
	if doc.KnowledgePoints == nil {
		doc.KnowledgePoints = []models.KnowledgePoint{}
	}
	if doc.Difficulties == nil {
		doc.Difficulties = []models.DifficultyNote{}
	}
	if doc.Terminology == nil {
		doc.Terminology = []models.Term{}
	}
	return doc
}

// FormatFavorites renders favorites as numbered sentence/explanation/source triples.
func FormatFavorites(favs []models.FavoriteSentence, lang models.LanguageMode) string {
	explain, source := "解释", "来源"
	if lang == models.LanguageEnglish {
		explain, source = "Explanation", "Source"
	}
	var b strings.Builder
	for i, f := range favs {
		sentence := f.OriginalSentence
		if strings.TrimSpace(sentence) == "" {
			sentence = f.Sentence
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(sentence))
		if e := strings.TrimSpace(f.Explanation); e != "" {
			fmt.Fprintf(&b, "   %s: %s\n", explain, e)
		}
		if s := strings.TrimSpace(f.ArticleTitle); s != "" {
			fmt.Fprintf(&b, "   %s: %s\n", source, s)
		}
		if len(f.Tags) > 0 {
			fmt.Fprintf(&b, "   Tags: %s\n", strings.Join(f.Tags, ", "))
		}
	}
	return b.String()
}

func writeRequirements(b *strings.Builder, custom string) {
	if custom = strings.TrimSpace(custom); custom != "" {
		fmt.Fprintf(b, "\nAdditional requirements from the learner:\n%s\n", custom)
	}
}

func degradedTitle(title string, lang models.LanguageMode) string {
	title = strings.TrimSpace(title)
	if lang == models.LanguageEnglish {
		if title == "" {
			return "Study Document"
		}
		return title + " - Study Document"
	}
	if title == "" {
		return "学习文档"
	}
	return title + " - 学习文档"
}

func noSummary(lang models.LanguageMode) string {
	if lang == models.LanguageEnglish {
		return "No summary available."
	}
	return "暂无摘要"
}
