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
	OpPodcastScript = "podcast_script"

	scriptPointsBudget = 3000
	scriptTermsBudget  = 1000
)

// ScriptGenerator turns a StudyDocument into a podcast script. It never fails on
// malformed output: a one-segment script built from the summary is returned instead.
type ScriptGenerator struct {
	llm providers.LLMProvider
	log *logger.Logger
}

func NewScriptGenerator(llm providers.LLMProvider, log *logger.Logger) *ScriptGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &ScriptGenerator{llm: llm, log: log.Component("script_generator")}
}

func (g *ScriptGenerator) Generate(ctx context.Context, doc models.StudyDocument, mode models.PodcastMode, lang models.LanguageMode) (models.PodcastScript, error) {
	resp, _, err := g.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   OpPodcastScript,
		System:      scriptSystemPrompt(mode, lang),
		Prompt:      scriptPrompt(doc),
		Temperature: providers.Temperature(0.5),
	})
	if err != nil {
		return models.PodcastScript{}, fmt.Errorf("generate podcast script: %w", err)
	}
	res := ExtractJSON[models.PodcastScript](resp.Text)
	script := res.Value
	if res.Ok() {
		script = cleanScript(script)
	}
	if !res.Ok() || len(script.Segments) == 0 {
		g.log.Ctx(ctx).Warn("podcast script output not usable, using fallback", "outcome", res.Outcome.String(), "raw_len", len(resp.Text))
		script = FallbackScript(doc, mode, lang)
	}
	script.Mode = mode
	return script, nil
}

// FallbackScript is the minimal script used when the model output cannot be used.
func FallbackScript(doc models.StudyDocument, mode models.PodcastMode, lang models.LanguageMode) models.PodcastScript {
	s := models.PodcastScript{
		Mode:  mode,
		Intro: "欢迎收听本期学习播客。",
		Outro: "感谢收听，我们下期再见。",
	}
	seg := models.ScriptSegment{Content: strings.TrimSpace(doc.Summary), Language: "zh"}
	if seg.Content == "" {
		seg.Content = "今天我们来学习这篇文档的内容。"
	}
	if lang == models.LanguageEnglish {
		s.Intro = "Welcome to this episode of our study podcast."
		s.Outro = "Thanks for listening. See you next time."
		seg.Language = "en"
		if strings.TrimSpace(doc.Summary) == "" {
			seg.Content = "Today we are going to study the content of this document."
		}
	}
	if mode == models.PodcastDialogue {
		seg.Speaker = "Teacher"
	}
	s.Segments = []models.ScriptSegment{seg}
	return s
}

func cleanScript(s models.PodcastScript) models.PodcastScript {
	kept := make([]models.ScriptSegment, 0, len(s.Segments))
	for _, seg := range s.Segments {
		seg.Content = strings.TrimSpace(seg.Content)
		if seg.Content == "" {
			continue
		}
		seg.Speaker = strings.TrimSpace(seg.Speaker)
		seg.Language = strings.ToLower(strings.TrimSpace(seg.Language))
		if seg.Language != "zh" && seg.Language != "en" {
			seg.Language = ""
		}
		kept = append(kept, seg)
	}
	s.Segments = kept
	s.Intro = strings.TrimSpace(s.Intro)
	s.Outro = strings.TrimSpace(s.Outro)
	return s
}

func scriptSystemPrompt(mode models.PodcastMode, lang models.LanguageMode) string {
	var b strings.Builder
	b.WriteString("You write scripts for a short English-learning podcast.\n\n")
	if mode == models.PodcastDialogue {
		b.WriteString("Write a dialogue between two roles, \"Teacher\" and \"Student\", taking turns. Set each segment's speaker to the role name.\n")
	} else {
		b.WriteString("Write a monologue by a single first-person narrator. Leave speaker empty.\n")
	}
	if lang == models.LanguageEnglish {
		b.WriteString("Use English only (100%). Every segment's language is \"en\".\n")
	} else {
		b.WriteString("Use about 80-90% English and 10-20% Chinese explanations. Tag each segment's language as \"en\" or \"zh\" by its main language.\n")
	}
	b.WriteString(`
Respond with a single JSON object of this shape and nothing else:
{
  "mode": "solo or dialogue",
  "intro": "opening line",
  "segments": [{"speaker": "...", "content": "...", "language": "en"}],
  "outro": "closing line"
}`)
	return b.String()
}

func scriptPrompt(doc models.StudyDocument) string {
	var points strings.Builder
	for _, kp := range doc.KnowledgePoints {
		fmt.Fprintf(&points, "- %s: %s\n", kp.Point, kp.Explanation)
	}
	for _, d := range doc.Difficulties {
		fmt.Fprintf(&points, "- %s: %s\n", d.Difficulty, d.Explanation)
		for _, ex := range d.Examples {
			fmt.Fprintf(&points, "  e.g. %s\n", ex)
		}
	}
	var terms strings.Builder
	for _, t := range doc.Terminology {
		fmt.Fprintf(&terms, "- %s: %s\n", t.Term, t.Definition)
	}
	termText := util.TruncateRunes(terms.String(), scriptTermsBudget)
	if strings.TrimSpace(termText) == "" {
		termText = "无"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nSummary:\n%s\n\n", doc.Title, doc.Summary)
	fmt.Fprintf(&b, "Knowledge points and difficulties:\n%s\n\n", util.TruncateRunes(points.String(), scriptPointsBudget))
	fmt.Fprintf(&b, "Terminology:\n%s\n", termText)
	if c := strings.TrimSpace(doc.CustomContent); c != "" {
		fmt.Fprintf(&b, "\nAdditional content:\n%s\n", util.TruncateRunes(c, scriptPointsBudget))
	}
	return b.String()
}
