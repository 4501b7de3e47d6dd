// Package export renders a StudyDocument as JSON, Markdown, PDF or an HTML preview.
package export

import (
	"time"

	"readcast/internal/models"
)

// Metadata is shared by every output format.
type Metadata struct {
	Title        string
	ArticleTitle string
	Difficulty   models.Difficulty
	Kind         models.SubjectKind
	Language     models.LanguageMode
	GeneratedAt  time.Time
}

// Labels holds the user-visible section names for one language mode.
type Labels struct {
	TOC             string
	Summary         string
	KnowledgePoints string
	Difficulties    string
	Terminology     string
	CustomContent   string
	Original        string
	Difficulty      string
	GeneratedAt     string
	Examples        string
	Definition      string
	Context         string
	NoSummary       string
	Levels          map[models.Difficulty]string
	// Colon ends a field name, "：" in Chinese and ": " in English.
	Colon string
}

var chineseLabels = Labels{
	TOC:             "目录",
	Summary:         "摘要",
	KnowledgePoints: "知识点",
	Difficulties:    "难点解析",
	Terminology:     "术语表",
	CustomContent:   "补充内容",
	Original:        "原文",
	Difficulty:      "难度",
	GeneratedAt:     "生成时间",
	Examples:        "示例",
	Definition:      "定义",
	Context:         "上下文",
	NoSummary:       "暂无摘要",
	Levels: map[models.Difficulty]string{
		models.DifficultyLow:    "低",
		models.DifficultyMedium: "中",
		models.DifficultyHigh:   "高",
	},
	Colon: "：",
}

var englishLabels = Labels{
	TOC:             "Contents",
	Summary:         "Summary",
	KnowledgePoints: "Knowledge Points",
	Difficulties:    "Difficulties",
	Terminology:     "Terminology",
	CustomContent:   "Additional Content",
	Original:        "Original",
	Difficulty:      "Difficulty",
	GeneratedAt:     "Generated",
	Examples:        "Examples",
	Definition:      "Definition",
	Context:         "Context",
	NoSummary:       "No summary available.",
	Levels: map[models.Difficulty]string{
		models.DifficultyLow:    "Low",
		models.DifficultyMedium: "Medium",
		models.DifficultyHigh:   "High",
	},
	Colon: ": ",
}

// LabelsFor picks Chinese labels for bilingual documents and English ones otherwise.
func LabelsFor(lang models.LanguageMode) Labels {
	if lang == models.LanguageEnglish {
		return englishLabels
	}
	return chineseLabels
}

func (l Labels) Level(d models.Difficulty) string {
	if s, ok := l.Levels[d]; ok {
		return s
	}
	return string(d)
}

// Field is name followed by the colon, e.g. "Original: " or "原文：".
func (l Labels) Field(name string) string {
	return name + l.Colon
}

const timeLayout = "2006-01-02 15:04"

func generatedAt(m Metadata) time.Time {
	if m.GeneratedAt.IsZero() {
		return time.Now()
	}
	return m.GeneratedAt
}
