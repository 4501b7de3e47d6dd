package models

import (
	"fmt"
	"strings"
	"time"
)

type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"
)

func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyLow, DifficultyMedium, DifficultyHigh:
		return d, nil
	default:
		return "", fmt.Errorf("invalid difficulty %q", raw)
	}
}

type LanguageMode string

const (
	LanguageBilingual LanguageMode = "bilingual"
	LanguageEnglish   LanguageMode = "english"
)

// ParseLanguage treats an empty value as bilingual.
func ParseLanguage(raw string) (LanguageMode, error) {
	switch l := LanguageMode(strings.ToLower(strings.TrimSpace(raw))); l {
	case "":
		return LanguageBilingual, nil
	case LanguageBilingual, LanguageEnglish:
		return l, nil
	default:
		return "", fmt.Errorf("invalid language %q", raw)
	}
}

type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat treats an empty value as pdf.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatPDF, nil
	case "markdown":
		return FormatMarkdown, nil
	case FormatPDF, FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q", raw)
	}
}

type PodcastMode string

const (
	PodcastSolo     PodcastMode = "solo"
	PodcastDialogue PodcastMode = "dialogue"
)

func ParsePodcastMode(raw string) (PodcastMode, error) {
	switch m := PodcastMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case PodcastSolo, PodcastDialogue:
		return m, nil
	default:
		return "", fmt.Errorf("invalid podcast mode %q", raw)
	}
}

type SubjectKind string

const (
	SubjectArticle   SubjectKind = "article"
	SubjectFavorites SubjectKind = "favorites"
)

type FavoritesSelection string

const (
	SelectToday    FavoritesSelection = "today"
	SelectSelected FavoritesSelection = "selected"
)

func ParseSelection(raw string) (FavoritesSelection, error) {
	switch s := FavoritesSelection(strings.ToLower(strings.TrimSpace(raw))); s {
	case SelectToday, SelectSelected:
		return s, nil
	default:
		return "", fmt.Errorf("invalid favorites type %q", raw)
	}
}

type KnowledgePoint struct {
	Point       string `json:"point"`
	Explanation string `json:"explanation"`
}

type DifficultyNote struct {
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation"`
	Examples    []string `json:"examples,omitempty"`
}

type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Context    string `json:"context,omitempty"`
}

// StudyDocument is the structured study material generated for an article or a favorites set.
type StudyDocument struct {
	Title           string           `json:"title"`
	Summary         string           `json:"summary"`
	KnowledgePoints []KnowledgePoint `json:"knowledgePoints"`
	Difficulties    []DifficultyNote `json:"difficulties"`
	Terminology     []Term           `json:"terminology"`
	CustomContent   string           `json:"customContent,omitempty"`
}

// HasBody reports whether the document carries content beyond its summary.
func (d StudyDocument) HasBody() bool {
	return len(d.KnowledgePoints) > 0 || len(d.Difficulties) > 0 || strings.TrimSpace(d.CustomContent) != ""
}

type ScriptSegment struct {
	Speaker  string `json:"speaker,omitempty"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

type PodcastScript struct {
	Mode     PodcastMode     `json:"mode"`
	Segments []ScriptSegment `json:"segments"`
	Intro    string          `json:"intro,omitempty"`
	Outro    string          `json:"outro,omitempty"`
}

// DocumentRecord is one persisted generation result and the cache unit for its parameter tuple.
type DocumentRecord struct {
	ID                 int64          `json:"id"`
	Kind               SubjectKind    `json:"type"`
	ArticleID          *int64         `json:"articleId,omitempty"`
	UserID             string         `json:"userId"`
	Difficulty         Difficulty     `json:"difficulty"`
	Language           LanguageMode   `json:"language"`
	CustomRequirements string         `json:"customRequirements,omitempty"`
	Document           *StudyDocument `json:"documentContent,omitempty"`
	PDFPath            string         `json:"pdfPath,omitempty"`
	PodcastPath        string         `json:"podcastPath,omitempty"`
	PodcastMode        PodcastMode    `json:"podcastMode,omitempty"`
	PodcastScript      *PodcastScript `json:"podcastScript,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// CacheKey is the parameter tuple under which a generated document may be reused.
type CacheKey struct {
	Kind               SubjectKind
	ArticleID          int64
	UserID             string
	Difficulty         Difficulty
	Language           LanguageMode
	CustomRequirements string
}

func (k CacheKey) Normalized() CacheKey {
	k.CustomRequirements = strings.TrimSpace(k.CustomRequirements)
	if k.Kind == SubjectFavorites {
		k.ArticleID = 0
	}
	return k
}

type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source,omitempty"`
	Type      string    `json:"type,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type FavoriteSentence struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"userId"`
	ArticleID        *int64    `json:"articleId,omitempty"`
	Sentence         string    `json:"sentence"`
	OriginalSentence string    `json:"originalSentence,omitempty"`
	Explanation      string    `json:"explanation,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	ArticleTitle     string    `json:"articleTitle,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
