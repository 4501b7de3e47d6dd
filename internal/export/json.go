package export

import (
	"encoding/json"
	"fmt"
	"time"

	"readcast/internal/models"
)

type Envelope struct {
	Metadata EnvelopeMetadata     `json:"metadata"`
	Content  models.StudyDocument `json:"content"`
}

type EnvelopeMetadata struct {
	Title        string    `json:"title"`
	ArticleTitle string    `json:"articleTitle,omitempty"`
	Difficulty   string    `json:"difficulty"`
	Type         string    `json:"type"`
	Language     string    `json:"language"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// NewEnvelope wraps doc and its metadata; language defaults to bilingual.
func NewEnvelope(doc models.StudyDocument, m Metadata) Envelope {
	lang := m.Language
	if lang == "" {
		lang = models.LanguageBilingual
	}
	title := m.Title
	if title == "" {
		title = doc.Title
	}
	return Envelope{
		Metadata: EnvelopeMetadata{
			Title:        title,
			ArticleTitle: m.ArticleTitle,
			Difficulty:   string(m.Difficulty),
			Type:         string(m.Kind),
			Language:     string(lang),
			GeneratedAt:  generatedAt(m).UTC(),
		},
		Content: doc,
	}
}

func JSON(doc models.StudyDocument, m Metadata) ([]byte, error) {
	b, err := json.MarshalIndent(NewEnvelope(doc, m), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return b, nil
}
