package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"readcast/internal/models"
	"readcast/internal/providers"
	"readcast/internal/session"
	"readcast/internal/util"
)

const (
	OpDocumentQA = "document_qa"

	qaContextBudget = 6000
	qaHistoryTurns  = 10
)

// Tutor answers learner questions about one study document.
type Tutor struct {
	llm providers.LLMProvider
}

func NewTutor(llm providers.LLMProvider) *Tutor {
	return &Tutor{llm: llm}
}

type Question struct {
	Document models.StudyDocument
	Language models.LanguageMode
	History  []session.Turn
	Text     string
}

func (t *Tutor) Answer(ctx context.Context, q Question) (string, error) {
	resp, _, err := t.llm.Generate(ctx, t.request(q))
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Stream emits the answer chunk by chunk when the port supports it and returns the full text.
func (t *Tutor) Stream(ctx context.Context, q Question, onChunk func(string)) (string, error) {
	s, ok := t.llm.(providers.Streamer)
	if !ok {
		answer, err := t.Answer(ctx, q)
		if err == nil && onChunk != nil {
			onChunk(answer)
		}
		return answer, err
	}
	resp, _, err := s.Stream(ctx, t.request(q), onChunk)
	if err != nil {
		return "", fmt.Errorf("stream answer: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (t *Tutor) request(q Question) providers.GenerateRequest {
	system := "You are a patient English tutor. Answer the learner's question using the study document below. " +
		"If the document does not cover it, say so briefly and give a general explanation."
	if q.Language == models.LanguageEnglish {
		system += " Answer in English only."
	} else {
		system += " Answer mainly in English and add short Chinese explanations where they help."
	}
	docJSON, _ := json.Marshal(q.Document)

	var b strings.Builder
	history := q.History
	if len(history) > qaHistoryTurns {
		history = history[len(history)-qaHistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s", strings.TrimSpace(q.Text))
	return providers.GenerateRequest{
		Operation:   OpDocumentQA,
		System:      system,
		Prompt:      b.String(),
		Context:     []string{util.TruncateRunes(string(docJSON), qaContextBudget)},
		Temperature: providers.Temperature(0.7),
	}
}
