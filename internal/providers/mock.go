package providers

import (
	"context"
	"strings"
)

// MockProvider returns canned, well-formed output per operation so the whole
// pipeline runs without credentials.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	op := strings.ToLower(req.Operation)
	text := "Mock response."
	switch {
	case strings.Contains(op, "qa"), strings.Contains(op, "ask"):
		text = "This is a deterministic mock answer based on the document."
	case strings.Contains(op, "script"):
		text = `Here is the script:
{"mode":"solo","intro":"Welcome to today's episode.","segments":[{"speaker":"Host","content":"Let's review the key points of this document.","language":"en"}],"outro":"Thanks for listening."}`
	case strings.Contains(op, "document"):
		text = `{"title":"Mock Study Document","summary":"A deterministic summary for local development.","knowledgePoints":[{"point":"Mock point","explanation":"Generated without a real provider."}],"difficulties":[{"difficulty":"Mock difficulty","explanation":"Replace the mock provider for real output.","examples":["This is an example."]}],"terminology":[]}`
	case strings.Contains(op, "classify"):
		text = "general"
	}
	return GenerateResponse{Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}

func (m *MockProvider) Stream(ctx context.Context, req GenerateRequest, onChunk func(string)) (GenerateResponse, ProviderInfo, error) {
	resp, info, err := m.Generate(ctx, req)
	if err != nil {
		return resp, info, err
	}
	if onChunk != nil {
		for _, word := range strings.SplitAfter(resp.Text, " ") {
			onChunk(word)
		}
	}
	return resp, info, nil
}
