package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

// GenerateRequest is one prompt for a text-generation backend. System carries the
// instructions, Prompt the user message, and Context optional extra material appended to it.
type GenerateRequest struct {
	Operation   string   `json:"operation"`
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt"`
	Context     []string `json:"context,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

// Streamer is implemented by providers that can emit an answer in pieces.
// onChunk is called in order; the returned response holds the full text.
type Streamer interface {
	Stream(ctx context.Context, req GenerateRequest, onChunk func(string)) (GenerateResponse, ProviderInfo, error)
}

func Temperature(t float64) *float64 {
	return &t
}

func userMessage(req GenerateRequest) string {
	if len(req.Context) == 0 {
		return req.Prompt
	}
	out := req.Prompt + "\n\nContext:\n"
	for i, c := range req.Context {
		if i > 0 {
			out += "\n\n"
		}
		out += c
	}
	return out
}
