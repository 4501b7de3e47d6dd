package providers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
// (OpenAI itself, DeepSeek, Groq, a local Ollama).
type OpenAIProvider struct {
	name    string
	keyName string
	apiKey  string
	model   string
	client  openai.Client
}

type OpenAIOptions struct {
	Name    string
	KeyName string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewOpenAIProvider(o OpenAIOptions) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base+"/"))
	}
	if o.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(o.Timeout))
	}
	name := o.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{
		name:    name,
		keyName: o.KeyName,
		apiKey:  o.APIKey,
		model:   o.Model,
		client:  openai.NewClient(opts...),
	}
}

func (o *OpenAIProvider) info() ProviderInfo {
	return ProviderInfo{Name: o.name, Model: o.model, Key: o.keyName}
}

func (o *OpenAIProvider) params(req GenerateRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(userMessage(req)))
	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: messages,
	}
	if req.Temperature != nil {
		p.Temperature = openai.Float(*req.Temperature)
	}
	return p
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if o.apiKey == "" {
		return GenerateResponse{}, o.info(), fmt.Errorf("%s key missing for alias %q", o.name, o.keyName)
	}
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return GenerateResponse{}, o.info(), fmt.Errorf("%s generate request failed: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResponse{}, o.info(), fmt.Errorf("%s returned empty choices", o.name)
	}
	return GenerateResponse{Text: resp.Choices[0].Message.Content}, o.info(), nil
}

func (o *OpenAIProvider) Stream(ctx context.Context, req GenerateRequest, onChunk func(string)) (GenerateResponse, ProviderInfo, error) {
	if o.apiKey == "" {
		return GenerateResponse{}, o.info(), fmt.Errorf("%s key missing for alias %q", o.name, o.keyName)
	}
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req))
	defer stream.Close()
	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return GenerateResponse{}, o.info(), fmt.Errorf("%s stream failed: %w", o.name, err)
	}
	return GenerateResponse{Text: full.String()}, o.info(), nil
}

// resolveKey prefers READCAST_<NAME>_KEY_<ALIAS>, then the vendor's usual variable.
func resolveKey(name, alias, fallbackEnv string) string {
	if alias != "" {
		k := os.Getenv("READCAST_" + strings.ToUpper(name) + "_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv(fallbackEnv)
}
