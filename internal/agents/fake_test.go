package agents

import (
	"context"
	"errors"

	"readcast/internal/providers"
)

type fakeLLM struct {
	text string
	err  error
	reqs []providers.GenerateRequest
}

func (f *fakeLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	_ = ctx
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return providers.GenerateResponse{}, providers.ProviderInfo{Name: "fake"}, f.err
	}
	return providers.GenerateResponse{Text: f.text}, providers.ProviderInfo{Name: "fake", Model: "fake-1"}, nil
}

var errUnauthorized = errors.New("401 unauthorized")
