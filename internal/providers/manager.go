package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"readcast/internal/config"
	"readcast/internal/logger"

	"github.com/google/uuid"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

// CallRecord describes one provider call for the audit trail.
type CallRecord struct {
	CallID       string
	Operation    string
	ProviderName string
	Model        string
	RequestID    string
	Status       string
	ErrorType    string
}

type Auditor interface {
	RecordLLMCall(ctx context.Context, rec CallRecord) error
}

// Manager fans a request out over the configured providers in preference order,
// retrying rate-limited and transient failures and benching providers that are
// out of quota or failing permanently.
type Manager struct {
	llmProviders []NamedLLMProvider
	auditor      Auditor
	log          *logger.Logger

	mu            sync.Mutex
	disabledUntil map[int]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewManager(cfg config.Config, log *logger.Logger) (*Manager, error) {
	m := newManager(log)
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: p})
	}
	return m, nil
}

// NewStaticManager wraps already-built providers, mostly for tests.
func NewStaticManager(log *logger.Logger, named ...NamedLLMProvider) *Manager {
	m := newManager(log)
	m.llmProviders = append(m.llmProviders, named...)
	return m
}

func newManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		log:           log.Component("providers"),
		disabledUntil: map[int]time.Time{},
		now:           time.Now,
		sleep:         sleepContext,
	}
}

func (m *Manager) SetAuditor(a Auditor) {
	m.auditor = a
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func (m *Manager) PreferredLLMOrder() []int {
	n := len(m.llmProviders)
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if strings.ToLower(m.llmProviders[i].Ref.Name) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if strings.ToLower(m.llmProviders[i].Ref.Name) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func (m *Manager) FindLLMProviderByName(name string) (LLMProvider, ProviderRef, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return nil, ProviderRef{}, false
	}
	for i := range m.llmProviders {
		if strings.ToLower(m.llmProviders[i].Ref.Name) == target {
			return m.llmProviders[i].Provider, m.llmProviders[i].Ref, true
		}
	}
	return nil, ProviderRef{}, false
}

func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return m.failover(ctx, req, func(p LLMProvider) (GenerateResponse, ProviderInfo, error) {
		return p.Generate(ctx, req)
	})
}

// ErrStreamInterrupted means a stream failed after chunks reached the caller.
// Such a call is not retried on any provider.
var ErrStreamInterrupted = errors.New("llm stream interrupted")

// Stream uses the first provider that supports streaming and falls back to a
// single chunk from Generate for providers that do not.
func (m *Manager) Stream(ctx context.Context, req GenerateRequest, onChunk func(string)) (GenerateResponse, ProviderInfo, error) {
	return m.failover(ctx, req, func(p LLMProvider) (GenerateResponse, ProviderInfo, error) {
		if s, ok := p.(Streamer); ok {
			sent := false
			resp, info, err := s.Stream(ctx, req, func(chunk string) {
				sent = true
				if onChunk != nil {
					onChunk(chunk)
				}
			})
			if err != nil && sent {
				err = fmt.Errorf("%w: %w", ErrStreamInterrupted, err)
			}
			return resp, info, err
		}
		resp, info, err := p.Generate(ctx, req)
		if err == nil && onChunk != nil && resp.Text != "" {
			onChunk(resp.Text)
		}
		return resp, info, err
	})
}

func (m *Manager) failover(ctx context.Context, req GenerateRequest, call func(LLMProvider) (GenerateResponse, ProviderInfo, error)) (GenerateResponse, ProviderInfo, error) {
	order := m.PreferredLLMOrder()
	if len(order) == 0 {
		return GenerateResponse{}, ProviderInfo{}, fmt.Errorf("no llm providers configured")
	}
	requestID := uuid.NewString()
	retryCounts := map[int]int{}
	var lastErr error
	for attempt := 0; attempt < len(order)*4; attempt++ {
		idx := order[attempt%len(order)]
		if m.isDisabled(idx) {
			continue
		}
		named := m.llmProviders[idx]
		resp, info, err := call(named.Provider)
		if info.Name == "" {
			info.Name = named.Ref.Name
		}
		if err == nil {
			m.audit(ctx, req.Operation, info, requestID, "ok", "")
			return resp, info, nil
		}
		lastErr = err
		errType := ClassifyError(err)
		m.audit(ctx, req.Operation, info, requestID, "failed", string(errType))
		m.log.Ctx(ctx).Warn("llm call failed", "operation", req.Operation, "provider", named.Ref.Raw, "error_type", errType, "error", err)
		if errors.Is(err, ErrStreamInterrupted) {
			return GenerateResponse{}, info, err
		}
		retryCounts[idx]++
		switch errType {
		case ErrorQuota:
			m.disable(idx, 15*time.Minute)
		case ErrorRate:
			if retryCounts[idx] <= 2 {
				if err := m.sleep(ctx, time.Duration(retryCounts[idx]*2)*time.Second); err != nil {
					return GenerateResponse{}, info, err
				}
				attempt--
			} else {
				m.disable(idx, 2*time.Minute)
			}
		case ErrorTransient:
			if retryCounts[idx] <= 2 {
				if err := m.sleep(ctx, time.Duration(retryCounts[idx])*time.Second); err != nil {
					return GenerateResponse{}, info, err
				}
				attempt--
			}
		case ErrorContext:
			return GenerateResponse{}, info, err
		default:
			m.disable(idx, time.Minute)
		}
		if ctx.Err() != nil {
			return GenerateResponse{}, info, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all llm providers exhausted")
	}
	return GenerateResponse{}, ProviderInfo{}, lastErr
}

func (m *Manager) isDisabled(idx int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.disabledUntil[idx]
	return ok && m.now().Before(until)
}

func (m *Manager) disable(idx int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabledUntil[idx] = m.now().Add(d)
}

func (m *Manager) audit(ctx context.Context, op string, info ProviderInfo, requestID, status, errType string) {
	if m.auditor == nil {
		return
	}
	rec := CallRecord{
		Operation:    op,
		ProviderName: info.Name,
		Model:        info.Model,
		RequestID:    requestID,
		Status:       status,
		ErrorType:    errType,
	}
	if err := m.auditor.RecordLLMCall(context.WithoutCancel(ctx), rec); err != nil {
		m.log.Ctx(ctx).Warn("record llm call failed", "operation", op, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func buildProvider(ref ProviderRef, cfg config.Config) (LLMProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "openai":
		return NewOpenAIProvider(OpenAIOptions{
			Name: "openai", KeyName: ref.KeyAlias, Model: cfg.OpenAIModel,
			APIKey: resolveKey("openai", ref.KeyAlias, "OPENAI_API_KEY"),
		}), nil
	case "deepseek":
		return NewOpenAIProvider(OpenAIOptions{
			Name: "deepseek", KeyName: ref.KeyAlias, Model: cfg.DeepSeekModel, BaseURL: cfg.DeepSeekBaseURL,
			APIKey: resolveKey("deepseek", ref.KeyAlias, "DEEPSEEK_API_KEY"),
		}), nil
	case "groq":
		return NewOpenAIProvider(OpenAIOptions{
			Name: "groq", KeyName: ref.KeyAlias, Model: "llama-3.1-8b-instant", BaseURL: "https://api.groq.com/openai/v1",
			APIKey: resolveKey("groq", ref.KeyAlias, "GROQ_API_KEY"),
		}), nil
	case "anthropic":
		return NewAnthropicProvider(ref.KeyAlias, resolveKey("anthropic", ref.KeyAlias, "ANTHROPIC_API_KEY"), cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
