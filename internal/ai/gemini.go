package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type GeminiProvider struct {
	Model string
	llm   llms.Model
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
		googleai.WithHarmThreshold(googleai.HarmBlockMediumAndAbove),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiProvider{Model: model, llm: llm}, nil
}

// NewGeminiFactory builds one client per model and reuses it.
func NewGeminiFactory(apiKey string) ProviderFactory {
	var (
		mu    sync.Mutex
		cache = make(map[string]*GeminiProvider)
	)
	return func(ctx context.Context, model string) (Provider, error) {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := cache[model]; ok {
			return p, nil
		}
		p, err := NewGeminiProvider(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		cache[model] = p
		return p, nil
	}
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.llm == nil {
		return "", errors.New("gemini: client is nil")
	}
	content := toMessageContent(messages)
	if len(content) == 0 {
		return "", errors.New("gemini: no messages")
	}

	resp, err := p.llm.GenerateContent(ctx, content, llms.WithModel(p.Model))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return resp.Choices[0].Content, nil
}

// toMessageContent folds consecutive turns of the same role together;
// the API rejects multi-turn requests that do not alternate.
func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleModel:
			role = llms.ChatMessageTypeAI
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, llms.TextContent{Text: m.Content})
			continue
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}
