package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

var ErrPromptRequired = errors.New("prompt is required")

type GatewayConfig struct {
	Provider   string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Gateway turns a prompt plus prior history into one generated text.
type Gateway struct {
	registry *Registry
	cfg      GatewayConfig
}

func NewGateway(registry *Registry, cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if !registry.Has(cfg.Provider) {
		log.Printf("[Gateway] provider %q is not registered, known=%v", cfg.Provider, registry.Names())
	}
	return &Gateway{registry: registry, cfg: cfg}
}

func (g *Gateway) GenerateText(ctx context.Context, prompt string, history []HistoryItem) (string, error) {
	if prompt == "" {
		return "", ErrPromptRequired
	}

	msgs := NormalizeHistory(history)
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})
	return g.generate(ctx, g.cfg.TextModel, msgs)
}

func (g *Gateway) GenerateImage(ctx context.Context, prompt string, history []HistoryItem) (string, error) {
	if prompt == "" {
		return "", ErrPromptRequired
	}

	msgs := []Message{{Role: RoleUser, Content: ContextPrompt(history, prompt)}}
	return g.generate(ctx, g.cfg.ImageModel, msgs)
}

func (g *Gateway) generate(ctx context.Context, model string, msgs []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	provider, err := g.registry.Get(ctx, g.cfg.Provider, model)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := provider.Chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate with %s/%s: %w", g.cfg.Provider, model, err)
	}
	log.Printf("[Gateway] provider=%s model=%s turns=%d elapsed=%s", g.cfg.Provider, model, len(msgs), time.Since(start))
	return text, nil
}
