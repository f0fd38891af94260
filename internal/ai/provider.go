package ai

import (
	"context"
	"errors"
)

const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

var ErrMissingAPIKey = errors.New("ai provider api key is not configured")

// Message is one turn of the provider-neutral conversation. Role is one of
// RoleUser, RoleModel or RoleSystem; providers translate it to their own wire.
type Message struct {
	Role    string
	Content string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// openAIRole maps the neutral roles onto the chat-completions vocabulary
// used by ollama and openrouter.
func openAIRole(role string) string {
	switch role {
	case RoleModel:
		return "assistant"
	case RoleSystem:
		return "system"
	default:
		return "user"
	}
}
