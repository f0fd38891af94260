package ai

import "strings"

// HistoryItem is the wire shape of prior conversation turns sent by clients.
// Query and Datatext carry the stored exchange columns when the item was
// derived from a persisted exchange.
type HistoryItem struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Query    string `json:"query,omitempty"`
	Datatext string `json:"datatext,omitempty"`
}

// NormalizeHistory drops leading non-user items, maps every non-user role to
// RoleModel and prefers the stored query/datatext over display content.
func NormalizeHistory(history []HistoryItem) []Message {
	start := 0
	for start < len(history) && history[start].Role != RoleUser {
		start++
	}

	out := make([]Message, 0, len(history)-start)
	for _, h := range history[start:] {
		if h.Role == RoleUser {
			out = append(out, Message{Role: RoleUser, Content: firstNonEmpty(h.Query, h.Content)})
			continue
		}
		out = append(out, Message{Role: RoleModel, Content: firstNonEmpty(h.Datatext, h.Content)})
	}
	return out
}

// ContextPrompt collapses history into a single instruction for the image
// model, which takes no multi-turn input.
func ContextPrompt(history []HistoryItem, prompt string) string {
	if len(history) == 0 {
		return prompt
	}
	parts := make([]string, 0, len(history))
	for _, h := range history {
		parts = append(parts, h.Content)
	}
	return "Based on our conversation: " + strings.Join(parts, " ") + "\n\nNow, " + prompt
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
