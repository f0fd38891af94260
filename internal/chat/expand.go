package chat

import (
	"sort"
	"strconv"
)

// SortExchanges orders exchanges by creation time, oldest first, breaking
// ties by id. The input slice is left untouched.
func SortExchanges(exchanges []Exchange) []Exchange {
	out := append([]Exchange(nil), exchanges...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Expand turns stored exchanges into the display list: a user message per
// exchange, followed by its assistant message when the exchange has a reply.
func Expand(exchanges []Exchange) []DisplayMessage {
	sorted := SortExchanges(exchanges)
	out := make([]DisplayMessage, 0, 2*len(sorted))
	for _, e := range sorted {
		id := strconv.FormatUint(e.ID, 10)
		out = append(out, DisplayMessage{
			ID:        "user-" + id,
			Role:      RoleUser,
			Content:   e.Query,
			SessionID: e.SessionID,
			CreatedAt: e.CreatedAt,
		})
		if e.HasReply() {
			out = append(out, DisplayMessage{
				ID:        "assistant-" + id,
				Role:      RoleAssistant,
				Content:   *e.Datatext,
				SessionID: e.SessionID,
				CreatedAt: e.CreatedAt,
			})
		}
	}
	return out
}
