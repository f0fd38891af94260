package conversation

import (
	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

// historyFromExchanges mirrors chat.Expand but keeps the stored columns so
// the gateway can prefer them over display content.
func historyFromExchanges(exchanges []chat.Exchange) []ai.HistoryItem {
	sorted := chat.SortExchanges(exchanges)
	out := make([]ai.HistoryItem, 0, 2*len(sorted))
	for _, e := range sorted {
		out = append(out, ai.HistoryItem{
			Role:     string(chat.RoleUser),
			Content:  e.Query,
			Query:    e.Query,
			Datatext: e.Response(),
		})
		if e.HasReply() {
			out = append(out, ai.HistoryItem{
				Role:     string(chat.RoleAssistant),
				Content:  e.Response(),
				Query:    e.Query,
				Datatext: e.Response(),
			})
		}
	}
	return out
}
