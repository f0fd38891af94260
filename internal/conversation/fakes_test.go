package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

type memStore struct {
	mu        sync.Mutex
	sessions  []chat.Session // oldest first
	exchanges map[string][]chat.Exchange
	nextID    uint64
	clock     time.Time

	listSessionsErr error
	createErr       error
	insertErr       error
	// onListExchanges runs before ListExchanges returns; a non-nil error fails the call.
	onListExchanges func(sessionID string) error
	// emptyAfterCreate makes ListSessions ignore created sessions.
	emptyAfterCreate bool

	creates int
}

func newMemStore() *memStore {
	return &memStore{
		exchanges: map[string][]chat.Exchange{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addSession(userID, sessionID string) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := chat.Session{SessionID: sessionID, UserID: userID, CreatedAt: s.tick()}
	s.sessions = append(s.sessions, sess)
	return sess
}

func (s *memStore) addExchange(sessionID, query string, datatext *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.exchanges[sessionID] = append(s.exchanges[sessionID], chat.Exchange{
		ID: s.nextID, SessionID: sessionID, Query: query, Datatext: datatext, Kind: chat.KindText, CreatedAt: s.tick(),
	})
}

func (s *memStore) count(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exchanges[sessionID])
}

func (s *memStore) ListSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listSessionsErr != nil {
		return nil, s.listSessionsErr
	}
	if s.emptyAfterCreate {
		return nil, nil
	}
	var out []chat.Session
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if s.sessions[i].UserID == userID {
			out = append(out, s.sessions[i])
		}
	}
	return out, nil
}

func (s *memStore) CreateSession(ctx context.Context, userID string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.creates++
	sess := chat.Session{SessionID: fmt.Sprintf("session-%d", len(s.sessions)+1), UserID: userID, CreatedAt: s.tick()}
	s.sessions = append(s.sessions, sess)
	return &sess, nil
}

func (s *memStore) ListExchanges(ctx context.Context, userID, sessionID string) ([]chat.Exchange, error) {
	if hook := s.hook(); hook != nil {
		if err := hook(sessionID); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Exchange(nil), s.exchanges[sessionID]...), nil
}

func (s *memStore) hook() func(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onListExchanges
}

func (s *memStore) InsertExchange(ctx context.Context, userID, sessionID string, in chat.ExchangeInput) (*chat.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.nextID++
	e := chat.Exchange{ID: s.nextID, SessionID: sessionID, Query: in.Query, Datatext: in.Datatext, Kind: in.Kind, CreatedAt: s.tick()}
	s.exchanges[sessionID] = append(s.exchanges[sessionID], e)
	return &e, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	text    func(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
	image   func(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
	calls   int
	history []ai.HistoryItem
}

func (g *fakeGateway) record(history []ai.HistoryItem) {
	g.mu.Lock()
	g.calls++
	g.history = history
	g.mu.Unlock()
}

func (g *fakeGateway) GenerateText(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error) {
	g.record(history)
	return g.text(ctx, prompt, history)
}

func (g *fakeGateway) GenerateImage(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error) {
	g.record(history)
	return g.image(ctx, prompt, history)
}

func replyWith(text string) func(context.Context, string, []ai.HistoryItem) (string, error) {
	return func(context.Context, string, []ai.HistoryItem) (string, error) { return text, nil }
}

func failWith(err error) func(context.Context, string, []ai.HistoryItem) (string, error) {
	return func(context.Context, string, []ai.HistoryItem) (string, error) { return "", err }
}

func strPtr(s string) *string { return &s }

func contents(msgs []chat.DisplayMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Role)+":"+m.Content)
	}
	return out
}
