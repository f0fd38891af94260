package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

const (
	PlaceholderContent = "..."

	msgSendFailed     = "Failed to send message"
	msgImageFailed    = "Failed to generate image"
	msgSessionsFailed = "Failed to load chat sessions"
	msgMessagesFailed = "Failed to load messages"
	msgCreateFailed   = "Failed to create new chat"
	msgAuthFailed     = "Session expired, please log in again"
)

type Store interface {
	ListSessions(ctx context.Context, userID string) ([]chat.Session, error)
	CreateSession(ctx context.Context, userID string) (*chat.Session, error)
	ListExchanges(ctx context.Context, userID, sessionID string) ([]chat.Exchange, error)
	InsertExchange(ctx context.Context, userID, sessionID string, in chat.ExchangeInput) (*chat.Exchange, error)
}

type Gateway interface {
	GenerateText(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
	GenerateImage(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
}

type LoadResult struct {
	Sessions []chat.Session
	Active   chat.Session
}

// Coordinator runs the session and submission flows against a Store and a
// Gateway, publishing every visible change through State.
type Coordinator struct {
	store   Store
	gateway Gateway
	state   *State
	timeout time.Duration

	newID func() string
	now   func() time.Time
}

func NewCoordinator(store Store, gateway Gateway, state *State, timeout time.Duration) *Coordinator {
	if state == nil {
		state = NewState()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Coordinator{
		store:   store,
		gateway: gateway,
		state:   state,
		timeout: timeout,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

func (c *Coordinator) State() *State { return c.state }

// fail records the user-visible message for err and returns err.
func (c *Coordinator) fail(err *Error, msg string) error {
	if err.Kind == KindAuth {
		msg = msgAuthFailed
	}
	c.state.setError(msg)
	log.Printf("[Coordinator] op=%s kind=%s err=%v", err.Op, err.Kind, err.Err)
	return err
}

// failFor is fail for a result that belongs to sessionID. The message is
// shown only while that session is active.
func (c *Coordinator) failFor(sessionID string, err *Error, msg string) error {
	if err.Kind == KindAuth {
		msg = msgAuthFailed
	}
	if !c.state.setErrorFor(sessionID, msg) {
		log.Printf("[Coordinator] session switched, error not displayed session_id=%s", sessionID)
	}
	log.Printf("[Coordinator] op=%s kind=%s err=%v", err.Op, err.Kind, err.Err)
	return err
}

// LoadSessions lists the user's sessions, creating the first one when
// there is none, and activates the newest.
func (c *Coordinator) LoadSessions(ctx context.Context, userID string) (*LoadResult, error) {
	const op = "load_sessions"
	if strings.TrimSpace(userID) == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Err: ErrNoUser}
	}

	sessions, err := c.listOrCreate(ctx, userID)
	if err != nil {
		return nil, c.fail(wrap(KindStore, op, err), msgSessionsFailed)
	}

	c.state.setSessions(userID, sessions)
	res := &LoadResult{Sessions: sessions, Active: sessions[0]}
	if err := c.SelectSession(ctx, sessions[0]); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Coordinator) listOrCreate(ctx context.Context, userID string) ([]chat.Session, error) {
	sessions, err := c.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) > 0 {
		return sessions, nil
	}

	if _, err := c.store.CreateSession(ctx, userID); err != nil {
		return nil, err
	}
	sessions, err = c.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: created session is not listed", ErrStoreUnavailable)
	}
	return sessions, nil
}

// SelectSession activates session and replaces the message list with its
// stored exchanges. A newer selection made meanwhile wins.
func (c *Coordinator) SelectSession(ctx context.Context, session chat.Session) error {
	const op = "select_session"
	seq := c.state.activate(session)

	exchanges, err := c.store.ListExchanges(ctx, c.state.currentUser(), session.SessionID)
	if err != nil {
		if _, current := c.state.currentSelection(session.SessionID); !current {
			return wrap(KindStore, op, err)
		}
		return c.fail(wrap(KindStore, op, err), msgMessagesFailed)
	}

	if !c.state.replaceMessages(seq, chat.Expand(exchanges)) {
		log.Printf("[Coordinator] dropped stale message list session_id=%s", session.SessionID)
	}
	return nil
}

// NewSession creates a session for the loaded user and reloads the list,
// which makes the new session active.
func (c *Coordinator) NewSession(ctx context.Context) error {
	const op = "new_session"
	userID := c.state.currentUser()
	if userID == "" {
		return &Error{Kind: KindValidation, Op: op, Err: ErrNoUser}
	}

	if _, err := c.store.CreateSession(ctx, userID); err != nil {
		return c.fail(wrap(KindStore, op, err), msgCreateFailed)
	}
	_, err := c.LoadSessions(ctx, userID)
	return err
}

// SubmitText sends prompt in the active session. The returned Turn is
// non-nil once the guard has passed.
func (c *Coordinator) SubmitText(ctx context.Context, prompt string) (*Turn, error) {
	const op = "submit_text"
	if strings.TrimSpace(prompt) == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Err: ErrEmptyPrompt}
	}
	userID, session, err := c.state.beginTurn()
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	sid := session.SessionID
	defer c.state.endTurn(sid)

	turn := newTurn(sid, prompt, chat.KindText)
	turn.mustAdvance(TurnSubmitting)

	exchanges, err := c.store.ListExchanges(ctx, userID, sid)
	if err != nil {
		return c.rolledBack(turn, wrap(KindStore, op, err), msgSendFailed)
	}

	now := c.now()
	userMsg := chat.DisplayMessage{ID: c.newID(), Role: chat.RoleUser, Content: prompt, SessionID: sid, CreatedAt: now, Optimistic: true}
	placeholder := chat.DisplayMessage{ID: c.newID(), Role: chat.RoleAssistant, Content: PlaceholderContent, SessionID: sid, CreatedAt: now, Optimistic: true}
	turn.UserMessageID, turn.AssistantMessageID = userMsg.ID, placeholder.ID
	c.state.startSubmit(sid, userMsg, placeholder)

	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	text, err := c.gateway.GenerateText(gctx, prompt, historyFromExchanges(exchanges))
	cancel()
	if err != nil {
		return c.rolledBack(turn, wrap(KindGateway, op, err), msgSendFailed)
	}

	turn.Response = text
	if !c.state.updateMessagesFor(sid, func(list []chat.DisplayMessage) []chat.DisplayMessage {
		return replaceContent(list, placeholder.ID, text)
	}) {
		log.Printf("[Coordinator] session switched, reply not displayed session_id=%s", sid)
	}

	return c.commit(ctx, op, turn, userID, msgSendFailed)
}

// SubmitImage asks the image model in the active session. There is no
// placeholder; the state reports GeneratingImage while the call runs.
func (c *Coordinator) SubmitImage(ctx context.Context, prompt string) (*Turn, error) {
	const op = "submit_image"
	if strings.TrimSpace(prompt) == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Err: ErrEmptyPrompt}
	}
	userID, session, err := c.state.beginTurn()
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	sid := session.SessionID
	defer c.state.endTurn(sid)

	c.state.setImaging(1)
	defer c.state.setImaging(-1)

	turn := newTurn(sid, prompt, chat.KindImage)
	turn.mustAdvance(TurnSubmitting)

	now := c.now()
	userMsg := chat.DisplayMessage{ID: c.newID(), Role: chat.RoleUser, Content: prompt, SessionID: sid, CreatedAt: now, Optimistic: true}
	turn.UserMessageID = userMsg.ID
	c.state.startSubmit(sid, userMsg)

	exchanges, err := c.store.ListExchanges(ctx, userID, sid)
	if err != nil {
		return c.rolledBack(turn, wrap(KindStore, op, err), msgImageFailed)
	}

	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	text, err := c.gateway.GenerateImage(gctx, prompt, historyFromExchanges(exchanges))
	cancel()
	if err != nil {
		return c.rolledBack(turn, wrap(KindGateway, op, err), msgImageFailed)
	}

	turn.Response = text
	reply := chat.DisplayMessage{ID: c.newID(), Role: chat.RoleAssistant, Content: text, SessionID: sid, CreatedAt: c.now(), Optimistic: true}
	turn.AssistantMessageID = reply.ID
	c.state.updateMessagesFor(sid, func(list []chat.DisplayMessage) []chat.DisplayMessage {
		return appendMessages(list, reply)
	})

	return c.commit(ctx, op, turn, userID, msgImageFailed)
}

func (c *Coordinator) rolledBack(turn *Turn, err *Error, msg string) (*Turn, error) {
	turn.mustAdvance(TurnRolledBack)
	turn.Err = err
	if err.Kind == KindAuth {
		msg = msgAuthFailed
	}
	if !c.state.rollback(turn.SessionID, turn.Prompt, msg, turn.UserMessageID, turn.AssistantMessageID) {
		log.Printf("[Coordinator] session switched, rollback not displayed session_id=%s", turn.SessionID)
	}
	log.Printf("[Coordinator] op=%s rolled back session_id=%s kind=%s err=%v", err.Op, turn.SessionID, err.Kind, err.Err)
	return turn, err
}

// commit persists the exchange. The displayed reply stays even when the
// insert fails.
func (c *Coordinator) commit(ctx context.Context, op string, turn *Turn, userID, msg string) (*Turn, error) {
	turn.mustAdvance(TurnCommitted)

	resp := turn.Response
	ex, err := c.store.InsertExchange(ctx, userID, turn.SessionID, chat.ExchangeInput{
		Query:    turn.Prompt,
		Datatext: &resp,
		Kind:     turn.Kind,
	})
	if err != nil {
		turn.Err = c.failFor(turn.SessionID, wrap(KindStore, op, err), msg)
		return turn, turn.Err
	}
	turn.Exchange = ex

	c.refresh(ctx, userID, turn.SessionID)
	return turn, nil
}

// refresh re-derives the list from storage while sessionID stays active.
func (c *Coordinator) refresh(ctx context.Context, userID, sessionID string) {
	seq, ok := c.state.currentSelection(sessionID)
	if !ok {
		return
	}
	exchanges, err := c.store.ListExchanges(ctx, userID, sessionID)
	if err != nil {
		log.Printf("[Coordinator] reload after commit failed session_id=%s err=%v", sessionID, err)
		return
	}
	c.state.replaceMessages(seq, chat.Expand(exchanges))
}
