package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

func loadedCoordinator(t *testing.T, store *memStore, gw *fakeGateway) *Coordinator {
	t.Helper()
	c := NewCoordinator(store, gw, nil, time.Second)
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	return c
}

func TestSubmitText_CommitsAndReconciles(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	gw := &fakeGateway{}
	var during Snapshot
	c := NewCoordinator(store, gw, nil, time.Second)
	gw.text = func(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error) {
		during = c.State().Snapshot()
		return "Hi there", nil
	}
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	c.State().SetInput("Hello")

	turn, err := c.SubmitText(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, TurnCommitted, turn.State)
	assert.Equal(t, "Hi there", turn.Response)
	require.NotNil(t, turn.Exchange)

	// while the call is outstanding
	require.Len(t, during.Messages, 2)
	assert.Equal(t, "Hello", during.Messages[0].Content)
	assert.Equal(t, PlaceholderContent, during.Messages[1].Content)
	assert.True(t, during.Messages[1].Optimistic)
	assert.Equal(t, turn.AssistantMessageID, during.Messages[1].ID)
	assert.True(t, during.Loading)
	assert.Empty(t, during.Input)

	snap := c.State().Snapshot()
	assert.Equal(t, []string{"user:Hello", "assistant:Hi there"}, contents(snap.Messages))
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)

	require.Equal(t, 1, store.count("S"))
	ex := store.exchanges["S"][0]
	assert.Equal(t, "Hello", ex.Query)
	assert.Equal(t, "Hi there", ex.Response())
	assert.Equal(t, chat.KindText, ex.Kind)
}

func TestSubmitText_SendsStoredHistory(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	store.addExchange("S", "earlier", strPtr("answer"))
	gw := &fakeGateway{text: replyWith("ok")}
	c := loadedCoordinator(t, store, gw)

	_, err := c.SubmitText(context.Background(), "next")
	require.NoError(t, err)

	require.Len(t, gw.history, 2)
	assert.Equal(t, "user", gw.history[0].Role)
	assert.Equal(t, "earlier", gw.history[0].Query)
	assert.Equal(t, "assistant", gw.history[1].Role)
	assert.Equal(t, "answer", gw.history[1].Datatext)
}

func TestSubmitText_GatewayFailureRollsBack(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	store.addExchange("S", "q1", strPtr("a1"))
	gw := &fakeGateway{text: failWith(errors.New("upstream 500"))}
	c := loadedCoordinator(t, store, gw)
	before := c.State().Snapshot().Messages
	c.State().SetInput("Hello")

	turn, err := c.SubmitText(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, KindGateway, KindOf(err))
	assert.Equal(t, TurnRolledBack, turn.State)

	snap := c.State().Snapshot()
	assert.Equal(t, before, snap.Messages)
	assert.Equal(t, "Failed to send message", snap.Error)
	assert.Equal(t, "Hello", snap.Input, "prompt goes back into the empty input")
	assert.False(t, snap.Loading)
	assert.Equal(t, 1, store.count("S"))
}

func TestSubmitText_RollbackKeepsNewInput(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	gw := &fakeGateway{}
	c := NewCoordinator(store, gw, nil, time.Second)
	gw.text = func(context.Context, string, []ai.HistoryItem) (string, error) {
		c.State().SetInput("typed meanwhile")
		return "", errors.New("boom")
	}
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)

	_, err = c.SubmitText(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, "typed meanwhile", c.State().Snapshot().Input)
}

func TestSubmitText_InsertFailureKeepsReply(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	store.insertErr = errors.New("disk full")
	c := loadedCoordinator(t, store, &fakeGateway{text: replyWith("Hi there")})

	turn, err := c.SubmitText(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, KindStore, KindOf(err))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, TurnCommitted, turn.State)

	snap := c.State().Snapshot()
	assert.Equal(t, []string{"user:Hello", "assistant:Hi there"}, contents(snap.Messages))
	assert.Equal(t, "Failed to send message", snap.Error)
}

func TestSubmitText_HistoryFailureRollsBackBeforeGateway(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	gw := &fakeGateway{text: replyWith("never")}
	c := loadedCoordinator(t, store, gw)
	store.onListExchanges = func(string) error { return errors.New("read timeout") }

	turn, err := c.SubmitText(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, KindStore, KindOf(err))
	assert.Equal(t, TurnRolledBack, turn.State)
	assert.Equal(t, 0, gw.calls)
	assert.Empty(t, c.State().Snapshot().Messages)
}

func TestSubmitText_Guards(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{text: replyWith("x")}
	c := NewCoordinator(store, gw, nil, time.Second)

	_, err := c.SubmitText(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Equal(t, KindValidation, KindOf(err))

	store.addSession("u1", "S")
	_, err = c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)

	turn, err := c.SubmitText(context.Background(), "   \n")
	assert.Nil(t, turn)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Equal(t, 0, gw.calls)
	assert.Equal(t, 0, store.count("S"))
}

func TestSubmitText_OneTurnPerSession(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	gw := &fakeGateway{}
	c := NewCoordinator(store, gw, nil, time.Second)
	var second error
	gw.text = func(context.Context, string, []ai.HistoryItem) (string, error) {
		_, second = c.SubmitText(context.Background(), "again")
		return "first reply", nil
	}
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)

	_, err = c.SubmitText(context.Background(), "first")
	require.NoError(t, err)
	assert.ErrorIs(t, second, ErrTurnInFlight)
	assert.Equal(t, 1, store.count("S"))

	// token released
	gw.text = replyWith("later")
	_, err = c.SubmitText(context.Background(), "after")
	assert.NoError(t, err)
}

func TestSubmitText_SwitchDuringCallLeavesNewSessionAlone(t *testing.T) {
	store := newMemStore()
	a := store.addSession("u1", "A")
	b := store.addSession("u1", "B")
	store.addExchange("B", "b question", strPtr("b answer"))
	gw := &fakeGateway{}
	c := NewCoordinator(store, gw, nil, time.Second)
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, c.SelectSession(context.Background(), a))

	gw.text = func(context.Context, string, []ai.HistoryItem) (string, error) {
		require.NoError(t, c.SelectSession(context.Background(), b))
		return "late reply for A", nil
	}

	turn, err := c.SubmitText(context.Background(), "question for A")
	require.NoError(t, err)
	assert.Equal(t, TurnCommitted, turn.State)

	snap := c.State().Snapshot()
	assert.Equal(t, "B", snap.Active.SessionID)
	assert.Equal(t, []string{"user:b question", "assistant:b answer"}, contents(snap.Messages))
	assert.Equal(t, 1, store.count("A"), "reply for A is still persisted")
}

func TestSubmitText_FailureAfterSwitchIsNotShown(t *testing.T) {
	store := newMemStore()
	a := store.addSession("u1", "A")
	b := store.addSession("u1", "B")
	store.addExchange("B", "b question", strPtr("b answer"))
	gw := &fakeGateway{}
	c := NewCoordinator(store, gw, nil, time.Second)
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, c.SelectSession(context.Background(), a))

	gw.text = func(context.Context, string, []ai.HistoryItem) (string, error) {
		require.NoError(t, c.SelectSession(context.Background(), b))
		return "", errors.New("upstream 500")
	}

	turn, err := c.SubmitText(context.Background(), "question for A")
	require.Error(t, err)
	assert.Equal(t, TurnRolledBack, turn.State)

	snap := c.State().Snapshot()
	assert.Equal(t, "B", snap.Active.SessionID)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Input)
	assert.Equal(t, []string{"user:b question", "assistant:b answer"}, contents(snap.Messages))
}

func TestSubmitText_InsertFailureAfterSwitchIsNotShown(t *testing.T) {
	store := newMemStore()
	a := store.addSession("u1", "A")
	b := store.addSession("u1", "B")
	gw := &fakeGateway{}
	c := NewCoordinator(store, gw, nil, time.Second)
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, c.SelectSession(context.Background(), a))
	store.insertErr = errors.New("disk full")

	gw.text = func(context.Context, string, []ai.HistoryItem) (string, error) {
		require.NoError(t, c.SelectSession(context.Background(), b))
		return "late reply for A", nil
	}

	turn, err := c.SubmitText(context.Background(), "question for A")
	assert.Equal(t, KindStore, KindOf(err))
	assert.Equal(t, TurnCommitted, turn.State)
	assert.Empty(t, c.State().Snapshot().Error)
}

func TestSubmitText_Timeout(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	gw := &fakeGateway{text: func(ctx context.Context, _ string, _ []ai.HistoryItem) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := NewCoordinator(store, gw, nil, 20*time.Millisecond)
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)

	turn, err := c.SubmitText(context.Background(), "Hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, TurnRolledBack, turn.State)
}

func TestSubmitText_UnauthorizedIsAuthError(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	c := loadedCoordinator(t, store, &fakeGateway{text: failWith(ErrUnauthorized)})

	_, err := c.SubmitText(context.Background(), "Hello")
	assert.Equal(t, KindAuth, KindOf(err))
	assert.Equal(t, "Session expired, please log in again", c.State().Snapshot().Error)
}

func TestSubmitImage_Success(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	gw := &fakeGateway{}
	c := NewCoordinator(store, gw, nil, time.Second)
	var during Snapshot
	gw.image = func(context.Context, string, []ai.HistoryItem) (string, error) {
		during = c.State().Snapshot()
		return "a picture of a cat", nil
	}
	_, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)

	turn, err := c.SubmitImage(context.Background(), "draw a cat")
	require.NoError(t, err)
	assert.Equal(t, TurnCommitted, turn.State)

	assert.True(t, during.GeneratingImage)
	assert.Equal(t, []string{"user:draw a cat"}, contents(during.Messages), "no placeholder for images")

	snap := c.State().Snapshot()
	assert.False(t, snap.GeneratingImage)
	assert.Equal(t, []string{"user:draw a cat", "assistant:a picture of a cat"}, contents(snap.Messages))
	require.Equal(t, 1, store.count("S"))
	assert.Equal(t, chat.KindImage, store.exchanges["S"][0].Kind)
}

func TestSubmitImage_FailureRemovesUserMessage(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	store.addExchange("S", "hi", strPtr("hello"))
	c := loadedCoordinator(t, store, &fakeGateway{image: failWith(errors.New("blocked"))})
	before := c.State().Snapshot().Messages

	turn, err := c.SubmitImage(context.Background(), "draw a cat")
	require.Error(t, err)
	assert.Equal(t, TurnRolledBack, turn.State)

	snap := c.State().Snapshot()
	assert.Equal(t, before, snap.Messages)
	assert.Equal(t, "Failed to generate image", snap.Error)
	assert.False(t, snap.GeneratingImage)
	assert.Equal(t, 1, store.count("S"))
}

func TestLoadSessions_CreatesFirstSession(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, &fakeGateway{}, nil, time.Second)

	res, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.creates)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, "u1", res.Active.UserID)

	snap := c.State().Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, res.Active.SessionID, snap.Active.SessionID)
	assert.Empty(t, snap.Messages)
}

func TestLoadSessions_SecondEmptyListIsStoreError(t *testing.T) {
	store := newMemStore()
	store.emptyAfterCreate = true
	c := NewCoordinator(store, &fakeGateway{}, nil, time.Second)

	_, err := c.LoadSessions(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 1, store.creates)
}

func TestLoadSessions_NewestIsActive(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "old")
	store.addSession("u1", "new")
	store.addExchange("new", "hello", strPtr("world"))

	c := NewCoordinator(store, &fakeGateway{}, nil, time.Second)
	res, err := c.LoadSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", res.Active.SessionID)
	assert.Equal(t, []string{"user:hello", "assistant:world"}, contents(c.State().Snapshot().Messages))
}

func TestLoadSessions_FailureLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	c := loadedCoordinator(t, store, &fakeGateway{})
	before := c.State().Snapshot()

	store.listSessionsErr = errors.New("connection reset")
	_, err := c.LoadSessions(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, KindStore, KindOf(err))

	after := c.State().Snapshot()
	assert.Equal(t, "Failed to load chat sessions", after.Error)
	assert.Equal(t, before.Sessions, after.Sessions)
	assert.Equal(t, before.Active, after.Active)
}

func TestLoadSessions_RequiresUser(t *testing.T) {
	c := NewCoordinator(newMemStore(), &fakeGateway{}, nil, time.Second)
	_, err := c.LoadSessions(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSelectSession_ReplacesList(t *testing.T) {
	store := newMemStore()
	a := store.addSession("u1", "A")
	b := store.addSession("u1", "B")
	store.addExchange("A", "a1", strPtr("a2"))
	store.addExchange("B", "b1", strPtr("b2"))
	c := loadedCoordinator(t, store, &fakeGateway{})

	require.NoError(t, c.SelectSession(context.Background(), a))
	require.NoError(t, c.SelectSession(context.Background(), b))
	assert.Equal(t, []string{"user:b1", "assistant:b2"}, contents(c.State().Snapshot().Messages))

	require.NoError(t, c.SelectSession(context.Background(), a))
	assert.Equal(t, []string{"user:a1", "assistant:a2"}, contents(c.State().Snapshot().Messages))
}

func TestSelectSession_StaleLoadIsDropped(t *testing.T) {
	store := newMemStore()
	a := store.addSession("u1", "A")
	b := store.addSession("u1", "B")
	store.addExchange("A", "from A", nil)
	store.addExchange("B", "from B", nil)
	c := loadedCoordinator(t, store, &fakeGateway{})

	switched := false
	store.onListExchanges = func(sessionID string) error {
		if sessionID == "A" && !switched {
			switched = true
			require.NoError(t, c.SelectSession(context.Background(), b))
		}
		return nil
	}

	require.NoError(t, c.SelectSession(context.Background(), a))
	snap := c.State().Snapshot()
	assert.Equal(t, "B", snap.Active.SessionID)
	assert.Equal(t, []string{"user:from B"}, contents(snap.Messages))
}

func TestSelectSession_Failure(t *testing.T) {
	store := newMemStore()
	s := store.addSession("u1", "S")
	c := loadedCoordinator(t, store, &fakeGateway{})
	store.onListExchanges = func(string) error { return errors.New("nope") }

	err := c.SelectSession(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, "Failed to load messages", c.State().Snapshot().Error)
}

func TestNewSession(t *testing.T) {
	store := newMemStore()
	store.addSession("u1", "S")
	c := loadedCoordinator(t, store, &fakeGateway{})

	require.NoError(t, c.NewSession(context.Background()))
	snap := c.State().Snapshot()
	assert.Len(t, snap.Sessions, 2)
	assert.True(t, strings.HasPrefix(snap.Active.SessionID, "session-"))
	assert.Empty(t, snap.Messages)

	store.createErr = errors.New("quota")
	err := c.NewSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to create new chat", c.State().Snapshot().Error)
}

func TestNewSession_RequiresLoadedUser(t *testing.T) {
	c := NewCoordinator(newMemStore(), &fakeGateway{}, nil, time.Second)
	assert.ErrorIs(t, c.NewSession(context.Background()), ErrNoUser)
}
