package conversation

import (
	"fmt"

	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

type TurnState uint8

const (
	TurnIdle TurnState = iota
	TurnSubmitting
	TurnCommitted
	TurnRolledBack
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnSubmitting:
		return "submitting"
	case TurnCommitted:
		return "committed"
	case TurnRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("turn_state(%d)", uint8(s))
	}
}

func (s TurnState) Terminal() bool {
	return s == TurnCommitted || s == TurnRolledBack
}

// Turn records one submission from guard to outcome.
type Turn struct {
	SessionID string
	Prompt    string
	Kind      chat.ExchangeKind
	State     TurnState

	UserMessageID      string
	AssistantMessageID string

	Response string
	Exchange *chat.Exchange
	Err      error
}

func newTurn(sessionID, prompt string, kind chat.ExchangeKind) *Turn {
	return &Turn{SessionID: sessionID, Prompt: prompt, Kind: kind, State: TurnIdle}
}

func (t *Turn) advance(to TurnState) error {
	ok := false
	switch t.State {
	case TurnIdle:
		ok = to == TurnSubmitting
	case TurnSubmitting:
		ok = to.Terminal()
	}
	if !ok {
		return fmt.Errorf("invalid turn transition %s -> %s", t.State, to)
	}
	t.State = to
	return nil
}

// mustAdvance is advance for transitions the coordinator guarantees.
func (t *Turn) mustAdvance(to TurnState) {
	if err := t.advance(to); err != nil {
		panic(err)
	}
}
