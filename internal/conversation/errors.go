package conversation

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPrompt      = errors.New("prompt is empty")
	ErrNoActiveSession  = errors.New("no active session")
	ErrNoUser           = errors.New("no user loaded")
	ErrTurnInFlight     = errors.New("a turn is already in flight for this session")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
)

type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindGateway
	KindStore
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindGateway:
		return "gateway error"
	case KindStore:
		return "store error"
	case KindAuth:
		return "auth error"
	default:
		return "error"
	}
}

// Error is returned by every Coordinator operation that fails.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// wrap classifies err under op. Unauthorized responses always become
// KindAuth, and store failures carry ErrStoreUnavailable.
func wrap(kind Kind, op string, err error) *Error {
	if errors.Is(err, ErrUnauthorized) {
		return &Error{Kind: KindAuth, Op: op, Err: err}
	}
	if kind == KindStore && !errors.Is(err, ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
