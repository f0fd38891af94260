package conversation

import (
	"sync"

	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

// Snapshot is a copy of the state at one instant.
type Snapshot struct {
	UserID          string
	Sessions        []chat.Session
	Active          *chat.Session
	Messages        []chat.DisplayMessage
	Input           string
	Loading         bool
	GeneratingImage bool
	Error           string

	// Version increases with every change; a higher one is newer.
	Version uint64
}

// State holds what the presentation layer renders. Every mutation runs
// under one mutex against the latest value.
type State struct {
	mu sync.Mutex
	// notifyMu orders deliveries; delivered is the last version handed out.
	notifyMu  sync.Mutex
	delivered uint64
	version   uint64

	userID   string
	sessions []chat.Session
	active   *chat.Session
	messages []chat.DisplayMessage
	input    string
	errMsg   string

	// selection increments on every switch so late loads can be dropped.
	selection uint64
	inFlight  map[string]struct{}
	imaging   int

	onChange func(Snapshot)
}

func NewState() *State {
	return &State{inFlight: make(map[string]struct{})}
}

// OnChange registers fn to receive a snapshot after every mutation. fn runs
// outside the state lock, one call at a time, and never sees an older
// snapshot after a newer one. fn must not mutate the State.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		UserID:          s.userID,
		Sessions:        append([]chat.Session(nil), s.sessions...),
		Messages:        append([]chat.DisplayMessage(nil), s.messages...),
		Input:           s.input,
		GeneratingImage: s.imaging > 0,
		Error:           s.errMsg,
		Version:         s.version,
	}
	if s.active != nil {
		a := *s.active
		snap.Active = &a
		_, snap.Loading = s.inFlight[a.SessionID]
	}
	return snap
}

// mutate applies fn under the lock and notifies once when fn reports a change.
func (s *State) mutate(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	var (
		notify func(Snapshot)
		snap   Snapshot
	)
	if changed {
		s.version++
		if s.onChange != nil {
			notify = s.onChange
			snap = s.snapshotLocked()
		}
	}
	s.mu.Unlock()

	if notify != nil {
		s.deliver(notify, snap)
	}
	return changed
}

// deliver hands snap to fn unless a newer snapshot already went out.
func (s *State) deliver(fn func(Snapshot), snap Snapshot) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Version <= s.delivered {
		return false
	}
	s.delivered = snap.Version
	fn(snap)
	return true
}

func (s *State) SetInput(v string) {
	s.mutate(func() bool {
		s.input = v
		return true
	})
}

func (s *State) setError(msg string) {
	s.mutate(func() bool {
		s.errMsg = msg
		return true
	})
}

// setErrorFor records msg only while sessionID is the active session.
func (s *State) setErrorFor(sessionID, msg string) bool {
	return s.mutate(func() bool {
		if s.active == nil || s.active.SessionID != sessionID {
			return false
		}
		s.errMsg = msg
		return true
	})
}

func (s *State) ClearError() {
	s.mutate(func() bool {
		if s.errMsg == "" {
			return false
		}
		s.errMsg = ""
		return true
	})
}

func (s *State) currentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *State) setSessions(userID string, sessions []chat.Session) {
	s.mutate(func() bool {
		s.userID = userID
		s.sessions = dedupeSessions(sessions)
		return true
	})
}

// activate makes session the active one, empties the message list and
// returns the selection number the caller must present when loading.
func (s *State) activate(session chat.Session) uint64 {
	var seq uint64
	s.mutate(func() bool {
		s.selection++
		seq = s.selection
		a := session
		s.active = &a
		s.messages = nil
		return true
	})
	return seq
}

// currentSelection returns the selection number when sessionID is active.
func (s *State) currentSelection(sessionID string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.SessionID != sessionID {
		return 0, false
	}
	return s.selection, true
}

// replaceMessages installs msgs if no other selection happened since seq.
func (s *State) replaceMessages(seq uint64, msgs []chat.DisplayMessage) bool {
	return s.mutate(func() bool {
		if s.selection != seq {
			return false
		}
		s.messages = append([]chat.DisplayMessage(nil), msgs...)
		return true
	})
}

// updateMessagesFor applies fn to the message list only while sessionID is
// the active session.
func (s *State) updateMessagesFor(sessionID string, fn func([]chat.DisplayMessage) []chat.DisplayMessage) bool {
	return s.mutate(func() bool {
		if s.active == nil || s.active.SessionID != sessionID {
			return false
		}
		s.messages = fn(s.messages)
		return true
	})
}

// beginTurn checks for an active session and takes its in-flight token.
func (s *State) beginTurn() (userID string, session chat.Session, err error) {
	s.mutate(func() bool {
		if s.active == nil {
			err = ErrNoActiveSession
			return false
		}
		if _, busy := s.inFlight[s.active.SessionID]; busy {
			err = ErrTurnInFlight
			return false
		}
		s.inFlight[s.active.SessionID] = struct{}{}
		s.errMsg = ""
		userID, session = s.userID, *s.active
		return true
	})
	return userID, session, err
}

func (s *State) endTurn(sessionID string) {
	s.mutate(func() bool {
		delete(s.inFlight, sessionID)
		return true
	})
}

// startSubmit appends msgs and clears the input, both only while sessionID
// is still active.
func (s *State) startSubmit(sessionID string, msgs ...chat.DisplayMessage) bool {
	return s.mutate(func() bool {
		if s.active == nil || s.active.SessionID != sessionID {
			return false
		}
		s.messages = appendMessages(s.messages, msgs...)
		s.input = ""
		return true
	})
}

// rollback removes ids from the list, puts prompt back into an empty input
// buffer and records errMsg, all only while sessionID is active.
func (s *State) rollback(sessionID, prompt, errMsg string, ids ...string) bool {
	return s.mutate(func() bool {
		if s.active == nil || s.active.SessionID != sessionID {
			return false
		}
		s.messages = removeMessages(s.messages, ids...)
		if s.input == "" {
			s.input = prompt
		}
		s.errMsg = errMsg
		return true
	})
}

func (s *State) setImaging(delta int) {
	s.mutate(func() bool {
		s.imaging += delta
		if s.imaging < 0 {
			s.imaging = 0
		}
		return true
	})
}

func appendMessages(list []chat.DisplayMessage, msgs ...chat.DisplayMessage) []chat.DisplayMessage {
	out := make([]chat.DisplayMessage, 0, len(list)+len(msgs))
	out = append(out, list...)
	return append(out, msgs...)
}

func replaceContent(list []chat.DisplayMessage, id, content string) []chat.DisplayMessage {
	out := append([]chat.DisplayMessage(nil), list...)
	for i := range out {
		if out[i].ID == id {
			out[i].Content = content
		}
	}
	return out
}

func removeMessages(list []chat.DisplayMessage, ids ...string) []chat.DisplayMessage {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			drop[id] = struct{}{}
		}
	}
	out := make([]chat.DisplayMessage, 0, len(list))
	for _, m := range list {
		if _, ok := drop[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func dedupeSessions(sessions []chat.Session) []chat.Session {
	seen := make(map[string]struct{}, len(sessions))
	out := make([]chat.Session, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := seen[s.SessionID]; ok {
			continue
		}
		seen[s.SessionID] = struct{}{}
		out = append(out, s)
	}
	return out
}
