package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrJobNotFound     = errors.New("job not found")
)

// ExchangeCache keeps the ordered exchange list of a session under a
// per-session version. GetExchanges reports the current version even on a
// miss; SetExchanges stores nothing once InvalidateExchanges has moved the
// version past the one it is given.
type ExchangeCache interface {
	GetExchanges(ctx context.Context, sessionID string) ([]Exchange, int64, bool, error)
	SetExchanges(ctx context.Context, sessionID string, version int64, exchanges []Exchange) error
	InvalidateExchanges(ctx context.Context, sessionID string) error
}

type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Service struct {
	repo      *Repo
	cache     ExchangeCache
	publisher JobPublisher
}

// NewService wires the store. cache and publisher may be nil.
func NewService(repo *Repo, cache ExchangeCache, publisher JobPublisher) *Service {
	return &Service{repo: repo, cache: cache, publisher: publisher}
}

func (s *Service) CreateSession(ctx context.Context, userID string) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is empty", ErrInvalidInput)
	}
	sid, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		SessionID: sid,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	return s.repo.ListSessionsByUser(ctx, userID)
}

// GetSession returns the session when userID owns it. Sessions of other
// users are reported as missing.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	sess, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) ListExchanges(ctx context.Context, userID, sessionID string) ([]Exchange, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	// the version is read before the query so a concurrent insert voids the fill
	fill := false
	var version int64
	if s.cache != nil {
		cached, v, ok, err := s.cache.GetExchanges(ctx, sessionID)
		switch {
		case err != nil:
			log.Printf("[ChatService] cache read failed session_id=%s err=%v", sessionID, err)
		case ok:
			return cached, nil
		default:
			fill, version = true, v
		}
	}

	exchanges, err := s.repo.ListExchanges(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if fill {
		if err := s.cache.SetExchanges(ctx, sessionID, version, exchanges); err != nil {
			log.Printf("[ChatService] cache write failed session_id=%s err=%v", sessionID, err)
		}
	}
	return exchanges, nil
}

func (s *Service) ListDisplayMessages(ctx context.Context, userID, sessionID string) ([]DisplayMessage, error) {
	exchanges, err := s.ListExchanges(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return Expand(exchanges), nil
}

// InsertExchange stores one completed turn. The first exchange of an
// untitled session schedules a title job when a publisher is configured.
func (s *Service) InsertExchange(ctx context.Context, userID, sessionID string, in ExchangeInput) (*Exchange, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	kind := in.Kind
	switch kind {
	case "":
		kind = KindText
	case KindText, KindImage:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}

	sess, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	e := &Exchange{
		SessionID: sessionID,
		Query:     in.Query,
		Datatext:  in.Datatext,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertExchange(ctx, e); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateExchanges(ctx, sessionID); err != nil {
			log.Printf("[ChatService] cache invalidate failed session_id=%s err=%v", sessionID, err)
		}
	}

	if sess.Title == "" && s.publisher != nil {
		s.enqueueTitleJob(ctx, sess)
	}
	return e, nil
}

func (s *Service) UpdateTitle(ctx context.Context, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidInput)
	}
	return s.repo.UpdateSessionTitle(ctx, sessionID, title)
}

// GetJob returns a job owned by userID. Jobs of other users are reported
// as missing.
func (s *Service) GetJob(ctx context.Context, userID, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if j.UserID != userID {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// GetTitleJob returns the latest title job of a session the user owns.
func (s *Service) GetTitleJob(ctx context.Context, userID, sessionID string) (*Job, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	j, err := s.repo.LatestJobForSession(ctx, sessionID, JobSessionTitle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

func (s *Service) enqueueTitleJob(ctx context.Context, sess *Session) {
	n, err := s.repo.CountExchanges(ctx, sess.SessionID)
	if err != nil {
		log.Printf("[ChatService] count exchanges failed session_id=%s err=%v", sess.SessionID, err)
		return
	}
	if n != 1 {
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		log.Printf("[ChatService] job id failed session_id=%s err=%v", sess.SessionID, err)
		return
	}
	job := &Job{
		ID:        jobID,
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
		Kind:      JobSessionTitle,
		Status:    JobQueued,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		log.Printf("[ChatService] create title job failed session_id=%s err=%v", sess.SessionID, err)
		return
	}
	if err := s.publisher.PublishJob(ctx, jobID); err != nil {
		log.Printf("[ChatService] publish title job failed job_id=%s err=%v", jobID, err)
		_ = s.repo.MarkJobFailed(ctx, jobID, "publish failed: "+err.Error())
		return
	}
	log.Printf("[ChatService] title job queued job_id=%s session_id=%s", jobID, sess.SessionID)
}
