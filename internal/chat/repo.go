package chat

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *Repo) GetSessionBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return &s, nil
}

// ListSessionsByUser returns the user's sessions newest first.
func (r *Repo) ListSessionsByUser(ctx context.Context, userID string) ([]Session, error) {
	var sessions []Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *Repo) UpdateSessionTitle(ctx context.Context, sessionID, title string) error {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("title", title)
	if res.Error != nil {
		return fmt.Errorf("update session title failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update session title %s: %w", sessionID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *Repo) InsertExchange(ctx context.Context, e *Exchange) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert exchange failed: %w", err)
	}
	return nil
}

// ListExchanges returns every exchange of the session oldest first.
func (r *Repo) ListExchanges(ctx context.Context, sessionID string) ([]Exchange, error) {
	var exchanges []Exchange
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&exchanges).Error; err != nil {
		return nil, fmt.Errorf("list exchanges failed: %w", err)
	}
	return exchanges, nil
}

func (r *Repo) CountExchanges(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Exchange{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count exchanges failed: %w", err)
	}
	return n, nil
}

func (r *Repo) FirstExchange(ctx context.Context, sessionID string) (*Exchange, error) {
	var e Exchange
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		First(&e).Error; err != nil {
		return nil, fmt.Errorf("first exchange of %s: %w", sessionID, err)
	}
	return &e, nil
}

// Job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job failed: %w", err)
	}
	return nil
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &j, nil
}

// LatestJobForSession returns the newest job of kind for the session.
func (r *Repo) LatestJobForSession(ctx context.Context, sessionID string, kind JobKind) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND kind = ?", sessionID, kind).
		Order("created_at DESC").
		Order("id DESC").
		First(&j).Error; err != nil {
		return nil, fmt.Errorf("latest %s job of %s: %w", kind, sessionID, err)
	}
	return &j, nil
}

// UpdateJobStatusRunning claims a queued job, or a failed one coming back
// from the retry queue. It reports false when the job is running or done.
func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, []JobStatus{JobQueued, JobFailed}).
		Update("status", JobRunning)
	if res.Error != nil {
		return false, fmt.Errorf("claim job failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSucceeded,
			"error":  nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
		}).Error
}
