package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type JobKind string

const JobSessionTitle JobKind = "session_title"

type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	UserID    string  `gorm:"type:varchar(64);index;not null"`
	SessionID string  `gorm:"size:26;index;not null"`
	Kind      JobKind `gorm:"type:varchar(32);not null"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "chat_jobs" }
