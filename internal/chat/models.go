package chat

import "time"

type ExchangeKind string

const (
	KindText  ExchangeKind = "text"
	KindImage ExchangeKind = "image"
)

// Session is one conversation. The table keeps its historical name.
type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	UserID    string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Title     string    `gorm:"type:varchar(128);not null;default:''" json:"title"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "users" }

// Exchange is one request/response turn. A nil Datatext marks a turn whose
// response never arrived.
type Exchange struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string       `gorm:"type:varchar(26);index;not null" json:"session_id"`
	Query     string       `gorm:"type:text;not null" json:"query"`
	Datatext  *string      `gorm:"type:text" json:"datatext"`
	Kind      ExchangeKind `gorm:"type:varchar(16);not null;default:'text'" json:"kind"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`
}

func (Exchange) TableName() string { return "sessions" }

func (e Exchange) Response() string {
	if e.Datatext == nil {
		return ""
	}
	return *e.Datatext
}

// HasReply reports whether the exchange contributes an assistant message.
func (e Exchange) HasReply() bool {
	r := e.Response()
	return r != "" && r != e.Query
}

type ExchangeInput struct {
	Query    string       `json:"query" binding:"required"`
	Datatext *string      `json:"datatext"`
	Kind     ExchangeKind `json:"kind"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type DisplayMessage struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	Optimistic bool      `json:"optimistic,omitempty"`
}
