package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrAccountNotFound   = errors.New("account not found")
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type Result struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

type Service struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
}

func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	return &Service{db: db, secret: secret, ttl: ttl}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || len(in.Password) < 8 {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidInput
	}

	var cnt int64
	if err := s.db.WithContext(ctx).Model(&Account{}).Where("username = ?", username).Count(&cnt).Error; err != nil {
		return nil, fmt.Errorf("check username failed: %w", err)
	}
	if cnt > 0 {
		return nil, ErrUsernameExists
	}
	if err := s.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).Count(&cnt).Error; err != nil {
		return nil, fmt.Errorf("check email failed: %w", err)
	}
	if cnt > 0 {
		return nil, ErrEmailExists
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	acc := &Account{ID: id, Username: username, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(acc).Error; err != nil {
		return nil, fmt.Errorf("create account failed: %w", err)
	}
	return s.issue(acc)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	var acc Account
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("get account failed: %w", err)
	}
	if !CheckPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidCredential
	}
	return s.issue(&acc)
}

func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	var acc Account
	if err := s.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account failed: %w", err)
	}
	return &acc, nil
}

func (s *Service) issue(acc *Account) (*Result, error) {
	token, err := SignJWT(acc.ID, acc.Username, s.secret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token failed: %w", err)
	}
	return &Result{Token: token, Account: acc}, nil
}
