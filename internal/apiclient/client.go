package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/auth"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/conversation"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("api: status %d code %d: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Client talks to the chat server. It satisfies conversation.Store and
// conversation.Gateway; the user id arguments are implied by the token.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type genResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return c.HTTP.Do(req)
}

// call performs an envelope request and decodes data into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env); err != nil {
		return statusError(resp.StatusCode, "", 0, fmt.Errorf("decode response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, env.Message, env.Code, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func statusError(status int, msg string, code int, cause error) error {
	if cause != nil && status >= 200 && status < 300 {
		return cause
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr := &APIError{Status: status, Code: code, Message: msg}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", conversation.ErrUnauthorized, apiErr)
	}
	return apiErr
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*auth.Result, error) {
	var res auth.Result
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*auth.Result, error) {
	var res auth.Result
	body := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*auth.Account, error) {
	var acc auth.Account
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *Client) ListSessions(ctx context.Context, _ string) ([]chat.Session, error) {
	var out []chat.Session
	if err := c.call(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, _ string) (*chat.Session, error) {
	var out chat.Session
	if err := c.call(ctx, http.MethodPost, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListExchanges(ctx context.Context, _ string, sessionID string) ([]chat.Exchange, error) {
	var out []chat.Exchange
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/exchanges"
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertExchange(ctx context.Context, _ string, sessionID string, in chat.ExchangeInput) (*chat.Exchange, error) {
	var out chat.Exchange
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/exchanges"
	if err := c.call(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateText(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error) {
	return c.generate(ctx, "/api/chat", prompt, history)
}

func (c *Client) GenerateImage(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error) {
	return c.generate(ctx, "/api/image", prompt, history)
}

func (c *Client) generate(ctx context.Context, path, prompt string, history []ai.HistoryItem) (string, error) {
	if history == nil {
		history = []ai.HistoryItem{}
	}
	resp, err := c.do(ctx, http.MethodPost, path, map[string]any{"prompt": prompt, "history": history})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out genResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp.StatusCode, out.Error, 0, nil)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.Text, nil
}
