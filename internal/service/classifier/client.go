package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/format"
	"github.com/zhouzirui/sentichat/internal/model/analytics"
	"github.com/zhouzirui/sentichat/internal/model/chat"
)

const (
	chatPath         = "/api/chat"
	historyPath      = "/api/chat/history"
	distributionPath = "/api/analytics/sentiment"
	timelinePath     = "/api/analytics/timeline"
	loginPath        = "/login"

	sessionCookieName = "session"
	maxErrorBody      = 4 << 10
)

// Config describes how to reach the classification service.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	Username      string
	Password      string
	SessionCookie string
}

// Client talks to the chatbot/sentiment classification service.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	username string
	password string
}

// New builds a client with its own cookie jar so the service session
// survives across calls.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("classifier base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid classifier base url %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid classifier base url %q: scheme and host are required", raw)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cookie := strings.TrimSpace(cfg.SessionCookie); cookie != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: sessionCookieName, Value: cookie, Path: "/"}})
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:  base,
		http:     &http.Client{Timeout: timeout, Jar: jar},
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

// HasCredentials reports whether Login can be attempted.
func (c *Client) HasCredentials() bool {
	return c.username != "" && c.password != ""
}

// Login submits the configured credentials to the service's login form.
// The service answers a failed login by rendering the form again, so landing
// back on the login page counts as a failure.
func (c *Client) Login(ctx context.Context) error {
	const op = "login"
	if !c.HasCredentials() {
		return &ApplicationError{Op: op, Message: "username and password are required"}
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(loginPath), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	if resp.Request != nil && resp.Request.URL.Path == loginPath {
		return &ApplicationError{Op: op, Message: "invalid username or password"}
	}

	log.Debug().Str("component", "classifier").Str("user", c.username).Msg("logged in")
	return nil
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success        bool    `json:"success"`
	Response       string  `json:"response"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
	Timestamp      string  `json:"timestamp"`
	Error          string  `json:"error"`
}

// Chat sends one user message and returns the classified reply.
func (c *Client) Chat(ctx context.Context, text string) (chat.Reply, error) {
	const op = "send message"

	var resp chatResponse
	if err := c.doJSON(ctx, op, http.MethodPost, chatPath, chatRequest{Message: text}, &resp); err != nil {
		return chat.Reply{}, err
	}
	if !resp.Success {
		return chat.Reply{}, &ApplicationError{Op: op, Message: resp.Error}
	}

	return chat.Reply{
		Response:       resp.Response,
		Sentiment:      sentiment.Resolve(resp.Sentiment, resp.SentimentScore),
		SentimentScore: resp.SentimentScore,
		Timestamp:      serverTime(resp.Timestamp),
	}, nil
}

type historyItem struct {
	ID             int     `json:"id"`
	Message        string  `json:"message"`
	Response       string  `json:"response"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
	Timestamp      string  `json:"timestamp"`
}

type historyResponse struct {
	Success  bool          `json:"success"`
	Messages []historyItem `json:"messages"`
	Error    string        `json:"error"`
}

// History returns stored exchanges in the order the service lists them
// (oldest first).
func (c *Client) History(ctx context.Context) ([]chat.Exchange, error) {
	const op = "load history"

	var resp historyResponse
	if err := c.doJSON(ctx, op, http.MethodGet, historyPath, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ApplicationError{Op: op, Message: resp.Error}
	}

	exchanges := make([]chat.Exchange, 0, len(resp.Messages))
	for _, item := range resp.Messages {
		ts := serverTime(item.Timestamp)
		exchanges = append(exchanges, chat.Exchange{
			ID:      item.ID,
			Message: item.Message,
			Reply: chat.Reply{
				Response:       item.Response,
				Sentiment:      sentiment.Resolve(item.Sentiment, item.SentimentScore),
				SentimentScore: item.SentimentScore,
				Timestamp:      ts,
			},
			Timestamp: ts,
		})
	}
	return exchanges, nil
}

type distributionResponse struct {
	Success bool                      `json:"success"`
	Data    analytics.RawDistribution `json:"data"`
	Error   string                    `json:"error"`
}

// Distribution fetches the per-category message counts.
func (c *Client) Distribution(ctx context.Context) (analytics.RawDistribution, error) {
	const op = "fetch distribution"

	var resp distributionResponse
	if err := c.doJSON(ctx, op, http.MethodGet, distributionPath, nil, &resp); err != nil {
		return analytics.RawDistribution{}, err
	}
	if !resp.Success {
		return analytics.RawDistribution{}, &ApplicationError{Op: op, Message: resp.Error}
	}
	return resp.Data, nil
}

type timelineResponse struct {
	Success bool                  `json:"success"`
	Data    analytics.RawTimeline `json:"data"`
	Error   string                `json:"error"`
}

// Timeline fetches the per-day sentiment counts.
func (c *Client) Timeline(ctx context.Context) (analytics.RawTimeline, error) {
	const op = "fetch timeline"

	var resp timelineResponse
	if err := c.doJSON(ctx, op, http.MethodGet, timelinePath, nil, &resp); err != nil {
		return analytics.RawTimeline{}, err
	}
	if !resp.Success {
		return analytics.RawTimeline{}, &ApplicationError{Op: op, Message: resp.Error}
	}
	return resp.Data, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	// An expired session is answered with a redirect to the login page.
	if resp.Request != nil && resp.Request.URL.Path == loginPath && path != loginPath {
		return &TransportError{Op: op, StatusCode: http.StatusUnauthorized, Message: "not authenticated"}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return ""
}

func serverTime(value string) time.Time {
	if t, ok := format.ParseServerTime(value); ok {
		return t
	}
	return time.Now()
}
