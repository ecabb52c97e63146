// Package judge is the client of the external Judge0 compatible service.
package judge

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
	"time"

	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/types"
)

const (
	DefaultTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
	healthTimeout   = 5 * time.Second
)

type Config struct {
	BaseURL      string
	APIKey       string
	RapidAPIHost string
	AuthToken    string
	Timeout      time.Duration
}

// Gateway is what the HTTP layer needs from the judge.
type Gateway interface {
	Execute(ctx context.Context, req types.ExecutionRequest) (types.JudgeResult, error)
	FetchResult(ctx context.Context, token string) (types.JudgeResult, error)
	ListLanguages(ctx context.Context) ([]types.Language, error)
}

// CallObserver is notified after every judge call.
type CallObserver interface {
	ObserveJudgeCall(op string, elapsed time.Duration, err error)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithObserver(o CallObserver) Option {
	return func(c *Client) { c.observer = o }
}

type Client struct {
	hc       *http.Client
	baseURL  string
	apiKey   string
	auth     AuthMode
	headers  http.Header
	observer CallObserver
}

var _ Gateway = (*Client)(nil)

// NewClient builds a client. The credential scheme is fixed here.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	auth, headers := resolveAuth(cfg)
	c := &Client{
		hc:      &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		auth:    auth,
		headers: headers,
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Logger.WithField("auth", auth.String()).Infof("Judge gateway configured for %s", c.baseURL)
	return c
}

func (c *Client) Auth() AuthMode {
	return c.auth
}

// Execute submits one run and waits for its verdict.
func (c *Client) Execute(ctx context.Context, req types.ExecutionRequest) (types.JudgeResult, error) {
	var result types.JudgeResult
	query := url.Values{"wait": {"true"}, "base64_encoded": {"false"}}
	err := c.do(ctx, "execute", http.MethodPost, "/submissions", query, req, &result)
	return result, err
}

// FetchResult retrieves an earlier run by token.
func (c *Client) FetchResult(ctx context.Context, token string) (types.JudgeResult, error) {
	var result types.JudgeResult
	query := url.Values{"base64_encoded": {"false"}}
	err := c.do(ctx, "fetch_result", http.MethodGet, "/submissions/"+url.PathEscape(token), query, nil, &result)
	if err == nil && result.Token == "" {
		result.Token = token
	}
	return result, err
}

func (c *Client) ListLanguages(ctx context.Context) ([]types.Language, error) {
	var raw []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := c.do(ctx, "list_languages", http.MethodGet, "/languages", nil, nil, &raw); err != nil {
		return nil, err
	}
	languages := make([]types.Language, len(raw))
	for i, l := range raw {
		languages[i] = types.Language{ID: l.ID, Name: l.Name, Judge0ID: l.ID}
	}
	return languages, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveJudgeCall(op, time.Since(start), err)
		}
	}()

	req, err := c.createRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &UnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &UnavailableError{Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &UnavailableError{Cause: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

func (c *Client) createRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		j, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(j)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) ServiceName() string {
	return "Judge0Gateway"
}

func (c *Client) Ok() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	languages, err := c.ListLanguages(ctx)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return false, fmt.Sprintf("Judge answered HTTP %d", httpErr.StatusCode)
		}
		return false, fmt.Sprintf("Judge unreachable: %v", err)
	}
	return true, fmt.Sprintf("Judge reachable, %d languages", len(languages))
}

// Describe reports the judge settings without leaking credentials.
func (c *Client) Describe() map[string]any {
	return map[string]any{
		"JUDGE0_URL":           c.baseURL,
		"JUDGE0_API_KEY_set":   c.apiKey != "",
		"JUDGE0_RAPIDAPI_HOST": c.headers.Get("X-RapidAPI-Host"),
		"auth_mode":            c.auth.String(),
	}
}
