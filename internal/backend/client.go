package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/san-kum/axis/internal/config"
)

const SessionCookie = "axis_session"

var baseLogged sync.Once

// ResolveAPIBase normalizes a configured backend address: trailing slashes
// are dropped and /api is appended unless already present. An empty value
// falls back to the local default. The first resolution in a process is
// logged.
func ResolveAPIBase(raw string, logger *slog.Logger) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		base = config.DefaultAPIBase
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(strings.ToLower(base), "/api") {
		base += "/api"
	}

	baseLogged.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("resolved api base", "base", base)
	})
	return base
}

type Client struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a client for the backend at base, which is resolved
// with ResolveAPIBase.
func NewClient(base string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   ResolveAPIBase(base, logger),
		client: client,
		logger: logger,
	}
}

func (c *Client) Base() string { return c.base }

func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var out taskList
	if _, err := c.do(ctx, http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id int) (*Task, error) {
	if id <= 0 {
		return nil, ErrBadID
	}
	var t Task
	path := "/taskdetail?id=" + url.QueryEscape(strconv.Itoa(id))
	if _, err := c.do(ctx, http.MethodGet, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) AdminOverview(ctx context.Context) (*Overview, error) {
	var o Overview
	if _, err := c.do(ctx, http.MethodGet, "/admin/database-overview", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ExchangeSession trades an identity-provider access token for a backend
// session. Rejections carry the backend's detail message verbatim.
func (c *Client) ExchangeSession(ctx context.Context, token string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	var s Session
	resp, err := c.do(ctx, http.MethodPost, "/sessions/privy", body, &s)
	if err != nil {
		return nil, err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie {
			s.Cookie = ck.Value
		}
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var eb errorBody
		if raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
			if json.Unmarshal(raw, &eb) == nil {
				se.Detail = eb.Detail
			}
		}
		c.logger.Debug("backend request failed", "method", method, "path", path, "status", resp.StatusCode)
		return resp, se
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp, nil
}
