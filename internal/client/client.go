// Package client is a typed Go client for the association admin API. It
// carries the console's session rules: any 401 outside login ends the local
// session, and the current user can be polled to notice expiry early.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"association-admin-api/internal/datefmt"
	"association-admin-api/internal/model"
)

// ErrSessionExpired is returned for any 401 outside /auth/login and
// /auth/logout.
var ErrSessionExpired = errors.New("session expired")

const (
	tunnelBypassHeader = "ngrok-skip-browser-warning"
	loginPath          = "/auth/login"
	logoutPath         = "/auth/logout"

	DefaultPollInterval = 60 * time.Second
)

// APIError is a non-2xx response. Fields holds per-field validation messages.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Page    int             `json:"page"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	session      *Session
	onExpired    func()
	pollInterval time.Duration

	mu    sync.Mutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar is replaced with a
// fresh cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.httpClient = &cp
	}
}

func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// OnSessionExpired registers fn to run after the session is torn down, the
// equivalent of redirecting to the login screen.
func OnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}
	if c.session == nil {
		c.session, _ = OpenSession("")
	}
	c.resetJar()
	return c
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) resetJar() {
	jar, _ := cookiejar.New(nil)
	c.httpClient.Jar = jar
}

func (c *Client) setToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// expire tears down the local session and notifies the callback.
func (c *Client) expire() {
	c.setToken("")
	c.resetJar()
	_ = c.session.Expire()
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(tunnelBypassHeader, "true")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// send executes req and returns the raw response. A 401 outside login ends
// the session.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized && !sessionless(req.URL.Path) {
		resp.Body.Close()
		c.expire()
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// sessionless reports paths whose 401 says nothing about the session.
func sessionless(path string) bool {
	return strings.HasSuffix(path, loginPath) || strings.HasSuffix(path, logoutPath)
}

// do sends a JSON request and decodes the envelope. out receives data.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (*envelope, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body, "application/json")
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) (*envelope, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	env := &envelope{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		if resp.StatusCode == http.StatusBadRequest && len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &apiErr.Fields)
		}
		return env, apiErr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decoding data: %w", err)
		}
	}
	return env, nil
}

type authResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (c *Client) startSession(res *authResult) (*model.User, error) {
	c.setToken(res.Token)
	if err := c.session.SetUser(res.User); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var res authResult
	_, err := c.do(ctx, http.MethodPost, loginPath, map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	return c.startSession(&res)
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (*model.User, error) {
	var res authResult
	_, err := c.do(ctx, http.MethodPost, "/auth/signup",
		map[string]string{"name": name, "email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	return c.startSession(&res)
}

// Refresh rotates the refresh cookie and picks up a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	var res authResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, &res); err != nil {
		return err
	}
	_, err := c.startSession(&res)
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, logoutPath, nil, nil)
	c.setToken("")
	c.resetJar()
	if cerr := c.session.Clear(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var u model.User
	if _, err := c.do(ctx, http.MethodGet, "/auth", nil, &u); err != nil {
		return nil, err
	}
	if err := c.session.SetUser(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/forgot-password/"+url.PathEscape(email), nil, nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/reset-password",
		map[string]string{"token": token, "password": password}, nil)
	return err
}

// PollCurrentUser fetches the current user every poll interval until ctx
// ends or the session expires. Other errors are passed to onErr and polling
// continues; there is no retry beyond the next tick.
func (c *Client) PollCurrentUser(ctx context.Context, onErr func(error)) error {
	t := time.NewTicker(c.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		_, err := c.CurrentUser(ctx)
		if errors.Is(err, ErrSessionExpired) {
			return err
		}
		if err != nil && ctx.Err() == nil && onErr != nil {
			onErr(err)
		}
	}
}

// Report fetches aggregate counts for the period around date. A zero date
// means today.
func (c *Client) Report(ctx context.Context, date time.Time, period string) (*model.Report, error) {
	q := url.Values{}
	if !date.IsZero() {
		q.Set("date", date.Format(datefmt.ISO))
	}
	if period != "" {
		q.Set("period", period)
	}
	path := "/reports"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var r model.Report
	if _, err := c.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Upload sends r as the multipart field "file".
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*model.File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/files/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var f model.File
	if _, err := decode(resp, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Download streams a stored file into w.
func (c *Client) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/files/download/"+url.PathEscape(name), nil, "application/json")
	if err != nil {
		return 0, err
	}
	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, err := decode(resp, nil)
		return 0, err
	}
	return io.Copy(w, resp.Body)
}
