package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the typed HTTP client for the platform backend. All
// methods surface failures as *TransportError (or ErrNotFound where a
// missing resource is an answer, not a failure).
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAuthToken sets a bearer token attached to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	c := &Client{
		baseURL: parsed.String(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do performs a request and returns the raw response body. Timeout
// semantics belong to the http.Client; a timeout surfaces as an
// ordinary *TransportError.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &TransportError{Path: path, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		return nil, &TransportError{
			Path:   path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", truncateBody(payload)),
		}
	}

	return payload, nil
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// ListModules returns all course modules visible to the current user.
func (c *Client) ListModules(ctx context.Context) ([]Module, error) {
	raw, err := c.do(ctx, http.MethodGet, "/modules", nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(raw, "modules", "data")
	if err != nil {
		return nil, &TransportError{Path: "/modules", Err: err}
	}
	modules := make([]Module, 0, len(items))
	for _, item := range items {
		modules = append(modules, normalizeModule(item))
	}
	return modules, nil
}

// ListModuleContent returns the content listing for a single module.
func (c *Client) ListModuleContent(ctx context.Context, moduleID string) ([]ContentRef, error) {
	path := "/modules/" + url.PathEscape(moduleID) + "/content"
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(raw, "documents", "files", "content")
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	refs := make([]ContentRef, 0, len(items))
	for _, item := range items {
		ref := normalizeContentRef(item)
		if ref.ModuleID == "" {
			ref.ModuleID = moduleID
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// GetContent looks a single content item up by id. Returns ErrNotFound
// when the item does not exist (deleted or never uploaded).
func (c *Client) GetContent(ctx context.Context, contentID string) (*ContentRef, error) {
	path := "/content/" + url.PathEscape(contentID)
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(raw, "document", "file")
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	ref := normalizeContentRef(obj)
	if ref.ID == "" {
		ref.ID = contentID
	}
	return &ref, nil
}

// ListSessions returns summaries for every stored conversation.
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	raw, err := c.do(ctx, http.MethodGet, "/sessions", nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(raw, "sessions", "data")
	if err != nil {
		return nil, &TransportError{Path: "/sessions", Err: err}
	}
	summaries := make([]SessionSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, normalizeSessionSummary(item))
	}
	return summaries, nil
}

// GetSession fetches one session's metadata. Returns ErrNotFound for
// stale deep-link ids.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionSummary, error) {
	path := "/sessions/" + url.PathEscape(sessionID)
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(raw, "session")
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	summary := normalizeSessionSummary(obj)
	if summary.ID == "" {
		summary.ID = sessionID
	}
	return &summary, nil
}

// CreateSession persists a new session bound to the given context.
// ContentIDs may be empty; the backend accepts a module-only binding.
func (c *Client) CreateSession(ctx context.Context, moduleRef string, contentIDs []string) (*SessionSummary, error) {
	if contentIDs == nil {
		contentIDs = []string{}
	}
	body := map[string]any{
		"moduleId":   moduleRef,
		"contentIds": contentIDs,
	}
	raw, err := c.do(ctx, http.MethodPost, "/sessions", body)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(raw, "session")
	if err != nil {
		return nil, &TransportError{Path: "/sessions", Err: err}
	}
	summary := normalizeSessionSummary(obj)
	if summary.ModuleRef == "" {
		summary.ModuleRef = moduleRef
	}
	if summary.ContentIDs == nil {
		summary.ContentIDs = contentIDs
	}
	return &summary, nil
}

// DeleteSession removes a session and its history.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil)
	return err
}

// ListMessages returns the ordered message history of a session.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]WireMessage, error) {
	path := "/sessions/" + url.PathEscape(sessionID) + "/messages"
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(raw, "messages", "data")
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	messages := make([]WireMessage, 0, len(items))
	for _, item := range items {
		messages = append(messages, normalizeWireMessage(item))
	}
	return messages, nil
}

// SendMessage submits the user's text and returns the confirmed user
// message plus the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string) (*ExchangeResult, error) {
	path := "/sessions/" + url.PathEscape(sessionID) + "/messages"
	raw, err := c.do(ctx, http.MethodPost, path, map[string]any{"content": text})
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &TransportError{Path: path, Err: fmt.Errorf("decode exchange payload: %w", err)}
	}

	result := &ExchangeResult{}
	userRaw, userOK := pickRaw(envelope, "userMessage", "user_message")
	assistantRaw, assistantOK := pickRaw(envelope, "assistantMessage", "assistant_message", "reply", "answer")
	if !userOK || !assistantOK {
		return nil, &TransportError{Path: path, Err: fmt.Errorf("exchange payload missing message pair")}
	}

	userObj, err := decodeObject(userRaw)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	result.UserMessage = normalizeWireMessage(userObj)

	// The assistant side is either a full message object or, from the
	// older exchange endpoint, a bare string answer.
	var answer string
	if err := json.Unmarshal(assistantRaw, &answer); err == nil {
		result.AssistantMessage = WireMessage{Role: "assistant", Content: answer, CreatedAt: time.Now().UTC()}
	} else {
		assistantObj, err := decodeObject(assistantRaw)
		if err != nil {
			return nil, &TransportError{Path: path, Err: err}
		}
		result.AssistantMessage = normalizeWireMessage(assistantObj)
	}

	if result.UserMessage.Role == "" {
		result.UserMessage.Role = "user"
	}
	if result.AssistantMessage.Role == "" {
		result.AssistantMessage.Role = "assistant"
	}
	return result, nil
}

// GenerateTitle asks the backend to derive a title from the session's
// opening exchange. Best effort; callers are expected to swallow
// failures.
func (c *Client) GenerateTitle(ctx context.Context, sessionID string) (string, error) {
	path := "/sessions/" + url.PathEscape(sessionID) + "/title"
	raw, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", err
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return "", &TransportError{Path: path, Err: err}
	}
	title := firstString(obj, "title", "sessionTitle")
	if title == "" {
		return "", &TransportError{Path: path, Err: fmt.Errorf("empty title in response")}
	}
	return title, nil
}

func pickRaw(m map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}
