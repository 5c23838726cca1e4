package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_RejectsBadURLs(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"file scheme", "file:///etc/passwd"},
		{"no scheme", "backend.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.baseURL); err == nil {
				t.Errorf("NewClient(%q) expected error", tt.baseURL)
			}
		})
	}
}

func TestClient_TransportErrorOnServerFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.ListSessions(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", te.Status)
	}
	if te.Path != "/sessions" {
		t.Errorf("Path = %q, want /sessions", te.Path)
	}
}

func TestClient_NotFoundIsSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetContent(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent() error = %v, want ErrNotFound", err)
	}

	_, err = client.GetSession(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestClient_AuthTokenHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithAuthToken("tok-123"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.ListModules(context.Background()); err != nil {
		t.Fatalf("ListModules() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestClient_SendMessage_MessagePairEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		_, _ = w.Write([]byte(`{
			"userMessage": {"id": "u1", "role": "user", "content": "What is a variable?"},
			"assistantMessage": {"id": "a1", "role": "assistant", "content": "A named storage location."}
		}`))
	}))

	result, err := client.SendMessage(context.Background(), "s1", "What is a variable?")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.UserMessage.ID != "u1" || result.UserMessage.Role != "user" {
		t.Errorf("UserMessage = %+v", result.UserMessage)
	}
	if result.AssistantMessage.ID != "a1" || result.AssistantMessage.Content != "A named storage location." {
		t.Errorf("AssistantMessage = %+v", result.AssistantMessage)
	}
}

func TestClient_SendMessage_BareAnswerEnvelope(t *testing.T) {
	// The older exchange endpoint returns the assistant side as a
	// plain string under "answer".
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"user_message": {"id": "u2", "sender": "user", "text": "hi"},
			"answer": "Hello! What shall we study today?"
		}`))
	}))

	result, err := client.SendMessage(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.AssistantMessage.Role != "assistant" {
		t.Errorf("assistant role = %q", result.AssistantMessage.Role)
	}
	if result.AssistantMessage.Content != "Hello! What shall we study today?" {
		t.Errorf("assistant content = %q", result.AssistantMessage.Content)
	}
}

func TestClient_SendMessage_MissingPair(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))

	_, err := client.SendMessage(context.Background(), "s1", "hi")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestClient_ListModuleContent_InheritsModuleID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/modules/m1/content" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"documents": [{"fileId": "f1", "fileName": "intro.pdf"}]}`))
	}))

	refs, err := client.ListModuleContent(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ListModuleContent() error = %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("len = %d, want 1", len(refs))
	}
	if refs[0].ModuleID != "m1" {
		t.Errorf("ModuleID = %q, want m1 (inherited from path)", refs[0].ModuleID)
	}
}

func TestClient_GenerateTitle(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "Intro to variables"}`))
	}))

	title, err := client.GenerateTitle(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if title != "Intro to variables" {
		t.Errorf("title = %q", title)
	}
}
