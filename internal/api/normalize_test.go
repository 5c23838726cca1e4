package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeContentRef_FieldDrift(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want ContentRef
	}{
		{
			name: "module listing shape",
			in:   map[string]any{"fileId": "f1", "fileName": "week1.pdf", "fileType": "pdf"},
			want: ContentRef{ID: "f1", Title: "week1.pdf", Type: "pdf"},
		},
		{
			name: "direct lookup shape",
			in:   map[string]any{"id": "f2", "name": "notes.md", "type": "markdown", "moduleId": "m1"},
			want: ContentRef{ID: "f2", Title: "notes.md", Type: "markdown", ModuleID: "m1"},
		},
		{
			name: "snake case shape",
			in:   map[string]any{"document_id": "f3", "document_name": "slides.pptx"},
			want: ContentRef{ID: "f3", Title: "slides.pptx"},
		},
		{
			name: "fileId wins over id",
			in:   map[string]any{"fileId": "f4", "id": "ignored"},
			want: ContentRef{ID: "f4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeContentRef(tt.in)
			if got != tt.want {
				t.Errorf("normalizeContentRef() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeSessionSummary(t *testing.T) {
	in := map[string]any{
		"sessionId":    "s1",
		"sessionTitle": "Pointers in C",
		"module":       "CS101",
		"documentIds":  []any{"f1", "f2"},
		"last_message": "A pointer stores an address.",
		"messageCount": float64(6),
		"createdAt":    "2026-03-01T10:00:00Z",
	}

	got := normalizeSessionSummary(in)
	if got.ID != "s1" {
		t.Errorf("ID = %q, want s1", got.ID)
	}
	if got.Title != "Pointers in C" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.ModuleRef != "CS101" {
		t.Errorf("ModuleRef = %q", got.ModuleRef)
	}
	if len(got.ContentIDs) != 2 || got.ContentIDs[0] != "f1" {
		t.Errorf("ContentIDs = %v", got.ContentIDs)
	}
	if got.Preview != "A pointer stores an address." {
		t.Errorf("Preview = %q", got.Preview)
	}
	if got.MessageCount != 6 {
		t.Errorf("MessageCount = %d", got.MessageCount)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !got.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want)
	}
}

func TestNormalizeWireMessage_SenderAlias(t *testing.T) {
	got := normalizeWireMessage(map[string]any{
		"messageId": "m1",
		"sender":    "assistant",
		"text":      "Variables name storage locations.",
		"timestamp": "2026-03-01T10:01:00Z",
	})

	if got.ID != "m1" || got.Role != "assistant" {
		t.Errorf("normalizeWireMessage() = %+v", got)
	}
	if got.Content != "Variables name storage locations." {
		t.Errorf("Content = %q", got.Content)
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr bool
	}{
		{"bare array", `[{"id":"a"},{"id":"b"}]`, 2, false},
		{"wrapped array", `{"sessions":[{"id":"a"}]}`, 1, false},
		{"secondary wrapper", `{"data":[{"id":"a"}]}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"missing wrapper", `{"other":[]}`, 0, true},
		{"not json", `hello`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := decodeList(json.RawMessage(tt.raw), "sessions", "data")
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(items) != tt.wantLen {
				t.Errorf("decodeList() len = %d, want %d", len(items), tt.wantLen)
			}
		})
	}
}
