// Package api is the collaborator boundary between the conversation
// engine and the platform's REST backend. It owns two things: the
// HTTP transport (with its error taxonomy) and the normalization of
// the backend's loosely named payloads into one canonical shape per
// resource. No field-drift logic exists outside this package.
package api

import (
	"time"
)

// Module is a course module as listed by the backend.
type Module struct {
	ID   string
	Code string
	Name string
}

// ContentRef is a normalized reference to an uploaded study material.
type ContentRef struct {
	ID       string
	Title    string
	Type     string
	ModuleID string
}

// SessionSummary is the listing-level view of a conversation session.
// The full message history is never part of a summary.
type SessionSummary struct {
	ID           string
	Title        string
	ModuleRef    string
	ContentIDs   []string
	Preview      string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WireMessage is a server-confirmed conversation message.
type WireMessage struct {
	ID        string
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// ExchangeResult is the outcome of one message exchange: the
// confirmed copy of the user's message and the assistant's reply.
type ExchangeResult struct {
	UserMessage      WireMessage
	AssistantMessage WireMessage
}
