// Package chat owns the message list of the active conversation: the
// optimistic-append / reconcile cycle, local validation, the
// per-conversation send limiter, and the context binding value.
package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation.
//
// A message starts life locally with only a LocalID and Pending set;
// once the server confirms it, the whole entry is replaced by one
// carrying the server-assigned ID. The two id spaces never mix, which
// keeps list keys collision-free.
type Message struct {
	// ID is the server-assigned identifier. Empty while Pending.
	ID string
	// LocalID is the locally generated identifier used to find and
	// replace the optimistic entry during reconciliation.
	LocalID string
	Role    Role
	Content string
	// Pending marks an optimistic entry not yet confirmed. A pending
	// entry left behind after a failed send is the caller's cue to
	// render it as unsent.
	Pending   bool
	CreatedAt time.Time
}

// newLocalMessage creates the optimistic user entry for a send.
func newLocalMessage(text string) Message {
	return Message{
		LocalID:   uuid.New().String(),
		Role:      RoleUser,
		Content:   text,
		Pending:   true,
		CreatedAt: time.Now().UTC(),
	}
}

func fromWire(w api.WireMessage) Message {
	role := Role(w.Role)
	if role != RoleUser && role != RoleAssistant {
		role = RoleAssistant
	}
	return Message{
		ID:        w.ID,
		Role:      role,
		Content:   w.Content,
		CreatedAt: w.CreatedAt,
	}
}
