package core

import (
	"context"
	"encoding/json"

	"github.com/curaline/consult/internal/domain"
)

// SessionDescriptor is the broker's engine descriptor pair. Both halves
// are opaque to this layer and passed through to the engine unmodified.
type SessionDescriptor struct {
	Meeting  json.RawMessage `json:"Meeting"`
	Attendee json.RawMessage `json:"Attendee"`
}

// Broker allocates and destroys the media-session descriptor.
type Broker interface {
	// Join requests a descriptor for the session. Non-2xx or a
	// malformed body is an error; the caller aborts the join.
	Join(ctx context.Context, id domain.SessionID) (*SessionDescriptor, error)
	// End tells the broker the session is over. Best-effort: callers
	// bound it with a short timeout and only log failure.
	End(ctx context.Context, id domain.SessionID) error
}

// Summarizer receives the flushed transcript at end of visit.
type Summarizer interface {
	Summarize(ctx context.Context, id domain.SessionID, transcript, subjectID string) error
}
