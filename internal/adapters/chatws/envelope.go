package chatws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

var (
	errUnknownAction = errors.New("unknown action")
	errEmptyText     = errors.New("empty text")
)

func marshalEnvelope(env core.Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return raw, nil
}

// parseEnvelope converts an inbound frame into a ChatMessage. The wire
// format carries no sender id, so SenderID stays empty; the id is
// assigned locally on receipt.
func parseEnvelope(data []byte) (domain.ChatMessage, error) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Action != core.ActionSendMessage {
		return domain.ChatMessage{}, fmt.Errorf("%w: %q", errUnknownAction, env.Action)
	}
	if env.Text == "" {
		return domain.ChatMessage{}, errEmptyText
	}

	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	return domain.ChatMessage{
		ID:             uuid.NewString(),
		RecipientID:    domain.ParticipantID(env.RecipientID),
		ConversationID: domain.SessionID(env.ConversationID),
		Text:           env.Text,
		Timestamp:      ts,
		IsOptimistic:   false,
	}, nil
}
