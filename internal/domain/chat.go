package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxChatTextLen = 4096

var (
	ErrChatTextEmpty   = errors.New("chat text empty")
	ErrChatTextTooLong = errors.New("chat text too long")
)

// ChatMessage is one entry in the per-session chat log.
//
// ID is generated locally and never leaves the process: the wire
// envelope is fixed, so a server echo of our own message is still not
// identifiable by id. The ID only prevents double-insertion on the
// local side (resend, reconnect replay).
type ChatMessage struct {
	ID             string        `json:"id"`
	SenderID       ParticipantID `json:"senderId"`
	RecipientID    ParticipantID `json:"recipientId"`
	ConversationID SessionID     `json:"conversationId"`
	Text           string        `json:"text"`
	Timestamp      time.Time     `json:"timestamp"`
	IsOptimistic   bool          `json:"isOptimistic"`
}

// NewLocalChatMessage builds the optimistic local copy of an authored
// message. Validation here keeps ad-hoc literals out of adapters.
func NewLocalChatMessage(sender, recipient ParticipantID, conv SessionID, text string) (ChatMessage, error) {
	if len(text) == 0 {
		return ChatMessage{}, ErrChatTextEmpty
	}
	if len(text) > MaxChatTextLen {
		return ChatMessage{}, ErrChatTextTooLong
	}
	return ChatMessage{
		ID:             uuid.NewString(),
		SenderID:       sender,
		RecipientID:    recipient,
		ConversationID: conv,
		Text:           text,
		Timestamp:      time.Now().UTC(),
		IsOptimistic:   true,
	}, nil
}
