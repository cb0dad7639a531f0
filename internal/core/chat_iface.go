package core

import (
	"context"

	"github.com/curaline/consult/internal/domain"
)

// Envelope is the wire shape of a chat message, both directions.
// The key set is fixed; do not add fields.
type Envelope struct {
	Action         string `json:"action"`
	RecipientID    string `json:"recipientId"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
}

const ActionSendMessage = "sendMessage"

// ChatChannel is the duplex signaling connection for chat, independent
// of the media transport. Inbound messages and health transitions are
// delivered through the EventSink given at construction.
//
// The channel's lifetime is bounded by the owning session: Connect only
// after the session is active, Close as part of teardown. Close is
// terminal; the bounded reconnect policy applies only to unexpected
// closes.
type ChatChannel interface {
	Connect(ctx context.Context) error
	Send(env Envelope) error
	Health() domain.ConnectionHealth
	Close()
}

// ChannelFactory builds a channel for one session. Inbound messages and
// health transitions flow through sink.
type ChannelFactory interface {
	New(sctx domain.SessionContext, sink EventSink) ChatChannel
}
