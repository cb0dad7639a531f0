package app

import "github.com/curaline/consult/internal/domain"

// chatLog is the per-session message list, deduplicated on the
// client-generated message id. Single-writer: controller loop only.
type chatLog struct {
	messages []domain.ChatMessage
	seen     map[string]struct{}
}

func newChatLog() *chatLog {
	return &chatLog{seen: make(map[string]struct{})}
}

// append inserts the message unless its id was already inserted.
func (l *chatLog) append(msg domain.ChatMessage) bool {
	if msg.ID != "" {
		if _, dup := l.seen[msg.ID]; dup {
			return false
		}
		l.seen[msg.ID] = struct{}{}
	}
	l.messages = append(l.messages, msg)
	return true
}

func (l *chatLog) snapshot() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
