package chatws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaline/consult/internal/core"
)

func TestMarshalEnvelopeWireShape(t *testing.T) {
	raw, err := marshalEnvelope(core.Envelope{
		Action:         core.ActionSendMessage,
		RecipientID:    "B",
		ConversationID: "S1",
		Text:           "hello",
		Timestamp:      "2026-09-01T10:00:00Z",
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	// The key set is fixed by the signaling contract.
	assert.Len(t, m, 5)
	assert.Equal(t, "sendMessage", m["action"])
	assert.Equal(t, "B", m["recipientId"])
	assert.Equal(t, "S1", m["conversationId"])
	assert.Equal(t, "hello", m["text"])
	assert.Equal(t, "2026-09-01T10:00:00Z", m["timestamp"])
}

func TestParseEnvelope(t *testing.T) {
	raw := []byte(`{"action":"sendMessage","recipientId":"A","conversationId":"S1","text":"hi","timestamp":"2026-09-01T10:00:00Z"}`)

	msg, err := parseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.IsOptimistic)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), msg.Timestamp)
}

func TestParseEnvelopeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"bad json":       `{"action":`,
		"unknown action": `{"action":"typing","text":"x"}`,
		"empty text":     `{"action":"sendMessage","text":""}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseEnvelope([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestParseEnvelopeBadTimestampFallsBack(t *testing.T) {
	raw := []byte(`{"action":"sendMessage","recipientId":"A","conversationId":"S1","text":"hi","timestamp":"yesterday"}`)

	msg, err := parseEnvelope(raw)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), msg.Timestamp, time.Minute)
}
