package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

func TestHandleTranscriptData(t *testing.T) {
	var events []core.Event
	s := &Session{sink: func(ev core.Event) { events = append(events, ev) }}

	s.handleTranscriptData([]byte(`{"results":[
		{"resultId":"r1","isPartial":true,"participantId":"B",
		 "alternatives":[{"text":"hel","confidence":0.4}]},
		{"resultId":"r1","isPartial":false,"participantId":"B",
		 "alternatives":[{"text":"hello","confidence":0.92},{"text":"hallo","confidence":0.5}]}
	]}`))

	require.Len(t, events, 1)
	ev, ok := events[0].(core.TranscriptEvent)
	require.True(t, ok)
	require.Len(t, ev.Results, 2)

	assert.True(t, ev.Results[0].IsPartial)
	assert.Equal(t, "hel", ev.Results[0].Alternatives[0].Text)

	final := ev.Results[1]
	assert.False(t, final.IsPartial)
	assert.Equal(t, "r1", final.ResultID)
	assert.Equal(t, domain.ParticipantID("B"), final.Attributed)
	require.Len(t, final.Alternatives, 2)
	assert.Equal(t, "hello", final.Alternatives[0].Text)
	assert.InDelta(t, 0.92, final.Alternatives[0].Confidence, 1e-9)
}

func TestHandleTranscriptDataDropsMalformed(t *testing.T) {
	var events []core.Event
	s := &Session{sink: func(ev core.Event) { events = append(events, ev) }}

	s.handleTranscriptData([]byte(`{not json`))
	s.handleTranscriptData([]byte(`{"results":[]}`))

	assert.Empty(t, events)
}
