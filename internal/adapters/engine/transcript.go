package engine

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

// transcriptChannelLabel names the data channel the engine opens for
// transcription fragments.
const transcriptChannelLabel = "transcript"

// transcriptFrame is the engine's wire shape for one batch of
// recognition results.
type transcriptFrame struct {
	Results []struct {
		ResultID      string `json:"resultId"`
		IsPartial     bool   `json:"isPartial"`
		ParticipantID string `json:"participantId"`
		Alternatives  []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// handleTranscriptData converts one data-channel frame into a queued
// transcript event. Malformed frames are logged and dropped; they never
// affect the session.
func (s *Session) handleTranscriptData(data []byte) {
	var frame transcriptFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Err(err).Str("module", "adapters.engine").Msg("dropping malformed transcript frame")
		return
	}
	if len(frame.Results) == 0 {
		return
	}

	results := make([]core.TranscriptResult, 0, len(frame.Results))
	for _, r := range frame.Results {
		alts := make([]core.TranscriptAlternative, 0, len(r.Alternatives))
		for _, a := range r.Alternatives {
			alts = append(alts, core.TranscriptAlternative{Text: a.Text, Confidence: a.Confidence})
		}
		results = append(results, core.TranscriptResult{
			ResultID:     r.ResultID,
			IsPartial:    r.IsPartial,
			Attributed:   domain.ParticipantID(r.ParticipantID),
			Alternatives: alts,
		})
	}
	s.emit(core.TranscriptEvent{Results: results})
}
