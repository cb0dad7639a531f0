package app

import (
	"strings"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

// TranscriptPipeline accumulates the durable transcript. Only final
// results become lines; partials are kept as transient caption state.
// Single-writer: owned by the controller loop.
type TranscriptPipeline struct {
	local domain.ParticipantID

	lines  []domain.TranscriptLine
	buf    strings.Builder
	finals map[string]struct{}

	liveCaption string
}

func NewTranscriptPipeline(local domain.ParticipantID) *TranscriptPipeline {
	return &TranscriptPipeline{
		local:  local,
		finals: make(map[string]struct{}),
	}
}

// OnTranscriptEvent folds one engine event into the buffer and returns
// the number of lines appended. Results with no alternative are
// dropped; a final result re-delivered under the same id is dropped.
func (p *TranscriptPipeline) OnTranscriptEvent(results []core.TranscriptResult) int {
	appended := 0
	for _, res := range results {
		if len(res.Alternatives) == 0 {
			continue
		}
		text := res.Alternatives[0].Text

		if res.IsPartial {
			p.liveCaption = text
			continue
		}

		if res.ResultID != "" {
			if _, dup := p.finals[res.ResultID]; dup {
				continue
			}
			p.finals[res.ResultID] = struct{}{}
		}

		speaker := domain.SpeakerPatient
		if res.Attributed == p.local {
			speaker = domain.SpeakerDoctor
		}

		p.lines = append(p.lines, domain.TranscriptLine{
			Speaker:       speaker,
			Text:          text,
			SequenceIndex: len(p.lines),
		})
		p.buf.WriteString(string(speaker))
		p.buf.WriteString(": ")
		p.buf.WriteString(text)
		p.buf.WriteString("\n")
		p.liveCaption = ""
		appended++
	}
	return appended
}

// FlushForSummary returns the durable transcript without resetting it.
func (p *TranscriptPipeline) FlushForSummary() string {
	return p.buf.String()
}

func (p *TranscriptPipeline) Lines() []domain.TranscriptLine {
	out := make([]domain.TranscriptLine, len(p.lines))
	copy(out, p.lines)
	return out
}

func (p *TranscriptPipeline) LiveCaption() string { return p.liveCaption }
