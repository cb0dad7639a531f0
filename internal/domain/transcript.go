package domain

// SpeakerLabel attributes a transcript line to one side of the
// encounter. The local participant is always the clinician.
type SpeakerLabel string

const (
	SpeakerDoctor  SpeakerLabel = "Doctor"
	SpeakerPatient SpeakerLabel = "Patient"
)

// TranscriptLine is one final transcription result. Partial results
// are transient UI state and never become lines.
type TranscriptLine struct {
	Speaker       SpeakerLabel `json:"speakerLabel"`
	Text          string       `json:"text"`
	SequenceIndex int          `json:"sequenceIndex"`
}
