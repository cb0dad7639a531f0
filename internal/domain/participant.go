package domain

// ParticipantID is the opaque identity issued by the identity provider
// and echoed by the session broker.
type ParticipantID string

// BroadcastRecipient is the sentinel recipient used when no remote
// participant is present to address directly.
const BroadcastRecipient ParticipantID = "BROADCAST"

// PresenceEntry mirrors the engine's last presence report for one
// participant. An entry exists iff the engine last reported present.
type PresenceEntry struct {
	ParticipantID ParticipantID `json:"participantId"`
	IsPresent     bool          `json:"isPresent"`
}
