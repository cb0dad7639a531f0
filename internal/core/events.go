package core

import "github.com/curaline/consult/internal/domain"

// Event is anything one of the session's asynchronous sources can feed
// into the controller loop. Push callbacks from the engine and the
// messaging channel are converted into these and queued; the loop is
// the only consumer.
type Event interface {
	isEvent()
}

// EventSink enqueues an event for the owning loop. Implementations must
// not block; when the queue is full the event is dropped and logged.
type EventSink func(Event)

// TileDescriptor is the engine's report of a tile create/update.
type TileDescriptor struct {
	TileID        domain.TileID
	ParticipantID domain.ParticipantID
	IsLocal       bool
	IsContent     bool
	Surface       domain.SurfaceHandle
}

// TranscriptAlternative is one hypothesis for a result's text.
type TranscriptAlternative struct {
	Text       string
	Confidence float64
}

// TranscriptResult carries one (possibly still partial) recognition
// result. The engine re-delivers a result under the same ResultID as it
// is refined; IsPartial=false marks the revision that will not change.
type TranscriptResult struct {
	ResultID     string
	IsPartial    bool
	Attributed   domain.ParticipantID
	Alternatives []TranscriptAlternative
}

type PresenceEvent struct {
	ParticipantID domain.ParticipantID
	Present       bool
}

type TileUpdatedEvent struct {
	Tile TileDescriptor
}

type TileRemovedEvent struct {
	TileID domain.TileID
}

type TranscriptEvent struct {
	Results []TranscriptResult
}

// ChatReceivedEvent is an inbound message already parsed by the channel.
type ChatReceivedEvent struct {
	Message domain.ChatMessage
}

// ChannelStateEvent reports messaging-channel health transitions.
type ChannelStateEvent struct {
	Health domain.ConnectionHealth
	Err    error
}

// EngineStoppedEvent is the engine telling us the media session ended
// underneath the controller (network loss, remote termination).
type EngineStoppedEvent struct {
	Reason string
}

func (PresenceEvent) isEvent()      {}
func (TileUpdatedEvent) isEvent()   {}
func (TileRemovedEvent) isEvent()   {}
func (TranscriptEvent) isEvent()    {}
func (ChatReceivedEvent) isEvent()  {}
func (ChannelStateEvent) isEvent()  {}
func (EngineStoppedEvent) isEvent() {}
