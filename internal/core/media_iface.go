package core

import (
	"context"

	"github.com/curaline/consult/internal/domain"
)

type DeviceKind int

const (
	AudioInput DeviceKind = iota
	VideoInput
	AudioOutput
)

func (k DeviceKind) String() string {
	switch k {
	case AudioInput:
		return "audio-input"
	case VideoInput:
		return "video-input"
	case AudioOutput:
		return "audio-output"
	default:
		return "unknown"
	}
}

// DeviceInfo is the controller-facing view of one engine device.
type DeviceInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsDefault bool   `json:"isDefault"`
}

// MediaSession is the narrow capability set the controller drives.
// The engine behind it (device I/O, codecs, transport) stays opaque.
// Implementations must tolerate Stop/Terminate on things never started.
type MediaSession interface {
	// EnumerateDevices lists devices of one kind. An empty list is not
	// an error; the caller decides whether the kind is required.
	EnumerateDevices(ctx context.Context, kind DeviceKind) ([]DeviceInfo, error)

	StartAudio(ctx context.Context, dev DeviceInfo) error
	StopAudio(ctx context.Context) error
	StartVideo(ctx context.Context, dev DeviceInfo) error
	StopVideo(ctx context.Context) error
	SelectAudioOutput(ctx context.Context, dev DeviceInfo) error

	SetMuted(ctx context.Context, muted bool) error

	// BindRemoteSurface attaches a remote tile's stream to a display
	// surface; UnbindSurface releases it. Both are idempotent.
	BindRemoteSurface(tile domain.TileID, surface domain.SurfaceHandle) error
	UnbindSurface(tile domain.TileID)

	// Terminate releases every engine resource. Safe to call more than
	// once and safe when nothing was ever started.
	Terminate(ctx context.Context) error
}

// EngineFactory builds a MediaSession from the broker descriptor pair.
// Engine callbacks (presence, tiles, transcription, stop) are delivered
// through sink; the factory must never invoke sink synchronously from
// inside New.
type EngineFactory interface {
	New(ctx context.Context, desc *SessionDescriptor, sink EventSink) (MediaSession, error)
}
