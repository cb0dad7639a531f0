package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBackpressure means an outbound send buffer was full and the
	// payload was dropped rather than blocking the producer.
	ErrBackpressure = errors.New("send buffer full")

	// ErrNoCredential blocks a channel connect before any dial happens.
	ErrNoCredential = errors.New("missing credential token")

	ErrChannelClosed = errors.New("channel closed")

	ErrNoAudioInput = errors.New("no audio input device available")

	ErrDescriptorMalformed = errors.New("malformed session descriptor")
)

// JoinStage names the step of join sequencing that failed.
type JoinStage string

const (
	StageBroker     JoinStage = "broker"
	StageAudioEnum  JoinStage = "audio-enumeration"
	StageAudioStart JoinStage = "audio-start"
	StageEngine     JoinStage = "engine-init"
)

// JoinError is the only error kind escalated to a hard user-facing
// failure; everything else degrades the session in place.
type JoinError struct {
	Stage JoinStage
	Err   error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join failed at %s: %v", e.Stage, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }
