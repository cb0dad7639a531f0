// Package domain contains entity without logic, just meta-data
package domain

import "errors"

type SessionID string

// SessionState is owned exclusively by the lifecycle controller.
// All other components observe it read-only.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateJoining
	StateActive
	StateLeaving
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionHealth tracks the messaging channel independently of
// SessionState; it only gates whether chat send is attempted.
type ConnectionHealth int32

const (
	HealthConnected ConnectionHealth = iota
	HealthReconnecting
	HealthDisconnected
)

func (h ConnectionHealth) String() string {
	switch h {
	case HealthConnected:
		return "connected"
	case HealthReconnecting:
		return "reconnecting"
	case HealthDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var (
	ErrSessionNotIdle   = errors.New("session already joined")
	ErrSessionNotActive = errors.New("session not active")
	ErrSessionClosed    = errors.New("session closed")
)

// SessionContext carries the identity the controller acts under.
// Explicit on construction; nothing is read from ambient storage.
type SessionContext struct {
	SessionID          SessionID
	LocalParticipantID ParticipantID
	// SubjectID identifies the patient record the transcript belongs to.
	SubjectID  string
	Credential string
}
