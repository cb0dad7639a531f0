// Package engine binds the opaque media-session engine to the
// controller's capability interface over a pion peer connection.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/curaline/consult/internal/core"
)

// meetingInfo is the half of the broker descriptor describing the
// engine-side media placement. Shape is owned by the engine backend;
// only the fields this adapter drives are decoded.
type meetingInfo struct {
	ICEServers   []string `json:"iceServers"`
	Offer        string   `json:"offer"`
	SignalingURL string   `json:"signalingUrl"`
	Devices      struct {
		AudioInputs  []core.DeviceInfo `json:"audioInputs"`
		VideoInputs  []core.DeviceInfo `json:"videoInputs"`
		AudioOutputs []core.DeviceInfo `json:"audioOutputs"`
	} `json:"devices"`
}

// attendeeInfo identifies the local participant within the engine.
type attendeeInfo struct {
	ParticipantID string `json:"participantId"`
}

func parseDescriptor(desc *core.SessionDescriptor) (meetingInfo, attendeeInfo, error) {
	var m meetingInfo
	var a attendeeInfo
	if desc == nil {
		return m, a, core.ErrDescriptorMalformed
	}
	if err := json.Unmarshal(desc.Meeting, &m); err != nil {
		return m, a, fmt.Errorf("%w: meeting: %v", core.ErrDescriptorMalformed, err)
	}
	if err := json.Unmarshal(desc.Attendee, &a); err != nil {
		return m, a, fmt.Errorf("%w: attendee: %v", core.ErrDescriptorMalformed, err)
	}
	if a.ParticipantID == "" {
		return m, a, fmt.Errorf("%w: attendee without participant id", core.ErrDescriptorMalformed)
	}
	return m, a, nil
}
