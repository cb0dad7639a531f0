package app

import (
	"strings"

	"github.com/curaline/consult/internal/core"
)

// PickAudioInput selects the microphone in fixed preference order:
// a device flagged default, else the first whose label matches an
// affinity substring, else the first enumerated.
func PickAudioInput(devs []core.DeviceInfo, affinity []string) (core.DeviceInfo, bool) {
	if len(devs) == 0 {
		return core.DeviceInfo{}, false
	}
	for _, d := range devs {
		if d.IsDefault {
			return d, true
		}
	}
	for _, d := range devs {
		label := strings.ToLower(d.Label)
		for _, a := range affinity {
			if a != "" && strings.Contains(label, strings.ToLower(a)) {
				return d, true
			}
		}
	}
	return devs[0], true
}

// PickVideoInput takes the first available camera. Video is optional;
// the second return is false when there is none.
func PickVideoInput(devs []core.DeviceInfo) (core.DeviceInfo, bool) {
	if len(devs) == 0 {
		return core.DeviceInfo{}, false
	}
	return devs[0], true
}

// PickAudioOutput prefers the default output, else the first.
func PickAudioOutput(devs []core.DeviceInfo) (core.DeviceInfo, bool) {
	if len(devs) == 0 {
		return core.DeviceInfo{}, false
	}
	for _, d := range devs {
		if d.IsDefault {
			return d, true
		}
	}
	return devs[0], true
}
