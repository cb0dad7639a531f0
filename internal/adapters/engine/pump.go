package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// opus "silence" frame (DTX comfort noise placeholder)
var silentFrame = []byte{0xf8, 0xff, 0xfe}

// pump paces outbound RTP for one local track. Capture hardware feeds
// the engine out-of-process; this loop keeps the transceiver alive with
// comfort-noise frames and pauses entirely while muted.
func (s *Session) pump(ctx context.Context, track *webrtc.TrackLocalStaticRTP, interval time.Duration, deviceID string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seq := uint16(rand.Intn(1 << 16))
	ts := rand.Uint32()
	ssrc := rand.Uint32()
	step := uint32(interval / time.Millisecond * 48) // 48kHz clock

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.isMuted() {
			ts += step
			continue
		}
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				SequenceNumber: seq,
				Timestamp:      ts,
				SSRC:           ssrc,
			},
			Payload: silentFrame,
		}
		if err := track.WriteRTP(pkt); err != nil {
			log.Debug().Err(err).Str("module", "adapters.engine").Str("device", deviceID).Msg("pump stopped")
			return
		}
		seq++
		ts += step
	}
}
