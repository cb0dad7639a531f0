package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

// contentStreamID marks a screen-share stream; its tiles are reported
// with IsContent set so the registry can ignore them.
const contentStreamID = "content"

type Factory struct{}

func (Factory) New(ctx context.Context, desc *core.SessionDescriptor, sink core.EventSink) (core.MediaSession, error) {
	m, a, err := parseDescriptor(desc)
	if err != nil {
		return nil, err
	}

	cfg := webrtc.Configuration{}
	if len(m.ICEServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: m.ICEServers}}
	} else {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine peer connection: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		pc:       pc,
		info:     m,
		local:    domain.ParticipantID(a.ParticipantID),
		sink:     sink,
		cancel:   cancel,
		runCtx:   runCtx,
		surfaces: make(map[domain.TileID]domain.SurfaceHandle),
		tiles:    make(map[string]domain.TileID),
	}
	s.install()

	if m.Offer != "" {
		if err := s.negotiate(ctx, m); err != nil {
			s.Terminate(ctx)
			return nil, err
		}
	}
	return s, nil
}

// Session drives one pion peer connection as the opaque media engine.
type Session struct {
	pc     *webrtc.PeerConnection
	info   meetingInfo
	local  domain.ParticipantID
	sink   core.EventSink
	cancel context.CancelFunc
	runCtx context.Context

	mu          sync.Mutex
	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender
	audioStop   context.CancelFunc
	videoStop   context.CancelFunc
	muted       bool
	output      *core.DeviceInfo
	surfaces    map[domain.TileID]domain.SurfaceHandle
	tiles       map[string]domain.TileID
	nextTile    domain.TileID

	closeOnce sync.Once
}

// install wires engine callbacks into queued events, never mutating
// controller state from pion's callback goroutines.
func (s *Session) install() {
	s.pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		log.Info().Str("module", "adapters.engine").Str("ice_state", st.String()).Msg("ICE state")
		if st == webrtc.ICEConnectionStateFailed || st == webrtc.ICEConnectionStateClosed {
			s.emit(core.EngineStoppedEvent{Reason: "ice " + st.String()})
		}
	})

	s.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != transcriptChannelLabel {
			return
		}
		log.Info().Str("module", "adapters.engine").Msg("transcript channel opened")
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			s.handleTranscriptData(msg.Data)
		})
	})

	s.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		participant := domain.ParticipantID(track.StreamID())
		log.Info().
			Str("module", "adapters.engine").
			Str("kind", track.Kind().String()).
			Str("participant", string(participant)).
			Msg("remote track")

		s.emit(core.PresenceEvent{ParticipantID: participant, Present: true})

		if track.Kind() == webrtc.RTPCodecTypeVideo {
			tile := s.tileFor(track.ID())
			s.emit(core.TileUpdatedEvent{Tile: core.TileDescriptor{
				TileID:        tile,
				ParticipantID: participant,
				IsLocal:       false,
				IsContent:     track.StreamID() == contentStreamID,
				Surface:       domain.SurfaceHandle(track.ID()),
			}})
			go s.drain(track, tile, participant)
			return
		}
		go s.drainAudio(track)
	})
}

func (s *Session) emit(ev core.Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}

func (s *Session) tileFor(trackID string) domain.TileID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tiles[trackID]; ok {
		return id
	}
	s.nextTile++
	s.tiles[trackID] = s.nextTile
	return s.nextTile
}

// drain reads a remote video track until it ends, then reports the
// tile removed and the participant gone.
func (s *Session) drain(track *webrtc.TrackRemote, tile domain.TileID, participant domain.ParticipantID) {
	for {
		if s.runCtx.Err() != nil {
			return
		}
		if _, _, err := track.ReadRTP(); err != nil {
			break
		}
	}
	s.emit(core.TileRemovedEvent{TileID: tile})
	s.emit(core.PresenceEvent{ParticipantID: participant, Present: false})
}

func (s *Session) drainAudio(track *webrtc.TrackRemote) {
	for {
		if s.runCtx.Err() != nil {
			return
		}
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}

// negotiate applies the engine's pre-built offer and posts the answer
// back to the engine's signaling endpoint.
func (s *Session) negotiate(ctx context.Context, m meetingInfo) error {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: m.Offer}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("engine offer: %w", err)
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("engine answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("engine answer: %w", err)
	}
	<-gatherComplete

	if m.SignalingURL == "" {
		return nil
	}
	local := s.pc.LocalDescription()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.SignalingURL, bytes.NewReader([]byte(local.SDP)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/sdp")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine answer post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("engine answer post: status %d", resp.StatusCode)
	}
	return nil
}

func (s *Session) EnumerateDevices(_ context.Context, kind core.DeviceKind) ([]core.DeviceInfo, error) {
	switch kind {
	case core.AudioInput:
		return s.info.Devices.AudioInputs, nil
	case core.VideoInput:
		return s.info.Devices.VideoInputs, nil
	case core.AudioOutput:
		return s.info.Devices.AudioOutputs, nil
	default:
		return nil, fmt.Errorf("unknown device kind %d", kind)
	}
}

func (s *Session) StartAudio(_ context.Context, dev core.DeviceInfo) error {
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", string(s.local),
	)
	if err != nil {
		return fmt.Errorf("audio track: %w", err)
	}
	sender, err := s.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("audio track: %w", err)
	}

	ctx, stop := context.WithCancel(s.runCtx)
	s.mu.Lock()
	s.audioSender = sender
	s.audioStop = stop
	s.mu.Unlock()

	go s.pump(ctx, track, audioClock, dev.ID)
	log.Info().Str("module", "adapters.engine").Str("device", dev.Label).Msg("audio started")
	return nil
}

func (s *Session) StopAudio(_ context.Context) error {
	s.mu.Lock()
	sender, stop := s.audioSender, s.audioStop
	s.audioSender, s.audioStop = nil, nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	if sender == nil {
		return nil
	}
	if err := s.pc.RemoveTrack(sender); err != nil {
		return fmt.Errorf("audio stop: %w", err)
	}
	return nil
}

func (s *Session) StartVideo(_ context.Context, dev core.DeviceInfo) error {
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", string(s.local),
	)
	if err != nil {
		return fmt.Errorf("video track: %w", err)
	}
	sender, err := s.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("video track: %w", err)
	}

	ctx, stop := context.WithCancel(s.runCtx)
	s.mu.Lock()
	s.videoSender = sender
	s.videoStop = stop
	s.mu.Unlock()

	go s.pump(ctx, track, videoClock, dev.ID)
	log.Info().Str("module", "adapters.engine").Str("device", dev.Label).Msg("video started")
	return nil
}

// StopVideo removes the sender and stops the capture pump. The camera
// is released, not just muted.
func (s *Session) StopVideo(_ context.Context) error {
	s.mu.Lock()
	sender, stop := s.videoSender, s.videoStop
	s.videoSender, s.videoStop = nil, nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	if sender == nil {
		return nil
	}
	if err := s.pc.RemoveTrack(sender); err != nil {
		return fmt.Errorf("video stop: %w", err)
	}
	return nil
}

func (s *Session) SelectAudioOutput(_ context.Context, dev core.DeviceInfo) error {
	s.mu.Lock()
	s.output = &dev
	s.mu.Unlock()
	log.Info().Str("module", "adapters.engine").Str("device", dev.Label).Msg("audio output selected")
	return nil
}

func (s *Session) SetMuted(_ context.Context, muted bool) error {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
	return nil
}

func (s *Session) isMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Session) BindRemoteSurface(tile domain.TileID, surface domain.SurfaceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surfaces[tile] = surface
	return nil
}

func (s *Session) UnbindSurface(tile domain.TileID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.surfaces, tile)
}

// Terminate releases everything. Safe on a session where nothing was
// ever started, and safe to call repeatedly.
func (s *Session) Terminate(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.StopVideo(ctx)
		_ = s.StopAudio(ctx)
		if cerr := s.pc.Close(); cerr != nil {
			err = fmt.Errorf("engine close: %w", cerr)
			return
		}
		log.Info().Str("module", "adapters.engine").Msg("engine terminated")
	})
	return err
}

const (
	audioClock = 20 * time.Millisecond
	videoClock = 33 * time.Millisecond
)
