package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

type fakeBroker struct {
	mu      sync.Mutex
	joinErr error
	endErr  error
	joins   int
	ends    int
}

func (b *fakeBroker) Join(_ context.Context, _ domain.SessionID) (*core.SessionDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joins++
	if b.joinErr != nil {
		return nil, b.joinErr
	}
	return &core.SessionDescriptor{
		Meeting:  json.RawMessage(`{"iceServers":["stun:stun.example.com"]}`),
		Attendee: json.RawMessage(`{"participantId":"A"}`),
	}, nil
}

func (b *fakeBroker) End(_ context.Context, _ domain.SessionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ends++
	return b.endErr
}

func (b *fakeBroker) endCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ends
}

type fakeEngine struct {
	mu sync.Mutex

	audioIns  []core.DeviceInfo
	videoIns  []core.DeviceInfo
	audioOuts []core.DeviceInfo

	audioEnumErr  error
	videoEnumErr  error
	startAudioErr error
	startVideoErr error
	stopVideoErr  error
	setMutedErr   error

	startedAudio *core.DeviceInfo
	output       *core.DeviceInfo
	mutedCalls   []bool
	videoStarts  int
	videoStops   int
	audioStops   int
	terminates   int
	bound        map[domain.TileID]domain.SurfaceHandle
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		audioIns: []core.DeviceInfo{
			{ID: "mic-builtin", Label: "Built-in Microphone"},
			{ID: "mic-usb", Label: "USB Headset Microphone"},
		},
		videoIns:  []core.DeviceInfo{{ID: "cam-1", Label: "Integrated Camera"}},
		audioOuts: []core.DeviceInfo{{ID: "spk-1", Label: "Speakers", IsDefault: true}},
		bound:     make(map[domain.TileID]domain.SurfaceHandle),
	}
}

func (e *fakeEngine) EnumerateDevices(_ context.Context, kind core.DeviceKind) ([]core.DeviceInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case core.AudioInput:
		return e.audioIns, e.audioEnumErr
	case core.VideoInput:
		return e.videoIns, e.videoEnumErr
	case core.AudioOutput:
		return e.audioOuts, nil
	}
	return nil, errors.New("unknown kind")
}

func (e *fakeEngine) StartAudio(_ context.Context, dev core.DeviceInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startAudioErr != nil {
		return e.startAudioErr
	}
	e.startedAudio = &dev
	return nil
}

func (e *fakeEngine) StopAudio(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audioStops++
	return nil
}

func (e *fakeEngine) StartVideo(_ context.Context, _ core.DeviceInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startVideoErr != nil {
		return e.startVideoErr
	}
	e.videoStarts++
	return nil
}

func (e *fakeEngine) StopVideo(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopVideoErr != nil {
		return e.stopVideoErr
	}
	e.videoStops++
	return nil
}

func (e *fakeEngine) SelectAudioOutput(_ context.Context, dev core.DeviceInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output = &dev
	return nil
}

func (e *fakeEngine) SetMuted(_ context.Context, muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mutedCalls = append(e.mutedCalls, muted)
	return e.setMutedErr
}

func (e *fakeEngine) BindRemoteSurface(tile domain.TileID, surface domain.SurfaceHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bound[tile] = surface
	return nil
}

func (e *fakeEngine) UnbindSurface(tile domain.TileID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.bound, tile)
}

func (e *fakeEngine) Terminate(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terminates++
	return nil
}

func (e *fakeEngine) terminateCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminates
}

func (e *fakeEngine) startedAudioDevice() *core.DeviceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startedAudio
}

type fakeEngineFactory struct {
	engine *fakeEngine
	newErr error
}

func (f *fakeEngineFactory) New(_ context.Context, _ *core.SessionDescriptor, _ core.EventSink) (core.MediaSession, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	return f.engine, nil
}

type fakeChannel struct {
	mu         sync.Mutex
	health     domain.ConnectionHealth
	connectErr error
	sendErr    error
	sent       []core.Envelope
	closes     int
}

func (c *fakeChannel) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		c.health = domain.HealthDisconnected
		return c.connectErr
	}
	c.health = domain.HealthConnected
	return nil
}

func (c *fakeChannel) Send(env core.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeChannel) Health() domain.ConnectionHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.health = domain.HealthDisconnected
}

func (c *fakeChannel) sentEnvelopes() []core.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeChannel) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeChannelFactory struct {
	channel *fakeChannel
}

func (f *fakeChannelFactory) New(_ domain.SessionContext, _ core.EventSink) core.ChatChannel {
	return f.channel
}

type fakeSummarizer struct {
	mu          sync.Mutex
	err         error
	transcripts []string
	subjects    []string
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ domain.SessionID, transcript, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.transcripts = append(s.transcripts, transcript)
	s.subjects = append(s.subjects, subjectID)
	return nil
}

func (s *fakeSummarizer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

type fixtures struct {
	broker  *fakeBroker
	engine  *fakeEngine
	channel *fakeChannel
	sum     *fakeSummarizer
}

func newFixtures() *fixtures {
	return &fixtures{
		broker:  &fakeBroker{},
		engine:  newFakeEngine(),
		channel: &fakeChannel{},
		sum:     &fakeSummarizer{},
	}
}

func (f *fixtures) deps() Deps {
	return Deps{
		Broker:     f.broker,
		Engines:    &fakeEngineFactory{engine: f.engine},
		Channels:   &fakeChannelFactory{channel: f.channel},
		Summarizer: f.sum,
	}
}

func (f *fixtures) controller() *Controller {
	return NewController(testSessionContext(), f.deps(), testOptions())
}

func testSessionContext() domain.SessionContext {
	return domain.SessionContext{
		SessionID:          "S1",
		LocalParticipantID: "A",
		SubjectID:          "P9",
		Credential:         "tok-123",
	}
}

func testOptions() Options {
	return Options{
		AudioAffinity:   []string{"headset"},
		BrokerTimeout:   200 * time.Millisecond,
		HardwareTimeout: 200 * time.Millisecond,
	}
}
