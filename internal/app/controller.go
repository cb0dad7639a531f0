package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
	"github.com/curaline/consult/internal/metrics"
)

// Options tunes one controller. Zero values fall back to defaults.
type Options struct {
	AudioAffinity   []string
	BrokerTimeout   time.Duration
	HardwareTimeout time.Duration
	EventQueueSize  int
}

func (o *Options) withDefaults() {
	if o.BrokerTimeout <= 0 {
		o.BrokerTimeout = 5 * time.Second
	}
	if o.HardwareTimeout <= 0 {
		o.HardwareTimeout = 5 * time.Second
	}
	if o.EventQueueSize <= 0 {
		o.EventQueueSize = 256
	}
}

// Deps are the external collaborators; all state behind them is theirs.
type Deps struct {
	Broker     core.Broker
	Engines    core.EngineFactory
	Channels   core.ChannelFactory
	Summarizer core.Summarizer
}

// Snapshot is a read-only view of the session for the UI.
type Snapshot struct {
	State             domain.SessionState     `json:"state"`
	Muted             bool                    `json:"muted"`
	VideoOn           bool                    `json:"videoOn"`
	RemoteVideoActive bool                    `json:"remoteVideoActive"`
	Roster            []domain.PresenceEntry  `json:"roster"`
	ChatHealth        string                  `json:"chatHealth"`
	Messages          []domain.ChatMessage    `json:"messages"`
	LiveCaption       string                  `json:"liveCaption,omitempty"`
	Transcript        []domain.TranscriptLine `json:"transcript"`
	Notices           []string                `json:"notices,omitempty"`
}

// Controller owns the lifecycle of one live consultation session.
//
// All mutable session state lives behind a single goroutine: five
// sources (engine events, inbound chat, channel lifecycle, transcript
// events, UI commands) converge on the loop, so a toggle can never
// interleave with a half-finished teardown. The state word itself is an
// atomic so read paths need not round-trip through the loop.
type Controller struct {
	sctx domain.SessionContext
	deps Deps
	opts Options

	state atomic.Int32

	events chan core.Event
	cmds   chan command
	quit   chan struct{}
	done   chan struct{}

	exitOnce     sync.Once
	teardownOnce sync.Once

	// loop-owned fields; touched only by the goroutine that currently
	// owns the session (the joining caller, then the run loop, then
	// whichever path executes teardown).
	engine       core.MediaSession
	channel      core.ChatChannel
	brokerJoined bool
	muted        bool
	videoOn      bool
	videoDev     *core.DeviceInfo
	presence     *PresenceRegistry
	transcript   *TranscriptPipeline
	chat         *chatLog
	notices      []string
}

func NewController(sctx domain.SessionContext, deps Deps, opts Options) *Controller {
	opts.withDefaults()
	c := &Controller{
		sctx:       sctx,
		deps:       deps,
		opts:       opts,
		events:     make(chan core.Event, opts.EventQueueSize),
		cmds:       make(chan command),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		presence:   NewPresenceRegistry(),
		transcript: NewTranscriptPipeline(sctx.LocalParticipantID),
		chat:       newChatLog(),
	}
	c.state.Store(int32(domain.StateIdle))
	return c
}

func (c *Controller) State() domain.SessionState {
	return domain.SessionState(c.state.Load())
}

func (c *Controller) setState(s domain.SessionState) {
	c.state.Store(int32(s))
	log.Info().Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Str("state", s.String()).Msg("state transition")
}

// Done closes once teardown has finished and the session is Closed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Enqueue converts a push callback into a queued loop message. Never
// blocks; a full queue drops the event.
func (c *Controller) Enqueue(ev core.Event) {
	select {
	case <-c.done:
	case c.events <- ev:
	default:
		log.Warn().Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Msg("event queue full, dropping event")
	}
}

// Join is valid only from idle. It runs the fixed acquisition sequence
// (broker, engine, audio in, video in, audio out) on the calling
// goroutine, checking between steps whether an exit arrived; on success
// the session is active and the event loop owns it.
func (c *Controller) Join(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(domain.StateIdle), int32(domain.StateJoining)) {
		if c.State() == domain.StateClosed {
			return domain.ErrSessionClosed
		}
		return domain.ErrSessionNotIdle
	}
	log.Info().Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Msg("joining")

	fail := func(stage core.JoinStage, err error) error {
		metrics.JoinFailures.WithLabelValues(string(stage)).Inc()
		c.releaseJoinPartials()
		c.setState(domain.StateIdle)
		// An exit that raced the failing join still needs the one
		// teardown routine to run, or its waiters never unblock.
		if c.exitRequested() {
			c.teardown("exit during join")
		}
		return &core.JoinError{Stage: stage, Err: err}
	}

	bctx, cancel := context.WithTimeout(ctx, c.opts.BrokerTimeout)
	desc, err := c.deps.Broker.Join(bctx, c.sctx.SessionID)
	cancel()
	if err != nil {
		return fail(core.StageBroker, err)
	}
	c.brokerJoined = true

	if c.exitRequested() {
		c.teardown("exit during join")
		return domain.ErrSessionClosed
	}

	engine, err := c.deps.Engines.New(ctx, desc, c.Enqueue)
	if err != nil {
		return fail(core.StageEngine, err)
	}
	c.engine = engine

	if c.exitRequested() {
		c.teardown("exit during join")
		return domain.ErrSessionClosed
	}

	audioIns, err := engine.EnumerateDevices(ctx, core.AudioInput)
	if err != nil {
		return fail(core.StageAudioEnum, err)
	}
	mic, ok := PickAudioInput(audioIns, c.opts.AudioAffinity)
	if !ok {
		return fail(core.StageAudioEnum, core.ErrNoAudioInput)
	}

	// Video is optional: enumeration or start failure degrades the
	// session to audio-only, it never aborts the join.
	if videoIns, verr := engine.EnumerateDevices(ctx, core.VideoInput); verr != nil {
		log.Warn().Err(verr).Str("module", "app.controller").Msg("video enumeration failed, continuing without video")
	} else if cam, vok := PickVideoInput(videoIns); vok {
		c.videoDev = &cam
	}

	if audioOuts, oerr := engine.EnumerateDevices(ctx, core.AudioOutput); oerr != nil {
		log.Warn().Err(oerr).Str("module", "app.controller").Msg("audio output enumeration failed")
	} else if spk, ook := PickAudioOutput(audioOuts); ook {
		if serr := engine.SelectAudioOutput(ctx, spk); serr != nil {
			log.Warn().Err(serr).Str("module", "app.controller").Msg("audio output selection failed")
		}
	}

	if c.exitRequested() {
		c.teardown("exit during join")
		return domain.ErrSessionClosed
	}

	if err := engine.StartAudio(ctx, mic); err != nil {
		return fail(core.StageAudioStart, err)
	}
	if c.videoDev != nil {
		if verr := engine.StartVideo(ctx, *c.videoDev); verr != nil {
			log.Warn().Err(verr).Str("module", "app.controller").Msg("video start failed, continuing without video")
			c.videoOn = false
		} else {
			c.videoOn = true
		}
	}

	c.setState(domain.StateActive)
	metrics.SessionsJoined.Inc()

	// Channel lifetime is bounded by the active session. A connect
	// failure disables chat but never fails the join.
	ch := c.deps.Channels.New(c.sctx, c.Enqueue)
	if cerr := ch.Connect(ctx); cerr != nil {
		log.Warn().Err(cerr).Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Msg("chat channel unavailable")
		c.notices = append(c.notices, "chat unavailable for this session")
	}
	c.channel = ch

	go c.run()
	return nil
}

func (c *Controller) exitRequested() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// releaseJoinPartials unwinds a failed join without consuming the
// teardown path, so a fresh Join from idle stays possible.
func (c *Controller) releaseJoinPartials() {
	if c.brokerJoined {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.BrokerTimeout)
		if err := c.deps.Broker.End(ctx, c.sctx.SessionID); err != nil {
			log.Warn().Err(err).Str("module", "app.controller").Msg("broker end after failed join")
		}
		cancel()
	}
	if c.engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.HardwareTimeout)
		if err := c.engine.Terminate(ctx); err != nil {
			log.Warn().Err(err).Str("module", "app.controller").Msg("engine release after failed join")
		}
		cancel()
		c.engine = nil
	}
	c.brokerJoined = false
	c.videoDev = nil
}

func (c *Controller) run() {
	for {
		select {
		case <-c.quit:
			c.teardown("exit requested")
			return
		case cmd := <-c.cmds:
			c.handleCommand(cmd)
		case ev := <-c.events:
			c.handleEvent(ev)
		}
	}
}

// Exit drives teardown from any state and is idempotent: the first
// caller wins, later and concurrent callers wait for the same result.
func (c *Controller) Exit(ctx context.Context) error {
	c.exitOnce.Do(func() { close(c.quit) })

	// No goroutine owns an idle session, so teardown runs here.
	if c.state.CompareAndSwap(int32(domain.StateIdle), int32(domain.StateLeaving)) {
		c.teardown("exit from idle")
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// teardown is the single cleanup routine for every exit trigger. Each
// step is guarded check-before-act so partial initialization can never
// make it fail, and no step's failure stops the ones after it. Hardware
// release runs regardless of the broker notification outcome.
func (c *Controller) teardown(reason string) {
	c.teardownOnce.Do(func() {
		c.setState(domain.StateLeaving)
		log.Info().Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Str("reason", reason).Msg("teardown")

		if c.brokerJoined {
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.BrokerTimeout)
			if err := c.deps.Broker.End(ctx, c.sctx.SessionID); err != nil {
				log.Warn().Err(err).Str("module", "app.controller").Msg("broker end notification failed")
			}
			cancel()
		}

		if c.engine != nil {
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.HardwareTimeout)
			if c.videoOn {
				if err := c.engine.StopVideo(ctx); err != nil {
					log.Warn().Err(err).Str("module", "app.controller").Msg("camera stop failed")
				}
			}
			if err := c.engine.StopAudio(ctx); err != nil {
				log.Warn().Err(err).Str("module", "app.controller").Msg("microphone stop failed")
			}
			if err := c.engine.Terminate(ctx); err != nil {
				log.Warn().Err(err).Str("module", "app.controller").Msg("engine terminate failed")
			}
			cancel()
		}

		if c.channel != nil {
			c.channel.Close()
		}

		c.engine = nil
		c.channel = nil

		c.setState(domain.StateClosed)
		metrics.SessionsClosed.Inc()
		close(c.done)
	})
}
