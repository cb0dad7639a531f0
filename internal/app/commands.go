package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
	"github.com/curaline/consult/internal/metrics"
)

type cmdKind int

const (
	cmdToggleMute cmdKind = iota
	cmdToggleVideo
	cmdSendChat
	cmdFlushTranscript
	cmdSnapshot
)

type cmdResult struct {
	boolVal bool
	strVal  string
	msg     domain.ChatMessage
	snap    Snapshot
	err     error
}

type command struct {
	kind  cmdKind
	text  string
	reply chan cmdResult
}

// dispatch posts a command to the loop and waits for its reply. The
// done guard keeps callers from hanging once the session is closed.
func (c *Controller) dispatch(cmd command) (cmdResult, error) {
	if c.State() != domain.StateActive {
		return cmdResult{}, domain.ErrSessionNotActive
	}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return cmdResult{}, domain.ErrSessionClosed
	}
	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-c.done:
		return cmdResult{}, domain.ErrSessionClosed
	}
}

// ToggleMute flips the intended mute state. The returned value is
// optimistic: the hardware call happens after the reply, and a failure
// reverts the state and surfaces a notice.
func (c *Controller) ToggleMute() (bool, error) {
	res, err := c.dispatch(command{kind: cmdToggleMute, reply: make(chan cmdResult, 1)})
	return res.boolVal, err
}

// ToggleVideo flips the camera. Turning video off releases the camera
// hardware, not just the stream.
func (c *Controller) ToggleVideo() (bool, error) {
	res, err := c.dispatch(command{kind: cmdToggleVideo, reply: make(chan cmdResult, 1)})
	return res.boolVal, err
}

// SendChat authors a message. The local copy is inserted optimistically
// whether or not the channel can currently transmit it.
func (c *Controller) SendChat(text string) (domain.ChatMessage, error) {
	res, err := c.dispatch(command{kind: cmdSendChat, text: text, reply: make(chan cmdResult, 1)})
	return res.msg, err
}

// SaveTranscript flushes the durable transcript through the loop, then
// calls the summarization service from the caller's goroutine so the
// loop never blocks on the network.
func (c *Controller) SaveTranscript(ctx context.Context) error {
	res, err := c.dispatch(command{kind: cmdFlushTranscript, reply: make(chan cmdResult, 1)})
	if err != nil {
		return err
	}
	return c.deps.Summarizer.Summarize(ctx, c.sctx.SessionID, res.strVal, c.sctx.SubjectID)
}

// GetSnapshot returns the UI view. Outside of active the snapshot
// carries only the state word.
func (c *Controller) GetSnapshot() Snapshot {
	res, err := c.dispatch(command{kind: cmdSnapshot, reply: make(chan cmdResult, 1)})
	if err != nil {
		return Snapshot{State: c.State()}
	}
	return res.snap
}

func (c *Controller) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdToggleMute:
		c.handleToggleMute(cmd)
	case cmdToggleVideo:
		c.handleToggleVideo(cmd)
	case cmdSendChat:
		c.handleSendChat(cmd)
	case cmdFlushTranscript:
		cmd.reply <- cmdResult{strVal: c.transcript.FlushForSummary()}
	case cmdSnapshot:
		cmd.reply <- cmdResult{snap: c.snapshot()}
	}
}

func (c *Controller) handleToggleMute(cmd command) {
	intended := !c.muted
	c.muted = intended
	cmd.reply <- cmdResult{boolVal: intended}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HardwareTimeout)
	defer cancel()
	if err := c.engine.SetMuted(ctx, intended); err != nil {
		c.muted = !intended
		c.notices = append(c.notices, "mute toggle failed")
		log.Warn().Err(err).Str("module", "app.controller").Bool("intended", intended).Msg("mute reverted")
	}
}

func (c *Controller) handleToggleVideo(cmd command) {
	intended := !c.videoOn
	c.videoOn = intended
	cmd.reply <- cmdResult{boolVal: intended}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HardwareTimeout)
	defer cancel()

	var err error
	if intended {
		if c.videoDev == nil {
			// No camera found at join; look again before giving up.
			if devs, derr := c.engine.EnumerateDevices(ctx, core.VideoInput); derr == nil {
				if cam, ok := PickVideoInput(devs); ok {
					c.videoDev = &cam
				}
			}
		}
		if c.videoDev == nil {
			err = errNoCamera
		} else {
			err = c.engine.StartVideo(ctx, *c.videoDev)
		}
	} else {
		err = c.engine.StopVideo(ctx)
	}
	if err != nil {
		c.videoOn = !intended
		c.notices = append(c.notices, "camera toggle failed")
		log.Warn().Err(err).Str("module", "app.controller").Bool("intended", intended).Msg("video reverted")
	}
}

func (c *Controller) handleSendChat(cmd command) {
	recipient := c.presence.FirstRemote(c.sctx.LocalParticipantID)
	msg, err := domain.NewLocalChatMessage(c.sctx.LocalParticipantID, recipient, c.sctx.SessionID, cmd.text)
	if err != nil {
		cmd.reply <- cmdResult{err: err}
		return
	}

	c.chat.append(msg)
	cmd.reply <- cmdResult{msg: msg}

	if c.channel == nil || c.channel.Health() != domain.HealthConnected {
		metrics.ChatMessages.WithLabelValues("dropped").Inc()
		log.Debug().Str("module", "app.controller").Msg("chat not connected, message kept locally only")
		return
	}
	env := core.Envelope{
		Action:         core.ActionSendMessage,
		RecipientID:    string(recipient),
		ConversationID: string(msg.ConversationID),
		Text:           msg.Text,
		Timestamp:      msg.Timestamp.Format(time.RFC3339),
	}
	if err := c.channel.Send(env); err != nil {
		metrics.ChatMessages.WithLabelValues("dropped").Inc()
		log.Warn().Err(err).Str("module", "app.controller").Msg("chat send failed")
		return
	}
	metrics.ChatMessages.WithLabelValues("sent").Inc()
}

// snapshot runs on the loop; the fields it reads are loop-owned.
func (c *Controller) snapshot() Snapshot {
	health := domain.HealthDisconnected
	if c.channel != nil {
		health = c.channel.Health()
	}
	return Snapshot{
		State:             c.State(),
		Muted:             c.muted,
		VideoOn:           c.videoOn,
		RemoteVideoActive: c.presence.RemoteVideoActive(),
		Roster:            c.presence.Roster(),
		ChatHealth:        health.String(),
		Messages:          c.chat.snapshot(),
		LiveCaption:       c.transcript.LiveCaption(),
		Transcript:        c.transcript.Lines(),
		Notices:           append([]string(nil), c.notices...),
	}
}
