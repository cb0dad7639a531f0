package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
	"github.com/curaline/consult/internal/metrics"
)

var errNoCamera = errors.New("no camera available")

func (c *Controller) handleEvent(ev core.Event) {
	switch e := ev.(type) {
	case core.PresenceEvent:
		if gone := c.presence.OnPresenceChanged(e.ParticipantID, e.Present); gone != nil {
			c.unbindSurface(gone.TileID)
		}
	case core.TileUpdatedEvent:
		replaced, bound := c.presence.OnTileUpdated(e.Tile)
		if replaced != nil {
			c.unbindSurface(replaced.TileID)
		}
		if bound && !e.Tile.IsLocal && c.engine != nil {
			if err := c.engine.BindRemoteSurface(e.Tile.TileID, e.Tile.Surface); err != nil {
				log.Warn().Err(err).Str("module", "app.controller").Int("tile", int(e.Tile.TileID)).Msg("surface bind failed")
			}
		}
	case core.TileRemovedEvent:
		if removed, ok := c.presence.OnTileRemoved(e.TileID); ok && !removed.IsLocal {
			c.unbindSurface(e.TileID)
		}
	case core.TranscriptEvent:
		if n := c.transcript.OnTranscriptEvent(e.Results); n > 0 {
			metrics.TranscriptLines.Add(float64(n))
		}
	case core.ChatReceivedEvent:
		if c.chat.append(e.Message) {
			metrics.ChatMessages.WithLabelValues("received").Inc()
		}
	case core.ChannelStateEvent:
		c.handleChannelState(e)
	case core.EngineStoppedEvent:
		// The media session ended underneath us; run the same teardown
		// as a user exit.
		log.Warn().Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Str("reason", e.Reason).Msg("engine stopped")
		c.exitOnce.Do(func() { close(c.quit) })
	}
}

func (c *Controller) unbindSurface(id domain.TileID) {
	if c.engine != nil {
		c.engine.UnbindSurface(id)
	}
}

func (c *Controller) handleChannelState(e core.ChannelStateEvent) {
	switch e.Health {
	case domain.HealthConnected:
		log.Info().Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Msg("chat channel connected")
	case domain.HealthReconnecting:
		log.Warn().Err(e.Err).Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Msg("chat channel reconnecting")
	case domain.HealthDisconnected:
		log.Warn().Err(e.Err).Str("module", "app.controller").Str("session", string(c.sctx.SessionID)).Msg("chat channel disconnected")
		c.notices = append(c.notices, "chat disconnected")
	}
}
