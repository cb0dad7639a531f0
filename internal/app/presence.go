package app

import (
	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

// PresenceRegistry tracks which remote participants are present and
// which of them has an active video tile bound. Not safe for concurrent
// use: the controller loop is the single writer and reader.
type PresenceRegistry struct {
	entries map[domain.ParticipantID]domain.PresenceEntry
	order   []domain.ParticipantID

	local  *domain.TileBinding
	remote *domain.TileBinding

	// lastTiles remembers the last descriptor per tile id so a removal
	// can be classified after the fact.
	lastTiles map[domain.TileID]core.TileDescriptor
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		entries:   make(map[domain.ParticipantID]domain.PresenceEntry),
		lastTiles: make(map[domain.TileID]core.TileDescriptor),
	}
}

// OnPresenceChanged upserts or removes the entry. Idempotent for
// repeated reports of the same value. Returns the remote binding that
// was destroyed because its owner left, if any.
func (r *PresenceRegistry) OnPresenceChanged(id domain.ParticipantID, present bool) *domain.TileBinding {
	if present {
		if _, ok := r.entries[id]; !ok {
			r.entries[id] = domain.PresenceEntry{ParticipantID: id, IsPresent: true}
			r.order = append(r.order, id)
			log.Debug().Str("module", "app.presence").Str("participant", string(id)).Msg("participant present")
		}
		return nil
	}

	if _, ok := r.entries[id]; !ok {
		return nil
	}
	delete(r.entries, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Debug().Str("module", "app.presence").Str("participant", string(id)).Msg("participant left")

	if r.remote != nil && r.remote.ParticipantID == id {
		gone := r.remote
		r.remote = nil
		delete(r.lastTiles, gone.TileID)
		return gone
	}
	return nil
}

// OnTileUpdated binds the descriptor's surface. Content tiles are
// ignored. A remote bind replaces any prior remote binding
// (last-bound-wins; one visible remote surface). Returns the binding
// that was displaced, if any, and whether a bind happened.
func (r *PresenceRegistry) OnTileUpdated(desc core.TileDescriptor) (replaced *domain.TileBinding, bound bool) {
	if desc.IsContent {
		return nil, false
	}

	b := &domain.TileBinding{
		TileID:        desc.TileID,
		ParticipantID: desc.ParticipantID,
		IsLocal:       desc.IsLocal,
		Surface:       desc.Surface,
	}
	r.lastTiles[desc.TileID] = desc

	if desc.IsLocal {
		r.local = b
		return nil, true
	}

	if r.remote != nil && r.remote.TileID != desc.TileID {
		replaced = r.remote
		delete(r.lastTiles, replaced.TileID)
	}
	r.remote = b
	log.Debug().Str("module", "app.presence").Str("participant", string(desc.ParticipantID)).Int("tile", int(desc.TileID)).Msg("remote tile bound")
	return replaced, true
}

// OnTileRemoved clears the binding for a known tile. Removing an
// already-removed or never-seen tile is a no-op.
func (r *PresenceRegistry) OnTileRemoved(id domain.TileID) (removed *domain.TileBinding, ok bool) {
	desc, known := r.lastTiles[id]
	if !known {
		return nil, false
	}
	delete(r.lastTiles, id)

	if desc.IsLocal {
		if r.local != nil && r.local.TileID == id {
			removed = r.local
			r.local = nil
		}
		return removed, removed != nil
	}
	if r.remote != nil && r.remote.TileID == id {
		removed = r.remote
		r.remote = nil
		log.Debug().Str("module", "app.presence").Int("tile", int(id)).Msg("remote tile removed")
	}
	return removed, removed != nil
}

// RemoteVideoActive reports whether a remote non-content binding
// currently exists.
func (r *PresenceRegistry) RemoteVideoActive() bool {
	return r.remote != nil
}

func (r *PresenceRegistry) LocalTile() *domain.TileBinding  { return r.local }
func (r *PresenceRegistry) RemoteTile() *domain.TileBinding { return r.remote }

// Roster snapshots present participants in first-seen order.
func (r *PresenceRegistry) Roster() []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// FirstRemote resolves the chat recipient: the first present
// participant whose id differs from local, else the broadcast sentinel.
func (r *PresenceRegistry) FirstRemote(local domain.ParticipantID) domain.ParticipantID {
	for _, id := range r.order {
		if id != local {
			return id
		}
	}
	return domain.BroadcastRecipient
}
