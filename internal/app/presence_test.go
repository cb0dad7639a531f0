package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

func remoteTile(id domain.TileID, p domain.ParticipantID) core.TileDescriptor {
	return core.TileDescriptor{TileID: id, ParticipantID: p, Surface: domain.SurfaceHandle("s")}
}

func TestPresenceIdempotent(t *testing.T) {
	r := NewPresenceRegistry()

	r.OnPresenceChanged("B", true)
	r.OnPresenceChanged("B", true)
	assert.Len(t, r.Roster(), 1)

	r.OnPresenceChanged("B", false)
	r.OnPresenceChanged("B", false)
	assert.Empty(t, r.Roster())
}

func TestRemoteTileBindAndRemove(t *testing.T) {
	r := NewPresenceRegistry()
	r.OnPresenceChanged("B", true)

	_, bound := r.OnTileUpdated(remoteTile(1, "B"))
	assert.True(t, bound)
	assert.True(t, r.RemoteVideoActive())

	removed, ok := r.OnTileRemoved(1)
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("B"), removed.ParticipantID)
	assert.False(t, r.RemoteVideoActive())

	// Removing an already-removed tile is a no-op.
	_, ok = r.OnTileRemoved(1)
	assert.False(t, ok)
}

func TestContentTileIgnored(t *testing.T) {
	r := NewPresenceRegistry()
	desc := remoteTile(1, "B")
	desc.IsContent = true

	_, bound := r.OnTileUpdated(desc)
	assert.False(t, bound)
	assert.False(t, r.RemoteVideoActive())
}

func TestRemoteTileLastBoundWins(t *testing.T) {
	r := NewPresenceRegistry()
	r.OnPresenceChanged("B", true)
	r.OnPresenceChanged("C", true)

	r.OnTileUpdated(remoteTile(1, "B"))
	replaced, bound := r.OnTileUpdated(remoteTile(2, "C"))
	require.True(t, bound)
	require.NotNil(t, replaced)
	assert.Equal(t, domain.ParticipantID("B"), replaced.ParticipantID)
	assert.Equal(t, domain.ParticipantID("C"), r.RemoteTile().ParticipantID)

	// The displaced tile is forgotten: removing it is a no-op and the
	// current binding survives.
	_, ok := r.OnTileRemoved(1)
	assert.False(t, ok)
	assert.True(t, r.RemoteVideoActive())
}

func TestPresenceRemovalDestroysBinding(t *testing.T) {
	r := NewPresenceRegistry()
	r.OnPresenceChanged("B", true)
	r.OnTileUpdated(remoteTile(3, "B"))
	require.True(t, r.RemoteVideoActive())

	gone := r.OnPresenceChanged("B", false)
	require.NotNil(t, gone)
	assert.Equal(t, domain.TileID(3), gone.TileID)
	assert.False(t, r.RemoteVideoActive())
}

func TestLocalTileDoesNotAffectRemoteSignal(t *testing.T) {
	r := NewPresenceRegistry()
	local := core.TileDescriptor{TileID: 9, ParticipantID: "A", IsLocal: true, Surface: "local"}

	_, bound := r.OnTileUpdated(local)
	assert.True(t, bound)
	assert.False(t, r.RemoteVideoActive())
	require.NotNil(t, r.LocalTile())

	removed, ok := r.OnTileRemoved(9)
	require.True(t, ok)
	assert.True(t, removed.IsLocal)
	assert.Nil(t, r.LocalTile())
}

func TestFirstRemoteResolution(t *testing.T) {
	r := NewPresenceRegistry()

	assert.Equal(t, domain.BroadcastRecipient, r.FirstRemote("A"))

	r.OnPresenceChanged("A", true)
	assert.Equal(t, domain.BroadcastRecipient, r.FirstRemote("A"))

	r.OnPresenceChanged("B", true)
	r.OnPresenceChanged("C", true)
	assert.Equal(t, domain.ParticipantID("B"), r.FirstRemote("A"))

	r.OnPresenceChanged("B", false)
	assert.Equal(t, domain.ParticipantID("C"), r.FirstRemote("A"))
}
