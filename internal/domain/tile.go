package domain

type (
	TileID        int
	SurfaceHandle string
)

// TileBinding is a bound video surface. Content (screen share) tiles
// never produce bindings. At most one local and one remote binding
// exist at a time; a later remote bind replaces the earlier one.
type TileBinding struct {
	TileID        TileID
	ParticipantID ParticipantID
	IsLocal       bool
	Surface       SurfaceHandle
}
