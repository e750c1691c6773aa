package event

import "github.com/otgo/server/internal/world"

// PlayerEntered is emitted when a session takes control of a character,
// either freshly placed or taken over from an older session.
type PlayerEntered struct {
	CreatureID  uint32
	Name        string
	AccountName string
	SessionID   uint64
	Reconnected bool
}

// PlayerLeft is emitted after a character has been removed from the world.
type PlayerLeft struct {
	CreatureID uint32
	Name       string
	SessionID  uint64
	Pos        world.Position
	Heading    world.Direction
}
