package handler

import (
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// walkOpcodes maps each walk opcode to its direction. The walk packets carry
// no body: the opcode is the direction.
var walkOpcodes = map[byte]world.Direction{
	packet.C_OPCODE_WALK_NORTH:     world.North,
	packet.C_OPCODE_WALK_EAST:      world.East,
	packet.C_OPCODE_WALK_SOUTH:     world.South,
	packet.C_OPCODE_WALK_WEST:      world.West,
	packet.C_OPCODE_WALK_NORTHEAST: world.NorthEast,
	packet.C_OPCODE_WALK_SOUTHEAST: world.SouthEast,
	packet.C_OPCODE_WALK_SOUTHWEST: world.SouthWest,
	packet.C_OPCODE_WALK_NORTHWEST: world.NorthWest,
}

// HandleWalk moves the session's character one step. The world drops steps
// onto coordinates without a tile; the client is not told.
func HandleWalk(sess *net.Session, r *packet.Reader, deps *Deps) {
	dir, ok := walkOpcodes[r.Opcode()]
	if !ok {
		return
	}
	player := sess.Player
	if player == nil {
		return
	}
	deps.World.MoveCreature(player, dir)
}

// HandlePing answers a keep-alive.
func HandlePing(sess *net.Session, _ *packet.Reader, _ *Deps) {
	sess.Send(net.BuildPing())
}
