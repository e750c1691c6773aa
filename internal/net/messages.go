package net

import (
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// Server message builders. Creature records carry ID, name, outfit and
// heading so a client can draw a creature it hasn't seen before.

func writeCreature(w *packet.Writer, c *world.Creature) {
	w.WriteD(c.ID)
	w.WriteS(c.Name)
	w.WriteH(c.Outfit)
	w.WriteC(byte(c.Heading))
}

// BuildSelfAppear is the login acknowledgement: the player's own record,
// position and the ambient light.
func BuildSelfAppear(p *world.Creature, light world.Light) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SELF_APPEAR)
	pos := p.Position()
	w.WritePos(pos.X, pos.Y, pos.Z)
	writeCreature(w, p)
	w.WriteC(light.Radius)
	w.WriteC(light.Color)
	return w.Bytes()
}

// BuildWorldLight carries the ambient light.
func BuildWorldLight(light world.Light) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WORLD_LIGHT)
	w.WriteC(light.Radius)
	w.WriteC(light.Color)
	return w.Bytes()
}

// BuildDisconnect tells the client why it is being dropped.
func BuildDisconnect(reason string) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_DISCONNECT)
	w.WriteS(reason)
	return w.Bytes()
}

// BuildPing answers a client ping.
func BuildPing() []byte {
	return packet.NewWriterWithOpcode(packet.S_OPCODE_PING).Bytes()
}

// BuildAddCreature announces c at stackPos on its current tile.
func BuildAddCreature(c *world.Creature, stackPos int) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ADD_CREATURE)
	pos := c.Position()
	w.WritePos(pos.X, pos.Y, pos.Z)
	w.WriteC(byte(stackPos))
	writeCreature(w, c)
	return w.Bytes()
}

// BuildRemoveCreature announces that c left the tile at pos, where it
// occupied stackPos.
func BuildRemoveCreature(c *world.Creature, pos world.Position, stackPos int) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_REMOVE_CREATURE)
	w.WritePos(pos.X, pos.Y, pos.Z)
	w.WriteC(byte(stackPos))
	w.WriteD(c.ID)
	return w.Bytes()
}

// BuildCreatureMove announces one step from (from, fromStack) to (to, toStack).
func BuildCreatureMove(c *world.Creature, from *world.Tile, fromStack int, to *world.Tile, toStack int) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_MOVE_CREATURE)
	w.WritePos(from.Pos.X, from.Pos.Y, from.Pos.Z)
	w.WriteC(byte(fromStack))
	w.WritePos(to.Pos.X, to.Pos.Y, to.Pos.Z)
	w.WriteC(byte(toStack))
	w.WriteD(c.ID)
	w.WriteC(byte(c.Heading))
	return w.Bytes()
}
