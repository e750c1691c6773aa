package packet

import "fmt"

// Client → server opcodes.
const (
	C_OPCODE_LOGIN  byte = 0x0A // name, password
	C_OPCODE_LOGOUT byte = 0x14
	C_OPCODE_PING   byte = 0x1E

	C_OPCODE_WALK_NORTH     byte = 0x65
	C_OPCODE_WALK_EAST      byte = 0x66
	C_OPCODE_WALK_SOUTH     byte = 0x67
	C_OPCODE_WALK_WEST      byte = 0x68
	C_OPCODE_WALK_NORTHEAST byte = 0x6A
	C_OPCODE_WALK_SOUTHEAST byte = 0x6B
	C_OPCODE_WALK_SOUTHWEST byte = 0x6C
	C_OPCODE_WALK_NORTHWEST byte = 0x6D
)

// Server → client opcodes.
const (
	S_OPCODE_SELF_APPEAR     byte = 0x0A // login accepted: own ID, position, light
	S_OPCODE_DISCONNECT      byte = 0x14 // reason text, followed by close
	S_OPCODE_PING            byte = 0x1E
	S_OPCODE_ADD_CREATURE    byte = 0x6A
	S_OPCODE_REMOVE_CREATURE byte = 0x6C
	S_OPCODE_MOVE_CREATURE   byte = 0x6D
	S_OPCODE_WORLD_LIGHT     byte = 0x82
)

var clientOpcodeNames = map[byte]string{
	C_OPCODE_LOGIN:          "login",
	C_OPCODE_LOGOUT:         "logout",
	C_OPCODE_PING:           "ping",
	C_OPCODE_WALK_NORTH:     "walk_north",
	C_OPCODE_WALK_EAST:      "walk_east",
	C_OPCODE_WALK_SOUTH:     "walk_south",
	C_OPCODE_WALK_WEST:      "walk_west",
	C_OPCODE_WALK_NORTHEAST: "walk_northeast",
	C_OPCODE_WALK_SOUTHEAST: "walk_southeast",
	C_OPCODE_WALK_SOUTHWEST: "walk_southwest",
	C_OPCODE_WALK_NORTHWEST: "walk_northwest",
}

// OpcodeName returns a log-friendly name for a client opcode.
func OpcodeName(op byte) string {
	if name, ok := clientOpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", op)
}
