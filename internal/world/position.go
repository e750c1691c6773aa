package world

import "fmt"

// MaxFloor is the highest floor index. Floor 7 is ground level; lower
// numbers are above ground, higher numbers are underground.
const MaxFloor = 15

// Position is a tile coordinate. Value type, compared structurally.
type Position struct {
	X int32
	Y int32
	Z int8
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Valid reports whether the floor is within [0, MaxFloor].
func (p Position) Valid() bool {
	return p.Z >= 0 && p.Z <= MaxFloor
}

// Direction is a walking heading. The four cardinal directions come first
// (client numbering 0-3), diagonals follow.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
	NorthEast
	SouthEast
	SouthWest
	NorthWest
)

// direction deltas indexed by Direction
var dirDX = [8]int32{0, 1, 0, -1, 1, 1, -1, -1}
var dirDY = [8]int32{-1, 0, 1, 0, -1, 1, 1, -1}

var dirNames = [8]string{"north", "east", "south", "west", "northeast", "southeast", "southwest", "northwest"}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return dirNames[d]
}

// Valid reports whether d is one of the eight headings.
func (d Direction) Valid() bool {
	return d <= NorthWest
}

// Cardinal reports whether d is one of the four axis-aligned headings.
func (d Direction) Cardinal() bool {
	return d <= West
}

// Adjacent returns the neighbouring position one step in direction d on the
// same floor. An invalid direction returns p unchanged.
func (p Position) Adjacent(d Direction) Position {
	if !d.Valid() {
		return p
	}
	return Position{X: p.X + dirDX[d], Y: p.Y + dirDY[d], Z: p.Z}
}
