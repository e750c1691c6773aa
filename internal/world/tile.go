package world

// Tile is one cell of the world grid: an optional ground item plus the
// creatures standing on it, in arrival order.
//
// A creature's Tile() and the tile's creature list always agree once an
// operation returns. MoveCreature briefly lists the creature on both tiles
// while the move is announced; nothing else can observe that because all
// mutation happens on the game loop goroutine.
type Tile struct {
	Pos    Position
	Ground *Item

	creatures []*Creature
}

// NewTile creates an empty tile. Tiles are built by map loading, never by
// the world core.
func NewTile(pos Position, ground *Item) *Tile {
	return &Tile{Pos: pos, Ground: ground}
}

// Creatures returns the occupants in arrival order. The slice is owned by
// the tile and must not be modified.
func (t *Tile) Creatures() []*Creature {
	return t.creatures
}

// HasNoCreatures reports whether nobody stands on the tile.
func (t *Tile) HasNoCreatures() bool {
	return len(t.creatures) == 0
}

func (t *Tile) indexOf(c *Creature) int {
	for i, o := range t.creatures {
		if o == c {
			return i
		}
	}
	return -1
}

func (t *Tile) stackPosAt(idx int) int {
	if t.Ground != nil {
		return idx + 1
	}
	return idx
}

// StackPos returns c's rendering slot on this tile, or -1 if c isn't here.
// The ground item, when present, takes slot 0.
func (t *Tile) StackPos(c *Creature) int {
	idx := t.indexOf(c)
	if idx < 0 {
		return -1
	}
	return t.stackPosAt(idx)
}

// AddCreature puts c on the tile and points c at it. With notify set, every
// spectator of the tile is told c appeared. Adding a creature that is
// already here does nothing.
func (t *Tile) AddCreature(g *Game, c *Creature, notify bool) {
	if t.indexOf(c) >= 0 {
		return
	}
	t.creatures = append(t.creatures, c)
	c.tile = t
	g.setPosition(c, t.Pos)
	if notify {
		g.announceAppear(t, c, t.stackPosAt(len(t.creatures)-1))
	}
}

// RemoveCreature takes c off the tile. With notify set, every spectator of
// the tile is told c disappeared. c's tile reference is cleared only if it
// still points here (during a move it already points at the destination).
func (t *Tile) RemoveCreature(g *Game, c *Creature, notify bool) {
	idx := t.indexOf(c)
	if idx < 0 {
		return
	}
	stackPos := t.stackPosAt(idx)
	t.creatures = append(t.creatures[:idx], t.creatures[idx+1:]...)
	if c.tile == t {
		c.tile = nil
	}
	if notify {
		g.announceDisappear(t, c, stackPos)
	}
}

// MoveCreature relocates c from this tile to dst. Order matters:
//  1. add to dst silently,
//  2. announce one move to the spectators of both tiles,
//  3. remove from this tile silently.
//
// Observers therefore never see c on neither tile, and get a single move
// instead of a disappear/appear pair.
func (t *Tile) MoveCreature(g *Game, c *Creature, dst *Tile) {
	if dst == t {
		return
	}
	fromStack := t.StackPos(c)
	if fromStack < 0 {
		return
	}
	dst.AddCreature(g, c, false)
	g.announceMove(c, t, fromStack, dst, dst.StackPos(c))
	t.RemoveCreature(g, c, false)
}
