package world

import "fmt"

// Kind selects a creature's identity range and registry lists.
type Kind uint8

const (
	KindCreature Kind = iota // generic creature, shares the monster ID range
	KindPlayer
	KindNPC
	KindMonster
)

func (k Kind) String() string {
	switch k {
	case KindCreature:
		return "creature"
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	case KindMonster:
		return "monster"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Connection is the session a player creature talks through. Sends are
// fire-and-forget: implementations buffer and own their own I/O.
// Stack positions count the ground item as slot 0 when the tile has one.
type Connection interface {
	LoggedIn() bool
	Disconnect()
	SendAddCreature(c *Creature, stackPos int)
	SendRemoveCreature(c *Creature, stackPos int)
	SendCreatureMove(c *Creature, to *Tile, toStackPos int, from *Tile, fromStackPos int)
}

// Observer receives the generic creature-level callbacks in addition to the
// built-in known-set bookkeeping. Optional.
type Observer interface {
	OnCreatureAppear(self, c *Creature)
	OnCreatureDisappear(self, c *Creature)
	OnCreatureMove(self, c *Creature, from, to *Tile)
}

// Creature is any world-resident actor. Players are creatures of KindPlayer
// that carry a Connection; everything else has none.
// Accessed only from the game loop goroutine; no locks.
type Creature struct {
	ID      uint32 // 0 until spawned
	Kind    Kind
	Name    string
	Outfit  uint16
	Heading Direction

	pos  Position
	tile *Tile // current cell, nil when off the map
	conn Connection

	Known    *KnownCreatures
	Observer Observer

	// Dirty is set whenever persisted state (position) changes and cleared by
	// the persistence system after a successful save.
	Dirty bool
}

// NewPlayer creates an unspawned player creature bound to conn.
func NewPlayer(name string, conn Connection) *Creature {
	return &Creature{
		Kind:    KindPlayer,
		Name:    name,
		Heading: South,
		conn:    conn,
		Known:   NewKnownCreatures(),
	}
}

// NewCreature creates an unspawned creature without a connection.
func NewCreature(kind Kind, name string) *Creature {
	return &Creature{
		Kind:    kind,
		Name:    name,
		Heading: South,
		Known:   NewKnownCreatures(),
	}
}

// Position returns the creature's current coordinate.
func (c *Creature) Position() Position { return c.pos }

// Tile returns the cell the creature stands on, or nil.
func (c *Creature) Tile() *Tile { return c.tile }

// Connection returns the player's session, or nil for non-player creatures.
func (c *Creature) Connection() Connection { return c.conn }

// IsPlayer reports whether c is a player-kind creature.
func (c *Creature) IsPlayer() bool { return c.Kind == KindPlayer }

// online reports whether c is a player with a live, logged-in session.
func (c *Creature) online() bool {
	return c.conn != nil && c.conn.LoggedIn()
}

func (c *Creature) String() string {
	return fmt.Sprintf("%s %q #%d at %s", c.Kind, c.Name, c.ID, c.pos)
}

func (c *Creature) onCreatureAppear(other *Creature) {
	c.Known.put(other.ID, other.pos)
	if c.Observer != nil {
		c.Observer.OnCreatureAppear(c, other)
	}
}

func (c *Creature) onCreatureDisappear(other *Creature) {
	c.Known.forget(other.ID)
	if c.Observer != nil {
		c.Observer.OnCreatureDisappear(c, other)
	}
}

func (c *Creature) onCreatureMove(other *Creature, from, to *Tile) {
	c.Known.put(other.ID, to.Pos)
	if c.Observer != nil {
		c.Observer.OnCreatureMove(c, other, from, to)
	}
}
