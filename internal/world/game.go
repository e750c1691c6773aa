package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrNoTile is returned when placing a creature on a coordinate with no tile.
	ErrNoTile = errors.New("world: no tile at position")
	// ErrAlreadySpawned is returned when a creature that was already issued
	// an identity is spawned again. Identities are never reused.
	ErrAlreadySpawned = errors.New("world: creature already spawned")
	// ErrWrongKind is returned when a creature is spawned through the entry
	// point for another kind.
	ErrWrongKind = errors.New("world: wrong creature kind")
	// ErrNotInWorld is returned when removing a creature that isn't registered.
	ErrNotInWorld = errors.New("world: creature not in world")
)

// Map is the world storage the core reads tiles from. GetTile returns nil
// for unmapped or out-of-bounds coordinates.
type Map interface {
	GetTile(pos Position) *Tile
}

// Light is an environmental light descriptor.
type Light struct {
	Radius uint8
	Color  uint8
}

// worldLight is the fixed ambient light (full daylight).
var worldLight = Light{Radius: 255, Color: 215}

// PlaceResult says what PlacePlayer did.
type PlaceResult int

const (
	// PlaceSpawned means a new player was registered and put on the map.
	PlaceSpawned PlaceResult = iota
	// PlaceReconnected means a player with the same name was already in the
	// world; its old session was disconnected and replaced. Nothing moved.
	PlaceReconnected
)

func (r PlaceResult) String() string {
	switch r {
	case PlaceSpawned:
		return "spawned"
	case PlaceReconnected:
		return "reconnected"
	default:
		return fmt.Sprintf("PlaceResult(%d)", int(r))
	}
}

// Options tunes a Game. Zero values select the defaults.
type Options struct {
	ViewRange   ViewRange
	AOICellSize int32
}

// Game is the authoritative world state: the map, every creature in it,
// and the identity counters.
// Single-goroutine access only (game loop).
type Game struct {
	m Map

	players   []*Creature          // registered players, join order
	creatures []*Creature          // every registered creature, players included
	byID      map[uint32]*Creature // creature ID → creature
	byName    map[string]*Creature // player name → player

	ids       *IDGenerator
	aoi       *AOIGrid
	viewRange ViewRange

	log *zap.Logger
}

func NewGame(m Map, opts Options, log *zap.Logger) *Game {
	vr := opts.ViewRange
	if vr == (ViewRange{}) {
		vr = DefaultViewRange
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Game{
		m:         m,
		byID:      make(map[uint32]*Creature),
		byName:    make(map[string]*Creature),
		ids:       NewIDGenerator(),
		aoi:       NewAOIGrid(opts.AOICellSize),
		viewRange: vr,
		log:       log,
	}
}

// Map returns the tile storage.
func (g *Game) Map() Map { return g.m }

// ViewRange returns the window used for event broadcasts.
func (g *Game) ViewRange() ViewRange { return g.viewRange }

// Players returns the registered players in join order. Read-only.
func (g *Game) Players() []*Creature { return g.players }

// Creatures returns every registered creature in spawn order. Read-only.
func (g *Game) Creatures() []*Creature { return g.creatures }

// PlayerCount returns the number of registered players.
func (g *Game) PlayerCount() int { return len(g.players) }

// CreatureCount returns the number of registered creatures, players included.
func (g *Game) CreatureCount() int { return len(g.creatures) }

// FindPlayerByName returns the player with exactly this name
// (case-sensitive), or nil.
func (g *Game) FindPlayerByName(name string) *Creature {
	return g.byName[name]
}

// FindCreatureByID returns the creature with this identity, or nil.
func (g *Game) FindCreatureByID(id uint32) *Creature {
	return g.byID[id]
}

// AmbientLight returns the world light. Constant.
func (g *Game) AmbientLight() Light {
	return worldLight
}

// CanSpawnAt reports whether a tile exists at pos.
func (g *Game) CanSpawnAt(pos Position) bool {
	return g.m.GetTile(pos) != nil
}

// PlacePlayer puts p into the world at pos and returns the player that is
// now in the world.
//
// If a player with p's name is already registered, p's connection replaces
// that player's connection, the old connection is disconnected unless it is
// the same one, and the
// existing player is returned with PlaceReconnected. p is discarded and
// nothing moves. Otherwise p gets a new identity, is registered and appears
// on the tile at pos; ErrNoTile is returned (and nothing changes) when pos
// has no tile.
func (g *Game) PlacePlayer(p *Creature, pos Position) (*Creature, PlaceResult, error) {
	if p.Kind != KindPlayer {
		return nil, PlaceSpawned, fmt.Errorf("place %s: %w", p.Kind, ErrWrongKind)
	}
	if existing := g.byName[p.Name]; existing != nil && existing != p {
		old := existing.conn
		existing.conn = p.conn
		if old != nil && old != p.conn {
			old.Disconnect()
		}
		g.log.Debug("player reconnected, previous session kicked",
			zap.String("name", existing.Name),
			zap.Uint32("id", existing.ID),
		)
		return existing, PlaceReconnected, nil
	}
	if p.ID != 0 {
		return nil, PlaceSpawned, fmt.Errorf("place %q: %w", p.Name, ErrAlreadySpawned)
	}
	tile := g.m.GetTile(pos)
	if tile == nil {
		return nil, PlaceSpawned, fmt.Errorf("place %q at %s: %w", p.Name, pos, ErrNoTile)
	}
	id, err := g.ids.Next(KindPlayer)
	if err != nil {
		return nil, PlaceSpawned, fmt.Errorf("place %q: %w", p.Name, err)
	}
	p.ID = id
	p.pos = tile.Pos
	g.players = append(g.players, p)
	g.byName[p.Name] = p
	g.register(p)
	g.aoi.Add(p)
	tile.AddCreature(g, p, true)

	g.log.Debug("player spawned",
		zap.String("name", p.Name),
		zap.Uint32("id", p.ID),
		zap.Stringer("pos", p.pos),
	)
	return p, PlaceSpawned, nil
}

// SpawnCreature puts a non-player creature into the world at pos with a new
// identity from its kind's range, and announces it.
func (g *Game) SpawnCreature(c *Creature, pos Position) error {
	if c.Kind == KindPlayer {
		return fmt.Errorf("spawn %q: %w", c.Name, ErrWrongKind)
	}
	if c.ID != 0 {
		return fmt.Errorf("spawn %q: %w", c.Name, ErrAlreadySpawned)
	}
	tile := g.m.GetTile(pos)
	if tile == nil {
		return fmt.Errorf("spawn %q at %s: %w", c.Name, pos, ErrNoTile)
	}
	id, err := g.ids.Next(c.Kind)
	if err != nil {
		return fmt.Errorf("spawn %q: %w", c.Name, err)
	}
	c.ID = id
	g.register(c)
	tile.AddCreature(g, c, true)

	g.log.Debug("creature spawned",
		zap.Stringer("kind", c.Kind),
		zap.String("name", c.Name),
		zap.Uint32("id", c.ID),
		zap.Stringer("pos", c.pos),
	)
	return nil
}

func (g *Game) register(c *Creature) {
	g.creatures = append(g.creatures, c)
	g.byID[c.ID] = c
}

// RemoveCreature unregisters c and takes it off its tile, announcing the
// disappearance. Its identity is retired for good.
func (g *Game) RemoveCreature(c *Creature) error {
	if c.ID == 0 || g.byID[c.ID] != c {
		return fmt.Errorf("remove %q: %w", c.Name, ErrNotInWorld)
	}
	delete(g.byID, c.ID)
	g.creatures = removeFrom(g.creatures, c)
	if c.Kind == KindPlayer {
		g.players = removeFrom(g.players, c)
		if g.byName[c.Name] == c {
			delete(g.byName, c.Name)
		}
		g.aoi.Remove(c.ID)
	}
	if t := c.tile; t != nil {
		t.RemoveCreature(g, c, true)
	}

	g.log.Debug("creature removed",
		zap.Stringer("kind", c.Kind),
		zap.String("name", c.Name),
		zap.Uint32("id", c.ID),
	)
	return nil
}

// MoveCreature walks c one step in direction dir. A step onto a coordinate
// with no tile is silently dropped.
func (g *Game) MoveCreature(c *Creature, dir Direction) {
	from := c.tile
	if from == nil || !dir.Valid() {
		return
	}
	to := g.m.GetTile(c.pos.Adjacent(dir))
	if to == nil {
		return
	}
	c.Heading = dir
	from.MoveCreature(g, c, to)
}

// setPosition records c's new coordinate and keeps the spectator index in step.
func (g *Game) setPosition(c *Creature, pos Position) {
	if c.pos == pos {
		return
	}
	c.pos = pos
	c.Dirty = true
	if c.Kind == KindPlayer {
		g.aoi.Move(c)
	}
}

// removeFrom deletes c from list keeping order.
func removeFrom(list []*Creature, c *Creature) []*Creature {
	for i, o := range list {
		if o == c {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
