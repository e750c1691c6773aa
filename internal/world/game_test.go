package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacePlayerSpawns(t *testing.T) {
	m := newGridMap(7, 90, 110, 90, 110)
	g := newTestGame(t, m)
	pos := Position{X: 100, Y: 100, Z: 7}

	require.True(t, g.CanSpawnAt(pos))
	p, _ := placePlayer(t, g, "Alice", pos)

	assert.Equal(t, PlayerIDBase, p.ID)
	assert.Equal(t, pos, p.Position())
	assert.Same(t, m[pos], p.Tile())
	assert.Same(t, p, g.FindPlayerByName("Alice"))
	assert.Same(t, p, g.FindCreatureByID(p.ID))
	assert.Equal(t, []*Creature{p}, g.Players())
	assert.Equal(t, []*Creature{p}, g.Creatures())
	requireConsistent(t, g, m)
}

func TestPlacePlayerWithoutTile(t *testing.T) {
	m := newGridMap(7, 0, 5, 0, 5)
	g := newTestGame(t, m)
	missing := Position{X: 50, Y: 50, Z: 7}

	assert.False(t, g.CanSpawnAt(missing))
	_, _, err := g.PlacePlayer(NewPlayer("Alice", newConn()), missing)
	require.ErrorIs(t, err, ErrNoTile)
	assert.Zero(t, g.PlayerCount())
	assert.Zero(t, g.CreatureCount())
	assert.Nil(t, g.FindPlayerByName("Alice"))

	// the failed placement must not have used up an identity
	p, _ := placePlayer(t, g, "Alice", Position{X: 1, Y: 1, Z: 7})
	assert.Equal(t, PlayerIDBase, p.ID)
}

func TestPlacePlayerReconnectKicksOldSession(t *testing.T) {
	m := newGridMap(7, 90, 110, 90, 110)
	g := newTestGame(t, m)
	pos := Position{X: 100, Y: 100, Z: 7}
	orig, oldConn := placePlayer(t, g, "Alice", pos)
	bystander, _ := placePlayer(t, g, "Bob", Position{X: 101, Y: 100, Z: 7})

	fresh := newConn()
	got, res, err := g.PlacePlayer(NewPlayer("Alice", fresh), Position{X: 95, Y: 95, Z: 7})
	require.NoError(t, err)

	assert.Equal(t, PlaceReconnected, res)
	assert.Same(t, orig, got)
	assert.Equal(t, PlayerIDBase, got.ID)
	assert.Equal(t, pos, got.Position())
	assert.Same(t, m[pos], got.Tile())
	assert.Equal(t, []*Creature{orig, bystander}, g.Creatures())
	assert.Equal(t, []*Creature{orig, bystander}, g.Players())
	assert.Same(t, fresh, got.Connection())
	assert.Equal(t, 1, oldConn.disconnects)
	assert.Zero(t, fresh.disconnects)
	assert.Empty(t, m[Position{X: 95, Y: 95, Z: 7}].Creatures())
	requireConsistent(t, g, m)
}

func TestPlacePlayerSameConnectionIsNotKicked(t *testing.T) {
	m := newGridMap(7, 90, 110, 90, 110)
	g := newTestGame(t, m)
	orig, conn := placePlayer(t, g, "Alice", Position{X: 100, Y: 100, Z: 7})

	got, res, err := g.PlacePlayer(NewPlayer("Alice", conn), Position{X: 95, Y: 95, Z: 7})
	require.NoError(t, err)
	assert.Equal(t, PlaceReconnected, res)
	assert.Same(t, orig, got)
	assert.Same(t, conn, got.Connection())
	assert.Zero(t, conn.disconnects)
	assert.True(t, got.online())
}

func TestPlacePlayerRejectsWrongKindAndRespawn(t *testing.T) {
	m := newGridMap(7, 0, 5, 0, 5)
	g := newTestGame(t, m)
	pos := Position{X: 1, Y: 1, Z: 7}

	_, _, err := g.PlacePlayer(NewCreature(KindMonster, "Rat"), pos)
	require.ErrorIs(t, err, ErrWrongKind)
	require.ErrorIs(t, g.SpawnCreature(NewPlayer("Alice", newConn()), pos), ErrWrongKind)

	p, _ := placePlayer(t, g, "Alice", pos)
	require.NoError(t, g.RemoveCreature(p))
	_, _, err = g.PlacePlayer(p, pos)
	require.ErrorIs(t, err, ErrAlreadySpawned)
}

func TestFindPlayerByNameIsCaseSensitive(t *testing.T) {
	g := newTestGame(t, newGridMap(7, 0, 5, 0, 5))
	p, _ := placePlayer(t, g, "Alice", Position{X: 1, Y: 1, Z: 7})

	assert.Same(t, p, g.FindPlayerByName("Alice"))
	assert.Nil(t, g.FindPlayerByName("alice"))
	assert.Nil(t, g.FindPlayerByName("Alic"))
	assert.Nil(t, g.FindCreatureByID(p.ID+1))
}

func TestAmbientLightIsConstant(t *testing.T) {
	g := newTestGame(t, newGridMap(7, 0, 5, 0, 5))
	want := Light{Radius: 255, Color: 215}
	assert.Equal(t, want, g.AmbientLight())
	placePlayer(t, g, "Alice", Position{X: 1, Y: 1, Z: 7})
	assert.Equal(t, want, g.AmbientLight())
}

func TestIdentitiesPerKind(t *testing.T) {
	m := newGridMap(7, 0, 20, 0, 20)
	g := newTestGame(t, m)

	var players, npcs, monsters []uint32
	for i, name := range []string{"A", "B", "C"} {
		p, _ := placePlayer(t, g, name, Position{X: int32(i), Y: 0, Z: 7})
		players = append(players, p.ID)

		npc := NewCreature(KindNPC, "Guard")
		require.NoError(t, g.SpawnCreature(npc, Position{X: int32(i), Y: 1, Z: 7}))
		npcs = append(npcs, npc.ID)

		mon := NewCreature(KindMonster, "Rat")
		require.NoError(t, g.SpawnCreature(mon, Position{X: int32(i), Y: 2, Z: 7}))
		monsters = append(monsters, mon.ID)
	}

	assert.Equal(t, []uint32{PlayerIDBase, PlayerIDBase + 1, PlayerIDBase + 2}, players)
	assert.Equal(t, []uint32{NpcIDBase, NpcIDBase + 1, NpcIDBase + 2}, npcs)
	assert.Equal(t, []uint32{MonsterIDBase, MonsterIDBase + 1, MonsterIDBase + 2}, monsters)
	assert.Equal(t, 9, g.CreatureCount())
	assert.Equal(t, 3, g.PlayerCount())
	requireConsistent(t, g, m)
}

func TestIdentitiesNeverReused(t *testing.T) {
	m := newGridMap(7, 0, 5, 0, 5)
	g := newTestGame(t, m)
	pos := Position{X: 1, Y: 1, Z: 7}

	first, _ := placePlayer(t, g, "Alice", pos)
	require.NoError(t, g.RemoveCreature(first))
	second, _ := placePlayer(t, g, "Alice", pos)

	assert.Greater(t, second.ID, first.ID)
	assert.Nil(t, g.FindCreatureByID(first.ID))
}

func TestMillionthPlayerIdentity(t *testing.T) {
	m := newGridMap(7, 0, 5, 0, 5)
	g := newTestGame(t, m)
	// 999,999 registrations already happened
	g.ids.player.next.Store(PlayerIDBase + 999_999)

	p1m, _ := placePlayer(t, g, "millionth", Position{X: 1, Y: 1, Z: 7})
	p1m1, _ := placePlayer(t, g, "millionth-and-one", Position{X: 2, Y: 1, Z: 7})

	assert.Greater(t, p1m1.ID, p1m.ID)
	assert.Less(t, p1m1.ID, NpcIDBase)

	mon := NewCreature(KindMonster, "Rat")
	require.NoError(t, g.SpawnCreature(mon, Position{X: 3, Y: 1, Z: 7}))
	assert.NotEqual(t, p1m1.ID, mon.ID)
}

func TestPlayerRangeExhaustion(t *testing.T) {
	m := newGridMap(7, 0, 5, 0, 5)
	g := newTestGame(t, m)
	g.ids.player.next.Store(NpcIDBase - 1)

	last, _ := placePlayer(t, g, "last", Position{X: 1, Y: 1, Z: 7})
	assert.Equal(t, NpcIDBase-1, last.ID)

	_, _, err := g.PlacePlayer(NewPlayer("overflow", newConn()), Position{X: 2, Y: 1, Z: 7})
	require.ErrorIs(t, err, ErrIDSpaceExhausted)
	assert.Nil(t, g.FindPlayerByName("overflow"))
	assert.Empty(t, m[Position{X: 2, Y: 1, Z: 7}].Creatures())
}

type worldSnapshot struct {
	Pos       Position
	Heading   Direction
	Tile      *Tile
	Players   []*Creature
	Creatures []*Creature
	Occupants map[Position][]*Creature
	Events    int
}

func snapshot(g *Game, m gridMap, c *Creature, conn *recordingConn) worldSnapshot {
	occ := make(map[Position][]*Creature)
	for pos, tile := range m {
		if !tile.HasNoCreatures() {
			occ[pos] = append([]*Creature(nil), tile.Creatures()...)
		}
	}
	return worldSnapshot{
		Pos:       c.Position(),
		Heading:   c.Heading,
		Tile:      c.Tile(),
		Players:   append([]*Creature(nil), g.Players()...),
		Creatures: append([]*Creature(nil), g.Creatures()...),
		Occupants: occ,
		Events:    len(conn.events),
	}
}

func TestMoveCreatureOffMapIsNoop(t *testing.T) {
	m := newGridMap(7, 0, 5, 0, 5)
	g := newTestGame(t, m)
	p, conn := placePlayer(t, g, "Alice", Position{X: 5, Y: 0, Z: 7})
	placePlayer(t, g, "Bob", Position{X: 4, Y: 0, Z: 7})
	conn.reset()

	for _, dir := range []Direction{North, East, NorthEast, NorthWest, SouthEast} {
		before := snapshot(g, m, p, conn)
		g.MoveCreature(p, dir)
		assert.Equal(t, before, snapshot(g, m, p, conn), "direction %s", dir)
	}
	requireConsistent(t, g, m)
}

func TestMoveCreatureAnnouncesSingleMove(t *testing.T) {
	m := newGridMap(7, 80, 120, 80, 120)
	g := newTestGame(t, m)
	mover, moverConn := placePlayer(t, g, "Mover", Position{X: 100, Y: 100, Z: 7})
	// sees only the source tile: dx -10 before, -11 after
	west, westConn := placePlayer(t, g, "West", Position{X: 90, Y: 100, Z: 7})
	// sees only the destination tile: dx 11 before, 10 after
	east, eastConn := placePlayer(t, g, "East", Position{X: 111, Y: 100, Z: 7})
	// sees both
	_, nearConn := placePlayer(t, g, "Near", Position{X: 100, Y: 105, Z: 7})
	// sees neither
	_, farConn := placePlayer(t, g, "Far", Position{X: 100, Y: 115, Z: 7})
	for _, c := range []*recordingConn{moverConn, westConn, eastConn, nearConn, farConn} {
		c.reset()
	}

	g.MoveCreature(mover, East)

	src, dst := Position{X: 100, Y: 100, Z: 7}, Position{X: 101, Y: 100, Z: 7}
	want := []connEvent{{Op: "move", Creature: mover.ID, StackPos: 1, From: src, To: dst, FromStack: 1}}
	for name, c := range map[string]*recordingConn{"mover": moverConn, "west": westConn, "east": eastConn, "near": nearConn} {
		assert.Equal(t, want, c.events, name)
	}
	assert.Empty(t, farConn.events)

	assert.Equal(t, dst, mover.Position())
	assert.Equal(t, East, mover.Heading)
	assert.Empty(t, m[src].Creatures())
	assert.Equal(t, []*Creature{mover}, m[dst].Creatures())

	seen, ok := west.Known.LastSeen(mover.ID)
	require.True(t, ok)
	assert.Equal(t, dst, seen)
	assert.True(t, east.Known.Knows(mover.ID))
	requireConsistent(t, g, m)
}

func TestRemoveCreatureAnnouncesDisappear(t *testing.T) {
	m := newGridMap(7, 90, 110, 90, 110)
	g := newTestGame(t, m)
	pos := Position{X: 100, Y: 100, Z: 7}
	watcher, watcherConn := placePlayer(t, g, "Watcher", Position{X: 102, Y: 100, Z: 7})
	rat := NewCreature(KindMonster, "Rat")
	require.NoError(t, g.SpawnCreature(rat, pos))
	require.True(t, watcher.Known.Knows(rat.ID))
	watcherConn.reset()

	require.NoError(t, g.RemoveCreature(rat))

	assert.Equal(t, []connEvent{{Op: "remove", Creature: rat.ID, StackPos: 1, From: pos}}, watcherConn.events)
	assert.False(t, watcher.Known.Knows(rat.ID))
	assert.Nil(t, rat.Tile())
	assert.Empty(t, m[pos].Creatures())
	assert.Nil(t, g.FindCreatureByID(rat.ID))
	assert.Equal(t, []*Creature{watcher}, g.Creatures())
	requireConsistent(t, g, m)

	require.ErrorIs(t, g.RemoveCreature(rat), ErrNotInWorld)
}

func TestRemovePlayerLeavesRegistry(t *testing.T) {
	m := newGridMap(7, 90, 110, 90, 110)
	g := newTestGame(t, m)
	alice, aliceConn := placePlayer(t, g, "Alice", Position{X: 100, Y: 100, Z: 7})
	bob, bobConn := placePlayer(t, g, "Bob", Position{X: 101, Y: 100, Z: 7})
	aliceConn.reset()
	bobConn.reset()

	require.NoError(t, g.RemoveCreature(alice))

	assert.Nil(t, g.FindPlayerByName("Alice"))
	assert.Equal(t, 1, g.PlayerCount())
	assert.Equal(t, 1, bobConn.count("remove", alice.ID))
	assert.Empty(t, aliceConn.events, "a removed player is not its own spectator")
	assert.Equal(t, []*Creature{bob}, g.Spectators(Position{X: 100, Y: 100, Z: 7}, true, DefaultViewRange))
	requireConsistent(t, g, m)
}

func TestSpawnCreatureAppearsToSpectators(t *testing.T) {
	m := newGridMap(7, 90, 110, 90, 110)
	g := newTestGame(t, m)
	near, nearConn := placePlayer(t, g, "Near", Position{X: 100, Y: 100, Z: 7})
	_, farConn := placePlayer(t, g, "Far", Position{X: 90, Y: 90, Z: 7})
	nearConn.reset()
	farConn.reset()

	guard := NewCreature(KindNPC, "Guard")
	pos := Position{X: 105, Y: 105, Z: 7}
	require.NoError(t, g.SpawnCreature(guard, pos))

	assert.Equal(t, []connEvent{{Op: "add", Creature: guard.ID, StackPos: 1, To: pos}}, nearConn.events)
	assert.Empty(t, farConn.events)
	assert.True(t, near.Known.Knows(guard.ID))

	require.ErrorIs(t, g.SpawnCreature(guard, pos), ErrAlreadySpawned)
	require.ErrorIs(t, g.SpawnCreature(NewCreature(KindNPC, "Ghost"), Position{X: 500, Y: 500, Z: 7}), ErrNoTile)
	requireConsistent(t, g, m)
}

func TestRandomWalkKeepsOccupancyConsistent(t *testing.T) {
	m := newGridMap(7, 0, 12, 0, 12)
	m.fill(8, 0, 12, 0, 12)
	g := newTestGame(t, m)

	var walkers []*Creature
	for i := int32(0); i < 4; i++ {
		p, _ := placePlayer(t, g, string(rune('A'+i)), Position{X: i * 3, Y: 0, Z: 7})
		walkers = append(walkers, p)
		mon := NewCreature(KindMonster, "Rat")
		require.NoError(t, g.SpawnCreature(mon, Position{X: i * 3, Y: 12, Z: 8}))
		walkers = append(walkers, mon)
	}

	for step := 0; step < 400; step++ {
		c := walkers[step%len(walkers)]
		g.MoveCreature(c, Direction((step*7+step/3)%8))
		if step%50 == 0 {
			requireConsistent(t, g, m)
		}
	}
	requireConsistent(t, g, m)

	require.NoError(t, g.RemoveCreature(walkers[0]))
	require.NoError(t, g.RemoveCreature(walkers[1]))
	requireConsistent(t, g, m)
}
