package world

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// gridMap is an in-memory Map.
type gridMap map[Position]*Tile

func (m gridMap) GetTile(pos Position) *Tile { return m[pos] }

var grass = &Item{ID: 102, Name: "grass"}

// newGridMap fills the inclusive rectangle on floor z with grass tiles.
func newGridMap(z int8, x0, x1, y0, y1 int32) gridMap {
	m := gridMap{}
	m.fill(z, x0, x1, y0, y1)
	return m
}

func (m gridMap) fill(z int8, x0, x1, y0, y1 int32) {
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			pos := Position{X: x, Y: y, Z: z}
			m[pos] = NewTile(pos, grass)
		}
	}
}

type connEvent struct {
	Op        string
	Creature  uint32
	StackPos  int
	From, To  Position
	FromStack int
}

// recordingConn is a Connection that remembers what it was sent.
type recordingConn struct {
	online      bool
	disconnects int
	events      []connEvent
}

func newConn() *recordingConn { return &recordingConn{online: true} }

func (r *recordingConn) LoggedIn() bool { return r.online }

func (r *recordingConn) Disconnect() {
	r.disconnects++
	r.online = false
}

func (r *recordingConn) SendAddCreature(c *Creature, stackPos int) {
	r.events = append(r.events, connEvent{Op: "add", Creature: c.ID, StackPos: stackPos, To: c.Position()})
}

func (r *recordingConn) SendRemoveCreature(c *Creature, stackPos int) {
	r.events = append(r.events, connEvent{Op: "remove", Creature: c.ID, StackPos: stackPos, From: c.Position()})
}

func (r *recordingConn) SendCreatureMove(c *Creature, to *Tile, toStackPos int, from *Tile, fromStackPos int) {
	r.events = append(r.events, connEvent{
		Op: "move", Creature: c.ID, StackPos: toStackPos,
		From: from.Pos, To: to.Pos, FromStack: fromStackPos,
	})
}

func (r *recordingConn) count(op string, id uint32) int {
	n := 0
	for _, e := range r.events {
		if e.Op == op && e.Creature == id {
			n++
		}
	}
	return n
}

func (r *recordingConn) reset() { r.events = nil }

func newTestGame(t *testing.T, m Map) *Game {
	t.Helper()
	return NewGame(m, Options{}, zaptest.NewLogger(t))
}

func placePlayer(t *testing.T, g *Game, name string, pos Position) (*Creature, *recordingConn) {
	t.Helper()
	conn := newConn()
	p, res, err := g.PlacePlayer(NewPlayer(name, conn), pos)
	require.NoError(t, err)
	require.Equal(t, PlaceSpawned, res)
	return p, conn
}

// requireConsistent checks that every creature's tile lists it exactly once
// and every tile only lists creatures that point back at it.
func requireConsistent(t *testing.T, g *Game, m gridMap) {
	t.Helper()
	for pos, tile := range m {
		seen := map[*Creature]int{}
		for _, c := range tile.Creatures() {
			seen[c]++
			require.Same(t, tile, c.Tile(), "creature %s listed on %s but points elsewhere", c, pos)
			require.Equal(t, pos, c.Position())
		}
		for c, n := range seen {
			require.Equal(t, 1, n, "creature %s listed %d times on %s", c, n, pos)
		}
	}
	for _, c := range g.Creatures() {
		tile := c.Tile()
		require.NotNil(t, tile, "registered creature %s has no tile", c)
		require.GreaterOrEqual(t, tile.StackPos(c), 0, "tile %s does not list %s", tile.Pos, c)
	}
}
