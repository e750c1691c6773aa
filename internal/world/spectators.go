package world

import (
	"cmp"
	"math"
	"slices"
)

// ViewRange holds the horizontal half-widths of an observation window.
// A spectator at offset (dx, dy) is inside iff -MinX < dx < MaxX and
// -MinY < dy < MaxY.
type ViewRange struct {
	MinX int32
	MaxX int32
	MinY int32
	MaxY int32
}

// DefaultViewRange is the client's visible area: 21x21 tiles centred on the
// observer.
var DefaultViewRange = ViewRange{MinX: 11, MaxX: 11, MinY: 11, MaxY: 11}

// FloorRange returns the inclusive floors whose players observe an event on
// floor z. Without multiFloor only z itself. With it, ground level and above
// see everything down to floor 0; underground floors see two floors each way.
func FloorRange(z int8, multiFloor bool) (lo, hi int8) {
	if !multiFloor {
		return z, z
	}
	switch {
	case z > 7:
		return max(z-2, 0), min(z+2, MaxFloor)
	case z == 7:
		return 0, 9
	case z == 6:
		return 0, 8
	default:
		return 0, 7
	}
}

func (r ViewRange) contains(center, p Position, lo, hi int8) bool {
	dx := int64(p.X) - int64(center.X)
	dy := int64(p.Y) - int64(center.Y)
	return dx > -int64(r.MinX) && dx < int64(r.MaxX) &&
		dy > -int64(r.MinY) && dy < int64(r.MaxY) &&
		p.Z >= lo && p.Z <= hi
}

// bounds returns the inclusive rectangle of the window around center,
// clamped to the int32 coordinate space.
func (r ViewRange) bounds(center Position) (minX, maxX, minY, maxY int32) {
	return clamp32(int64(center.X) - int64(r.MinX) + 1),
		clamp32(int64(center.X) + int64(r.MaxX) - 1),
		clamp32(int64(center.Y) - int64(r.MinY) + 1),
		clamp32(int64(center.Y) + int64(r.MaxY) - 1)
}

func clamp32(v int64) int32 {
	return int32(min(max(v, math.MinInt32), math.MaxInt32))
}

// Spectators returns the logged-in players that observe center, ordered by
// ID. Only index buckets that the window can touch are visited.
func (g *Game) Spectators(center Position, multiFloor bool, r ViewRange) []*Creature {
	lo, hi := FloorRange(center.Z, multiFloor)
	var out []*Creature
	minX, maxX, minY, maxY := r.bounds(center)
	g.aoi.Each(minX, maxX, minY, maxY, func(p *Creature) {
		if p.online() && r.contains(center, p.pos, lo, hi) {
			out = append(out, p)
		}
	})
	sortByID(out)
	return out
}

// SpectatorsLinear is Spectators computed by scanning every player. Same
// result, O(players); kept as the reference the index is checked against.
func (g *Game) SpectatorsLinear(center Position, multiFloor bool, r ViewRange) []*Creature {
	lo, hi := FloorRange(center.Z, multiFloor)
	var out []*Creature
	for _, p := range g.players {
		if p.online() && r.contains(center, p.pos, lo, hi) {
			out = append(out, p)
		}
	}
	sortByID(out)
	return out
}

func sortByID(cs []*Creature) {
	slices.SortFunc(cs, func(a, b *Creature) int { return cmp.Compare(a.ID, b.ID) })
}

// unionSpectators merges two ID-ordered spectator lists, dropping duplicates.
func unionSpectators(a, b []*Creature) []*Creature {
	out := make([]*Creature, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].ID < b[j].ID:
			out = append(out, a[i])
			i++
		case a[i].ID > b[j].ID:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// SyncView resets p's known set to exactly the creatures p can see from
// where it stands and returns them ordered by ID. p itself is excluded.
// "Can see" is the spectator relation reversed: p would be a spectator of
// the creature's tile.
func (g *Game) SyncView(p *Creature) []*Creature {
	p.Known.Reset()
	var out []*Creature
	for _, c := range g.creatures {
		if c == p || c.tile == nil {
			continue
		}
		lo, hi := FloorRange(c.pos.Z, true)
		if g.viewRange.contains(c.pos, p.pos, lo, hi) {
			p.Known.put(c.ID, c.pos)
			out = append(out, c)
		}
	}
	sortByID(out)
	return out
}
