package world

// AOIGrid buckets players by horizontal position so spectator queries only
// visit buckets the view window can touch. Buckets span every floor; floor
// filtering is left to the caller.
// Accessed only from the game loop goroutine; no locks.

// DefaultAOICellSize covers the default 21x21 view window with at most
// 3x3 buckets.
const DefaultAOICellSize = 16

type aoiKey struct {
	cx int32
	cy int32
}

// AOIGrid tracks which players are in which bucket.
type AOIGrid struct {
	cellSize int32
	cells    map[aoiKey]map[uint32]*Creature // bucket → player ID → player
	entries  map[uint32]aoiKey               // player ID → bucket
}

func NewAOIGrid(cellSize int32) *AOIGrid {
	if cellSize <= 0 {
		cellSize = DefaultAOICellSize
	}
	return &AOIGrid{
		cellSize: cellSize,
		cells:    make(map[aoiKey]map[uint32]*Creature),
		entries:  make(map[uint32]aoiKey),
	}
}

func (g *AOIGrid) toCell(v int32) int32 {
	if v < 0 {
		return -(-(v + 1) / g.cellSize) - 1
	}
	return v / g.cellSize
}

func (g *AOIGrid) key(pos Position) aoiKey {
	return aoiKey{cx: g.toCell(pos.X), cy: g.toCell(pos.Y)}
}

// Add places c into the bucket for its current position.
func (g *AOIGrid) Add(c *Creature) {
	if _, ok := g.entries[c.ID]; ok {
		g.Move(c)
		return
	}
	k := g.key(c.pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[uint32]*Creature)
		g.cells[k] = cell
	}
	cell[c.ID] = c
	g.entries[c.ID] = k
}

// Remove takes the player with the given ID out of the grid.
func (g *AOIGrid) Remove(id uint32) {
	k, ok := g.entries[id]
	if !ok {
		return
	}
	delete(g.entries, id)
	cell := g.cells[k]
	delete(cell, id)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

// Move re-buckets c after its position changed. Untracked creatures are ignored.
func (g *AOIGrid) Move(c *Creature) {
	oldK, ok := g.entries[c.ID]
	if !ok {
		return
	}
	newK := g.key(c.pos)
	if oldK == newK {
		return
	}
	g.Remove(c.ID)
	g.Add(c)
}

// Len returns the number of tracked players.
func (g *AOIGrid) Len() int {
	return len(g.entries)
}

// Each calls fn for every tracked player in a bucket overlapping the
// inclusive rectangle [minX, maxX] x [minY, maxY]. Callers still filter
// exact coordinates.
func (g *AOIGrid) Each(minX, maxX, minY, maxY int32, fn func(*Creature)) {
	if minX > maxX || minY > maxY {
		return
	}
	cx0, cx1 := g.toCell(minX), g.toCell(maxX)
	cy0, cy1 := g.toCell(minY), g.toCell(maxY)
	// A huge window would enumerate mostly empty buckets; walk the occupied
	// ones instead.
	if (int64(cx1)-int64(cx0)+1)*(int64(cy1)-int64(cy0)+1) > int64(len(g.cells)) {
		for k, cell := range g.cells {
			if k.cx < cx0 || k.cx > cx1 || k.cy < cy0 || k.cy > cy1 {
				continue
			}
			for _, c := range cell {
				fn(c)
			}
		}
		return
	}
	for cx := int64(cx0); cx <= int64(cx1); cx++ {
		for cy := int64(cy0); cy <= int64(cy1); cy++ {
			for _, c := range g.cells[aoiKey{cx: int32(cx), cy: int32(cy)}] {
				fn(c)
			}
		}
	}
}
