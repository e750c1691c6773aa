package world

// Every event goes to each spectator exactly once: the session gets the
// wire notification, then the creature-level callback runs. Spectators are
// always computed floor-aware.

func (g *Game) announceAppear(t *Tile, c *Creature, stackPos int) {
	for _, viewer := range g.Spectators(t.Pos, true, g.viewRange) {
		if conn := viewer.Connection(); conn != nil {
			conn.SendAddCreature(c, stackPos)
		}
		viewer.onCreatureAppear(c)
	}
}

func (g *Game) announceDisappear(t *Tile, c *Creature, stackPos int) {
	for _, viewer := range g.Spectators(t.Pos, true, g.viewRange) {
		if conn := viewer.Connection(); conn != nil {
			conn.SendRemoveCreature(c, stackPos)
		}
		viewer.onCreatureDisappear(c)
	}
}

func (g *Game) announceMove(c *Creature, from *Tile, fromStack int, to *Tile, toStack int) {
	viewers := unionSpectators(
		g.Spectators(from.Pos, true, g.viewRange),
		g.Spectators(to.Pos, true, g.viewRange),
	)
	for _, viewer := range viewers {
		if conn := viewer.Connection(); conn != nil {
			conn.SendCreatureMove(c, to, toStack, from, fromStack)
		}
		viewer.onCreatureMove(c, from, to)
	}
}
