package world

import (
	"errors"
	"sync/atomic"
)

// Identity ranges. Each kind issues IDs upwards from its base and never
// reaches the next kind's base, so IDs can't collide across kinds.
const (
	PlayerIDBase  uint32 = 0x1000000
	NpcIDBase     uint32 = 0x2000000
	MonsterIDBase uint32 = 0x40000000

	monsterIDCeiling uint32 = 0x80000000
)

// ErrIDSpaceExhausted is returned when a kind has issued every ID in its range.
var ErrIDSpaceExhausted = errors.New("world: id space exhausted")

// idCounter hands out IDs in [base, ceiling). IDs are never reused.
type idCounter struct {
	next    atomic.Uint32
	ceiling uint32
}

func (c *idCounter) init(base, ceiling uint32) {
	c.next.Store(base)
	c.ceiling = ceiling
}

func (c *idCounter) take() (uint32, error) {
	for {
		id := c.next.Load()
		if id >= c.ceiling {
			return 0, ErrIDSpaceExhausted
		}
		if c.next.CompareAndSwap(id, id+1) {
			return id, nil
		}
	}
}

// IDGenerator issues creature identities partitioned by kind.
// Scoped to one Game so isolated worlds start from the same bases.
type IDGenerator struct {
	player  idCounter
	npc     idCounter
	monster idCounter
}

func NewIDGenerator() *IDGenerator {
	g := &IDGenerator{}
	g.player.init(PlayerIDBase, NpcIDBase)
	g.npc.init(NpcIDBase, MonsterIDBase)
	g.monster.init(MonsterIDBase, monsterIDCeiling)
	return g
}

// Next returns the next unused ID for kind. Generic creatures share the
// monster range.
func (g *IDGenerator) Next(kind Kind) (uint32, error) {
	switch kind {
	case KindPlayer:
		return g.player.take()
	case KindNPC:
		return g.npc.take()
	default:
		return g.monster.take()
	}
}
