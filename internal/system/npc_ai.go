package system

import (
	"time"

	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/scripting"
	"github.com/otgo/server/internal/world"
)

// AIRunner makes one decision for a creature. *scripting.Engine satisfies it.
type AIRunner interface {
	RunNpcAI(ctx scripting.AIContext) []scripting.AICommand
}

// Brain binds a spawned creature to its behaviour script and home area.
type Brain struct {
	Script string
	Spawn  world.Position
	Radius int32
}

// NpcAISystem drives non-player creatures: Go gathers the context and
// executes commands, Lua decides. Phase 2 (Update).
type NpcAISystem struct {
	world  *world.Game
	runner AIRunner
	brains map[uint32]Brain
	every  int
	tick   int
}

// NewNpcAISystem runs one decision round every `every` ticks.
func NewNpcAISystem(g *world.Game, runner AIRunner, every int) *NpcAISystem {
	if every < 1 {
		every = 1
	}
	return &NpcAISystem{
		world:  g,
		runner: runner,
		brains: make(map[uint32]Brain),
		every:  every,
	}
}

func (s *NpcAISystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Assign gives a spawned creature a behaviour. An empty script leaves it idle.
func (s *NpcAISystem) Assign(c *world.Creature, b Brain) {
	if b.Script == "" {
		return
	}
	s.brains[c.ID] = b
}

// Forget drops a creature's behaviour.
func (s *NpcAISystem) Forget(id uint32) {
	delete(s.brains, id)
}

// Count returns the number of creatures with a behaviour.
func (s *NpcAISystem) Count() int { return len(s.brains) }

func (s *NpcAISystem) Update(_ time.Duration) {
	s.tick++
	if s.tick < s.every {
		return
	}
	s.tick = 0

	for _, c := range s.world.Creatures() {
		b, ok := s.brains[c.ID]
		if !ok {
			continue
		}
		if c.Tile() == nil {
			s.Forget(c.ID)
			continue
		}
		s.think(c, b)
	}
}

func (s *NpcAISystem) think(c *world.Creature, b Brain) {
	pos := c.Position()
	watchers := s.world.Spectators(pos, true, s.world.ViewRange())
	cmds := s.runner.RunNpcAI(scripting.AIContext{
		Script:     b.Script,
		CreatureID: c.ID,
		Kind:       c.Kind.String(),
		X:          pos.X,
		Y:          pos.Y,
		Z:          pos.Z,
		Heading:    int(c.Heading),
		SpawnX:     b.Spawn.X,
		SpawnY:     b.Spawn.Y,
		Radius:     b.Radius,
		Spectators: len(watchers),
	})

	for _, cmd := range cmds {
		if cmd.Type != "walk" {
			continue
		}
		dir := world.Direction(cmd.Dir)
		if cmd.Dir < 0 || !dir.Valid() {
			continue
		}
		if !withinLeash(c.Position().Adjacent(dir), b) {
			continue
		}
		s.world.MoveCreature(c, dir)
	}
}

// withinLeash reports whether pos is inside the creature's home square.
func withinLeash(pos world.Position, b Brain) bool {
	if pos.Z != b.Spawn.Z {
		return false
	}
	dx := pos.X - b.Spawn.X
	dy := pos.Y - b.Spawn.Y
	return dx >= -b.Radius && dx <= b.Radius && dy >= -b.Radius && dy <= b.Radius
}
