package system

import (
	"errors"
	"math/rand"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/world"
)

// spawnTries is how many random spots inside the radius are tried before
// falling back to the spawn centre.
const spawnTries = 8

// SpawnAll creates the creatures of the spawn list, scattered within each
// entry's radius, and hands their behaviours to ai. Entries whose area has
// no tile are skipped with a warning. Returns the number spawned.
func SpawnAll(g *world.Game, spawns []data.SpawnEntry, ai *NpcAISystem, rng *rand.Rand, log *zap.Logger) (int, error) {
	count := 0
	for i := range spawns {
		e := &spawns[i]
		kind, err := e.CreatureKind()
		if err != nil {
			return count, err
		}
		for n := 0; n < e.Count; n++ {
			pos, ok := pickSpawnPos(g, e, rng)
			if !ok {
				log.Warn("spawn has no tile",
					zap.String("name", e.Name),
					zap.Stringer("pos", e.Position()),
				)
				break
			}
			c := world.NewCreature(kind, e.Name)
			c.Outfit = e.Outfit
			if err := g.SpawnCreature(c, pos); err != nil {
				if errors.Is(err, world.ErrIDSpaceExhausted) {
					return count, err
				}
				log.Warn("spawn failed", zap.String("name", e.Name), zap.Error(err))
				continue
			}
			if ai != nil {
				ai.Assign(c, Brain{Script: e.Script, Spawn: e.Position(), Radius: e.Radius})
			}
			count++
		}
	}
	return count, nil
}

func pickSpawnPos(g *world.Game, e *data.SpawnEntry, rng *rand.Rand) (world.Position, bool) {
	center := e.Position()
	if e.Radius > 0 {
		span := int(e.Radius*2 + 1)
		for i := 0; i < spawnTries; i++ {
			pos := center
			pos.X += int32(rng.Intn(span)) - e.Radius
			pos.Y += int32(rng.Intn(span)) - e.Radius
			if g.CanSpawnAt(pos) {
				return pos, true
			}
		}
	}
	return center, g.CanSpawnAt(center)
}
