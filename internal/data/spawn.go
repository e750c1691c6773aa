package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/otgo/server/internal/world"
)

// SpawnEntry defines where and how many creatures of one type to spawn.
type SpawnEntry struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"` // "npc" or "monster"
	X      int32  `yaml:"x"`
	Y      int32  `yaml:"y"`
	Z      int8   `yaml:"z"`
	Count  int    `yaml:"count"`
	Radius int32  `yaml:"radius"` // spread around (x, y)
	Outfit uint16 `yaml:"outfit"`
	Script string `yaml:"script"` // AI script, empty = stand still
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// Position returns the spawn centre.
func (e *SpawnEntry) Position() world.Position {
	return world.Position{X: e.X, Y: e.Y, Z: e.Z}
}

// CreatureKind maps the YAML kind string to a world.Kind.
func (e *SpawnEntry) CreatureKind() (world.Kind, error) {
	switch e.Kind {
	case "npc":
		return world.KindNPC, nil
	case "monster", "":
		return world.KindMonster, nil
	default:
		return 0, fmt.Errorf("spawn %q: unknown kind %q", e.Name, e.Kind)
	}
}

// LoadSpawnList loads spawn entries from a YAML file. Count defaults to 1.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	for i := range f.Spawns {
		e := &f.Spawns[i]
		if _, err := e.CreatureKind(); err != nil {
			return nil, err
		}
		if e.Count <= 0 {
			e.Count = 1
		}
	}
	return f.Spawns, nil
}
