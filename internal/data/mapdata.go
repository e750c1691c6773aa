package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otgo/server/internal/world"
)

// AreaInfo describes one rectangular block of tiles on a floor, loaded from
// map.yaml. Without a tile file every coordinate in the block gets Ground.
type AreaInfo struct {
	Name     string `yaml:"name"`
	Z        int8   `yaml:"z"`
	StartX   int32  `yaml:"start_x"`
	EndX     int32  `yaml:"end_x"`
	StartY   int32  `yaml:"start_y"`
	EndY     int32  `yaml:"end_y"`
	Ground   uint16 `yaml:"ground"`
	TileFile string `yaml:"tile_file"` // optional, relative to map.yaml
}

type mapFile struct {
	Areas []AreaInfo `yaml:"areas"`
}

// WorldMap is the loaded tile grid. It implements world.Map; coordinates
// outside every area have no tile.
type WorldMap struct {
	tiles   map[world.Position]*world.Tile
	areas   []AreaInfo
	skipped []string
}

// LoadMap loads area definitions from YAML and builds their tiles. Ground
// IDs are resolved against items; an unknown ID is an error.
func LoadMap(path string, items *ItemTable) (*WorldMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	var file mapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}

	m := &WorldMap{tiles: make(map[world.Position]*world.Tile)}
	dir := filepath.Dir(path)
	for _, area := range file.Areas {
		width := area.EndX - area.StartX + 1
		height := area.EndY - area.StartY + 1
		if width <= 0 || height <= 0 {
			continue
		}
		if area.Z < 0 || area.Z > world.MaxFloor {
			return nil, fmt.Errorf("area %q: floor %d out of range", area.Name, area.Z)
		}

		var grounds []uint16
		if area.TileFile != "" {
			grounds, err = loadTileFile(filepath.Join(dir, area.TileFile), int(width), int(height))
			if err != nil {
				// Tile file missing is non-fatal; the caller logs Skipped().
				m.skipped = append(m.skipped, area.Name)
				continue
			}
		}

		for lx := int32(0); lx < width; lx++ {
			for ly := int32(0); ly < height; ly++ {
				id := area.Ground
				if grounds != nil {
					id = grounds[int(lx)*int(height)+int(ly)]
				}
				pos := world.Position{X: area.StartX + lx, Y: area.StartY + ly, Z: area.Z}
				if id == 0 {
					delete(m.tiles, pos)
					continue
				}
				item := items.Get(id)
				if item == nil {
					return nil, fmt.Errorf("area %q at %s: unknown ground item %d", area.Name, pos, id)
				}
				m.tiles[pos] = world.NewTile(pos, item)
			}
		}
		m.areas = append(m.areas, area)
	}
	return m, nil
}

// loadTileFile reads a CSV of ground item IDs: file rows are Y lines,
// columns are X values, 0 means no tile. Returns a flat [x*height+y] slice.
func loadTileFile(path string, width, height int) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grounds := make([]uint16, width*height)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	y := 0
	for scanner.Scan() && y < height {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= width {
				break
			}
			val, err := strconv.ParseUint(strings.TrimSpace(tok), 10, 16)
			if err != nil {
				val = 0
			}
			grounds[x*height+y] = uint16(val)
			x++
		}
		y++
	}

	return grounds, scanner.Err()
}

// GetTile returns the tile at pos, or nil.
func (m *WorldMap) GetTile(pos world.Position) *world.Tile {
	return m.tiles[pos]
}

// Count returns the number of tiles.
func (m *WorldMap) Count() int {
	return len(m.tiles)
}

// Areas returns the areas that were built.
func (m *WorldMap) Areas() []AreaInfo {
	return m.areas
}

// Skipped returns the names of areas whose tile file could not be read.
func (m *WorldMap) Skipped() []string {
	return m.skipped
}
