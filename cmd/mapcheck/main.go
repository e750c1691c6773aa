// mapcheck loads the world data files and reports problems before a server
// start would hit them.
//
// Usage:
//
//	go run ./cmd/mapcheck <command> [-config path]
//
// Commands: items, map, spawns, all
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/world"
)

type checker struct {
	cfg   *config.Config
	items *data.ItemTable
	m     *data.WorldMap
}

func (c *checker) checkItems() error {
	items, err := data.LoadItemTable(c.cfg.World.ItemFile)
	if err != nil {
		return err
	}
	c.items = items
	fmt.Printf("  items: %d\n", items.Count())
	return nil
}

func (c *checker) checkMap() error {
	if c.items == nil {
		if err := c.checkItems(); err != nil {
			return err
		}
	}
	m, err := data.LoadMap(c.cfg.World.MapFile, c.items)
	if err != nil {
		return err
	}
	c.m = m
	for _, a := range m.Areas() {
		fmt.Printf("  area %-20s z=%-2d (%d,%d)-(%d,%d)\n", a.Name, a.Z, a.StartX, a.StartY, a.EndX, a.EndY)
	}
	for _, name := range m.Skipped() {
		fmt.Printf("  WARN area %q skipped: tile file missing\n", name)
	}
	fmt.Printf("  tiles: %d\n", m.Count())

	w := c.cfg.World
	temple := world.Position{X: w.TempleX, Y: w.TempleY, Z: w.TempleZ}
	if m.GetTile(temple) == nil {
		return fmt.Errorf("temple %s has no tile", temple)
	}
	return nil
}

func (c *checker) checkSpawns() error {
	if c.m == nil {
		if err := c.checkMap(); err != nil {
			return err
		}
	}
	spawns, err := data.LoadSpawnList(c.cfg.World.SpawnFile)
	if err != nil {
		return err
	}
	total := 0
	for _, e := range spawns {
		total += e.Count
		if c.m.GetTile(e.Position()) == nil {
			fmt.Printf("  WARN spawn %q centre %s has no tile\n", e.Name, e.Position())
		}
	}
	fmt.Printf("  spawn entries: %d (%d creatures)\n", len(spawns), total)
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: mapcheck <items|map|spawns|all> [-config path]")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", config.Path(), "server config file")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	c := &checker{cfg: cfg}

	checks := map[string]func() error{
		"items":  c.checkItems,
		"map":    c.checkMap,
		"spawns": c.checkSpawns,
		"all":    c.checkSpawns, // spawns pulls in map and items
	}
	fn, ok := checks[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}
