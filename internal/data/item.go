package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/otgo/server/internal/world"
)

// ItemInfo is one entry of items.yaml.
type ItemInfo struct {
	ID   uint16 `yaml:"id"`
	Name string `yaml:"name"`
}

type itemListFile struct {
	Items []ItemInfo `yaml:"items"`
}

// ItemTable holds the ground item types indexed by ID. The same *world.Item
// is shared by every tile that uses it.
type ItemTable struct {
	items map[uint16]*world.Item
}

// LoadItemTable loads item types from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item list: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item list: %w", err)
	}
	t := &ItemTable{items: make(map[uint16]*world.Item, len(f.Items))}
	for _, info := range f.Items {
		if info.ID == 0 {
			return nil, fmt.Errorf("item %q: id 0 is reserved for void", info.Name)
		}
		if _, dup := t.items[info.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id", info.ID)
		}
		t.items[info.ID] = &world.Item{ID: info.ID, Name: info.Name}
	}
	return t, nil
}

// Get returns the item type for id, or nil if unknown.
func (t *ItemTable) Get(id uint16) *world.Item {
	return t.items[id]
}

// Count returns the number of item types loaded.
func (t *ItemTable) Count() int {
	return len(t.items)
}
