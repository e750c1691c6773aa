package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/core/event"
	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

// PositionStore is the character persistence the save loop needs.
// *persist.CharacterRepo satisfies it.
type PositionStore interface {
	SavePositions(ctx context.Context, rows []persist.PositionRow) error
	MarkLogin(ctx context.Context, name string) error
	MarkLogout(ctx context.Context, name string) error
}

// PersistenceSystem periodically saves the positions of players that moved
// since the last save, and records logins and logouts. The position of a
// leaving player is written by the disconnect handler. Phase 4 (Persist).
type PersistenceSystem struct {
	world     *world.Game
	store     PositionStore
	log       *zap.Logger
	tickCount int
	interval  int // auto-save every N ticks
}

func NewPersistenceSystem(g *world.Game, store PositionStore, bus *event.Bus, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	s := &PersistenceSystem{
		world:    g,
		store:    store,
		log:      log,
		interval: intervalTicks,
	}
	event.Subscribe(bus, s.onPlayerEntered)
	event.Subscribe(bus, s.onPlayerLeft)
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.savePlayers(true)
}

// SaveAllPlayers persists every player in the world, ignoring dirty flags.
// Called on graceful shutdown.
func (s *PersistenceSystem) SaveAllPlayers() {
	s.savePlayers(false)
}

// savePlayers writes positions in one batch. Dirty flags are cleared only
// when the batch commits; a failed batch is retried on the next round.
func (s *PersistenceSystem) savePlayers(dirtyOnly bool) {
	var rows []persist.PositionRow
	var saved []*world.Creature
	for _, p := range s.world.Players() {
		if dirtyOnly && !p.Dirty {
			continue
		}
		rows = append(rows, positionRow(p.Name, p.Position(), p.Heading))
		saved = append(saved, p)
	}
	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.SavePositions(ctx, rows); err != nil {
		s.log.Error("auto-save failed", zap.Int("players", len(rows)), zap.Error(err))
		return
	}
	for _, p := range saved {
		p.Dirty = false
	}
	s.log.Debug("auto-save complete", zap.Int("players", len(rows)))
}

func (s *PersistenceSystem) onPlayerEntered(e event.PlayerEntered) {
	if e.Reconnected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.MarkLogin(ctx, e.Name); err != nil {
		s.log.Error("mark login failed", zap.String("name", e.Name), zap.Error(err))
	}
}

func (s *PersistenceSystem) onPlayerLeft(e event.PlayerLeft) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.MarkLogout(ctx, e.Name); err != nil {
		s.log.Error("mark logout failed", zap.String("name", e.Name), zap.Error(err))
	}
}

func positionRow(name string, pos world.Position, heading world.Direction) persist.PositionRow {
	return persist.PositionRow{
		Name:    name,
		X:       pos.X,
		Y:       pos.Y,
		Z:       int16(pos.Z),
		Heading: int16(heading),
	}
}
