package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

// AccountStore is the account persistence the login handler needs.
// *persist.AccountRepo satisfies it.
type AccountStore interface {
	Load(ctx context.Context, name string) (*persist.AccountRow, error)
	Create(ctx context.Context, name, rawPassword, ip string) (*persist.AccountRow, error)
	ValidatePassword(hash, rawPassword string) bool
	UpdateLastActive(ctx context.Context, name, ip string) error
}

// CharacterStore is the character persistence the login and disconnect
// handlers need. *persist.CharacterRepo satisfies it.
type CharacterStore interface {
	LoadByName(ctx context.Context, name string) (*persist.CharacterRow, error)
	Create(ctx context.Context, c *persist.CharacterRow) error
	SavePosition(ctx context.Context, p persist.PositionRow) error
}

// Deps holds shared dependencies injected into all packet handlers.
// Accounts and Characters are nil when persistence is disabled; logins are
// then accepted without a password check and characters enter at the temple.
type Deps struct {
	Accounts   AccountStore
	Characters CharacterStore
	Config     *config.Config
	Log        *zap.Logger
	World      *world.Game
	Bus        *event.Bus
}

// Temple returns the configured entry point for new characters.
func (d *Deps) Temple() world.Position {
	w := d.Config.World
	return world.Position{X: w.TempleX, Y: w.TempleY, Z: w.TempleZ}
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_LOGIN,
		[]packet.SessionState{packet.StateConnected},
		func(sess any, r *packet.Reader) {
			HandleLogin(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_PING,
		[]packet.SessionState{packet.StateConnected, packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			HandlePing(sess.(*net.Session), r, deps)
		},
	)

	// In-world phase
	inWorldStates := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_OPCODE_LOGOUT, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleLogout(sess.(*net.Session), r, deps)
		},
	)
	for opcode := range walkOpcodes {
		reg.Register(opcode, inWorldStates,
			func(sess any, r *packet.Reader) {
				HandleWalk(sess.(*net.Session), r, deps)
			},
		)
	}
}
