package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

// HandleLogout processes C_OPCODE_LOGOUT. The character leaves the world
// when the input system picks up the closed session.
func HandleLogout(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info("player logout", zap.Uint64("session", sess.ID), zap.String("account", sess.AccountName))
	sess.Close()
}

// HandleDisconnect removes the session's character from the world and writes
// its position before returning, so a login later in the same tick loads
// where it left. A session whose character was taken over by a newer login
// leaves it alone.
func HandleDisconnect(sess *net.Session, deps *Deps) {
	player := sess.Player
	sess.Player = nil
	if player == nil || player.Connection() != sess {
		return
	}

	pos := player.Position()
	if err := deps.World.RemoveCreature(player); err != nil {
		deps.Log.Error("remove player failed", zap.String("name", player.Name), zap.Error(err))
		return
	}
	savePosition(deps, player.Name, pos, player.Heading)

	event.Emit(deps.Bus, event.PlayerLeft{
		CreatureID: player.ID,
		Name:       player.Name,
		SessionID:  sess.ID,
		Pos:        pos,
		Heading:    player.Heading,
	})

	deps.Log.Info("player left world",
		zap.Uint64("session", sess.ID),
		zap.String("name", player.Name),
		zap.Stringer("pos", pos),
	)
}

func savePosition(deps *Deps, name string, pos world.Position, heading world.Direction) {
	if deps.Characters == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := deps.Characters.SavePosition(ctx, persist.PositionRow{
		Name:    name,
		X:       pos.X,
		Y:       pos.Y,
		Z:       int16(pos.Z),
		Heading: int16(heading),
	})
	if err != nil {
		deps.Log.Error("save position on logout failed", zap.String("name", name), zap.Error(err))
	}
}
