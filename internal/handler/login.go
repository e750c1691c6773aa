package handler

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

const (
	maxNameLen = 30

	defaultOutfit uint16 = 128
)

// Login rejection reasons, sent in S_OPCODE_DISCONNECT.
const (
	reasonBadName     = "Invalid character name."
	reasonBadPassword = "Account name or password is not correct."
	reasonBanned      = "Your account has been banned."
	reasonNotOwner    = "This character belongs to another account."
	reasonNoPlace     = "There is no place for your character to enter the world."
	reasonServerError = "Internal error, please try again later."
)

var errRejected = errors.New("login rejected")

// HandleLogin processes C_OPCODE_LOGIN: name, password.
//
// The character is loaded (or created at the temple), then placed in the
// world. If a character of that name is already in the world this session
// takes it over and the old session is kicked.
func HandleLogin(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	password := r.ReadS()
	if r.Err() != nil {
		return
	}
	if !validName(name) {
		reject(sess, deps, name, reasonBadName)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accountName := strings.ToLower(name)
	pos, outfit, err := loadCharacter(ctx, sess, deps, accountName, name, password)
	if err != nil {
		return
	}

	if !deps.World.CanSpawnAt(pos) {
		deps.Log.Warn("stored position has no tile, using temple",
			zap.String("name", name),
			zap.Stringer("pos", pos),
		)
		pos = deps.Temple()
	}

	player := world.NewPlayer(name, sess)
	player.Outfit = outfit
	placed, res, err := deps.World.PlacePlayer(player, pos)
	if err != nil {
		deps.Log.Error("place player failed", zap.String("name", name), zap.Error(err))
		reason := reasonServerError
		if errors.Is(err, world.ErrNoTile) {
			reason = reasonNoPlace
		}
		reject(sess, deps, name, reason)
		return
	}

	sess.AccountName = accountName
	sess.Player = placed
	sess.SetState(packet.StateInWorld)

	light := deps.World.AmbientLight()
	sess.Send(net.BuildSelfAppear(placed, light))
	sess.Send(net.BuildWorldLight(light))
	for _, c := range deps.World.SyncView(placed) {
		sess.SendAddCreature(c, c.Tile().StackPos(c))
	}

	event.Emit(deps.Bus, event.PlayerEntered{
		CreatureID:  placed.ID,
		Name:        placed.Name,
		AccountName: accountName,
		SessionID:   sess.ID,
		Reconnected: res == world.PlaceReconnected,
	})

	deps.Log.Info("player entered world",
		zap.Uint64("session", sess.ID),
		zap.String("name", placed.Name),
		zap.Uint32("id", placed.ID),
		zap.Stringer("pos", placed.Position()),
		zap.Stringer("result", res),
	)
}

// loadCharacter authenticates the account and returns where the character
// enters. Rejections are sent to the client and reported as errRejected.
func loadCharacter(ctx context.Context, sess *net.Session, deps *Deps, accountName, name, password string) (world.Position, uint16, error) {
	temple := deps.Temple()
	if deps.Accounts == nil || deps.Characters == nil {
		return temple, defaultOutfit, nil
	}

	account, err := deps.Accounts.Load(ctx, accountName)
	if err != nil {
		deps.Log.Error("load account failed", zap.String("account", accountName), zap.Error(err))
		reject(sess, deps, name, reasonServerError)
		return world.Position{}, 0, err
	}
	if account == nil {
		account, err = deps.Accounts.Create(ctx, accountName, password, sess.IP)
		if err != nil {
			deps.Log.Error("create account failed", zap.String("account", accountName), zap.Error(err))
			reject(sess, deps, name, reasonServerError)
			return world.Position{}, 0, err
		}
		deps.Log.Info("account created", zap.String("account", accountName))
	} else if !deps.Accounts.ValidatePassword(account.PasswordHash, password) {
		reject(sess, deps, name, reasonBadPassword)
		return world.Position{}, 0, errRejected
	}
	if account.Banned {
		reject(sess, deps, name, reasonBanned)
		return world.Position{}, 0, errRejected
	}
	if err := deps.Accounts.UpdateLastActive(ctx, accountName, sess.IP); err != nil {
		deps.Log.Error("update last active failed", zap.Error(err))
	}

	row, err := deps.Characters.LoadByName(ctx, name)
	if err != nil {
		deps.Log.Error("load character failed", zap.String("name", name), zap.Error(err))
		reject(sess, deps, name, reasonServerError)
		return world.Position{}, 0, err
	}
	if row == nil {
		row = &persist.CharacterRow{
			Name:        name,
			AccountName: accountName,
			X:           temple.X,
			Y:           temple.Y,
			Z:           int16(temple.Z),
			Heading:     int16(world.South),
			Outfit:      int32(defaultOutfit),
		}
		if err := deps.Characters.Create(ctx, row); err != nil {
			deps.Log.Error("create character failed", zap.String("name", name), zap.Error(err))
			reject(sess, deps, name, reasonServerError)
			return world.Position{}, 0, err
		}
		deps.Log.Info("character created", zap.String("name", name))
	}
	if row.AccountName != accountName {
		reject(sess, deps, name, reasonNotOwner)
		return world.Position{}, 0, errRejected
	}
	return world.Position{X: row.X, Y: row.Y, Z: int8(row.Z)}, uint16(row.Outfit), nil
}

// reject sends the reason and closes the session after it is written.
func reject(sess *net.Session, deps *Deps, name, reason string) {
	deps.Log.Info("login rejected",
		zap.Uint64("session", sess.ID),
		zap.String("name", name),
		zap.String("reason", reason),
	)
	sess.DisconnectWith(reason)
}

// validName accepts 1-30 letters, digits and inner spaces.
func validName(name string) bool {
	if name == "" || len(name) > maxNameLen || strings.TrimSpace(name) != name {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return false
		}
	}
	return true
}
