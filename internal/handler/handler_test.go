package handler

import (
	"context"
	stdnet "net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

type gridMap map[world.Position]*world.Tile

func (m gridMap) GetTile(pos world.Position) *world.Tile { return m[pos] }

var grass = &world.Item{ID: 102, Name: "grass"}

func newDeps(t *testing.T) *Deps {
	t.Helper()
	m := gridMap{}
	for x := int32(0); x <= 10; x++ {
		for y := int32(0); y <= 10; y++ {
			pos := world.Position{X: x, Y: y, Z: 7}
			m[pos] = world.NewTile(pos, grass)
		}
	}
	log := zaptest.NewLogger(t)
	return &Deps{
		Config: &config.Config{World: config.WorldConfig{TempleX: 5, TempleY: 5, TempleZ: 7}},
		Log:    log,
		World:  world.NewGame(m, world.Options{}, log),
		Bus:    event.NewBus(),
	}
}

var nextSessionID uint64

// newSession returns a session whose I/O goroutines are not running; tests
// read what it would have written straight from OutQueue.
func newSession(t *testing.T) *net.Session {
	t.Helper()
	server, client := stdnet.Pipe()
	nextSessionID++
	sess := net.NewSession(server, nextSessionID, net.SessionOptions{InQueueSize: 8, OutQueueSize: 64}, zaptest.NewLogger(t))
	t.Cleanup(func() {
		sess.Close()
		client.Close()
	})
	return sess
}

// drain flushes the session and returns the opcodes it sent. closing is true
// when the session asked to be closed after the last packet.
func drain(sess *net.Session) (ops []byte, closing bool) {
	sess.FlushOutput()
	for {
		select {
		case data := <-sess.OutQueue:
			if data == nil {
				closing = true
				continue
			}
			ops = append(ops, data[0])
		default:
			return ops, closing
		}
	}
}

func loginPacket(name, password string) *packet.Reader {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_LOGIN)
	w.WriteS(name)
	w.WriteS(password)
	return packet.NewReader(w.Bytes())
}

func login(t *testing.T, deps *Deps, name string) *net.Session {
	t.Helper()
	sess := newSession(t)
	HandleLogin(sess, loginPacket(name, "secret"), deps)
	require.NotNil(t, sess.Player, "login of %q failed", name)
	return sess
}

func TestLoginWithoutDatabaseEntersAtTemple(t *testing.T) {
	deps := newDeps(t)
	sess := login(t, deps, "Alice")

	assert.Equal(t, packet.StateInWorld, sess.State())
	assert.True(t, sess.LoggedIn())
	assert.Equal(t, "alice", sess.AccountName)
	assert.Equal(t, world.Position{X: 5, Y: 5, Z: 7}, sess.Player.Position())
	assert.Same(t, sess.Player, deps.World.FindPlayerByName("Alice"))

	ops, closing := drain(sess)
	assert.False(t, closing)
	assert.Equal(t, []byte{packet.S_OPCODE_SELF_APPEAR, packet.S_OPCODE_WORLD_LIGHT}, ops)

	var entered []event.PlayerEntered
	event.Subscribe(deps.Bus, func(e event.PlayerEntered) { entered = append(entered, e) })
	deps.Bus.SwapBuffers()
	deps.Bus.DispatchAll()
	require.Len(t, entered, 1)
	assert.Equal(t, sess.Player.ID, entered[0].CreatureID)
	assert.False(t, entered[0].Reconnected)
}

func TestLoginSeesAndIsSeenByNeighbours(t *testing.T) {
	deps := newDeps(t)
	alice := login(t, deps, "Alice")
	drain(alice)

	bob := login(t, deps, "Bob")

	ops, _ := drain(bob)
	assert.Equal(t, []byte{
		packet.S_OPCODE_SELF_APPEAR,
		packet.S_OPCODE_WORLD_LIGHT,
		packet.S_OPCODE_ADD_CREATURE,
	}, ops)
	assert.True(t, bob.Player.Known.Knows(alice.Player.ID))

	ops, _ = drain(alice)
	assert.Equal(t, []byte{packet.S_OPCODE_ADD_CREATURE}, ops)
}

func TestLoginRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", " Alice", "Al!ce", "abcdefghijklmnopqrstuvwxyzabcde"} {
		deps := newDeps(t)
		sess := newSession(t)
		HandleLogin(sess, loginPacket(name, "x"), deps)

		assert.Nil(t, sess.Player, name)
		assert.Equal(t, packet.StateDisconnecting, sess.State(), name)
		ops, closing := drain(sess)
		assert.Equal(t, []byte{packet.S_OPCODE_DISCONNECT}, ops, name)
		assert.True(t, closing, name)
		assert.Zero(t, deps.World.PlayerCount())
	}
}

func TestLoginTakesOverExistingCharacter(t *testing.T) {
	deps := newDeps(t)
	first := login(t, deps, "Alice")
	drain(first)
	player := first.Player

	second := login(t, deps, "Alice")

	assert.Same(t, player, second.Player)
	assert.Equal(t, world.Connection(second), player.Connection())
	assert.Equal(t, 1, deps.World.PlayerCount())

	ops, closing := drain(first)
	assert.Equal(t, []byte{packet.S_OPCODE_DISCONNECT}, ops)
	assert.True(t, closing)
	assert.Equal(t, packet.StateDisconnecting, first.State())

	// The kicked session's cleanup must not take the character with it.
	HandleDisconnect(first, deps)
	assert.Same(t, player, deps.World.FindPlayerByName("Alice"))

	var entered []event.PlayerEntered
	event.Subscribe(deps.Bus, func(e event.PlayerEntered) { entered = append(entered, e) })
	deps.Bus.SwapBuffers()
	deps.Bus.DispatchAll()
	require.Len(t, entered, 2)
	assert.True(t, entered[1].Reconnected)
}

func TestWalkMovesAndNotifies(t *testing.T) {
	deps := newDeps(t)
	alice := login(t, deps, "Alice")
	bob := login(t, deps, "Bob")
	drain(alice)
	drain(bob)

	HandleWalk(bob, packet.NewReader([]byte{packet.C_OPCODE_WALK_EAST}), deps)

	assert.Equal(t, world.Position{X: 6, Y: 5, Z: 7}, bob.Player.Position())
	assert.Equal(t, world.East, bob.Player.Heading)
	ops, _ := drain(alice)
	assert.Equal(t, []byte{packet.S_OPCODE_MOVE_CREATURE}, ops)

	// Off the map edge: dropped silently.
	for i := 0; i < 10; i++ {
		HandleWalk(bob, packet.NewReader([]byte{packet.C_OPCODE_WALK_EAST}), deps)
	}
	assert.Equal(t, world.Position{X: 10, Y: 5, Z: 7}, bob.Player.Position())
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	deps := newDeps(t)
	alice := login(t, deps, "Alice")
	bob := login(t, deps, "Bob")
	drain(alice)
	player := bob.Player

	HandleLogout(bob, nil, deps)
	assert.True(t, bob.IsClosed())
	HandleDisconnect(bob, deps)

	assert.Nil(t, bob.Player)
	assert.Nil(t, deps.World.FindPlayerByName("Bob"))
	assert.Nil(t, player.Tile())
	assert.Equal(t, 1, deps.World.PlayerCount())
	ops, _ := drain(alice)
	assert.Equal(t, []byte{packet.S_OPCODE_REMOVE_CREATURE}, ops)

	var left []event.PlayerLeft
	event.Subscribe(deps.Bus, func(e event.PlayerLeft) { left = append(left, e) })
	deps.Bus.SwapBuffers()
	deps.Bus.DispatchAll()
	require.Len(t, left, 1)
	assert.Equal(t, "Bob", left[0].Name)
	assert.Equal(t, world.Position{X: 5, Y: 5, Z: 7}, left[0].Pos)

	// A second cleanup is harmless.
	HandleDisconnect(bob, deps)
	assert.Equal(t, 1, deps.World.PlayerCount())
}

func TestDisconnectSavesPosition(t *testing.T) {
	deps, _, chars := newStoredDeps(t)
	sess := login(t, deps, "Alice")
	HandleWalk(sess, packet.NewReader([]byte{packet.C_OPCODE_WALK_WEST}), deps)

	sess.Close()
	HandleDisconnect(sess, deps)

	row := chars.rows["Alice"]
	require.NotNil(t, row)
	assert.Equal(t, int32(4), row.X)
	assert.Equal(t, int32(5), row.Y)
	assert.Equal(t, int16(world.West), row.Heading)
}

func TestPingAnswered(t *testing.T) {
	deps := newDeps(t)
	sess := newSession(t)
	HandlePing(sess, nil, deps)
	ops, _ := drain(sess)
	assert.Equal(t, []byte{packet.S_OPCODE_PING}, ops)
}

func TestRegistryGatesByState(t *testing.T) {
	deps := newDeps(t)
	reg := packet.NewRegistry(zaptest.NewLogger(t))
	RegisterAll(reg, deps)
	sess := newSession(t)

	err := reg.Dispatch(sess, sess.State(), []byte{packet.C_OPCODE_WALK_NORTH})
	assert.Error(t, err)

	w := packet.NewWriterWithOpcode(packet.C_OPCODE_LOGIN)
	w.WriteS("Alice")
	w.WriteS("pw")
	require.NoError(t, reg.Dispatch(sess, sess.State(), w.Bytes()))
	require.NotNil(t, sess.Player)

	require.NoError(t, reg.Dispatch(sess, sess.State(), []byte{packet.C_OPCODE_WALK_NORTH}))
	assert.Equal(t, world.Position{X: 5, Y: 4, Z: 7}, sess.Player.Position())

	assert.Error(t, reg.Dispatch(sess, sess.State(), w.Bytes()), "second login on the same session")
}

// Persistence-backed logins.

type fakeAccounts struct {
	rows   map[string]*persist.AccountRow
	active []string
}

func (f *fakeAccounts) Load(_ context.Context, name string) (*persist.AccountRow, error) {
	return f.rows[name], nil
}

func (f *fakeAccounts) Create(_ context.Context, name, raw, ip string) (*persist.AccountRow, error) {
	row := &persist.AccountRow{Name: name, PasswordHash: "hash:" + raw, IP: ip}
	f.rows[name] = row
	return row, nil
}

func (f *fakeAccounts) ValidatePassword(hash, raw string) bool { return hash == "hash:"+raw }

func (f *fakeAccounts) UpdateLastActive(_ context.Context, name, _ string) error {
	f.active = append(f.active, name)
	return nil
}

type fakeCharacters struct {
	rows map[string]*persist.CharacterRow
}

func (f *fakeCharacters) LoadByName(_ context.Context, name string) (*persist.CharacterRow, error) {
	return f.rows[name], nil
}

func (f *fakeCharacters) Create(_ context.Context, c *persist.CharacterRow) error {
	f.rows[c.Name] = c
	return nil
}

func (f *fakeCharacters) SavePosition(_ context.Context, p persist.PositionRow) error {
	row := f.rows[p.Name]
	if row == nil {
		return nil
	}
	row.X, row.Y, row.Z, row.Heading = p.X, p.Y, p.Z, p.Heading
	return nil
}

func newStoredDeps(t *testing.T) (*Deps, *fakeAccounts, *fakeCharacters) {
	deps := newDeps(t)
	accounts := &fakeAccounts{rows: map[string]*persist.AccountRow{}}
	chars := &fakeCharacters{rows: map[string]*persist.CharacterRow{}}
	deps.Accounts = accounts
	deps.Characters = chars
	return deps, accounts, chars
}

func TestLoginCreatesAccountAndCharacter(t *testing.T) {
	deps, accounts, chars := newStoredDeps(t)
	sess := login(t, deps, "Alice")

	require.Contains(t, accounts.rows, "alice")
	assert.Equal(t, []string{"alice"}, accounts.active)
	row := chars.rows["Alice"]
	require.NotNil(t, row)
	assert.Equal(t, "alice", row.AccountName)
	assert.Equal(t, int32(5), row.X)
	assert.Equal(t, uint16(row.Outfit), sess.Player.Outfit)
}

func TestLoginUsesStoredPosition(t *testing.T) {
	deps, accounts, chars := newStoredDeps(t)
	accounts.rows["alice"] = &persist.AccountRow{Name: "alice", PasswordHash: "hash:secret"}
	chars.rows["Alice"] = &persist.CharacterRow{Name: "Alice", AccountName: "alice", X: 2, Y: 3, Z: 7, Outfit: 130}

	sess := login(t, deps, "Alice")
	assert.Equal(t, world.Position{X: 2, Y: 3, Z: 7}, sess.Player.Position())
	assert.Equal(t, uint16(130), sess.Player.Outfit)
}

func TestLoginFallsBackToTemple(t *testing.T) {
	deps, accounts, chars := newStoredDeps(t)
	accounts.rows["alice"] = &persist.AccountRow{Name: "alice", PasswordHash: "hash:secret"}
	chars.rows["Alice"] = &persist.CharacterRow{Name: "Alice", AccountName: "alice", X: 500, Y: 500, Z: 7}

	sess := login(t, deps, "Alice")
	assert.Equal(t, deps.Temple(), sess.Player.Position())
}

func TestLoginRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeAccounts, *fakeCharacters)
	}{
		{"wrong password", func(a *fakeAccounts, _ *fakeCharacters) {
			a.rows["alice"] = &persist.AccountRow{Name: "alice", PasswordHash: "hash:other"}
		}},
		{"banned", func(a *fakeAccounts, _ *fakeCharacters) {
			a.rows["alice"] = &persist.AccountRow{Name: "alice", PasswordHash: "hash:secret", Banned: true}
		}},
		{"foreign character", func(_ *fakeAccounts, c *fakeCharacters) {
			c.rows["Alice"] = &persist.CharacterRow{Name: "Alice", AccountName: "mallory", X: 5, Y: 5, Z: 7}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, accounts, chars := newStoredDeps(t)
			tt.setup(accounts, chars)
			sess := newSession(t)

			HandleLogin(sess, loginPacket("Alice", "secret"), deps)

			assert.Nil(t, sess.Player)
			assert.Zero(t, deps.World.PlayerCount())
			ops, closing := drain(sess)
			assert.Equal(t, []byte{packet.S_OPCODE_DISCONNECT}, ops)
			assert.True(t, closing)
		})
	}
}
