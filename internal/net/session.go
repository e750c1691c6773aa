package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// KickReason is sent to a session that loses its character to a newer login.
const KickReason = "You have been logged out: your character logged in from another connection."

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
//
// Session implements world.Connection: the world core pushes add, remove
// and move notifications through it, which land in the output buffer.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads packets from here
	OutQueue chan []byte // writer goroutine reads from here; nil = close after drain

	IP          string
	AccountName string
	Player      *world.Creature // game loop only; nil until placed

	outBuf [][]byte // buffered packets, flushed by OutputSystem (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	writeTimeout time.Duration
	readTimeout  time.Duration

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int   // max packets/sec (0 = unlimited)
	pktCount   int   // packets received this second
	pktResetAt int64 // unix second of last counter reset

	log *zap.Logger
}

// SessionOptions sizes queues and sets timeouts. Zero timeouts disable deadlines.
type SessionOptions struct {
	InQueueSize  int
	OutQueueSize int
	PktPerSec    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, opts.InQueueSize),
		OutQueue:     make(chan []byte, opts.OutQueueSize),
		IP:           remoteHost(conn),
		closeCh:      make(chan struct{}),
		pktPerSec:    opts.PktPerSec,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateConnected))
	return s
}

// remoteHost returns the peer address without its port.
func remoteHost(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Log returns the session-scoped logger.
func (s *Session) Log() *zap.Logger {
	return s.log
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet for sending. The packet is not written to TCP until
// FlushOutput is called by OutputSystem.
// Called only from the game loop goroutine; no lock needed on outBuf.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow connection")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down immediately.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// LoggedIn reports whether the session has a character in the world.
func (s *Session) LoggedIn() bool {
	return !s.closed.Load() && s.State() == packet.StateInWorld
}

// Disconnect kicks the session with KickReason.
func (s *Session) Disconnect() {
	s.DisconnectWith(KickReason)
}

// DisconnectWith sends reason and closes the session once everything
// already queued has been written. Input stops immediately.
func (s *Session) DisconnectWith(reason string) {
	if s.closed.Load() {
		return
	}
	s.SetState(packet.StateDisconnecting)
	s.Send(BuildDisconnect(reason))
	s.FlushOutput()
	select {
	case s.OutQueue <- nil:
	default:
		s.Close()
	}
}

func (s *Session) SendAddCreature(c *world.Creature, stackPos int) {
	s.Send(BuildAddCreature(c, stackPos))
}

func (s *Session) SendRemoveCreature(c *world.Creature, stackPos int) {
	s.Send(BuildRemoveCreature(c, c.Position(), stackPos))
}

func (s *Session) SendCreatureMove(c *world.Creature, to *world.Tile, toStackPos int, from *world.Tile, fromStackPos int) {
	s.Send(BuildCreatureMove(c, from, fromStackPos, to, toStackPos))
}

// readLoop runs in its own goroutine. It reads frames from the TCP connection
// and pushes them onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		if s.State() == packet.StateDisconnecting {
			continue
		}

		// Block until InQueue has space or session closes. Dropping walk
		// packets would desync the client's position.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine. It reads packets from OutQueue and
// writes them as framed data to the TCP connection. A nil packet means the
// session is to be closed after everything before it has been written.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if data == nil {
				return
			}
			if !s.writeOnePacket(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// writeOnePacket writes a single packet to the socket. Returns true on success.
func (s *Session) writeOnePacket(data []byte) bool {
	s.log.Debug("TX",
		zap.String("op", fmt.Sprintf("0x%02X", data[0])),
		zap.Int("len", len(data)),
	)

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := WriteFrame(s.conn, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
