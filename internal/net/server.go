package net

import (
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Limits caps concurrent connections. Zero disables a cap.
type Limits struct {
	MaxConnections int
	MaxPerIP       int
}

// Server accepts TCP connections and hands Sessions to the game loop over
// channels. The game loop reports finished sessions back through NotifyDead,
// which frees their connection slot.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64
	opts     SessionOptions
	limits   Limits
	log      *zap.Logger
	closing  atomic.Bool

	mu    sync.Mutex
	live  map[uint64]string // session ID -> IP
	perIP map[string]int
}

func NewServer(bindAddr string, opts SessionOptions, limits Limits, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		opts:     opts,
		limits:   limits,
		log:      log,
		live:     make(map[uint64]string),
		perIP:    make(map[string]int),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts, s.log)
		if reason, ok := s.admit(id, sess.IP); !ok {
			s.log.Warn("connection refused", zap.String("ip", sess.IP), zap.String("reason", reason))
			sess.Start()
			sess.DisconnectWith(reason)
			continue
		}
		sess.Start()

		select {
		case s.newConns <- sess:
			s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))
		default:
			s.log.Warn("connection queue full, rejecting client", zap.String("ip", sess.IP))
			s.release(id)
			sess.Close()
		}
	}
}

// admit reserves a connection slot for ip, or returns the refusal reason.
func (s *Server) admit(id uint64, ip string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limits.MaxConnections > 0 && len(s.live) >= s.limits.MaxConnections {
		return "The server is full. Try again later.", false
	}
	if s.limits.MaxPerIP > 0 && s.perIP[ip] >= s.limits.MaxPerIP {
		return "Too many connections from your address.", false
	}
	s.live[id] = ip
	s.perIP[ip]++
	return "", true
}

func (s *Server) release(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ip, ok := s.live[id]
	if !ok {
		return
	}
	delete(s.live, id)
	if s.perIP[ip] <= 1 {
		delete(s.perIP, ip)
	} else {
		s.perIP[ip]--
	}
}

// Connections returns the number of admitted sessions not yet reported dead.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead frees the slot of a finished session and queues its ID on
// DeadSessions. A full queue drops the ID; the slot is freed regardless.
func (s *Server) NotifyDead(sessionID uint64) {
	s.release(sessionID)
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	if s.closing.Swap(true) {
		return
	}
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
