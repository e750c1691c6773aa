package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/handler"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
)

// SessionSource hands accepted sessions to the game loop. *net.Server
// satisfies it.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(sessionID uint64)
}

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	source     SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	maxPerTick int
	deps       *handler.Deps
	log        *zap.Logger
}

func NewInputSystem(
	source SessionSource,
	registry *packet.Registry,
	store *net.SessionStore,
	maxPerTick int,
	deps *handler.Deps,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		deps:       deps,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.source.DeadSessions():
			s.store.Remove(id)
		default:
			goto doneDead
		}
	}
doneDead:

	// Characters of closed sessions leave before any packet of this pass
	// runs, so a relog in the same tick sees them gone and saved.
	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			handler.HandleDisconnect(sess, s.deps)
			s.source.NotifyDead(id)
			s.store.Remove(id)
		}
	}

	// Drain packets from each session (up to maxPerTick per session)
	for _, sess := range s.store.Raw() {
	drain:
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case data := <-sess.InQueue:
				if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
					s.log.Debug("packet dispatch failed",
						zap.Uint64("session", sess.ID),
						zap.Error(err),
					)
				}
			default:
				break drain
			}
		}
	}

	// Early flush: movement broadcasts produced by input go out while the
	// rest of the tick runs. OutputSystem flushes whatever comes later.
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

// SessionCount returns the current number of active sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Count()
}
