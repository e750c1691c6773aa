package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected     SessionState = iota // awaiting login
	StateInWorld                           // character placed, playing
	StateDisconnecting                     // closing, no more input
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ErrEmptyPacket is returned by Dispatch for a zero-length frame.
var ErrEmptyPacket = errors.New("empty packet")

// HandlerFunc is the callback signature for packet handlers.
// The session is passed as an opaque value so this package stays free of
// session and world imports.
type HandlerFunc func(sess any, r *Reader)

// stateMask holds one bit per SessionState.
type stateMask uint8

func maskOf(states []SessionState) stateMask {
	var m stateMask
	for _, s := range states {
		m |= 1 << uint(s)
	}
	return m
}

func (m stateMask) has(s SessionState) bool {
	return s >= 0 && s < 8 && m&(1<<uint(s)) != 0
}

type route struct {
	fn     HandlerFunc
	states stateMask
}

// DispatchStats counts the packets a Registry did not hand to a handler.
type DispatchStats struct {
	Handled  uint64
	Unknown  uint64
	Rejected uint64 // wrong session state
	Failed   uint64 // short read or handler panic
}

// Registry routes opcodes to handlers, gated by session state. It is used
// only from the game loop goroutine.
type Registry struct {
	routes [256]*route
	stats  DispatchStats
	log    *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Register routes opcode to fn while the session is in one of states.
// Registering an opcode twice replaces the earlier handler.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	if reg.routes[opcode] != nil {
		reg.log.Warn("handler replaced", zap.String("opcode", OpcodeName(opcode)))
	}
	reg.routes[opcode] = &route{fn: fn, states: maskOf(states)}
}

// Registered reports whether a handler exists for opcode.
func (reg *Registry) Registered(opcode byte) bool {
	return reg.routes[opcode] != nil
}

// Stats returns the dispatch counters collected so far.
func (reg *Registry) Stats() DispatchStats {
	return reg.stats
}

// Dispatch runs the handler for the opcode in data[0]. Unknown opcodes are
// counted and dropped without error. A handler that reads past the end of the
// packet, or panics, yields an error; the session stays up either way.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		reg.stats.Failed++
		return ErrEmptyPacket
	}
	opcode := data[0]

	rt := reg.routes[opcode]
	if rt == nil {
		reg.stats.Unknown++
		reg.log.Debug("unknown opcode",
			zap.String("opcode", OpcodeName(opcode)),
			zap.Int("size", len(data)),
		)
		return nil
	}
	if !rt.states.has(state) {
		reg.stats.Rejected++
		return fmt.Errorf("opcode %s not allowed in state %s", OpcodeName(opcode), state)
	}

	r := NewReader(data)
	if err := reg.invoke(rt.fn, sess, r, opcode); err != nil {
		reg.stats.Failed++
		return err
	}
	if err := r.Err(); err != nil {
		reg.stats.Failed++
		return fmt.Errorf("opcode %s: %w", OpcodeName(opcode), err)
	}
	reg.stats.Handled++
	return nil
}

func (reg *Registry) invoke(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("opcode", OpcodeName(opcode)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %s: %v", OpcodeName(opcode), rec)
		}
	}()
	fn(sess, r)
	return nil
}
