package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain packet queues, dispatch handlers
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: creature AI
	PhaseOutput                  // 3: flush session buffers
	PhasePersist                 // 4: periodic position save
)

// System is one unit of per-tick work on the game loop.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
