// Package controller implements the per-service state machine at the heart
// of the service container: the counter block, the substate automaton, and
// the ServiceController that drives a single named service through its
// lifecycle under a dependency graph.
package controller

import "time"

// Mode is the user-facing policy governing whether a service is permitted
// or desired to run. REMOVE is terminal: once set, no further mode change
// is accepted.
type Mode int

const (
	ModeNever Mode = iota
	ModeOnDemand
	ModePassive
	ModeActive
	ModeRemove
)

func (m Mode) String() string {
	switch m {
	case ModeNever:
		return "NEVER"
	case ModeOnDemand:
		return "ON_DEMAND"
	case ModePassive:
		return "PASSIVE"
	case ModeActive:
		return "ACTIVE"
	case ModeRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Substate is the fine-grained lifecycle state of a controller (14 values).
type Substate int

const (
	SubstateNew Substate = iota
	SubstateCancelled
	SubstateDown
	SubstateWontStart
	SubstateProblem
	SubstateStartRequested
	SubstateRemoving
	SubstateStartInitiating
	SubstateStarting
	SubstateUp
	SubstateStopRequested
	SubstateStopping
	SubstateStartFailed
	SubstateRemoved
)

func (s Substate) String() string {
	switch s {
	case SubstateNew:
		return "NEW"
	case SubstateCancelled:
		return "CANCELLED"
	case SubstateDown:
		return "DOWN"
	case SubstateWontStart:
		return "WONT_START"
	case SubstateProblem:
		return "PROBLEM"
	case SubstateStartRequested:
		return "START_REQUESTED"
	case SubstateRemoving:
		return "REMOVING"
	case SubstateStartInitiating:
		return "START_INITIATING"
	case SubstateStarting:
		return "STARTING"
	case SubstateUp:
		return "UP"
	case SubstateStopRequested:
		return "STOP_REQUESTED"
	case SubstateStopping:
		return "STOPPING"
	case SubstateStartFailed:
		return "START_FAILED"
	case SubstateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// State is the coarse 6-valued projection of Substate used by listeners and
// status snapshots.
type State int

const (
	StateDown State = iota
	StateStarting
	StateUp
	StateStopping
	StateStartFailed
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateDown:
		return "DOWN"
	case StateStarting:
		return "STARTING"
	case StateUp:
		return "UP"
	case StateStopping:
		return "STOPPING"
	case StateStartFailed:
		return "START_FAILED"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// CoarseState maps a substate to its coarse projection.
func CoarseState(s Substate) State {
	switch s {
	case SubstateDown, SubstateWontStart, SubstateProblem, SubstateStartRequested, SubstateRemoving, SubstateNew:
		return StateDown
	case SubstateStartInitiating, SubstateStarting:
		return StateStarting
	case SubstateUp, SubstateStopRequested:
		return StateUp
	case SubstateStopping:
		return StateStopping
	case SubstateStartFailed:
		return StateStartFailed
	case SubstateCancelled, SubstateRemoved:
		return StateRemoved
	default:
		return StateDown
	}
}

// Counters is the bag of integers and flags that encode a controller's
// readiness (spec §3). It is mutated only under the owning controller's
// lock.
type Counters struct {
	Mode     Mode
	Substate Substate

	// UpperCount is signed readiness: it is always 0 or 1. ACTIVE/PASSIVE
	// contribute +1 unconditionally; ON_DEMAND contributes +1 iff
	// DemandedByCount > 0; NEVER/REMOVE contribute 0.
	UpperCount int

	// DownDependencies counts immediate dependencies not currently up,
	// plus 1 if this controller has a parent and the parent is not up.
	DownDependencies int

	// DemandedByCount is the number of dependents currently demanding this
	// service (directly, or via a forwarded OptionalDependency demand).
	DemandedByCount int

	// RunningDependents is the number of dependents currently in a running
	// state holding this service up. Stop cannot proceed until this is 0.
	RunningDependents int

	// FailCount is the number of unresolved dependency start failures
	// reported to this controller (DependencyFailed calls not yet matched
	// by DependencyFailureCleared). This controller's own start failure is
	// not counted here; it is held in StartException. Values >1 suppress
	// duplicate listener notifications.
	FailCount int

	// TransitiveUnavailableDepCount mirrors FailCount's suppression
	// behaviour for the transitive-unavailable-dependency dimension.
	TransitiveUnavailableDepCount int

	// ImmediateUnavailableDependencies is the set of immediate dependency
	// names currently reported absent.
	ImmediateUnavailableDependencies map[string]struct{}

	// DemandForwarded records whether this controller currently has an
	// outstanding demand registered against its own dependencies and
	// parent, so that mode changes can edge-trigger DemandParents /
	// UndemandParents exactly once rather than recomputing and
	// potentially re-issuing an already-active demand.
	DemandForwarded bool

	// AsyncTasks is the number of outstanding tasks: executor-queued,
	// in-flight listener invocations, and placeholder tokens. A
	// transition may be computed only when this is zero.
	AsyncTasks int

	// StartException is the captured failure from the last start
	// attempt. Cleared on retry or on leaving START_FAILED.
	StartException error

	// LifecycleTime is the monotonic timestamp of the most recent
	// lifecycle-initiating transition (stamped on UP->STOP_REQUESTED).
	LifecycleTime time.Time
}

// HasProblem reports whether the subtree holds any unresolved dependency or
// start-failure condition.
func (c *Counters) HasProblem() bool {
	return len(c.ImmediateUnavailableDependencies) > 0 || c.TransitiveUnavailableDepCount > 0 || c.FailCount > 0
}

// now is indirected so tests can substitute a deterministic clock.
var now = time.Now

// newCounters returns a fresh counter block for a just-installed controller.
func newCounters() Counters {
	return Counters{
		Mode:                             ModeNever,
		Substate:                         SubstateNew,
		ImmediateUnavailableDependencies: make(map[string]struct{}),
	}
}
