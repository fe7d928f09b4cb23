package controller

// desiredUpper computes the target UpperCount for a mode, given the current
// demand count (spec §3: "ACTIVE, PASSIVE contribute +1; ON_DEMAND
// contributes +1 iff demandedByCount>0; NEVER/REMOVE contribute 0").
func desiredUpper(mode Mode, demandedByCount int) int {
	switch mode {
	case ModePassive, ModeActive:
		return 1
	case ModeOnDemand:
		if demandedByCount > 0 {
			return 1
		}
		return 0
	default: // NEVER, REMOVE
		return 0
	}
}

// desiredForwarding computes whether this controller should be forwarding
// demand to its own dependencies and parent under a given mode. ACTIVE
// always forwards; ON_DEMAND and PASSIVE forward only while actually
// demanded; NEVER/REMOVE never forward.
//
// This is tracked explicitly (Counters.DemandForwarded) rather than
// recomputed from (mode, demandedByCount) on every mode change, so that
// DemandParents/UndemandParents fire exactly once per edge crossing — the
// literal mode-transition table in spec §4.3 reads as if entering ACTIVE
// always re-issues DemandParents even when already forwarding, but doing
// so without a matching UndemandParents would unbalance the dependency's
// own demandedByCount and violate the round-trip law of spec §8
// ("addDemand followed by a matching removeDemand ... leaves all counters
// ... unchanged"). Edge-triggering preserves that invariant while
// producing the same observable forwarding state the table describes.
func desiredForwarding(mode Mode, demandedByCount int) bool {
	switch mode {
	case ModeActive:
		return true
	case ModeOnDemand, ModePassive:
		return demandedByCount > 0
	default:
		return false
	}
}

// modeTransitionResult carries what a mode change must do besides flipping
// Counters.Mode: the tasks to emit and whether the change is rejected.
type modeTransitionResult struct {
	tasks []Task
	err   error
}

// applyModeChange mutates Mode/UpperCount/DemandForwarded on c to reflect
// newMode and returns the tasks the transition emits (spec §4.3's mode
// table). It does not itself run the substate automaton; the caller does
// that afterwards while still holding the lock, then submits tasks.
func applyModeChange(c *Counters, newMode Mode) modeTransitionResult {
	if c.Mode == ModeRemove {
		if newMode == ModeRemove {
			return modeTransitionResult{}
		}
		return modeTransitionResult{err: errModeIsTerminal}
	}

	oldMode := c.Mode
	newUpper := desiredUpper(newMode, c.DemandedByCount)
	oldForward := desiredForwarding(oldMode, c.DemandedByCount)
	newForward := desiredForwarding(newMode, c.DemandedByCount)

	var tasks []Task
	if newForward && !oldForward {
		tasks = append(tasks, Task{Kind: TaskDemandParents, Demand: true})
	} else if oldForward && !newForward {
		tasks = append(tasks, Task{Kind: TaskDemandParents, Demand: false})
	}

	c.Mode = newMode
	c.UpperCount = newUpper
	c.DemandForwarded = newForward

	if newMode == ModeRemove {
		tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventServiceRemoveRequested})
	}

	return modeTransitionResult{tasks: tasks}
}

// demandChanged recomputes UpperCount/DemandForwarded after
// DemandedByCount has changed with the mode held fixed (AddDemand /
// RemoveDemand), returning any DemandParents/UndemandParents tasks the
// edge crossing requires.
func demandChanged(c *Counters) []Task {
	newUpper := desiredUpper(c.Mode, c.DemandedByCount)
	newForward := desiredForwarding(c.Mode, c.DemandedByCount)

	var tasks []Task
	if newForward && !c.DemandForwarded {
		tasks = append(tasks, Task{Kind: TaskDemandParents, Demand: true})
	} else if c.DemandForwarded && !newForward {
		tasks = append(tasks, Task{Kind: TaskDemandParents, Demand: false})
	}

	c.UpperCount = newUpper
	c.DemandForwarded = newForward
	return tasks
}
