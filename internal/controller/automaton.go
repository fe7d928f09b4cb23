package controller

// computeTransition is the pure table lookup of spec §4.2: given the
// current counters (already mutated by whatever event triggered this call)
// and whether the listener set is currently empty, it returns the next
// substate and the tasks that transition emits. ok is false when no row of
// the table fires — the substate is left unchanged and the caller must not
// mutate Counters.Substate.
//
// computeTransition must only be called while Counters.AsyncTasks == 0
// (spec invariant 3); the caller (ServiceController.pump) enforces this.
func computeTransition(c *Counters, listenersEmpty bool) (next Substate, tasks []Task, ok bool) {
	old := c.Substate

	next, tasks, ok = coreTransition(old, c, listenersEmpty)
	if !ok {
		return old, nil, false
	}

	tasks = append(tasks, hookTasks(old, next, c)...)
	return next, tasks, true
}

// coreTransition implements the per-substate branches of spec §4.2 in
// isolation, before the entry/exit hooks of hookTasks are layered on.
func coreTransition(old Substate, c *Counters, listenersEmpty bool) (Substate, []Task, bool) {
	switch old {
	case SubstateDown:
		return downTransition(old, c, listenersEmpty)
	case SubstateWontStart:
		return wontStartTransition(c, listenersEmpty)
	case SubstateStartRequested:
		return startRequestedTransition(c, listenersEmpty)
	case SubstateProblem:
		return problemTransition(c)
	case SubstateStartInitiating:
		return SubstateStarting, []Task{
			{Kind: TaskNotifyListener, Event: EventServiceStarting},
			{Kind: TaskStart, DoInjection: true},
		}, true
	case SubstateStarting:
		if c.StartException == nil {
			return SubstateUp, []Task{
				{Kind: TaskNotifyListener, Event: EventServiceStarted},
				{Kind: TaskForwardDependency, Forward: ForwardDependencyUp},
				{Kind: TaskDependentLifecycle, Started: true},
			}, true
		}
		return SubstateStartFailed, []Task{
			{Kind: TaskInvalidateChildren},
			{Kind: TaskForwardDependency, Forward: ForwardDependencyFailed},
		}, true
	case SubstateUp:
		if c.UpperCount <= 0 || c.DownDependencies > 0 {
			c.LifecycleTime = now()
			return SubstateStopRequested, []Task{
				{Kind: TaskForwardDependency, Forward: ForwardDependencyStopped},
				{Kind: TaskDependentLifecycle, Started: false},
			}, true
		}
		return old, nil, false
	case SubstateStopRequested:
		if c.UpperCount > 0 && c.DownDependencies == 0 {
			// Recovering before actually stopping; the earlier
			// UP->STOP_REQUESTED edge already forwarded "stopped" to
			// dependents, so this must forward the matching "up" back
			// to keep their DownDependencies balanced, and re-register as
			// a running dependent of its own dependencies.
			return SubstateUp, []Task{
				{Kind: TaskForwardDependency, Forward: ForwardDependencyUp},
				{Kind: TaskDependentLifecycle, Started: true},
			}, true
		}
		if c.RunningDependents == 0 {
			return SubstateStopping, []Task{
				{Kind: TaskNotifyListener, Event: EventServiceStopping},
				{Kind: TaskInvalidateChildren},
				{Kind: TaskStop, OnlyUninject: false},
			}, true
		}
		return old, nil, false
	case SubstateStopping:
		stopped := []Task{{Kind: TaskNotifyListener, Event: EventServiceStopped}}
		if c.Mode == ModeNever {
			return SubstateWontStart, stopped, true
		}
		return SubstateDown, stopped, true
	case SubstateStartFailed:
		return startFailedTransition(c)
	case SubstateRemoving:
		return SubstateRemoved, nil, true
	case SubstateNew:
		// A freshly installed controller has nothing to evaluate yet
		// beyond DOWN; NEW exists only so status snapshots can
		// distinguish "never pumped" from "evaluated and found DOWN".
		return SubstateDown, nil, true
	case SubstateCancelled, SubstateRemoved:
		return old, nil, false
	default:
		return old, nil, false
	}
}

// downTransition implements the DOWN row, and is reused (with a small
// additional branch) by WONT_START, which "mirrors DOWN".
func downTransition(base Substate, c *Counters, listenersEmpty bool) (Substate, []Task, bool) {
	if c.Mode == ModeRemove {
		return SubstateRemoving, nil, true
	}
	if c.Mode == ModeNever {
		return SubstateWontStart, nil, true
	}

	canAttemptStart := c.UpperCount > 0 && (c.Mode != ModePassive || c.DownDependencies == 0)
	if !canAttemptStart {
		return base, nil, false
	}

	if listenersEmpty {
		if c.HasProblem() {
			return SubstateProblem, nil, true
		}
		if c.DownDependencies == 0 {
			return SubstateStartInitiating, nil, true
		}
		return base, nil, false
	}
	return SubstateStartRequested, nil, true
}

func wontStartTransition(c *Counters, listenersEmpty bool) (Substate, []Task, bool) {
	if c.Mode == ModeNever {
		return SubstateWontStart, nil, false
	}
	next, tasks, ok := downTransition(SubstateWontStart, c, listenersEmpty)
	if ok {
		return next, tasks, true
	}
	// Mirrors DOWN, but WONT_START additionally falls through to DOWN
	// once mode no longer forbids starting and no start is yet possible.
	return SubstateDown, nil, true
}

func startRequestedTransition(c *Counters, listenersEmpty bool) (Substate, []Task, bool) {
	if c.HasProblem() {
		return SubstateProblem, nil, true
	}
	if c.DownDependencies == 0 {
		return SubstateStartInitiating, nil, true
	}
	if c.Mode == ModeNever {
		return SubstateWontStart, nil, true
	}
	if c.Mode == ModeRemove && listenersEmpty {
		return SubstateRemoving, nil, true
	}
	return SubstateDown, nil, true
}

func problemTransition(c *Counters) (Substate, []Task, bool) {
	if c.UpperCount == 0 {
		switch c.Mode {
		case ModeRemove:
			return SubstateRemoving, nil, true
		case ModeNever:
			return SubstateWontStart, nil, true
		default:
			return SubstateDown, nil, true
		}
	}
	if !c.HasProblem() {
		if c.DownDependencies > 0 {
			return SubstateStartRequested, nil, true
		}
		return SubstateStartInitiating, nil, true
	}
	return SubstateProblem, nil, false
}

func startFailedTransition(c *Counters) (Substate, []Task, bool) {
	recovered := c.StartException == nil && c.UpperCount > 0 && c.DownDependencies == 0
	if recovered {
		return SubstateStarting, []Task{
			{Kind: TaskStart, DoInjection: true},
			{Kind: TaskForwardDependency, Forward: ForwardDependencyRetrying},
		}, true
	}

	// A start failure never reached UP, so dependents were never told
	// ImmediateDependencyUp: nothing here should forward a matching
	// "stopped" (it would double-count their DownDependencies). Only the
	// failure signal itself needs clearing.
	stopTasks := []Task{
		{Kind: TaskNotifyListener, Event: EventServiceFailedStopped},
		{Kind: TaskForwardDependency, Forward: ForwardDependencyRetrying},
		{Kind: TaskStop, OnlyUninject: true},
	}

	if c.Mode == ModeNever {
		c.StartException = nil
		return SubstateWontStart, stopTasks, true
	}
	if c.UpperCount <= 0 || c.DownDependencies > 0 {
		c.StartException = nil
		return SubstateDown, stopTasks, true
	}
	return SubstateStartFailed, nil, false
}

// hookTasks implements the entry/exit notification hooks that fire
// whenever a transition crosses into or out of WONT_START, PROBLEM, or
// REMOVED, regardless of which core branch produced the transition. This
// is how the union described by spec §9 Open Question (a) is obtained
// without literally reproducing the source's fallthrough chains: every
// edge that the source's fallthrough would union into WONT_START or
// PROBLEM is, here, just "any transition landing on that substate".
func hookTasks(old, next Substate, c *Counters) []Task {
	var tasks []Task

	if old != SubstateWontStart && next == SubstateWontStart {
		tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventServiceUnavailable})
	}
	if old == SubstateWontStart && next != SubstateWontStart {
		tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventServiceAvailable})
	}

	if old != SubstateProblem && next == SubstateProblem {
		if len(c.ImmediateUnavailableDependencies) > 0 {
			tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventImmediateDependencyUnavailable})
		}
		if c.TransitiveUnavailableDepCount > 0 {
			tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventTransitiveDependencyUnavailable})
		}
		if c.FailCount > 0 {
			tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventDependencyFailure})
		}
		tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventDependencyProblem})
	}
	if old == SubstateProblem && next != SubstateProblem {
		// Every exit from PROBLEM clears all sub-cause notifications,
		// including an exit because UpperCount dropped to 0 while the
		// problem itself persists.
		tasks = append(tasks,
			Task{Kind: TaskNotifyListener, Event: EventImmediateDependencyAvailable},
			Task{Kind: TaskNotifyListener, Event: EventTransitiveDependencyAvailable},
			Task{Kind: TaskNotifyListener, Event: EventDependencyFailureCleared},
			Task{Kind: TaskNotifyListener, Event: EventDependencyProblemClear},
		)
	}

	if next == SubstateRemoved && old != SubstateRemoved {
		tasks = append(tasks, Task{Kind: TaskNotifyListener, Event: EventServiceRemoved})
	}

	return tasks
}
