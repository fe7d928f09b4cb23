package controller

import (
	"context"
	"sync"

	"svccore/internal/graph"
	"svccore/internal/optional"
	"svccore/internal/service"
	"svccore/pkg/logging"
)

// Executor runs a unit of work off the calling goroutine. The container
// wires in a shared, bounded worker pool; a ServiceController falls back
// to a bare goroutine if none is configured, so it remains usable on its
// own in tests.
type Executor interface {
	Execute(fn func())
}

// Dependency is the downward-facing contract a controller uses to talk to
// something it depends on. *ServiceController satisfies it directly; so
// does *optional.OptionalDependency, standing in for a real dependency the
// controller doesn't require to be present.
type Dependency interface {
	AddDependent(d graph.Dependent)
	RemoveDependent(d graph.Dependent)
	AddDemand()
	RemoveDemand()
	DependentStarted()
	DependentStopped()
}

// Listener observes lifecycle events for one controller (spec §6/§7).
// Notify must not block and must not call back into the controller that
// invoked it; a Notify that panics is contained and does not affect other
// listeners or the controller.
type Listener interface {
	Notify(event ListenerEvent, serviceName string)
}

// ServiceController drives one named service through its lifecycle under
// a dependency graph. All Counters mutation happens under mu; dependents
// are tracked in a separate graph.Edge lock so that notifying them never
// requires holding mu.
type ServiceController struct {
	name string
	svc  service.Service
	exec Executor

	lifecycleCtx context.Context
	cancel       context.CancelFunc

	mu       sync.Mutex
	counters Counters

	dependencies []Dependency
	parent       *ServiceController

	dependents *graph.Edge

	listenersMu sync.Mutex
	listeners   map[Listener]struct{}

	// shutdownFlag, when wired in by the owning container, makes SetMode
	// reject any mode but REMOVE once the container begins shutting down.
	shutdownFlag *ShutdownFlag

	childrenMu           sync.Mutex
	children             map[string]*ServiceController
	pendingChildRemovals int

	// childFuture resolves to sc's own ChildTarget for whichever Start
	// call is currently in flight. runInvalidateChildren invalidates it
	// before a child-removal cascade, so a child-install call racing
	// against a Start failure or a stop sees an invalidated future
	// instead of reaching a controller that is already on its way out.
	childFutureMu sync.Mutex
	childFuture   *ValueFuture[service.ChildTarget]
}

// New constructs a controller for svc, named name, driven by exec (nil
// falls back to per-call goroutines).
func New(name string, svc service.Service, exec Executor) *ServiceController {
	ctx, cancel := context.WithCancel(context.Background())
	sc := &ServiceController{
		name:         name,
		svc:          svc,
		exec:         exec,
		lifecycleCtx: ctx,
		cancel:       cancel,
		counters:     newCounters(),
		dependents:   graph.NewEdge(),
		listeners:    make(map[Listener]struct{}),
		children:     make(map[string]*ServiceController),
	}

	// Kick the automaton out of NEW immediately. Safe to do before the
	// caller has wired dependencies/parent/listeners: with Mode still
	// NEVER the controller can only settle into WONT_START, and every
	// later AddDependency/SetParent/SetMode call re-pumps from there.
	sc.mu.Lock()
	sc.pump()
	sc.mu.Unlock()
	return sc
}

func (sc *ServiceController) Name() string { return sc.name }

// Snapshot returns a copy of the current counters for status reporting.
// ImmediateUnavailableDependencies is copied so callers cannot mutate
// internal state.
func (sc *ServiceController) Snapshot() Counters {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	cp := sc.counters
	cp.ImmediateUnavailableDependencies = make(map[string]struct{}, len(sc.counters.ImmediateUnavailableDependencies))
	for k := range sc.counters.ImmediateUnavailableDependencies {
		cp.ImmediateUnavailableDependencies[k] = struct{}{}
	}
	return cp
}

// AddDependent registers d to receive this controller's forwarded
// notifications, satisfying optional.Dependency for OptionalDependency
// wrapping.
func (sc *ServiceController) AddDependent(d graph.Dependent) {
	sc.dependents.Add(d)
}

// RemoveDependent unregisters d.
func (sc *ServiceController) RemoveDependent(d graph.Dependent) {
	sc.dependents.Remove(d)
}

// AddDependency wires dep as one of sc's immediate dependencies. Install
// time only, before sc is registered anywhere a caller could look it up by
// name — but dep itself may already be live, so dep.dependents.Add(sc) can
// make sc a forwarding target of a concurrently-running dep immediately;
// the DownDependencies seed is taken under sc.mu to stay race-free against
// that.
func (sc *ServiceController) AddDependency(dep *ServiceController) {
	sc.dependencies = append(sc.dependencies, dep)
	dep.dependents.Add(sc)
	down := CoarseState(dep.Snapshot().Substate) != StateUp
	sc.mu.Lock()
	if down {
		sc.counters.DownDependencies++
	}
	sc.mu.Unlock()
}

// AddOptionalDependency wires dep as one of sc's dependencies through an
// optional.OptionalDependency wrapper, which reports dep as up to sc while
// it treats dep as missing, so dep's absence never blocks sc. No
// controller emits the availability notice (ForwardDependencyAvailable)
// that would make the wrapper start forwarding, so dep's up/down and
// start-failure notifications reach sc only after sc withdraws its demand
// while dep has already been seen up, down or failed; until then none of
// them does. Install time only, same discipline as AddDependency.
//
// The wrapper starts out believing dep is missing, so seeding
// DownDependencies follows the same "not up" default every other
// dependency gets; wrapper.AddDependent(sc) then synchronously calls back
// into sc.ImmediateDependencyUp (the wrapper's appears-up-while-missing
// rule), decrementing that seed straight back to its net-zero steady
// state through the same counter-mutation path every other
// ImmediateDependencyUp notification uses.
func (sc *ServiceController) AddOptionalDependency(dep *ServiceController) {
	wrapper := optional.New(dep)
	sc.dependencies = append(sc.dependencies, wrapper)
	sc.mu.Lock()
	sc.counters.DownDependencies++
	sc.mu.Unlock()
	wrapper.AddDependent(sc)
}

// SetParent records parent as sc's parent (spec's DownDependencies includes
// "+1 if this controller has a parent and the parent is not up").
// Install time only, same discipline as AddDependency.
func (sc *ServiceController) SetParent(parent *ServiceController) {
	sc.parent = parent
	parent.dependents.Add(sc)
	down := CoarseState(parent.Snapshot().Substate) != StateUp
	sc.mu.Lock()
	if down {
		sc.counters.DownDependencies++
	}
	sc.mu.Unlock()
}

// AddChild registers a child controller installed from within this
// controller's Start (spec's ChildTarget), satisfying service.ChildTarget.
func (sc *ServiceController) AddChild(name string, svc service.Service) error {
	child := New(name, svc, sc.exec)
	child.SetParent(sc)

	sc.childrenMu.Lock()
	if _, exists := sc.children[name]; exists {
		sc.childrenMu.Unlock()
		return &DuplicateNameError{Name: name}
	}
	sc.children[name] = child
	sc.childrenMu.Unlock()
	return nil
}

// AddListener registers l for notifications. Install time or steady
// state; safe to call concurrently with the controller running. l is told
// LISTENER_ADDED immediately; if the controller has already reached
// REMOVED, the terminal notification is replayed too, so a listener added
// after removal (or re-added during it) still observes the terminal state
// instead of silence.
func (sc *ServiceController) AddListener(l Listener) {
	sc.listenersMu.Lock()
	sc.listeners[l] = struct{}{}
	sc.listenersMu.Unlock()

	sc.mu.Lock()
	removed := sc.counters.Substate == SubstateRemoved
	sc.mu.Unlock()

	// Notified synchronously, ahead of anything pump() is about to queue,
	// so a listener reliably observes LISTENER_ADDED (and, if applicable,
	// the terminal REMOVED replay) before any transition notification.
	sc.safeNotify(l, EventListenerAdded)
	if removed {
		sc.safeNotify(l, EventServiceRemoved)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.pump()
}

func (sc *ServiceController) RemoveListener(l Listener) {
	sc.listenersMu.Lock()
	delete(sc.listeners, l)
	sc.listenersMu.Unlock()

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.pump()
}

func (sc *ServiceController) listenerCountLocked() int {
	sc.listenersMu.Lock()
	defer sc.listenersMu.Unlock()
	return len(sc.listeners)
}

func (sc *ServiceController) listenersSnapshotLocked() []Listener {
	sc.listenersMu.Lock()
	defer sc.listenersMu.Unlock()
	out := make([]Listener, 0, len(sc.listeners))
	for l := range sc.listeners {
		out = append(out, l)
	}
	return out
}

func (sc *ServiceController) childrenSnapshotLocked() []*ServiceController {
	sc.childrenMu.Lock()
	defer sc.childrenMu.Unlock()
	out := make([]*ServiceController, 0, len(sc.children))
	for _, c := range sc.children {
		out = append(out, c)
	}
	return out
}

// SetShutdownFlag wires f in as the switch the owning container flips when
// it begins shutting down. Install time only, same discipline as
// AddDependency.
func (sc *ServiceController) SetShutdownFlag(f *ShutdownFlag) {
	sc.shutdownFlag = f
}

// SetMode applies a user-facing mode change (spec §4.3). Returns
// ErrModeIsTerminal if the controller has already entered REMOVE, or a
// *ShutdownError if the owning container has begun shutting down and mode
// is anything but REMOVE.
func (sc *ServiceController) SetMode(mode Mode) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if mode != ModeRemove && sc.shutdownFlag.IsSet() {
		return &ShutdownError{Name: sc.name}
	}
	res := applyModeChange(&sc.counters, mode)
	if res.err != nil {
		return res.err
	}
	sc.scheduleLocked(res.tasks)
	return nil
}

// Retry clears a captured start failure and re-attempts to start. Returns
// ErrNotInStartFailed if the controller is not currently in START_FAILED.
func (sc *ServiceController) Retry() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.counters.Substate != SubstateStartFailed {
		return errNotInStartFailed
	}
	sc.counters.StartException = nil
	sc.pump()
	return nil
}

// pump re-derives the substate transition table (spec §4.2) until either
// no row fires or the emitted tasks are non-empty, in which case they are
// counted into AsyncTasks and dispatched off-lock. Must be called with mu
// held.
func (sc *ServiceController) pump() {
	for {
		if sc.counters.AsyncTasks != 0 {
			return
		}
		listenersEmpty := sc.listenerCountLocked() == 0
		next, tasks, ok := computeTransition(&sc.counters, listenersEmpty)
		if !ok {
			return
		}
		prev := sc.counters.Substate
		sc.counters.Substate = next

		if next == SubstateRemoved && prev != SubstateRemoved {
			sc.cancel()
			if sc.parent != nil {
				parent := sc.parent
				sc.runAsync(func() { parent.onChildRemoved() })
			}
		}

		if len(tasks) == 0 {
			continue
		}
		sc.counters.AsyncTasks += len(tasks)
		sc.dispatchLocked(tasks)
		if next == SubstateRemoved && prev != SubstateRemoved {
			// dispatchLocked has already snapshotted the listeners for the
			// terminal notification; REMOVED leaves the listener set empty.
			sc.listenersMu.Lock()
			sc.listeners = make(map[Listener]struct{})
			sc.listenersMu.Unlock()
		}
		return
	}
}

// scheduleLocked is pump's entry point for callers that already hold a
// non-empty or empty task list from something other than computeTransition
// (SetMode, AddDemand/RemoveDemand).
func (sc *ServiceController) scheduleLocked(tasks []Task) {
	if len(tasks) == 0 {
		sc.pump()
		return
	}
	sc.counters.AsyncTasks += len(tasks)
	sc.dispatchLocked(tasks)
}

func (sc *ServiceController) runAsync(fn func()) {
	if sc.exec != nil {
		sc.exec.Execute(fn)
		return
	}
	go fn()
}

// dispatchLocked submits tasks to the executor. It snapshots the
// dependents, dependencies, children and listeners each task kind needs
// while mu is still held, so the dispatched goroutines never read those
// sets themselves; forwarding, notification, demand and lifecycle tasks
// take mu only at the end, through finishAsyncTasks.
func (sc *ServiceController) dispatchLocked(tasks []Task) {
	var dependents []graph.Dependent
	var dependencies []Dependency
	var children []*ServiceController
	var listeners []Listener

	for _, t := range tasks {
		switch t.Kind {
		case TaskForwardDependency:
			if dependents == nil {
				dependents = sc.dependents.Snapshot()
			}
		case TaskDemandParents, TaskDependentLifecycle:
			if dependencies == nil {
				dependencies = append([]Dependency(nil), sc.dependencies...)
			}
		case TaskInvalidateChildren:
			if children == nil {
				children = sc.childrenSnapshotLocked()
			}
		case TaskNotifyListener:
			if listeners == nil {
				listeners = sc.listenersSnapshotLocked()
			}
		}
	}
	parent := sc.parent

	for _, t := range tasks {
		t := t
		switch t.Kind {
		case TaskStart:
			sc.runAsync(func() { sc.runStart() })
		case TaskStop:
			sc.runAsync(func() { sc.runStop(t) })
		case TaskNotifyListener:
			sc.runAsync(func() {
				sc.notifyAll(listeners, t.Event)
				sc.finishAsyncTasks(1)
			})
		case TaskForwardDependency:
			sc.runAsync(func() {
				sc.forwardAll(dependents, t.Forward)
				sc.finishAsyncTasks(1)
			})
		case TaskInvalidateChildren:
			sc.runAsync(func() { sc.runInvalidateChildren(children) })
		case TaskDemandParents:
			sc.runAsync(func() {
				sc.runDemandParents(dependencies, parent, t.Demand)
				sc.finishAsyncTasks(1)
			})
		case TaskDependentLifecycle:
			sc.runAsync(func() {
				sc.runDependentLifecycle(dependencies, parent, t.Started)
				sc.finishAsyncTasks(1)
			})
		case TaskChildRemoved:
			// Not produced by computeTransition; handled directly by
			// onChildRemoved instead of routed through dispatch.
		}
	}
}

// finishAsyncTasks decrements AsyncTasks by n and re-enters pump. Called
// by every task's completion, off-lock, never holding mu on entry.
func (sc *ServiceController) finishAsyncTasks(n int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.AsyncTasks -= n
	sc.pump()
}

func (sc *ServiceController) runStart() {
	future := &ValueFuture[service.ChildTarget]{}
	future.Set(sc)
	sc.childFutureMu.Lock()
	sc.childFuture = future
	sc.childFutureMu.Unlock()

	startCtx := service.NewStartContext(sc.lifecycleCtx, futureChildTarget{future}, sc.runAsync)
	err := sc.svc.Start(startCtx)
	if !startCtx.IsAsynchronous() {
		sc.completeStart(err)
		return
	}
	sc.runAsync(func() {
		<-startCtx.Done()
		sc.completeStart(startCtx.Err())
	})
}

func (sc *ServiceController) completeStart(err error) {
	sc.mu.Lock()
	sc.counters.StartException = err
	sc.counters.AsyncTasks--
	sc.pump()
	sc.mu.Unlock()
}

func (sc *ServiceController) runStop(t Task) {
	if t.OnlyUninject {
		// Start never reached completion; there is nothing running to
		// stop, only injected values (out of this package's scope) to
		// reverse.
		sc.finishAsyncTasks(1)
		return
	}
	stopCtx := service.NewStopContext(sc.lifecycleCtx, sc.runAsync)
	sc.svc.Stop(stopCtx)
	if !stopCtx.IsAsynchronous() {
		sc.finishAsyncTasks(1)
		return
	}
	sc.runAsync(func() {
		<-stopCtx.Done()
		sc.finishAsyncTasks(1)
	})
}

func (sc *ServiceController) notifyAll(listeners []Listener, event ListenerEvent) {
	for _, l := range listeners {
		sc.safeNotify(l, event)
	}
}

func (sc *ServiceController) safeNotify(l Listener, event ListenerEvent) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("controller", "%s: listener panicked on %s: %v", sc.name, event, r)
		}
	}()
	l.Notify(event, sc.name)
}

func (sc *ServiceController) forwardAll(dependents []graph.Dependent, kind DependencyForwardKind) {
	for _, d := range dependents {
		switch kind {
		case ForwardDependencyUp:
			d.ImmediateDependencyUp()
		case ForwardDependencyDown:
			d.ImmediateDependencyDown()
		case ForwardDependencyAvailable:
			d.ImmediateDependencyAvailable(sc.name)
		case ForwardDependencyUnavailable:
			d.ImmediateDependencyUnavailable(sc.name)
		case ForwardDependencyFailed:
			d.DependencyFailed()
		case ForwardDependencyRetrying:
			// A retry re-attempts the failed dependency; clear the
			// failure notification so the next genuine failure is not
			// suppressed as a duplicate.
			d.DependencyFailureCleared()
		case ForwardDependencyStopped:
			d.ImmediateDependencyDown()
		}
	}
}

func (sc *ServiceController) runInvalidateChildren(children []*ServiceController) {
	sc.childFutureMu.Lock()
	if sc.childFuture != nil {
		sc.childFuture.Invalidate()
	}
	sc.childFutureMu.Unlock()

	if len(children) > 0 {
		sc.mu.Lock()
		sc.pendingChildRemovals += len(children)
		sc.counters.AsyncTasks++ // placeholder, released by onChildRemoved
		sc.mu.Unlock()
		for _, child := range children {
			_ = child.SetMode(ModeRemove)
		}
	}
	sc.finishAsyncTasks(1)
}

// onChildRemoved is called by a child once it reaches REMOVED. When the
// last outstanding child has reported in, the placeholder token installed
// by runInvalidateChildren is released.
func (sc *ServiceController) onChildRemoved() {
	sc.mu.Lock()
	sc.pendingChildRemovals--
	remaining := sc.pendingChildRemovals
	sc.mu.Unlock()
	if remaining == 0 {
		sc.finishAsyncTasks(1)
	}
}

func (sc *ServiceController) runDemandParents(dependencies []Dependency, parent *ServiceController, demand bool) {
	for _, dep := range dependencies {
		if demand {
			dep.AddDemand()
		} else {
			dep.RemoveDemand()
		}
	}
	if parent != nil {
		if demand {
			parent.AddDemand()
		} else {
			parent.RemoveDemand()
		}
	}
}

// runDependentLifecycle keeps every dependency's runningDependents count in
// sync with whether sc itself is currently up: called with started=true as
// sc enters UP, started=false as it leaves UP again (spec Invariant 4).
func (sc *ServiceController) runDependentLifecycle(dependencies []Dependency, parent *ServiceController, started bool) {
	for _, dep := range dependencies {
		if started {
			dep.DependentStarted()
		} else {
			dep.DependentStopped()
		}
	}
	if parent != nil {
		if started {
			parent.DependentStarted()
		} else {
			parent.DependentStopped()
		}
	}
}

// AddDemand registers one unit of demand from a dependent (direct, or
// forwarded through an optional dependency). RemoveDemand retracts it.
func (sc *ServiceController) AddDemand() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.DemandedByCount++
	sc.scheduleLocked(demandChanged(&sc.counters))
}

func (sc *ServiceController) RemoveDemand() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.counters.DemandedByCount > 0 {
		sc.counters.DemandedByCount--
	}
	sc.scheduleLocked(demandChanged(&sc.counters))
}

// The following methods implement graph.Dependent, letting sc be
// registered against its own dependencies.

func (sc *ServiceController) ImmediateDependencyUp() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.DownDependencies--
	sc.pump()
}

func (sc *ServiceController) ImmediateDependencyDown() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.DownDependencies++
	sc.pump()
}

func (sc *ServiceController) ImmediateDependencyAvailable(depName string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.counters.ImmediateUnavailableDependencies, depName)
	sc.pump()
}

func (sc *ServiceController) ImmediateDependencyUnavailable(depName string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.ImmediateUnavailableDependencies[depName] = struct{}{}
	sc.pump()
}

func (sc *ServiceController) TransitiveDependencyAvailable(depName string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.counters.TransitiveUnavailableDepCount > 0 {
		sc.counters.TransitiveUnavailableDepCount--
	}
	sc.pump()
}

func (sc *ServiceController) TransitiveDependencyUnavailable(depName string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.TransitiveUnavailableDepCount++
	sc.pump()
}

func (sc *ServiceController) DependencyFailed() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.FailCount++
	sc.pump()
}

func (sc *ServiceController) DependencyFailureCleared() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.counters.FailCount > 0 {
		sc.counters.FailCount--
	}
	sc.pump()
}

func (sc *ServiceController) DependentStarted() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.counters.RunningDependents++
}

func (sc *ServiceController) DependentStopped() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.counters.RunningDependents > 0 {
		sc.counters.RunningDependents--
	}
	sc.pump()
}
