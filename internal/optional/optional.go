// Package optional implements the optional-dependency wrapper: a
// dependency whose absence never blocks its dependent. Once the wrapper is
// forwarding, the dependency's up/down, transitive-availability and
// failure notifications are passed on to the dependent.
package optional

import (
	"sync"

	"svccore/internal/graph"
)

// innerState is the wrapper's own small state machine, distinct from and
// layered on top of whatever substate the wrapped dependency is actually
// in. Ordering matters: StateFailed and StateUp both compare >=
// StateInstalled, matching every "real dependency is at least installed"
// guard below; only StateMissing does not.
type innerState int

const (
	// StateMissing: the dependency is not currently installed. Always
	// reported as available.
	StateMissing innerState = iota
	// StateInstalled: the dependency exists and has cleared any prior
	// failure, but is not currently up. Still reported as available once
	// forwarding has begun.
	StateInstalled
	// StateFailed: the dependency reported a start failure. This is the
	// one state an optional dependency forwards as a problem.
	StateFailed
	// StateUp: the dependency is immediately up.
	StateUp
)

// Dependency is the minimal surface OptionalDependency needs from the
// thing it wraps; *controller.ServiceController satisfies it.
type Dependency interface {
	AddDependent(d graph.Dependent)
	RemoveDependent(d graph.Dependent)
	AddDemand()
	RemoveDemand()
	DependentStarted()
	DependentStopped()
}

// OptionalDependency sits between a dependent and a real dependency,
// inverting "missing" and "up" into the same "available" signal from the
// dependent's point of view, while still forwarding a genuine failure
// once the dependency actually exists. It implements graph.Dependent
// (toward target) and Dependency (toward its own dependent), so it can be
// substituted wherever a real dependency would otherwise be wired.
type OptionalDependency struct {
	target Dependency

	mu        sync.Mutex
	state     innerState
	dependent graph.Dependent
	removed   bool

	demandedByDependent  bool
	demandForwarded      bool
	forwardNotifications bool

	transitiveUnavailableNotified bool
	transitiveUnavailableName     string

	dependentStartedForwarded bool
}

// New wraps target, registering the wrapper as one of target's dependents
// so it starts receiving notifications immediately. The dependency starts
// out treated as missing; New does not take a dependent — wire one up
// later with AddDependent, which performs the wrapper's install-time
// replay.
func New(target Dependency) *OptionalDependency {
	o := &OptionalDependency{target: target, state: StateMissing}
	target.AddDependent(o)
	return o
}

// Remove unregisters from the wrapped dependency. The wrapper must not be
// used afterwards.
func (o *OptionalDependency) Remove() {
	o.mu.Lock()
	o.removed = true
	o.mu.Unlock()
	o.target.RemoveDependent(o)
}

// AddDependent records d as the dependent this wrapper serves, and
// performs the wrapper's defining replay: if the real dependency is
// already installed, forwarding begins now and whatever non-default state
// it's in is replayed to d; otherwise d is told immediateDependencyUp
// right away, since an optional dependency that doesn't exist yet must
// never appear to block its dependent.
func (o *OptionalDependency) AddDependent(d graph.Dependent) {
	o.mu.Lock()
	o.dependent = d
	forwarding := o.state >= StateInstalled
	o.forwardNotifications = forwarding
	state := o.state
	transUnavailable := o.transitiveUnavailableNotified
	transName := o.transitiveUnavailableName
	o.mu.Unlock()

	if !forwarding {
		d.ImmediateDependencyUp()
		return
	}
	switch state {
	case StateFailed:
		d.DependencyFailed()
	case StateUp:
		d.ImmediateDependencyUp()
	}
	if transUnavailable {
		d.TransitiveDependencyUnavailable(transName)
	}
}

// RemoveDependent unregisters d as this wrapper's dependent.
func (o *OptionalDependency) RemoveDependent(d graph.Dependent) {
	o.mu.Lock()
	if o.dependent == d {
		o.dependent = nil
	}
	o.mu.Unlock()
}

// AddDemand registers demand from the dependent. It is forwarded to the
// wrapped dependency only if the wrapper is already forwarding
// notifications; demand placed against a dependency that isn't installed
// yet is never propagated (the wrapper never causes an absent optional
// dependency to be started on the dependent's behalf).
func (o *OptionalDependency) AddDemand() {
	o.mu.Lock()
	o.demandedByDependent = true
	forwarding := o.forwardNotifications
	if forwarding {
		o.demandForwarded = true
	}
	o.mu.Unlock()
	if forwarding {
		o.target.AddDemand()
	}
}

// RemoveDemand retracts demand registered by AddDemand. If the wrapper
// isn't forwarding yet, releasing demand is the trigger that starts
// forwarding, provided the real dependency is at least installed — the
// wrapper then replays whatever state the dependent missed while demand
// was suppressing it.
func (o *OptionalDependency) RemoveDemand() {
	o.mu.Lock()
	o.demandedByDependent = false
	if o.forwardNotifications {
		wasForwarded := o.demandForwarded
		o.demandForwarded = false
		o.mu.Unlock()
		if wasForwarded {
			o.target.RemoveDemand()
		}
		return
	}
	state := o.state
	removed := o.removed
	o.mu.Unlock()

	if removed || state < StateInstalled {
		return
	}

	o.mu.Lock()
	o.forwardNotifications = true
	dep := o.dependent
	o.mu.Unlock()
	if dep == nil {
		return
	}
	switch state {
	case StateInstalled:
		dep.ImmediateDependencyDown()
	case StateFailed:
		dep.DependencyFailed()
	}
	// StateUp needs no replay: a non-forwarding dependent already believes
	// the dependency is up by default, which already matches reality.
}

// The remaining methods implement graph.Dependent, receiving notifications
// from the wrapped dependency and translating them for the dependent.

func (o *OptionalDependency) ImmediateDependencyUp() {
	o.mu.Lock()
	o.state = StateUp
	forward := o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if forward && dep != nil {
		dep.ImmediateDependencyUp()
	}
}

func (o *OptionalDependency) ImmediateDependencyDown() {
	o.mu.Lock()
	o.state = StateInstalled
	forward := o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if forward && dep != nil {
		dep.ImmediateDependencyDown()
	}
}

// ImmediateDependencyAvailable is the wrapper's immediateDependencyInstalled
// edge: the real dependency now exists. If the dependent hasn't demanded
// it and the wrapper hasn't been removed, forwarding begins immediately,
// and the dependent — which until now believed the dependency was up — is
// told it just went down.
func (o *OptionalDependency) ImmediateDependencyAvailable(name string) {
	o.mu.Lock()
	o.state = StateInstalled
	begin := !o.demandedByDependent && !o.removed && !o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if !begin {
		return
	}
	o.mu.Lock()
	o.forwardNotifications = true
	o.mu.Unlock()
	if dep != nil {
		dep.ImmediateDependencyDown()
	}
}

// ImmediateDependencyUnavailable is the wrapper's immediateDependencyUninstalled
// edge: the real dependency is gone. If the wrapper was forwarding,
// everything it forwarded is unwound — any failure and any remembered
// transitive problem are cleared, the dependent is told the dependency is
// up again (the default, missing-dependency view), forwarding stops, and
// any demand that had been forwarded to the target is retracted.
func (o *OptionalDependency) ImmediateDependencyUnavailable(name string) {
	o.mu.Lock()
	wasForwarding := o.forwardNotifications
	wasFailed := o.state == StateFailed
	transUnavailable := o.transitiveUnavailableNotified
	transName := o.transitiveUnavailableName
	demandForwarded := o.demandForwarded
	o.state = StateMissing
	if wasForwarding {
		o.forwardNotifications = false
		o.demandForwarded = false
		o.transitiveUnavailableNotified = false
	}
	dep := o.dependent
	o.mu.Unlock()

	if !wasForwarding {
		return
	}
	if wasFailed && dep != nil {
		dep.DependencyFailureCleared()
	}
	if transUnavailable && dep != nil {
		dep.TransitiveDependencyAvailable(transName)
	}
	if dep != nil {
		dep.ImmediateDependencyUp()
	}
	if demandForwarded {
		o.target.RemoveDemand()
	}
}

func (o *OptionalDependency) TransitiveDependencyAvailable(name string) {
	o.mu.Lock()
	o.transitiveUnavailableNotified = false
	forward := o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if forward && dep != nil {
		dep.TransitiveDependencyAvailable(name)
	}
}

func (o *OptionalDependency) TransitiveDependencyUnavailable(name string) {
	o.mu.Lock()
	o.transitiveUnavailableNotified = true
	o.transitiveUnavailableName = name
	forward := o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if forward && dep != nil {
		dep.TransitiveDependencyUnavailable(name)
	}
}

func (o *OptionalDependency) DependencyFailed() {
	o.mu.Lock()
	o.state = StateFailed
	forward := o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if forward && dep != nil {
		dep.DependencyFailed()
	}
}

func (o *OptionalDependency) DependencyFailureCleared() {
	o.mu.Lock()
	o.state = StateInstalled
	forward := o.forwardNotifications
	dep := o.dependent
	o.mu.Unlock()
	if forward && dep != nil {
		dep.DependencyFailureCleared()
	}
}

// DependentStarted forwards only while the wrapper is currently
// forwarding, and remembers whether it did so, so the matching
// DependentStopped call can be forwarded (or suppressed) in balance —
// see DependentStopped.
func (o *OptionalDependency) DependentStarted() {
	o.mu.Lock()
	forward := o.forwardNotifications
	if forward {
		o.dependentStartedForwarded = true
	}
	o.mu.Unlock()
	if forward {
		o.target.DependentStarted()
	}
}

// DependentStopped forwards only if the matching DependentStarted call was
// itself forwarded; forwarding may have started or stopped in between (for
// example, a RemoveDemand enabling forwarding mid-flight), and this flag
// is what keeps the target's started/stopped callbacks balanced across
// that race instead of tracking current forwarding state, which may have
// since changed.
func (o *OptionalDependency) DependentStopped() {
	o.mu.Lock()
	forward := o.dependentStartedForwarded
	o.dependentStartedForwarded = false
	o.mu.Unlock()
	if forward {
		o.target.DependentStopped()
	}
}
