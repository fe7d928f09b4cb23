package controller

// TaskKind tags the payload carried by a Task. Tasks are pure data emitted
// by the automaton under the controller lock and executed afterwards, off
// lock, by the container's Executor (spec §2).
type TaskKind int

const (
	// TaskStart invokes Service.Start. DoInjection records whether value
	// injection should run first (always true for the transitions that
	// emit it today, but kept as a field since the source distinguishes
	// injecting vs. non-injecting starts).
	TaskStart TaskKind = iota
	// TaskStop invokes Service.Stop. OnlyUninject, when true, skips
	// calling Service.Stop and only reverses value injection (used on
	// the START_FAILED cleanup path, where Start never completed).
	TaskStop
	// TaskNotifyListener delivers one ListenerEvent to every registered
	// listener.
	TaskNotifyListener
	// TaskForwardDependency invokes one DependencyForwardKind callback on
	// every dependent.
	TaskForwardDependency
	// TaskInvalidateChildren marks the child target invalid and schedules
	// mode=REMOVE on every child, using a placeholder token so the
	// eventual last-child-removed callback can decrement AsyncTasks.
	TaskInvalidateChildren
	// TaskChildRemoved is never emitted: each child reaching REMOVED calls
	// its parent's onChildRemoved directly, and the call that brings the
	// pending count to zero releases the placeholder installed by
	// TaskInvalidateChildren.
	TaskChildRemoved
	// TaskDemandParents invokes addDemand or removeDemand on every
	// outbound dependency edge (and the parent edge, if any).
	TaskDemandParents
	// TaskDependentLifecycle invokes dependentStarted or dependentStopped
	// on every outbound dependency edge (and the parent edge, if any),
	// keeping each dependency's runningDependents count in sync with
	// whether this controller itself is currently up.
	TaskDependentLifecycle
)

// ListenerEvent enumerates the notification methods of Listener (spec
// §4.2/§6).
type ListenerEvent int

const (
	EventListenerAdded ListenerEvent = iota
	EventServiceUnavailable
	EventServiceAvailable
	EventImmediateDependencyUnavailable
	EventImmediateDependencyAvailable
	EventTransitiveDependencyUnavailable
	EventTransitiveDependencyAvailable
	EventDependencyFailure
	EventDependencyFailureCleared
	EventDependencyProblem
	EventDependencyProblemClear
	EventServiceStarting
	EventServiceStarted
	EventServiceStopping
	EventServiceStopped
	EventServiceFailedStopped
	EventServiceRemoved
	EventServiceRemoveRequested
)

func (e ListenerEvent) String() string {
	switch e {
	case EventListenerAdded:
		return "LISTENER_ADDED"
	case EventServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case EventServiceAvailable:
		return "SERVICE_AVAILABLE"
	case EventImmediateDependencyUnavailable:
		return "IMMEDIATE_DEPENDENCY_UNAVAILABLE"
	case EventImmediateDependencyAvailable:
		return "IMMEDIATE_DEPENDENCY_AVAILABLE"
	case EventTransitiveDependencyUnavailable:
		return "TRANSITIVE_DEPENDENCY_UNAVAILABLE"
	case EventTransitiveDependencyAvailable:
		return "TRANSITIVE_DEPENDENCY_AVAILABLE"
	case EventDependencyFailure:
		return "DEPENDENCY_FAILURE"
	case EventDependencyFailureCleared:
		return "DEPENDENCY_FAILURE_CLEARED"
	case EventDependencyProblem:
		return "DEPENDENCY_PROBLEM"
	case EventDependencyProblemClear:
		return "DEPENDENCY_PROBLEM_CLEAR"
	case EventServiceStarting:
		return "SERVICE_STARTING"
	case EventServiceStarted:
		return "SERVICE_STARTED"
	case EventServiceStopping:
		return "SERVICE_STOPPING"
	case EventServiceStopped:
		return "SERVICE_STOPPED"
	case EventServiceFailedStopped:
		return "SERVICE_FAILED_STOPPED"
	case EventServiceRemoved:
		return "SERVICE_REMOVED"
	case EventServiceRemoveRequested:
		return "SERVICE_REMOVE_REQUESTED"
	default:
		return "UNKNOWN"
	}
}

// DependencyForwardKind enumerates the outbound Dependent callbacks a
// controller forwards to its own dependents.
type DependencyForwardKind int

const (
	ForwardDependencyAvailable DependencyForwardKind = iota
	ForwardDependencyUnavailable
	ForwardDependencyFailed
	ForwardDependencyRetrying
	ForwardDependencyStopped
	ForwardDependencyUp
	ForwardDependencyDown
)

// Task is a single unit of off-lock work emitted by a transition or an
// inbound callback. Exactly one of its payload fields is meaningful,
// selected by Kind.
type Task struct {
	Kind TaskKind

	// TaskStart / TaskStop
	DoInjection  bool
	OnlyUninject bool

	// TaskNotifyListener
	Event ListenerEvent

	// TaskForwardDependency
	Forward DependencyForwardKind

	// TaskForwardDependency: not set by any emitter; forwardAll passes the
	// forwarding controller's own name to the name-taking callbacks.
	DependencyName string

	// TaskDemandParents: true calls addDemand on every outbound
	// dependency edge and the parent edge (if any); false calls
	// removeDemand.
	Demand bool

	// TaskDependentLifecycle: true calls dependentStarted on every
	// outbound dependency edge and the parent edge (if any); false calls
	// dependentStopped.
	Started bool
}
