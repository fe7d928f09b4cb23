package controller

import (
	"fmt"
	"sync"

	"svccore/internal/service"
)

// ValueFuture holds a value that may later be invalidated. Get never
// blocks: before Set it returns the zero value with ok=false, and once
// Invalidate has been called it permanently returns the zero value with
// ok=false again, even if Set is called afterwards.
//
// This is the mechanism behind the child-installation capability a Start
// call is handed: the capability must stop resolving the moment its
// controller starts tearing down children, without the service's own
// goroutine ever blocking or panicking on a reference that has gone away.
//
// The zero value is ready to use.
type ValueFuture[T any] struct {
	mu          sync.Mutex
	value       T
	set         bool
	invalidated bool
}

func (f *ValueFuture[T]) Set(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invalidated {
		return
	}
	f.value = v
	f.set = true
}

func (f *ValueFuture[T]) Get() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invalidated || !f.set {
		var zero T
		return zero, false
	}
	return f.value, true
}

func (f *ValueFuture[T]) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = true
	f.set = false
	var zero T
	f.value = zero
}

// futureChildTarget adapts a ValueFuture[service.ChildTarget] to the
// service.ChildTarget interface a Service implementation sees, so a
// child-install call racing with invalidation fails cleanly instead of
// reaching a controller that is already tearing down.
type futureChildTarget struct {
	future *ValueFuture[service.ChildTarget]
}

func (t futureChildTarget) AddChild(name string, svc service.Service) error {
	target, ok := t.future.Get()
	if !ok {
		return fmt.Errorf("controller: child target no longer valid, cannot add %q", name)
	}
	return target.AddChild(name, svc)
}
