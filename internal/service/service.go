// Package service defines the contract a unit of installable work
// implements, and the contexts a controller hands it at start and stop.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// now is indirected so tests can substitute a deterministic clock.
var now = time.Now

// Service is driven through its lifecycle by a controller. Start and Stop
// may complete synchronously (return/return-after-signalling), or
// asynchronously by calling Asynchronous() and completing later from a
// goroutine spawned via Execute.
type Service interface {
	Start(ctx *StartContext) error
	Stop(ctx *StopContext)
}

// ChildTarget lets a Start implementation install further services whose
// removal is cascaded when this service leaves UP.
type ChildTarget interface {
	AddChild(name string, svc Service) error
}

// ProtocolViolationError is returned by Complete/Failed when called
// outside the ASYNC protocol state: before Asynchronous() was ever called,
// or a second time after the context has already completed.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("service: protocol violation: %s", e.Reason)
}

// StartContext is passed to Service.Start.
type StartContext struct {
	ctx         context.Context
	child       ChildTarget
	startedAt   time.Time
	executeFunc func(func())

	mu        sync.Mutex
	async     bool
	completed bool
	done      chan struct{}
	failErr   error
}

// NewStartContext constructs a StartContext. execute, if non-nil, routes
// Execute calls through a shared worker pool instead of spawning a bare
// goroutine per call.
func NewStartContext(ctx context.Context, child ChildTarget, execute func(func())) *StartContext {
	return &StartContext{
		ctx:         ctx,
		child:       child,
		startedAt:   now(),
		done:        make(chan struct{}),
		executeFunc: execute,
	}
}

func (c *StartContext) Context() context.Context { return c.ctx }

// Asynchronous tells the caller not to treat Start's return as final; the
// service will call Complete or Failed later.
func (c *StartContext) Asynchronous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.async = true
}

func (c *StartContext) IsAsynchronous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.async
}

// Complete signals a successful asynchronous start. Calling it without a
// prior Asynchronous(), or calling it (or Failed) a second time, returns a
// *ProtocolViolationError instead of panicking.
func (c *StartContext) Complete() error {
	return c.finish(nil)
}

// Failed signals a failed asynchronous start, subject to the same
// protocol guard as Complete.
func (c *StartContext) Failed(err error) error {
	return c.finish(err)
}

func (c *StartContext) finish(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.async {
		return &ProtocolViolationError{Reason: "Complete/Failed called without Asynchronous()"}
	}
	if c.completed {
		return &ProtocolViolationError{Reason: "Complete/Failed called more than once"}
	}
	c.completed = true
	c.failErr = err
	close(c.done)
	return nil
}

func (c *StartContext) Done() <-chan struct{} { return c.done }

func (c *StartContext) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failErr
}

// ChildTarget exposes the facility to install further services scoped to
// this one's lifetime. Nil if this controller has no child-installation
// capability configured.
func (c *StartContext) ChildTarget() ChildTarget { return c.child }

func (c *StartContext) ElapsedTime() time.Duration { return now().Sub(c.startedAt) }

// Execute runs fn on the container's shared worker pool, falling back to a
// bare goroutine if none was wired in.
func (c *StartContext) Execute(fn func()) {
	if c.executeFunc != nil {
		c.executeFunc(fn)
		return
	}
	go fn()
}

// StopContext mirrors StartContext for the stop path.
type StopContext struct {
	ctx         context.Context
	startedAt   time.Time
	executeFunc func(func())

	mu        sync.Mutex
	async     bool
	completed bool
	done      chan struct{}
}

func NewStopContext(ctx context.Context, execute func(func())) *StopContext {
	return &StopContext{ctx: ctx, startedAt: now(), done: make(chan struct{}), executeFunc: execute}
}

func (c *StopContext) Context() context.Context { return c.ctx }

func (c *StopContext) Asynchronous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.async = true
}

func (c *StopContext) IsAsynchronous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.async
}

// Complete signals that an asynchronous stop has finished, subject to the
// same protocol guard as StartContext.Complete.
func (c *StopContext) Complete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.async {
		return &ProtocolViolationError{Reason: "Complete called without Asynchronous()"}
	}
	if c.completed {
		return &ProtocolViolationError{Reason: "Complete called more than once"}
	}
	c.completed = true
	close(c.done)
	return nil
}

func (c *StopContext) Done() <-chan struct{}      { return c.done }
func (c *StopContext) ElapsedTime() time.Duration { return now().Sub(c.startedAt) }
func (c *StopContext) Execute(fn func()) {
	if c.executeFunc != nil {
		c.executeFunc(fn)
		return
	}
	go fn()
}
