package service

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ProcService runs a child process for the lifetime of the UP substate. It
// starts asynchronously: Start returns immediately after spawning, and the
// process's exit (whether graceful, from Stop, or a crash) is what
// eventually calls Complete or Failed.
type ProcService struct {
	// Command and Args describe the process to run. Dir and Env, if set,
	// are applied to the child process's working directory and
	// environment.
	Command string
	Args    []string
	Dir     string
	Env     []string

	// GracePeriod bounds how long Stop waits after sending SIGTERM before
	// escalating to SIGKILL. Zero means wait indefinitely.
	GracePeriod time.Duration

	mu       sync.Mutex
	cmd      *exec.Cmd
	stopping bool
	exited   chan struct{}
}

func (p *ProcService) Start(ctx *StartContext) error {
	cmd := exec.CommandContext(ctx.Context(), p.Command, p.Args...)
	cmd.Dir = p.Dir
	if len(p.Env) > 0 {
		cmd.Env = p.Env
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("procservice: start %s: %w", p.Command, err)
	}

	exited := make(chan struct{})
	p.mu.Lock()
	p.cmd = cmd
	p.stopping = false
	p.exited = exited
	p.mu.Unlock()

	ctx.Asynchronous()
	ctx.Execute(func() {
		err := cmd.Wait()
		close(exited)

		p.mu.Lock()
		stopping := p.stopping
		p.mu.Unlock()

		if stopping {
			// Stop requested this exit; a non-nil Wait error here (the
			// usual SIGTERM/SIGKILL result) is expected, not a failure.
			ctx.Complete()
			return
		}
		if err != nil {
			ctx.Failed(fmt.Errorf("procservice: %s exited: %w", p.Command, err))
			return
		}
		ctx.Failed(fmt.Errorf("procservice: %s exited unexpectedly", p.Command))
	})
	return nil
}

func (p *ProcService) Stop(ctx *StopContext) {
	p.mu.Lock()
	cmd := p.cmd
	exited := p.exited
	p.stopping = true
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}

	ctx.Asynchronous()
	ctx.Execute(func() {
		_ = cmd.Process.Signal(syscall.SIGTERM)

		if p.GracePeriod > 0 {
			select {
			case <-exited:
			case <-time.After(p.GracePeriod):
				_ = cmd.Process.Kill()
				<-exited
			}
		} else {
			<-exited
		}
		ctx.Complete()
	})
}
