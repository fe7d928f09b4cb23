package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"

	"svccore/internal/container"
	"svccore/internal/controller"
	"svccore/internal/manifest"
	"svccore/pkg/logging"
)

// session holds the container state shared by the up/shell commands and
// their REPL-level operations. id identifies the session in audit log
// entries so a sequence of installs/mode changes/removals from one shell
// invocation can be correlated.
type session struct {
	id       string
	registry *container.Registry
	exec     *container.Executor
}

func newSession() *session {
	return &session{
		id:       uuid.NewString(),
		registry: container.NewRegistry(),
		exec:     container.NewExecutor(runtime.GOMAXPROCS(0)),
	}
}

func (s *session) auditID() string { return logging.TruncateSessionID(s.id) }

// loadManifest renders and installs path's services, attaching a logging
// listener to every controller it installs so lifecycle events are
// visible on stderr.
func (s *session) loadManifest(path string, vars map[string]any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := manifest.Render(raw, vars)
	if err != nil {
		return err
	}
	installed, err := manifest.Install(m, s.registry, s.exec)
	for _, sc := range installed {
		sc.AddListener(&logListener{})
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	audit := logging.AuditEvent{
		Action:    "manifest_install",
		Outcome:   outcome,
		SessionID: s.auditID(),
		Target:    path,
		Details:   fmt.Sprintf("%d services installed", len(installed)),
	}
	if err != nil {
		audit.Error = err.Error()
	}
	logging.Audit(audit)

	return err
}

// reapplyManifest re-renders path: services not yet installed are
// installed fresh, and already-installed services have any changed mode
// re-applied. Used by the watch command to pick up edits without
// restarting the process.
func (s *session) reapplyManifest(path string, vars map[string]any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rendered, err := manifest.Render(raw, vars)
	if err != nil {
		return err
	}

	for _, spec := range rendered.Services {
		if sc, err := s.registry.Get(spec.Name); err == nil {
			mode, ok := modeNames[spec.Mode]
			if spec.Mode == "" {
				mode, ok = controller.ModeActive, true
			}
			if ok {
				if setErr := sc.SetMode(mode); setErr != nil && !controller.ErrModeIsTerminal(setErr) {
					return setErr
				}
			}
			continue
		}

		single := &manifest.Manifest{Services: []manifest.ServiceSpec{spec}}
		installed, installErr := manifest.Install(single, s.registry, s.exec)
		for _, sc := range installed {
			sc.AddListener(&logListener{})
		}
		if installErr != nil {
			return installErr
		}
	}
	return nil
}

// logListener is a controller.Listener that reports events through the
// structured logger under the "controller" subsystem.
type logListener struct{}

func (logListener) Notify(event controller.ListenerEvent, name string) {
	logging.Info("controller", "%s: %s", name, event)
}
