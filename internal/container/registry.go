// Package container implements the contract surface a caller uses to
// install and query services: a name registry, an installation builder,
// and the shared executor that runs controller tasks off-lock.
package container

import (
	"sort"
	"sync"

	"svccore/internal/controller"
)

// Registry interns service names to their controllers and is the
// container's single source of truth for "what is installed".
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*controller.ServiceController

	shutdown *controller.ShutdownFlag
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*controller.ServiceController),
		shutdown: &controller.ShutdownFlag{},
	}
}

// Get resolves name, returning a *controller.NotFoundError if absent.
func (r *Registry) Get(name string) (*controller.ServiceController, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.byName[name]
	if !ok {
		return nil, &controller.NotFoundError{Name: name}
	}
	return sc, nil
}

// Names returns every installed service name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) register(name string, sc *controller.ServiceController) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return &controller.DuplicateNameError{Name: name}
	}
	r.byName[name] = sc
	return nil
}

// Remove drops name from the registry. It does not itself change the
// controller's mode; callers that want a clean removal should SetMode
// REMOVE first and remove from the registry once it reaches REMOVED.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

// Shutdown flips the registry's shutdown flag, so every controller
// installed through it — past or future, since Builder wires the same
// flag in at Commit time — rejects any further SetMode but REMOVE, then
// drives every currently installed controller to REMOVE. Idempotent:
// calling it again re-requests REMOVE on whatever is still registered, but
// the flag itself only ever flips once.
func (r *Registry) Shutdown() {
	r.shutdown.Set()
	r.mu.RLock()
	controllers := make([]*controller.ServiceController, 0, len(r.byName))
	for _, sc := range r.byName {
		controllers = append(controllers, sc)
	}
	r.mu.RUnlock()

	for _, sc := range controllers {
		_ = sc.SetMode(controller.ModeRemove)
	}
}
