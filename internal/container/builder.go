package container

import (
	"svccore/internal/controller"
	"svccore/internal/service"
)

// Builder stages one service installation — its dependency names, parent,
// listeners, and initial mode — before Commit wires it into a Registry in
// one step. Nothing is registered until every staged dependency name
// resolves, so a failed Commit never leaves a half-wired controller
// reachable by anyone else.
type Builder struct {
	registry *Registry
	exec     *Executor

	name string
	svc  service.Service

	dependencies         []string
	optionalDependencies []string
	parent               string
	mode                 controller.Mode
	listeners            []controller.Listener
}

// StartInstallation begins staging name for installation into r, driven by
// exec. The staged mode is ModeNever until SetInitialMode stages something
// else.
func StartInstallation(r *Registry, exec *Executor, name string, svc service.Service) *Builder {
	return &Builder{registry: r, exec: exec, name: name, svc: svc, mode: controller.ModeNever}
}

// AddDependency stages depName as an immediate dependency, resolved at
// Commit time.
func (b *Builder) AddDependency(depName string) *Builder {
	b.dependencies = append(b.dependencies, depName)
	return b
}

// AddOptionalDependency stages depName as an optional dependency, resolved
// at Commit time and wired through controller.ServiceController's
// AddOptionalDependency: depName's absence never blocks this controller;
// that method's comment says when depName's notifications reach it.
func (b *Builder) AddOptionalDependency(depName string) *Builder {
	b.optionalDependencies = append(b.optionalDependencies, depName)
	return b
}

// SetParent stages parentName as the controller's parent.
func (b *Builder) SetParent(parentName string) *Builder {
	b.parent = parentName
	return b
}

// SetInitialMode stages the mode applied once the controller is
// registered.
func (b *Builder) SetInitialMode(mode controller.Mode) *Builder {
	b.mode = mode
	return b
}

// AddListener stages a listener to be attached during Commit, after the
// controller is registered and wired but before the staged mode is
// applied. It does not observe the controller's initial settle from NEW
// into WONT_START, which happens when the controller is constructed.
func (b *Builder) AddListener(l controller.Listener) *Builder {
	b.listeners = append(b.listeners, l)
	return b
}

// Commit resolves every staged dependency and parent name against the
// registry, registers the controller under its name, wires it, attaches
// the staged listeners, and applies the staged mode.
func (b *Builder) Commit() (*controller.ServiceController, error) {
	if b.mode != controller.ModeNever && b.mode != controller.ModeRemove && b.registry.shutdown.IsSet() {
		return nil, &controller.ShutdownError{Name: b.name}
	}

	deps := make([]*controller.ServiceController, 0, len(b.dependencies))
	for _, name := range b.dependencies {
		dep, err := b.registry.Get(name)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}

	optionalDeps := make([]*controller.ServiceController, 0, len(b.optionalDependencies))
	for _, name := range b.optionalDependencies {
		dep, err := b.registry.Get(name)
		if err != nil {
			return nil, err
		}
		optionalDeps = append(optionalDeps, dep)
	}

	var parent *controller.ServiceController
	if b.parent != "" {
		p, err := b.registry.Get(b.parent)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	sc := controller.New(b.name, b.svc, b.exec)

	// Reserved under the registry's name before any wiring below, so a
	// DuplicateNameError leaves sc completely unwired — not yet added as
	// a dependent of deps/parent, and so not reachable by anything when
	// Commit returns an error.
	if err := b.registry.register(b.name, sc); err != nil {
		return nil, err
	}

	sc.SetShutdownFlag(b.registry.shutdown)
	for _, dep := range deps {
		sc.AddDependency(dep)
	}
	for _, dep := range optionalDeps {
		sc.AddOptionalDependency(dep)
	}
	if parent != nil {
		sc.SetParent(parent)
	}
	for _, l := range b.listeners {
		sc.AddListener(l)
	}

	if b.mode != controller.ModeNever {
		if err := sc.SetMode(b.mode); err != nil {
			return nil, err
		}
	}
	return sc, nil
}
