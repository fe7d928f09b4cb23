// Package manifest loads a YAML description of services into a
// container.Registry, expanding it as a text template first so a manifest
// can reference variables supplied at load time.
package manifest

// Manifest is the on-disk YAML description of a set of services to
// install into a container.
type Manifest struct {
	Services []ServiceSpec `yaml:"services"`
}

// ServiceSpec describes one process-backed service and its place in the
// dependency graph.
type ServiceSpec struct {
	Name         string            `yaml:"name"`
	Command      string            `yaml:"command,omitempty"`
	Args         []string          `yaml:"args,omitempty"`
	Dir          string            `yaml:"dir,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Dependencies []string          `yaml:"dependencies,omitempty"`
	// OptionalDependencies name dependencies whose absence never blocks
	// this service. See container.Builder.AddOptionalDependency for when
	// their notifications reach it.
	OptionalDependencies []string `yaml:"optionalDependencies,omitempty"`
	Parent               string   `yaml:"parent,omitempty"`
	// Mode is one of NEVER, ON_DEMAND, PASSIVE, ACTIVE, REMOVE. Empty
	// defaults to ACTIVE.
	Mode        string `yaml:"mode,omitempty"`
	GracePeriod string `yaml:"gracePeriod,omitempty"`
}
