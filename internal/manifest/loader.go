package manifest

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"svccore/internal/container"
	"svccore/internal/controller"
	"svccore/internal/service"
)

// Render expands raw as a text/template using sprig's function map with
// vars as the template context, then parses the result as a Manifest.
func Render(raw []byte, vars map[string]any) (*Manifest, error) {
	tmpl, err := template.New("manifest").Funcs(sprig.TxtFuncMap()).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("manifest: parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("manifest: render template: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, fmt.Errorf("manifest: parse yaml: %w", err)
	}
	return &m, nil
}

func parseMode(s string) (controller.Mode, error) {
	switch s {
	case "", "ACTIVE":
		return controller.ModeActive, nil
	case "NEVER":
		return controller.ModeNever, nil
	case "ON_DEMAND":
		return controller.ModeOnDemand, nil
	case "PASSIVE":
		return controller.ModePassive, nil
	case "REMOVE":
		return controller.ModeRemove, nil
	default:
		return 0, fmt.Errorf("manifest: unknown mode %q", s)
	}
}

// Install commits every ServiceSpec in m into r, driven by exec, in
// declaration order. A spec's dependencies and parent must already be
// installed (declared earlier in the manifest, or pre-existing in r),
// since Builder.Commit resolves names immediately.
func Install(m *Manifest, r *container.Registry, exec *container.Executor) ([]*controller.ServiceController, error) {
	installed := make([]*controller.ServiceController, 0, len(m.Services))
	for _, spec := range m.Services {
		mode, err := parseMode(spec.Mode)
		if err != nil {
			return installed, err
		}

		var grace time.Duration
		if spec.GracePeriod != "" {
			grace, err = time.ParseDuration(spec.GracePeriod)
			if err != nil {
				return installed, fmt.Errorf("manifest: service %q: %w", spec.Name, err)
			}
		}

		svc := &service.ProcService{
			Command:     spec.Command,
			Args:        spec.Args,
			Dir:         spec.Dir,
			Env:         envSlice(spec.Env),
			GracePeriod: grace,
		}

		b := container.StartInstallation(r, exec, spec.Name, svc).SetInitialMode(mode)
		for _, dep := range spec.Dependencies {
			b.AddDependency(dep)
		}
		for _, dep := range spec.OptionalDependencies {
			b.AddOptionalDependency(dep)
		}
		if spec.Parent != "" {
			b.SetParent(spec.Parent)
		}

		sc, err := b.Commit()
		if err != nil {
			return installed, fmt.Errorf("manifest: service %q: %w", spec.Name, err)
		}
		installed = append(installed, sc)
	}
	return installed, nil
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
