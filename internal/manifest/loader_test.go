package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svccore/internal/container"
	"svccore/internal/controller"
)

func TestRender_SubstitutesVarsAndParsesYAML(t *testing.T) {
	raw := []byte(`
services:
  - name: {{ .name }}
    command: /bin/sh
    args: ["-c", "{{ .cmd | default \"true\" }}"]
    mode: ACTIVE
`)

	m, err := Render(raw, map[string]any{"name": "web", "cmd": "sleep 1"})

	require.NoError(t, err)
	require.Len(t, m.Services, 1)
	assert.Equal(t, "web", m.Services[0].Name)
	assert.Equal(t, []string{"-c", "sleep 1"}, m.Services[0].Args)
}

func TestRender_SprigFunctionsAvailable(t *testing.T) {
	raw := []byte(`
services:
  - name: {{ .name | upper }}
    command: /bin/true
`)

	m, err := Render(raw, map[string]any{"name": "web"})

	require.NoError(t, err)
	assert.Equal(t, "WEB", m.Services[0].Name)
}

func TestRender_InvalidYAMLFails(t *testing.T) {
	raw := []byte("services: [this is not: valid")

	_, err := Render(raw, nil)

	assert.Error(t, err)
}

func TestParseMode_DefaultsToActive(t *testing.T) {
	mode, err := parseMode("")
	require.NoError(t, err)
	assert.Equal(t, controller.ModeActive, mode)
}

func TestParseMode_UnknownFails(t *testing.T) {
	_, err := parseMode("BOGUS")
	assert.Error(t, err)
}

func TestInstall_DeclarationOrderResolvesDependencies(t *testing.T) {
	m := &Manifest{
		Services: []ServiceSpec{
			{Name: "base", Command: "/bin/true", Mode: "NEVER"},
			{Name: "dependent", Command: "/bin/true", Dependencies: []string{"base"}, Mode: "NEVER"},
		},
	}
	r := container.NewRegistry()
	exec := container.NewExecutor(2)

	installed, err := Install(m, r, exec)

	require.NoError(t, err)
	assert.Len(t, installed, 2)
	_, err = r.Get("base")
	require.NoError(t, err)
	_, err = r.Get("dependent")
	require.NoError(t, err)
}

func TestInstall_OptionalDependencyOnDeclaredServiceInstalls(t *testing.T) {
	m := &Manifest{
		Services: []ServiceSpec{
			{Name: "base", Command: "/bin/true", Mode: "NEVER"},
			{Name: "dependent", Command: "/bin/true", OptionalDependencies: []string{"base"}, Mode: "NEVER"},
		},
	}
	r := container.NewRegistry()
	exec := container.NewExecutor(2)

	installed, err := Install(m, r, exec)

	require.NoError(t, err)
	assert.Len(t, installed, 2)
	_, err = r.Get("dependent")
	require.NoError(t, err)
}

func TestInstall_UnknownOptionalDependencyStopsAndReportsPartialResult(t *testing.T) {
	m := &Manifest{
		Services: []ServiceSpec{
			{Name: "dependent", Command: "/bin/true", OptionalDependencies: []string{"missing"}, Mode: "NEVER"},
		},
	}
	r := container.NewRegistry()
	exec := container.NewExecutor(2)

	installed, err := Install(m, r, exec)

	assert.Error(t, err)
	assert.Empty(t, installed)
}

func TestInstall_UnknownDependencyStopsAndReportsPartialResult(t *testing.T) {
	m := &Manifest{
		Services: []ServiceSpec{
			{Name: "dependent", Command: "/bin/true", Dependencies: []string{"missing"}, Mode: "NEVER"},
		},
	}
	r := container.NewRegistry()
	exec := container.NewExecutor(2)

	installed, err := Install(m, r, exec)

	assert.Error(t, err)
	assert.Empty(t, installed)
}

func TestInstall_ParsesGracePeriod(t *testing.T) {
	m := &Manifest{
		Services: []ServiceSpec{
			{Name: "svc", Command: "/bin/true", Mode: "NEVER", GracePeriod: "250ms"},
		},
	}
	r := container.NewRegistry()
	exec := container.NewExecutor(2)

	_, err := Install(m, r, exec)
	require.NoError(t, err)

	sc, err := r.Get("svc")
	require.NoError(t, err)
	assert.NotNil(t, sc)
}

func TestInstall_BadGracePeriodFails(t *testing.T) {
	m := &Manifest{
		Services: []ServiceSpec{
			{Name: "svc", Command: "/bin/true", Mode: "NEVER", GracePeriod: "not-a-duration"},
		},
	}
	r := container.NewRegistry()
	exec := container.NewExecutor(2)

	_, err := Install(m, r, exec)
	assert.Error(t, err)
}
