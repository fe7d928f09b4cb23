package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svccore/internal/controller"
	"svccore/internal/service"
)

func noopService() *service.FuncService { return &service.FuncService{} }

func TestRegistry_GetUnknownReturnsNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("missing")

	require.Error(t, err)
	assert.True(t, controller.IsNotFound(err))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	sc := controller.New("a", noopService(), nil)

	require.NoError(t, r.register("a", sc))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, sc, got)
}

func TestRegistry_DuplicateRegisterFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.register("a", controller.New("a", noopService(), nil)))

	err := r.register("a", controller.New("a", noopService(), nil))

	require.Error(t, err)
	assert.True(t, controller.IsDuplicateName(err))
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.register("zebra", controller.New("zebra", noopService(), nil)))
	require.NoError(t, r.register("apple", controller.New("apple", noopService(), nil)))

	assert.Equal(t, []string{"apple", "zebra"}, r.Names())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.register("a", controller.New("a", noopService(), nil)))

	r.Remove("a")

	_, err := r.Get("a")
	assert.True(t, controller.IsNotFound(err))
}

func TestRegistry_ShutdownRejectsFurtherModeChanges(t *testing.T) {
	r := NewRegistry()
	exec := NewExecutor(4)
	sc, err := StartInstallation(r, exec, "a", noopService()).Commit()
	require.NoError(t, err)

	r.Shutdown()

	err = sc.SetMode(controller.ModeActive)
	require.Error(t, err)
	assert.True(t, controller.IsShutdown(err))
}

func TestRegistry_ShutdownDrivesInstalledControllersToRemove(t *testing.T) {
	r := NewRegistry()
	exec := NewExecutor(4)
	sc, err := StartInstallation(r, exec, "a", noopService()).
		SetInitialMode(controller.ModeActive).
		Commit()
	require.NoError(t, err)
	waitForSubstate(t, sc, controller.SubstateUp)

	r.Shutdown()

	waitForSubstate(t, sc, controller.SubstateRemoved)
}

func TestRegistry_ShutdownStillAcceptsRemoveModeAfterward(t *testing.T) {
	r := NewRegistry()
	exec := NewExecutor(4)
	sc, err := StartInstallation(r, exec, "a", noopService()).Commit()
	require.NoError(t, err)

	r.Shutdown()

	assert.NoError(t, sc.SetMode(controller.ModeRemove))
}
