package controller

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svccore/internal/service"
)

type recordingListener struct {
	mu     sync.Mutex
	events []ListenerEvent
}

func (l *recordingListener) Notify(event ListenerEvent, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) has(event ListenerEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestServiceController_ActiveModeStartsImmediately(t *testing.T) {
	svc := &service.FuncService{}
	sc := New("svc", svc, nil)

	require.NoError(t, sc.SetMode(ModeActive))

	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateUp })
}

func TestServiceController_NeverModeSettlesWontStart(t *testing.T) {
	sc := New("svc", &service.FuncService{}, nil)

	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateWontStart })
}

func TestServiceController_StartFailurePropagatesToStartFailed(t *testing.T) {
	failErr := errors.New("boom")
	svc := &service.FuncService{
		StartFunc: func(ctx *service.StartContext) error { return failErr },
	}
	sc := New("svc", svc, nil)

	require.NoError(t, sc.SetMode(ModeActive))

	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateStartFailed })
}

func TestServiceController_RetryClearsFailureAndRestarts(t *testing.T) {
	var shouldFail int32 = 1
	svc := &service.FuncService{
		StartFunc: func(ctx *service.StartContext) error {
			if shouldFail == 1 {
				shouldFail = 0
				return errors.New("first attempt fails")
			}
			return nil
		},
	}
	sc := New("svc", svc, nil)
	require.NoError(t, sc.SetMode(ModeActive))
	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateStartFailed })

	require.NoError(t, sc.Retry())

	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateUp })
}

func TestServiceController_RetryOutsideStartFailedErrors(t *testing.T) {
	sc := New("svc", &service.FuncService{}, nil)
	require.NoError(t, sc.SetMode(ModeActive))
	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateUp })

	err := sc.Retry()

	require.Error(t, err)
	assert.True(t, ErrNotInStartFailed(err))
}

func TestServiceController_DependencyDownBlocksDependentStart(t *testing.T) {
	base := New("base", &service.FuncService{}, nil) // stays NEVER -> WONT_START
	dependent := New("dependent", &service.FuncService{}, nil)
	dependent.AddDependency(base)

	require.NoError(t, dependent.SetMode(ModeActive))

	time.Sleep(20 * time.Millisecond)
	assert.NotEqual(t, SubstateUp, dependent.Snapshot().Substate)
}

func TestServiceController_DependencyComingUpUnblocksDependent(t *testing.T) {
	base := New("base", &service.FuncService{}, nil)
	dependent := New("dependent", &service.FuncService{}, nil)
	dependent.AddDependency(base)
	require.NoError(t, dependent.SetMode(ModeActive))

	require.NoError(t, base.SetMode(ModeActive))

	waitFor(t, func() bool { return dependent.Snapshot().Substate == SubstateUp })
}

func TestServiceController_OnDemandOnlyStartsWhenDemanded(t *testing.T) {
	sc := New("svc", &service.FuncService{}, nil)
	require.NoError(t, sc.SetMode(ModeOnDemand))

	time.Sleep(20 * time.Millisecond)
	assert.NotEqual(t, SubstateUp, sc.Snapshot().Substate)

	sc.AddDemand()

	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateUp })

	sc.RemoveDemand()

	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateDown })
}

func TestServiceController_ListenerReceivesRemoveRequested(t *testing.T) {
	sc := New("svc", &service.FuncService{}, nil)
	l := &recordingListener{}
	sc.AddListener(l)
	require.NoError(t, sc.SetMode(ModeActive))
	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateUp })

	require.NoError(t, sc.SetMode(ModeRemove))

	waitFor(t, func() bool { return l.has(EventServiceRemoveRequested) })
	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateRemoved })
}

func TestServiceController_ModeChangeAfterRemoveIsTerminal(t *testing.T) {
	sc := New("svc", &service.FuncService{}, nil)
	require.NoError(t, sc.SetMode(ModeRemove))
	waitFor(t, func() bool { return sc.Snapshot().Substate == SubstateRemoved })

	err := sc.SetMode(ModeActive)

	require.Error(t, err)
	assert.True(t, ErrModeIsTerminal(err))
}

func TestServiceController_ChildRemovalCascadesOnParentStop(t *testing.T) {
	parent := New("parent", &service.FuncService{}, nil)
	require.NoError(t, parent.AddChild("child", &service.FuncService{}))
	require.NoError(t, parent.SetMode(ModeActive))
	waitFor(t, func() bool { return parent.Snapshot().Substate == SubstateUp })

	require.NoError(t, parent.SetMode(ModeNever))

	waitFor(t, func() bool { return parent.Snapshot().Substate == SubstateWontStart })
}
