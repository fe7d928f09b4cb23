package optional

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svccore/internal/graph"
)

type fakeTarget struct {
	registered graph.Dependent
	demands    int
	started    int
	stopped    int
}

func (f *fakeTarget) AddDependent(d graph.Dependent)    { f.registered = d }
func (f *fakeTarget) RemoveDependent(d graph.Dependent) { f.registered = nil }
func (f *fakeTarget) AddDemand()                        { f.demands++ }
func (f *fakeTarget) RemoveDemand()                     { f.demands-- }
func (f *fakeTarget) DependentStarted()                 { f.started++ }
func (f *fakeTarget) DependentStopped()                 { f.stopped++ }

type recordingDependent struct {
	failed, cleared, started, stopped int
	transitiveUp, transitiveDown      int
	immediateUp, immediateDown        int
}

func (r *recordingDependent) ImmediateDependencyUp()                { r.immediateUp++ }
func (r *recordingDependent) ImmediateDependencyDown()               { r.immediateDown++ }
func (r *recordingDependent) ImmediateDependencyAvailable(string)    {}
func (r *recordingDependent) ImmediateDependencyUnavailable(string)  {}
func (r *recordingDependent) TransitiveDependencyAvailable(string)   { r.transitiveUp++ }
func (r *recordingDependent) TransitiveDependencyUnavailable(string) { r.transitiveDown++ }
func (r *recordingDependent) DependencyFailed()                      { r.failed++ }
func (r *recordingDependent) DependencyFailureCleared()              { r.cleared++ }
func (r *recordingDependent) DependentStarted()                      { r.started++ }
func (r *recordingDependent) DependentStopped()                      { r.stopped++ }

func TestOptionalDependency_AddDependentSeesUpWhileMissing(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}

	o.AddDependent(dependent)

	assert.Equal(t, 1, dependent.immediateUp)
}

func TestOptionalDependency_InstalledSynthesizesDownOnceDependentAdded(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)

	o.ImmediateDependencyAvailable("dep")

	assert.Equal(t, 1, dependent.immediateDown)
}

func TestOptionalDependency_DemandedBeforeInstallSuppressesForwardingBegin(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.AddDemand()

	o.ImmediateDependencyAvailable("dep")

	// Forwarding must not begin while demand is outstanding: no synthetic
	// "down" and no demand propagated to the target.
	assert.Equal(t, 0, dependent.immediateDown)
	assert.Equal(t, 0, target.demands)
}

func TestOptionalDependency_RemoveDemandBeginsForwardingOnceInstalled(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.AddDemand()
	o.ImmediateDependencyAvailable("dep")
	require.Equal(t, 0, dependent.immediateDown)

	o.RemoveDemand()

	assert.Equal(t, 1, dependent.immediateDown)
}

func TestOptionalDependency_FailureForwardsOnceInstalled(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep")

	o.DependencyFailed()

	assert.Equal(t, 1, dependent.failed)
}

func TestOptionalDependency_FailureClearedForwardsOnceInstalled(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep")

	o.DependencyFailed()
	o.DependencyFailureCleared()

	assert.Equal(t, 1, dependent.cleared)
}

func TestOptionalDependency_UpDownForwardedOnceInstalled(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep")

	o.ImmediateDependencyUp()
	o.ImmediateDependencyDown()

	// One up from AddDependent while missing plus the forwarded up; one
	// down synthesized on install plus the forwarded down.
	assert.Equal(t, 2, dependent.immediateUp)
	assert.Equal(t, 2, dependent.immediateDown)
}

func TestOptionalDependency_UninstallReplaysCleanUpToDependent(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep")
	o.DependencyFailed()
	o.TransitiveDependencyUnavailable("transitive")

	o.ImmediateDependencyUnavailable("dep")

	assert.Equal(t, 1, dependent.cleared)
	assert.Equal(t, 1, dependent.transitiveUp)
	// One up from AddDependent while missing plus the uninstall replay.
	assert.Equal(t, 2, dependent.immediateUp)
}

func TestOptionalDependency_UninstallRetractsForwardedDemand(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep")
	o.AddDemand()
	require.Equal(t, 1, target.demands)

	o.ImmediateDependencyUnavailable("dep")

	assert.Equal(t, 0, target.demands)
}

func TestOptionalDependency_TransitiveUnavailableSuppressedUntilInstalled(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)

	o.TransitiveDependencyUnavailable("dep")

	assert.Equal(t, 0, dependent.transitiveDown)
}

func TestOptionalDependency_AddDependentReplaysRememberedTransitiveProblem(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	o.ImmediateDependencyAvailable("dep")
	o.TransitiveDependencyUnavailable("transitive")

	dependent := &recordingDependent{}
	o.AddDependent(dependent)

	assert.Equal(t, 1, dependent.transitiveDown)
}

func TestOptionalDependency_DemandForwardedOnceAlreadyForwarding(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep")

	o.AddDemand()
	assert.Equal(t, 1, target.demands)

	o.RemoveDemand()
	assert.Equal(t, 0, target.demands)
}

func TestOptionalDependency_RemoveUnregisters(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	assert.NotNil(t, target.registered)

	o.Remove()

	assert.Nil(t, target.registered)
}

func TestOptionalDependency_DependentStoppedBalancedAgainstForwardedStart(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	o.ImmediateDependencyAvailable("dep") // begin forwarding

	o.DependentStarted()
	o.DependentStopped()

	assert.Equal(t, 1, target.started)
	assert.Equal(t, 1, target.stopped)
}

func TestOptionalDependency_DependentStoppedSuppressedWithoutMatchingStart(t *testing.T) {
	target := &fakeTarget{}
	o := New(target)
	dependent := &recordingDependent{}
	o.AddDependent(dependent)
	// Not forwarding yet: DependentStarted is not propagated.

	o.DependentStarted()
	o.ImmediateDependencyAvailable("dep") // forwarding begins mid-flight
	o.DependentStopped()

	assert.Equal(t, 0, target.started)
	assert.Equal(t, 0, target.stopped)
}
