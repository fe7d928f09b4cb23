package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingDependent struct {
	ups, downs int
}

func (d *countingDependent) ImmediateDependencyUp()                   { d.ups++ }
func (d *countingDependent) ImmediateDependencyDown()                 { d.downs++ }
func (d *countingDependent) ImmediateDependencyAvailable(string)      {}
func (d *countingDependent) ImmediateDependencyUnavailable(string)    {}
func (d *countingDependent) TransitiveDependencyAvailable(string)     {}
func (d *countingDependent) TransitiveDependencyUnavailable(string)   {}
func (d *countingDependent) DependencyFailed()                        {}
func (d *countingDependent) DependencyFailureCleared()                {}
func (d *countingDependent) DependentStarted()                        {}
func (d *countingDependent) DependentStopped()                        {}

func TestEdge_AddAndSnapshot(t *testing.T) {
	e := NewEdge()
	a := &countingDependent{}
	b := &countingDependent{}

	e.Add(a)
	e.Add(b)

	assert.Equal(t, 2, e.Len())
	snap := e.Snapshot()
	assert.ElementsMatch(t, []Dependent{a, b}, snap)
}

func TestEdge_Remove(t *testing.T) {
	e := NewEdge()
	a := &countingDependent{}
	e.Add(a)

	e.Remove(a)

	assert.Equal(t, 0, e.Len())
	assert.Empty(t, e.Snapshot())
}

func TestEdge_SnapshotIsIndependentOfLiveSet(t *testing.T) {
	e := NewEdge()
	a := &countingDependent{}
	e.Add(a)

	snap := e.Snapshot()
	e.Remove(a)

	assert.Len(t, snap, 1)
	assert.Equal(t, 0, e.Len())
}
