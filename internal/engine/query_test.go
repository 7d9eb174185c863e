package engine

import (
	"testing"

	"github.com/kittclouds/aigan/pkg/uncertain"
	"github.com/stretchr/testify/require"
)

func TestGetBeliefByLabelResolvesBoundSubject(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	alice := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}, Label: "alice"}))

	got, ok := GetBeliefByLabel(f.reg, state, "alice")
	require.True(t, ok)
	require.Equal(t, alice, got)

	_, ok = GetBeliefByLabel(f.reg, state, "nobody")
	require.False(t, ok)
}

func TestGetTraitsCoversEveryPermittedSlot(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	person := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{f.archPerson},
		Traits: map[*Traittype]interface{}{f.ttName: "alice", f.ttAge: int64(30)},
	}))
	state.Lock()

	results := GetTraits(person, state)
	require.Contains(t, results, f.ttName)
	require.Contains(t, results, f.ttAge)
	require.Contains(t, results, f.ttFriends)
	require.Contains(t, results, f.ttEmployer)
	require.Contains(t, results, f.ttBelieves)

	require.NoError(t, results[f.ttName].Err)
	require.Equal(t, uncertain.Known("alice"), results[f.ttName].Value)
	require.NoError(t, results[f.ttAge].Err)
	require.Equal(t, uncertain.Known(int64(30)), results[f.ttAge].Value)

	friendsResult := results[f.ttFriends]
	require.NoError(t, friendsResult.Err)
	require.True(t, friendsResult.Value.Tag == uncertain.TagKnown && friendsResult.Value.Scalar == nil, "friends was never set and has no default")
}
