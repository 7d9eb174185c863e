package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/kittclouds/aigan/pkg/uncertain"
)

func TestGetTraitOwnValueBeatsBaseAndDefault(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register(nil, []ArchetypeDef{
		{Label: "DefaultedPerson", Bases: []string{"Person"}, Slots: []SlotDef{
			{Traittype: "name", Default: "nobody", HasDefault: true},
		}},
	}))
	defaulted, ok := f.reg.ArchetypeByLabel("DefaultedPerson")
	require.True(t, ok)

	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	base := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{defaulted},
		Traits: map[*Traittype]interface{}{f.ttName: "base-name"},
	}))
	state.Lock()

	next := mustState(t)(state.Branch(f.reg, nil, 0, false))
	override, err := base.Branch(f.reg, next, map[*Traittype]interface{}{f.ttName: "override-name"}, VersionOptions{})
	require.NoError(t, err)
	next.Lock()

	v, err := GetTrait(override, next, f.ttName)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known("override-name"), v)

	v, err = GetTrait(base, state, f.ttName)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known("base-name"), v)
}

func TestGetTraitFallsThroughToArchetypeDefault(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register(nil, []ArchetypeDef{
		{Label: "DefaultedPerson2", Bases: []string{"Person"}, Slots: []SlotDef{
			{Traittype: "name", Default: "anonymous", HasDefault: true},
		}},
	}))
	defaulted, _ := f.reg.ArchetypeByLabel("DefaultedPerson2")

	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	p := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{defaulted}}))
	state.Lock()

	v, err := GetTrait(p, state, f.ttName)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known("anonymous"), v)
}

func TestGetTraitUnsetReturnsNullKnown(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	p := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))
	state.Lock()

	v, err := GetTrait(p, state, f.ttAge)
	require.NoError(t, err)
	require.True(t, v.Tag == uncertain.TagKnown && v.Scalar == nil)
}

func TestGetTraitUnknownSentinelIsDistinctFromUnset(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	p := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{f.archPerson},
		Traits: map[*Traittype]interface{}{f.ttAge: Unknown},
	}))
	state.Lock()

	v, err := GetTrait(p, state, f.ttAge)
	require.NoError(t, err)
	require.True(t, v.IsUnknown())
}

func TestComposableTraitMergesAcrossBases(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	base := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{f.archPerson},
		Traits: map[*Traittype]interface{}{f.ttTags: []interface{}{"a", "b"}},
	}))
	state.Lock()

	next := mustState(t)(state.Branch(f.reg, nil, 0, false))
	derived, err := base.Branch(f.reg, next, map[*Traittype]interface{}{f.ttTags: []interface{}{"b", "c"}}, VersionOptions{})
	require.NoError(t, err)
	next.Lock()

	v, err := GetTrait(derived, next, f.ttTags)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"b", "c", "a"}, v.Scalar)
}

func TestPromotionWithoutCertaintyOverridesBaseValue(t *testing.T) {
	f := newFixture(t)
	logos := f.reg.NewMind(nil, "logos", false)
	eidos := f.reg.NewEidos(logos, "eidos", false)
	s0 := mustState(t)(f.reg.CreateState(eidos, nil, 0, false))
	// b deliberately has no own age value: an uncertain belief's own trait
	// slot stays empty until a promotion is chosen or a resolution fires.
	b := mustBelief(t)(FromTemplate(f.reg, s0, Template{
		Bases:      []interface{}{f.archPerson},
		Promotable: true,
	}))
	s0.Lock()

	s1 := mustState(t)(s0.Branch(f.reg, nil, 0, false))
	_, err := b.Branch(f.reg, s1, map[*Traittype]interface{}{f.ttAge: int64(21)}, VersionOptions{Promote: true})
	require.NoError(t, err)
	s1.Lock()

	v, err := GetTrait(b, s1, f.ttAge)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known(int64(21)), v)

	v, err = GetTrait(b, s0, f.ttAge)
	require.NoError(t, err)
	require.True(t, v.Tag == uncertain.TagKnown && v.Scalar == nil, "promotion rooted past s0 must not be visible from s0 itself")
}

func TestPromotionWithCertaintyProducesUncertainValue(t *testing.T) {
	f := newFixture(t)
	logos := f.reg.NewMind(nil, "logos", false)
	eidos := f.reg.NewEidos(logos, "eidos", false)
	s0 := mustState(t)(f.reg.CreateState(eidos, nil, 0, false))
	b := mustBelief(t)(FromTemplate(f.reg, s0, Template{
		Bases:      []interface{}{f.archPerson},
		Promotable: true,
	}))
	s0.Lock()

	s1 := mustState(t)(s0.Branch(f.reg, nil, 0, false))
	certainty := 0.6
	_, err := b.Branch(f.reg, s1, map[*Traittype]interface{}{f.ttAge: int64(21)}, VersionOptions{Promote: true, Certainty: &certainty})
	require.NoError(t, err)
	s1.Lock()

	v, err := GetTrait(b, s1, f.ttAge)
	require.NoError(t, err)
	require.True(t, v.IsUncertain())
	require.Len(t, v.Alternatives, 1)
	require.Equal(t, int64(21), v.Alternatives[0].Value)
	require.Equal(t, 0.6, v.Alternatives[0].Certainty)
}

func TestBeliefLevelResolutionShortCircuitsNormalResolution(t *testing.T) {
	f := newFixture(t)
	logos := f.reg.NewMind(nil, "logos", false)
	eidos := f.reg.NewEidos(logos, "eidos", false)
	s0 := mustState(t)(f.reg.CreateState(eidos, nil, 0, false))
	b := mustBelief(t)(FromTemplate(f.reg, s0, Template{
		Bases:      []interface{}{f.archPerson},
		Traits:     map[*Traittype]interface{}{f.ttAge: int64(20)},
		Promotable: true,
	}))
	s0.Lock()

	s1 := mustState(t)(s0.Branch(f.reg, nil, 0, false))
	certainty := 0.6
	_, err := b.Branch(f.reg, s1, map[*Traittype]interface{}{f.ttAge: int64(21)}, VersionOptions{Promote: true, Certainty: &certainty})
	require.NoError(t, err)
	s1.Lock()

	s2 := mustState(t)(s1.Branch(f.reg, nil, 0, false))
	_, err = b.Branch(f.reg, s2, map[*Traittype]interface{}{f.ttAge: int64(22)}, VersionOptions{Resolution: b})
	require.NoError(t, err)
	s2.Lock()

	v, err := GetTrait(b, s2, f.ttAge)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known(int64(22)), v, "a registered resolution collapses uncertainty outright")
}

func TestMindTraitUnionsAcrossMultipleContributingBases(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))

	innerA := f.reg.NewMind(nil, "inner-a", false)
	innerAState := mustState(t)(f.reg.CreateState(innerA, nil, 0, false))
	innerB := f.reg.NewMind(nil, "inner-b", false)
	innerBState := mustState(t)(f.reg.CreateState(innerB, nil, 0, false))

	contributorA := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{f.archPerson},
		Traits: map[*Traittype]interface{}{f.ttBelieves: innerAState},
	}))
	contributorB := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{f.archPerson},
		Traits: map[*Traittype]interface{}{f.ttBelieves: innerBState},
	}))
	believer := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases: []interface{}{contributorA, contributorB},
	}))
	state.Lock()

	v, err := GetTrait(believer, state, f.ttBelieves)
	require.NoError(t, err)
	union, ok := v.Scalar.(*State)
	require.True(t, ok, "inheriting a mind-valued trait from two bases must resolve to a union mind-state")
	require.Equal(t, StateKindUnion, union.Kind)
	require.Equal(t, []*State{innerAState, innerBState}, union.UnionComponents)

	// a single contributor still resolves to its own value, not a union.
	v, err = GetTrait(contributorA, state, f.ttBelieves)
	require.NoError(t, err)
	require.Equal(t, innerAState, v.Scalar)
}

func TestCacheIsStableAcrossRepeatedResolution(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	p := mustBelief(t)(FromTemplate(f.reg, state, Template{
		Bases:  []interface{}{f.archPerson},
		Traits: map[*Traittype]interface{}{f.ttAge: int64(5)},
	}))
	state.Lock()

	v1, err := GetTrait(p, state, f.ttAge)
	require.NoError(t, err)
	v2, err := GetTrait(p, state, f.ttAge)
	require.NoError(t, err)
	require.True(t, v1.Equal(v2))
	_, cached := p.cache[f.ttAge]
	require.True(t, cached, "a locked belief's resolved trait should be memoized")
}

func TestCacheInvalidatesOnNewPromotion(t *testing.T) {
	f := newFixture(t)
	logos := f.reg.NewMind(nil, "logos", false)
	eidos := f.reg.NewEidos(logos, "eidos", false)
	s0 := mustState(t)(f.reg.CreateState(eidos, nil, 0, false))
	base := mustBelief(t)(FromTemplate(f.reg, s0, Template{
		Bases:      []interface{}{f.archPerson},
		Promotable: true,
	}))
	s0.Lock()

	next := mustState(t)(s0.Branch(f.reg, nil, 0, false))
	derived, err := base.Branch(f.reg, next, nil, VersionOptions{})
	require.NoError(t, err)
	next.Lock()

	v, err := GetTrait(derived, next, f.ttAge)
	require.NoError(t, err)
	require.True(t, v.Tag == uncertain.TagKnown && v.Scalar == nil, "no promotion visible yet, and no own/default value either")

	after := mustState(t)(next.Branch(f.reg, nil, 0, false))
	_, err = base.Branch(f.reg, after, map[*Traittype]interface{}{f.ttAge: int64(2)}, VersionOptions{Promote: true})
	require.NoError(t, err)
	after.Lock()

	v, err = GetTrait(derived, after, f.ttAge)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known(int64(2)), v, "a new promotion on a dependency must invalidate the cached merge")
}
