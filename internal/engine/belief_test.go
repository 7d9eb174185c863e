package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetTraitRejectsUndeclaredSlot(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	org := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archOrg}}))

	err := org.SetTrait(f.reg, f.ttAge, int64(5))
	require.ErrorIs(t, err, ErrSlotViolation)
}

func TestSetTraitRejectsBeliefAsSubjectValue(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	org := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archOrg}}))
	person := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))

	err := person.SetTrait(f.reg, f.ttEmployer, org.Subject)
	require.NoError(t, err)

	err = person.SetTrait(f.reg, f.ttEmployer, person)
	require.ErrorIs(t, err, ErrBeliefAsSubject)
}

func TestSetTraitEnforcesArchetypeConstraint(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	notAnOrg := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))
	person := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))

	err := person.SetTrait(f.reg, f.ttEmployer, notAnOrg.Subject)
	require.ErrorIs(t, err, ErrWrongArchetype)
}

func TestSetTraitRejectsCrossMindReferenceWithoutAboutRef(t *testing.T) {
	f := newFixture(t)
	m1 := f.reg.NewMind(nil, "m1", false)
	m2 := f.reg.NewMind(nil, "m2", false)
	s1 := mustState(t)(f.reg.CreateState(m1, nil, 0, false))
	s2 := mustState(t)(f.reg.CreateState(m2, nil, 0, false))

	foreignOrg := mustBelief(t)(FromTemplate(f.reg, s2, Template{Bases: []interface{}{f.archOrg}}))
	person := mustBelief(t)(FromTemplate(f.reg, s1, Template{Bases: []interface{}{f.archPerson}}))

	err := person.SetTrait(f.reg, f.ttEmployer, foreignOrg.Subject)
	require.ErrorIs(t, err, ErrCrossMindReference)

	err = person.SetTrait(f.reg, f.ttEmployer, AboutRef{Target: foreignOrg.Subject})
	require.NoError(t, err)
}

func TestBranchRequiresLockedBase(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	person := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))

	_, err := person.Branch(f.reg, state, nil, VersionOptions{})
	require.ErrorIs(t, err, ErrUnlockedBase)

	state.Lock()
	next := mustState(t)(state.Branch(f.reg, nil, 0, false))
	nb, err := person.Branch(f.reg, next, map[*Traittype]interface{}{f.ttAge: int64(30)}, VersionOptions{})
	require.NoError(t, err)
	require.Same(t, person.Subject, nb.Subject)
}

func TestPromotionRequiresPromotableAndEidos(t *testing.T) {
	f := newFixture(t)
	logos := f.reg.NewMind(nil, "logos", false)
	eidos := f.reg.NewEidos(logos, "eidos", false)
	logosState := mustState(t)(f.reg.CreateState(logos, nil, 0, false))
	eidosState := mustState(t)(f.reg.CreateState(eidos, nil, 0, false))

	nonPromotable := mustBelief(t)(FromTemplate(f.reg, logosState, Template{Bases: []interface{}{f.archPerson}}))
	logosState.Lock()
	_, err := nonPromotable.Branch(f.reg, eidosState, nil, VersionOptions{Promote: true})
	require.ErrorIs(t, err, ErrNotPromotable)

	promotable := mustBelief(t)(FromTemplate(f.reg, eidosState, Template{Bases: []interface{}{f.archPerson}, Promotable: true}))
	eidosState.Lock()
	logosState2 := mustState(t)(f.reg.CreateState(logos, nil, 0, false))
	_, err = promotable.Branch(f.reg, logosState2, map[*Traittype]interface{}{f.ttAge: int64(1)}, VersionOptions{Promote: true})
	require.ErrorIs(t, err, ErrPromotionOutsideEidos)

	eidosState2 := mustState(t)(eidosState.Branch(f.reg, nil, 0, false))
	_, err = promotable.Branch(f.reg, eidosState2, map[*Traittype]interface{}{f.ttAge: int64(1)}, VersionOptions{Promote: true})
	require.NoError(t, err)
}

func TestResolutionRejectsUnrelatedBelief(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	alice := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))
	bob := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))
	state.Lock()

	nextState := mustState(t)(state.Branch(f.reg, nil, 0, false))
	_, err := alice.Branch(f.reg, nextState, nil, VersionOptions{Resolution: bob})
	require.ErrorIs(t, err, ErrUnrelatedResolution)

	resolved, err := alice.Branch(f.reg, nextState, nil, VersionOptions{Resolution: alice})
	require.NoError(t, err)
	require.Equal(t, resolved, alice.Subject.Resolutions()[nextState.ID])
}

func TestLockedBeliefRejectsSetTrait(t *testing.T) {
	f := newFixture(t)
	mind := f.reg.NewMind(nil, "m", false)
	state := mustState(t)(f.reg.CreateState(mind, nil, 0, false))
	person := mustBelief(t)(FromTemplate(f.reg, state, Template{Bases: []interface{}{f.archPerson}}))
	state.Lock()

	err := person.SetTrait(f.reg, f.ttAge, int64(1))
	require.ErrorIs(t, err, ErrBeliefLocked)
}
