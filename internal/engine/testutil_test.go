package engine

import "testing"

// fixture builds a small registry with a two-level archetype hierarchy
// (Entity -> Person, Entity -> Organization) and a handful of traittypes
// covering every BaseKind and every ContainerKind.
type fixture struct {
	reg *Registry

	ttName       *Traittype // scalar string
	ttAge        *Traittype // scalar int64
	ttFriends    *Traittype // composable set of subject refs
	ttTags       *Traittype // composable sequence of strings
	ttEmployer   *Traittype // scalar subject ref, constrained to Organization
	ttBelieves   *Traittype // scalar mind-valued trait

	archEntity *Archetype
	archPerson *Archetype
	archOrg    *Archetype
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := NewRegistry()

	traittypeDefs := []TraittypeDef{
		{Label: "name", Base: BasePrimitive, Container: ContainerScalar},
		{Label: "age", Base: BasePrimitive, Container: ContainerScalar},
		{Label: "friends", Base: BaseSubjectRef, Container: ContainerSet, Composable: true},
		{Label: "tags", Base: BasePrimitive, Container: ContainerSequence, Composable: true},
		{Label: "employer", Base: BaseSubjectRef, Container: ContainerScalar, Constraint: "Organization"},
		{Label: "believes", Base: BaseMind, Container: ContainerScalar},
	}
	archetypeDefs := []ArchetypeDef{
		{Label: "Entity", Slots: []SlotDef{{Traittype: "name"}, {Traittype: "tags"}}},
		{Label: "Person", Bases: []string{"Entity"}, Slots: []SlotDef{
			{Traittype: "age"}, {Traittype: "friends"}, {Traittype: "employer"}, {Traittype: "believes"},
		}},
		{Label: "Organization", Bases: []string{"Entity"}},
	}
	if err := reg.Register(traittypeDefs, archetypeDefs); err != nil {
		t.Fatalf("register: %v", err)
	}

	f := &fixture{reg: reg}
	var ok bool
	f.ttName, ok = reg.TraittypeByLabel("name")
	mustOK(t, ok, "name")
	f.ttAge, ok = reg.TraittypeByLabel("age")
	mustOK(t, ok, "age")
	f.ttFriends, ok = reg.TraittypeByLabel("friends")
	mustOK(t, ok, "friends")
	f.ttTags, ok = reg.TraittypeByLabel("tags")
	mustOK(t, ok, "tags")
	f.ttEmployer, ok = reg.TraittypeByLabel("employer")
	mustOK(t, ok, "employer")
	f.ttBelieves, ok = reg.TraittypeByLabel("believes")
	mustOK(t, ok, "believes")
	f.archEntity, ok = reg.ArchetypeByLabel("Entity")
	mustOK(t, ok, "Entity")
	f.archPerson, ok = reg.ArchetypeByLabel("Person")
	mustOK(t, ok, "Person")
	f.archOrg, ok = reg.ArchetypeByLabel("Organization")
	mustOK(t, ok, "Organization")
	return f
}

func mustOK(t *testing.T, ok bool, what string) {
	t.Helper()
	if !ok {
		t.Fatalf("missing fixture piece %q", what)
	}
}

func mustBelief(t *testing.T) func(*Belief, error) *Belief {
	return func(b *Belief, err error) *Belief {
		t.Helper()
		if err != nil {
			t.Fatalf("belief construction: %v", err)
		}
		return b
	}
}

func mustState(t *testing.T) func(*State, error) *State {
	return func(s *State, err error) *State {
		t.Helper()
		if err != nil {
			t.Fatalf("state construction: %v", err)
		}
		return s
	}
}
