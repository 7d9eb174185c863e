package serializer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/aigan/internal/engine"
	"github.com/kittclouds/aigan/pkg/uncertain"
)

func TestSaveMindThenLoadRoundTripsSchemaAndBeliefs(t *testing.T) {
	eng := engine.New()
	reg := eng.Registry

	err := eng.Register(
		[]engine.TraittypeDef{
			{Label: "name", Base: engine.BasePrimitive, Container: engine.ContainerScalar},
			{Label: "damage", Base: engine.BasePrimitive, Container: engine.ContainerScalar},
		},
		[]engine.ArchetypeDef{
			{Label: "Tool", Slots: []engine.SlotDef{{Traittype: "name"}, {Traittype: "damage"}}},
		},
	)
	require.NoError(t, err)
	toolArch, ok := reg.ArchetypeByLabel("Tool")
	require.True(t, ok)

	mind := eng.NewMind(eng.Logos, "armory", false)
	state, err := reg.CreateState(mind, nil, 0, false)
	require.NoError(t, err)

	nameTT, _ := reg.TraittypeByLabel("name")
	damageTT, _ := reg.TraittypeByLabel("damage")
	generic, err := engine.FromTemplate(reg, state, engine.Template{
		Bases: []interface{}{toolArch},
		Label: "genericSword",
		Traits: map[*engine.Traittype]interface{}{
			nameTT:   "sword",
			damageTT: int64(5),
		},
	})
	require.NoError(t, err)
	state.Lock()

	state2, err := state.Branch(reg, nil, 0, false)
	require.NoError(t, err)
	override, err := generic.Branch(reg, state2, map[*engine.Traittype]interface{}{damageTT: int64(9)}, engine.VersionOptions{})
	require.NoError(t, err)
	require.NoError(t, reg.BindLabel(override.Subject.SID, "playerSword"))
	state2.Lock()

	data, err := SaveMind(nil, reg, eng.Logos)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	loadedReg := engine.NewRegistry()
	loadedRoot, err := Load(nil, loadedReg, data)
	require.NoError(t, err)
	require.Equal(t, eng.Logos.ID, loadedRoot.ID)

	loadedArmory, ok := loadedReg.MindByID(mind.ID)
	require.True(t, ok)
	require.Equal(t, mind.Label, loadedArmory.Label)
	require.Equal(t, eng.Logos.ID, loadedArmory.Parent.ID)

	loadedState, ok := loadedReg.StateByID(state.ID)
	require.True(t, ok)
	require.True(t, loadedState.Locked)
	loadedState2, ok := loadedReg.StateByID(state2.ID)
	require.True(t, ok)
	require.True(t, loadedState2.Locked)

	loadedGeneric, ok := engine.GetBeliefByLabel(loadedReg, loadedState, "genericSword")
	require.True(t, ok)
	name, err := engine.GetTrait(loadedGeneric, loadedState, nameTrait(t, loadedReg))
	require.NoError(t, err)
	require.Equal(t, uncertain.Known("sword"), name)

	loadedOverride, ok := engine.GetBeliefByLabel(loadedReg, loadedState2, "playerSword")
	require.True(t, ok)
	damageTTLoaded := damageTrait(t, loadedReg)
	damage, err := engine.GetTrait(loadedOverride, loadedState2, damageTTLoaded)
	require.NoError(t, err)
	require.Equal(t, uncertain.Known(int64(9)), damage)

	inheritedName, err := engine.GetTrait(loadedOverride, loadedState2, nameTrait(t, loadedReg))
	require.NoError(t, err)
	require.Equal(t, uncertain.Known("sword"), inheritedName)
}

func nameTrait(t *testing.T, reg *engine.Registry) *engine.Traittype {
	t.Helper()
	tt, ok := reg.TraittypeByLabel("name")
	require.True(t, ok)
	return tt
}

func damageTrait(t *testing.T, reg *engine.Registry) *engine.Traittype {
	t.Helper()
	tt, ok := reg.TraittypeByLabel("damage")
	require.True(t, ok)
	return tt
}
