package engine

// BaseKind names the primitive shape a Traittype's values take.
type BaseKind int

const (
	BasePrimitive BaseKind = iota // string, bool, int64, float64
	BaseSubjectRef
	BaseMind
)

// ContainerKind is the per-Traittype container discipline.
type ContainerKind int

const (
	ContainerScalar ContainerKind = iota
	ContainerSequence
	ContainerSet
)

// Traittype declares a named slot. Identity is referential: two Traittypes
// with the same label are never equal unless they are the same pointer.
type Traittype struct {
	Label      string
	Base       BaseKind
	Constraint *Archetype // required archetype for BaseSubjectRef slots; nil = unconstrained
	Container  ContainerKind
	Composable bool
}

// Archetype is a typing template registered at startup.
type Archetype struct {
	Label string
	Bases []*Archetype // ordered

	// slots is the transitive, de-duplicated set of traittype slots this
	// archetype and its bases permit.
	slots map[*Traittype]bool
	// defaults holds default values declared directly on this archetype
	// (including default Subject-valued traits, stored as raw values the
	// same shape trait storage uses).
	defaults map[*Traittype]interface{}
}

// HasSlot reports whether tt is a permitted slot for this archetype (transitively).
func (a *Archetype) HasSlot(tt *Traittype) bool {
	return a.slots[tt]
}

// Default returns the archetype's own declared default for tt, if any.
func (a *Archetype) Default(tt *Traittype) (interface{}, bool) {
	v, ok := a.defaults[tt]
	return v, ok
}

// Slots returns a snapshot of the full (transitive) slot set, for
// introspection and serialization.
func (a *Archetype) Slots() map[*Traittype]bool {
	out := make(map[*Traittype]bool, len(a.slots))
	for tt := range a.slots {
		out[tt] = true
	}
	return out
}

// Defaults returns a snapshot of the full (transitive) default map.
func (a *Archetype) Defaults() map[*Traittype]interface{} {
	out := make(map[*Traittype]interface{}, len(a.defaults))
	for tt, v := range a.defaults {
		out[tt] = v
	}
	return out
}

// TraittypeDef is the registration-time declaration for a Traittype.
type TraittypeDef struct {
	Label      string
	Base       BaseKind
	Constraint string // archetype label, only meaningful when Base == BaseSubjectRef
	Container  ContainerKind
	Composable bool
}

// SlotDef declares one permitted slot on an archetype, with an optional default.
type SlotDef struct {
	Traittype string
	Default   interface{}
	HasDefault bool
}

// ArchetypeDef is the registration-time declaration for an Archetype.
type ArchetypeDef struct {
	Label string
	Bases []string
	Slots []SlotDef
}

// Register validates and ingests traittype and archetype declarations.
// Traittypes are resolved first since archetype slots and
// subject-ref constraints reference them by label.
func (r *Registry) Register(traittypeDefs []TraittypeDef, archetypeDefs []ArchetypeDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Pass 1: create bare Traittype objects so forward/self references among
	// archetypes resolve regardless of declaration order.
	newTraittypes := make(map[string]*Traittype, len(traittypeDefs))
	for _, d := range traittypeDefs {
		if _, exists := r.traittypeByLabel[d.Label]; exists {
			continue
		}
		tt := &Traittype{Label: d.Label, Base: d.Base, Container: d.Container, Composable: d.Composable}
		newTraittypes[d.Label] = tt
	}
	// Pass 2: wire subject-ref constraints once all archetypes are known to
	// exist as bare shells (archetypes are created in pass 3 below, so do
	// constraint wiring after pass 3).

	// Pass 3: create bare Archetype shells (so base-name lookups succeed
	// regardless of declaration order), then fill in bases/slots/defaults.
	newArchetypes := make(map[string]*Archetype, len(archetypeDefs))
	for _, d := range archetypeDefs {
		if _, exists := r.archetypeByLabel[d.Label]; exists {
			continue
		}
		newArchetypes[d.Label] = &Archetype{Label: d.Label, slots: map[*Traittype]bool{}, defaults: map[*Traittype]interface{}{}}
	}

	lookupArchetype := func(label string) (*Archetype, bool) {
		if a, ok := newArchetypes[label]; ok {
			return a, true
		}
		a, ok := r.archetypeByLabel[label]
		return a, ok
	}
	lookupTraittype := func(label string) (*Traittype, bool) {
		if tt, ok := newTraittypes[label]; ok {
			return tt, true
		}
		tt, ok := r.traittypeByLabel[label]
		return tt, ok
	}

	// Now wire subject-ref constraints.
	for _, d := range traittypeDefs {
		tt, ok := newTraittypes[d.Label]
		if !ok {
			continue // already registered by a prior call
		}
		if d.Base == BaseSubjectRef && d.Constraint != "" {
			constraint, ok := lookupArchetype(d.Constraint)
			if !ok {
				return wrapf(ErrUnknownArchetype, "traittype %q constraint %q", d.Label, d.Constraint)
			}
			tt.Constraint = constraint
		}
	}

	// Wire archetype bases.
	for _, d := range archetypeDefs {
		a, ok := newArchetypes[d.Label]
		if !ok {
			continue
		}
		for _, baseLabel := range d.Bases {
			base, ok := lookupArchetype(baseLabel)
			if !ok {
				return wrapf(ErrUnknownArchetype, "archetype %q base %q", d.Label, baseLabel)
			}
			a.Bases = append(a.Bases, base)
		}
	}

	if err := detectArchetypeCycles(newArchetypes, lookupArchetype); err != nil {
		return err
	}

	// Fill slots and defaults.
	for _, d := range archetypeDefs {
		a, ok := newArchetypes[d.Label]
		if !ok {
			continue
		}
		for _, s := range d.Slots {
			tt, ok := lookupTraittype(s.Traittype)
			if !ok {
				return wrapf(ErrUnknownTraittype, "archetype %q slot %q", d.Label, s.Traittype)
			}
			a.slots[tt] = true
			if s.HasDefault {
				a.defaults[tt] = s.Default
			}
		}
	}

	// Propagate transitive slot sets now that all bases/slots exist.
	for _, a := range newArchetypes {
		transitiveSlots(a, map[*Archetype]bool{})
	}

	// Commit to the registry, binding each new archetype's label
	// (archetype and subject labels share one space).
	for label, tt := range newTraittypes {
		r.traittypeByLabel[label] = tt
	}
	for label, a := range newArchetypes {
		if err := r.bindLabelLocked(0, label); err != nil {
			return err
		}
		r.archetypeByLabel[label] = a
	}
	return nil
}

// transitiveSlots flattens an archetype's own + all (recursive) base slots
// and defaults into its slots/defaults maps. seen guards against the
// cycle check having already run (defense in depth; Register rejects
// cycles before this is called).
func transitiveSlots(a *Archetype, seen map[*Archetype]bool) {
	if seen[a] {
		return
	}
	seen[a] = true
	for _, base := range a.Bases {
		transitiveSlots(base, seen)
		for tt := range base.slots {
			a.slots[tt] = true
		}
		for tt, v := range base.defaults {
			if _, has := a.defaults[tt]; !has {
				a.defaults[tt] = v
			}
		}
	}
}

func detectArchetypeCycles(fresh map[string]*Archetype, lookup func(string) (*Archetype, bool)) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[*Archetype]int{}
	var visit func(a *Archetype) error
	visit = func(a *Archetype) error {
		switch color[a] {
		case black:
			return nil
		case gray:
			return wrapf(ErrArchetypeCycle, "archetype %q", a.Label)
		}
		color[a] = gray
		for _, base := range a.Bases {
			if err := visit(base); err != nil {
				return err
			}
		}
		color[a] = black
		return nil
	}
	for _, a := range fresh {
		if err := visit(a); err != nil {
			return err
		}
	}
	return nil
}

// GetArchetypes returns, for a Belief's base chain, the de-duplicated
// transitive set of archetypes reachable from it, in first-found-first-yielded
// order.
func (b *Belief) GetArchetypes() []*Archetype {
	var out []*Archetype
	seen := map[*Archetype]bool{}
	var walkArchetype func(a *Archetype)
	walkArchetype = func(a *Archetype) {
		if seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
		for _, base := range a.Bases {
			walkArchetype(base)
		}
	}
	var walkBelief func(belief *Belief)
	visitedBeliefs := map[*Belief]bool{}
	walkBelief = func(belief *Belief) {
		if visitedBeliefs[belief] {
			return
		}
		visitedBeliefs[belief] = true
		for _, base := range belief.Bases {
			switch t := base.(type) {
			case *Archetype:
				walkArchetype(t)
			case *Belief:
				walkBelief(t)
			}
		}
	}
	walkBelief(b)
	return out
}

// GetSlots returns the union of permitted trait slots across every
// archetype reachable from b.
func (b *Belief) GetSlots() map[*Traittype]bool {
	out := map[*Traittype]bool{}
	for _, a := range b.GetArchetypes() {
		for tt := range a.slots {
			out[tt] = true
		}
	}
	return out
}
