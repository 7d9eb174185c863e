package engine

// Unknown is the explicit "trait exists but value not yet observed"
// sentinel a caller may assign to a Subject-valued trait slot.
type unknownSentinel struct{}

var Unknown = unknownSentinel{}

// Promotion is one alternative-future Belief version attached to a
// promotable base.
type Promotion struct {
	Belief    *Belief
	Certainty *float64
}

// Belief is one temporal/branch version of a Subject.
type Belief struct {
	ID          int64
	Subject     *Subject
	OriginState *State
	Bases       []interface{} // *Archetype or *Belief, ordered
	Traits      map[*Traittype]interface{}
	Promotable  bool
	Promotions  []*Promotion
	Resolution  *Belief
	Locked      bool

	cache           map[*Traittype]cacheEntry
	promotableEpoch int64
}

// Template is the input to FromTemplate.
type Template struct {
	Subject    *Subject // nil => allocate a fresh subject
	Bases      []interface{}
	Traits     map[*Traittype]interface{}
	Label      string
	Promotable bool
}

// FromTemplate constructs a Belief. If subject is nil a fresh
// one is allocated, owned by state.InMind (particular) unless state.InMind
// is in eidos and the caller wants a universal subject (pass an explicit
// universal Subject instead — FromTemplate never creates universal
// subjects implicitly, matching "only permitted in eidos" being a property
// of who creates it, not an automatic default).
func FromTemplate(reg *Registry, state *State, tmpl Template) (*Belief, error) {
	if state.Locked {
		return nil, wrapf(ErrStateLocked, "state %d", state.ID)
	}
	subj := tmpl.Subject
	if subj == nil {
		var err error
		subj, err = reg.GetOrCreateSubject(state.InMind, 0)
		if err != nil {
			return nil, err
		}
	}
	b := &Belief{
		ID:          reg.nextID(),
		Subject:     subj,
		OriginState: state,
		Bases:       append([]interface{}(nil), tmpl.Bases...),
		Traits:      map[*Traittype]interface{}{},
		Promotable:  tmpl.Promotable,
	}
	for tt, raw := range tmpl.Traits {
		if err := b.SetTrait(reg, tt, raw); err != nil {
			return nil, err
		}
	}
	if tmpl.Label != "" {
		if err := reg.BindLabel(subj.SID, tmpl.Label); err != nil {
			return nil, err
		}
	}
	reg.registerBelief(b)
	if err := state.insertBelief(b); err != nil {
		return nil, err
	}
	return b, nil
}

// SetTrait validates and records a direct trait value on an unlocked
// belief, maintaining its origin state's reverse index.
func (b *Belief) SetTrait(reg *Registry, tt *Traittype, raw interface{}) error {
	if b.Locked {
		return wrapf(ErrBeliefLocked, "belief %d", b.ID)
	}
	if !b.GetSlots()[tt] {
		return wrapf(ErrSlotViolation, "traittype %q on belief %d", tt.Label, b.ID)
	}
	normalized, err := normalizeTraitValue(reg, b.OriginState.InMind, tt, raw)
	if err != nil {
		return err
	}
	if old, had := b.Traits[tt]; had {
		for _, subj := range extractSubjectRefs(old) {
			b.OriginState.revAddRemove(subj.SID, tt, b)
		}
	}
	b.Traits[tt] = normalized
	for _, subj := range extractSubjectRefs(normalized) {
		b.OriginState.revAddAdd(subj.SID, tt, b)
	}
	return nil
}

// GetDefinedTraits returns only the traits set directly on this version,
// not anything inherited via bases or defaults.
func (b *Belief) GetDefinedTraits() map[*Traittype]interface{} {
	out := make(map[*Traittype]interface{}, len(b.Traits))
	for k, v := range b.Traits {
		out[k] = v
	}
	return out
}

// VersionOptions configures branch/replace.
type VersionOptions struct {
	Promote   bool
	Certainty *float64
	// Resolution, if set, marks the new version as collapsing this
	// belief's uncertainty. Usually the belief being
	// branched/replaced itself.
	Resolution *Belief
}

// Branch creates a new Belief sharing b's subject, with b as its sole base,
// in state. b remains present in state (used for superposition).
func (b *Belief) Branch(reg *Registry, state *State, overrides map[*Traittype]interface{}, opts VersionOptions) (*Belief, error) {
	return b.version(reg, state, overrides, opts, false)
}

// Replace is like Branch but additionally removes b from state.
func (b *Belief) Replace(reg *Registry, state *State, overrides map[*Traittype]interface{}, opts VersionOptions) (*Belief, error) {
	return b.version(reg, state, overrides, opts, true)
}

func (b *Belief) version(reg *Registry, state *State, overrides map[*Traittype]interface{}, opts VersionOptions, remove bool) (*Belief, error) {
	if !b.Locked {
		return nil, wrapf(ErrUnlockedBase, "belief %d", b.ID)
	}
	if state.Locked {
		return nil, wrapf(ErrStateLocked, "state %d", state.ID)
	}
	if opts.Promote && !b.Promotable {
		return nil, wrapf(ErrNotPromotable, "belief %d", b.ID)
	}
	if opts.Promote && !state.InMind.IsInEidos() {
		return nil, wrapf(ErrPromotionOutsideEidos, "mind %d", state.InMind.ID)
	}

	nb := &Belief{
		ID:          reg.nextID(),
		Subject:     b.Subject,
		OriginState: state,
		Bases:       []interface{}{b},
		Traits:      map[*Traittype]interface{}{},
	}
	for tt, raw := range overrides {
		if err := nb.SetTrait(reg, tt, raw); err != nil {
			return nil, err
		}
	}
	reg.registerBelief(nb)

	if opts.Resolution != nil {
		target := opts.Resolution
		if !(target.Subject == b.Subject || isReachableBase(target, b)) {
			return nil, wrapf(ErrUnrelatedResolution, "belief %d vs %d", target.ID, b.ID)
		}
		nb.Resolution = target
		target.Subject.resolutions[state.ID] = nb
	}

	if opts.Promote {
		reg.bumpEpoch()
		b.promotableEpoch++
		b.Promotions = append(b.Promotions, &Promotion{Belief: nb, Certainty: opts.Certainty})
	} else {
		if err := state.insertBelief(nb); err != nil {
			return nil, err
		}
	}
	if remove {
		if err := state.removeBelief(b); err != nil {
			return nil, err
		}
	}
	return nb, nil
}

// isReachableBase reports whether target appears anywhere in start's
// (recursive) belief-base chain.
func isReachableBase(target, start *Belief) bool {
	seen := map[*Belief]bool{}
	var walk func(b *Belief) bool
	walk = func(b *Belief) bool {
		if b == nil || seen[b] {
			return false
		}
		seen[b] = true
		if b == target {
			return true
		}
		for _, base := range b.Bases {
			if bb, ok := base.(*Belief); ok {
				if walk(bb) {
					return true
				}
			}
		}
		return false
	}
	return walk(start)
}

// extractSubjectRefs pulls every *Subject a raw trait value touches,
// whether it is a scalar Subject/AboutRef or a sequence/set of them.
func extractSubjectRefs(raw interface{}) []*Subject {
	switch v := raw.(type) {
	case *Subject:
		return []*Subject{v}
	case AboutRef:
		return []*Subject{v.Target}
	case []interface{}:
		var out []*Subject
		for _, e := range v {
			out = append(out, extractSubjectRefs(e)...)
		}
		return out
	default:
		return nil
	}
}

// normalizeTraitValue validates and normalizes a raw caller-supplied trait
// value against a Traittype's declared shape.
func normalizeTraitValue(reg *Registry, inMind *Mind, tt *Traittype, raw interface{}) (interface{}, error) {
	if tt.Container != ContainerScalar {
		elems, ok := raw.([]interface{})
		if !ok {
			if raw == nil {
				return nil, nil
			}
			elems = []interface{}{raw}
		}
		out := make([]interface{}, 0, len(elems))
		for _, e := range elems {
			v, err := normalizeScalarTraitValue(reg, inMind, tt, e)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return normalizeScalarTraitValue(reg, inMind, tt, raw)
}

func normalizeScalarTraitValue(reg *Registry, inMind *Mind, tt *Traittype, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if _, ok := raw.(unknownSentinel); ok {
		return raw, nil
	}
	if tt.Base != BaseSubjectRef {
		if _, ok := raw.(*Belief); ok {
			return nil, wrapf(ErrBeliefAsSubject, "traittype %q", tt.Label)
		}
		return raw, nil
	}

	var subj *Subject
	switch v := raw.(type) {
	case *Belief:
		return nil, wrapf(ErrBeliefAsSubject, "traittype %q", tt.Label)
	case *Subject:
		subj = v
	case AboutRef:
		if err := checkArchetypeConstraint(reg, tt, v.Target); err != nil {
			return nil, err
		}
		return v, nil
	case string:
		s, ok := reg.SubjectByLabel(v)
		if !ok {
			return nil, wrapf(ErrUnknownTraittype, "label %q", v)
		}
		subj = s
	default:
		return nil, wrapf(ErrWrongArchetype, "unsupported value for subject-valued trait %q", tt.Label)
	}

	if err := checkCrossMind(inMind, subj); err != nil {
		return nil, err
	}
	if err := checkArchetypeConstraint(reg, tt, subj); err != nil {
		return nil, err
	}
	return subj, nil
}

// checkCrossMind enforces that a Belief may reference only Subjects whose
// mater is nil (universal) or equal to inMind.
func checkCrossMind(inMind *Mind, subj *Subject) error {
	if subj.Mater == nil || subj.Mater == inMind {
		return nil
	}
	return wrapf(ErrCrossMindReference, "subject %d owned by mind %d, referenced from mind %d", subj.SID, subj.Mater.ID, inMind.ID)
}

func checkArchetypeConstraint(reg *Registry, tt *Traittype, subj *Subject) error {
	if tt.Constraint == nil {
		return nil
	}
	for _, version := range reg.BeliefsBySubject(subj.SID) {
		for _, a := range version.GetArchetypes() {
			if a == tt.Constraint {
				return nil
			}
		}
	}
	return wrapf(ErrWrongArchetype, "subject %d lacks archetype %q required by %q", subj.SID, tt.Constraint.Label, tt.Label)
}
