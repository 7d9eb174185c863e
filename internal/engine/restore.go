package engine

// The functions in this file exist only for pkg/serializer: they rebuild
// engine objects under ids recorded in a previously saved document instead
// of allocating fresh ones from the sequence, and they skip the validation
// a live caller would be subject to (a saved document is assumed to have
// been produced by this same engine). Callers outside pkg/serializer should
// use the normal constructors.

// RestoreMind recreates a Mind under a specific id.
func (r *Registry) RestoreMind(id int64, parent *Mind, label string, temporal, eidosRoot bool) *Mind {
	m := &Mind{ID: id, Parent: parent, Label: label, Temporal: temporal, isEidosRoot: eidosRoot}
	r.registerMind(m)
	return m
}

// RestoreSubject recreates a Subject under a specific id.
func (r *Registry) RestoreSubject(id int64, mater *Mind, label string) *Subject {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Subject{SID: id, Mater: mater, Label: label, resolutions: map[int64]*Belief{}}
	r.subjectByID[id] = s
	if r.beliefBySubject[id] == nil {
		r.beliefBySubject[id] = nil
	}
	if label != "" {
		r.sidByLabel[label] = id
		r.labelBySid[id] = label
	}
	return s
}

// RestoreState recreates a plain/convergence/union state shell under a
// specific id; callers fill in Base/Ground/ComponentStates/UnionComponents
// and insert/remove/resolutionMap afterward via the dedicated setters below.
func (r *Registry) RestoreState(id int64, kind StateKind, mind *Mind, hasTT bool, tt int64, locked bool) *State {
	s := &State{
		ID:            id,
		Kind:          kind,
		InMind:        mind,
		reg:           r,
		HasTT:         hasTT,
		TT:            tt,
		Locked:        locked,
		insert:        map[int64]*Belief{},
		remove:        map[int64]*Belief{},
		revAdd:        map[revKey]map[int64]*Belief{},
		revDel:        map[revKey]map[int64]*Belief{},
		skip:          map[revKey]*State{},
		resolutionMap: map[int64]*State{},
	}
	r.registerState(s)
	mind.states = append(mind.states, s)
	return s
}

// SetInsert adds b to s's own insert set without the locked check
// FromTemplate/Branch enforce on live mutation.
func (s *State) SetInsert(b *Belief) {
	s.insert[b.ID] = b
	for tt, raw := range b.Traits {
		for _, subj := range extractSubjectRefs(raw) {
			s.revAddAdd(subj.SID, tt, b)
		}
	}
}

// SetRemoved marks id as removed directly on s (without requiring the
// belief object, matching how the document records removals by id).
func (s *State) SetRemoved(id int64, b *Belief) {
	s.remove[id] = b
}

// SetResolution restores one convergence resolutionMap entry.
func (s *State) SetResolution(descendantID int64, chosen *State) {
	s.resolutionMap[descendantID] = chosen
}

// RestoreBelief recreates a Belief under a specific id.
func (r *Registry) RestoreBelief(id int64, subject *Subject, origin *State, bases []interface{}, traits map[*Traittype]interface{}, promotable, locked bool) *Belief {
	b := &Belief{
		ID:          id,
		Subject:     subject,
		OriginState: origin,
		Bases:       bases,
		Traits:      traits,
		Promotable:  promotable,
		Locked:      locked,
	}
	r.registerBelief(b)
	return b
}

// SetResolutionRef wires b as the belief-level resolution of target,
// restoring target.Subject.resolutions[b.OriginState.ID] = b.
func SetResolutionRef(b *Belief, target *Belief) {
	b.Resolution = target
	target.Subject.resolutions[b.OriginState.ID] = b
}

// AddPromotion restores one promotion entry on b without bumping the
// global epoch (a loaded document's promotions were already accounted for
// when it was saved).
func AddPromotion(b *Belief, promoted *Belief, certainty *float64) {
	b.Promotions = append(b.Promotions, &Promotion{Belief: promoted, Certainty: certainty})
	b.promotableEpoch++
}
