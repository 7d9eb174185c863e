package engine

// Subject is a stable identity handle. Multiple Belief
// versions share a Subject; the Subject itself never changes once created.
type Subject struct {
	SID   int64
	Mater *Mind // nil => universal, accessible everywhere
	Label string

	// resolutions indexes belief-level resolution: the state id
	// in which a resolver Belief was created maps to that resolver.
	resolutions map[int64]*Belief
}

// AboutRef is the indirection a Belief in one mind needs when referencing
// a Subject owned by another mind: a cross-mind reference goes through the
// universal identity of the external subject rather than a direct pointer.
// Constructing one always succeeds; Belief construction/SetTrait accepts it
// whichever mind owns Target and checks only the trait's archetype
// constraint against Target.
type AboutRef struct {
	Target *Subject
}

// GetOrCreateSubject resolves a Subject by id, allocating a fresh one if
// sid is zero. If sid is non-zero and already registered, the existing
// Subject is returned (mater is NOT overwritten — a mismatch is a fatal
// mater-conflict error, since a particular subject's mater binds once).
func (r *Registry) GetOrCreateSubject(mater *Mind, sid int64) (*Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateSubjectLocked(mater, sid)
}

func (r *Registry) getOrCreateSubjectLocked(mater *Mind, sid int64) (*Subject, error) {
	if sid != 0 {
		if s, ok := r.subjectByID[sid]; ok {
			if !sameMind(s.Mater, mater) {
				return nil, wrapf(ErrMaterConflict, "subject %d already bound to a different mater", sid)
			}
			return s, nil
		}
	}
	id := sid
	if id == 0 {
		id = r.seq.allocate()
	} else {
		r.seq.advancePast(id)
	}
	s := &Subject{SID: id, Mater: mater, resolutions: map[int64]*Belief{}}
	r.subjectByID[id] = s
	r.beliefBySubject[id] = nil
	return s, nil
}

func sameMind(a, b *Mind) bool {
	return a == b
}

// BindLabel associates label with sid. The label space is shared between
// subjects and archetypes.
func (r *Registry) BindLabel(sid int64, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindLabelLocked(sid, label)
}

func (r *Registry) bindLabelLocked(sid int64, label string) error {
	if label == "" {
		return nil
	}
	if existingSid, ok := r.sidByLabel[label]; ok && existingSid != sid {
		return wrapf(ErrLabelCollision, "label %q", label)
	}
	if _, ok := r.archetypeByLabel[label]; ok && sid != 0 {
		return wrapf(ErrLabelCollision, "label %q", label)
	}
	r.sidByLabel[label] = sid
	if sid != 0 {
		r.labelBySid[sid] = label
		if s, ok := r.subjectByID[sid]; ok {
			s.Label = label
		}
	}
	return nil
}

// RevTrait answers "which beliefs, as seen from state, reference this
// subject via traittype tt?"
func (s *Subject) RevTrait(state *State, tt *Traittype) map[int64]*Belief {
	return RevTrait(state, s.SID, tt)
}

// Resolutions returns a snapshot of the belief-level resolutions registered
// against this subject, keyed by the id of the state the resolver appeared in.
func (s *Subject) Resolutions() map[int64]*Belief {
	out := make(map[int64]*Belief, len(s.resolutions))
	for k, v := range s.resolutions {
		out[k] = v
	}
	return out
}
