package engine

// LiveBeliefs returns every Belief visible from query: for a plain state,
// the ancestry-walked insert/remove settlement; for a union mind-state, the
// deduplicated (by belief id) union of every component; for a Convergence,
// the timeline-resolved component if query (or an ancestor of query) has a
// registered resolution, otherwise the first-occurrence union
// across components in order.
func LiveBeliefs(query *State) map[int64]*Belief {
	return liveBeliefsFrom(query, query)
}

func liveBeliefsFrom(cur *State, query *State) map[int64]*Belief {
	if cur == nil {
		return nil
	}
	switch cur.Kind {
	case StateKindPlain:
		settled := map[int64]bool{}
		out := map[int64]*Belief{}
		for s := cur; s != nil; {
			for id := range s.remove {
				settled[id] = true
			}
			for id, b := range s.insert {
				if !settled[id] {
					settled[id] = true
					out[id] = b
				}
			}
			if s.Base == nil {
				break
			}
			if s.Base.Kind != StateKindPlain {
				for id, b := range liveBeliefsFrom(s.Base, query) {
					if !settled[id] {
						settled[id] = true
						out[id] = b
					}
				}
				break
			}
			s = s.Base
		}
		return out
	case StateKindConvergence:
		if chosen, ok := cur.resolvedComponent(query); ok {
			return liveBeliefsFrom(chosen, query)
		}
		out := map[int64]*Belief{}
		for _, c := range cur.ComponentStates {
			for id, b := range liveBeliefsFrom(c, query) {
				if _, had := out[id]; !had {
					out[id] = b
				}
			}
		}
		return out
	case StateKindUnion:
		out := map[int64]*Belief{}
		for _, c := range cur.UnionComponents {
			for id, b := range liveBeliefsFrom(c, query) {
				if _, had := out[id]; !had {
					out[id] = b
				}
			}
		}
		return out
	}
	return nil
}

// GetBeliefBySubject resolves the belief version visible for sid at query,
// first-wins per the same component order LiveBeliefs uses.
func GetBeliefBySubject(query *State, sid int64) (*Belief, bool) {
	return getBeliefBySubjectFrom(query, query, sid)
}

func getBeliefBySubjectFrom(cur, query *State, sid int64) (*Belief, bool) {
	if cur == nil {
		return nil, false
	}
	switch cur.Kind {
	case StateKindPlain:
		settled := map[int64]bool{}
		for s := cur; s != nil; {
			for id := range s.remove {
				settled[id] = true
			}
			for id, b := range s.insert {
				if settled[id] {
					continue
				}
				settled[id] = true
				if b.Subject.SID == sid {
					return b, true
				}
			}
			if s.Base == nil {
				return nil, false
			}
			if s.Base.Kind != StateKindPlain {
				return getBeliefBySubjectFrom(s.Base, query, sid)
			}
			s = s.Base
		}
		return nil, false
	case StateKindConvergence:
		if chosen, ok := cur.resolvedComponent(query); ok {
			return getBeliefBySubjectFrom(chosen, query, sid)
		}
		for _, c := range cur.ComponentStates {
			if b, ok := getBeliefBySubjectFrom(c, query, sid); ok {
				return b, true
			}
		}
		return nil, false
	case StateKindUnion:
		for _, c := range cur.UnionComponents {
			if b, ok := getBeliefBySubjectFrom(c, query, sid); ok {
				return b, true
			}
		}
		return nil, false
	}
	return nil, false
}

// GetBeliefByLabel resolves a labeled subject's visible belief at query.
func GetBeliefByLabel(reg *Registry, query *State, label string) (*Belief, bool) {
	subj, ok := reg.SubjectByLabel(label)
	if !ok {
		return nil, false
	}
	return GetBeliefBySubject(query, subj.SID)
}

// GetTraits resolves every trait slot permitted on b.
func GetTraits(belief *Belief, state *State) map[*Traittype]Result {
	out := make(map[*Traittype]Result, len(belief.GetSlots()))
	for tt := range belief.GetSlots() {
		v, err := GetTrait(belief, state, tt)
		out[tt] = Result{Value: v, Err: err}
	}
	return out
}
