package engine

// RevTrait answers "which beliefs, as seen from state, reference subject sid
// via traittype tt in their own directly-set traits?". It walks
// the state chain backward via revBase, applying the closest (nearest to
// state) add/delete entry for each belief id and ignoring anything further
// back once a belief id has been settled one way or the other.
//
// Known gap: a reference a belief only carries by inheriting a base's
// trait, never set directly in its own Traits map, never lands in revAdd,
// so this can under-report such beliefs. This deliberately does not
// eagerly materialize inherited contributions or walk the forward
// inheritance chain during the reverse query; it documents the limitation
// rather than papering over it.
func RevTrait(state *State, sid int64, tt *Traittype) map[int64]*Belief {
	key := revKey{sid: sid, tt: tt}
	settled := map[int64]bool{}
	result := map[int64]*Belief{}
	visited := map[int64]bool{}
	queue := []*State{state}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s == nil || visited[s.ID] {
			continue
		}
		visited[s.ID] = true

		for id := range s.revDel[key] {
			if !settled[id] {
				settled[id] = true
			}
		}
		for id, b := range s.revAdd[key] {
			if !settled[id] {
				settled[id] = true
				result[id] = b
			}
		}

		queue = append(queue, revBase(s, key)...)
	}
	return result
}

// revBase computes the polymorphic "next states to visit": a plain
// state yields its skip-or-base predecessor, a union or convergence state
// yields the concatenation of every component's own revBase.
func revBase(s *State, key revKey) []*State {
	switch s.Kind {
	case StateKindPlain:
		if next := revNext(s, key); next != nil {
			return []*State{next}
		}
		return nil
	case StateKindUnion:
		var out []*State
		for _, c := range s.UnionComponents {
			out = append(out, revBase(c, key)...)
		}
		return out
	case StateKindConvergence:
		var out []*State
		for _, c := range s.ComponentStates {
			out = append(out, revBase(c, key)...)
		}
		return out
	}
	return nil
}

// revNext resolves and lazily caches the skip pointer for (s, key): the
// nearest strict ancestor of s that itself recorded an add or delete for
// key, or nil if none does. Since the state chain is append-only, a skip
// pointer once computed never needs invalidation.
func revNext(s *State, key revKey) *State {
	if sk, ok := s.skip[key]; ok {
		return sk
	}
	parent := s.Base
	if parent == nil {
		return nil
	}
	var next *State
	if hasRevChange(parent, key) {
		next = parent
	} else {
		next = revNext(parent, key)
	}
	s.skip[key] = next
	return next
}

func hasRevChange(s *State, key revKey) bool {
	return len(s.revAdd[key]) > 0 || len(s.revDel[key]) > 0
}
