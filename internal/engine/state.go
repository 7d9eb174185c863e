package engine

// StateKind discriminates the three State specialisations: plain,
// convergence, and union.
type StateKind int

const (
	StateKindPlain StateKind = iota
	StateKindConvergence
	StateKindUnion
)

// revKey is the (Subject, Traittype) pair the reverse index and skip list
// are organized around.
type revKey struct {
	sid int64
	tt  *Traittype
}

// State is a point in a mind's history.
type State struct {
	ID     int64
	Kind   StateKind
	InMind *Mind

	// reg is the owning registry, needed to mint the union mind-state a
	// multi-base BaseMind trait resolves to (trait_resolve.go).
	reg *Registry

	Base   *State // plain state's predecessor; nil for origin states
	Ground *State // ground_state: what the parent mind was reasoning about

	HasTT bool
	TT    int64

	Locked bool

	insert map[int64]*Belief // belief id -> belief, local to this state
	remove map[int64]*Belief

	revAdd map[revKey]map[int64]*Belief
	revDel map[revKey]map[int64]*Belief
	skip   map[revKey]*State

	// resolutionMap: descendant state id -> the sibling branch chosen as
	// "what actually happened" for reads originating at or below it.
	// Only meaningful on Convergence states.
	resolutionMap map[int64]*State

	// ComponentStates is non-empty only for Kind == StateKindConvergence.
	ComponentStates []*State
	// UnionComponents is non-empty only for Kind == StateKindUnion.
	UnionComponents []*State
}

func newBareState(reg *Registry, mind *Mind, kind StateKind) *State {
	s := &State{
		ID:            reg.nextID(),
		Kind:          kind,
		InMind:        mind,
		reg:           reg,
		insert:        map[int64]*Belief{},
		remove:        map[int64]*Belief{},
		revAdd:        map[revKey]map[int64]*Belief{},
		revDel:        map[revKey]map[int64]*Belief{},
		skip:          map[revKey]*State{},
		resolutionMap: map[int64]*State{},
	}
	reg.registerState(s)
	mind.states = append(mind.states, s)
	return s
}

// CreateState creates an origin state (no base) for mind.
func (r *Registry) CreateState(mind *Mind, ground *State, tt int64, hasTT bool) (*State, error) {
	s := newBareState(r, mind, StateKindPlain)
	s.Ground = ground
	if mind.Temporal {
		s.HasTT = hasTT
		s.TT = tt
	}
	return s, nil
}

// Branch creates a new plain state whose base is s. ground, if nil, is
// inherited from s.Ground.
func (s *State) Branch(reg *Registry, ground *State, newTT int64, hasTT bool) (*State, error) {
	if s.InMind.Temporal && hasTT {
		if newTT <= s.TT {
			return nil, wrapf(ErrNonMonotonicTT, "state %d tt=%d base tt=%d", s.ID, newTT, s.TT)
		}
	}
	child := newBareState(reg, s.InMind, StateKindPlain)
	child.Base = s
	if ground != nil {
		child.Ground = ground
	} else {
		child.Ground = s.Ground
	}
	if s.InMind.Temporal {
		child.HasTT = hasTT
		child.TT = newTT
	}
	return child, nil
}

// NewConvergence builds a Convergence state merging the given component
// states.
func (r *Registry) NewConvergence(mind *Mind, components []*State) (*State, error) {
	if len(components) == 0 {
		return nil, wrapf(ErrUnrelatedResolution, "convergence requires at least one component state")
	}
	s := newBareState(r, mind, StateKindConvergence)
	s.ComponentStates = append([]*State(nil), components...)
	s.Ground = components[0].Ground
	return s, nil
}

// NewUnionState builds a Union mind-state whose belief set is the live
// union of the given component mind-states.
func (r *Registry) NewUnionState(mind *Mind, components []*State) *State {
	s := newBareState(r, mind, StateKindUnion)
	s.UnionComponents = append([]*State(nil), components...)
	return s
}

// insertBelief adds b to this state's insert set (must be unlocked).
func (s *State) insertBelief(b *Belief) error {
	if s.Locked {
		return wrapf(ErrStateLocked, "state %d", s.ID)
	}
	s.insert[b.ID] = b
	delete(s.remove, b.ID)
	return nil
}

// removeBelief removes b from this state's live view: it is dropped from
// insert (if present) and added to remove, and every (subject, traittype)
// pair b's own traits directly set is recorded into revDel so a reverse
// lookup from this state onward sees it as gone.
func (s *State) removeBelief(b *Belief) error {
	if s.Locked {
		return wrapf(ErrStateLocked, "state %d", s.ID)
	}
	delete(s.insert, b.ID)
	s.remove[b.ID] = b
	for tt, raw := range b.Traits {
		for _, subj := range extractSubjectRefs(raw) {
			s.revDelAdd(subj.SID, tt, b)
		}
	}
	return nil
}

// InsertedBeliefs returns the beliefs this state itself inserts (not
// inherited from ancestors), for the serializer to walk.
func (s *State) InsertedBeliefs() []*Belief {
	out := make([]*Belief, 0, len(s.insert))
	for _, b := range s.insert {
		out = append(out, b)
	}
	return out
}

// RemovedBeliefIDs returns the ids this state itself removes.
func (s *State) RemovedBeliefIDs() []int64 {
	out := make([]int64, 0, len(s.remove))
	for id := range s.remove {
		out = append(out, id)
	}
	return out
}

// ResolutionEntries returns a snapshot of this convergence's descendant ->
// chosen-component resolution map.
func (s *State) ResolutionEntries() map[int64]int64 {
	out := make(map[int64]int64, len(s.resolutionMap))
	for descendantID, chosen := range s.resolutionMap {
		out[descendantID] = chosen.ID
	}
	return out
}

func (s *State) revAddAdd(sid int64, tt *Traittype, b *Belief) {
	key := revKey{sid: sid, tt: tt}
	if s.revAdd[key] == nil {
		s.revAdd[key] = map[int64]*Belief{}
	}
	s.revAdd[key][b.ID] = b
}

func (s *State) revAddRemove(sid int64, tt *Traittype, b *Belief) {
	key := revKey{sid: sid, tt: tt}
	delete(s.revAdd[key], b.ID)
}

func (s *State) revDelAdd(sid int64, tt *Traittype, b *Belief) {
	key := revKey{sid: sid, tt: tt}
	if s.revDel[key] == nil {
		s.revDel[key] = map[int64]*Belief{}
	}
	s.revDel[key][b.ID] = b
}

// Lock makes s immutable and cascades the lock to every belief it inserts
// and, transitively, their nested mind-valued states. Idempotent.
func (s *State) Lock() {
	if s.Locked {
		return
	}
	s.Locked = true
	for _, b := range s.insert {
		lockBeliefCascade(b)
	}
}

// lockBeliefCascade locks b and, for every mind-valued trait it holds
// directly, locks every reachable nested state. Inherited mind-valued
// traits are not re-cascaded since their bases are already locked.
func lockBeliefCascade(b *Belief) {
	if b.Locked {
		return
	}
	b.Locked = true
	for tt, raw := range b.Traits {
		if tt.Base != BaseMind {
			continue
		}
		if nested, ok := raw.(*State); ok && nested != nil {
			nested.Lock()
		}
		if nestedMind, ok := raw.(*Mind); ok && nestedMind != nil {
			for _, st := range nestedMind.states {
				st.Lock()
			}
		}
	}
}

// RegisterResolution records that, for reads originating at or below
// descendant, this convergence's "what actually happened" is chosen.
// chosen must be a component of this convergence, and this
// convergence must already be locked.
func (s *State) RegisterResolution(descendant *State, chosen *State) error {
	if s.Kind != StateKindConvergence {
		return wrapf(ErrNotComponentState, "state %d is not a convergence", s.ID)
	}
	if !s.Locked {
		return wrapf(ErrConvergenceNotLocked, "convergence state %d", s.ID)
	}
	found := false
	for _, c := range s.ComponentStates {
		if c == chosen {
			found = true
			break
		}
	}
	if !found {
		return wrapf(ErrNotComponentState, "state %d", chosen.ID)
	}
	s.resolutionMap[descendant.ID] = chosen
	return nil
}

// resolvedComponent walks up from query (inclusive) looking for the
// nearest ancestor that is this convergence's descendant-resolution key.
// Returns the chosen branch and true if a timeline resolution applies.
func (s *State) resolvedComponent(query *State) (*State, bool) {
	for cur := query; cur != nil; cur = stateParent(cur) {
		if chosen, ok := s.resolutionMap[cur.ID]; ok {
			return chosen, true
		}
		if cur == s {
			break
		}
	}
	return nil, false
}

// stateParent returns the single logical predecessor of s for ancestry
// walks that are agnostic to plain/convergence/union shape: a plain
// state's Base, a convergence's first component (first-wins discipline
// extends to ancestry probing), or nil for union/origin states.
func stateParent(s *State) *State {
	switch s.Kind {
	case StateKindPlain:
		return s.Base
	case StateKindConvergence:
		if len(s.ComponentStates) > 0 {
			return s.ComponentStates[0]
		}
	}
	return nil
}

// isAncestorOrSelf reports whether anc is query or one of its ancestors
// along the state chain (following Base for plain states and, for
// convergence states, every component branch).
func isAncestorOrSelf(anc, query *State) bool {
	if anc == nil || query == nil {
		return false
	}
	var visit func(s *State, seen map[int64]bool) bool
	visit = func(s *State, seen map[int64]bool) bool {
		if s == nil || seen[s.ID] {
			return false
		}
		seen[s.ID] = true
		if s == anc {
			return true
		}
		switch s.Kind {
		case StateKindPlain:
			return visit(s.Base, seen)
		case StateKindConvergence:
			for _, c := range s.ComponentStates {
				if visit(c, seen) {
					return true
				}
			}
		}
		return false
	}
	return visit(query, map[int64]bool{})
}
