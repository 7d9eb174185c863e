package engine

// Mind is a container that owns particular Subjects and contains States,
// arranged in a tree rooted at a singleton logos.
type Mind struct {
	ID           int64
	Parent       *Mind
	Label        string
	Temporal     bool
	isEidosRoot  bool
	states       []*State
}

// NewMind creates a mind under parent (nil only for the logos root).
func (r *Registry) NewMind(parent *Mind, label string, temporal bool) *Mind {
	m := &Mind{ID: r.nextID(), Parent: parent, Label: label, Temporal: temporal}
	r.registerMind(m)
	return m
}

// NewEidos creates the distinguished eidos subtree root under parent
// (normally the logos). Only minds inside this subtree may bear Promotions.
func (r *Registry) NewEidos(parent *Mind, label string, temporal bool) *Mind {
	m := r.NewMind(parent, label, temporal)
	m.isEidosRoot = true
	return m
}

// IsInEidos reports whether this mind is the eidos root or a descendant of it.
func (m *Mind) IsInEidos() bool {
	for cur := m; cur != nil; cur = cur.Parent {
		if cur.isEidosRoot {
			return true
		}
	}
	return false
}

// States returns the states this mind has created, in creation order.
func (m *Mind) States() []*State {
	out := make([]*State, len(m.states))
	copy(out, m.states)
	return out
}

// IsEidosRoot reports whether this mind is itself the distinguished eidos
// root (as opposed to merely being inside the eidos subtree).
func (m *Mind) IsEidosRoot() bool {
	return m.isEidosRoot
}
