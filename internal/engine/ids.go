package engine

// sequence is the single monotonically increasing id allocator every
// Mind, Subject, State, and Belief draws from. It is owned by the
// Registry, never reset while the engine is live except through
// Registry.Reset (testing only), and advanced
// past the maximum loaded id on deserialization (see pkg/serializer).
type sequence struct {
	next int64
}

func (s *sequence) allocate() int64 {
	s.next++
	return s.next
}

// advancePast bumps the sequence so the next allocate() call returns an id
// strictly greater than hi. Used by the serializer to restore the
// high-water mark recorded in a saved document.
func (s *sequence) advancePast(hi int64) {
	if hi > s.next {
		s.next = hi
	}
}
