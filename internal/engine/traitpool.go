package engine

import "sync"

// beliefSetPool pools map[*Belief]bool, reused for the dependency
// accumulator GetTrait threads through a resolution. It is fully drained
// before the call that borrowed it returns (copied into a fresh
// cacheEntry.deps snapshot rather than retained), so the backing map is
// safe to recycle. Otherwise this allocates on every trait lookup.
var beliefSetPool = sync.Pool{
	New: func() interface{} {
		return make(map[*Belief]bool, 8)
	},
}

func getBeliefSet() map[*Belief]bool {
	m := beliefSetPool.Get().(map[*Belief]bool)
	for k := range m {
		delete(m, k)
	}
	return m
}

func putBeliefSet(m map[*Belief]bool) {
	beliefSetPool.Put(m)
}
