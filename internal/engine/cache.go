package engine

import "github.com/kittclouds/aigan/pkg/uncertain"

// cacheEntry is one memoized trait-resolution result plus the querying state
// and the epoch snapshot it was computed against. Dependency beliefs are
// every Belief base or promotion the resolution walked through; a cached
// entry is stale once any of them has gained a promotion since the snapshot
// was taken, and it answers only queries from the same state.
type cacheEntry struct {
	value uncertain.Value
	deps  map[*Belief]int64
	state *State
}

// cacheProbe looks for a still-valid memoized result. Caching is only
// sound once both the belief and the querying state are locked, which is
// also when a promoted base's promotableEpoch becomes the only thing that
// can still move.
func cacheProbe(belief *Belief, state *State, tt *Traittype) (uncertain.Value, bool) {
	if !belief.Locked || !state.Locked {
		return uncertain.Value{}, false
	}
	entry, ok := belief.cache[tt]
	if !ok || entry.state != state {
		return uncertain.Value{}, false
	}
	for dep, snapshot := range entry.deps {
		if dep.promotableEpoch != snapshot {
			delete(belief.cache, tt)
			return uncertain.Value{}, false
		}
	}
	return entry.value, true
}

// maybeWriteCache stores a freshly computed result, snapshotting the
// promotableEpoch of every dependency walked during resolution.
func maybeWriteCache(belief *Belief, state *State, tt *Traittype, result uncertain.Value, deps map[*Belief]bool) {
	if !belief.Locked || !state.Locked {
		return
	}
	if belief.cache == nil {
		belief.cache = map[*Traittype]cacheEntry{}
	}
	snapshot := make(map[*Belief]int64, len(deps)+1)
	for d := range deps {
		snapshot[d] = d.promotableEpoch
	}
	if belief.Promotable {
		snapshot[belief] = belief.promotableEpoch
	}
	belief.cache[tt] = cacheEntry{value: result, deps: snapshot, state: state}
}
