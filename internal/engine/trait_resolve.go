package engine

import "github.com/kittclouds/aigan/pkg/uncertain"

// GetTrait is the heart of the engine: resolving a trait is a
// single-point walk for non-composable traits and a collect-and-merge
// across the whole base DAG for composable ones. Both paths share the
// same resolution short-circuit and cache probe up front.
func GetTrait(belief *Belief, state *State, tt *Traittype) (uncertain.Value, error) {
	if v, ok := resolutionShortCircuit(belief, state, tt); ok {
		return v, nil
	}
	if v, ok := cacheProbe(belief, state, tt); ok {
		return v, nil
	}

	var result uncertain.Value
	deps := getBeliefSet()
	defer putBeliefSet(deps)
	if tt.Composable {
		result = resolveComposable(belief, state, tt, deps)
	} else {
		result = resolveSingle(belief, state, tt, deps)
	}

	maybeWriteCache(belief, state, tt, result, deps)
	return result, nil
}

func wrapRaw(raw interface{}) uncertain.Value {
	if raw == nil {
		return uncertain.Known(nil)
	}
	if _, ok := raw.(unknownSentinel); ok {
		return uncertain.Unknown
	}
	return uncertain.Known(raw)
}

func isNull(v uncertain.Value) bool {
	return v.Tag == uncertain.TagKnown && v.Scalar == nil
}

// resolutionShortCircuit checks belief-level resolution before anything
// else: it walks state and its ancestors looking for a
// resolution entry registered against belief.Subject; if the resolver
// defines tt directly, that wins outright. Otherwise the walk continues
// further up the chain.
func resolutionShortCircuit(belief *Belief, state *State, tt *Traittype) (uncertain.Value, bool) {
	seen := map[int64]bool{} // keyed by state id, not *Belief; left unpooled
	var result uncertain.Value
	found := false
	var walk func(s *State)
	walk = func(s *State) {
		if s == nil || found || seen[s.ID] {
			return
		}
		seen[s.ID] = true
		if resolver, ok := belief.Subject.resolutions[s.ID]; ok {
			if raw, had := resolver.Traits[tt]; had {
				result = wrapRaw(raw)
				found = true
				return
			}
		}
		switch s.Kind {
		case StateKindPlain:
			walk(s.Base)
		case StateKindConvergence:
			if chosen, ok := s.resolvedComponent(state); ok {
				walk(chosen)
				return
			}
			for _, c := range s.ComponentStates {
				walk(c)
			}
		}
	}
	walk(state)
	return result, found
}

// resolveSingle resolves a non-composable trait: own value, then
// promotions, then a first-match walk across bases, then archetype
// defaults.
func resolveSingle(belief *Belief, state *State, tt *Traittype, deps map[*Belief]bool) uncertain.Value {
	// Step 3: own value.
	if raw, had := belief.Traits[tt]; had {
		return wrapRaw(raw)
	}

	// Step 4: promotion layer.
	if belief.Promotable && len(belief.Promotions) > 0 {
		if v, ok := resolvePromotions(belief, state, tt, deps); ok {
			return v
		}
	}

	// Step 5: base walk. A BaseMind trait inherited from more than one
	// contributing base unions the contributions into a single mind-state
	// rather than picking the first; every other trait keeps first-non-null-wins.
	if tt.Base == BaseMind {
		if v, ok := resolveMindBases(belief, state, tt, deps); ok {
			return v
		}
	} else {
		for _, base := range belief.Bases {
			switch b := base.(type) {
			case *Archetype:
				if def, ok := b.Default(tt); ok {
					if v := wrapRaw(def); !isNull(v) {
						return v
					}
				}
			case *Belief:
				deps[b] = true
				v, _ := GetTrait(b, state, tt)
				if !isNull(v) {
					return v
				}
			}
		}
	}

	// Step 6: default via the full transitive archetype set.
	for _, a := range belief.GetArchetypes() {
		if def, ok := a.Default(tt); ok {
			if v := wrapRaw(def); !isNull(v) {
				return v
			}
		}
	}
	return uncertain.Known(nil)
}

// resolveMindBases gathers every base's contribution to a BaseMind trait.
// A single contributor resolves exactly like any other scalar base walk.
// Two or more contributors union into one mind-state whose component_states
// is the ordered tuple of the inherited mind-states, per theory-of-mind
// inheritance through multiple bases. A contribution that isn't itself a
// *State (a bare *Mind, say) can't be folded into that tuple, so a mix
// falls back to the first contributor instead of guessing at a union.
func resolveMindBases(belief *Belief, state *State, tt *Traittype, deps map[*Belief]bool) (uncertain.Value, bool) {
	var values []uncertain.Value
	var states []*State
	allStates := true
	contribute := func(v uncertain.Value) {
		if isNull(v) {
			return
		}
		values = append(values, v)
		if s, ok := v.Scalar.(*State); ok {
			states = append(states, s)
		} else {
			allStates = false
		}
	}
	for _, base := range belief.Bases {
		switch b := base.(type) {
		case *Archetype:
			if def, ok := b.Default(tt); ok {
				contribute(wrapRaw(def))
			}
		case *Belief:
			deps[b] = true
			v, _ := GetTrait(b, state, tt)
			contribute(v)
		}
	}
	switch len(values) {
	case 0:
		return uncertain.Value{}, false
	case 1:
		return values[0], true
	default:
		if !allStates || state.reg == nil {
			return values[0], true
		}
		return uncertain.Known(state.reg.NewUnionState(state.InMind, states)), true
	}
}

// visiblePromotions returns the promotions on belief whose origin state is
// an ancestor-or-self of state (branch reachability).
func visiblePromotions(belief *Belief, state *State) []*Promotion {
	var out []*Promotion
	for _, p := range belief.Promotions {
		if isAncestorOrSelf(p.Belief.OriginState, state) {
			out = append(out, p)
		}
	}
	return out
}

// resolvePromotions applies the promotion layer and its tie-break rules.
func resolvePromotions(belief *Belief, state *State, tt *Traittype, deps map[*Belief]bool) (uncertain.Value, bool) {
	visible := visiblePromotions(belief, state)
	if len(visible) == 0 {
		return uncertain.Value{}, false
	}

	var withoutCertainty []*Promotion
	var withCertainty []*Promotion
	for _, p := range visible {
		if p.Certainty != nil {
			withCertainty = append(withCertainty, p)
		} else {
			withoutCertainty = append(withoutCertainty, p)
		}
	}

	var alts []uncertain.Alternative
	var winner *Promotion
	if len(withoutCertainty) > 0 {
		winner = withoutCertainty[0]
		for _, p := range withoutCertainty[1:] {
			winner = laterPromotion(winner, p)
		}
	}

	promotionValue := func(p *Promotion) (interface{}, bool) {
		deps[p.Belief] = true
		if raw, had := p.Belief.Traits[tt]; had {
			v := wrapRaw(raw)
			if isNull(v) {
				return nil, false
			}
			return scalarOf(v), true
		}
		v, _ := GetTrait(p.Belief, state, tt)
		if isNull(v) {
			return nil, false
		}
		return scalarOf(v), true
	}

	if winner != nil {
		if val, ok := promotionValue(winner); ok {
			if len(withCertainty) == 0 {
				return uncertain.Known(val), true
			}
			alts = append(alts, uncertain.Alternative{Value: val, HasCertainty: false})
		}
	}
	for _, p := range withCertainty {
		if val, ok := promotionValue(p); ok {
			alts = append(alts, uncertain.Alternative{Value: val, Certainty: *p.Certainty, HasCertainty: true})
		}
	}

	if len(alts) == 0 {
		return uncertain.Value{}, false
	}
	if len(alts) == 1 && !alts[0].HasCertainty {
		return uncertain.Known(alts[0].Value), true
	}
	return uncertain.New(alts), true
}

func scalarOf(v uncertain.Value) interface{} {
	if v.Tag == uncertain.TagUnknown {
		return Unknown
	}
	return v.Scalar
}

// laterPromotion breaks ties among same-branch, no-certainty promotions by
// greatest origin tt, then
// by smallest belief id.
func laterPromotion(a, b *Promotion) *Promotion {
	at, bt := a.Belief.OriginState, b.Belief.OriginState
	if at.HasTT && bt.HasTT {
		if at.TT != bt.TT {
			if at.TT > bt.TT {
				return a
			}
			return b
		}
	}
	if a.Belief.ID < b.Belief.ID {
		return a
	}
	return b
}

// resolveComposable collects a composable trait across the whole base
// DAG instead of stopping at the first match: every reachable node
// contributes, null contributions prune only
// their own subtree, and the per-Traittype container discipline merges the
// surviving pieces. A visible promotion carrying certainty turns the whole
// result into an Uncertain over the merged list with and without that
// promotion folded in; promotions without certainty are folded in
// unconditionally once visible, same as a base contribution.
func resolveComposable(belief *Belief, state *State, tt *Traittype, deps map[*Belief]bool) uncertain.Value {
	base := collectComposable(belief, state, tt, deps)

	if !belief.Promotable || len(belief.Promotions) == 0 {
		return mergedValue(base, tt)
	}
	visible := visiblePromotions(belief, state)
	if len(visible) == 0 {
		return mergedValue(base, tt)
	}

	var certain []*Promotion
	merged := append([]interface{}(nil), base...)
	for _, p := range visible {
		if p.Certainty == nil {
			merged = mergeContribution(merged, composableContribution(p.Belief, state, tt, deps), tt)
		} else {
			certain = append(certain, p)
		}
	}
	if len(certain) == 0 {
		return mergedValue(merged, tt)
	}

	alts := make([]uncertain.Alternative, 0, len(certain)+1)
	for _, p := range certain {
		withP := mergeContribution(append([]interface{}(nil), merged...), composableContribution(p.Belief, state, tt, deps), tt)
		alts = append(alts, uncertain.Alternative{Value: withP, Certainty: *p.Certainty, HasCertainty: true})
	}
	alts = append(alts, uncertain.Alternative{Value: merged, HasCertainty: false})
	return uncertain.New(alts)
}

// collectComposable gathers the pre-order contributions of belief's own
// value plus every reachable base, merging as it goes.
func collectComposable(belief *Belief, state *State, tt *Traittype, deps map[*Belief]bool) []interface{} {
	var merged []interface{}
	if raw, had := belief.Traits[tt]; had {
		if raw == nil {
			return nil
		}
		merged = mergeContribution(merged, toList(raw), tt)
	}
	for _, base := range belief.Bases {
		switch b := base.(type) {
		case *Archetype:
			if def, ok := b.Default(tt); ok && def != nil {
				merged = mergeContribution(merged, toList(def), tt)
			}
		case *Belief:
			deps[b] = true
			merged = mergeContribution(merged, composableContribution(b, state, tt, deps), tt)
		}
	}
	return merged
}

// composableContribution resolves a single base/promotion belief's
// contribution as a flat list, collapsing an Uncertain result to its
// highest-certainty alternative (a nested uncertain composable base is an
// edge case with no single obviously-correct answer; picking the mode
// keeps the merge total).
func composableContribution(b *Belief, state *State, tt *Traittype, deps map[*Belief]bool) []interface{} {
	v := resolveComposable(b, state, tt, deps)
	switch v.Tag {
	case uncertain.TagKnown:
		if v.Scalar == nil {
			return nil
		}
		return toList(v.Scalar)
	case uncertain.TagUncertain:
		best := bestAlternative(v.Alternatives)
		if best == nil {
			return nil
		}
		return toList(best)
	default:
		return nil
	}
}

func bestAlternative(alts []uncertain.Alternative) interface{} {
	var bestCert float64 = -1
	var bestVal interface{}
	found := false
	for _, a := range alts {
		c := a.Certainty
		if !a.HasCertainty {
			c = 0
		}
		if !found || c > bestCert {
			bestCert = c
			bestVal = a.Value
			found = true
		}
	}
	if !found {
		return nil
	}
	return bestVal
}

func toList(raw interface{}) []interface{} {
	if l, ok := raw.([]interface{}); ok {
		return l
	}
	return []interface{}{raw}
}

// mergeContribution folds one contribution's elements into an accumulator
// per tt's container discipline: sequences append preserving order,
// de-duplicated by value/pointer identity; sets union the same way.
func mergeContribution(acc []interface{}, contribution []interface{}, tt *Traittype) []interface{} {
	for _, e := range contribution {
		if tt.Container == ContainerSet && containsElem(acc, e) {
			continue
		}
		if tt.Container == ContainerSequence && containsElem(acc, e) {
			continue
		}
		acc = append(acc, e)
	}
	return acc
}

func containsElem(list []interface{}, e interface{}) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

func mergedValue(list []interface{}, tt *Traittype) uncertain.Value {
	if len(list) == 0 {
		return uncertain.Known(nil)
	}
	if tt.Container == ContainerScalar {
		return uncertain.Known(list[0])
	}
	return uncertain.Known(list)
}
