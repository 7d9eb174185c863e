// Package serializer turns a Mind's reachable subtree into a self-contained
// JSON document and back, mirroring an Export/Import pair over a
// structured store rather than a raw database dump.
package serializer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kittclouds/aigan/internal/engine"
	"go.uber.org/zap"
)

// Document is the self-contained record produced by SaveMind. Every cross
// reference is an id; the catalog and label bindings are carried alongside
// so Load never has to consult anything outside the document itself.
type Document struct {
	HighWaterMark int64             `json:"high_water_mark"`
	Traittypes    []TraittypeDoc    `json:"traittypes"`
	Archetypes    []ArchetypeDoc    `json:"archetypes"`
	Minds         []MindDoc         `json:"minds"`
	States        []StateDoc        `json:"states"`
	Beliefs       []BeliefDoc       `json:"beliefs"`
	Labels        map[string]int64  `json:"labels"`
}

type TraittypeDoc struct {
	Label      string `json:"label"`
	Base       int    `json:"base"`
	Constraint string `json:"constraint,omitempty"`
	Container  int    `json:"container"`
	Composable bool   `json:"composable,omitempty"`
}

type SlotDoc struct {
	Traittype  string      `json:"traittype"`
	Default    interface{} `json:"default,omitempty"`
	HasDefault bool        `json:"has_default,omitempty"`
}

type ArchetypeDoc struct {
	Label string    `json:"label"`
	Bases []string  `json:"bases,omitempty"`
	Slots []SlotDoc `json:"slots,omitempty"`
}

type MindDoc struct {
	ID        int64  `json:"id"`
	ParentID  int64  `json:"parent_id,omitempty"`
	Label     string `json:"label"`
	Temporal  bool   `json:"temporal,omitempty"`
	EidosRoot bool   `json:"eidos_root,omitempty"`
}

type StateDoc struct {
	ID                int64           `json:"id"`
	Kind              int             `json:"kind"`
	MindID            int64           `json:"mind_id"`
	BaseID            int64           `json:"base_id,omitempty"`
	GroundID          int64           `json:"ground_id,omitempty"`
	HasTT             bool            `json:"has_tt,omitempty"`
	TT                int64           `json:"tt,omitempty"`
	Locked            bool            `json:"locked,omitempty"`
	ComponentIDs      []int64         `json:"component_ids,omitempty"`
	UnionComponentIDs []int64         `json:"union_component_ids,omitempty"`
	Insert            []int64         `json:"insert,omitempty"`
	Remove            []int64         `json:"remove,omitempty"`
	Resolutions       map[int64]int64 `json:"resolutions,omitempty"`
}

type BaseRefDoc struct {
	Kind  string `json:"kind"` // "archetype" | "belief"
	Label string `json:"label,omitempty"`
	ID    int64  `json:"id,omitempty"`
}

type PromotionDoc struct {
	BeliefID  int64    `json:"belief_id"`
	Certainty *float64 `json:"certainty,omitempty"`
}

type BeliefDoc struct {
	ID                   int64                  `json:"id"`
	SubjectID            int64                  `json:"subject_id"`
	SubjectLabel         string                 `json:"subject_label,omitempty"`
	SubjectMaterID       int64                  `json:"subject_mater_id,omitempty"`
	OriginStateID        int64                  `json:"origin_state_id"`
	Bases                []BaseRefDoc           `json:"bases,omitempty"`
	Traits               map[string]interface{} `json:"traits,omitempty"`
	Promotable           bool                   `json:"promotable,omitempty"`
	Locked               bool                   `json:"locked,omitempty"`
	ResolutionOfBeliefID int64                  `json:"resolution_of_belief_id,omitempty"`
	Promotions           []PromotionDoc         `json:"promotions,omitempty"`
}

// SaveMind walks every mind reachable from root (root itself plus every
// mind whose Parent chain passes through it), every state those minds own,
// and every belief originating in one of those states, and serializes them
// to JSON, producing a self-contained document.
func SaveMind(log *zap.Logger, reg *engine.Registry, root *engine.Mind) ([]byte, error) {
	if log == nil {
		log = zap.NewNop()
	}
	doc := &Document{HighWaterMark: reg.HighWaterMark(), Labels: reg.Labels()}

	for label, tt := range reg.Traittypes() {
		d := TraittypeDoc{Label: label, Base: int(tt.Base), Container: int(tt.Container), Composable: tt.Composable}
		if tt.Constraint != nil {
			d.Constraint = tt.Constraint.Label
		}
		doc.Traittypes = append(doc.Traittypes, d)
	}
	sort.Slice(doc.Traittypes, func(i, j int) bool { return doc.Traittypes[i].Label < doc.Traittypes[j].Label })

	for label, a := range reg.Archetypes() {
		d := ArchetypeDoc{Label: label}
		for _, base := range a.Bases {
			d.Bases = append(d.Bases, base.Label)
		}
		defaults := a.Defaults()
		for tt := range a.Slots() {
			s := SlotDoc{Traittype: tt.Label}
			if def, ok := defaults[tt]; ok {
				s.Default = encodeTraitValue(def)
				s.HasDefault = true
			}
			d.Slots = append(d.Slots, s)
		}
		sort.Slice(d.Slots, func(i, j int) bool { return d.Slots[i].Traittype < d.Slots[j].Traittype })
		doc.Archetypes = append(doc.Archetypes, d)
	}
	sort.Slice(doc.Archetypes, func(i, j int) bool { return doc.Archetypes[i].Label < doc.Archetypes[j].Label })

	includedMinds := map[int64]bool{}
	for _, m := range reg.Minds() {
		if isDescendantOrSelf(m, root) {
			includedMinds[m.ID] = true
			pd := MindDoc{ID: m.ID, Label: m.Label, Temporal: m.Temporal, EidosRoot: m.IsEidosRoot()}
			if m.Parent != nil {
				pd.ParentID = m.Parent.ID
			}
			doc.Minds = append(doc.Minds, pd)
		}
	}
	sort.Slice(doc.Minds, func(i, j int) bool { return doc.Minds[i].ID < doc.Minds[j].ID })

	includedStates := map[int64]bool{}
	for _, s := range reg.States() {
		if !includedMinds[s.InMind.ID] {
			continue
		}
		includedStates[s.ID] = true
		sd := StateDoc{ID: s.ID, Kind: int(s.Kind), MindID: s.InMind.ID, HasTT: s.HasTT, TT: s.TT, Locked: s.Locked}
		if s.Base != nil {
			sd.BaseID = s.Base.ID
		}
		if s.Ground != nil {
			sd.GroundID = s.Ground.ID
		}
		for _, c := range s.ComponentStates {
			sd.ComponentIDs = append(sd.ComponentIDs, c.ID)
		}
		for _, c := range s.UnionComponents {
			sd.UnionComponentIDs = append(sd.UnionComponentIDs, c.ID)
		}
		for _, b := range s.InsertedBeliefs() {
			sd.Insert = append(sd.Insert, b.ID)
		}
		sd.Remove = s.RemovedBeliefIDs()
		sd.Resolutions = s.ResolutionEntries()
		doc.States = append(doc.States, sd)
	}
	sort.Slice(doc.States, func(i, j int) bool { return doc.States[i].ID < doc.States[j].ID })

	for _, b := range reg.Beliefs() {
		if b.OriginState == nil || !includedStates[b.OriginState.ID] {
			continue
		}
		bd := BeliefDoc{
			ID:            b.ID,
			SubjectID:     b.Subject.SID,
			SubjectLabel:  b.Subject.Label,
			OriginStateID: b.OriginState.ID,
			Promotable:    b.Promotable,
			Locked:        b.Locked,
		}
		if b.Subject.Mater != nil {
			bd.SubjectMaterID = b.Subject.Mater.ID
		}
		for _, base := range b.Bases {
			switch t := base.(type) {
			case *engine.Archetype:
				bd.Bases = append(bd.Bases, BaseRefDoc{Kind: "archetype", Label: t.Label})
			case *engine.Belief:
				bd.Bases = append(bd.Bases, BaseRefDoc{Kind: "belief", ID: t.ID})
			}
		}
		if len(b.Traits) > 0 {
			bd.Traits = map[string]interface{}{}
			for tt, raw := range b.Traits {
				bd.Traits[tt.Label] = encodeTraitValue(raw)
			}
		}
		if b.Resolution != nil {
			bd.ResolutionOfBeliefID = b.Resolution.ID
		}
		for _, p := range b.Promotions {
			bd.Promotions = append(bd.Promotions, PromotionDoc{BeliefID: p.Belief.ID, Certainty: p.Certainty})
		}
		doc.Beliefs = append(doc.Beliefs, bd)
	}
	sort.Slice(doc.Beliefs, func(i, j int) bool { return doc.Beliefs[i].ID < doc.Beliefs[j].ID })

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serializer: marshal document: %w", err)
	}
	log.Debug("saved mind", zap.Int64("mind_id", root.ID), zap.Int("minds", len(doc.Minds)), zap.Int("states", len(doc.States)), zap.Int("beliefs", len(doc.Beliefs)))
	return data, nil
}

func isDescendantOrSelf(m, root *engine.Mind) bool {
	for cur := m; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

func encodeTraitValue(raw interface{}) interface{} {
	switch t := raw.(type) {
	case nil:
		return nil
	case *engine.Subject:
		return map[string]interface{}{"$subject": t.SID}
	case engine.AboutRef:
		return map[string]interface{}{"$about": t.Target.SID}
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = encodeTraitValue(e)
		}
		return out
	default:
		if raw == engine.Unknown {
			return map[string]interface{}{"$unknown": true}
		}
		return raw
	}
}

// Load reconstructs a Mind subtree into reg from a document previously
// produced by SaveMind, preserving every id exactly. reg should either be empty
// or already carry a schema compatible with the document's catalog. Every
// state and belief loaded is marked locked, whether or not it was locked
// when saved.
func Load(log *zap.Logger, reg *engine.Registry, data []byte) (*engine.Mind, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("serializer: unmarshal document: %w", err)
	}

	if err := registerCatalog(reg, &doc); err != nil {
		return nil, err
	}

	minds, rootID, err := loadMinds(reg, &doc)
	if err != nil {
		return nil, err
	}
	root, ok := minds[rootID]
	if !ok {
		return nil, fmt.Errorf("%w: root mind %d", engine.ErrMissingReferent, rootID)
	}

	// Subject label bindings are restored before the subjects themselves,
	// so each subject keeps the label its belief records as Subject.Label.
	for label, sid := range doc.Labels {
		if sid == 0 {
			continue
		}
		if err := reg.BindLabel(sid, label); err != nil {
			return nil, err
		}
	}

	subjects, err := loadSubjects(reg, &doc, minds)
	if err != nil {
		return nil, err
	}

	states, err := loadStates(reg, &doc, minds)
	if err != nil {
		return nil, err
	}

	beliefs, err := loadBeliefs(reg, &doc, subjects, states)
	if err != nil {
		return nil, err
	}

	for _, sd := range doc.States {
		s := states[sd.ID]
		for _, id := range sd.Insert {
			b, ok := beliefs[id]
			if !ok {
				return nil, fmt.Errorf("%w: belief %d in state %d insert set", engine.ErrMissingReferent, id, sd.ID)
			}
			s.SetInsert(b)
		}
		for _, id := range sd.Remove {
			s.SetRemoved(id, beliefs[id])
		}
		for descendantID, chosenID := range sd.Resolutions {
			chosen, ok := states[chosenID]
			if !ok {
				return nil, fmt.Errorf("%w: convergence component %d", engine.ErrMissingReferent, chosenID)
			}
			s.SetResolution(descendantID, chosen)
		}
	}

	for _, bd := range doc.Beliefs {
		b := beliefs[bd.ID]
		if bd.ResolutionOfBeliefID != 0 {
			target, ok := beliefs[bd.ResolutionOfBeliefID]
			if !ok {
				return nil, fmt.Errorf("%w: resolution target belief %d", engine.ErrMissingReferent, bd.ResolutionOfBeliefID)
			}
			engine.SetResolutionRef(b, target)
		}
		for _, pd := range bd.Promotions {
			promoted, ok := beliefs[pd.BeliefID]
			if !ok {
				return nil, fmt.Errorf("%w: promotion belief %d", engine.ErrMissingReferent, pd.BeliefID)
			}
			engine.AddPromotion(b, promoted, pd.Certainty)
		}
	}

	reg.AdvanceSequence(doc.HighWaterMark)
	log.Debug("loaded mind", zap.Int64("mind_id", root.ID), zap.Int("minds", len(minds)), zap.Int("states", len(states)), zap.Int("beliefs", len(beliefs)))
	return root, nil
}

func registerCatalog(reg *engine.Registry, doc *Document) error {
	traittypeDefs := make([]engine.TraittypeDef, 0, len(doc.Traittypes))
	for _, d := range doc.Traittypes {
		traittypeDefs = append(traittypeDefs, engine.TraittypeDef{
			Label:      d.Label,
			Base:       engine.BaseKind(d.Base),
			Constraint: d.Constraint,
			Container:  engine.ContainerKind(d.Container),
			Composable: d.Composable,
		})
	}
	archetypeDefs := make([]engine.ArchetypeDef, 0, len(doc.Archetypes))
	for _, d := range doc.Archetypes {
		ad := engine.ArchetypeDef{Label: d.Label, Bases: d.Bases}
		for _, s := range d.Slots {
			ad.Slots = append(ad.Slots, engine.SlotDef{Traittype: s.Traittype, Default: s.Default, HasDefault: s.HasDefault})
		}
		archetypeDefs = append(archetypeDefs, ad)
	}
	return reg.Register(traittypeDefs, archetypeDefs)
}

func loadMinds(reg *engine.Registry, doc *Document) (map[int64]*engine.Mind, int64, error) {
	minds := make(map[int64]*engine.Mind, len(doc.Minds))
	var rootID int64
	sorted := append([]MindDoc(nil), doc.Minds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, md := range sorted {
		var parent *engine.Mind
		if md.ParentID != 0 {
			p, ok := minds[md.ParentID]
			if !ok {
				return nil, 0, fmt.Errorf("%w: mind %d parent %d", engine.ErrMissingReferent, md.ID, md.ParentID)
			}
			parent = p
		}
		minds[md.ID] = reg.RestoreMind(md.ID, parent, md.Label, md.Temporal, md.EidosRoot)
		if i == 0 {
			rootID = md.ID
		}
	}
	return minds, rootID, nil
}

func loadSubjects(reg *engine.Registry, doc *Document, minds map[int64]*engine.Mind) (map[int64]*engine.Subject, error) {
	subjects := map[int64]*engine.Subject{}
	for _, bd := range doc.Beliefs {
		if _, ok := subjects[bd.SubjectID]; ok {
			continue
		}
		var mater *engine.Mind
		if bd.SubjectMaterID != 0 {
			m, ok := minds[bd.SubjectMaterID]
			if !ok {
				return nil, fmt.Errorf("%w: subject %d mater %d", engine.ErrMissingReferent, bd.SubjectID, bd.SubjectMaterID)
			}
			mater = m
		}
		subjects[bd.SubjectID] = reg.RestoreSubject(bd.SubjectID, mater, bd.SubjectLabel)
	}
	return subjects, nil
}

func loadStates(reg *engine.Registry, doc *Document, minds map[int64]*engine.Mind) (map[int64]*engine.State, error) {
	states := make(map[int64]*engine.State, len(doc.States))
	sorted := append([]StateDoc(nil), doc.States...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, sd := range sorted {
		mind, ok := minds[sd.MindID]
		if !ok {
			return nil, fmt.Errorf("%w: state %d mind %d", engine.ErrMissingReferent, sd.ID, sd.MindID)
		}
		s := reg.RestoreState(sd.ID, engine.StateKind(sd.Kind), mind, sd.HasTT, sd.TT, true)
		states[sd.ID] = s
	}
	for _, sd := range sorted {
		s := states[sd.ID]
		if sd.BaseID != 0 {
			base, ok := states[sd.BaseID]
			if !ok {
				return nil, fmt.Errorf("%w: state %d base %d", engine.ErrMissingReferent, sd.ID, sd.BaseID)
			}
			s.Base = base
		}
		if sd.GroundID != 0 {
			ground, ok := states[sd.GroundID]
			if !ok {
				return nil, fmt.Errorf("%w: state %d ground %d", engine.ErrMissingReferent, sd.ID, sd.GroundID)
			}
			s.Ground = ground
		}
		for _, cid := range sd.ComponentIDs {
			c, ok := states[cid]
			if !ok {
				return nil, fmt.Errorf("%w: state %d component %d", engine.ErrMissingReferent, sd.ID, cid)
			}
			s.ComponentStates = append(s.ComponentStates, c)
		}
		for _, cid := range sd.UnionComponentIDs {
			c, ok := states[cid]
			if !ok {
				return nil, fmt.Errorf("%w: state %d union component %d", engine.ErrMissingReferent, sd.ID, cid)
			}
			s.UnionComponents = append(s.UnionComponents, c)
		}
	}
	return states, nil
}

func loadBeliefs(reg *engine.Registry, doc *Document, subjects map[int64]*engine.Subject, states map[int64]*engine.State) (map[int64]*engine.Belief, error) {
	beliefs := make(map[int64]*engine.Belief, len(doc.Beliefs))
	sorted := append([]BeliefDoc(nil), doc.Beliefs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, bd := range sorted {
		subj, ok := subjects[bd.SubjectID]
		if !ok {
			return nil, fmt.Errorf("%w: belief %d subject %d", engine.ErrMissingReferent, bd.ID, bd.SubjectID)
		}
		origin, ok := states[bd.OriginStateID]
		if !ok {
			return nil, fmt.Errorf("%w: belief %d origin state %d", engine.ErrMissingReferent, bd.ID, bd.OriginStateID)
		}
		var bases []interface{}
		for _, ref := range bd.Bases {
			switch ref.Kind {
			case "archetype":
				a, ok := reg.ArchetypeByLabel(ref.Label)
				if !ok {
					return nil, fmt.Errorf("%w: belief %d base archetype %q", engine.ErrMissingReferent, bd.ID, ref.Label)
				}
				bases = append(bases, a)
			case "belief":
				base, ok := beliefs[ref.ID]
				if !ok {
					return nil, fmt.Errorf("%w: belief %d base belief %d", engine.ErrMissingReferent, bd.ID, ref.ID)
				}
				bases = append(bases, base)
			}
		}
		traits := map[*engine.Traittype]interface{}{}
		for label, raw := range bd.Traits {
			tt, ok := reg.TraittypeByLabel(label)
			if !ok {
				return nil, fmt.Errorf("%w: belief %d trait %q", engine.ErrMissingReferent, bd.ID, label)
			}
			traits[tt] = decodeTraitValue(reg, tt, raw)
		}
		beliefs[bd.ID] = reg.RestoreBelief(bd.ID, subj, origin, bases, traits, bd.Promotable, true)
	}
	return beliefs, nil
}

func decodeTraitValue(reg *engine.Registry, tt *engine.Traittype, raw interface{}) interface{} {
	if tt.Container != engine.ContainerScalar {
		list, ok := raw.([]interface{})
		if !ok {
			return decodeScalar(reg, raw)
		}
		out := make([]interface{}, len(list))
		for i, e := range list {
			out[i] = decodeScalar(reg, e)
		}
		return out
	}
	return decodeScalar(reg, raw)
}

func decodeScalar(reg *engine.Registry, raw interface{}) interface{} {
	switch m := raw.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		if sid, ok := m["$subject"]; ok {
			s, _ := reg.SubjectByID(int64(sid.(float64)))
			return s
		}
		if sid, ok := m["$about"]; ok {
			s, _ := reg.SubjectByID(int64(sid.(float64)))
			return engine.AboutRef{Target: s}
		}
		if _, ok := m["$unknown"]; ok {
			return engine.Unknown
		}
		return nil
	case float64:
		if m == float64(int64(m)) {
			return int64(m)
		}
		return m
	default:
		return raw
	}
}
