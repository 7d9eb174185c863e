// Command aigandemo drives the belief engine through a short narrative —
// prototype inheritance, temporal replacement, probability promotion and
// its resolution, a branch convergence, and a reverse-trait query — then
// round-trips the resulting mind through the JSON serializer and a SQLite
// snapshot store, and scans a line of narration for label mentions.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kittclouds/aigan/internal/engine"
	"github.com/kittclouds/aigan/pkg/labelindex"
	"github.com/kittclouds/aigan/pkg/serializer"
	"github.com/kittclouds/aigan/pkg/sqlitestore"
)

func main() {
	dbPath := flag.String("db", "aigandemo.sqlite3", "path to the snapshot/similarity store")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer log.Sync()

	runID := uuid.New().String()
	log = log.With(zap.String("run_id", runID))

	if err := run(log, *dbPath); err != nil {
		log.Fatal("demo failed", zap.Error(err))
	}
}

func run(log *zap.Logger, dbPath string) error {
	eng := engine.New()
	reg := eng.Registry

	if err := registerSchema(reg); err != nil {
		return fmt.Errorf("register schema: %w", err)
	}
	log.Info("schema registered",
		zap.Int("archetypes", len(reg.Archetypes())),
		zap.Int("traittypes", len(reg.Traittypes())))

	ttDamage, _ := reg.TraittypeByLabel("damage")
	ttWeight, _ := reg.TraittypeByLabel("weight")
	ttColor, _ := reg.TraittypeByLabel("color")
	ttLocation, _ := reg.TraittypeByLabel("location")
	tool, _ := reg.ArchetypeByLabel("Tool")
	place, _ := reg.ArchetypeByLabel("Place")
	merchantKind, _ := reg.ArchetypeByLabel("MerchantKind")

	// Prototype + own override.
	eidosState := mustState(reg.CreateState(eng.Eidos, nil, 0, false))
	genericSword := mustBelief(engine.FromTemplate(reg, eidosState, engine.Template{
		Bases:  []interface{}{tool},
		Traits: map[*engine.Traittype]interface{}{ttDamage: int64(10), ttWeight: int64(5)},
		Label:  "generic_sword",
	}))
	eidosState.Lock()

	playerMind := eng.NewMind(eng.Eidos, "player", false)
	playerState := mustState(reg.CreateState(playerMind, nil, 0, false))
	playerSword := mustBelief(genericSword.Branch(reg, playerState, map[*engine.Traittype]interface{}{ttDamage: int64(15)}, engine.VersionOptions{}))
	playerState.Lock()

	dmg, _ := engine.GetTrait(playerSword, playerState, ttDamage)
	wt, _ := engine.GetTrait(playerSword, playerState, ttWeight)
	log.Info("S1 prototype override", zap.Any("damage", dmg.Scalar), zap.Any("weight", wt.Scalar))

	// Temporal evolution of a settlement's color across three replacements.
	timeline := eng.NewMind(eng.Logos, "timeline", true)
	s1, err := reg.CreateState(timeline, nil, 1, true)
	if err != nil {
		return err
	}
	settlement, _ := reg.ArchetypeByLabel("Settlement")
	gray := mustBelief(engine.FromTemplate(reg, s1, engine.Template{
		Bases:  []interface{}{settlement},
		Traits: map[*engine.Traittype]interface{}{ttColor: "gray"},
		Label:  "crossroads",
	}))
	s1.Lock()
	s50, err := s1.Branch(reg, nil, 50, true)
	if err != nil {
		return err
	}
	brown, err := gray.Replace(reg, s50, map[*engine.Traittype]interface{}{ttColor: "brown"}, engine.VersionOptions{})
	if err != nil {
		return err
	}
	s50.Lock()
	s100, err := s50.Branch(reg, nil, 100, true)
	if err != nil {
		return err
	}
	if _, err := brown.Replace(reg, s100, map[*engine.Traittype]interface{}{ttColor: "white"}, engine.VersionOptions{}); err != nil {
		return err
	}
	s100.Lock()
	at70, err := s50.Branch(reg, nil, 70, true)
	if err != nil {
		return err
	}
	observed, _ := engine.GetBeliefBySubject(at70, gray.Subject.SID)
	color, _ := engine.GetTrait(observed, at70, ttColor)
	log.Info("S2 temporal evolution at tt=70", zap.Any("color", color.Scalar))

	// Probability promotion and its later resolution.
	s0 := mustState(reg.CreateState(eng.Eidos, nil, 0, false))
	shop := mustBelief(engine.FromTemplate(reg, s0, engine.Template{Bases: []interface{}{place}, Label: "shop"}))
	inn := mustBelief(engine.FromTemplate(reg, s0, engine.Template{Bases: []interface{}{place}, Label: "inn"}))
	merchant := mustBelief(engine.FromTemplate(reg, s0, engine.Template{Bases: []interface{}{merchantKind}, Promotable: true, Label: "wandering_merchant"}))
	s0.Lock()

	sPromote, err := s0.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	cShop, cInn := 0.6, 0.4
	if _, err := merchant.Branch(reg, sPromote, map[*engine.Traittype]interface{}{ttLocation: shop.Subject}, engine.VersionOptions{Promote: true, Certainty: &cShop}); err != nil {
		return err
	}
	if _, err := merchant.Branch(reg, sPromote, map[*engine.Traittype]interface{}{ttLocation: inn.Subject}, engine.VersionOptions{Promote: true, Certainty: &cInn}); err != nil {
		return err
	}
	sPromote.Lock()
	loc, _ := engine.GetTrait(merchant, sPromote, ttLocation)
	log.Info("S3 probability promotion", zap.Bool("uncertain", loc.IsUncertain()), zap.Int("alternatives", len(loc.Alternatives)))

	sResolved, err := sPromote.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	if _, err := merchant.Replace(reg, sResolved, map[*engine.Traittype]interface{}{ttLocation: shop.Subject}, engine.VersionOptions{Resolution: merchant}); err != nil {
		return err
	}
	sResolved.Lock()
	loc, _ = engine.GetTrait(merchant, sResolved, ttLocation)
	log.Info("S4 resolution collapses uncertainty", zap.Bool("uncertain", loc.IsUncertain()))

	// Timeline resolution over a branch convergence.
	convMind := eng.NewMind(eng.Logos, "convergence-demo", false)
	convBase := mustState(reg.CreateState(convMind, nil, 0, false))
	hammer := mustBelief(engine.FromTemplate(reg, convBase, engine.Template{Bases: []interface{}{tool}, Label: "hammer"}))
	convBase.Lock()
	stateA, err := convBase.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	stateB, err := convBase.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	if _, err := hammer.Replace(reg, stateA, map[*engine.Traittype]interface{}{ttColor: "red"}, engine.VersionOptions{}); err != nil {
		return err
	}
	hammerB, err := hammer.Replace(reg, stateB, map[*engine.Traittype]interface{}{ttColor: "blue"}, engine.VersionOptions{})
	if err != nil {
		return err
	}
	stateA.Lock()
	stateB.Lock()
	conv, err := reg.NewConvergence(convMind, []*engine.State{stateA, stateB})
	if err != nil {
		return err
	}
	conv.Lock()
	observedChild, err := conv.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	if err := conv.RegisterResolution(observedChild, stateB); err != nil {
		return err
	}
	observedChild.Lock()
	chosen, _ := engine.GetBeliefBySubject(observedChild, hammer.Subject.SID)
	chosenColor, _ := engine.GetTrait(chosen, observedChild, ttColor)
	log.Info("S5 timeline resolution", zap.Bool("chose_branch_b", hammerB == chosen), zap.Any("color", chosenColor.Scalar))

	// Reverse-trait temporal correctness.
	workerMind := eng.NewMind(eng.Logos, "workshop-demo", false)
	stateW1 := mustState(reg.CreateState(workerMind, nil, 0, false))
	workshop := mustBelief(engine.FromTemplate(reg, stateW1, engine.Template{Bases: []interface{}{place}, Label: "workshop"}))
	worker, _ := reg.ArchetypeByLabel("Worker")
	person := mustBelief(engine.FromTemplate(reg, stateW1, engine.Template{
		Bases:  []interface{}{worker},
		Traits: map[*engine.Traittype]interface{}{ttLocation: workshop.Subject},
		Label:  "apprentice",
	}))
	stateW1.Lock()
	stateW2, err := stateW1.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	if _, err := person.Replace(reg, stateW2, map[*engine.Traittype]interface{}{ttLocation: nil}, engine.VersionOptions{}); err != nil {
		return err
	}
	stateW2.Lock()
	stateW3, err := stateW2.Branch(reg, nil, 0, false)
	if err != nil {
		return err
	}
	refsNow := engine.RevTrait(stateW3, workshop.Subject.SID, ttLocation)
	refsThen := engine.RevTrait(stateW1, workshop.Subject.SID, ttLocation)
	log.Info("S6 reverse-trait temporal correctness",
		zap.Int("refs_at_state3", len(refsNow)),
		zap.Int("refs_at_state1", len(refsThen)))

	// Round-trip the logos subtree through the JSON serializer.
	doc, err := serializer.SaveMind(log, reg, eng.Logos)
	if err != nil {
		return fmt.Errorf("save mind: %w", err)
	}
	log.Info("serialized mind", zap.Int("bytes", len(doc)))

	store, err := sqlitestore.Open(dbPath, 0, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	version, err := store.SaveSnapshot("aigandemo", eng.Logos.ID, doc)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	log.Info("snapshot persisted", zap.Int64("version", version))

	loaded, loadedVersion, err := store.LoadLatestSnapshot("aigandemo")
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	roundtrip := engine.NewRegistry()
	if _, err := serializer.Load(log, roundtrip, loaded); err != nil {
		return fmt.Errorf("load mind: %w", err)
	}
	log.Info("snapshot round-tripped", zap.Int64("version", loadedVersion))

	// Scan a line of narration for label mentions and suggest completions.
	idx, err := labelindex.FromRegistry(reg)
	if err != nil {
		return fmt.Errorf("build label index: %w", err)
	}
	narration := "The apprentice left the workshop and walked past the shop toward the inn."
	matches := idx.Scan(narration)
	for _, m := range matches {
		log.Info("label mention", zap.String("label", m.Text), zap.Int("start", m.Start))
	}
	for _, s := range idx.Suggest("work", 5) {
		log.Info("suggestion", zap.String("prefix", "work"), zap.String("label", s))
	}

	return nil
}

func registerSchema(reg *engine.Registry) error {
	traittypeDefs := []engine.TraittypeDef{
		{Label: "damage", Base: engine.BasePrimitive, Container: engine.ContainerScalar},
		{Label: "weight", Base: engine.BasePrimitive, Container: engine.ContainerScalar},
		{Label: "color", Base: engine.BasePrimitive, Container: engine.ContainerScalar},
		{Label: "location", Base: engine.BaseSubjectRef, Container: engine.ContainerScalar},
	}
	archetypeDefs := []engine.ArchetypeDef{
		{Label: "Tool", Slots: []engine.SlotDef{
			{Traittype: "damage"}, {Traittype: "weight"}, {Traittype: "color"},
		}},
		{Label: "Place", Slots: []engine.SlotDef{{Traittype: "color"}}},
		{Label: "Settlement", Bases: []string{"Place"}},
		{Label: "MerchantKind", Slots: []engine.SlotDef{{Traittype: "location"}}},
		{Label: "Worker", Slots: []engine.SlotDef{{Traittype: "location"}}},
	}
	return reg.Register(traittypeDefs, archetypeDefs)
}

func mustState(s *engine.State, err error) *engine.State {
	if err != nil {
		panic(err)
	}
	return s
}

func mustBelief(b *engine.Belief, err error) *engine.Belief {
	if err != nil {
		panic(err)
	}
	return b
}
