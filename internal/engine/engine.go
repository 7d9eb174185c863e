package engine

// Engine is the top-level handle an application holds: a Registry plus the
// two distinguished minds every mind tree is rooted under.
type Engine struct {
	Registry *Registry
	Logos    *Mind
	Eidos    *Mind
}

// New builds a fresh Engine with an empty Registry and a freshly created
// Logos/Eidos mind pair.
func New() *Engine {
	reg := NewRegistry()
	logos := reg.NewMind(nil, "logos", false)
	eidos := reg.NewEidos(logos, "eidos", false)
	return &Engine{Registry: reg, Logos: logos, Eidos: eidos}
}

// Register ingests traittype and archetype declarations.
func (e *Engine) Register(traittypes []TraittypeDef, archetypes []ArchetypeDef) error {
	return e.Registry.Register(traittypes, archetypes)
}

// Reset wipes the Registry and rebuilds Logos/Eidos.
func (e *Engine) Reset() {
	e.Registry.Reset()
	e.Logos = e.Registry.NewMind(nil, "logos", false)
	e.Eidos = e.Registry.NewEidos(e.Logos, "eidos", false)
}

// NewMind creates a mind under parent.
func (e *Engine) NewMind(parent *Mind, label string, temporal bool) *Mind {
	return e.Registry.NewMind(parent, label, temporal)
}
