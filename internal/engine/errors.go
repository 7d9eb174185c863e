package engine

import "errors"

// Error taxonomy: callers compare with errors.Is, the
// wrapping fmt.Errorf call at each site folds in the offending label or id.
var (
	// Schema/registration errors.
	ErrUnknownArchetype   = errors.New("engine: unknown archetype")
	ErrUnknownTraittype   = errors.New("engine: unknown traittype")
	ErrLabelCollision     = errors.New("engine: label already bound to a different subject or archetype")
	ErrSlotViolation      = errors.New("engine: trait slot not permitted by any reachable archetype")
	ErrArchetypeCycle     = errors.New("engine: cycle in archetype base DAG")
	ErrMaterConflict      = errors.New("engine: subject already bound to a different mater")

	// Reference errors.
	ErrWrongArchetype     = errors.New("engine: subject does not carry the required archetype")
	ErrBeliefAsSubject    = errors.New("engine: a Belief cannot be used where a Subject is required")
	ErrCrossMindReference = errors.New("engine: cross-mind subject reference requires an About indirection")

	// Invariant violations.
	ErrStateLocked         = errors.New("engine: state is locked")
	ErrBeliefLocked        = errors.New("engine: belief is locked")
	ErrPromotionOutsideEidos = errors.New("engine: promotions are only permitted in the eidos subtree")
	ErrNonMonotonicTT      = errors.New("engine: transaction time must strictly increase along a state chain")
	ErrUnlockedBase        = errors.New("engine: a base must be locked before it can be used")
	ErrNotPromotable       = errors.New("engine: belief is not promotable")

	// Resolution errors.
	ErrAmbiguousResolution = errors.New("engine: multiple candidate beliefs require disambiguation")
	ErrUnrelatedResolution = errors.New("engine: resolution target is unrelated to the resolving state")
	ErrConvergenceNotLocked = errors.New("engine: convergence must be locked before registering a resolution")
	ErrNotComponentState   = errors.New("engine: chosen state is not a component of the convergence")

	// Serializer errors.
	ErrMissingReferent    = errors.New("engine: serialized document references an unknown id")
	ErrVersionMismatch    = errors.New("engine: serialized document version mismatch")
)
