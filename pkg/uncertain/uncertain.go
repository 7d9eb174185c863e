// Package uncertain provides the tagged value type the engine uses in place
// of a language's null-or-exception channel for "I don't know this yet" and
// "there are several possible values, weighted by likelihood".
package uncertain

import "sort"

// Tag discriminates the three shapes a resolved trait value can take.
type Tag int

const (
	// TagKnown is an ordinary resolved value (Scalar holds it).
	TagKnown Tag = iota
	// TagUnknown is the "exists but not yet observed" sentinel.
	TagUnknown
	// TagUncertain carries an ordered list of (value, certainty) alternatives.
	TagUncertain
)

// Alternative is one possible outcome of an uncertain trait, with an
// optional certainty weight. An alternative without a certainty annotation
// (HasCertainty false) can still appear in a TagUncertain result next to
// weighted ones.
type Alternative struct {
	Value        interface{}
	Certainty    float64
	HasCertainty bool
}

// Value is the result type returned by trait resolution.
type Value struct {
	Tag          Tag
	Scalar       interface{}
	Alternatives []Alternative
}

// Unknown is the distinguished "trait exists, value not yet observed" sentinel.
var Unknown = Value{Tag: TagUnknown}

// Known wraps an ordinary value.
func Known(v interface{}) Value {
	return Value{Tag: TagKnown, Scalar: v}
}

// New builds a TagUncertain value from a set of weighted alternatives.
// Sum of certainties must be <= 1; New does not check this, and neither
// does the engine's promotion assembly that calls it.
func New(alts []Alternative) Value {
	cp := make([]Alternative, len(alts))
	copy(cp, alts)
	return Value{Tag: TagUncertain, Alternatives: cp}
}

// IsUnknown reports whether this is the Unknown sentinel.
func (v Value) IsUnknown() bool { return v.Tag == TagUnknown }

// IsUncertain reports whether this value carries multiple weighted alternatives.
func (v Value) IsUncertain() bool { return v.Tag == TagUncertain }

// IsZero reports whether v is bit-for-bit the zero Value. Note that
// Known(nil) is indistinguishable from the zero Value under this check.
func (v Value) IsZero() bool {
	return v.Tag == TagKnown && v.Scalar == nil && v.Alternatives == nil
}

// Equal performs a best-effort comparison used by the cache-stability test
// property: repeated resolutions of the same trait return values that
// compare equal. It compares by tag, scalar (via ==, which suffices for the engine's
// comparable scalar/*Subject/*Mind payloads), and alternative sets taken
// in ascending-certainty order (unweighted alternatives first), so listing
// alternatives of distinct certainty in another order never breaks equality.
func (v Value) Equal(other Value) bool {
	if v.Tag != other.Tag {
		return false
	}
	switch v.Tag {
	case TagUnknown:
		return true
	case TagKnown:
		return scalarEqual(v.Scalar, other.Scalar)
	case TagUncertain:
		if len(v.Alternatives) != len(other.Alternatives) {
			return false
		}
		a := sortedAlternatives(v.Alternatives)
		b := sortedAlternatives(other.Alternatives)
		for i := range a {
			if !scalarEqual(a[i].Value, b[i].Value) ||
				a[i].HasCertainty != b[i].HasCertainty ||
				a[i].Certainty != b[i].Certainty {
				return false
			}
		}
		return true
	}
	return false
}

func scalarEqual(a, b interface{}) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func sortedAlternatives(in []Alternative) []Alternative {
	out := make([]Alternative, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		return certaintyKey(out[i]) < certaintyKey(out[j])
	})
	return out
}

func certaintyKey(a Alternative) float64 {
	if a.HasCertainty {
		return a.Certainty
	}
	return -1
}
