// Package labelindex is an external collaborator over a Registry's label
// space: it scans free text for mentions of registered Subject and
// Archetype labels via a single Aho-Corasick automaton, filters candidate
// tokens through an English stopword list before they are ever considered,
// and backs a prefix-based Suggest lookup with a trie. None of this is
// consulted by trait resolution; it exists purely so callers outside the
// core can go from a blob of text or a partial string to label candidates.
package labelindex

import (
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/derekparker/trie/v3"
	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/aigan/internal/engine"
)

// canonicalize lowercases, keeps letters, digits, '-' and '\'', and
// collapses every other run of characters to a single space (dropping it
// at either end), so punctuation and spacing variants of
// the same label match as one pattern.
func canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	lastWasSpace := true
	for _, r := range s {
		c := unicode.ToLower(r)
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '\'' {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}
	result := out.String()
	return strings.TrimRight(result, " ")
}

// Kind distinguishes the two label namespaces a LabelIndex draws from.
type Kind int

const (
	KindSubject Kind = iota
	KindArchetype
)

// Entry is one registered label fed into the index.
type Entry struct {
	Label string
	ID    int64
	Kind  Kind
}

// Match is a label mention found in scanned text.
type Match struct {
	Start int
	End   int
	Text  string
	Entry Entry
}

// LabelIndex scans text for registered labels and offers prefix
// autocomplete over them. It is built once per snapshot of the label
// space via Build and is read-only afterward.
type LabelIndex struct {
	ac           *ahocorasick.Automaton
	patternToIdx []int // pattern id -> index into entries
	entries      []Entry
	stopwords    *stopwords.Stopwords
	prefixes     *trie.Trie
	byCanon      map[string][]string // canonical key -> original labels sharing it
}

// FromRegistry builds the entry list for every registered subject and
// archetype label and compiles a LabelIndex over it. A label bound to
// sid == 0 names an archetype rather than a subject (the shared label
// space a Registry maintains between the two).
func FromRegistry(reg *engine.Registry) (*LabelIndex, error) {
	labels := reg.Labels()
	entries := make([]Entry, 0, len(labels))
	for label, sid := range labels {
		if sid == 0 {
			entries = append(entries, Entry{Label: label, Kind: KindArchetype})
			continue
		}
		entries = append(entries, Entry{Label: label, ID: sid, Kind: KindSubject})
	}
	return Build(entries)
}

// Build compiles a LabelIndex over entries. Labels that canonicalize to a
// pure stopword (e.g. a single-word label that happens to be "the") are
// still indexed for scanning — stopword filtering only gates which matched
// spans of input text Scan reports, not which labels can be registered.
func Build(entries []Entry) (*LabelIndex, error) {
	idx := &LabelIndex{
		entries:   append([]Entry(nil), entries...),
		stopwords: stopwords.MustGet("en"),
		prefixes:  trie.New(),
		byCanon:   map[string][]string{},
	}

	patterns := make([]string, 0, len(entries))
	seen := map[string]int{}
	idx.patternToIdx = make([]int, 0, len(entries))
	for i, e := range entries {
		key := canonicalize(e.Label)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = len(patterns)
			patterns = append(patterns, key)
			idx.patternToIdx = append(idx.patternToIdx, i)
			idx.prefixes.Add(key, nil)
		}
		if !containsStr(idx.byCanon[key], e.Label) {
			idx.byCanon[key] = append(idx.byCanon[key], e.Label)
		}
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	idx.ac = automaton
	return idx, nil
}

// Scan finds every registered-label mention in text, skipping matches
// whose entire matched span is a single stopword token (so a one-letter
// archetype label named "a" doesn't light up on every article in prose).
func (idx *LabelIndex) Scan(text string) []Match {
	if idx.ac == nil {
		return nil
	}
	canon := canonicalize(text)
	origOffsets := buildOffsetMap(text)
	raw := idx.ac.FindAllOverlapping([]byte(canon))

	out := make([]Match, 0, len(raw))
	for _, m := range raw {
		matchedCanon := canon[m.Start:m.End]
		if idx.stopwords.Contains(matchedCanon) {
			continue
		}
		if m.PatternID < 0 || m.PatternID >= len(idx.patternToIdx) {
			continue
		}
		entry := idx.entries[idx.patternToIdx[m.PatternID]]
		start := mapOffset(m.Start, origOffsets, len(text))
		end := mapOffset(m.End, origOffsets, len(text))
		if start >= end || end > len(text) {
			continue
		}
		out = append(out, Match{Start: start, End: end, Text: text[start:end], Entry: entry})
	}
	return out
}

// Suggest returns up to limit registered labels whose canonical form
// starts with prefix, nearest-match-first (shortest label, then
// alphabetical, for a stable ordering).
func (idx *LabelIndex) Suggest(prefix string, limit int) []string {
	key := canonicalize(prefix)
	if key == "" {
		return nil
	}
	canonKeys := idx.prefixes.PrefixSearch(key)
	out := make([]string, 0, len(canonKeys))
	seen := map[string]bool{}
	for _, ck := range canonKeys {
		for _, label := range idx.byCanon[ck] {
			if seen[label] {
				continue
			}
			seen[label] = true
			out = append(out, label)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// buildOffsetMap maps each byte position in the canonicalized form of s
// back to the originating byte position in s.
func buildOffsetMap(s string) []int {
	mapping := make([]int, 0, len(s)+1)
	lastWasSpace := true
	pos := 0
	for _, r := range s {
		width := len(string(r))
		c := unicode.ToLower(r)
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '\'' {
			for i := 0; i < width; i++ {
				mapping = append(mapping, pos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, pos)
			lastWasSpace = true
		}
		pos += width
	}
	mapping = append(mapping, pos)
	return mapping
}

func mapOffset(canonOffset int, mapping []int, origLen int) int {
	if canonOffset < 0 {
		return 0
	}
	if canonOffset >= len(mapping) {
		return origLen
	}
	return mapping[canonOffset]
}
