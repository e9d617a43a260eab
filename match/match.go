// Package match implements exact-pattern matchers for use as a
// search.Matcher/search.ResumableMatcher: a plain Horspool matcher and a
// bit-parallel Shift-Or matcher able to save and restore its state across
// a tree branch point.  No available library covers exact multi-pattern
// string search (matchr, used elsewhere in this module, is an
// approximate/fuzzy distance metric, not an exact search), so these are
// hand-written against the standard library — see DESIGN.md.
package match

// Horspool is a non-resumable exact matcher using the Boyer-Moore-Horspool
// bad-character rule.
type Horspool struct {
	pattern []byte
	skip    [256]int
}

// NewHorspool builds a Horspool matcher for pattern.
func NewHorspool(pattern []byte) *Horspool {
	h := &Horspool{pattern: pattern}
	m := len(pattern)
	for i := range h.skip {
		h.skip[i] = m
	}
	for i := 0; i < m-1; i++ {
		h.skip[pattern[i]] = m - 1 - i
	}
	return h
}

// Feed scans buf for occurrences of the pattern and invokes onMatch with
// the offset (into buf) of each match found; it returns false if onMatch
// ever returns false, requesting early termination.
func (h *Horspool) Feed(buf []byte, onMatch func(offset int64) bool) bool {
	m := len(h.pattern)
	if m == 0 || len(buf) < m {
		return true
	}
	i := 0
	for i <= len(buf)-m {
		j := m - 1
		for j >= 0 && buf[i+j] == h.pattern[j] {
			j--
		}
		if j < 0 {
			if !onMatch(int64(i)) {
				return false
			}
			i++
			continue
		}
		i += h.skip[buf[i+m-1]]
	}
	return true
}

// Len returns the pattern's length.
func (h *Horspool) Len() int { return len(h.pattern) }

// Match implements search.Matcher.
func (h *Horspool) Match(buf []byte, onMatch func(offset int64) bool) bool {
	return h.Feed(buf, onMatch)
}

// WindowSize implements search.Matcher: Horspool needs exactly its pattern's
// own length of trailing context to find every match ending in a window.
func (h *Horspool) WindowSize() int { return len(h.pattern) }

// ShiftOrState is the bit-parallel automaton state a ShiftOr matcher
// carries across a branch point so a traversal can push/pop it instead of
// re-scanning from the pattern start.
type ShiftOrState struct {
	r uint64
}

// ShiftOr is a resumable exact matcher using the bit-parallel Shift-Or
// algorithm; patterns longer than 64 bytes are not supported.
type ShiftOr struct {
	pattern  []byte
	charMask [256]uint64
	accept   uint64
}

// NewShiftOr builds a Shift-Or matcher for pattern, which must be at most
// 64 bytes.
func NewShiftOr(pattern []byte) *ShiftOr {
	if len(pattern) == 0 || len(pattern) > 64 {
		panic("match: ShiftOr supports patterns of length 1..64")
	}
	so := &ShiftOr{pattern: pattern}
	for i := range so.charMask {
		so.charMask[i] = ^uint64(0)
	}
	for i, c := range pattern {
		so.charMask[c] &^= 1 << uint(i)
	}
	so.accept = 1 << uint(len(pattern)-1)
	return so
}

// Start returns the initial automaton state (no characters matched yet).
func (so *ShiftOr) Start() ShiftOrState { return ShiftOrState{r: ^uint64(0)} }

// Step advances state by one byte, returning the new state and whether a
// full match ends at this byte.
func (so *ShiftOr) Step(state ShiftOrState, b byte) (ShiftOrState, bool) {
	r := (state.r << 1) | so.charMask[b]
	matched := r&so.accept == 0
	return ShiftOrState{r: r}, matched
}

// Feed scans buf from state, invoking onMatch with the offset (into buf)
// one past each match's end, and returns the resulting state plus whether
// onMatch asked to continue.
func (so *ShiftOr) Feed(state ShiftOrState, buf []byte, onMatch func(offset int64) bool) (ShiftOrState, bool) {
	for i, b := range buf {
		var matched bool
		state, matched = so.Step(state, b)
		if matched {
			if !onMatch(int64(i) + 1) {
				return state, false
			}
		}
	}
	return state, true
}

// Len returns the pattern's length.
func (so *ShiftOr) Len() int { return len(so.pattern) }

// StartState implements search.ResumableMatcher.
func (so *ShiftOr) StartState() interface{} { return so.Start() }

// StepState implements search.ResumableMatcher.
func (so *ShiftOr) StepState(state interface{}, b byte) (interface{}, bool) {
	return so.Step(state.(ShiftOrState), b)
}
