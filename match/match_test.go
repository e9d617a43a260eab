package match_test

import (
	"testing"

	"github.com/grailbio/jst/match"
)

func TestHorspoolFindsAllOccurrences(t *testing.T) {
	h := match.NewHorspool([]byte("abab"))
	var offsets []int64
	h.Feed([]byte("xabababy"), func(offset int64) bool {
		offsets = append(offsets, offset)
		return true
	})
	if len(offsets) != 2 || offsets[0] != 1 || offsets[1] != 3 {
		t.Errorf("Feed found offsets %v, want [1 3]", offsets)
	}
}

func TestHorspoolWindowSizeIsPatternLength(t *testing.T) {
	h := match.NewHorspool([]byte("abcde"))
	if got, want := h.WindowSize(), 5; got != want {
		t.Errorf("WindowSize() = %d, want %d", got, want)
	}
}

func TestHorspoolMatchStopsEarly(t *testing.T) {
	h := match.NewHorspool([]byte("aa"))
	n := 0
	h.Match([]byte("aaaa"), func(offset int64) bool {
		n++
		return false
	})
	if n != 1 {
		t.Errorf("Match should have stopped after the first onMatch returned false, called %d times", n)
	}
}

func TestShiftOrMatchesLikeHorspool(t *testing.T) {
	pattern := []byte("needle")
	haystack := []byte("find the needle in the haystack, needle")
	so := match.NewShiftOr(pattern)
	state := so.Start()
	var shiftOrEnds []int64
	state, _ = so.Feed(state, haystack, func(offset int64) bool {
		shiftOrEnds = append(shiftOrEnds, offset)
		return true
	})

	h := match.NewHorspool(pattern)
	var horspoolStarts []int64
	h.Feed(haystack, func(offset int64) bool {
		horspoolStarts = append(horspoolStarts, offset)
		return true
	})

	if len(shiftOrEnds) != len(horspoolStarts) {
		t.Fatalf("ShiftOr found %d matches, Horspool found %d", len(shiftOrEnds), len(horspoolStarts))
	}
	for i := range shiftOrEnds {
		if shiftOrEnds[i] != horspoolStarts[i]+int64(len(pattern)) {
			t.Errorf("match %d: ShiftOr end offset %d, want start %d + pattern length %d", i, shiftOrEnds[i], horspoolStarts[i], len(pattern))
		}
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"same", "same", 0},
		{"", "abc", 3},
	}
	for _, c := range cases {
		if got := match.EditDistance([]byte(c.a), []byte(c.b)); got != c.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestLevenshteinMatcherFindsApproximateMatch(t *testing.T) {
	m := &match.LevenshteinMatcher{Pattern: []byte("banana"), MaxDist: 1}
	var offsets []int64
	m.Match([]byte("xxbananaxx"), func(offset int64) bool {
		offsets = append(offsets, offset)
		return true
	})
	found := false
	for _, o := range offsets {
		if o == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an exact (0-edit) match at offset 2 in offsets %v", offsets)
	}
}

func TestLevenshteinMatcherRejectsTooManyEdits(t *testing.T) {
	m := &match.LevenshteinMatcher{Pattern: []byte("banana"), MaxDist: 0}
	var offsets []int64
	m.Match([]byte("xxbnanaxx"), func(offset int64) bool { // one deletion away from "banana"
		offsets = append(offsets, offset)
		return true
	})
	if len(offsets) != 0 {
		t.Errorf("MaxDist=0 should reject a 1-edit match, got offsets %v", offsets)
	}
}

func TestLevenshteinMatcherWindowSize(t *testing.T) {
	m := &match.LevenshteinMatcher{Pattern: []byte("abcd"), MaxDist: 2}
	if got, want := m.WindowSize(), len("abcd")+2*2; got != want {
		t.Errorf("WindowSize() = %d, want %d", got, want)
	}
}
