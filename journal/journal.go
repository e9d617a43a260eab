// Package journal implements a single-sequence edit log: a contiguous,
// gap-free list of (logical_position, slice) entries that reconstructs a
// logical sequence after a series of breakpoint replacements, with O(log n)
// random access.  It is grounded on the "inline sequence journal" design
// described in the original C++ sources this package's semantics were
// distilled from (see SPEC_FULL.md §4.B).
package journal

import (
	"sort"

	"github.com/grailbio/jst/errkind"
)

// Entry is one segment of the journal's logical sequence: a contiguous
// slice of bytes beginning at logical Position.  Seq either aliases the
// Journal's source (for reference entries) or owns bytes recorded by
// Record (for replacement entries) — both are plain []byte, so no
// proxy-reference type is needed here.
type Entry struct {
	Position int64
	Seq      []byte
}

// Breakpoint is a half-open logical range [Low, High) to replace.
type Breakpoint struct {
	Low, High int64
}

// Span is the number of logical positions a Breakpoint replaces.
func (b Breakpoint) Span() int64 { return b.High - b.Low }

// Journal is a contiguous, gap-free list of Entry plus a terminal sentinel
// entry (empty Seq) recording the current logical size.  The first entry,
// if any, always starts at position 0; invariant J1 (no gaps, no overlap)
// holds after every Record call.
type Journal struct {
	source  []byte
	entries []Entry // entries[len-1] is the sentinel.
}

// New returns a Journal over source with a single entry spanning the whole
// source (or none, if source is empty) plus the terminal sentinel.
func New(source []byte) *Journal {
	j := &Journal{source: source}
	if len(source) > 0 {
		j.entries = append(j.entries, Entry{Position: 0, Seq: source})
	}
	j.entries = append(j.entries, Entry{Position: int64(len(source))})
	return j
}

// Source returns the journal's reference sequence, unmodified by Record.
func (j *Journal) Source() []byte { return j.source }

// Size returns the logical length of the journal's sequence.
func (j *Journal) Size() int64 { return j.entries[len(j.entries)-1].Position }

// Entries returns the journal's entries, excluding the terminal sentinel.
// The returned slice must not be mutated.
func (j *Journal) Entries() []Entry { return j.entries[:len(j.entries)-1] }

// Clone returns an independent copy of j; the source is shared by
// reference (it is immutable) but the entry list is copied, so Record on
// the clone does not affect j.
func (j *Journal) Clone() *Journal {
	entries := make([]Entry, len(j.entries))
	copy(entries, j.entries)
	return &Journal{source: j.source, entries: entries}
}

// LowerBound returns the index of the first entry with Position >= k.
func (j *Journal) LowerBound(k int64) int {
	es := j.Entries()
	return sort.Search(len(es), func(i int) bool { return es[i].Position >= k })
}

// UpperBound returns the index of the first entry with Position > k.
func (j *Journal) UpperBound(k int64) int {
	es := j.Entries()
	return sort.Search(len(es), func(i int) bool { return es[i].Position > k })
}

// Find returns the index of the entry starting exactly at k, or -1.
func (j *Journal) Find(k int64) int {
	es := j.Entries()
	i := j.LowerBound(k)
	if i < len(es) && es[i].Position == k {
		return i
	}
	return -1
}

// entryContaining returns the index (into Entries()) of the entry that
// contains logical position pos, or -1 if the journal has no entries
// (empty source, untouched).  pos must lie in [0, Size()].
func (j *Journal) entryContaining(pos int64) int {
	es := j.Entries()
	if len(es) == 0 {
		return -1
	}
	i := j.UpperBound(pos) - 1
	if i < 0 {
		i = 0
	}
	return i
}

// At returns the byte at logical position pos.
func (j *Journal) At(pos int64) byte {
	i := j.entryContaining(pos)
	e := j.Entries()[i]
	return e.Seq[pos-e.Position]
}

// Slice materialises the logical bytes in [lo, hi) as a freshly allocated
// slice, copying across entry boundaries as needed.
func (j *Journal) Slice(lo, hi int64) []byte {
	if lo >= hi {
		return nil
	}
	out := make([]byte, 0, hi-lo)
	es := j.Entries()
	i := j.entryContaining(lo)
	cur := lo
	for cur < hi {
		e := es[i]
		end := e.Position + int64(len(e.Seq))
		segEnd := hi
		if end < segEnd {
			segEnd = end
		}
		out = append(out, e.Seq[cur-e.Position:segEnd-e.Position]...)
		cur = segEnd
		i++
	}
	return out
}

// splitAt splits the entry containing pos into a prefix ending at pos and
// a suffix starting at pos, without mutating the journal.  idx is the
// index (into Entries()) of the entry that was split, or -1 if the
// journal has no entries.
func (j *Journal) splitAt(pos int64) (prefix, suffix Entry, idx int) {
	idx = j.entryContaining(pos)
	if idx < 0 {
		return Entry{Position: 0}, Entry{Position: pos}, -1
	}
	e := j.Entries()[idx]
	offset := pos - e.Position
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(e.Seq)) {
		offset = int64(len(e.Seq))
	}
	return Entry{Position: e.Position, Seq: e.Seq[:offset]}, Entry{Position: pos, Seq: e.Seq[offset:]}, idx
}

func prefixThrough(es []Entry, idx int) []Entry {
	if idx < 0 {
		return es[:0]
	}
	return es[:idx]
}

func suffixAfter(es []Entry, idx int) []Entry {
	if idx < 0 {
		return es[0:]
	}
	return es[idx+1:]
}

// Record replaces the logical range [bp.Low, bp.High) with alt, and
// returns the index (into the post-mutation Entries()) of the inserted alt
// entry, or — if alt is empty — of the entry that resumes immediately
// after bp.Low (the journal's own sentinel index if nothing follows).
// After Record returns, invariant J1 holds.
func (j *Journal) Record(bp Breakpoint, alt []byte) (int, error) {
	if bp.Low < 0 || bp.High < bp.Low || bp.High > j.Size() {
		return 0, errkind.New(errkind.OutOfBoundsBreakpoint,
			"journal: breakpoint [%d,%d) out of bounds for size %d", bp.Low, bp.High, j.Size())
	}
	es := j.Entries()
	lowPrefix, _, lowIdx := j.splitAt(bp.Low)
	_, highSuffix, highIdx := j.splitAt(bp.High)

	newEntries := append([]Entry{}, prefixThrough(es, lowIdx)...)
	if len(lowPrefix.Seq) > 0 {
		newEntries = append(newEntries, lowPrefix)
	}

	resultIdx := -1
	if len(alt) > 0 {
		newEntries = append(newEntries, Entry{Position: bp.Low, Seq: alt})
		resultIdx = len(newEntries) - 1
	}

	tailStart := len(newEntries)
	var tail []Entry
	if len(highSuffix.Seq) > 0 {
		tail = append(tail, highSuffix)
	}
	tail = append(tail, suffixAfter(es, highIdx)...)

	delta := int64(len(alt)) - bp.Span()
	for i := range tail {
		tail[i].Position += delta
	}
	newEntries = append(newEntries, tail...)
	if resultIdx == -1 {
		resultIdx = tailStart
	}

	sentinelPos := j.entries[len(j.entries)-1].Position + delta
	newEntries = append(newEntries, Entry{Position: sentinelPos})

	j.entries = newEntries
	if resultIdx >= len(j.entries) {
		resultIdx = len(j.entries) - 1
	}
	return resultIdx, nil
}
