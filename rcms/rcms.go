// Package rcms implements the Referentially Compressed Multisequence: a
// reference source plus an ordered index of variants, each carrying a
// per-sample bitcov.Coverage, keyed by breakend (position, kind) as
// described in SPEC_FULL.md §4.C.
package rcms

import (
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/errkind"
)

// BreakendKind tags one endpoint of a Breakpoint.
type BreakendKind int

// Breakend kinds.
const (
	KindNil BreakendKind = iota
	KindSNVA
	KindSNVC
	KindSNVG
	KindSNVT
	KindInsertionLow
	KindDeletionLow
	KindDeletionHigh
)

// kindRank fixes a total order on BreakendKind for (position, kind)
// comparisons; the exact order is arbitrary but must be total and stable.
func kindRank(k BreakendKind) int {
	switch k {
	case KindNil:
		return 0
	case KindDeletionHigh:
		return 1
	case KindSNVA:
		return 2
	case KindSNVC:
		return 3
	case KindSNVG:
		return 4
	case KindSNVT:
		return 5
	case KindInsertionLow:
		return 6
	case KindDeletionLow:
		return 7
	default:
		return 8
	}
}

func snvKind(base byte) BreakendKind {
	switch base {
	case 'A':
		return KindSNVA
	case 'C':
		return KindSNVC
	case 'G':
		return KindSNVG
	case 'T':
		return KindSNVT
	default:
		return KindSNVA
	}
}

// DeltaKind classifies a Variant the way Store.Insert dispatches on it:
// a sum type in place of visitor polymorphism.
type DeltaKind int

// DeltaKind values.
const (
	DeltaSNV DeltaKind = iota
	DeltaInsertion
	DeltaDeletion
	DeltaIndel
)

// Breakpoint is the half-open reference interval [Low, High) a variant
// replaces; Low == High denotes a pure insertion point.
type Breakpoint struct {
	Low, High int64
}

// Span is the number of reference bases the breakpoint replaces.
func (b Breakpoint) Span() int64 { return b.High - b.Low }

// Variant is one stored record: a breakpoint, the bases that replace it,
// its per-sample coverage, and the delta kind it was classified as.
type Variant struct {
	ID int
	Breakpoint
	Alt      []byte
	Coverage bitcov.Coverage
	Kind     DeltaKind
}

// breakendNode is one entry of the ordered breakend index; it implements
// llrb.Comparable so Store can keep an llrb.Tree-backed index alongside
// the sorted slice used for range queries (grounded on
// encoding/bampair/shard_info.go's llrb.Tree-keyed-by-coordinate index).
type breakendNode struct {
	pos       int64
	kind      BreakendKind
	variantID int // -1 for the two nil sentinels
}

// Compare implements llrb.Comparable.
func (n breakendNode) Compare(c2 llrb.Comparable) int {
	o := c2.(breakendNode)
	if n.pos != o.pos {
		if n.pos < o.pos {
			return -1
		}
		return 1
	}
	r1, r2 := kindRank(n.kind), kindRank(o.kind)
	if r1 != r2 {
		if r1 < r2 {
			return -1
		}
		return 1
	}
	return 0
}

// Store is the RCMS: an immutable-once-built source plus the breakend
// index and variant table.
type Store struct {
	source    []byte
	domain    bitcov.Domain
	breakends []breakendNode // sorted by (pos, kindRank); includes 2 nil sentinels
	variants  []Variant
	index     llrb.Tree // keyed by breakendNode, for O(log n) point Find
}

// New returns a Store over source with the coverage domain dom, and the
// two nil sentinel breakends at 0 and len(source).
func New(source []byte, dom bitcov.Domain) *Store {
	s := &Store{source: source, domain: dom}
	all := bitcov.New(dom)
	for i := dom.Min; i < dom.Max; i++ {
		all.Set(i, true)
	}
	s.variants = append(s.variants,
		Variant{ID: 0, Breakpoint: Breakpoint{Low: 0, High: 0}, Coverage: all},
		Variant{ID: 1, Breakpoint: Breakpoint{Low: int64(len(source)), High: int64(len(source))}, Coverage: all},
	)
	s.addBreakend(breakendNode{pos: 0, kind: KindNil, variantID: 0})
	s.addBreakend(breakendNode{pos: int64(len(source)), kind: KindNil, variantID: 1})
	return s
}

func (s *Store) addBreakend(n breakendNode) {
	s.breakends = append(s.breakends, n)
	sort.SliceStable(s.breakends, func(i, j int) bool {
		a, b := s.breakends[i], s.breakends[j]
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		return kindRank(a.kind) < kindRank(b.kind)
	})
	s.index.Insert(n)
}

func classify(bp Breakpoint, alt []byte) DeltaKind {
	span := bp.Span()
	switch {
	case span == 0 && len(alt) > 0:
		return DeltaInsertion
	case span > 0 && len(alt) == 0:
		return DeltaDeletion
	case span == 1 && len(alt) == 1:
		return DeltaSNV
	default:
		return DeltaIndel
	}
}

// Insert classifies (bp, alt) as SNV/insertion/deletion/indel and records
// it with the given coverage, returning the index of the new breakend
// (its low-side, branchable breakend for insertions/SNVs/indels, or its
// low breakend for pure deletions).  It fails with a DomainMismatch error
// if coverage's domain differs from the store's, or an
// OutOfBoundsBreakpoint error if the breakpoint does not fit the source.
func (s *Store) Insert(bp Breakpoint, alt []byte, coverage bitcov.Coverage) (int, error) {
	if coverage.Domain() != s.domain {
		return 0, errkind.New(errkind.DomainMismatch,
			"rcms: coverage domain %+v does not match store domain %+v", coverage.Domain(), s.domain)
	}
	if bp.Low < 0 || bp.High < bp.Low || bp.High > int64(len(s.source)) {
		return 0, errkind.New(errkind.OutOfBoundsBreakpoint,
			"rcms: breakpoint [%d,%d) out of bounds for source of length %d", bp.Low, bp.High, len(s.source))
	}
	kind := classify(bp, alt)
	id := len(s.variants)
	s.variants = append(s.variants, Variant{ID: id, Breakpoint: bp, Alt: alt, Coverage: coverage, Kind: kind})

	var lowKind BreakendKind
	switch kind {
	case DeltaSNV:
		lowKind = snvKind(alt[0])
	case DeltaInsertion, DeltaIndel:
		lowKind = KindInsertionLow
	case DeltaDeletion:
		lowKind = KindDeletionLow
	}
	s.addBreakend(breakendNode{pos: bp.Low, kind: lowKind, variantID: id})
	if kind == DeltaDeletion || kind == DeltaIndel {
		s.addBreakend(breakendNode{pos: bp.High, kind: KindDeletionHigh, variantID: id})
	}
	for i := s.LowerBound(bp.Low, lowKind); i < len(s.breakends); i++ {
		if s.breakends[i].variantID == id {
			return i, nil
		}
	}
	return s.Find(bp.Low, lowKind), nil
}

// HasConflicts reports whether some existing variant at bp.Low has
// coverage intersecting coverage.
func (s *Store) HasConflicts(bp Breakpoint, coverage bitcov.Coverage) bool {
	lo := sort.Search(len(s.breakends), func(i int) bool { return s.breakends[i].pos >= bp.Low })
	hi := sort.Search(len(s.breakends), func(i int) bool { return s.breakends[i].pos > bp.Low })
	for i := lo; i < hi; i++ {
		n := s.breakends[i]
		if n.kind == KindNil || n.kind == KindDeletionHigh {
			continue
		}
		v := s.variants[n.variantID]
		if !v.Coverage.IntersectionIsEmpty(coverage) {
			return true
		}
	}
	return false
}

// Source returns the reference sequence.
func (s *Store) Source() []byte { return s.source }

// Size returns the number of breakend entries (including the two nil
// sentinels).
func (s *Store) Size() int { return len(s.breakends) }

// CoverageDomain returns the store's sample domain.
func (s *Store) CoverageDomain() bitcov.Domain { return s.domain }

// Variants returns the store's variants, excluding the two nil sentinels
// New installs at construction, in insertion order.
func (s *Store) Variants() []Variant {
	return append([]Variant{}, s.variants[2:]...)
}

// Reserve pre-allocates capacity for n additional variants in the variant
// table, so that the next n Insert calls do not regrow it; the breakend
// index is not pre-allocated.
func (s *Store) Reserve(n int) {
	if cap(s.variants)-len(s.variants) < n {
		grown := make([]Variant, len(s.variants), len(s.variants)+n)
		copy(grown, s.variants)
		s.variants = grown
	}
}

// Begin returns the index of the first breakend (the nil sentinel at 0).
func (s *Store) Begin() int { return 0 }

// End returns one past the index of the last breakend.
func (s *Store) End() int { return len(s.breakends) }

// LowerBound returns the index of the first breakend whose (position,
// kind) is not less than (pos, kind).
func (s *Store) LowerBound(pos int64, kind BreakendKind) int {
	key := breakendNode{pos: pos, kind: kind}
	return sort.Search(len(s.breakends), func(i int) bool { return s.breakends[i].Compare(key) >= 0 })
}

// UpperBound returns the index of the first breakend whose (position,
// kind) is greater than (pos, kind).
func (s *Store) UpperBound(pos int64, kind BreakendKind) int {
	key := breakendNode{pos: pos, kind: kind}
	return sort.Search(len(s.breakends), func(i int) bool { return s.breakends[i].Compare(key) > 0 })
}

// Find returns the index of the breakend exactly at (pos, kind), or -1.
func (s *Store) Find(pos int64, kind BreakendKind) int {
	key := breakendNode{pos: pos, kind: kind}
	if s.index.Get(key) == nil {
		return -1
	}
	i := s.LowerBound(pos, kind)
	if i < len(s.breakends) && s.breakends[i].pos == pos && s.breakends[i].kind == kind {
		return i
	}
	return -1
}

// JumpToMate returns the index of i's paired breakend for a deletion or
// indel (low<->high), and false for SNVs and pure insertions.
func (s *Store) JumpToMate(i int) (int, bool) {
	n := s.breakends[i]
	v := s.variants[n.variantID]
	switch n.kind {
	case KindDeletionLow:
		return s.Find(v.High, KindDeletionHigh), true
	case KindDeletionHigh:
		if v.Kind == DeltaIndel {
			return s.Find(v.Low, KindInsertionLow), true
		}
		return s.Find(v.Low, KindDeletionLow), true
	case KindInsertionLow:
		if v.Kind == DeltaIndel {
			return s.Find(v.High, KindDeletionHigh), true
		}
	}
	return -1, false
}

// Delta is the dereferenced payload of a breakend: the variant it
// belongs to, reconstructed on demand (a "delta proxy").
type Delta struct {
	Breakpoint
	Alt      []byte
	Coverage bitcov.Coverage
	Kind     DeltaKind
	Nil      bool // true for the two sentinel breakends
}

// At dereferences breakend index i.
func (s *Store) At(i int) Delta {
	n := s.breakends[i]
	if n.kind == KindNil {
		return Delta{Nil: true}
	}
	v := s.variants[n.variantID]
	return Delta{Breakpoint: v.Breakpoint, Alt: v.Alt, Coverage: v.Coverage, Kind: v.Kind}
}

// BreakendAt returns the raw (position, kind) of breakend index i.
func (s *Store) BreakendAt(i int) (int64, BreakendKind) {
	n := s.breakends[i]
	return n.pos, n.kind
}

// VariantIDAt returns the variant id breakend index i belongs to.
func (s *Store) VariantIDAt(i int) int {
	return s.breakends[i].variantID
}

// Reversed returns a new Store over the reverse-complement-free mirror of
// s: the source reversed byte-for-byte and every breakpoint reflected
// around len(source); coverages are carried over unchanged.  Used for
// two-sided seed extension.
func (s *Store) Reversed() *Store {
	n := int64(len(s.source))
	revSrc := make([]byte, len(s.source))
	for i, b := range s.source {
		revSrc[len(s.source)-1-i] = b
	}
	out := New(revSrc, s.domain)
	for _, v := range s.variants[2:] { // skip the two nil sentinels New() already added
		newLow := n - v.High
		newHigh := n - v.Low
		alt := reverseBytes(v.Alt)
		if _, err := out.Insert(Breakpoint{Low: newLow, High: newHigh}, alt, v.Coverage); err != nil {
			// Reversing a valid store cannot produce an invalid breakpoint or a
			// domain mismatch; a failure here means s itself was corrupt.
			panic(err)
		}
	}
	return out
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// Combine merges a and b, two stores over the same source, into one store
// whose coverage domain is the concatenation of a's and b's (a's samples
// occupy the low indices, b's the high ones) and whose variants are the
// union of both inputs — joining two independently-built per-cohort RCMSes
// into one.  This is unrelated to the sequence-tree node-coalescing
// adaptor seqtree.Merge implements; see DESIGN.md.  It fails with an
// OutOfBoundsBreakpoint error if a and b do not share a source.
func Combine(a, b *Store) (*Store, error) {
	if string(a.source) != string(b.source) {
		return nil, errkind.New(errkind.OutOfBoundsBreakpoint, "rcms: Combine requires stores over the same source")
	}
	combined := bitcov.Domain{Min: 0, Max: a.domain.Size() + b.domain.Size()}
	out := New(a.source, combined)
	shiftTo := func(c bitcov.Coverage, base int32) bitcov.Coverage {
		nc := bitcov.New(combined)
		c.Iterate(func(i int32) bool {
			nc.Set(base+(i-c.Domain().Min), true)
			return true
		})
		return nc
	}
	for _, v := range a.variants[2:] {
		if _, err := out.Insert(v.Breakpoint, v.Alt, shiftTo(v.Coverage, 0)); err != nil {
			return nil, err
		}
	}
	for _, v := range b.variants[2:] {
		if _, err := out.Insert(v.Breakpoint, v.Alt, shiftTo(v.Coverage, a.domain.Size())); err != nil {
			return nil, err
		}
	}
	return out, nil
}
