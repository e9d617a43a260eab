// Package seqtree implements the Journaled Sequence Tree: a lazy tree over
// an rcms.Store whose nodes are produced on demand by Advance/Take rather
// than materialised, with a family of composable adaptors (Coloured, Trim,
// PruneUnsupported, LeftExtend, Chunk, Seek, Merge, Reverse) layered on top
// of the base walker, per SPEC_FULL.md §4.D.
package seqtree

import (
	"sync"

	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/journal"
	"github.com/grailbio/jst/rcms"
)

// TreePosition is the ordered list of breakend indices taken (via Take)
// along the root path to a node; Seek replays exactly this path.  Advance
// does not extend it, so a node reached by Take and every node reached from
// it by Advance alone share one TreePosition, and Seek returns the node
// directly after the last taken variant.
type TreePosition struct {
	Path []int
}

func (p TreePosition) clone() TreePosition {
	out := make([]int, len(p.Path))
	copy(out, p.Path)
	return TreePosition{Path: out}
}

func (p TreePosition) equal(o TreePosition) bool {
	if len(p.Path) != len(o.Path) {
		return false
	}
	for i := range p.Path {
		if p.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// Node is one position in the tree: a cursor into the underlying store's
// reference coordinates, the journal accumulated by the edits taken to
// reach it, the coverage of samples still "live" on this path, and the
// TreePosition that reaches it.
type Node struct {
	store    *rcms.Store
	j        *journal.Journal
	coverage bitcov.Coverage
	cursor   int64 // reference (source) coordinate
	end      int64 // cursor ceiling this node's traversal may not cross
	delta    int64 // logicalPos = cursor + delta
	skipPos  int64 // source positions <= skipPos have already offered their pending set
	pos      TreePosition
}

// Root returns the tree's root node: cursor 0, the full reference journal,
// and the given starting coverage (typically the store's full domain). Its
// traversal ceiling is the whole source; Chunk narrows it per chunk.
func Root(store *rcms.Store, coverage bitcov.Coverage) Node {
	srcLen := int64(len(store.Source()))
	return Node{store: store, j: journal.New(store.Source()), coverage: coverage, cursor: 0, end: srcLen, delta: 0, skipPos: -1}
}

// Store returns the node's underlying store.
func (n Node) Store() *rcms.Store { return n.store }

// Coverage returns the coverage of samples live on the path to n.
func (n Node) Coverage() bitcov.Coverage { return n.coverage }

// Journal returns the journal accumulated by the edits taken to reach n.
func (n Node) Journal() *journal.Journal { return n.j }

// TreePosition returns the path used to reach n, suitable for Seek.
func (n Node) TreePosition() TreePosition { return n.pos.clone() }

// LogicalPos returns n's position in the sample sequence the path to n has
// built so far (as opposed to Cursor, which is in reference coordinates).
func (n Node) LogicalPos() int64 { return n.cursor + n.delta }

// Cursor returns n's reference-coordinate position.
func (n Node) Cursor() int64 { return n.cursor }

// AtEnd reports whether n has reached its traversal ceiling (the whole
// reference for a root node, a chunk's own boundary for a Chunk node) with
// no further pending variants.
func (n Node) AtEnd() bool {
	return n.cursor >= n.end && len(n.PendingVariants()) == 0
}

// PendingVariants returns the indices of breakends at n.cursor that are
// branch points from n: non-sentinel, non-closing, with coverage
// intersecting n's.
func (n Node) PendingVariants() []int {
	return n.pendingAt(n.cursor)
}

func (n Node) pendingAt(pos int64) []int {
	if pos == n.skipPos {
		return nil
	}
	lo := n.store.LowerBound(pos, rcms.KindNil)
	hi := n.store.UpperBound(pos, rcms.BreakendKind(1<<30)) // sentinel high kind: everything at pos
	var out []int
	for i := lo; i < hi; i++ {
		p, kind := n.store.BreakendAt(i)
		if p != pos {
			break
		}
		if kind == rcms.KindNil || kind == rcms.KindDeletionHigh {
			continue
		}
		delta := n.store.At(i)
		if !delta.Coverage.IntersectionIsEmpty(n.coverage) {
			out = append(out, i)
		}
	}
	return out
}

// Coloured returns the coverage a reference child (the result of Advance)
// inherits: n's own coverage with every sample pending at n's cursor
// excluded, since those samples take an alternative instead of staying on
// the reference path.  Take narrows coverage symmetrically for the
// alternative side (n.coverage AND the taken variant's coverage).  This is
// the coloured() adaptor of spec.md §4.D.2.
func (n Node) Coloured() bitcov.Coverage {
	out := n.coverage
	for _, i := range n.PendingVariants() {
		out = out.AndNot(n.store.At(i).Coverage)
	}
	return out
}

// NextEventPos returns the reference coordinate of the next branch point
// strictly after n.cursor, or n.end if none remain before it; it is what
// Advance moves to when declining every variant pending at n.cursor
// itself.
func (n Node) NextEventPos() int64 {
	first := n.nextBreakendPosAfter(n.cursor)
	if first < 0 || first > n.end {
		return n.end
	}
	pos := first
	for pos <= n.end {
		if pos != n.skipPos && len(n.pendingAt(pos)) > 0 {
			return pos
		}
		next := n.nextBreakendPosAfter(pos)
		if next < 0 || next > n.end {
			return n.end
		}
		pos = next
	}
	return n.end
}

func (n Node) nextBreakendPosAfter(pos int64) int64 {
	i := n.store.UpperBound(pos, rcms.BreakendKind(1<<30))
	if i >= n.store.End() {
		return -1
	}
	p, _ := n.store.BreakendAt(i)
	return p
}

// Advance returns the child reached by declining every pending variant at
// n and walking to the next branch point (or n's own end boundary),
// recording nothing in the journal and narrowing coverage via Coloured.
// The bool is false once n is already AtEnd.
func (n Node) Advance() (Node, bool) {
	if n.AtEnd() {
		return n, false
	}
	refCoverage := n.Coloured()
	next := n.NextEventPos()
	out := n
	out.cursor = next
	out.coverage = refCoverage
	return out, true
}

// Take returns the child reached by applying the variant at pending
// breakend index i (one of PendingVariants()), recording its edit in the
// journal and narrowing coverage to the intersection with the variant's.
func (n Node) Take(i int) (Node, error) {
	delta := n.store.At(i)
	logicalBp := journal.Breakpoint{Low: delta.Low + n.delta, High: delta.High + n.delta}
	out := n
	out.j = n.j.Clone()
	if _, err := out.j.Record(logicalBp, delta.Alt); err != nil {
		return Node{}, err
	}
	out.coverage = n.coverage.And(delta.Coverage)
	span := delta.High - delta.Low
	out.delta = n.delta + int64(len(delta.Alt)) - span
	out.cursor = delta.High
	if span == 0 {
		out.skipPos = delta.High
	} else {
		out.skipPos = -1
	}
	path := make([]int, len(n.pos.Path)+1)
	copy(path, n.pos.Path)
	path[len(path)-1] = i
	out.pos = TreePosition{Path: path}
	return out, nil
}

// Stats summarises a full traversal of a tree: total nodes and leaves
// visited, the number of true branch points (nodes with more than one live
// child), the total symbols decoded across every edge, and the depth of
// every branch point, for capacity planning (spec.md §4.D's stats()).
type Stats struct {
	NodeCount       int
	LeafCount       int
	SubtreeCount    int
	SymbolCount     int64
	MaxSubtreeDepth int
	SubtreeDepths   []int
}

// Walk performs a full depth-first traversal from root, invoking visit at
// every node reached (including root); visit returning false stops the
// descent below that node (but sibling branches still run).  It returns
// traversal Stats.
func Walk(root Node, visit func(Node) bool) Stats {
	st := Stats{}
	var rec func(n Node, depth int)
	rec = func(n Node, depth int) {
		st.NodeCount++
		if depth > st.MaxSubtreeDepth {
			st.MaxSubtreeDepth = depth
		}
		if !visit(n) {
			return
		}
		if n.AtEnd() {
			st.LeafCount++
			return
		}
		pending := n.PendingVariants()
		refChild, refOK := n.Advance()
		childCount := len(pending)
		if refOK && refChild.Coverage().Any() {
			childCount++
		}
		if childCount >= 2 {
			st.SubtreeCount++
			st.SubtreeDepths = append(st.SubtreeDepths, depth)
		}
		if refOK {
			st.SymbolCount += refChild.LogicalPos() - n.LogicalPos()
			rec(refChild, depth+1)
		}
		for _, i := range pending {
			child, err := n.Take(i)
			if err != nil {
				continue
			}
			st.SymbolCount += child.LogicalPos() - n.LogicalPos()
			rec(child, depth+1)
		}
	}
	rec(root, 0)
	return st
}

// Seek reconstructs the node at pos by replaying its Path from root,
// giving Seek the same result every time for the same tree and path
// (property 7, seek determinism).  This replay is O(len(pos.Path)); see
// SeekCache for an amortised version.
func Seek(root Node, pos TreePosition) (Node, error) {
	n := root
	for _, i := range pos.Path {
		var err error
		n, err = n.Take(i)
		if err != nil {
			return Node{}, err
		}
	}
	return n, nil
}

type seekEntry struct {
	path TreePosition
	node Node
}

func pathHash(path []int) uint64 {
	h := uint64(14695981039346656037)
	for _, p := range path {
		h ^= uint64(uint32(p))
		h *= 1099511628211
	}
	return h
}

// SeekCache memoises Seek results keyed by the root's coverage hash XOR a
// hash of the path, collision-checked by full equality of both path and
// originating store, so repeated seeks to the same TreePosition return the
// cached Node in O(1) instead of replaying from root every time.
type SeekCache struct {
	mu      sync.Mutex
	entries map[uint64][]seekEntry
}

// NewSeekCache returns an empty SeekCache.
func NewSeekCache() *SeekCache {
	return &SeekCache{entries: make(map[uint64][]seekEntry)}
}

// Seek behaves like the free function Seek, but consults and populates c.
func (c *SeekCache) Seek(root Node, pos TreePosition) (Node, error) {
	key := root.coverage.Hash() ^ pathHash(pos.Path)
	c.mu.Lock()
	for _, e := range c.entries[key] {
		if e.path.equal(pos) && e.node.store == root.store {
			c.mu.Unlock()
			return e.node, nil
		}
	}
	c.mu.Unlock()

	n, err := Seek(root, pos)
	if err != nil {
		return Node{}, err
	}

	c.mu.Lock()
	c.entries[key] = append(c.entries[key], seekEntry{path: pos.clone(), node: n})
	c.mu.Unlock()
	return n, nil
}

// LabelSince returns the sample bytes built between logical position from
// and n's current logical position (the node's label relative to an
// earlier mark), realising the "labelled" adaptor of SPEC_FULL.md §4.D.
func (n Node) LabelSince(from int64) []byte {
	return n.j.Slice(from, n.LogicalPos())
}

// Trim bounds a traversal to a window of w logical bases from the start
// node's current position: visit returns false (stopping descent) once a
// descendant's LogicalPos has advanced w or more positions past start.
func Trim(start Node, w int64, visit func(Node) bool) func(Node) bool {
	base := start.LogicalPos()
	return func(n Node) bool {
		if n.LogicalPos()-base >= w {
			return false
		}
		return visit(n)
	}
}

// PruneUnsupported filters PendingVariants down to the breakends whose
// coverage intersects target; it does not also collapse structurally
// identical subtrees that happen to result (full subtree deduplication is
// left to the caller — see DESIGN.md).
func (n Node) PruneUnsupported(target bitcov.Coverage) []int {
	all := n.PendingVariants()
	out := all[:0:0]
	for _, i := range all {
		if !n.store.At(i).Coverage.IntersectionIsEmpty(target) {
			out = append(out, i)
		}
	}
	return out
}

// LeftExtend returns a root node whose reference cursor starts w bases
// before pos (clamped to 0), so a caller doing two-sided seed extension
// can walk leftward context without re-deriving the whole tree; the
// returned node's LogicalPos starts at its own cursor (delta 0), i.e. the
// left context is treated as its own coordinate origin.
func LeftExtend(store *rcms.Store, coverage bitcov.Coverage, pos int64, w int64) Node {
	start := pos - w
	if start < 0 {
		start = 0
	}
	n := Root(store, coverage)
	n.cursor = start
	return n
}

// Chunk splits a traversal of store into contiguous windows of size with
// the given overlap between consecutive windows, returning one root Node
// per window (property 4, chunk invariance: a search run over the chunks
// must find the same matches, modulo the overlap, as a run over the whole
// tree).  Each chunk's traversal ceiling is its own start+size+overlap
// (clamped to the source length), so Advance/AtEnd stop there instead of
// walking to the end of the whole reference — the overlap supplies the
// trailing context a window straddling the chunk boundary needs, per
// spec.md §4.D's chunk-boundary policy.
func Chunk(store *rcms.Store, coverage bitcov.Coverage, size, overlap int64) []Node {
	srcLen := int64(len(store.Source()))
	if size <= overlap {
		panic("seqtree: Chunk requires size > overlap")
	}
	var chunks []Node
	for start := int64(0); start < srcLen; start += size {
		n := Root(store, coverage)
		n.cursor = start
		end := start + size + overlap
		if end > srcLen {
			end = srcLen
		}
		n.end = end
		chunks = append(chunks, n)
		if start+size >= srcLen {
			break
		}
	}
	if len(chunks) == 0 {
		chunks = append(chunks, Root(store, coverage))
	}
	return chunks
}

// Combine merges the trees rooted at a and b (which must share a source)
// into the root of a single tree over the concatenated sample domain —
// joining two independently-built per-cohort trees, not the node-coalescing
// operation Merge implements below; see DESIGN.md.
func Combine(a, b Node) (Node, error) {
	store, err := rcms.Combine(a.store, b.store)
	if err != nil {
		return Node{}, err
	}
	combined := bitcov.New(store.CoverageDomain())
	for i := store.CoverageDomain().Min; i < store.CoverageDomain().Max; i++ {
		combined.Set(i, true)
	}
	return Root(store, combined), nil
}

// Merge returns the node reached from n by eagerly resolving every forced,
// non-branching step in place of n: a reference-side Advance whose
// Coloured coverage is empty (no live sample stays on the reference) or a
// lone pending variant whose coverage is n's entire live coverage (every
// live sample takes it, leaving no real reference alternative) is not a
// branch at all, so it is coalesced into the cargo the caller actually
// sees instead of surfacing as its own tree node.  This is the merge()
// adaptor of spec.md §4.D.6 ("coalesces consecutive single-child
// reference-nodes into one cargo"); it stops at the first node with a
// genuine branch (more than one live child).
func Merge(n Node) Node {
	for {
		if n.AtEnd() {
			return n
		}
		pending := n.PendingVariants()
		refCoverage := n.Coloured()
		switch {
		case len(pending) == 1 && refCoverage.None():
			child, err := n.Take(pending[0])
			if err != nil {
				return n
			}
			n = child
		case len(pending) == 0:
			child, ok := n.Advance()
			if !ok {
				return n
			}
			n = child
		default:
			return n
		}
	}
}

// Reverse returns the root of the tree over store's reverse mirror
// (rcms.Store.Reversed), used for two-sided seed extension and the
// reverse-symmetry property (property 5).
func Reverse(store *rcms.Store, coverage bitcov.Coverage) Node {
	return Root(store.Reversed(), coverage)
}
