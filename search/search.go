// Package search drives a traversal of a seqtree over an rcms.Store,
// feeding the bytes along each root-to-leaf path to a caller-supplied
// matcher and reporting matches as (tree position, label offset) pairs.
// It provides both a single-threaded searcher with explicit branch-stack
// push/pop, in the explicit-index-arithmetic style of circular/bitmap.go,
// and a chunked, worker-pool searcher built on
// github.com/grailbio/base/traverse, in the style of
// pileup/snp/pileup.go's traverse.Each(parallelism, ...) main loop.
package search

import (
	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/seqtree"
)

// Matcher is a non-resumable matcher: given a fully materialised window of
// bytes, it invokes onMatch with the offset of every match found, stopping
// early if onMatch returns false.  WindowSize reports how many trailing
// bytes of a label a caller must materialise before calling Match — for an
// exact matcher that is the pattern length, for an approximate matcher it
// is wider to allow for inserted/deleted bytes.  Unlike ResumableMatcher, a
// non-resumable Matcher is run on each complete label independently rather
// than fed one byte at a time across a branch point.
type Matcher interface {
	Match(window []byte, onMatch func(offset int64) bool) bool
	WindowSize() int
}

// ResumableMatcher is a matcher whose automaton state can be captured at a
// tree branch point and restored later, so a traversal need not re-decode
// and re-scan a node's whole label on every branch.
type ResumableMatcher interface {
	StartState() interface{}
	StepState(state interface{}, b byte) (next interface{}, matched bool)
}

// MatchPosition locates one match: the tree position of the node whose
// label it was found in, a byte offset within that node's label, and the
// coverage of samples live on the path to that node.  The two drivers count
// LabelOffset differently: PolymorphicSequenceSearcher reports one past the
// match's last byte, counted from the first byte the node added to its path;
// WindowSequenceSearcher reports the number of bytes from the match's first
// byte to the end of the window it scanned (the node's label plus its
// leading context).  Enumerating which
// samples a hit belongs to is left to the caller, who queries Coverage
// lazily (e.g. via its Iterate method) rather than having every sample id
// expanded eagerly into the match stream.
type MatchPosition struct {
	TreePosition seqtree.TreePosition
	LabelOffset  int64
	Coverage     bitcov.Coverage
}

// stackFrame is one entry of the explicit branch stack the single
// threaded searcher pushes at a branch point and pops on backtrack,
// mirroring the push/pop bookkeeping circular/bitmap.go uses for its own
// explicit index arithmetic rather than recursion.
type stackFrame struct {
	node         seqtree.Node
	labelStart   int64 // logical position the matcher last consumed up to
	matcherState interface{}
	pending      []int
	nextPending  int
	tookRef      bool
}

// PolymorphicSequenceSearcher walks a tree single-threaded, feeding a
// ResumableMatcher one byte at a time and reporting matches via onMatch.
// onMatch returning false stops the whole search.
type PolymorphicSequenceSearcher struct {
	matcher ResumableMatcher
}

// NewPolymorphicSequenceSearcher returns a searcher driven by matcher.
func NewPolymorphicSequenceSearcher(matcher ResumableMatcher) *PolymorphicSequenceSearcher {
	return &PolymorphicSequenceSearcher{matcher: matcher}
}

// Search walks root to completion (or until onMatch returns false),
// invoking onMatch for every match found along any path.
func (s *PolymorphicSequenceSearcher) Search(root seqtree.Node, onMatch func(MatchPosition) bool) {
	var stack []*stackFrame
	push := func(n seqtree.Node, state interface{}) *stackFrame {
		f := &stackFrame{node: n, labelStart: n.LogicalPos(), matcherState: state, pending: n.PendingVariants()}
		stack = append(stack, f)
		return f
	}
	stop := false
	feed := func(n seqtree.Node, from int64, state interface{}) interface{} {
		bytes := n.Journal().Slice(from, n.LogicalPos())
		for i, b := range bytes {
			var matched bool
			state, matched = s.matcher.StepState(state, b)
			if matched {
				if !onMatch(MatchPosition{TreePosition: n.TreePosition(), LabelOffset: int64(i) + 1, Coverage: n.Coverage()}) {
					stop = true
					break
				}
			}
		}
		return state
	}

	push(root, s.matcher.StartState())
	for len(stack) > 0 && !stop {
		top := stack[len(stack)-1]
		if !top.tookRef {
			top.tookRef = true
			if child, ok := top.node.Advance(); ok {
				state := feed(child, top.node.LogicalPos(), top.matcherState)
				push(child, state)
				continue
			}
		}
		if top.nextPending < len(top.pending) {
			i := top.pending[top.nextPending]
			top.nextPending++
			child, err := top.node.Take(i)
			if err != nil {
				continue
			}
			state := feed(child, top.node.LogicalPos(), top.matcherState)
			push(child, state)
			continue
		}
		stack = stack[:len(stack)-1]
	}
}

// WindowSequenceSearcher walks a tree single-threaded like
// PolymorphicSequenceSearcher, but instead of stepping a ResumableMatcher's
// automaton one byte at a time across branch points, it materialises each
// node's label — plus matcher.WindowSize()-1 bytes of leading context, so a
// match straddling a branch point is not missed — and runs a non-resumable
// Matcher over that window once per node. This is the driver a non-resumable
// matcher (an exact matcher too wide for ShiftOr, or an approximate one) runs
// under, each complete label checked independently rather than fed
// byte-by-byte.
type WindowSequenceSearcher struct {
	matcher Matcher
}

// NewWindowSequenceSearcher returns a searcher driven by matcher.
func NewWindowSequenceSearcher(matcher Matcher) *WindowSequenceSearcher {
	return &WindowSequenceSearcher{matcher: matcher}
}

// Search walks root to completion (or until onMatch returns false),
// invoking onMatch for every match found along any path.
func (s *WindowSequenceSearcher) Search(root seqtree.Node, onMatch func(MatchPosition) bool) {
	context := int64(s.matcher.WindowSize()) - 1
	if context < 0 {
		context = 0
	}
	stop := false
	feed := func(n seqtree.Node, from int64) {
		lead := from - context
		if lead < 0 {
			lead = 0
		}
		label := n.Journal().Slice(lead, n.LogicalPos())
		labelLen := int64(len(label))
		s.matcher.Match(label, func(offset int64) bool {
			keep := onMatch(MatchPosition{TreePosition: n.TreePosition(), LabelOffset: labelLen - offset, Coverage: n.Coverage()})
			if !keep {
				stop = true
			}
			return keep
		})
	}

	type frame struct {
		node        seqtree.Node
		pending     []int
		nextPending int
		tookRef     bool
	}
	var stack []*frame
	push := func(n seqtree.Node) *frame {
		f := &frame{node: n, pending: n.PendingVariants()}
		stack = append(stack, f)
		return f
	}

	push(root)
	for len(stack) > 0 && !stop {
		top := stack[len(stack)-1]
		if !top.tookRef {
			top.tookRef = true
			if child, ok := top.node.Advance(); ok {
				feed(child, top.node.LogicalPos())
				push(child)
				continue
			}
		}
		if top.nextPending < len(top.pending) {
			i := top.pending[top.nextPending]
			top.nextPending++
			child, err := top.node.Take(i)
			if err != nil {
				continue
			}
			feed(child, top.node.LogicalPos())
			push(child)
			continue
		}
		stack = stack[:len(stack)-1]
	}
}

// MultiThreadedSearcher searches overlapping chunks the caller built with
// seqtree.Chunk across Parallelism workers, each worker taking one
// contiguous block of the chunk list, aggregating errors via
// github.com/grailbio/base/errorreporter.T and results via an onMatch
// callback the caller must make safe for concurrent use.  ChunkSize and
// ChunkOverlap are not read by Search or SearchWindowed.  A hit inside the
// region two adjacent chunks share is reported once by each of them.
type MultiThreadedSearcher struct {
	Parallelism  int
	ChunkSize    int64
	ChunkOverlap int64
}

// Search runs one PolymorphicSequenceSearcher per worker over
// github.com/grailbio/base/traverse.Each, each searching its block of
// chunks in turn and feeding matches to onMatch (which may be called
// concurrently from multiple workers).  onMatch returning false ends only
// the walk of the chunk it was called from; later chunks still run.
func (m *MultiThreadedSearcher) Search(chunks []seqtree.Node, newMatcher func() ResumableMatcher, onMatch func(MatchPosition) bool) error {
	var errs errorreporter.T
	parallelism := m.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	n := len(chunks)
	if err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * n) / parallelism
		endIdx := ((jobIdx + 1) * n) / parallelism
		searcher := NewPolymorphicSequenceSearcher(newMatcher())
		for _, chunk := range chunks[startIdx:endIdx] {
			searcher.Search(chunk, onMatch)
		}
		return nil
	}); err != nil {
		errs.Set(err)
	}
	return errs.Err()
}

// SearchWindowed is Search's non-resumable counterpart: it runs one
// WindowSequenceSearcher per worker over its block of chunks,
// for a Matcher that cannot expose ResumableMatcher's capture/restore state
// (e.g. an approximate matcher scoring a whole window by edit distance).
func (m *MultiThreadedSearcher) SearchWindowed(chunks []seqtree.Node, newMatcher func() Matcher, onMatch func(MatchPosition) bool) error {
	var errs errorreporter.T
	parallelism := m.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	n := len(chunks)
	if err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * n) / parallelism
		endIdx := ((jobIdx + 1) * n) / parallelism
		searcher := NewWindowSequenceSearcher(newMatcher())
		for _, chunk := range chunks[startIdx:endIdx] {
			searcher.Search(chunk, onMatch)
		}
		return nil
	}); err != nil {
		errs.Set(err)
	}
	return errs.Err()
}
