package search_test

import (
	"sync"
	"testing"

	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/match"
	"github.com/grailbio/jst/rcms"
	"github.com/grailbio/jst/search"
	"github.com/grailbio/jst/seqtree"
)

func fullCoverage(d bitcov.Domain) bitcov.Coverage {
	c := bitcov.New(d)
	for i := d.Min; i < d.Max; i++ {
		c.Set(i, true)
	}
	return c
}

// buildNeedleStore returns a 2-sample store over a source containing
// "needle" once on the reference path and once more down an alternative
// only sample 1 carries, so a search must follow both branches to find
// every occurrence.
func buildNeedleStore(t *testing.T) *rcms.Store {
	t.Helper()
	d := bitcov.Domain{Min: 0, Max: 2}
	s := rcms.New([]byte("xxneedlexxxxxxxxxx"), d)
	sample1 := bitcov.New(d)
	sample1.Set(1, true)
	if _, err := s.Insert(rcms.Breakpoint{Low: 12, High: 12}, []byte("needle"), sample1); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPolymorphicSequenceSearcherReportsCoverage(t *testing.T) {
	s := buildNeedleStore(t)
	d := s.CoverageDomain()
	searcher := search.NewPolymorphicSequenceSearcher(match.NewShiftOr([]byte("needle")))

	var hits []search.MatchPosition
	searcher.Search(seqtree.Root(s, fullCoverage(d)), func(m search.MatchPosition) bool {
		hits = append(hits, m)
		return true
	})

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits (one on the reference path, one on the insertion), got %d", len(hits))
	}
	for _, h := range hits {
		if h.Coverage.None() {
			t.Errorf("hit %+v should carry nonempty coverage", h)
		}
	}
}

func TestWindowSequenceSearcherMatchesHorspoolExactly(t *testing.T) {
	s := buildNeedleStore(t)
	d := s.CoverageDomain()
	searcher := search.NewWindowSequenceSearcher(match.NewHorspool([]byte("needle")))

	count := 0
	searcher.Search(seqtree.Root(s, fullCoverage(d)), func(m search.MatchPosition) bool {
		count++
		return true
	})
	if count != 2 {
		t.Errorf("expected 2 hits via the windowed/Horspool path, got %d", count)
	}
}

func TestWindowSequenceSearcherApproximateMatch(t *testing.T) {
	s := buildNeedleStore(t)
	d := s.CoverageDomain()
	searcher := search.NewWindowSequenceSearcher(&match.LevenshteinMatcher{Pattern: []byte("neadle"), MaxDist: 1})

	count := 0
	searcher.Search(seqtree.Root(s, fullCoverage(d)), func(m search.MatchPosition) bool {
		count++
		return true
	})
	if count == 0 {
		t.Errorf("expected at least one approximate match for a 1-edit-away pattern")
	}
}

func TestMultiThreadedSearcherMatchesSingleThreaded(t *testing.T) {
	s := buildNeedleStore(t)
	d := s.CoverageDomain()
	full := fullCoverage(d)

	single := search.NewPolymorphicSequenceSearcher(match.NewShiftOr([]byte("needle")))
	var singleHits int
	single.Search(seqtree.Root(s, full), func(m search.MatchPosition) bool {
		singleHits++
		return true
	})

	chunks := seqtree.Chunk(s, full, 10, 6)
	m := &search.MultiThreadedSearcher{Parallelism: 2, ChunkSize: 10, ChunkOverlap: 6}
	var (
		mu        sync.Mutex
		multiHits int
	)
	if err := m.Search(chunks, func() search.ResumableMatcher { return match.NewShiftOr([]byte("needle")) }, func(mp search.MatchPosition) bool {
		mu.Lock()
		multiHits++
		mu.Unlock()
		return true
	}); err != nil {
		t.Fatal(err)
	}

	if multiHits < singleHits {
		t.Errorf("chunked search found fewer hits (%d) than the unchunked run (%d)", multiHits, singleHits)
	}
}
