package main

/*
jst-search loads an RCMS file and reports every occurrence of a literal or
(with -max-dist) approximate pattern across every sample path through the
tree it encodes, as "<tree path>\t<label offset>\t<samples>" lines on
stdout.
*/

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/cmd/internal/exit"
	"github.com/grailbio/jst/match"
	"github.com/grailbio/jst/search"
	"github.com/grailbio/jst/seqtree"
	"github.com/grailbio/jst/serial"
)

var (
	indexPath    = flag.String("index", "", "Input RCMS path")
	gzipIn       = flag.Bool("gzip", false, "The input RCMS file is gzip-compressed")
	pattern      = flag.String("pattern", "", "Literal pattern to search for")
	threads      = flag.Int("threads", 1, "Number of worker goroutines; >1 uses the chunked multi-threaded searcher")
	chunkSize    = flag.Int64("chunk-size", 1<<20, "Reference bases per chunk, when -threads > 1")
	chunkOverlap = flag.Int64("chunk-overlap", 256, "Overlap in reference bases between adjacent chunks; must exceed the pattern length")
	maxDist      = flag.Int("max-dist", 0, "If > 0, report windows within this Levenshtein distance of the pattern instead of requiring an exact match")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -index in.rcms -pattern NEEDLE\n", os.Args[0])
	flag.PrintDefaults()
}

func treePathString(p seqtree.TreePosition) string {
	parts := make([]string, len(p.Path))
	for i, v := range p.Path {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// samplesString renders the samples covered by a match as a comma-separated
// list, enumerated lazily from the match's coverage rather than eagerly
// expanded by the searcher itself.
func samplesString(c bitcov.Coverage) string {
	var ids []string
	c.Iterate(func(i int32) bool {
		ids = append(ids, strconv.Itoa(int(i)))
		return true
	})
	return strings.Join(ids, ",")
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *indexPath == "" || *pattern == "" {
		usage()
		os.Exit(exit.Usage)
	}

	f, err := os.Open(*indexPath)
	if err != nil {
		log.Fatalf("jst-search: open %s: %v", *indexPath, err)
	}
	defer f.Close()

	readFn := serial.Read
	if *gzipIn {
		readFn = serial.ReadGzip
	}
	st, err := readFn(f)
	if err != nil {
		log.Fatalf("jst-search: read %s: %v", *indexPath, err)
	}

	dom := st.CoverageDomain()
	full := bitcov.New(dom)
	for i := dom.Min; i < dom.Max; i++ {
		full.Set(i, true)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	onMatch := func(m search.MatchPosition) bool {
		fmt.Fprintf(out, "%s\t%d\t%s\n", treePathString(m.TreePosition), m.LabelOffset, samplesString(m.Coverage))
		return true
	}

	needle := []byte(*pattern)

	if *maxDist > 0 {
		newMatcher := func() search.Matcher { return &match.LevenshteinMatcher{Pattern: needle, MaxDist: *maxDist} }
		if *threads <= 1 {
			search.NewWindowSequenceSearcher(newMatcher()).Search(seqtree.Root(st, full), onMatch)
			return
		}
		chunks := seqtree.Chunk(st, full, *chunkSize, *chunkOverlap)
		m := &search.MultiThreadedSearcher{Parallelism: *threads, ChunkSize: *chunkSize, ChunkOverlap: *chunkOverlap}
		if err := m.SearchWindowed(chunks, newMatcher, onMatch); err != nil {
			log.Fatalf("jst-search: %v", err)
		}
		return
	}

	if len(needle) > 64 {
		newMatcher := func() search.Matcher { return match.NewHorspool(needle) }
		if *threads <= 1 {
			search.NewWindowSequenceSearcher(newMatcher()).Search(seqtree.Root(st, full), onMatch)
			return
		}
		chunks := seqtree.Chunk(st, full, *chunkSize, *chunkOverlap)
		m := &search.MultiThreadedSearcher{Parallelism: *threads, ChunkSize: *chunkSize, ChunkOverlap: *chunkOverlap}
		if err := m.SearchWindowed(chunks, newMatcher, onMatch); err != nil {
			log.Fatalf("jst-search: %v", err)
		}
		return
	}

	if *threads <= 1 {
		searcher := search.NewPolymorphicSequenceSearcher(match.NewShiftOr(needle))
		searcher.Search(seqtree.Root(st, full), onMatch)
		return
	}

	chunks := seqtree.Chunk(st, full, *chunkSize, *chunkOverlap)
	m := &search.MultiThreadedSearcher{Parallelism: *threads, ChunkSize: *chunkSize, ChunkOverlap: *chunkOverlap}
	if err := m.Search(chunks, func() search.ResumableMatcher { return match.NewShiftOr(needle) }, onMatch); err != nil {
		log.Fatalf("jst-search: %v", err)
	}
}
