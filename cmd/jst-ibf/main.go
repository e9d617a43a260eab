package main

/*
jst-ibf builds a two-hash Bloom filter over every k-mer appearing in any
sample's decoded sequence, as a cheap pre-filter a caller can check before
running a full jst-search: a query k-mer absent from the filter cannot
occur in any sample.  It hashes with github.com/dgryski/go-farm (used
elsewhere in this module for Coverage.Hash) and
blainsmith.com/go/seahash, so the two probes are independent.
*/

import (
	"flag"
	"fmt"
	"hash"
	"os"

	"blainsmith.com/go/seahash"
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/cmd/internal/exit"
	"github.com/grailbio/jst/rcms"
	"github.com/grailbio/jst/seqtree"
	"github.com/grailbio/jst/serial"
)

var (
	indexPath = flag.String("index", "", "Input RCMS path")
	gzipIn    = flag.Bool("gzip", false, "The input RCMS file is gzip-compressed")
	k         = flag.Int("k", 16, "k-mer length")
	bits      = flag.Uint64("bits", 1<<24, "Filter size in bits")
	query     = flag.String("query", "", "If set, print only whether this k-mer may be present in the built filter, instead of the filter's statistics")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -index in.rcms -k 16 -bits 16777216\n", os.Args[0])
	flag.PrintDefaults()
}

// filter is a two-hash Bloom filter over k-mers.
type filter struct {
	words []uint64
	nbits uint64
	seaH  hash.Hash64
}

func newFilter(nbits uint64) *filter {
	return &filter{words: make([]uint64, (nbits+63)/64), nbits: nbits, seaH: seahash.New()}
}

func (f *filter) hashes(kmer []byte) (uint64, uint64) {
	h1 := farm.Hash64(kmer)
	f.seaH.Reset()
	f.seaH.Write(kmer)
	h2 := f.seaH.Sum64()
	return h1 % f.nbits, h2 % f.nbits
}

func (f *filter) setBit(i uint64) { f.words[i/64] |= 1 << (i % 64) }
func (f *filter) getBit(i uint64) bool { return f.words[i/64]&(1<<(i%64)) != 0 }

func (f *filter) Add(kmer []byte) {
	i1, i2 := f.hashes(kmer)
	f.setBit(i1)
	f.setBit(i2)
}

func (f *filter) MayContain(kmer []byte) bool {
	i1, i2 := f.hashes(kmer)
	return f.getBit(i1) && f.getBit(i2)
}

func (f *filter) PopCount() int {
	n := 0
	for _, w := range f.words {
		for w != 0 {
			w &= w - 1
			n++
		}
	}
	return n
}

// decodeSample walks store's tree always taking the first pending variant
// (if any) covering sample, a deterministic single-sample decode.
func decodeSample(store *rcms.Store, sample int32) []byte {
	dom := store.CoverageDomain()
	target := bitcov.New(dom)
	target.Set(sample, true)
	n := seqtree.Root(store, target)
	for !n.AtEnd() {
		pending := n.PruneUnsupported(target)
		if len(pending) == 0 {
			next, ok := n.Advance()
			if !ok {
				break
			}
			n = next
			continue
		}
		next, err := n.Take(pending[0])
		if err != nil {
			log.Fatalf("jst-ibf: %v", err)
		}
		n = next
	}
	return n.Journal().Slice(0, n.Journal().Size())
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *indexPath == "" {
		usage()
		os.Exit(exit.Usage)
	}

	f, err := os.Open(*indexPath)
	if err != nil {
		log.Fatalf("jst-ibf: open %s: %v", *indexPath, err)
	}
	defer f.Close()
	readFn := serial.Read
	if *gzipIn {
		readFn = serial.ReadGzip
	}
	store, err := readFn(f)
	if err != nil {
		log.Fatalf("jst-ibf: read %s: %v", *indexPath, err)
	}

	filt := newFilter(*bits)
	dom := store.CoverageDomain()
	nKmers := 0
	for s := dom.Min; s < dom.Max; s++ {
		seq := decodeSample(store, s)
		for i := 0; i+*k <= len(seq); i++ {
			filt.Add(seq[i : i+*k])
			nKmers++
		}
	}

	if *query != "" {
		if len(*query) != *k {
			log.Fatalf("jst-ibf: -query must be exactly -k=%d bytes long, got %d", *k, len(*query))
		}
		fmt.Println(filt.MayContain([]byte(*query)))
		return
	}

	set := filt.PopCount()
	fmt.Printf("kmers inserted: %d\nbits set: %d/%d (%.4f%%)\n", nKmers, set, *bits, 100*float64(set)/float64(*bits))
}
