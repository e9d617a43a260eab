package main

/*
jst-view loads an RCMS file, walks its full tree, and prints the resulting
seqtree.Stats: node, leaf, and branch-point counts; total symbols decoded;
and branch-point depth distribution, for capacity planning before a search
run.
*/

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/cmd/internal/exit"
	"github.com/grailbio/jst/seqtree"
	"github.com/grailbio/jst/serial"
)

var (
	indexPath = flag.String("index", "", "Input RCMS path")
	gzipIn    = flag.Bool("gzip", false, "The input RCMS file is gzip-compressed")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -index in.rcms\n", os.Args[0])
	flag.PrintDefaults()
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
		log.Fatalf("jst-view: open %s: %v", *indexPath, err)
	}
	defer f.Close()

	readFn := serial.Read
	if *gzipIn {
		readFn = serial.ReadGzip
	}
	store, err := readFn(f)
	if err != nil {
		log.Fatalf("jst-view: read %s: %v", *indexPath, err)
	}

	dom := store.CoverageDomain()
	full := bitcov.New(dom)
	for i := dom.Min; i < dom.Max; i++ {
		full.Set(i, true)
	}

	root := seqtree.Root(store, full)
	stats := seqtree.Walk(root, func(seqtree.Node) bool { return true })

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	fmt.Fprintf(out, "node_count\t%d\n", stats.NodeCount)
	fmt.Fprintf(out, "leaf_count\t%d\n", stats.LeafCount)
	fmt.Fprintf(out, "subtree_count\t%d\n", stats.SubtreeCount)
	fmt.Fprintf(out, "symbol_count\t%d\n", stats.SymbolCount)
	fmt.Fprintf(out, "max_subtree_depth\t%d\n", stats.MaxSubtreeDepth)
	fmt.Fprintf(out, "subtree_depths\t%v\n", stats.SubtreeDepths)
}
