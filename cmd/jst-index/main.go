package main

/*
jst-index builds an on-disk RCMS file from a FASTA reference and a
variant table: one line per variant, tab-separated as
"low<TAB>high<TAB>alt<TAB>comma-separated sample indices". alt may be
empty (a deletion); samples with the empty string contribute no coverage
bits (used to stage a variant before wiring it to any sample).
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
	"github.com/grailbio/jst/cmd/internal/fastaio"
	"github.com/grailbio/jst/rcms"
	"github.com/grailbio/jst/serial"
)

var (
	fastaPath    = flag.String("fasta", "", "Input single-contig FASTA reference path")
	variantsPath = flag.String("variants", "", "Input variant table path (low,high,alt,samples TSV)")
	outPath      = flag.String("out", "", "Output RCMS path")
	numSamples   = flag.Int("samples", 0, "Number of samples in the cohort (coverage domain size)")
	gzipOut      = flag.Bool("gzip", false, "Gzip-compress the output RCMS file")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -fasta ref.fa -variants variants.tsv -out out.rcms -samples N\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *fastaPath == "" || *variantsPath == "" || *outPath == "" || *numSamples <= 0 {
		usage()
		os.Exit(exit.Usage)
	}

	fa, err := os.Open(*fastaPath)
	if err != nil {
		log.Fatalf("jst-index: open %s: %v", *fastaPath, err)
	}
	_, source, err := fastaio.ReadSingleContig(fa)
	fa.Close()
	if err != nil {
		log.Fatalf("jst-index: parse %s: %v", *fastaPath, err)
	}

	domain := bitcov.Domain{Min: 0, Max: int32(*numSamples)}
	store := rcms.New(source, domain)

	vf, err := os.Open(*variantsPath)
	if err != nil {
		log.Fatalf("jst-index: open %s: %v", *variantsPath, err)
	}
	defer vf.Close()

	sc := bufio.NewScanner(vf)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			log.Fatalf("jst-index: %s:%d: expected 4 tab-separated fields, got %d", *variantsPath, lineNo, len(fields))
		}
		low, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			log.Fatalf("jst-index: %s:%d: bad low %q: %v", *variantsPath, lineNo, fields[0], err)
		}
		high, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			log.Fatalf("jst-index: %s:%d: bad high %q: %v", *variantsPath, lineNo, fields[1], err)
		}
		alt := []byte(fields[2])
		cov := bitcov.New(domain)
		if fields[3] != "" {
			for _, s := range strings.Split(fields[3], ",") {
				idx, err := strconv.Atoi(s)
				if err != nil {
					log.Fatalf("jst-index: %s:%d: bad sample index %q: %v", *variantsPath, lineNo, s, err)
				}
				cov.Set(int32(idx), true)
			}
		}
		if _, err := store.Insert(rcms.Breakpoint{Low: low, High: high}, alt, cov); err != nil {
			log.Fatalf("jst-index: %s:%d: %v", *variantsPath, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("jst-index: scan %s: %v", *variantsPath, err)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("jst-index: create %s: %v", *outPath, err)
	}
	defer out.Close()
	if *gzipOut {
		err = serial.WriteGzip(out, store)
	} else {
		err = serial.Write(out, store)
	}
	if err != nil {
		log.Fatalf("jst-index: write %s: %v", *outPath, err)
	}
}
