// Package fastaio reads a single-contig FASTA file into memory: just
// enough to build an rcms.Store's source sequence for the jst-* tools.
// It is deliberately not a general multi-contig/VCF parser — see
// DESIGN.md.
package fastaio

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/grailbio/jst/errkind"
)

// ReadSingleContig reads the first (and, if there is more than one,
// only the first) record of a FASTA file, returning its header line
// (without the leading '>') and its sequence with newlines stripped.
func ReadSingleContig(r io.Reader) (header string, sequence []byte, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<30)
	var buf bytes.Buffer
	seenHeader := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, ">") {
			if seenHeader {
				break // second record: ignore (single-contig reader).
			}
			seenHeader = true
			header = strings.TrimPrefix(line, ">")
			continue
		}
		buf.WriteString(strings.TrimSpace(line))
	}
	if err := sc.Err(); err != nil {
		return "", nil, errkind.Wrap(errkind.SerializationIO, err, "fastaio: scan")
	}
	if !seenHeader {
		return "", nil, errkind.New(errkind.SerializationCorrupt, "fastaio: no '>' header line found")
	}
	return header, buf.Bytes(), nil
}
