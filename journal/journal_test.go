package journal_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/jst/journal"
)

// apply mirrors journal.Record on a plain byte slice, for use as the
// property 6 ("journal round-trip") oracle.
func apply(source []byte, edits []journal.Breakpoint, alts [][]byte) []byte {
	out := append([]byte{}, source...)
	// Apply in reverse order of position so earlier offsets stay valid.
	type edit struct {
		bp  journal.Breakpoint
		alt []byte
	}
	es := make([]edit, len(edits))
	for i := range edits {
		es[i] = edit{edits[i], alts[i]}
	}
	for i := len(es) - 1; i >= 0; i-- {
		e := es[i]
		var buf []byte
		buf = append(buf, out[:e.bp.Low]...)
		buf = append(buf, e.alt...)
		buf = append(buf, out[e.bp.High:]...)
		out = buf
	}
	return out
}

func TestNewJournalReconstructsSource(t *testing.T) {
	src := []byte("aaaabbbb")
	j := journal.New(src)
	if got, want := j.Size(), int64(len(src)); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	if got := j.Slice(0, j.Size()); !bytes.Equal(got, src) {
		t.Fatalf("Slice(0,Size()) = %q, want %q", got, src)
	}
}

func TestRecordSNV(t *testing.T) {
	j := journal.New([]byte("aaaabbbb"))
	if _, err := j.Record(journal.Breakpoint{Low: 4, High: 5}, []byte("O")); err != nil {
		t.Fatal(err)
	}
	want := "aaaaObbb"
	if got := string(j.Slice(0, j.Size())); got != want {
		t.Errorf("after SNV, Slice = %q, want %q", got, want)
	}
}

func TestRecordInsertion(t *testing.T) {
	j := journal.New([]byte("aaaaaaaa"))
	if _, err := j.Record(journal.Breakpoint{Low: 2, High: 2}, []byte("dddddddd")); err != nil {
		t.Fatal(err)
	}
	want := "aa" + "dddddddd" + "aaaaaa"
	if got := string(j.Slice(0, j.Size())); got != want {
		t.Errorf("after insertion, Slice = %q, want %q", got, want)
	}
	if got, want := j.Size(), int64(16); got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestRecordDeletion(t *testing.T) {
	j := journal.New([]byte("aaaabbbb"))
	if _, err := j.Record(journal.Breakpoint{Low: 2, High: 6}, nil); err != nil {
		t.Fatal(err)
	}
	want := "aabb"
	if got := string(j.Slice(0, j.Size())); got != want {
		t.Errorf("after deletion, Slice = %q, want %q", got, want)
	}
}

func TestRecordMultipleEditsRoundTrip(t *testing.T) {
	src := []byte("aaaabbbb")
	edits := []journal.Breakpoint{{Low: 1, High: 2}, {Low: 4, High: 5}}
	alts := [][]byte{[]byte("I"), []byte("J")}
	want := apply(src, edits, alts)

	j := journal.New(src)
	for i, e := range edits {
		if _, err := j.Record(e, alts[i]); err != nil {
			t.Fatal(err)
		}
	}
	if got := string(j.Slice(0, j.Size())); got != string(want) {
		t.Errorf("Slice() = %q, want %q", got, want)
	}
}

func TestLowerUpperBoundFind(t *testing.T) {
	j := journal.New([]byte("aaaabbbb"))
	if _, err := j.Record(journal.Breakpoint{Low: 4, High: 5}, []byte("O")); err != nil {
		t.Fatal(err)
	}
	// Entries are now at positions 0, 4, 5.
	if i := j.Find(4); i < 0 || j.Entries()[i].Position != 4 {
		t.Errorf("Find(4) = %d, want entry at position 4", i)
	}
	if i := j.Find(3); i != -1 {
		t.Errorf("Find(3) = %d, want -1", i)
	}
	if i := j.LowerBound(4); j.Entries()[i].Position != 4 {
		t.Errorf("LowerBound(4) landed on position %d, want 4", j.Entries()[i].Position)
	}
	if i := j.UpperBound(4); j.Entries()[i].Position != 5 {
		t.Errorf("UpperBound(4) landed on position %d, want 5", j.Entries()[i].Position)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	j := journal.New([]byte("aaaabbbb"))
	clone := j.Clone()
	if _, err := clone.Record(journal.Breakpoint{Low: 0, High: 1}, []byte("X")); err != nil {
		t.Fatal(err)
	}
	if got := string(j.Slice(0, j.Size())); got != "aaaabbbb" {
		t.Errorf("original journal mutated: %q", got)
	}
	if got := string(clone.Slice(0, clone.Size())); got != "Xaaabbbb" {
		t.Errorf("clone = %q, want %q", got, "Xaaabbbb")
	}
}

func TestOutOfBoundsBreakpoint(t *testing.T) {
	j := journal.New([]byte("aaaa"))
	if _, err := j.Record(journal.Breakpoint{Low: 3, High: 5}, nil); err == nil {
		t.Errorf("expected error for out-of-bounds breakpoint")
	}
}
