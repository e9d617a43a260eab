package serial_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/jst/bitcov"
	"github.com/grailbio/jst/rcms"
	"github.com/grailbio/jst/serial"
)

func buildStore(t *testing.T) *rcms.Store {
	t.Helper()
	d := bitcov.Domain{Min: 0, Max: 3}
	s := rcms.New([]byte("aaaabbbbcccc"), d)
	cov := bitcov.New(d)
	cov.Set(0, true)
	cov.Set(2, true)
	if _, err := s.Insert(rcms.Breakpoint{Low: 4, High: 5}, []byte("O"), cov); err != nil {
		t.Fatal(err)
	}
	cov2 := bitcov.New(d)
	cov2.Set(1, true)
	if _, err := s.Insert(rcms.Breakpoint{Low: 8, High: 10}, nil, cov2); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := buildStore(t)
	var buf bytes.Buffer
	if err := serial.Write(&buf, s); err != nil {
		t.Fatal(err)
	}
	got, err := serial.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Source(), s.Source()) {
		t.Errorf("Source() = %q, want %q", got.Source(), s.Source())
	}
	gv, wv := got.Variants(), s.Variants()
	if len(gv) != len(wv) {
		t.Fatalf("got %d variants, want %d", len(gv), len(wv))
	}
	for i := range wv {
		if gv[i].Breakpoint != wv[i].Breakpoint || !bytes.Equal(gv[i].Alt, wv[i].Alt) || gv[i].Kind != wv[i].Kind {
			t.Errorf("variant %d = %+v, want %+v", i, gv[i], wv[i])
		}
		if gv[i].Coverage.Count() != wv[i].Coverage.Count() {
			t.Errorf("variant %d coverage count = %d, want %d", i, gv[i].Coverage.Count(), wv[i].Coverage.Count())
		}
	}
}

func TestWriteReadGzipRoundTrip(t *testing.T) {
	s := buildStore(t)
	var buf bytes.Buffer
	if err := serial.WriteGzip(&buf, s); err != nil {
		t.Fatal(err)
	}
	got, err := serial.ReadGzip(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Source(), s.Source()) {
		t.Errorf("Source() = %q, want %q", got.Source(), s.Source())
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 24))
	if _, err := serial.Read(buf); err == nil {
		t.Errorf("expected an error for a zeroed (bad-magic) header")
	}
}
