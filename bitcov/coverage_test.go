package bitcov_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/jst/bitcov"
)

func TestSetGetCount(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 130}
	c := bitcov.New(d)
	want := map[int32]bool{}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		idx := d.Min + r.Int31n(d.Size())
		c.Set(idx, true)
		want[idx] = true
	}
	if got, exp := c.Count(), len(want); got != exp {
		t.Fatalf("Count() = %d, want %d", got, exp)
	}
	for idx := d.Min; idx < d.Max; idx++ {
		if got, exp := c.Get(idx), want[idx]; got != exp {
			t.Errorf("Get(%d) = %v, want %v", idx, got, exp)
		}
	}
}

func TestBooleanOps(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 8}
	a := bitcov.New(d)
	b := bitcov.New(d)
	for _, i := range []int32{0, 1, 3, 5} {
		a.Set(i, true)
	}
	for _, i := range []int32{1, 2, 3, 7} {
		b.Set(i, true)
	}
	checkBits := func(t *testing.T, c bitcov.Coverage, want []int32) {
		t.Helper()
		wantSet := map[int32]bool{}
		for _, i := range want {
			wantSet[i] = true
		}
		for i := d.Min; i < d.Max; i++ {
			if c.Get(i) != wantSet[i] {
				t.Errorf("bit %d = %v, want %v", i, c.Get(i), wantSet[i])
			}
		}
	}
	checkBits(t, a.And(b), []int32{1, 3})
	checkBits(t, a.Or(b), []int32{0, 1, 2, 3, 5, 7})
	checkBits(t, a.AndNot(b), []int32{0, 5})
	checkBits(t, a.Xor(b), []int32{0, 2, 5, 7})

	if a.IntersectionIsEmpty(b) {
		t.Errorf("IntersectionIsEmpty: want false")
	}
	empty := bitcov.New(d)
	empty.Set(6, true)
	if !a.IntersectionIsEmpty(empty) {
		t.Errorf("IntersectionIsEmpty: want true")
	}
}

func TestAllNoneAny(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 5}
	c := bitcov.New(d)
	if !c.None() || c.Any() {
		t.Errorf("fresh coverage should be None()")
	}
	for i := d.Min; i < d.Max; i++ {
		c.Set(i, true)
	}
	if !c.All() || !c.Any() {
		t.Errorf("fully-set coverage should be All() and Any()")
	}
}

func TestFlip(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 70}
	c := bitcov.New(d)
	c.Set(3, true)
	c.Set(69, true)
	c.Flip()
	if c.Get(3) || c.Get(69) {
		t.Errorf("flipped bits should be clear")
	}
	if got, want := c.Count(), int(d.Size())-2; got != want {
		t.Errorf("Count() after flip = %d, want %d", got, want)
	}
}

func TestIterateAscending(t *testing.T) {
	d := bitcov.Domain{Min: -5, Max: 200}
	c := bitcov.New(d)
	set := []int32{-5, -1, 0, 64, 63, 127, 199}
	for _, i := range set {
		c.Set(i, true)
	}
	var got []int32
	c.Iterate(func(i int32) bool {
		got = append(got, i)
		return true
	})
	want := []int32{-5, -1, 0, 63, 64, 127, 199}
	if len(got) != len(want) {
		t.Fatalf("Iterate() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Iterate()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestIterateEarlyStop(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 10}
	c := bitcov.New(d)
	c.Set(1, true)
	c.Set(2, true)
	c.Set(3, true)
	n := 0
	c.Iterate(func(i int32) bool {
		n++
		return false
	})
	if n != 1 {
		t.Errorf("Iterate() should stop after first callback, called %d times", n)
	}
}

func TestResize(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 10}
	c := bitcov.New(d)
	c.Set(2, true)
	c.Set(9, true)
	c.Resize(bitcov.Domain{Min: 0, Max: 5})
	if c.Get(2) != true {
		t.Errorf("Resize should preserve overlapping bits")
	}
	if c.Count() != 1 {
		t.Errorf("Resize should drop bits outside new domain")
	}
	c.Resize(bitcov.Domain{Min: 0, Max: 20})
	if c.Get(2) != true || c.Count() != 1 {
		t.Errorf("Resize growth should preserve existing bits")
	}
}

func TestDomainMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on domain mismatch")
		}
	}()
	a := bitcov.New(bitcov.Domain{Min: 0, Max: 4})
	b := bitcov.New(bitcov.Domain{Min: 0, Max: 8})
	_ = a.And(b)
}

func TestHashStableAndSensitive(t *testing.T) {
	d := bitcov.Domain{Min: 0, Max: 10}
	a := bitcov.New(d)
	a.Set(3, true)
	b := a.Clone()
	if a.Hash() != b.Hash() {
		t.Errorf("Hash() should be stable across equal coverages")
	}
	b.Set(4, true)
	if a.Hash() == b.Hash() {
		t.Errorf("Hash() should differ for different coverages (or a very unlucky collision)")
	}
}
