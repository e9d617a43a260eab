package bitcov

import (
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
)

// wordBits is the number of bits per machine word used by Coverage's
// backing store.
const wordBits = 64

// Domain is the inclusive-exclusive index range [Min, Max) a Coverage is
// defined over; it is usually the sample count of a pan-genome, 0-indexed.
type Domain struct {
	Min, Max int32
}

// Size returns the number of indices in the domain.
func (d Domain) Size() int32 {
	return d.Max - d.Min
}

// Coverage is a dense bit-vector over a Domain.  All binary operations
// require both operands to share an identical Domain; a mismatch is a
// programming error and panics rather than returning an error, since every
// Coverage in a single RCMS is built from the same coverage_domain.
type Coverage struct {
	domain Domain
	words  []uint64
}

// New returns an all-zero Coverage over domain.
func New(domain Domain) Coverage {
	n := wordCount(domain.Size())
	return Coverage{domain: domain, words: make([]uint64, n)}
}

func wordCount(size int32) int {
	if size <= 0 {
		return 0
	}
	return (int(size) + wordBits - 1) / wordBits
}

// Domain returns the Coverage's index range.
func (c Coverage) Domain() Domain {
	return c.domain
}

func (c Coverage) requireSameDomain(o Coverage) {
	if c.domain != o.domain {
		log.Panicf("bitcov: domain mismatch: %+v vs %+v", c.domain, o.domain)
	}
}

func (c Coverage) wordIdx(i int32) (word int, bit uint) {
	off := i - c.domain.Min
	return int(off) / wordBits, uint(off) % wordBits
}

// Words returns a copy of the Coverage's underlying word array, for
// serialization.
func (c Coverage) Words() []uint64 {
	out := make([]uint64, len(c.words))
	copy(out, c.words)
	return out
}

// FromWords reconstructs a Coverage over domain from a word array
// previously produced by Words, for deserialization.
func FromWords(domain Domain, words []uint64) Coverage {
	out := New(domain)
	copy(out.words, words)
	return out
}

// Get reports whether sample i is set.  i must lie within the domain.
func (c Coverage) Get(i int32) bool {
	w, b := c.wordIdx(i)
	return c.words[w]&(uint64(1)<<b) != 0
}

// Set sets or clears sample i.  i must lie within the domain.
func (c *Coverage) Set(i int32, v bool) {
	w, b := c.wordIdx(i)
	if v {
		c.words[w] |= uint64(1) << b
	} else {
		c.words[w] &^= uint64(1) << b
	}
}

// Clone returns an independent copy of c.
func (c Coverage) Clone() Coverage {
	words := make([]uint64, len(c.words))
	copy(words, c.words)
	return Coverage{domain: c.domain, words: words}
}

// tailMask returns a mask clearing the bits of the final word that lie at
// or past domain.Max, so that Count/Any/All/None are not thrown off by the
// unused high bits of the last word.
func (c Coverage) tailMask() uint64 {
	size := c.domain.Size()
	rem := uint(size) % wordBits
	if rem == 0 {
		return ^uint64(0)
	}
	return (uint64(1) << rem) - 1
}

func (c Coverage) forEachWordPair(o Coverage, fn func(i int, a, b uint64) uint64) Coverage {
	c.requireSameDomain(o)
	out := New(c.domain)
	for i := range c.words {
		out.words[i] = fn(i, c.words[i], o.words[i])
	}
	return out
}

// And returns the bitwise intersection of c and o.
func (c Coverage) And(o Coverage) Coverage {
	return c.forEachWordPair(o, func(_ int, a, b uint64) uint64 { return a & b })
}

// Or returns the bitwise union of c and o.
func (c Coverage) Or(o Coverage) Coverage {
	return c.forEachWordPair(o, func(_ int, a, b uint64) uint64 { return a | b })
}

// AndNot returns c with every bit also set in o cleared.
func (c Coverage) AndNot(o Coverage) Coverage {
	return c.forEachWordPair(o, func(_ int, a, b uint64) uint64 { return a &^ b })
}

// Xor returns the bitwise symmetric difference of c and o.
func (c Coverage) Xor(o Coverage) Coverage {
	return c.forEachWordPair(o, func(_ int, a, b uint64) uint64 { return a ^ b })
}

// Flip complements every bit in place.
func (c *Coverage) Flip() {
	mask := c.tailMask()
	last := len(c.words) - 1
	for i := range c.words {
		c.words[i] = ^c.words[i]
		if i == last {
			c.words[i] &= mask
		}
	}
}

// Any reports whether any bit is set.
func (c Coverage) Any() bool {
	for _, w := range c.words {
		if w != 0 {
			return true
		}
	}
	return false
}

// None reports whether no bit is set.
func (c Coverage) None() bool {
	return !c.Any()
}

// All reports whether every bit in the domain is set.
func (c Coverage) All() bool {
	if len(c.words) == 0 {
		return true
	}
	mask := c.tailMask()
	for i, w := range c.words {
		want := ^uint64(0)
		if i == len(c.words)-1 {
			want = mask
		}
		if w&want != want {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (c Coverage) Count() int {
	n := 0
	for _, w := range c.words {
		n += popcount(w)
	}
	return n
}

func popcount(w uint64) int {
	n := 0
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}

// IntersectionIsEmpty reports whether c and o share no set bit, without
// materialising the intersection.
func (c Coverage) IntersectionIsEmpty(o Coverage) bool {
	c.requireSameDomain(o)
	for i := range c.words {
		if c.words[i]&o.words[i] != 0 {
			return false
		}
	}
	return true
}

// Resize grows or shrinks c to a new domain, preserving the bits whose
// index lies in both the old and new domain and zeroing the rest.
func (c *Coverage) Resize(newDomain Domain) {
	resized := New(newDomain)
	lo := newDomain.Min
	if c.domain.Min > lo {
		lo = c.domain.Min
	}
	hi := newDomain.Max
	if c.domain.Max < hi {
		hi = c.domain.Max
	}
	for i := lo; i < hi; i++ {
		if c.Get(i) {
			resized.Set(i, true)
		}
	}
	*c = resized
}

// Iterate calls fn with the index of every set bit in ascending order,
// stopping early if fn returns false.
func (c Coverage) Iterate(fn func(i int32) bool) {
	for wi, w := range c.words {
		base := c.domain.Min + int32(wi)*wordBits
		for w != 0 {
			tz := trailingZeros(w)
			if !fn(base + int32(tz)) {
				return
			}
			w &= w - 1
		}
	}
}

func trailingZeros(w uint64) int {
	if w == 0 {
		return wordBits
	}
	n := 0
	for w&1 == 0 {
		w >>= 1
		n++
	}
	return n
}

// Hash returns a fast, non-cryptographic digest of c's domain and bits,
// suitable for keying memoisation tables (e.g. seqtree's SeekCache) — not
// for security purposes.
func (c Coverage) Hash() uint64 {
	buf := make([]byte, 8*len(c.words)+8)
	putU32(buf[0:4], uint32(c.domain.Min))
	putU32(buf[4:8], uint32(c.domain.Max))
	for i, w := range c.words {
		putU64(buf[8+8*i:], w)
	}
	return farm.Hash64(buf)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
