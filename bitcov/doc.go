// Package bitcov implements a dense, word-parallel bitset tagged with a
// half-open range domain, used throughout jst to represent which samples of
// a pan-genome carry a given variant.
package bitcov
