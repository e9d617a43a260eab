package match

import "github.com/antzucaro/matchr"

// EditDistance returns the Levenshtein distance between a and b, for
// ranking near-misses a caller's exact matcher declined (adapted from
// util.Levenshtein's barcode-matching role onto arbitrary byte windows;
// delegates to matchr.Levenshtein rather than reimplementing the DP
// matrix, since matchr's is already exercised and correct).
func EditDistance(a, b []byte) int {
	return matchr.Levenshtein(string(a), string(b))
}
