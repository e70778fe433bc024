package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint computes a 64-bit SimHash over whitespace-separated tokens.
// Each token's FNV-64a hash votes per bit and the sign of the tally becomes
// the fingerprint bit, so documents sharing most of their tokens land
// within a few bits of each other.
func Fingerprint(text string) uint64 {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return 0
	}

	var tally [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				tally[bit]++
			} else {
				tally[bit]--
			}
		}
	}

	var fp uint64
	for bit, vote := range tally {
		if vote > 0 {
			fp |= 1 << uint(bit)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits of
// each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// makeShingles rolls n-gram shingles over a token sequence. Shingles are
// joined with "_" so each one survives Fingerprint's whitespace split as a
// single token. Returns nil when there are fewer than n tokens.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}

	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], "_"))
	}
	return shingles
}
