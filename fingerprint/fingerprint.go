// Package fingerprint produces content fingerprints for duplicate-upload
// detection: an exact sha256 digest of the normalized document text and a
// 64-bit SimHash for near-duplicate detection of OCR variations.
//
// All functions are pure and safe for concurrent use.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math/bits"
	"strconv"
	"strings"
	"unicode"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// MaxDistance is returned by HammingDistance for malformed inputs so a bad
// fingerprint always reads as "definitely not a duplicate".
const MaxDistance = 64

// ZeroExactHash and ZeroSimHash form the all-zero fingerprint produced for
// inputs too short to fingerprint meaningfully.
const (
	ZeroExactHash = "0000000000000000000000000000000000000000000000000000000000000000"
	ZeroSimHash   = "0000000000000000"
)

// Normalize lowercases the text, strips all non-alphanumeric characters
// except spaces, collapses whitespace runs to a single space and trims
// the ends.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		// Everything else (punctuation, symbols) is dropped entirely.
	}

	return strings.TrimRight(b.String(), " ")
}

// Fingerprint computes the exact hash and SimHash of the normalized text.
// Inputs shorter than two characters after normalization yield the
// all-zero fingerprint.
func Fingerprint(text string) entities.ContentFingerprint {
	normalized := Normalize(text)
	runes := []rune(normalized)
	if len(runes) < 2 {
		return entities.ContentFingerprint{
			ExactHash: ZeroExactHash,
			SimHash:   ZeroSimHash,
		}
	}

	sum := sha256.Sum256([]byte(normalized))

	return entities.ContentFingerprint{
		ExactHash: hex.EncodeToString(sum[:]),
		SimHash:   simhash(runes),
	}
}

// hash32 returns a deterministic 32-bit hash of s (FNV-1a).
func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// simhash computes a 64-bit SimHash over a sliding width-2 character
// window. Bits 0-31 read the bigram hash directly; bits 32-63 read a hash
// of the bigram concatenated with the bit index, so all 64 positions get
// an independent vote.
func simhash(runes []rune) string {
	var acc [64]int

	for i := 0; i+1 < len(runes); i++ {
		bigram := string(runes[i : i+2])
		h := hash32(bigram)

		for bit := 0; bit < 64; bit++ {
			var set bool
			if bit < 32 {
				set = h>>uint(bit)&1 == 1
			} else {
				extended := hash32(bigram + strconv.Itoa(bit))
				set = extended>>uint(bit-32)&1 == 1
			}

			if set {
				acc[bit]++
			} else {
				acc[bit]--
			}
		}
	}

	var value uint64
	for bit := 0; bit < 64; bit++ {
		if acc[bit] >= 0 {
			value |= 1 << uint(bit)
		}
	}

	return fmt.Sprintf("%016x", value)
}

// HammingDistance counts differing bits between two 16-character lowercase
// hex simhashes. Malformed or wrong-length inputs return MaxDistance
// rather than an error.
func HammingDistance(a, b string) int {
	av, aok := parseSimhash(a)
	bv, bok := parseSimhash(b)
	if !aok || !bok {
		return MaxDistance
	}

	return bits.OnesCount64(av ^ bv)
}

// IsNearDuplicate reports whether two simhashes are within threshold bits
// of each other.
func IsNearDuplicate(a, b string, threshold int) bool {
	return HammingDistance(a, b) < threshold
}

func parseSimhash(s string) (uint64, bool) {
	if len(s) != 16 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
