// Package integrity provides tamper-evident hashing for saved snippets.
// All functions are pure and deterministic.
package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Hash version prefix. The version is encoded in the stored value so the
// algorithm can change without invalidating existing rows.
const hashV1Prefix = "v1:"

// ContentHash produces a versioned SHA-256 hex digest of a snippet body.
// The filename is bound into the hash so a body copied under another name
// does not verify.
func ContentHash(filename string, body []byte) string {
	return hashV1Prefix + computeV1Hash(filename, body)
}

// Verify checks whether a stored hash matches the recomputed hash.
// Unknown prefixes and empty hashes (rows written before hashing existed)
// verify as false.
func Verify(stored, filename string, body []byte) bool {
	if !strings.HasPrefix(stored, hashV1Prefix) {
		return false
	}
	return stored == hashV1Prefix+computeV1Hash(filename, body)
}

// computeV1Hash uses length-prefixed encoding so field boundaries are
// unambiguous regardless of content.
func computeV1Hash(filename string, body []byte) string {
	h := sha256.New()
	writeLenPrefixed(h, []byte(filename))
	writeLenPrefixed(h, body)
	return hex.EncodeToString(h.Sum(nil))
}

func writeLenPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = h.Write(n[:])
	_, _ = h.Write(b)
}
