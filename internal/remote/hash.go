package remote

import (
	"crypto/sha3"
	"hash"
)

// newSHA3224 returns the hash.Hash used to verify downloaded content,
// matching the manifest protocol's SHA3-224 hex digests (§6.2, §7).
func newSHA3224() hash.Hash {
	return sha3.New224()
}
