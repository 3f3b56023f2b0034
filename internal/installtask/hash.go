package installtask

import (
	"crypto/sha3"
	"fmt"
	"hash"
)

func newSHA3224() hash.Hash {
	return sha3.New224()
}

func hexString(b []byte) string {
	return fmt.Sprintf("%x", b)
}
