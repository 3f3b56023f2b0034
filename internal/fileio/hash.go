package fileio

import (
	"crypto/sha3"
	"hash"
)

func newSHA3224() hash.Hash {
	return sha3.New224()
}
