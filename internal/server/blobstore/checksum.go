package blobstore

import (
	"crypto/subtle"

	"golang.org/x/crypto/blake2b"
)

func checksum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

func verify(data, sum []byte) bool {
	return subtle.ConstantTimeCompare(checksum(data), sum) == 1
}
