package lab

import (
	mrand "math/rand/v2"

	"oraclelab/internal/services/blockcipher"
)

var phrases = []string{
	"Rollin' in my 5.0, with my rag-top down so my hair can blow",
	"the quick brown fox jumps over the lazy dog",
	"attack at dawn; bring the cipher manuals",
	"meet me by the old oak tree at midnight",
	"ECB mode leaks patterns, so do not use it",
	"padding oracles turn one bit of leakage into everything",
	"nonce reuse makes a stream cipher a many-time pad",
	"keys are not initialization vectors",
}

// phrase returns a random plaintext secret.
func phrase() []byte {
	return []byte(phrases[mrand.IntN(len(phrases))])
}

// randomPrefix returns 0 to 2*blockSize+3 random bytes.
func randomPrefix(blockSize int) ([]byte, error) {
	return blockcipher.RandBytes(mrand.IntN(2*blockSize + 4))
}
