package attack_test

import (
	"crypto/cipher"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
)

type countingOracle struct {
	o attack.Oracle
	n atomic.Int64
}

func (c *countingOracle) Query(in []byte) ([]byte, error) {
	c.n.Add(1)
	return c.o.Query(in)
}

func (c *countingOracle) Count() int { return int(c.n.Load()) }

func newBlock(t *testing.T, algorithm string) cipher.Block {
	t.Helper()
	blk, _, err := blockcipher.NewRandom(algorithm)
	require.NoError(t, err)
	return blk
}

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b, err := blockcipher.RandBytes(n)
	require.NoError(t, err)
	return b
}

// algorithmFor returns a registered cipher with the given block size.
func algorithmFor(blockSize int) string {
	if blockSize == 8 {
		return blockcipher.HIGHT
	}
	return blockcipher.AES
}
