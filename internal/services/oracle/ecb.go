// Package oracle builds the encryption services the attacks are aimed at.
// Each target is constructed with its own secret and keeps it for life.
package oracle

import (
	"crypto/cipher"
	"fmt"
	mrand "math/rand/v2"
	"sync"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
)

// SuffixOracle answers ECB(prefix || input || suffix) with PKCS#7 padding.
type SuffixOracle struct {
	blk    cipher.Block
	prefix []byte
	suffix []byte
}

func NewSuffixOracle(blk cipher.Block, prefix, suffix []byte) *SuffixOracle {
	return &SuffixOracle{
		blk:    blk,
		prefix: append([]byte(nil), prefix...),
		suffix: append([]byte(nil), suffix...),
	}
}

func (o *SuffixOracle) Query(in []byte) ([]byte, error) {
	pt := make([]byte, 0, len(o.prefix)+len(in)+len(o.suffix))
	pt = append(append(append(pt, o.prefix...), in...), o.suffix...)
	return blockcipher.EncryptECB(o.blk, blockcipher.PKCS7Pad(pt, o.blk.BlockSize()))
}

// Suffix is the hidden target, exposed for verification only.
func (o *SuffixOracle) Suffix() []byte { return append([]byte(nil), o.suffix...) }

func (o *SuffixOracle) PrefixLen() int { return len(o.prefix) }

// ModeGame encrypts every query under a fresh key, wrapped in 5-10 random
// bytes on each side, with ECB or CBC chosen by coin flip.
type ModeGame struct {
	algorithm string

	mu   sync.Mutex
	last attack.Mode
}

func NewModeGame(algorithm string) (*ModeGame, error) {
	if _, err := blockcipher.KeySize(algorithm); err != nil {
		return nil, err
	}
	return &ModeGame{algorithm: algorithm}, nil
}

func (g *ModeGame) Query(in []byte) ([]byte, error) {
	blk, _, err := blockcipher.NewRandom(g.algorithm)
	if err != nil {
		return nil, err
	}
	head, err := blockcipher.RandBytes(5 + mrand.IntN(6))
	if err != nil {
		return nil, err
	}
	tail, err := blockcipher.RandBytes(5 + mrand.IntN(6))
	if err != nil {
		return nil, err
	}
	pt := append(append(head, in...), tail...)
	pt = blockcipher.PKCS7Pad(pt, blk.BlockSize())

	g.mu.Lock()
	defer g.mu.Unlock()
	if mrand.IntN(2) == 0 {
		g.last = attack.ModeECB
		return blockcipher.EncryptECB(blk, pt)
	}
	g.last = attack.ModeCBC
	iv, err := blockcipher.RandBytes(blk.BlockSize())
	if err != nil {
		return nil, err
	}
	return blockcipher.EncryptCBC(blk, iv, pt)
}

// Last reports the mode used for the most recent query.
func (g *ModeGame) Last() attack.Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// EncryptMany encrypts n random-plaintext messages of blocks blocks each
// under CBC with fresh IVs, except the one at index ecbAt which gets ECB
// over repeated plaintext.
func EncryptMany(blk cipher.Block, n, blocks, ecbAt int) ([][]byte, error) {
	bs := blk.BlockSize()
	out := make([][]byte, n)
	for i := range n {
		if i == ecbAt {
			pt := make([]byte, blocks*bs)
			for j := range pt {
				pt[j] = byte(j % bs)
			}
			ct, err := blockcipher.EncryptECB(blk, pt)
			if err != nil {
				return nil, err
			}
			out[i] = ct
			continue
		}
		pt, err := blockcipher.RandBytes(blocks * bs)
		if err != nil {
			return nil, err
		}
		iv, err := blockcipher.RandBytes(bs)
		if err != nil {
			return nil, err
		}
		ct, err := blockcipher.EncryptCBC(blk, iv, pt)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out[i] = ct
	}
	return out, nil
}
