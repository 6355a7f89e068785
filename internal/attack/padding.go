package attack

import (
	"fmt"

	"go.uber.org/zap"

	"oraclelab/internal/services/blockcipher"
)

// paddingAttack recovers block-cipher intermediates through a padding
// validator. The outer state is the (block, pad) pair being solved, the inner
// state the candidate byte handed to searchByte.
type paddingAttack struct {
	v         Validator
	blockSize int
	workers   int
	log       *zap.SugaredLogger

	block int
	pad   int
}

func newPaddingAttack(v Validator, blockSize int, s settings) *paddingAttack {
	return &paddingAttack{v: v, blockSize: blockSize, workers: s.workers, log: s.log}
}

// intermediate returns D(target), the value the previous block is XORed with
// during CBC decryption, one byte at a time from the end.
func (pa *paddingAttack) intermediate(target []byte) ([]byte, error) {
	inter := make([]byte, pa.blockSize)
	for pa.pad = 1; pa.pad <= pa.blockSize; pa.pad++ {
		pad := pa.pad
		c, ok, err := searchByte(pa.workers, func(c byte) (bool, error) {
			return pa.accepts(target, inter, pad, c), nil
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: block %d, pad length %d", ErrPaddingBruteForceExhausted, pa.block, pad)
		}
		inter[pa.blockSize-pad] = c ^ byte(pad)
	}
	return inter, nil
}

// accepts reports whether setting byte blockSize-pad of the forged previous
// block to c gives target a genuine padding of length pad.
func (pa *paddingAttack) accepts(target, inter []byte, pad int, c byte) bool {
	bs := pa.blockSize
	pos := bs - pad
	work := make([]byte, 2*bs)
	for i := range pos {
		work[i] = byte(pad)
	}
	for i := pos + 1; i < bs; i++ {
		work[i] = inter[i] ^ byte(pad)
	}
	work[pos] = c
	copy(work[bs:], target)
	if !pa.v.Valid(work) {
		return false
	}
	if pad == 1 && pos > 0 {
		// A lone 0x01 survives a change to the byte before it; a plaintext
		// that happened to end in 0x02 0x02 does not.
		work[pos-1] ^= 0x01
		return pa.v.Valid(work)
	}
	return true
}

// DecryptPaddingOracle decrypts ivct (IV followed by CBC ciphertext) using
// nothing but a padding validator. The plaintext is returned with its padding.
func DecryptPaddingOracle(ivct []byte, v Validator, blockSize int, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	if blockSize <= 0 || blockSize > 0xff {
		return nil, ErrInvalidBlockSize
	}
	if len(ivct) < 2*blockSize || len(ivct)%blockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not IV plus whole blocks of %d", ErrInvalidCiphertext, len(ivct), blockSize)
	}

	bl := blocks(ivct, blockSize)
	pt := make([]byte, len(ivct)-blockSize)
	pa := newPaddingAttack(v, blockSize, s)
	for pa.block = len(bl) - 1; pa.block >= 1; pa.block-- {
		inter, err := pa.intermediate(bl[pa.block])
		if err != nil {
			return nil, err
		}
		copy(pt[(pa.block-1)*blockSize:], blockcipher.XOR(inter, bl[pa.block-1]))
		s.log.Debugw("decrypted block", "block", pa.block, "of", len(bl)-1)
	}
	return pt, nil
}

// EncryptPaddingOracle forges IV||ciphertext that decrypts to the PKCS#7
// padded plaintext, again using only the validator. It works backwards from
// a random final block, choosing each previous block so the intermediate of
// the next one XORs to the wanted plaintext.
func EncryptPaddingOracle(plaintext []byte, v Validator, blockSize int, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	if blockSize <= 0 || blockSize > 0xff {
		return nil, ErrInvalidBlockSize
	}
	padded := blockcipher.PKCS7Pad(plaintext, blockSize)
	pts := blocks(padded, blockSize)

	last, err := blockcipher.RandBytes(blockSize)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pts)+1)
	out[len(pts)] = last
	pa := newPaddingAttack(v, blockSize, s)
	for pa.block = len(pts); pa.block >= 1; pa.block-- {
		inter, err := pa.intermediate(out[pa.block])
		if err != nil {
			return nil, err
		}
		out[pa.block-1] = blockcipher.XOR(inter, pts[pa.block-1])
	}
	return concat(out...), nil
}
