package oracle

import (
	"crypto/cipher"
	"fmt"

	"oraclelab/internal/services/blockcipher"
)

// EditLab holds CTR ciphertext under a fixed nonce and offers random-access
// edits of the underlying plaintext.
type EditLab struct {
	blk   cipher.Block
	nonce []byte
}

func NewEditLab(blk cipher.Block) (*EditLab, error) {
	nonce, err := blockcipher.RandBytes(blk.BlockSize())
	if err != nil {
		return nil, err
	}
	return &EditLab{blk: blk, nonce: nonce}, nil
}

func (l *EditLab) Encrypt(pt []byte) ([]byte, error) {
	return blockcipher.XORKeyStreamCTR(l.blk, l.nonce, pt)
}

// Edit replaces the plaintext under ct at offset and returns the new
// ciphertext.
func (l *EditLab) Edit(ct []byte, offset int, replacement []byte) ([]byte, error) {
	if offset < 0 || offset+len(replacement) > len(ct) {
		return nil, fmt.Errorf("edit [%d,%d) outside %d bytes", offset, offset+len(replacement), len(ct))
	}
	pt, err := blockcipher.XORKeyStreamCTR(l.blk, l.nonce, ct)
	if err != nil {
		return nil, err
	}
	copy(pt[offset:], replacement)
	return blockcipher.XORKeyStreamCTR(l.blk, l.nonce, pt)
}
