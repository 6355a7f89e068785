package oracle

import (
	"crypto/cipher"

	"oraclelab/internal/services/blockcipher"
)

// PaddingLab hands out IV||CBC(secret) under random IVs and answers only
// whether submitted ciphertext carries valid PKCS#7 padding.
type PaddingLab struct {
	blk    cipher.Block
	secret []byte
}

func NewPaddingLab(blk cipher.Block, secret []byte) *PaddingLab {
	return &PaddingLab{blk: blk, secret: append([]byte(nil), secret...)}
}

func (l *PaddingLab) Ciphertext() ([]byte, error) {
	bs := l.blk.BlockSize()
	iv, err := blockcipher.RandBytes(bs)
	if err != nil {
		return nil, err
	}
	ct, err := blockcipher.EncryptCBC(l.blk, iv, blockcipher.PKCS7Pad(l.secret, bs))
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

func (l *PaddingLab) Valid(ivct []byte) bool {
	bs := l.blk.BlockSize()
	if len(ivct) < 2*bs || len(ivct)%bs != 0 {
		return false
	}
	pt, err := blockcipher.DecryptCBC(l.blk, ivct[:bs], ivct[bs:])
	if err != nil {
		return false
	}
	return blockcipher.PKCS7Valid(pt, bs)
}

// Open decrypts ivct and strips padding. Used to check forged ciphertext.
func (l *PaddingLab) Open(ivct []byte) ([]byte, error) {
	bs := l.blk.BlockSize()
	if len(ivct) < 2*bs {
		return nil, blockcipher.ErrInvalidPadding
	}
	pt, err := blockcipher.DecryptCBC(l.blk, ivct[:bs], ivct[bs:])
	if err != nil {
		return nil, err
	}
	return blockcipher.PKCS7Unpad(pt, bs)
}

func (l *PaddingLab) Secret() []byte { return append([]byte(nil), l.secret...) }

func (l *PaddingLab) BlockSize() int { return l.blk.BlockSize() }
