package oracle

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
)

var ErrHighASCII = errors.New("plaintext contains high-ASCII bytes")

// IVKeyLab is CBC with the key doubling as IV. Encryption refuses non-ASCII
// input; decryption refuses non-ASCII output and, when leaky, returns the
// offending plaintext inside an *attack.LeakError.
type IVKeyLab struct {
	blk  cipher.Block
	key  []byte
	leak bool
}

func NewIVKeyLab(algorithm string, leak bool) (*IVKeyLab, error) {
	blk, key, err := blockcipher.NewRandom(algorithm)
	if err != nil {
		return nil, err
	}
	if len(key) != blk.BlockSize() {
		return nil, fmt.Errorf("%s: key of %d bytes cannot serve as a %d byte IV", algorithm, len(key), blk.BlockSize())
	}
	return &IVKeyLab{blk: blk, key: key, leak: leak}, nil
}

func (l *IVKeyLab) BlockSize() int { return l.blk.BlockSize() }

// Key is the hidden secret, exposed for verification only.
func (l *IVKeyLab) Key() []byte { return append([]byte(nil), l.key...) }

func (l *IVKeyLab) Encrypt(pt []byte) ([]byte, error) {
	if !isASCII(pt) {
		return nil, ErrHighASCII
	}
	return blockcipher.EncryptCBC(l.blk, l.key, blockcipher.PKCS7Pad(pt, l.blk.BlockSize()))
}

func (l *IVKeyLab) Decrypt(ct []byte) ([]byte, error) {
	raw, err := blockcipher.DecryptCBC(l.blk, l.key, ct)
	if err != nil {
		return nil, err
	}
	if !isASCII(raw) {
		return nil, l.reject("high-ASCII plaintext", raw)
	}
	pt, err := blockcipher.PKCS7Unpad(raw, l.blk.BlockSize())
	if err != nil {
		return nil, l.reject("invalid padding", raw)
	}
	return pt, nil
}

func (l *IVKeyLab) reject(reason string, raw []byte) error {
	if l.leak {
		return &attack.LeakError{Reason: reason, Plaintext: raw}
	}
	return errors.New(reason)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 0x7f {
			return false
		}
	}
	return true
}
