package oracle

import (
	"bytes"
	"crypto/cipher"
	"fmt"
	"strings"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
)

const (
	userDataPrefix = "comment1=cooking%20MCs;userdata="
	userDataSuffix = ";comment2=%20like%20a%20pound%20of%20bacon"
)

var quoter = strings.NewReplacer(";", "%3B", "=", "%3D", " ", "%20")

// UserDataLab embeds quoted user data in a fixed cookie string and
// encrypts it under CBC (random IV, prepended) or CTR (fixed nonce).
type UserDataLab struct {
	blk   cipher.Block
	mode  attack.Mode
	nonce []byte
}

func NewUserDataLab(blk cipher.Block, mode attack.Mode) (*UserDataLab, error) {
	l := &UserDataLab{blk: blk, mode: mode}
	switch mode {
	case attack.ModeCBC:
	case attack.ModeCTR:
		nonce, err := blockcipher.RandBytes(blk.BlockSize())
		if err != nil {
			return nil, err
		}
		l.nonce = nonce
	default:
		return nil, fmt.Errorf("user data lab does not support %s", mode)
	}
	return l, nil
}

// PrefixLen is the offset of user data in the plaintext. It is public
// knowledge about the cookie format, not a secret.
func (l *UserDataLab) PrefixLen() int { return len(userDataPrefix) }

func (l *UserDataLab) BlockSize() int { return l.blk.BlockSize() }

func (l *UserDataLab) Mode() attack.Mode { return l.mode }

func (l *UserDataLab) Encrypt(userData []byte) ([]byte, error) {
	pt := []byte(userDataPrefix + quoter.Replace(string(userData)) + userDataSuffix)
	if l.mode == attack.ModeCTR {
		return blockcipher.XORKeyStreamCTR(l.blk, l.nonce, pt)
	}
	bs := l.blk.BlockSize()
	iv, err := blockcipher.RandBytes(bs)
	if err != nil {
		return nil, err
	}
	ct, err := blockcipher.EncryptCBC(l.blk, iv, blockcipher.PKCS7Pad(pt, bs))
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

func (l *UserDataLab) Decrypt(ct []byte) ([]byte, error) {
	if l.mode == attack.ModeCTR {
		return blockcipher.XORKeyStreamCTR(l.blk, l.nonce, ct)
	}
	bs := l.blk.BlockSize()
	if len(ct) < 2*bs {
		return nil, attack.ErrInvalidCiphertext
	}
	pt, err := blockcipher.DecryptCBC(l.blk, ct[:bs], ct[bs:])
	if err != nil {
		return nil, err
	}
	return blockcipher.PKCS7Unpad(pt, bs)
}

// IsAdmin decrypts ct and looks for an admin=true field.
func (l *UserDataLab) IsAdmin(ct []byte) (bool, error) {
	pt, err := l.Decrypt(ct)
	if err != nil {
		return false, err
	}
	for _, field := range bytes.Split(pt, []byte(";")) {
		if string(field) == "admin=true" {
			return true, nil
		}
	}
	return false, nil
}
