package blockcipher

import (
	"bytes"
	"errors"
)

var ErrInvalidPadding = errors.New("invalid padding")

// PKCS7Pad always appends between 1 and blockSize bytes.
func PKCS7Pad(buf []byte, blockSize int) []byte {
	if blockSize <= 0 || blockSize > 0xff {
		panic("PKCS7Pad: invalid block size")
	}
	n := blockSize - len(buf)%blockSize
	out := make([]byte, len(buf), len(buf)+n)
	copy(out, buf)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func PKCS7Unpad(buf []byte, blockSize int) ([]byte, error) {
	if !PKCS7Valid(buf, blockSize) {
		return nil, ErrInvalidPadding
	}
	n := int(buf[len(buf)-1])
	return append([]byte(nil), buf[:len(buf)-n]...), nil
}

func PKCS7Valid(buf []byte, blockSize int) bool {
	if len(buf) == 0 || len(buf)%blockSize != 0 {
		return false
	}
	b := buf[len(buf)-1]
	n := int(b)
	if n == 0 || n > blockSize {
		return false
	}
	for _, c := range buf[len(buf)-n:] {
		if c != b {
			return false
		}
	}
	return true
}
