package blockcipher

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// EncryptECB encrypts block-aligned pt one block at a time.
func EncryptECB(blk cipher.Block, pt []byte) ([]byte, error) {
	bs := blk.BlockSize()
	if len(pt)%bs != 0 {
		return nil, fmt.Errorf("ECB requires full blocks: got %d bytes", len(pt))
	}
	ct := make([]byte, len(pt))
	for off := 0; off < len(pt); off += bs {
		blk.Encrypt(ct[off:off+bs], pt[off:off+bs])
	}
	return ct, nil
}

func DecryptECB(blk cipher.Block, ct []byte) ([]byte, error) {
	bs := blk.BlockSize()
	if len(ct)%bs != 0 {
		return nil, fmt.Errorf("ECB requires full blocks: got %d bytes", len(ct))
	}
	pt := make([]byte, len(ct))
	for off := 0; off < len(ct); off += bs {
		blk.Decrypt(pt[off:off+bs], ct[off:off+bs])
	}
	return pt, nil
}

func EncryptCBC(blk cipher.Block, iv, pt []byte) ([]byte, error) {
	if err := checkCBC(blk, iv, pt); err != nil {
		return nil, err
	}
	ct := make([]byte, len(pt))
	cipher.NewCBCEncrypter(blk, iv).CryptBlocks(ct, pt)
	return ct, nil
}

func DecryptCBC(blk cipher.Block, iv, ct []byte) ([]byte, error) {
	if err := checkCBC(blk, iv, ct); err != nil {
		return nil, err
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(blk, iv).CryptBlocks(pt, ct)
	return pt, nil
}

func checkCBC(blk cipher.Block, iv, buf []byte) error {
	bs := blk.BlockSize()
	if len(iv) != bs {
		return fmt.Errorf("iv must be %d bytes, got %d", bs, len(iv))
	}
	if len(buf)%bs != 0 {
		return fmt.Errorf("CBC requires full blocks: got %d bytes", len(buf))
	}
	return nil
}

// XORKeyStreamCTR encrypts or decrypts buf in counter mode. The nonce is the
// initial counter block.
func XORKeyStreamCTR(blk cipher.Block, nonce, buf []byte) ([]byte, error) {
	if len(nonce) != blk.BlockSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", blk.BlockSize(), len(nonce))
	}
	out := make([]byte, len(buf))
	cipher.NewCTR(blk, nonce).XORKeyStream(out, buf)
	return out, nil
}

// RandBytes reads n bytes from crypto/rand.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// XOR returns a^b over the shorter of the two.
func XOR(a, b []byte) []byte {
	n := min(len(a), len(b))
	out := make([]byte, n)
	for i := range n {
		out[i] = a[i] ^ b[i]
	}
	return out
}
