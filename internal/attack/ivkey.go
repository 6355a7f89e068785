package attack

import (
	"errors"
	"fmt"

	"oraclelab/internal/services/blockcipher"
)

// RecoverIVKey extracts the key of a CBC oracle that reuses its key as IV.
// It encrypts three random ASCII blocks, submits C1 || 0 || C1 for
// decryption and returns P1 XOR P3. The decrypt oracle may answer with the
// plaintext or with a *LeakError carrying it; any other refusal is retried
// with fresh plaintext up to the attempt limit.
func RecoverIVKey(encrypt, decrypt Oracle, blockSize int, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		pt, err := randomASCII(3 * blockSize)
		if err != nil {
			return nil, err
		}
		ct, err := encrypt.Query(pt)
		if err != nil {
			s.log.Debugw("encrypt refused", "attempt", attempt, "error", err)
			continue
		}
		if len(ct) < blockSize {
			return nil, fmt.Errorf("%w: %d byte ciphertext", ErrInvalidCiphertext, len(ct))
		}

		c1 := ct[:blockSize]
		out, err := decrypt.Query(concat(c1, make([]byte, blockSize), c1))
		if err != nil {
			var leak *LeakError
			if !errors.As(err, &leak) {
				s.log.Debugw("decrypt refused", "attempt", attempt, "error", err)
				continue
			}
			out = leak.Plaintext
		}
		if len(out) < 3*blockSize {
			s.log.Debugw("decrypt returned short plaintext", "attempt", attempt, "length", len(out))
			continue
		}
		return blockcipher.XOR(out[:blockSize], out[2*blockSize:3*blockSize]), nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrOracleRejected, s.maxAttempts)
}

func randomASCII(n int) ([]byte, error) {
	b, err := blockcipher.RandBytes(n)
	if err != nil {
		return nil, err
	}
	for i := range b {
		b[i] &= 0x7f
	}
	return b, nil
}
