package attack_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
	"oraclelab/internal/services/oracle"
)

func TestDecryptPaddingOracle(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		secret    []byte
		workers   int
	}{
		{"aes three blocks", blockcipher.AES, []byte("MDAwMDAwTm93IHRoYXQgdGhlIHBhcnR5IGlzIGp1bXBpbmc="), 1},
		{"aes exact block multiple", blockcipher.AES, []byte("YELLOW SUBMARINEYELLOW SUBMARINEYELLOW SUBMARINE"), 1},
		{"aria with workers", blockcipher.ARIA, []byte("000001With the bass kicked in and the Vega's are pumpin'"), 8},
		{"hight", blockcipher.HIGHT, []byte("eight byte blocks, still three or more"), 1},
		{"cast5 with workers", blockcipher.CAST5, []byte("ending in 0x02? no, ending in text"), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lab := oracle.NewPaddingLab(newBlock(t, tt.algorithm), tt.secret)
			ivct, err := lab.Ciphertext()
			require.NoError(t, err)

			bs := lab.BlockSize()
			got, err := attack.DecryptPaddingOracle(ivct, attack.ValidatorFunc(lab.Valid), bs, attack.WithWorkers(tt.workers))
			require.NoError(t, err)
			assert.Equal(t, blockcipher.PKCS7Pad(tt.secret, bs), got)
		})
	}
}

func TestDecryptPaddingOracleRandomSecrets(t *testing.T) {
	runs := 20
	if testing.Short() {
		runs = 3
	}
	for range runs {
		secret := randBytes(t, 3*16+int(randBytes(t, 1)[0]%16))
		lab := oracle.NewPaddingLab(newBlock(t, blockcipher.AES), secret)
		ivct, err := lab.Ciphertext()
		require.NoError(t, err)

		got, err := attack.DecryptPaddingOracle(ivct, attack.ValidatorFunc(lab.Valid), 16, attack.WithWorkers(4))
		require.NoError(t, err)
		require.Equal(t, blockcipher.PKCS7Pad(secret, 16), got)
	}
}

func TestDecryptPaddingOracleExhausted(t *testing.T) {
	never := attack.ValidatorFunc(func([]byte) bool { return false })
	_, err := attack.DecryptPaddingOracle(make([]byte, 48), never, 16)
	assert.ErrorIs(t, err, attack.ErrPaddingBruteForceExhausted)
}

func TestDecryptPaddingOracleRejectsMalformedInput(t *testing.T) {
	always := attack.ValidatorFunc(func([]byte) bool { return true })
	tests := []struct {
		name      string
		ivct      []byte
		blockSize int
		want      error
	}{
		{"iv only", make([]byte, 16), 16, attack.ErrInvalidCiphertext},
		{"ragged", make([]byte, 40), 16, attack.ErrInvalidCiphertext},
		{"empty", nil, 8, attack.ErrInvalidCiphertext},
		{"zero block size", make([]byte, 32), 0, attack.ErrInvalidBlockSize},
		{"block size beyond a pad byte", make([]byte, 512), 256, attack.ErrInvalidBlockSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := attack.DecryptPaddingOracle(tt.ivct, always, tt.blockSize)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncryptPaddingOracle(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		plaintext []byte
	}{
		{"aes", blockcipher.AES, []byte("comment1=forged;admin=true;comment2=by padding oracle")},
		{"empty", blockcipher.AES, nil},
		{"tdea", blockcipher.TDEA, []byte("role=admin")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lab := oracle.NewPaddingLab(newBlock(t, tt.algorithm), nil)
			bs := lab.BlockSize()

			forged, err := attack.EncryptPaddingOracle(tt.plaintext, attack.ValidatorFunc(lab.Valid), bs, attack.WithWorkers(4))
			require.NoError(t, err)
			assert.Len(t, forged, len(blockcipher.PKCS7Pad(tt.plaintext, bs))+bs)

			got, err := lab.Open(forged)
			require.NoError(t, err)
			assert.Equal(t, string(tt.plaintext), string(got))
		})
	}
}

// fixedIntermediate validates as if every target block decrypted to inter.
// It counts acceptances that a lone 0x01 forgery turned into a longer padding.
func fixedIntermediate(inter []byte, lookalikes *atomic.Int64) attack.ValidatorFunc {
	bs := len(inter)
	return func(work []byte) bool {
		pt := blockcipher.XOR(inter, work[:bs])
		if !blockcipher.PKCS7Valid(pt, bs) {
			return false
		}
		if pt[bs-1] > 1 && work[0] == 0x01 {
			lookalikes.Add(1)
		}
		return true
	}
}

func TestDecryptPaddingOracleRejectsLongerPaddingLookalike(t *testing.T) {
	const bs = 16
	for _, padLen := range []int{2, 3, 4} {
		for _, workers := range []int{1, 8} {
			t.Run(fmt.Sprintf("pad%d/workers%d", padLen, workers), func(t *testing.T) {
				// With the forged bytes set to 0x01 the plaintext tail reads
				// padLen copies of padLen once the last byte is guessed as
				// candidate 0, which comes before the genuine 0x01 candidate.
				inter := randBytes(t, bs)
				for i := bs - padLen; i < bs-1; i++ {
					inter[i] = byte(padLen) ^ 0x01
				}
				inter[bs-1] = byte(padLen)

				var lookalikes atomic.Int64
				iv := randBytes(t, bs)
				ivct := append(append([]byte(nil), iv...), randBytes(t, bs)...)
				got, err := attack.DecryptPaddingOracle(ivct, fixedIntermediate(inter, &lookalikes), bs, attack.WithWorkers(workers))
				require.NoError(t, err)
				assert.Equal(t, blockcipher.XOR(inter, iv), got)
				assert.Positive(t, lookalikes.Load())
			})
		}
	}
}
