package attack_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
	"oraclelab/internal/services/oracle"
)

func TestRecoverIVKey(t *testing.T) {
	for _, alg := range []string{blockcipher.AES, blockcipher.SEED, blockcipher.LEA, blockcipher.CAMELLIA} {
		t.Run(alg, func(t *testing.T) {
			lab, err := oracle.NewIVKeyLab(alg, true)
			require.NoError(t, err)

			enc := &countingOracle{o: attack.OracleFunc(lab.Encrypt)}
			dec := &countingOracle{o: attack.OracleFunc(lab.Decrypt)}
			key, err := attack.RecoverIVKey(enc, dec, lab.BlockSize())
			require.NoError(t, err)
			assert.Equal(t, lab.Key(), key)
			assert.Equal(t, 1, enc.Count())
			assert.Equal(t, 1, dec.Count())
		})
	}
}

func TestRecoverIVKeyWithoutLeak(t *testing.T) {
	lab, err := oracle.NewIVKeyLab(blockcipher.AES, false)
	require.NoError(t, err)

	dec := &countingOracle{o: attack.OracleFunc(lab.Decrypt)}
	_, err = attack.RecoverIVKey(attack.OracleFunc(lab.Encrypt), dec, 16, attack.WithMaxAttempts(5))
	assert.ErrorIs(t, err, attack.ErrOracleRejected)
	assert.Equal(t, 5, dec.Count())
}

func TestRecoverIVKeyRetriesRefusals(t *testing.T) {
	lab, err := oracle.NewIVKeyLab(blockcipher.AES, true)
	require.NoError(t, err)

	var calls atomic.Int32
	flaky := attack.OracleFunc(func(ct []byte) ([]byte, error) {
		if calls.Add(1) <= 2 {
			return nil, errors.New("service unavailable")
		}
		return lab.Decrypt(ct)
	})
	key, err := attack.RecoverIVKey(attack.OracleFunc(lab.Encrypt), flaky, 16)
	require.NoError(t, err)
	assert.Equal(t, lab.Key(), key)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRecoverIVKeyRejectsBadBlockSize(t *testing.T) {
	noop := attack.OracleFunc(func(in []byte) ([]byte, error) { return in, nil })
	_, err := attack.RecoverIVKey(noop, noop, 0)
	assert.ErrorIs(t, err, attack.ErrInvalidBlockSize)
}
