package attack

import "errors"

var (
	ErrProbeFailed                = errors.New("probe failed: no length jump observed")
	ErrPrefixNotFound             = errors.New("prefix not found: no repeated block observed")
	ErrByteRecoveryStalled        = errors.New("byte recovery stalled")
	ErrPaddingBruteForceExhausted = errors.New("padding brute force exhausted")
	ErrOracleRejected             = errors.New("oracle rejected crafted input")
	ErrNotStateless               = errors.New("oracle is not stateless")
	ErrInvalidCiphertext          = errors.New("invalid ciphertext")
	ErrInvalidBlockSize           = errors.New("invalid block size")
	ErrLengthMismatch             = errors.New("length mismatch")
)
