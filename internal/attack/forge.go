package attack

import (
	"fmt"

	"oraclelab/internal/services/blockcipher"
)

// Substitution rewrites Known into Desired at plaintext offset Offset.
//
// For CBC the ciphertext is IV||C and the byte controlling plaintext offset o
// is the byte at o, one block before the block that holds the plaintext; the
// plaintext block decrypted from the flipped ciphertext block is garbled. For
// CTR the ciphertext carries no IV, the controlling byte is at o as well, and
// nothing else changes.
type Substitution struct {
	Mode      Mode
	BlockSize int
	Offset    int
	Known     []byte
	Desired   []byte
}

// Forge returns a copy of ct with the substitution applied.
func Forge(ct []byte, s Substitution) ([]byte, error) {
	if len(s.Known) != len(s.Desired) {
		return nil, fmt.Errorf("%w: known %d bytes, desired %d bytes", ErrLengthMismatch, len(s.Known), len(s.Desired))
	}
	var ptLen int
	switch s.Mode {
	case ModeCBC:
		if s.BlockSize <= 0 {
			return nil, ErrInvalidBlockSize
		}
		ptLen = len(ct) - s.BlockSize
	case ModeCTR:
		ptLen = len(ct)
	default:
		return nil, fmt.Errorf("cannot forge %s ciphertext", s.Mode)
	}
	if s.Offset < 0 || s.Offset+len(s.Known) > ptLen {
		return nil, fmt.Errorf("%w: segment [%d,%d) outside %d plaintext bytes", ErrInvalidCiphertext, s.Offset, s.Offset+len(s.Known), ptLen)
	}

	out := append([]byte(nil), ct...)
	delta := blockcipher.XOR(s.Known, s.Desired)
	for i, d := range delta {
		out[s.Offset+i] ^= d
	}
	return out, nil
}

// InjectCBC makes a CBC encryption oracle, which places attacker input
// prefixLen bytes into its plaintext, produce ciphertext decrypting to desired.
// A sacrificial block of filler precedes the known segment, so the garbled
// block lies inside attacker data. Flipping a block garbles the one before
// it, so desired must fit in a single block.
func InjectCBC(encrypt Oracle, prefixLen, blockSize int, desired []byte, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if len(desired) > blockSize {
		return nil, fmt.Errorf("%w: %d bytes do not fit one block of %d", ErrLengthMismatch, len(desired), blockSize)
	}
	align := alignPadding(prefixLen, blockSize)
	known := fill(s.filler, len(desired))
	ct, err := encrypt.Query(concat(fill(s.filler, align+blockSize), known))
	if err != nil {
		return nil, fmt.Errorf("inject cbc: %w", err)
	}
	return Forge(ct, Substitution{
		Mode:      ModeCBC,
		BlockSize: blockSize,
		Offset:    prefixLen + align + blockSize,
		Known:     known,
		Desired:   desired,
	})
}

// InjectCTR is InjectCBC for a counter-mode oracle. No sacrificial data is
// needed.
func InjectCTR(encrypt Oracle, prefixLen int, desired []byte, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	known := fill(s.filler, len(desired))
	ct, err := encrypt.Query(known)
	if err != nil {
		return nil, fmt.Errorf("inject ctr: %w", err)
	}
	return Forge(ct, Substitution{Mode: ModeCTR, Offset: prefixLen, Known: known, Desired: desired})
}

// FindStreamOffset locates attacker input in a fixed-nonce stream oracle:
// the first byte that differs between two one-byte inputs.
func FindStreamOffset(encrypt Oracle) (int, error) {
	a, err := encrypt.Query([]byte{'A'})
	if err != nil {
		return 0, err
	}
	b, err := encrypt.Query([]byte{'B'})
	if err != nil {
		return 0, err
	}
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			return i, nil
		}
	}
	return 0, ErrPrefixNotFound
}

// EncryptAlignedBlock returns the ECB encryption of one chosen plaintext
// block, aligning it past a prefix of prefixLen bytes.
func EncryptAlignedBlock(o Oracle, prefixLen, blockSize int, block []byte, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if len(block) != blockSize {
		return nil, fmt.Errorf("%w: block of %d bytes, want %d", ErrLengthMismatch, len(block), blockSize)
	}
	align := alignPadding(prefixLen, blockSize)
	ct, err := o.Query(concat(fill(s.filler, align), block))
	if err != nil {
		return nil, err
	}
	start := prefixLen + align
	if len(ct) < start+blockSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidCiphertext)
	}
	return append([]byte(nil), ct[start:start+blockSize]...), nil
}

// CutAndPaste splices ECB ciphertext: the first keepBlocks blocks of the
// encryption of head, followed by the block encrypting the padded tail.
func CutAndPaste(o Oracle, prefixLen, blockSize int, head []byte, keepBlocks int, tail []byte, opts ...Option) ([]byte, error) {
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if len(tail) >= blockSize {
		return nil, fmt.Errorf("%w: tail of %d bytes does not pad into one block", ErrLengthMismatch, len(tail))
	}
	ct, err := o.Query(head)
	if err != nil {
		return nil, err
	}
	if len(ct) < keepBlocks*blockSize {
		return nil, fmt.Errorf("%w: only %d blocks to keep", ErrInvalidCiphertext, len(ct)/blockSize)
	}
	last, err := EncryptAlignedBlock(o, prefixLen, blockSize, blockcipher.PKCS7Pad(tail, blockSize), opts...)
	if err != nil {
		return nil, err
	}
	return concat(ct[:keepBlocks*blockSize], last), nil
}

// RecoverEditPlaintext decrypts CTR ciphertext given a random-access edit
// oracle: rewriting the whole plaintext with zeros yields the keystream.
func RecoverEditPlaintext(e EditOracle, ct []byte) ([]byte, error) {
	keystream, err := e.Edit(ct, 0, make([]byte, len(ct)))
	if err != nil {
		return nil, err
	}
	if len(keystream) != len(ct) {
		return nil, fmt.Errorf("%w: edit returned %d bytes for %d", ErrLengthMismatch, len(keystream), len(ct))
	}
	return blockcipher.XOR(ct, keystream), nil
}
