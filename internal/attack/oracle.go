// Package attack implements adaptive chosen-plaintext and chosen-ciphertext
// attacks against block-cipher oracles. Every attack drives an Oracle or
// Validator supplied by the caller; none of them ever sees key material.
package attack

import "fmt"

// Oracle is a black box closed over a hidden key (and possibly a hidden
// prefix, suffix or IV). It must answer identically for identical input for
// the lifetime of an attack.
type Oracle interface {
	Query(in []byte) ([]byte, error)
}

type OracleFunc func(in []byte) ([]byte, error)

func (f OracleFunc) Query(in []byte) ([]byte, error) { return f(in) }

// Validator reports only whether ct decrypts to well-formed padding.
type Validator interface {
	Valid(ct []byte) bool
}

type ValidatorFunc func(ct []byte) bool

func (f ValidatorFunc) Valid(ct []byte) bool { return f(ct) }

// EditOracle re-encrypts ct after overwriting plaintext at offset.
type EditOracle interface {
	Edit(ct []byte, offset int, replacement []byte) ([]byte, error)
}

// LeakError is returned by decrypt oracles that refuse a plaintext but echo
// it back to the caller.
type LeakError struct {
	Reason    string
	Plaintext []byte
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("plaintext rejected: %s", e.Reason)
}

type Mode int

const (
	ModeECB Mode = iota + 1
	ModeCBC
	ModeCTR
)

func (m Mode) String() string {
	switch m {
	case ModeECB:
		return "ECB"
	case ModeCBC:
		return "CBC"
	case ModeCTR:
		return "CTR"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ProbeResult is what DetectLengths infers about an oracle.
type ProbeResult struct {
	VisibleLength int `json:"visible_length"`
	BlockSize     int `json:"block_size"`
}

// PrefixInfo describes the hidden bytes an oracle places before attacker input.
type PrefixInfo struct {
	Length       int `json:"length"`
	AlignPadding int `json:"align_padding"`
}

func alignPadding(prefixLen, blockSize int) int {
	return (blockSize - prefixLen%blockSize) % blockSize
}
