package attack

import (
	"bytes"
	"fmt"
)

// recoveryContext carries the state of a byte-at-a-time recovery between
// oracle round trips.
type recoveryContext struct {
	oracle    Oracle
	blockSize int
	filler    byte
	// align pushes attacker bytes onto a block boundary after the prefix.
	align []byte
	// base is the offset of that boundary in the ciphertext.
	base int
	// window is the span, from base, whose last byte is the byte being
	// recovered.
	window    int
	recovered []byte
}

// RecoverSuffix reconstructs the hidden suffix of an ECB oracle computing
// E(prefix || input || suffix). visibleLength is the prefix plus suffix length
// reported by DetectLengths. Bytes are recovered front to back by sliding each
// unknown byte into the last position of a block whose other bytes are known.
func RecoverSuffix(o Oracle, blockSize, visibleLength int, prefix PrefixInfo, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	secretLen := visibleLength - prefix.Length
	if secretLen < 0 || prefix.AlignPadding < 0 {
		return nil, fmt.Errorf("%w: visible length %d shorter than prefix %d", ErrLengthMismatch, visibleLength, prefix.Length)
	}

	rc := &recoveryContext{
		oracle:    o,
		blockSize: blockSize,
		filler:    s.filler,
		align:     fill(s.filler, prefix.AlignPadding),
		base:      prefix.Length + prefix.AlignPadding,
		window:    (secretLen/blockSize + 1) * blockSize,
		recovered: make([]byte, 0, secretLen),
	}
	for len(rc.recovered) < secretLen {
		b, err := rc.next(s.workers)
		if err != nil {
			return nil, err
		}
		rc.recovered = append(rc.recovered, b)
		s.log.Debugw("recovered suffix byte", "position", len(rc.recovered)-1, "of", secretLen)
	}
	return rc.recovered, nil
}

// targetBlock slices out the block whose last byte is the one under attack.
func (rc *recoveryContext) targetBlock(ct []byte) ([]byte, error) {
	end := rc.base + rc.window
	if len(ct) < end {
		return nil, fmt.Errorf("%w: ciphertext of %d bytes ends before offset %d", ErrByteRecoveryStalled, len(ct), end)
	}
	return ct[end-rc.blockSize : end], nil
}

func (rc *recoveryContext) next(workers int) (byte, error) {
	pos := len(rc.recovered)
	query := concat(rc.align, fill(rc.filler, rc.window-1-pos))
	ct, err := rc.oracle.Query(query)
	if err != nil {
		return 0, fmt.Errorf("suffix byte %d: %w", pos, err)
	}
	target, err := rc.targetBlock(ct)
	if err != nil {
		return 0, err
	}
	target = bytes.Clone(target)

	known := concat(query, rc.recovered)
	b, ok, err := searchByte(workers, func(c byte) (bool, error) {
		out, err := rc.oracle.Query(concat(known, []byte{c}))
		if err != nil {
			return false, err
		}
		got, err := rc.targetBlock(out)
		if err != nil {
			return false, err
		}
		return bytes.Equal(got, target), nil
	})
	if err != nil {
		return 0, fmt.Errorf("suffix byte %d: %w", pos, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: no candidate matched suffix byte %d", ErrByteRecoveryStalled, pos)
	}
	return b, nil
}

// BreakSuffixOracle runs the whole chain against an ECB suffix oracle: length
// and block size discovery, mode check, prefix measurement and recovery.
func BreakSuffixOracle(o Oracle, opts ...Option) ([]byte, error) {
	s := newSettings(opts)
	probe, err := DetectLengths(o, s.maxGuess, opts...)
	if err != nil {
		return nil, err
	}
	mode, err := DetectMode(o, probe.BlockSize, opts...)
	if err != nil {
		return nil, err
	}
	if mode != ModeECB {
		return nil, fmt.Errorf("%w: detected %s", ErrNotStateless, mode)
	}
	prefix, err := FindPrefixLength(o, probe.BlockSize)
	if err != nil {
		return nil, err
	}
	s.log.Infow("suffix oracle probed",
		"block_size", probe.BlockSize,
		"visible_length", probe.VisibleLength,
		"prefix_length", prefix.Length,
	)
	return RecoverSuffix(o, probe.BlockSize, probe.VisibleLength, prefix, opts...)
}
