package attack

import "fmt"

// RepeatedBlocks counts the blockSize chunks of ct that repeat an earlier one.
func RepeatedBlocks(ct []byte, blockSize int) int {
	if blockSize <= 0 {
		return 0
	}
	seen := make(map[string]bool)
	n := 0
	for _, b := range blocks(ct, blockSize) {
		if seen[string(b)] {
			n++
		}
		seen[string(b)] = true
	}
	return n
}

// DetectStatelessRepetition reports whether any chunk of ct repeats, the
// signature of a stateless deterministic (ECB) transform.
func DetectStatelessRepetition(ct []byte, blockSize int) bool {
	return RepeatedBlocks(ct, blockSize) > 0
}

// SelectStateless returns the index of the ciphertext with the most repeated
// blocks. Ties go to the lowest index; false if nothing repeats.
func SelectStateless(cts [][]byte, blockSize int) (int, bool) {
	best, bestScore := -1, 0
	for i, ct := range cts {
		if score := RepeatedBlocks(ct, blockSize); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

// DetectMode feeds the oracle three blocks of filler. Whatever the prefix
// length, two of them end up block aligned, so ECB always shows a repeat and
// CBC almost never does.
func DetectMode(o Oracle, blockSize int, opts ...Option) (Mode, error) {
	s := newSettings(opts)
	if blockSize <= 0 {
		return 0, ErrInvalidBlockSize
	}
	ct, err := o.Query(fill(s.filler, 3*blockSize))
	if err != nil {
		return 0, fmt.Errorf("detect mode: %w", err)
	}
	if DetectStatelessRepetition(ct, blockSize) {
		return ModeECB, nil
	}
	return ModeCBC, nil
}
