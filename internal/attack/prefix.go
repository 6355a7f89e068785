package attack

import (
	"bytes"
	"fmt"
	"slices"
)

// prefixFillers are distinct so that a suffix starting with one of them, or a
// prefix already holding a whole block of one, leaves the others usable.
var prefixFillers = [...]byte{'A', 'B', 'C'}

// FindPrefixLength measures the hidden prefix an ECB oracle places before
// attacker input. Each filler byte gives an estimate. Filler bytes at the start
// of the suffix can only make an estimate too long, so the smallest wins.
func FindPrefixLength(o Oracle, blockSize int) (PrefixInfo, error) {
	if blockSize <= 0 {
		return PrefixInfo{}, ErrInvalidBlockSize
	}
	base, err := o.Query(nil)
	if err != nil {
		return PrefixInfo{}, fmt.Errorf("prefix baseline: %w", err)
	}

	var estimates []int
	for _, f := range prefixFillers {
		n, ok, err := estimatePrefix(o, blockSize, f, base)
		if err != nil {
			return PrefixInfo{}, err
		}
		if ok {
			estimates = append(estimates, n)
		}
	}
	if len(estimates) == 0 {
		return PrefixInfo{}, ErrPrefixNotFound
	}
	n := slices.Min(estimates)
	return PrefixInfo{Length: n, AlignPadding: alignPadding(n, blockSize)}, nil
}

// estimatePrefix finds the first pair of adjacent equal blocks produced by
// three blocks of filler f, then the shortest filler that still produces that
// block. The surplus over one block is the alignment padding.
func estimatePrefix(o Oracle, blockSize int, f byte, base []byte) (int, bool, error) {
	ct, err := o.Query(fill(f, 3*blockSize))
	if err != nil {
		return 0, false, fmt.Errorf("prefix probe: %w", err)
	}
	bl := blocks(ct, blockSize)
	index := -1
	for i := 0; i+1 < len(bl); i++ {
		// Pairs already present without filler belong to the hidden data.
		if bytes.Equal(bl[i], bl[i+1]) && !containsBlock(base, bl[i], blockSize) {
			index = i
			break
		}
	}
	if index < 0 {
		return 0, false, nil
	}
	marker := bl[index]

	for i := 0; i < 2*blockSize; i++ {
		ct, err := o.Query(fill(f, i))
		if err != nil {
			return 0, false, fmt.Errorf("prefix probe: %w", err)
		}
		if containsBlock(ct, marker, blockSize) {
			return max(index*blockSize-(i-blockSize), 0), true, nil
		}
	}
	return 0, false, nil
}

func containsBlock(ct, block []byte, blockSize int) bool {
	for _, b := range blocks(ct, blockSize) {
		if bytes.Equal(b, block) {
			return true
		}
	}
	return false
}
