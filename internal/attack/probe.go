package attack

import "fmt"

// DetectLengths infers the block size and the length of the hidden content
// (prefix plus suffix) of an oracle that pads with PKCS#7. It appends one
// filler byte at a time until the ciphertext grows: the growth is the block
// size, and at that point the hidden content plus filler fills whole blocks
// exactly.
func DetectLengths(o Oracle, maxGuess int, opts ...Option) (ProbeResult, error) {
	s := newSettings(opts)
	base, err := o.Query(nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe baseline: %w", err)
	}
	prev := len(base)
	for i := 1; i <= maxGuess; i++ {
		out, err := o.Query(fill(s.filler, i))
		if err != nil {
			return ProbeResult{}, fmt.Errorf("probe with %d filler bytes: %w", i, err)
		}
		if len(out) > prev {
			return ProbeResult{VisibleLength: len(base) - i, BlockSize: len(out) - prev}, nil
		}
		prev = len(out)
	}
	return ProbeResult{}, fmt.Errorf("%w within %d filler bytes", ErrProbeFailed, maxGuess)
}
