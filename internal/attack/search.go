package attack

import (
	"bytes"

	"golang.org/x/sync/errgroup"
)

// searchByte returns the lowest candidate for which test reports a match.
// With more than one worker every candidate is tried, so the winner does not
// depend on scheduling.
func searchByte(workers int, test func(c byte) (bool, error)) (byte, bool, error) {
	if workers <= 1 {
		for c := 0; c <= 0xff; c++ {
			ok, err := test(byte(c))
			if err != nil {
				return 0, false, err
			}
			if ok {
				return byte(c), true, nil
			}
		}
		return 0, false, nil
	}

	var hits [256]bool
	var g errgroup.Group
	g.SetLimit(workers)
	for c := 0; c <= 0xff; c++ {
		g.Go(func() error {
			ok, err := test(byte(c))
			if err != nil {
				return err
			}
			hits[c] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, false, err
	}
	for c, ok := range hits {
		if ok {
			return byte(c), true, nil
		}
	}
	return 0, false, nil
}

// blocks splits buf into n-byte chunks, dropping any short tail.
func blocks(buf []byte, n int) [][]byte {
	var out [][]byte
	for len(buf) >= n {
		out = append(out, buf[:n])
		buf = buf[n:]
	}
	return out
}

func fill(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
