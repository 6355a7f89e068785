package attack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchByteLowestMatchWins(t *testing.T) {
	match := func(c byte) (bool, error) { return c == 0x41 || c == 0x42 || c == 0xfe, nil }
	for _, workers := range []int{0, 1, 2, 16, 256} {
		c, ok, err := searchByte(workers, match)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, byte(0x41), c, "workers=%d", workers)
	}
}

func TestSearchByteNoMatch(t *testing.T) {
	for _, workers := range []int{1, 8} {
		_, ok, err := searchByte(workers, func(byte) (bool, error) { return false, nil })
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestSearchBytePropagatesErrors(t *testing.T) {
	boom := errors.New("oracle down")
	for _, workers := range []int{1, 8} {
		_, _, err := searchByte(workers, func(c byte) (bool, error) {
			if c == 7 {
				return false, boom
			}
			return false, nil
		})
		assert.ErrorIs(t, err, boom)
	}
}

func TestAlignPadding(t *testing.T) {
	tests := []struct{ prefix, bs, want int }{
		{0, 16, 0}, {1, 16, 15}, {15, 16, 1}, {16, 16, 0}, {17, 16, 15}, {5, 8, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alignPadding(tt.prefix, tt.bs))
	}
}
