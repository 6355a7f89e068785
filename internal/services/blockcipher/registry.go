package blockcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
	"sort"
	"strings"

	goaria "github.com/RyuaNerin/go-krypto/aria"
	gohight "github.com/RyuaNerin/go-krypto/hight"
	golea "github.com/RyuaNerin/go-krypto/lea"
	goseed "github.com/RyuaNerin/go-krypto/seed"
	"github.com/aead/camellia"
	"golang.org/x/crypto/cast5"
)

// Algorithm names accepted by New. HIGHT, TDEA and CAST5 have 8-byte blocks,
// the rest 16.
const (
	AES      = "AES"
	ARIA     = "ARIA"
	CAMELLIA = "CAMELLIA"
	CAST5    = "CAST5"
	HIGHT    = "HIGHT"
	LEA      = "LEA"
	SEED     = "SEED"
	TDEA     = "TDEA"
)

type algorithm struct {
	keySize   int
	blockSize int
	newCipher func(key []byte) (cipher.Block, error)
}

var algorithms = map[string]algorithm{
	AES:      {16, aes.BlockSize, aes.NewCipher},
	ARIA:     {16, 16, goaria.NewCipher},
	CAMELLIA: {16, 16, camellia.NewCipher},
	CAST5: {16, cast5.BlockSize, func(key []byte) (cipher.Block, error) {
		return cast5.NewCipher(key)
	}},
	HIGHT: {16, 8, gohight.NewCipher},
	LEA:   {16, 16, golea.NewCipher},
	SEED:  {16, 16, goseed.NewCipher},
	TDEA:  {24, des.BlockSize, des.NewTripleDESCipher},
}

func lookup(name string) (algorithm, error) {
	a, ok := algorithms[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return algorithm{}, fmt.Errorf("unsupported algorithm %q", name)
	}
	return a, nil
}

// New returns the block transform for algorithm keyed with key.
func New(name string, key []byte) (cipher.Block, error) {
	a, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if len(key) != a.keySize {
		return nil, fmt.Errorf("%s key must be %d bytes, got %d", strings.ToUpper(name), a.keySize, len(key))
	}
	return a.newCipher(key)
}

// NewRandom returns the block transform for algorithm under a fresh random key.
func NewRandom(name string) (cipher.Block, []byte, error) {
	size, err := KeySize(name)
	if err != nil {
		return nil, nil, err
	}
	key, err := RandBytes(size)
	if err != nil {
		return nil, nil, err
	}
	blk, err := New(name, key)
	if err != nil {
		return nil, nil, err
	}
	return blk, key, nil
}

func KeySize(name string) (int, error) {
	a, err := lookup(name)
	if err != nil {
		return 0, err
	}
	return a.keySize, nil
}

func BlockSize(name string) (int, error) {
	a, err := lookup(name)
	if err != nil {
		return 0, err
	}
	return a.blockSize, nil
}

// Algorithms lists the registered algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for n := range algorithms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
