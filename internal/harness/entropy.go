package harness

import (
	"io"
	"math/rand/v2"
)

// SeededEntropy returns a deterministic byte stream for identity and salt
// generation. The same seed always yields the same bytes.
func SeededEntropy(seed uint64) io.Reader {
	var key [32]byte
	for i := 0; i < 8; i++ {
		key[i] = byte(seed >> (8 * i))
	}
	return rand.NewChaCha8(key)
}
