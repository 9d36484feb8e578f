package labels

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// digestKey separates label buffer digests from any other BLAKE3 use.
var digestKey = [32]byte{
	'p', 'o', 's', 't', 'b', 'e', 'n', 'c', 'h', '.', 'l', 'a', 'b', 'e', 'l', 's',
}

// Digest is the keyed BLAKE3 hash of a label buffer.
type Digest [32]byte

// Sum computes the digest of buf.
func Sum(buf []byte) Digest {
	h, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		// NewKeyed only fails on a key that is not 32 bytes.
		panic(err)
	}
	h.Write(buf)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 bytes in hex, enough to tell outputs apart in
// progress lines.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:8])
}
