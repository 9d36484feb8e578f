package labels

import "bytes"

// BlockSize is the granularity of mismatch reports.
const BlockSize = 32

// Diff is the outcome of comparing two buffers over a byte prefix.
type Diff struct {
	// Compared is the number of bytes inspected.
	Compared int `json:"compared_bytes"`

	// FirstMismatch is the offset of the first differing byte, or -1.
	FirstMismatch int `json:"first_mismatch"`

	// MismatchedBytes counts differing bytes.
	MismatchedBytes int `json:"mismatched_bytes"`

	// Blocks lists the indexes of BlockSize-byte blocks containing at
	// least one differing byte, in ascending order.
	Blocks []int `json:"mismatched_blocks,omitempty"`
}

// Equal reports whether no differing byte was found.
func (d Diff) Equal() bool {
	return d.FirstMismatch < 0
}

// Compare inspects the first n bytes of ref and got. Bytes past n are
// never looked at. n is clamped to the shorter buffer.
func Compare(ref, got []byte, n int) Diff {
	n = min(n, len(ref), len(got))
	d := Diff{Compared: n, FirstMismatch: -1}
	if bytes.Equal(ref[:n], got[:n]) {
		return d
	}
	lastBlock := -1
	for i := 0; i < n; i++ {
		if ref[i] == got[i] {
			continue
		}
		if d.FirstMismatch < 0 {
			d.FirstMismatch = i
		}
		d.MismatchedBytes++
		if blk := i / BlockSize; blk != lastBlock {
			d.Blocks = append(d.Blocks, blk)
			lastBlock = blk
		}
	}
	return d
}
