// Package layout computes label buffer sizes.
//
// Every call site that sizes, slices or compares a label buffer goes
// through PackedSize and AlignedSize. Nothing else in the module does
// its own size arithmetic.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// RegionAlignment is the byte boundary each provider region is padded to
// when several outputs share one allocation.
const RegionAlignment = 32

// MaxBufferBytes bounds a single allocation. Requests above it fail with
// ErrAllocation instead of reaching the runtime allocator.
const MaxBufferBytes = 8 << 30

// ErrAllocation reports that a label buffer could not be allocated.
var ErrAllocation = errors.New("buffer allocation failed")

// PackedSize returns ceil(labelsCount*labelSize/8), the number of bytes
// holding labelsCount labels of labelSize bits with no inter-label padding.
func PackedSize(labelsCount uint64, labelSize uint32) uint64 {
	bits := labelsCount * uint64(labelSize)
	return (bits + 7) / 8
}

// PrefixSize returns the number of whole bytes covered by labelsCount
// labels, floor(labelsCount*labelSize/8). Comparisons over a prefix of a
// longer buffer stop here so a partially filled byte is never inspected.
func PrefixSize(labelsCount uint64, labelSize uint32) uint64 {
	return labelsCount * uint64(labelSize) / 8
}

// AlignedSize rounds packedSize up to the next multiple of RegionAlignment.
func AlignedSize(packedSize uint64) uint64 {
	return (packedSize + RegionAlignment - 1) / RegionAlignment * RegionAlignment
}

// Allocator returns a zeroed buffer of n bytes.
type Allocator func(n uint64) ([]byte, error)

// Allocate is the default Allocator.
func Allocate(n uint64) ([]byte, error) {
	if n > MaxBufferBytes || n > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrAllocation, n, uint64(MaxBufferBytes))
	}
	return make([]byte, n), nil
}

// Arena is one allocation split into equally sized, aligned regions, one
// per provider. Only the first Packed bytes of a region hold labels; the
// remaining bytes up to Stride are padding and never compared.
type Arena struct {
	buf    []byte
	Packed uint64
	Stride uint64
}

// NewArena allocates regions for count providers, each sized for
// labelsCount labels of labelSize bits.
func NewArena(alloc Allocator, count int, labelsCount uint64, labelSize uint32) (*Arena, error) {
	if alloc == nil {
		alloc = Allocate
	}
	packed := PackedSize(labelsCount, labelSize)
	stride := AlignedSize(packed)
	if count < 0 || (count > 0 && stride > math.MaxUint64/uint64(count)) {
		return nil, fmt.Errorf("%w: %d regions of %d bytes", ErrAllocation, count, stride)
	}
	buf, err := alloc(stride * uint64(count))
	if err != nil {
		return nil, err
	}
	return &Arena{buf: buf, Packed: packed, Stride: stride}, nil
}

// Region returns the label bytes of region i. The slice capacity stops at
// the region's padding so appends can never reach the next region.
func (a *Arena) Region(i int) []byte {
	start := uint64(i) * a.Stride
	return a.buf[start : start+a.Packed : start+a.Stride]
}

// Len returns the total size of the arena in bytes.
func (a *Arena) Len() int {
	return len(a.buf)
}
