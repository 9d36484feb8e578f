package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postbench/internal/layout"
)

func TestPut_ByteAlignedLabels(t *testing.T) {
	buf := make([]byte, layout.PackedSize(4, 8))
	for i := uint64(0); i < 4; i++ {
		Put(buf, i*8, []byte{byte(0xa0 + i), 0xff}, 8)
	}
	assert.Equal(t, []byte{0xa0, 0xa1, 0xa2, 0xa3}, buf)
}

func TestPut_OneBitLabelsAreLSBFirst(t *testing.T) {
	buf := make([]byte, layout.PackedSize(10, 1))
	for _, i := range []uint64{0, 3, 8, 9} {
		Put(buf, i, []byte{0x01}, 1)
	}
	Put(buf, 1, []byte{0xfe}, 1)
	assert.Equal(t, []byte{0x09, 0x03}, buf)
}

func TestPut_PreservesNeighbours(t *testing.T) {
	buf := []byte{0xff, 0xff}
	Put(buf, 3, []byte{0x00}, 5)
	assert.Equal(t, []byte{0x07, 0xff}, buf)
}

func TestPutGet_RoundTripOddWidth(t *testing.T) {
	const width = 13
	buf := make([]byte, layout.PackedSize(20, width))
	for i := uint64(0); i < 20; i++ {
		Put(buf, i*width, []byte{byte(i * 37), byte(i)}, width)
	}
	for i := uint64(0); i < 20; i++ {
		got := Get(buf, i, width)
		want := []byte{byte(i * 37), byte(i) & 0x1f}
		require.Equal(t, want, got, "label %d", i)
	}
}

func TestCompare_Equal(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	d := Compare(a, []byte{1, 2, 3, 4}, 4)
	assert.True(t, d.Equal())
	assert.Equal(t, 4, d.Compared)
	assert.Empty(t, d.Blocks)
}

func TestCompare_ReportsBlocks(t *testing.T) {
	ref := make([]byte, 100)
	got := make([]byte, 100)
	got[5] = 1
	got[6] = 1
	got[70] = 1

	d := Compare(ref, got, 100)
	assert.False(t, d.Equal())
	assert.Equal(t, 5, d.FirstMismatch)
	assert.Equal(t, 3, d.MismatchedBytes)
	assert.Equal(t, []int{0, 2}, d.Blocks)
}

func TestCompare_IgnoresBytesPastPrefix(t *testing.T) {
	ref := []byte{1, 2, 3, 0}
	got := []byte{1, 2, 3, 9}
	d := Compare(ref, got, 3)
	assert.True(t, d.Equal())
	assert.Equal(t, 3, d.Compared)
}

func TestCompare_ClampsToShorterBuffer(t *testing.T) {
	d := Compare([]byte{1, 2}, []byte{1, 2, 3}, 10)
	assert.Equal(t, 2, d.Compared)
	assert.True(t, d.Equal())
}

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("labels"))
	b := Sum([]byte("labels"))
	c := Sum([]byte("labelz"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.String(), 64)
	assert.Len(t, a.Short(), 16)
}
