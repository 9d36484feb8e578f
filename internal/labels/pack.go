package labels

// Put writes the low width bits of value (LSB-first) into dst starting at
// bit offset off. Bits of dst outside the label are preserved.
func Put(dst []byte, off uint64, value []byte, width uint32) {
	if off%8 == 0 && width%8 == 0 {
		copy(dst[off/8:off/8+uint64(width/8)], value)
		return
	}
	for b := uint32(0); b < width; b++ {
		bit := (value[b/8] >> (b % 8)) & 1
		pos := off + uint64(b)
		if bit == 1 {
			dst[pos/8] |= 1 << (pos % 8)
		} else {
			dst[pos/8] &^= 1 << (pos % 8)
		}
	}
}

// Get returns label i of width bits from src as a little-endian byte slice
// of ceil(width/8) bytes.
func Get(src []byte, i uint64, width uint32) []byte {
	out := make([]byte, (width+7)/8)
	off := i * uint64(width)
	for b := uint32(0); b < width; b++ {
		pos := off + uint64(b)
		if (src[pos/8]>>(pos%8))&1 == 1 {
			out[b/8] |= 1 << (b % 8)
		}
	}
	return out
}
