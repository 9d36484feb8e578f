// Package labels handles bit-packed label buffers.
//
// Labels are packed LSB-first: bit k of a buffer is bit k%8 of byte k/8,
// and label i of width w occupies bits [i*w, (i+1)*w). The final byte is
// zero padded. All providers must use this packing, so buffers are
// compared byte for byte without any bit realignment.
package labels
