package store

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// packSample compresses both sides of a mismatch sample into one blob.
// expected and actual always have the same length.
func packSample(expected, actual []byte) []byte {
	if len(expected) == 0 {
		return nil
	}
	joined := make([]byte, 0, len(expected)+len(actual))
	joined = append(joined, expected...)
	joined = append(joined, actual...)
	return zstdEncoder.EncodeAll(joined, nil)
}

// unpackSample reverses packSample. sideLen is the length of one side.
func unpackSample(blob []byte, sideLen int) (expected, actual []byte, err error) {
	if sideLen == 0 {
		return nil, nil, nil
	}
	joined, err := zstdDecoder.DecodeAll(blob, make([]byte, 0, 2*sideLen))
	if err != nil {
		return nil, nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(joined) != 2*sideLen {
		return nil, nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(joined), 2*sideLen)
	}
	return joined[:sideLen], joined[sideLen:], nil
}
