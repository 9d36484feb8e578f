package testvector

import (
	"fmt"
	"io"
)

// WriteListing prints buf as a literal byte listing, 32 bytes per line:
//
//	0x0c, 0xb8, 0xc0, ...
//
// The output can be pasted into source as an array initializer.
func WriteListing(w io.Writer, buf []byte) error {
	for off := 0; off < len(buf); off += 32 {
		end := min(off+32, len(buf))
		for _, b := range buf[off:end] {
			if _, err := fmt.Fprintf(w, "0x%02x, ", b); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
