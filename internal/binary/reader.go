// Package binary provides utilities for reading sector data and packed-BCD fields from disc images.
package binary

import (
	"errors"
	"io"
)

// ReadAt reads len(buf) bytes from r at offset.
func ReadAt(r io.ReaderAt, offset int64, buf []byte) error {
	_, err := r.ReadAt(buf, offset)
	return err
}

// ReadBytesAt reads n bytes from r at offset.
func ReadBytesAt(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := ReadAt(r, offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUpTo reads into buf from r at offset and tolerates a short read at the
// end of the image. It returns the number of bytes read; io.EOF is only
// returned when nothing could be read.
func ReadUpTo(r io.ReaderAt, offset int64, buf []byte) (int, error) {
	n, err := r.ReadAt(buf, offset)
	if err != nil && errors.Is(err, io.EOF) {
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
	return n, err
}
