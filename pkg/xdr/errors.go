package xdr

import (
	"errors"
	"io"
)

var (
	// ErrNonASCII is returned when encoding a string with bytes outside 0x00-0x7f.
	ErrNonASCII = errors.New("xdr: string is not ASCII")

	// ErrInvalidUTF8 is returned when a decoded string is not valid UTF-8.
	// The stream stays aligned, so the caller may continue decoding.
	ErrInvalidUTF8 = errors.New("xdr: string is not valid UTF-8")

	// ErrLengthExceeded is returned when a decoded length prefix is above
	// the configured maximum.
	ErrLengthExceeded = errors.New("xdr: length exceeds maximum")

	// ErrArrayLength is returned when a fixed-length array is encoded with
	// the wrong number of elements.
	ErrArrayLength = errors.New("xdr: fixed array length mismatch")
)

// unexpectedEOF turns a clean io.EOF into io.ErrUnexpectedEOF. Decoders are
// always called with an item expected, so running out of input is a short read.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
