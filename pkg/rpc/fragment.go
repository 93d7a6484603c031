package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ============================================================================
// Record Marking (RFC 5531 Section 11)
// ============================================================================
//
// On stream transports each RPC message is a record made of one or more
// fragments. Every fragment starts with a 4-byte big-endian header:
//   - bit 31: last fragment flag (1 = this fragment ends the record)
//   - bits 0-30: fragment length in bytes

const (
	// LastFragmentFlag is bit 31 of a fragment header.
	LastFragmentFlag = 0x80000000

	// MaxFragmentLength is the largest length a fragment header can carry.
	MaxFragmentLength = 0x7FFFFFFF
)

// FragmentHeader is the 4-byte record-marking header.
type FragmentHeader uint32

// NewFragmentHeader builds a header. It panics when length does not fit in
// 31 bits.
func NewFragmentHeader(last bool, length uint32) FragmentHeader {
	if length > MaxFragmentLength {
		panic(fmt.Sprintf("rpc: fragment length %d exceeds %d", length, MaxFragmentLength))
	}
	h := FragmentHeader(length)
	if last {
		h |= LastFragmentFlag
	}
	return h
}

// Last reports whether the fragment ends its record.
func (h FragmentHeader) Last() bool {
	return h&LastFragmentFlag != 0
}

// Len returns the fragment payload length.
func (h FragmentHeader) Len() uint32 {
	return uint32(h) & MaxFragmentLength
}

// EncodeFragmentHeader writes h in big-endian order.
func EncodeFragmentHeader(w io.Writer, h FragmentHeader) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(h))
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("write fragment header: %w", err)
	}
	return nil
}

// DecodeFragmentHeader reads a header. A stream that ends cleanly before the
// header returns io.EOF.
func DecodeFragmentHeader(r io.Reader) (FragmentHeader, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return FragmentHeader(binary.BigEndian.Uint32(b[:])), nil
}

// WriteRecord writes payload as a record with a single fragment marked last.
func WriteRecord(w io.Writer, payload []byte) error {
	if err := EncodeFragmentHeader(w, NewFragmentHeader(true, uint32(len(payload)))); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write fragment: %w", err)
	}
	return nil
}

// FragmentReader reassembles one record from its fragments and presents the
// payload as a contiguous stream.
//
// Read fills the caller's buffer across fragment boundaries, reading the
// next header whenever the current fragment is exhausted. Once the last
// fragment is consumed Read returns io.EOF, so io.ReadFull reports a value
// cut short by the end of the record as io.ErrUnexpectedEOF.
//
// Errors from the underlying stream are sticky: after one, every Read and
// Discard returns it again. Call Reset before reading the next record.
type FragmentReader struct {
	r         io.Reader
	nleft     uint32
	last      bool
	started   bool
	err       error
	fragments int
	bytes     int64
}

// NewFragmentReader returns a reader positioned before the first fragment
// header of a record.
func NewFragmentReader(r io.Reader) *FragmentReader {
	return &FragmentReader{r: r}
}

// Reset prepares the reader for the next record on the same stream.
// Sticky stream errors survive a Reset.
func (f *FragmentReader) Reset() {
	f.nleft = 0
	f.last = false
	f.started = false
	f.fragments = 0
	f.bytes = 0
}

// Fragments returns the number of fragment headers read for this record.
func (f *FragmentReader) Fragments() int { return f.fragments }

// BytesRead returns the payload bytes consumed from this record.
func (f *FragmentReader) BytesRead() int64 { return f.bytes }

// Done reports whether the whole record has been consumed.
func (f *FragmentReader) Done() bool {
	return f.started && f.last && f.nleft == 0
}

// nextFragment reads headers until it finds a non-empty fragment or the
// record ends. It returns io.EOF at the end of the record.
func (f *FragmentReader) nextFragment() error {
	for f.nleft == 0 {
		if f.Done() {
			return io.EOF
		}
		h, err := DecodeFragmentHeader(f.r)
		if err != nil {
			if f.started || err != io.EOF {
				err = fmt.Errorf("read fragment header: %w", unexpected(err))
			}
			f.err = err
			return err
		}
		f.started = true
		f.fragments++
		f.last = h.Last()
		f.nleft = h.Len()
	}
	return nil
}

func (f *FragmentReader) Read(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}

	n := 0
	for n < len(p) {
		if err := f.nextFragment(); err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}

		chunk := p[n:]
		if uint32(len(chunk)) > f.nleft {
			chunk = chunk[:f.nleft]
		}
		m, err := io.ReadFull(f.r, chunk)
		n += m
		f.nleft -= uint32(m)
		f.bytes += int64(m)
		if err != nil {
			f.err = fmt.Errorf("read fragment: %w", unexpected(err))
			return n, f.err
		}
	}
	return n, nil
}

// Discard consumes whatever is left of the current record, including
// fragments not yet started. It is a no-op on a finished record.
func (f *FragmentReader) Discard() error {
	if f.err != nil {
		return f.err
	}
	for {
		if f.nleft > 0 {
			m, err := io.CopyN(io.Discard, f.r, int64(f.nleft))
			f.nleft -= uint32(m)
			f.bytes += m
			if err != nil {
				f.err = fmt.Errorf("discard fragment: %w", unexpected(err))
				return f.err
			}
		}
		if err := f.nextFragment(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
