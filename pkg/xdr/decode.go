package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// ============================================================================
// XDR Decoding Helpers - Wire Format → Go Types
// ============================================================================

// MaxOpaqueLength bounds the length prefix accepted by DecodeOpaque and
// DecodeString. Longer values are rejected before any allocation.
const MaxOpaqueLength = 16 * 1024 * 1024

// DecodeOpaque decodes XDR variable-length opaque data.
//
// Per RFC 4506 Section 4.10 (Variable-Length Opaque Data):
// Format: [length:uint32][data:length bytes][padding:0-3 bytes]
//
// Returns:
//   - []byte: Decoded data (padding consumed and discarded)
//   - error: io.ErrUnexpectedEOF on short input, ErrLengthExceeded when the
//     length prefix is above MaxOpaqueLength
func DecodeOpaque(reader io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", unexpectedEOF(err))
	}

	if length > MaxOpaqueLength {
		return nil, fmt.Errorf("%w: opaque length %d, maximum %d", ErrLengthExceeded, length, MaxOpaqueLength)
	}

	return DecodeFixedOpaque(reader, length)
}

// DecodeFixedOpaque decodes n bytes of fixed-length opaque data followed by
// its padding.
//
// Per RFC 4506 Section 4.9 (Fixed-Length Opaque Data).
func DecodeFixedOpaque(reader io.Reader, n uint32) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read data: %w", unexpectedEOF(err))
	}

	if err := SkipPadding(reader, n); err != nil {
		return nil, err
	}
	return data, nil
}

// SkipPadding consumes the 0-3 padding bytes that follow dataLen bytes of
// variable-length data.
func SkipPadding(reader io.Reader, dataLen uint32) error {
	padding := Padding(dataLen)
	if padding > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(reader, padBuf[:padding]); err != nil {
			return fmt.Errorf("skip padding: %w", unexpectedEOF(err))
		}
	}
	return nil
}

// DecodeString decodes an XDR variable-length string.
//
// Per RFC 4506 Section 4.11 (String):
// Strings use the same encoding as opaque data.
//
// A string that is not valid UTF-8 is fully consumed (padding included) and
// reported as ErrInvalidUTF8, leaving the reader aligned on the next item.
func DecodeString(reader io.Reader) (string, error) {
	data, err := DecodeOpaque(reader)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidUTF8, len(data))
	}
	return string(data), nil
}

// DecodeUint32 decodes a 32-bit unsigned integer.
func DecodeUint32(reader io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", unexpectedEOF(err))
	}
	return v, nil
}

// DecodeUint64 decodes a 64-bit unsigned hyper integer.
func DecodeUint64(reader io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", unexpectedEOF(err))
	}
	return v, nil
}

// DecodeInt32 decodes a 32-bit signed integer.
func DecodeInt32(reader io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read int32: %w", unexpectedEOF(err))
	}
	return v, nil
}

// DecodeInt64 decodes a 64-bit signed hyper integer.
func DecodeInt64(reader io.Reader) (int64, error) {
	var v int64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read int64: %w", unexpectedEOF(err))
	}
	return v, nil
}

// DecodeFloat32 decodes an IEEE 754 single-precision float.
func DecodeFloat32(reader io.Reader) (float32, error) {
	var v float32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read float32: %w", unexpectedEOF(err))
	}
	return v, nil
}

// DecodeFloat64 decodes an IEEE 754 double-precision float.
func DecodeFloat64(reader io.Reader) (float64, error) {
	var v float64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read float64: %w", unexpectedEOF(err))
	}
	return v, nil
}

// DecodeBool decodes an XDR boolean.
//
// Per RFC 4506 Section 4.4 (Boolean):
// Booleans are encoded as uint32 where 0 = false, any non-zero = true.
func DecodeBool(reader io.Reader) (bool, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
