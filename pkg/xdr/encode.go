package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ============================================================================
// XDR Encoding Helpers - Go Types → Wire Format
// ============================================================================

// Padding returns the number of zero bytes needed after n bytes of data to
// reach the next 4-byte boundary.
//
// Example: n=5 → 3, n=8 → 0
func Padding(n uint32) uint32 {
	return (4 - (n % 4)) % 4
}

// WriteXDROpaque encodes variable-length opaque data: length + data + padding.
//
// Per RFC 4506 Section 4.10 (Variable-Length Opaque Data):
// Format: [length:uint32][data:bytes][padding:0-3 bytes]
//
// Example:
//
//	[]byte{0x01, 0x02, 0x03} → [00 00 00 03][01 02 03][00] (8 bytes total)
func WriteXDROpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write opaque length: %w", err)
	}

	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write opaque data: %w", err)
	}

	return WriteXDRPadding(buf, length)
}

// WriteXDRFixedOpaque encodes fixed-length opaque data: data + padding.
// The length is implied by the type and is not written.
//
// Per RFC 4506 Section 4.9 (Fixed-Length Opaque Data).
func WriteXDRFixedOpaque(buf *bytes.Buffer, data []byte) error {
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write fixed opaque: %w", err)
	}
	return WriteXDRPadding(buf, uint32(len(data)))
}

// WriteXDRString encodes a string in XDR format: length + data + padding.
//
// Per RFC 4506 Section 4.11 (String):
// Format: [length:uint32][data:bytes][padding:0-3 bytes]
//
// Only ASCII strings can be encoded; any byte above 0x7f returns ErrNonASCII
// and nothing is written.
//
// Example:
//
//	"ab" (2 bytes) → [00 00 00 02][61 62][00 00] (8 bytes total)
func WriteXDRString(buf *bytes.Buffer, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return fmt.Errorf("%w: byte 0x%02x at offset %d", ErrNonASCII, s[i], i)
		}
	}

	length := uint32(len(s))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write string length: %w", err)
	}

	if _, err := buf.WriteString(s); err != nil {
		return fmt.Errorf("write string data: %w", err)
	}

	return WriteXDRPadding(buf, length)
}

// WriteXDRPadding writes the zero bytes that align dataLen bytes of data to a
// 4-byte boundary.
func WriteXDRPadding(buf *bytes.Buffer, dataLen uint32) error {
	padding := Padding(dataLen)
	if padding > 0 {
		var padBuf [3]byte
		if _, err := buf.Write(padBuf[:padding]); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}
	return nil
}

// WriteUint32 encodes a 32-bit unsigned integer (RFC 4506 Section 4.2).
func WriteUint32(buf *bytes.Buffer, v uint32) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write uint32: %w", err)
	}
	return nil
}

// WriteUint64 encodes a 64-bit unsigned hyper integer (RFC 4506 Section 4.5).
func WriteUint64(buf *bytes.Buffer, v uint64) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write uint64: %w", err)
	}
	return nil
}

// WriteInt32 encodes a 32-bit signed integer in two's complement
// (RFC 4506 Section 4.1).
func WriteInt32(buf *bytes.Buffer, v int32) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write int32: %w", err)
	}
	return nil
}

// WriteInt64 encodes a 64-bit signed hyper integer (RFC 4506 Section 4.5).
func WriteInt64(buf *bytes.Buffer, v int64) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write int64: %w", err)
	}
	return nil
}

// WriteFloat32 encodes an IEEE 754 single-precision float
// (RFC 4506 Section 4.6).
func WriteFloat32(buf *bytes.Buffer, v float32) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write float32: %w", err)
	}
	return nil
}

// WriteFloat64 encodes an IEEE 754 double-precision float
// (RFC 4506 Section 4.7).
func WriteFloat64(buf *bytes.Buffer, v float64) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write float64: %w", err)
	}
	return nil
}

// WriteBool encodes a boolean as a uint32 where 0 = false, 1 = true
// (RFC 4506 Section 4.4).
func WriteBool(buf *bytes.Buffer, v bool) error {
	var val uint32
	if v {
		val = 1
	}
	return WriteUint32(buf, val)
}
