package xdr

import (
	"bytes"
	"fmt"
	"io"
)

// ============================================================================
// XDR Array Helpers
// ============================================================================
//
// Per RFC 4506 Section 4.12 (Fixed-Length Array), fixed arrays are the
// concatenation of their elements. Per Section 4.13 (Variable-Length Array),
// variable arrays carry a uint32 element count first.

// MaxArrayLength bounds the element count accepted by DecodeArray.
const MaxArrayLength = 1 << 20

// preallocCap caps the initial capacity taken from an untrusted count.
const preallocCap = 1024

// decoderPtr constrains PT to be *T and an XdrDecoder, so decoded elements
// can be stored by value.
type decoderPtr[T any] interface {
	*T
	XdrDecoder
}

// EncodeFixedArray encodes exactly n elements without a count prefix.
func EncodeFixedArray[T XdrEncoder](buf *bytes.Buffer, items []T, n int) error {
	if len(items) != n {
		return fmt.Errorf("%w: have %d elements, want %d", ErrArrayLength, len(items), n)
	}
	for i := range items {
		if err := items[i].Encode(buf); err != nil {
			return fmt.Errorf("encode element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeFixedArray decodes exactly n elements.
func DecodeFixedArray[T any, PT decoderPtr[T]](r io.Reader, n int) ([]T, error) {
	items := make([]T, n)
	for i := range items {
		if err := PT(&items[i]).Decode(r); err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}
	}
	return items, nil
}

// EncodeArray encodes a variable-length array: count + elements.
func EncodeArray[T XdrEncoder](buf *bytes.Buffer, items []T) error {
	if err := WriteUint32(buf, uint32(len(items))); err != nil {
		return fmt.Errorf("write array count: %w", err)
	}
	return EncodeFixedArray(buf, items, len(items))
}

// DecodeArray decodes a variable-length array: count + elements.
//
// Example:
//
//	entries, err := xdr.DecodeArray[Mapping](r)
func DecodeArray[T any, PT decoderPtr[T]](r io.Reader) ([]T, error) {
	count, err := decodeArrayCount(r)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, min(count, preallocCap))
	for i := uint32(0); i < count; i++ {
		var item T
		if err := PT(&item).Decode(r); err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// EncodeArrayFunc encodes a variable-length array using fn for each element.
// It serves element types that do not implement XdrEncoder, such as plain
// Go scalars.
func EncodeArrayFunc[T any](buf *bytes.Buffer, items []T, fn func(*bytes.Buffer, T) error) error {
	if err := WriteUint32(buf, uint32(len(items))); err != nil {
		return fmt.Errorf("write array count: %w", err)
	}
	for i, item := range items {
		if err := fn(buf, item); err != nil {
			return fmt.Errorf("encode element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeArrayFunc decodes a variable-length array using fn for each element.
func DecodeArrayFunc[T any](r io.Reader, fn func(io.Reader) (T, error)) ([]T, error) {
	count, err := decodeArrayCount(r)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, min(count, preallocCap))
	for i := uint32(0); i < count; i++ {
		item, err := fn(r)
		if err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeArrayCount(r io.Reader) (uint32, error) {
	count, err := DecodeUint32(r)
	if err != nil {
		return 0, fmt.Errorf("read array count: %w", err)
	}
	if count > MaxArrayLength {
		return 0, fmt.Errorf("%w: array count %d, maximum %d", ErrLengthExceeded, count, MaxArrayLength)
	}
	return count, nil
}
