package xdr

import (
	"bytes"
	"io"
)

// ============================================================================
// XDR Codec Interfaces
// ============================================================================

// XdrEncoder is implemented by types that can encode themselves to XDR format.
// Procedure arguments passed to an RPC client must satisfy it.
type XdrEncoder interface {
	Encode(buf *bytes.Buffer) error
}

// XdrDecoder is implemented by types that can decode themselves from XDR format.
// Procedure results passed to an RPC client must satisfy it.
type XdrDecoder interface {
	Decode(r io.Reader) error
}

// XdrCodec is implemented by types that can travel in both directions.
type XdrCodec interface {
	XdrEncoder
	XdrDecoder
}

// ============================================================================
// Primitive Values
// ============================================================================
//
// Thin named types so that scalars can be used directly as procedure
// arguments and results:
//
//	var sum xdr.Int32
//	err := client.Call(ctx, procAdd, xdr.Args{xdr.Int32(2), xdr.Int32(3)}, &sum)

// Int32 is an XDR int.
type Int32 int32

func (v Int32) Encode(buf *bytes.Buffer) error { return WriteInt32(buf, int32(v)) }

func (v *Int32) Decode(r io.Reader) error {
	n, err := DecodeInt32(r)
	*v = Int32(n)
	return err
}

// Uint32 is an XDR unsigned int.
type Uint32 uint32

func (v Uint32) Encode(buf *bytes.Buffer) error { return WriteUint32(buf, uint32(v)) }

func (v *Uint32) Decode(r io.Reader) error {
	n, err := DecodeUint32(r)
	*v = Uint32(n)
	return err
}

// Int64 is an XDR hyper.
type Int64 int64

func (v Int64) Encode(buf *bytes.Buffer) error { return WriteInt64(buf, int64(v)) }

func (v *Int64) Decode(r io.Reader) error {
	n, err := DecodeInt64(r)
	*v = Int64(n)
	return err
}

// Uint64 is an XDR unsigned hyper.
type Uint64 uint64

func (v Uint64) Encode(buf *bytes.Buffer) error { return WriteUint64(buf, uint64(v)) }

func (v *Uint64) Decode(r io.Reader) error {
	n, err := DecodeUint64(r)
	*v = Uint64(n)
	return err
}

// Float32 is an XDR float.
type Float32 float32

func (v Float32) Encode(buf *bytes.Buffer) error { return WriteFloat32(buf, float32(v)) }

func (v *Float32) Decode(r io.Reader) error {
	f, err := DecodeFloat32(r)
	*v = Float32(f)
	return err
}

// Float64 is an XDR double.
type Float64 float64

func (v Float64) Encode(buf *bytes.Buffer) error { return WriteFloat64(buf, float64(v)) }

func (v *Float64) Decode(r io.Reader) error {
	f, err := DecodeFloat64(r)
	*v = Float64(f)
	return err
}

// Bool is an XDR bool.
type Bool bool

func (v Bool) Encode(buf *bytes.Buffer) error { return WriteBool(buf, bool(v)) }

func (v *Bool) Decode(r io.Reader) error {
	b, err := DecodeBool(r)
	*v = Bool(b)
	return err
}

// String is an XDR string.
type String string

func (v String) Encode(buf *bytes.Buffer) error { return WriteXDRString(buf, string(v)) }

func (v *String) Decode(r io.Reader) error {
	s, err := DecodeString(r)
	if err != nil {
		return err
	}
	*v = String(s)
	return nil
}

// Opaque is XDR variable-length opaque data.
type Opaque []byte

func (v Opaque) Encode(buf *bytes.Buffer) error { return WriteXDROpaque(buf, v) }

func (v *Opaque) Decode(r io.Reader) error {
	data, err := DecodeOpaque(r)
	if err != nil {
		return err
	}
	*v = data
	return nil
}

// Void is the empty XDR type, used for procedures without arguments or
// results.
type Void struct{}

func (Void) Encode(*bytes.Buffer) error { return nil }

func (*Void) Decode(io.Reader) error { return nil }

// Args concatenates several encoders. ONC RPC procedures with more than one
// parameter send them back to back, in declaration order.
type Args []XdrEncoder

func (a Args) Encode(buf *bytes.Buffer) error {
	for _, arg := range a {
		if err := arg.Encode(buf); err != nil {
			return err
		}
	}
	return nil
}

// Results is the decoding counterpart of Args.
type Results []XdrDecoder

func (rs Results) Decode(r io.Reader) error {
	for _, res := range rs {
		if err := res.Decode(r); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes v into a fresh byte slice.
func Marshal(v XdrEncoder) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v. Trailing bytes are ignored.
func Unmarshal(data []byte, v XdrDecoder) error {
	return v.Decode(bytes.NewReader(data))
}
