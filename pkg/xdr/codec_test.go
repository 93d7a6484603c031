package xdr

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Primitive Encoding
// ============================================================================

func TestWriteUint32(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 5))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, buf.Bytes())
}

func TestScalarRoundTrip(t *testing.T) {
	t.Run("Int32", func(t *testing.T) {
		for _, v := range []int32{0, 1, -1, math.MaxInt32, math.MinInt32} {
			var buf bytes.Buffer
			require.NoError(t, WriteInt32(&buf, v))
			got, err := DecodeInt32(&buf)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	})

	t.Run("NegativeInt32IsTwosComplement", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteInt32(&buf, -5))
		assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xfb}, buf.Bytes())
	})

	t.Run("Uint64", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteUint64(&buf, 0x0102030405060708))
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf.Bytes())
		got, err := DecodeUint64(&buf)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x0102030405060708), got)
	})

	t.Run("Int64", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteInt64(&buf, math.MinInt64))
		got, err := DecodeInt64(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MinInt64), got)
	})

	t.Run("Float32", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFloat32(&buf, 1.0))
		assert.Equal(t, []byte{0x3f, 0x80, 0x00, 0x00}, buf.Bytes())
		got, err := DecodeFloat32(&buf)
		require.NoError(t, err)
		assert.Equal(t, float32(1.0), got)
	})

	t.Run("Float64", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFloat64(&buf, -2.5))
		got, err := DecodeFloat64(&buf)
		require.NoError(t, err)
		assert.Equal(t, -2.5, got)
	})

	t.Run("Bool", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteBool(&buf, true))
		require.NoError(t, WriteBool(&buf, false))
		assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 0}, buf.Bytes())

		v, err := DecodeBool(&buf)
		require.NoError(t, err)
		assert.True(t, v)
		v, err = DecodeBool(&buf)
		require.NoError(t, err)
		assert.False(t, v)
	})
}

func TestDecodeShortRead(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		_, err := DecodeUint32(bytes.NewReader(nil))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("PartialInput", func(t *testing.T) {
		_, err := DecodeUint64(bytes.NewReader([]byte{0, 0, 0, 0, 1}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("OpaqueMissingPadding", func(t *testing.T) {
		_, err := DecodeOpaque(bytes.NewReader([]byte{0, 0, 0, 1, 0xaa}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("OpaqueMissingData", func(t *testing.T) {
		_, err := DecodeOpaque(bytes.NewReader([]byte{0, 0, 0, 8, 1, 2}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

// ============================================================================
// Strings and Opaque Data
// ============================================================================

func TestWriteXDRString(t *testing.T) {
	t.Run("PaddedToFourBytes", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDRString(&buf, "ab"))
		assert.Equal(t, []byte{0, 0, 0, 2, 'a', 'b', 0, 0}, buf.Bytes())
	})

	t.Run("AlignedNeedsNoPadding", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDRString(&buf, "test"))
		assert.Equal(t, 8, buf.Len())
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDRString(&buf, ""))
		assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())
	})

	t.Run("RejectsNonASCII", func(t *testing.T) {
		var buf bytes.Buffer
		err := WriteXDRString(&buf, "héllo")
		assert.ErrorIs(t, err, ErrNonASCII)
		assert.Zero(t, buf.Len(), "nothing should be written")
	})
}

func TestDecodeString(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDRString(&buf, "rpclib"))
		got, err := DecodeString(&buf)
		require.NoError(t, err)
		assert.Equal(t, "rpclib", got)
		assert.Zero(t, buf.Len())
	})

	t.Run("AcceptsUTF8", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDROpaque(&buf, []byte("héllo")))
		got, err := DecodeString(&buf)
		require.NoError(t, err)
		assert.Equal(t, "héllo", got)
	})

	t.Run("InvalidUTF8IsRecoverable", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDROpaque(&buf, []byte{0xff, 0xfe, 0xfd}))
		require.NoError(t, WriteUint32(&buf, 42))

		_, err := DecodeString(&buf)
		require.ErrorIs(t, err, ErrInvalidUTF8)

		// The reader is positioned on the next item.
		next, err := DecodeUint32(&buf)
		require.NoError(t, err)
		assert.Equal(t, uint32(42), next)
	})

	t.Run("RejectsOversizedLength", func(t *testing.T) {
		_, err := DecodeString(bytes.NewReader([]byte{0x7f, 0xff, 0xff, 0xff}))
		assert.ErrorIs(t, err, ErrLengthExceeded)
	})
}

func TestOpaque(t *testing.T) {
	t.Run("VariableRoundTrip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDROpaque(&buf, []byte{1, 2, 3}))
		assert.Equal(t, []byte{0, 0, 0, 3, 1, 2, 3, 0}, buf.Bytes())

		got, err := DecodeOpaque(&buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got)
	})

	t.Run("FixedHasNoLengthPrefix", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXDRFixedOpaque(&buf, []byte{9, 8, 7, 6, 5}))
		assert.Equal(t, []byte{9, 8, 7, 6, 5, 0, 0, 0}, buf.Bytes())

		got, err := DecodeFixedOpaque(&buf, 5)
		require.NoError(t, err)
		assert.Equal(t, []byte{9, 8, 7, 6, 5}, got)
		assert.Zero(t, buf.Len())
	})
}

func TestPaddingLaw(t *testing.T) {
	for n := 0; n < 64; n++ {
		data := bytes.Repeat([]byte{'x'}, n)

		var opaque bytes.Buffer
		require.NoError(t, WriteXDROpaque(&opaque, data))
		assert.Zero(t, opaque.Len()%4, "opaque of %d bytes", n)
		assert.Equal(t, 4+n+int(Padding(uint32(n))), opaque.Len())

		var str bytes.Buffer
		require.NoError(t, WriteXDRString(&str, string(data)))
		assert.Zero(t, str.Len()%4, "string of %d bytes", n)

		var fixed bytes.Buffer
		require.NoError(t, WriteXDRFixedOpaque(&fixed, data))
		assert.Zero(t, fixed.Len()%4, "fixed opaque of %d bytes", n)
	}
}

// ============================================================================
// Primitive Value Types
// ============================================================================

func TestValueTypes(t *testing.T) {
	t.Run("ArgsConcatenate", func(t *testing.T) {
		data, err := Marshal(Args{Int32(2), Uint32(3), String("ab")})
		require.NoError(t, err)
		assert.Equal(t, []byte{
			0, 0, 0, 2,
			0, 0, 0, 3,
			0, 0, 0, 2, 'a', 'b', 0, 0,
		}, data)
	})

	t.Run("ResultsDecodeInOrder", func(t *testing.T) {
		data, err := Marshal(Args{Float64(1.5), Bool(true), Opaque{0xaa}})
		require.NoError(t, err)

		var f Float64
		var b Bool
		var o Opaque
		require.NoError(t, Unmarshal(data, Results{&f, &b, &o}))
		assert.Equal(t, Float64(1.5), f)
		assert.Equal(t, Bool(true), b)
		assert.Equal(t, Opaque{0xaa}, o)
	})

	t.Run("VoidIsEmpty", func(t *testing.T) {
		data, err := Marshal(Void{})
		require.NoError(t, err)
		assert.Empty(t, data)

		var v Void
		assert.NoError(t, v.Decode(bytes.NewReader(nil)))
	})

	t.Run("DecodeErrorPropagates", func(t *testing.T) {
		var s String
		err := Unmarshal([]byte{0, 0, 0, 1, 0x80, 0, 0, 0}, &s)
		assert.True(t, errors.Is(err, ErrInvalidUTF8))
		assert.Empty(t, s)
	})
}
