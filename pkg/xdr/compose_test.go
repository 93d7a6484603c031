package xdr

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// point mirrors the shape of IDL-generated struct codecs: fields encoded in
// declaration order.
type point struct {
	X int32
	Y int32
}

func (p *point) Encode(buf *bytes.Buffer) error {
	if err := WriteInt32(buf, p.X); err != nil {
		return err
	}
	return WriteInt32(buf, p.Y)
}

func (p *point) Decode(r io.Reader) error {
	var err error
	if p.X, err = DecodeInt32(r); err != nil {
		return err
	}
	p.Y, err = DecodeInt32(r)
	return err
}

// numberResult mirrors a generated union:
//
//	union number_result switch (int kind) {
//	case 0:  int i;
//	case 20: float f;
//	default: void;
//	};
type numberResult struct {
	Kind    int32
	I       int32
	F       float32
	Unknown bool
}

func (n *numberResult) Encode(buf *bytes.Buffer) error {
	if err := EncodeUnionDiscriminant(buf, n.Kind); err != nil {
		return err
	}
	switch n.Kind {
	case 0:
		return WriteInt32(buf, n.I)
	case 20:
		return WriteFloat32(buf, n.F)
	}
	return nil
}

func (n *numberResult) Decode(r io.Reader) error {
	kind, err := DecodeUnionDiscriminant(r)
	if err != nil {
		return err
	}
	*n = numberResult{Kind: kind}
	switch kind {
	case 0:
		n.I, err = DecodeInt32(r)
	case 20:
		n.F, err = DecodeFloat32(r)
	default:
		n.Unknown = true
	}
	return err
}

// ============================================================================
// Structs
// ============================================================================

func TestStructRoundTrip(t *testing.T) {
	in := &point{X: 2, Y: -5}

	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 2, 0xff, 0xff, 0xff, 0xfb}, data)

	var out point
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, *in, out)
}

// ============================================================================
// Unions
// ============================================================================

func numberCases() UnionCases {
	return UnionCases{
		0:  func() XdrDecoder { return new(Int32) },
		20: func() XdrDecoder { return new(Float32) },
	}
}

func TestUnion(t *testing.T) {
	t.Run("SelectsDeclaredArm", func(t *testing.T) {
		data := []byte{0, 0, 0, 20, 0x3f, 0x80, 0x00, 0x00}

		u := Union{Cases: numberCases()}
		require.NoError(t, Unmarshal(data, &u))
		assert.Equal(t, int32(20), u.Discriminant)
		assert.False(t, u.Default)
		require.IsType(t, new(Float32), u.Arm)
		assert.Equal(t, Float32(1.0), *u.Arm.(*Float32))
	})

	t.Run("UnknownDiscriminantIsDefault", func(t *testing.T) {
		u := Union{Cases: numberCases()}
		require.NoError(t, Unmarshal([]byte{0, 0, 0, 99}, &u))
		assert.True(t, u.Default)
		assert.Equal(t, int32(99), u.Discriminant)
		assert.Nil(t, u.Arm)
	})

	t.Run("NegativeDiscriminant", func(t *testing.T) {
		u := Union{Cases: UnionCases{-1: nil}}
		require.NoError(t, Unmarshal([]byte{0xff, 0xff, 0xff, 0xff}, &u))
		assert.False(t, u.Default)
		assert.Equal(t, int32(-1), u.Discriminant)
	})

	t.Run("EncodeRoundTrip", func(t *testing.T) {
		in := Union{Discriminant: 0, Arm: new(Int32)}
		*in.Arm.(*Int32) = 7

		data, err := Marshal(&in)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 7}, data)

		out := Union{Cases: numberCases()}
		require.NoError(t, Unmarshal(data, &out))
		assert.Equal(t, Int32(7), *out.Arm.(*Int32))
	})

	t.Run("GeneratedStyleUnion", func(t *testing.T) {
		tests := []struct {
			name string
			in   numberResult
		}{
			{"IntArm", numberResult{Kind: 0, I: 1}},
			{"FloatArm", numberResult{Kind: 20, F: 1.0}},
			{"Default", numberResult{Kind: 99, Unknown: true}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				data, err := Marshal(&tt.in)
				require.NoError(t, err)

				var out numberResult
				require.NoError(t, Unmarshal(data, &out))
				assert.Equal(t, tt.in, out)
			})
		}
	})
}

// ============================================================================
// Arrays
// ============================================================================

func TestArrays(t *testing.T) {
	points := []*point{{1, 2}, {3, 4}, {-1, -2}}

	t.Run("VariableHasCountPrefix", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeArray(&buf, points))
		assert.Equal(t, 4+3*8, buf.Len())
		assert.Equal(t, []byte{0, 0, 0, 3}, buf.Bytes()[:4])

		got, err := DecodeArray[point](&buf)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := range points {
			assert.Equal(t, *points[i], got[i])
		}
	})

	t.Run("FixedHasNoPrefix", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeFixedArray(&buf, points, 3))
		assert.Equal(t, 3*8, buf.Len())

		got, err := DecodeFixedArray[point](&buf, 3)
		require.NoError(t, err)
		assert.Equal(t, point{-1, -2}, got[2])
	})

	t.Run("FixedLengthMismatch", func(t *testing.T) {
		var buf bytes.Buffer
		err := EncodeFixedArray(&buf, points, 4)
		assert.ErrorIs(t, err, ErrArrayLength)
	})

	t.Run("FuncVariants", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeArrayFunc(&buf, []string{"a", "bcd", ""}, WriteXDRString))

		got, err := DecodeArrayFunc(&buf, DecodeString)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "bcd", ""}, got)
	})

	t.Run("EmptyArray", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeArrayFunc(&buf, []uint32(nil), WriteUint32))
		assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())

		got, err := DecodeArrayFunc(&buf, DecodeUint32)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("RejectsHugeCount", func(t *testing.T) {
		_, err := DecodeArrayFunc(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}), DecodeUint32)
		assert.ErrorIs(t, err, ErrLengthExceeded)
	})

	t.Run("TruncatedElement", func(t *testing.T) {
		_, err := DecodeArray[point](bytes.NewReader([]byte{0, 0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

// ============================================================================
// Reflection Codec
// ============================================================================

func TestReflect(t *testing.T) {
	type mapping struct {
		Prog  uint32
		Vers  uint32
		Netid string
	}

	in := mapping{Prog: 100000, Vers: 4, Netid: "tcp"}
	data, err := Marshal(Reflect{V: &in})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, in.Prog))
	require.NoError(t, WriteUint32(&buf, in.Vers))
	require.NoError(t, WriteXDRString(&buf, in.Netid))
	assert.Equal(t, buf.Bytes(), data, "reflection and hand-written codecs agree")

	var out mapping
	require.NoError(t, Unmarshal(data, Reflect{V: &out}))
	assert.Equal(t, in, out)
}

func ExampleUnion() {
	u := Union{Cases: UnionCases{
		0:  func() XdrDecoder { return new(Int32) },
		20: func() XdrDecoder { return new(Float32) },
	}}
	_ = Unmarshal([]byte{0, 0, 0, 99}, &u)
	fmt.Println(u.Default, u.Discriminant)
	// Output: true 99
}
