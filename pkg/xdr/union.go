package xdr

import (
	"bytes"
	"fmt"
	"io"
)

// ============================================================================
// XDR Discriminated Union Helpers
// ============================================================================
//
// Per RFC 4506 Section 4.15 (Discriminated Union), a union is a signed
// 32-bit discriminant followed by the arm selected by it. Unions decoded
// here are open: a discriminant with no declared arm is not an error but
// lands in an explicit default case carrying the raw value.

// EncodeUnionDiscriminant writes the int32 discriminant of an XDR union.
func EncodeUnionDiscriminant(buf *bytes.Buffer, disc int32) error {
	return WriteInt32(buf, disc)
}

// DecodeUnionDiscriminant reads the int32 discriminant of an XDR union.
func DecodeUnionDiscriminant(r io.Reader) (int32, error) {
	disc, err := DecodeInt32(r)
	if err != nil {
		return 0, fmt.Errorf("read union discriminant: %w", err)
	}
	return disc, nil
}

// UnionCases maps each declared discriminant to a constructor for its arm.
// A nil constructor declares a void arm.
type UnionCases map[int32]func() XdrDecoder

// Union is a generic discriminated union value.
//
// Decoding consults Cases: a declared discriminant decodes its arm into Arm;
// any other discriminant sets Default and leaves Arm nil. Encoding writes
// Discriminant followed by Arm, which must then implement XdrEncoder (or be
// nil for a void arm).
//
// Generated code usually defines a dedicated type per union instead; Union
// covers ad-hoc use and tests.
type Union struct {
	Cases        UnionCases
	Discriminant int32
	Arm          XdrDecoder
	Default      bool
}

// Decode reads the discriminant and the selected arm.
func (u *Union) Decode(r io.Reader) error {
	disc, err := DecodeUnionDiscriminant(r)
	if err != nil {
		return err
	}
	u.Discriminant = disc
	u.Arm = nil

	newArm, ok := u.Cases[disc]
	if !ok {
		u.Default = true
		return nil
	}
	u.Default = false
	if newArm == nil {
		return nil
	}

	arm := newArm()
	if err := arm.Decode(r); err != nil {
		return fmt.Errorf("decode union arm %d: %w", disc, err)
	}
	u.Arm = arm
	return nil
}

// Encode writes the discriminant and the arm.
func (u *Union) Encode(buf *bytes.Buffer) error {
	if err := EncodeUnionDiscriminant(buf, u.Discriminant); err != nil {
		return err
	}
	if u.Arm == nil {
		return nil
	}
	enc, ok := u.Arm.(XdrEncoder)
	if !ok {
		return fmt.Errorf("union arm %d (%T) cannot be encoded", u.Discriminant, u.Arm)
	}
	return enc.Encode(buf)
}
