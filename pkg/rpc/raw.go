package rpc

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/oncrpc/pkg/xdr"
)

// RawResponseUnion receives a union whose arm is a variable-length byte
// array, without allocating: the discriminant is stored in Discriminant and
// the array is read straight into the caller-owned Data slice.
//
// The caller must size Data to exactly the length the server will send.
type RawResponseUnion struct {
	Discriminant int32
	Data         []byte
}

// decode reads discriminant, length, bytes and padding. A length that
// differs from len(Data) is a caller bug and panics.
func (u *RawResponseUnion) decode(r io.Reader) error {
	disc, err := xdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return err
	}
	u.Discriminant = disc

	length, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read raw union length: %w", err)
	}
	if int64(length) != int64(len(u.Data)) {
		panic(fmt.Sprintf("rpc: raw union carries %d bytes, buffer holds %d", length, len(u.Data)))
	}

	if _, err := io.ReadFull(r, u.Data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read raw union data: %w", err)
	}
	return xdr.SkipPadding(r, length)
}

// CallRawUnion invokes procedure proc and reads its union result into
// target without copying. See RawResponseUnion.
//
// CallRawUnion panics if the server sends a byte array whose length
// differs from len(target.Data); the client is broken afterwards.
func (c *Client) CallRawUnion(ctx context.Context, proc uint32, args xdr.XdrEncoder, target *RawResponseUnion) error {
	return c.roundTrip(ctx, proc, args, target.decode)
}
