package xdr

import (
	"bytes"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// Reflect adapts any Go value to XdrEncoder and XdrDecoder using reflection.
//
// Field order follows the struct declaration. Use the `xdr:"opaque"` tag on
// []byte fields that must be variable-length opaque. V must be a pointer when
// decoding.
//
//	var res struct{ X, Y int32 }
//	err := client.Call(ctx, proc, args, xdr.Reflect{V: &res})
type Reflect struct {
	V any
}

func (x Reflect) Encode(buf *bytes.Buffer) error {
	_, err := xdr2.Marshal(buf, x.V)
	return err
}

func (x Reflect) Decode(r io.Reader) error {
	_, err := xdr2.Unmarshal(r, x.V)
	return err
}
