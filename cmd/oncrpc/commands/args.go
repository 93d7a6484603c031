package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/marmos91/oncrpc/pkg/xdr"
)

// argTypes lists the literal prefixes accepted by "oncrpc call".
var argTypes = []string{"int", "uint", "hyper", "uhyper", "float", "double", "bool", "string", "opaque"}

// parseArg turns a TYPE:VALUE literal into an XDR value. Opaque values
// are hex encoded.
func parseArg(s string) (xdr.XdrEncoder, error) {
	typ, val, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("argument %q: expected TYPE:VALUE with TYPE one of %s", s, strings.Join(argTypes, ", "))
	}

	var (
		v   xdr.XdrEncoder
		err error
	)
	switch typ {
	case "int":
		var n int64
		n, err = strconv.ParseInt(val, 0, 32)
		v = xdr.Int32(n)
	case "uint":
		var n uint64
		n, err = strconv.ParseUint(val, 0, 32)
		v = xdr.Uint32(n)
	case "hyper":
		var n int64
		n, err = strconv.ParseInt(val, 0, 64)
		v = xdr.Int64(n)
	case "uhyper":
		var n uint64
		n, err = strconv.ParseUint(val, 0, 64)
		v = xdr.Uint64(n)
	case "float":
		var f float64
		f, err = strconv.ParseFloat(val, 32)
		v = xdr.Float32(f)
	case "double":
		var f float64
		f, err = strconv.ParseFloat(val, 64)
		v = xdr.Float64(f)
	case "bool":
		var b bool
		b, err = strconv.ParseBool(val)
		v = xdr.Bool(b)
	case "string":
		v = xdr.String(val)
	case "opaque":
		var data []byte
		data, err = hex.DecodeString(val)
		v = xdr.Opaque(data)
	default:
		return nil, fmt.Errorf("argument %q: unknown type %q (valid: %s)", s, typ, strings.Join(argTypes, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", s, err)
	}
	return v, nil
}

func parseArgs(literals []string) (xdr.Args, error) {
	args := make(xdr.Args, 0, len(literals))
	for _, lit := range literals {
		v, err := parseArg(lit)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// replyBody captures the undecoded result of a call.
type replyBody []byte

func (b *replyBody) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	*b = data
	return err
}
