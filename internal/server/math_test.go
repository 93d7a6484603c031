package server

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/marmos91/oncrpc/pkg/xdr"
)

// A small arithmetic program used to exercise the server and client
// end to end.
const (
	mathProgram = 0x20000099
	mathVersion = 1

	procNull            = 0
	procAdd             = 1
	procStructMulFields = 2
	procStructCombine   = 3
	procUnionTest       = 4
	procUnionParam      = 5
	procEcho            = 6
	procBadString       = 7
	procPanic           = 8
	procFail            = 9
)

type myStruct struct {
	X int32
	Y int32
}

func (s *myStruct) Encode(buf *bytes.Buffer) error {
	if err := xdr.WriteInt32(buf, s.X); err != nil {
		return err
	}
	return xdr.WriteInt32(buf, s.Y)
}

func (s *myStruct) Decode(r io.Reader) error {
	var err error
	if s.X, err = xdr.DecodeInt32(r); err != nil {
		return err
	}
	s.Y, err = xdr.DecodeInt32(r)
	return err
}

//	union ResultUnion switch (int err) {
//	case 0:  int int_res;
//	case 20: float float_res;
//	default: void;
//	};
type resultUnion struct {
	Err   int32
	Int   int32
	Float float32
}

func (u *resultUnion) Encode(buf *bytes.Buffer) error {
	if err := xdr.EncodeUnionDiscriminant(buf, u.Err); err != nil {
		return err
	}
	switch u.Err {
	case 0:
		return xdr.WriteInt32(buf, u.Int)
	case 20:
		return xdr.WriteFloat32(buf, u.Float)
	}
	return nil
}

func (u *resultUnion) Decode(r io.Reader) error {
	disc, err := xdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return err
	}
	*u = resultUnion{Err: disc}
	switch disc {
	case 0:
		u.Int, err = xdr.DecodeInt32(r)
	case 20:
		u.Float, err = xdr.DecodeFloat32(r)
	}
	return err
}

// echoResult is union switch (int ok) { case 0: opaque data<>; }.
type echoResult struct {
	Data []byte
}

func (e *echoResult) Encode(buf *bytes.Buffer) error {
	if err := xdr.EncodeUnionDiscriminant(buf, 0); err != nil {
		return err
	}
	return xdr.WriteXDROpaque(buf, e.Data)
}

func mathProgramDef() *Program {
	return &Program{
		Number: mathProgram,
		Name:   "MATH",
		Versions: map[uint32]DispatchTable{
			mathVersion: {
				procNull: {Name: "NULL", Handler: func(context.Context, *Request) (xdr.XdrEncoder, error) {
					return nil, nil
				}},
				procAdd: {Name: "ADD", Handler: func(_ context.Context, req *Request) (xdr.XdrEncoder, error) {
					var a, b xdr.Int32
					if err := req.Decode(xdr.Results{&a, &b}); err != nil {
						return nil, err
					}
					return a + b, nil
				}},
				procStructMulFields: {Name: "STRUCT_MUL_FIELDS", Handler: func(_ context.Context, req *Request) (xdr.XdrEncoder, error) {
					var s myStruct
					if err := req.Decode(&s); err != nil {
						return nil, err
					}
					return xdr.Int32(s.X * s.Y), nil
				}},
				procStructCombine: {Name: "STRUCT_COMBINE", Handler: func(_ context.Context, req *Request) (xdr.XdrEncoder, error) {
					var x, y xdr.Int32
					if err := req.Decode(xdr.Results{&x, &y}); err != nil {
						return nil, err
					}
					return &myStruct{X: int32(x), Y: int32(y)}, nil
				}},
				procUnionTest: {Name: "UNION_TEST", Handler: func(_ context.Context, req *Request) (xdr.XdrEncoder, error) {
					var n xdr.Int32
					if err := req.Decode(&n); err != nil {
						return nil, err
					}
					switch n {
					case 0:
						return &resultUnion{Err: 0, Int: 1}, nil
					case 20:
						return &resultUnion{Err: 20, Float: 1.0}, nil
					}
					return &resultUnion{Err: -1}, nil
				}},
				procUnionParam: {Name: "UNION_PARAM", Handler: func(_ context.Context, req *Request) (xdr.XdrEncoder, error) {
					var u resultUnion
					if err := req.Decode(&u); err != nil {
						return nil, err
					}
					switch u.Err {
					case 0:
						return xdr.Int32(u.Int), nil
					case 20:
						return xdr.Int32(int32(u.Float)), nil
					}
					return xdr.Int32(-1), nil
				}},
				procEcho: {Name: "ECHO", Handler: func(_ context.Context, req *Request) (xdr.XdrEncoder, error) {
					var data xdr.Opaque
					if err := req.Decode(&data); err != nil {
						return nil, err
					}
					return &echoResult{Data: data}, nil
				}},
				procBadString: {Name: "BAD_STRING", Handler: func(context.Context, *Request) (xdr.XdrEncoder, error) {
					return xdr.Opaque{'o', 'k', 0xff, 0xfe}, nil
				}},
				procPanic: {Name: "PANIC", Handler: func(context.Context, *Request) (xdr.XdrEncoder, error) {
					panic("boom")
				}},
				procFail: {Name: "FAIL", Handler: func(context.Context, *Request) (xdr.XdrEncoder, error) {
					return nil, errors.New("backend unavailable")
				}},
			},
		},
	}
}
