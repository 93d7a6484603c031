package portmap

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marmos91/oncrpc/pkg/xdr"
)

// RPCB is an rpcbind (version 3 and 4) registration and the argument of
// SET, UNSET and GETADDR.
//
// Wire format:
//
//	struct rpcb {
//	    unsigned long r_prog;
//	    unsigned long r_vers;
//	    string r_netid<>;
//	    string r_addr<>;
//	    string r_owner<>;
//	};
type RPCB struct {
	Program uint32
	Version uint32
	NetID   string
	Addr    string
	Owner   string
}

func (b *RPCB) Encode(buf *bytes.Buffer) error {
	if err := xdr.WriteUint32(buf, b.Program); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, b.Version); err != nil {
		return err
	}
	for _, s := range []string{b.NetID, b.Addr, b.Owner} {
		if err := xdr.WriteXDRString(buf, s); err != nil {
			return err
		}
	}
	return nil
}

func (b *RPCB) Decode(r io.Reader) error {
	var err error
	if b.Program, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read prog: %w", err)
	}
	if b.Version, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read vers: %w", err)
	}
	if b.NetID, err = xdr.DecodeString(r); err != nil {
		return fmt.Errorf("read netid: %w", err)
	}
	if b.Addr, err = xdr.DecodeString(r); err != nil {
		return fmt.Errorf("read addr: %w", err)
	}
	if b.Owner, err = xdr.DecodeString(r); err != nil {
		return fmt.Errorf("read owner: %w", err)
	}
	return nil
}

// Mapping is a version 2 portmapper mapping and the argument of SET,
// UNSET and GETPORT.
//
// Wire format: [prog:uint32][vers:uint32][prot:uint32][port:uint32]
type Mapping struct {
	Program  uint32
	Version  uint32
	Protocol uint32
	Port     uint32
}

func (m *Mapping) Encode(buf *bytes.Buffer) error {
	for _, v := range []uint32{m.Program, m.Version, m.Protocol, m.Port} {
		if err := xdr.WriteUint32(buf, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapping) Decode(r io.Reader) error {
	fields := []*uint32{&m.Program, &m.Version, &m.Protocol, &m.Port}
	for _, f := range fields {
		v, err := xdr.DecodeUint32(r)
		if err != nil {
			return fmt.Errorf("read mapping: %w", err)
		}
		*f = v
	}
	return nil
}

// RPCBList is the DUMP result of versions 3 and 4, encoded as an XDR
// optional-data linked list: each entry is preceded by TRUE, and FALSE
// ends the list.
type RPCBList []RPCB

func (l RPCBList) Encode(buf *bytes.Buffer) error {
	for i := range l {
		if err := xdr.WriteBool(buf, true); err != nil {
			return err
		}
		if err := l[i].Encode(buf); err != nil {
			return err
		}
	}
	return xdr.WriteBool(buf, false)
}

func (l *RPCBList) Decode(r io.Reader) error {
	list, err := decodeList(r, func(r io.Reader) (RPCB, error) {
		var b RPCB
		err := b.Decode(r)
		return b, err
	})
	*l = list
	return err
}

// MappingList is the DUMP result of version 2.
type MappingList []Mapping

func (l MappingList) Encode(buf *bytes.Buffer) error {
	for i := range l {
		if err := xdr.WriteBool(buf, true); err != nil {
			return err
		}
		if err := l[i].Encode(buf); err != nil {
			return err
		}
	}
	return xdr.WriteBool(buf, false)
}

func (l *MappingList) Decode(r io.Reader) error {
	list, err := decodeList(r, func(r io.Reader) (Mapping, error) {
		var m Mapping
		err := m.Decode(r)
		return m, err
	})
	*l = list
	return err
}

// decodeList reads an optional-data linked list, bounded by
// xdr.MaxArrayLength entries.
func decodeList[T any](r io.Reader, decode func(io.Reader) (T, error)) ([]T, error) {
	var list []T
	for {
		more, err := xdr.DecodeBool(r)
		if err != nil {
			return list, fmt.Errorf("read list marker: %w", err)
		}
		if !more {
			return list, nil
		}
		if len(list) >= xdr.MaxArrayLength {
			return list, fmt.Errorf("%w: list longer than %d entries", xdr.ErrLengthExceeded, xdr.MaxArrayLength)
		}
		v, err := decode(r)
		if err != nil {
			return list, fmt.Errorf("read entry %d: %w", len(list), err)
		}
		list = append(list, v)
	}
}
