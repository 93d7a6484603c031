package rpc

import (
	"bytes"
	"fmt"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/oncrpc/pkg/xdr"
)

// OpaqueAuth is an authentication credential or verifier
// (RFC 5531 Section 8.2).
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// NullAuth is the AUTH_NULL credential: flavor 0, empty body.
var NullAuth = OpaqueAuth{Flavor: AuthNull, Body: []byte{}}

// CallMessage is the header of an RPC call; procedure arguments follow it
// on the wire.
//
// Wire format per RFC 5531:
//
//	XID:        [uint32]
//	MsgType:    [uint32] = 0 (CALL)
//	RPCVersion: [uint32] = 2
//	Program:    [uint32]
//	Version:    [uint32]
//	Procedure:  [uint32]
//	Cred:       [opaque_auth]
//	Verf:       [opaque_auth]
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// NewCallMessage builds a call header with AUTH_NULL credentials.
func NewCallMessage(xid, prog, vers, proc uint32) *CallMessage {
	return &CallMessage{
		XID:        xid,
		MsgType:    uint32(Call),
		RPCVersion: RPCVersion,
		Program:    prog,
		Version:    vers,
		Procedure:  proc,
		Cred:       NullAuth,
		Verf:       NullAuth,
	}
}

func (m *CallMessage) Encode(buf *bytes.Buffer) error {
	if _, err := xdr2.Marshal(buf, m); err != nil {
		return fmt.Errorf("marshal call header: %w", err)
	}
	return nil
}

// Decode reads a call header. Credential and verifier bodies longer than
// 400 bytes are rejected before allocation.
func (m *CallMessage) Decode(r io.Reader) error {
	var err error
	if m.XID, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read xid: %w", err)
	}
	if m.MsgType, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read msg type: %w", err)
	}
	if MsgType(m.MsgType) != Call {
		return fmt.Errorf("expected %s, got %s", Call, MsgType(m.MsgType))
	}
	for _, f := range []*uint32{&m.RPCVersion, &m.Program, &m.Version, &m.Procedure} {
		if *f, err = xdr.DecodeUint32(r); err != nil {
			return fmt.Errorf("read call header: %w", err)
		}
	}
	if err := decodeOpaqueAuth(r, &m.Cred); err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if err := decodeOpaqueAuth(r, &m.Verf); err != nil {
		return fmt.Errorf("read verifier: %w", err)
	}
	return nil
}

// ReplyMessage is the header of an RPC reply; for an accepted, successful
// reply the procedure result follows it on the wire.
//
// Only the fields relevant to Stat and AcceptStat/RejectStat are meaningful:
//
//	MSG_ACCEPTED: Verf, AcceptStat, and Low/High for PROG_MISMATCH
//	MSG_DENIED:   RejectStat, then Low/High for RPC_MISMATCH or AuthStat
//	              for AUTH_ERROR
type ReplyMessage struct {
	XID        uint32
	MsgType    MsgType
	Stat       ReplyStat
	Verf       OpaqueAuth
	AcceptStat AcceptStat
	RejectStat RejectStat
	AuthStat   AuthStat
	Low        uint32
	High       uint32
}

// NewSuccessReply builds an accepted, successful reply header.
func NewSuccessReply(xid uint32) *ReplyMessage {
	return &ReplyMessage{XID: xid, MsgType: Reply, Stat: MsgAccepted, Verf: NullAuth, AcceptStat: Success}
}

// Decode reads a reply header. A message whose msg_type is not REPLY
// returns ErrNotReply after the first two words.
func (m *ReplyMessage) Decode(r io.Reader) error {
	var err error
	if m.XID, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read xid: %w", err)
	}
	msgType, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read msg type: %w", err)
	}
	m.MsgType = MsgType(msgType)
	if m.MsgType != Reply {
		return fmt.Errorf("%w: got %s", ErrNotReply, m.MsgType)
	}

	stat, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read reply stat: %w", err)
	}
	m.Stat = ReplyStat(stat)

	switch m.Stat {
	case MsgAccepted:
		return m.decodeAccepted(r)
	case MsgDenied:
		return m.decodeDenied(r)
	}
	return fmt.Errorf("unknown reply stat %d", stat)
}

func (m *ReplyMessage) decodeAccepted(r io.Reader) error {
	if err := decodeOpaqueAuth(r, &m.Verf); err != nil {
		return fmt.Errorf("read verifier: %w", err)
	}
	stat, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read accept stat: %w", err)
	}
	m.AcceptStat = AcceptStat(stat)
	if m.AcceptStat == ProgMismatch {
		return m.decodeMismatch(r)
	}
	return nil
}

func (m *ReplyMessage) decodeDenied(r io.Reader) error {
	stat, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read reject stat: %w", err)
	}
	m.RejectStat = RejectStat(stat)
	switch m.RejectStat {
	case RPCMismatch:
		return m.decodeMismatch(r)
	case AuthError:
		auth, err := xdr.DecodeUint32(r)
		if err != nil {
			return fmt.Errorf("read auth stat: %w", err)
		}
		m.AuthStat = AuthStat(auth)
		return nil
	}
	return fmt.Errorf("unknown reject stat %d", stat)
}

func (m *ReplyMessage) decodeMismatch(r io.Reader) error {
	var err error
	if m.Low, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read mismatch low: %w", err)
	}
	if m.High, err = xdr.DecodeUint32(r); err != nil {
		return fmt.Errorf("read mismatch high: %w", err)
	}
	return nil
}

// Encode writes the reply header described by m.
func (m *ReplyMessage) Encode(buf *bytes.Buffer) error {
	for _, v := range []uint32{m.XID, uint32(Reply), uint32(m.Stat)} {
		if err := xdr.WriteUint32(buf, v); err != nil {
			return err
		}
	}

	var words []uint32
	switch m.Stat {
	case MsgAccepted:
		if err := xdr.WriteUint32(buf, m.Verf.Flavor); err != nil {
			return err
		}
		if err := xdr.WriteXDROpaque(buf, m.Verf.Body); err != nil {
			return err
		}
		words = append(words, uint32(m.AcceptStat))
		if m.AcceptStat == ProgMismatch {
			words = append(words, m.Low, m.High)
		}
	case MsgDenied:
		words = append(words, uint32(m.RejectStat))
		if m.RejectStat == RPCMismatch {
			words = append(words, m.Low, m.High)
		} else {
			words = append(words, uint32(m.AuthStat))
		}
	}

	for _, v := range words {
		if err := xdr.WriteUint32(buf, v); err != nil {
			return err
		}
	}
	return nil
}

// Err maps a non-successful reply status to *AcceptError or *RejectedError.
func (m *ReplyMessage) Err() error {
	if m.Stat == MsgDenied {
		return &RejectedError{Stat: m.RejectStat, Low: m.Low, High: m.High, AuthStat: m.AuthStat}
	}
	if m.AcceptStat != Success {
		return &AcceptError{Stat: m.AcceptStat, Low: m.Low, High: m.High}
	}
	return nil
}

func decodeOpaqueAuth(r io.Reader, auth *OpaqueAuth) error {
	var err error
	if auth.Flavor, err = xdr.DecodeUint32(r); err != nil {
		return err
	}
	length, err := xdr.DecodeUint32(r)
	if err != nil {
		return err
	}
	if length > maxAuthBody {
		return fmt.Errorf("%w: auth body length %d, maximum %d", xdr.ErrLengthExceeded, length, maxAuthBody)
	}
	auth.Body, err = xdr.DecodeFixedOpaque(r, length)
	return err
}
