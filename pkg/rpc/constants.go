package rpc

import "fmt"

// RPCVersion is the only ONC RPC protocol version (RFC 5531 Section 9).
const RPCVersion = 2

// DefaultXID is the transaction id stamped on every call. Replies are
// matched by position on the stream, not by xid; see WithXID.
const DefaultXID uint32 = 123456

// Well-known program numbers.
const (
	// ProgramPortmap is the portmapper/rpcbind program (RFC 1833)
	ProgramPortmap = 100000
)

// MsgType is the msg_type field of an RPC message.
type MsgType uint32

const (
	// Call indicates an RPC call message
	Call MsgType = 0

	// Reply indicates an RPC reply message
	Reply MsgType = 1
)

func (t MsgType) String() string {
	switch t {
	case Call:
		return "CALL"
	case Reply:
		return "REPLY"
	}
	return fmt.Sprintf("MsgType(%d)", uint32(t))
}

// ReplyStat is the reply_stat field of a reply.
type ReplyStat uint32

const (
	MsgAccepted ReplyStat = 0
	MsgDenied   ReplyStat = 1
)

func (s ReplyStat) String() string {
	switch s {
	case MsgAccepted:
		return "MSG_ACCEPTED"
	case MsgDenied:
		return "MSG_DENIED"
	}
	return fmt.Sprintf("ReplyStat(%d)", uint32(s))
}

// AcceptStat is the accept_stat field of an accepted reply.
type AcceptStat uint32

const (
	// Success indicates the procedure executed successfully
	Success AcceptStat = 0

	// ProgUnavail indicates the remote has not exported the program
	ProgUnavail AcceptStat = 1

	// ProgMismatch indicates the remote can't support the version number
	ProgMismatch AcceptStat = 2

	// ProcUnavail indicates the program can't support the procedure
	ProcUnavail AcceptStat = 3

	// GarbageArgs indicates the procedure can't decode its arguments
	GarbageArgs AcceptStat = 4

	// SystemErr indicates a server-side error such as memory allocation failure
	SystemErr AcceptStat = 5
)

var acceptStatNames = map[AcceptStat]string{
	Success:      "SUCCESS",
	ProgUnavail:  "PROG_UNAVAIL",
	ProgMismatch: "PROG_MISMATCH",
	ProcUnavail:  "PROC_UNAVAIL",
	GarbageArgs:  "GARBAGE_ARGS",
	SystemErr:    "SYSTEM_ERR",
}

func (s AcceptStat) String() string {
	if name, ok := acceptStatNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AcceptStat(%d)", uint32(s))
}

// RejectStat is the reject_stat field of a denied reply.
type RejectStat uint32

const (
	// RPCMismatch indicates the RPC version number was not 2
	RPCMismatch RejectStat = 0

	// AuthError indicates the caller could not be authenticated
	AuthError RejectStat = 1
)

func (s RejectStat) String() string {
	switch s {
	case RPCMismatch:
		return "RPC_MISMATCH"
	case AuthError:
		return "AUTH_ERROR"
	}
	return fmt.Sprintf("RejectStat(%d)", uint32(s))
}

// AuthStat explains why authentication failed.
type AuthStat uint32

const (
	AuthOK           AuthStat = 0
	AuthBadCred      AuthStat = 1
	AuthRejectedCred AuthStat = 2
	AuthBadVerf      AuthStat = 3
	AuthRejectedVerf AuthStat = 4
	AuthTooWeak      AuthStat = 5
	AuthInvalidResp  AuthStat = 6
	AuthFailed       AuthStat = 7
)

var authStatNames = map[AuthStat]string{
	AuthOK:           "AUTH_OK",
	AuthBadCred:      "AUTH_BADCRED",
	AuthRejectedCred: "AUTH_REJECTEDCRED",
	AuthBadVerf:      "AUTH_BADVERF",
	AuthRejectedVerf: "AUTH_REJECTEDVERF",
	AuthTooWeak:      "AUTH_TOOWEAK",
	AuthInvalidResp:  "AUTH_INVALIDRESP",
	AuthFailed:       "AUTH_FAILED",
}

func (s AuthStat) String() string {
	if name, ok := authStatNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AuthStat(%d)", uint32(s))
}

// Authentication flavors. Only AUTH_NULL is ever sent.
const (
	AuthNull = 0
	AuthUnix = 1
)

// maxAuthBody is the largest opaque_auth body allowed by RFC 5531 Section 8.2.
const maxAuthBody = 400
