package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrClientBroken is returned by every call on a client whose stream
	// failed mid-exchange. The only way forward is a new client.
	ErrClientBroken = errors.New("rpc: client is broken")

	// ErrClientClosed is returned by calls made after Close.
	ErrClientClosed = errors.New("rpc: client is closed")

	// ErrNotReply is returned when the server sends a message whose
	// msg_type is not REPLY.
	ErrNotReply = errors.New("rpc: message is not a reply")
)

// Sentinels for errors.Is matching against AcceptError and RejectedError.
var (
	ErrProgUnavail  = errors.New("rpc: program unavailable")
	ErrProgMismatch = errors.New("rpc: program version mismatch")
	ErrProcUnavail  = errors.New("rpc: procedure unavailable")
	ErrGarbageArgs  = errors.New("rpc: server could not decode arguments")
	ErrSystemErr    = errors.New("rpc: server system error")
	ErrRPCMismatch  = errors.New("rpc: rpc version mismatch")
	ErrAuth         = errors.New("rpc: authentication error")
)

var acceptSentinels = map[AcceptStat]error{
	ProgUnavail:  ErrProgUnavail,
	ProgMismatch: ErrProgMismatch,
	ProcUnavail:  ErrProcUnavail,
	GarbageArgs:  ErrGarbageArgs,
	SystemErr:    ErrSystemErr,
}

// AcceptError reports an accepted reply whose accept_stat is not SUCCESS.
//
// Low and High carry the supported version range for PROG_MISMATCH.
type AcceptError struct {
	Stat AcceptStat
	Low  uint32
	High uint32
}

func (e *AcceptError) Error() string {
	if e.Stat == ProgMismatch {
		return fmt.Sprintf("rpc: call accepted with %s (supported versions %d-%d)", e.Stat, e.Low, e.High)
	}
	return fmt.Sprintf("rpc: call accepted with %s", e.Stat)
}

func (e *AcceptError) Is(target error) bool {
	sentinel, ok := acceptSentinels[e.Stat]
	return ok && target == sentinel
}

// RejectedError reports a denied reply.
//
// For RPC_MISMATCH, Low and High carry the supported RPC versions. For
// AUTH_ERROR, AuthStat carries the reason.
type RejectedError struct {
	Stat     RejectStat
	Low      uint32
	High     uint32
	AuthStat AuthStat
}

func (e *RejectedError) Error() string {
	switch e.Stat {
	case RPCMismatch:
		return fmt.Sprintf("rpc: call denied with RPC_MISMATCH (supported versions %d-%d)", e.Low, e.High)
	case AuthError:
		return fmt.Sprintf("rpc: call denied with AUTH_ERROR (%s)", e.AuthStat)
	}
	return fmt.Sprintf("rpc: call denied with %s", e.Stat)
}

func (e *RejectedError) Is(target error) bool {
	switch e.Stat {
	case RPCMismatch:
		return target == ErrRPCMismatch
	case AuthError:
		return target == ErrAuth
	}
	return false
}

// replyStatus returns a short label for metrics and logs.
func replyStatus(err error) string {
	if err == nil {
		return "success"
	}
	var acceptErr *AcceptError
	if errors.As(err, &acceptErr) {
		return acceptErr.Stat.String()
	}
	var rejectErr *RejectedError
	if errors.As(err, &rejectErr) {
		return rejectErr.Stat.String()
	}
	return "error"
}
