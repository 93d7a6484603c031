package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/marmos91/oncrpc/pkg/rpc"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

// Request is one decoded call handed to a procedure handler.
type Request struct {
	// Call is the decoded call header.
	Call *rpc.CallMessage

	// Args streams the procedure arguments. Bytes a handler leaves unread
	// are discarded once it returns.
	Args io.Reader

	// ClientAddr is the remote address of the connection ("host:port").
	ClientAddr string

	// LocalAddr is the address the connection was accepted on.
	LocalAddr string
}

// Decode reads the procedure arguments into v. A decoding failure is
// reported to the caller as GARBAGE_ARGS.
func (r *Request) Decode(v xdr.XdrDecoder) error {
	if err := v.Decode(r.Args); err != nil {
		return GarbageArgs(err)
	}
	return nil
}

// HandlerFunc processes one call and returns its result. A nil result
// encodes as void.
//
// Returning an error wrapping *rpc.AcceptError replies with that accept
// status; any other error replies SYSTEM_ERR.
type HandlerFunc func(ctx context.Context, req *Request) (xdr.XdrEncoder, error)

// Procedure contains metadata about a procedure for dispatch.
type Procedure struct {
	// Name is the procedure name for logging (e.g., "NULL", "GETADDR").
	Name string

	// Handler is the function that processes this procedure.
	Handler HandlerFunc
}

// DispatchTable maps procedure numbers to their handlers.
type DispatchTable map[uint32]*Procedure

// Program is a program number with a dispatch table per version.
type Program struct {
	Number   uint32
	Name     string
	Versions map[uint32]DispatchTable
}

// versionRange returns the lowest and highest registered versions, used in
// PROG_MISMATCH replies.
func (p *Program) versionRange() (low, high uint32) {
	versions := make([]uint32, 0, len(p.Versions))
	for v := range p.Versions {
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return 0, 0
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions[0], versions[len(versions)-1]
}

// GarbageArgs wraps err so that the call is answered with GARBAGE_ARGS.
func GarbageArgs(err error) error {
	return fmt.Errorf("%w: %w", &rpc.AcceptError{Stat: rpc.GarbageArgs}, err)
}

// acceptStatFor picks the accept status reported for a handler error.
func acceptStatFor(err error) rpc.AcceptStat {
	var acceptErr *rpc.AcceptError
	if errors.As(err, &acceptErr) {
		return acceptErr.Stat
	}
	return rpc.SystemErr
}
