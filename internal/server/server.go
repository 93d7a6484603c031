// Package server implements a record-marked ONC RPC server over TCP.
//
// It dispatches calls by program, version and procedure to registered
// handlers and answers dispatch failures with the matching accept or
// reject status. Several calls may be sent on one connection; they are
// served in order.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/internal/telemetry"
	"github.com/marmos91/oncrpc/pkg/metrics"
	"github.com/marmos91/oncrpc/pkg/rpc"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

// DefaultIdleTimeout closes connections that send no call for this long.
const DefaultIdleTimeout = 2 * time.Minute

// ServerConfig holds configuration for the RPC server.
type ServerConfig struct {
	// Address is the TCP address to listen on, e.g. ":111" or "127.0.0.1:0".
	Address string

	// IdleTimeout bounds the wait for the next call on a connection.
	// Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration

	// Metrics receives per-request metrics. Nil disables collection.
	Metrics metrics.RPCServerMetrics
}

// Server serves registered programs on one TCP listener.
type Server struct {
	config   ServerConfig
	programs map[uint32]*Program

	mu       sync.Mutex
	listener net.Listener

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a server for the given programs. Register more with
// Register before calling Serve.
func NewServer(cfg ServerConfig, programs ...*Program) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	s := &Server{
		config:   cfg,
		programs: make(map[uint32]*Program),
		shutdown: make(chan struct{}),
	}
	for _, p := range programs {
		s.Register(p)
	}
	return s
}

// Register adds or replaces a program. It must not be called while serving.
func (s *Server) Register(p *Program) {
	s.programs[p.Number] = p
}

// Listen binds the listener without serving, so Addr is known before
// Serve is called. Serve calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen TCP %s: %w", s.config.Address, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve accepts connections until the context is cancelled or Stop is
// called, then waits for open connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logger.Info("RPC server started", logger.KeyAddress, s.Addr(), logger.KeyCount, len(s.programs))

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.wg.Wait()
				logger.Info("RPC server stopped", logger.KeyAddress, ln.Addr().String())
				return nil
			default:
			}
			s.Stop()
			s.wg.Wait()
			return fmt.Errorf("accept: %w", err)
		}

		if s.config.Metrics != nil {
			s.config.Metrics.RecordConnectionAccepted()
		}
		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(ctx, c)
		}(conn)
	}
}

// Stop closes the listener. Idle connections are closed at once; busy ones
// after their current reply is written. Safe to call more than once.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// handleConn serves calls from one connection until it closes, idles out,
// or sends a malformed record.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	localAddr := conn.LocalAddr().String()
	defer func() {
		_ = conn.Close()
		if s.config.Metrics != nil {
			s.config.Metrics.RecordConnectionClosed()
		}
		logger.Debug("RPC connection closed", logger.KeyAddress, clientAddr)
	}()

	// Unblock a pending read on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.shutdown:
			_ = conn.SetReadDeadline(time.Unix(1, 0))
		case <-done:
		}
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	fr := rpc.NewFragmentReader(r)
	var buf bytes.Buffer

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
			return
		}
		// Checked after re-arming: a shutdown that fired while a call was
		// being served had its deadline overwritten above.
		select {
		case <-s.shutdown:
			return
		default:
		}
		if _, err := r.Peek(1); err != nil {
			if !errors.Is(err, io.EOF) && !isClosed(err) {
				logger.Debug("RPC connection read error", logger.KeyAddress, clientAddr, logger.Err(err))
			}
			return
		}

		fr.Reset()
		buf.Reset()
		if err := s.serveCall(ctx, fr, &buf, clientAddr, localAddr); err != nil {
			logger.Debug("RPC connection dropped", logger.KeyAddress, clientAddr, logger.Err(err))
			return
		}
		if err := fr.Discard(); err != nil {
			logger.Debug("RPC discard call remainder failed", logger.KeyAddress, clientAddr, logger.Err(err))
			return
		}

		if err := rpc.WriteRecord(w, buf.Bytes()); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			logger.Debug("RPC write reply failed", logger.KeyAddress, clientAddr, logger.Err(err))
			return
		}
	}
}

// serveCall decodes one call from fr and writes its reply into buf. An
// error means the call header itself was unreadable and the connection
// must be dropped.
func (s *Server) serveCall(ctx context.Context, fr *rpc.FragmentReader, buf *bytes.Buffer, clientAddr, localAddr string) error {
	var call rpc.CallMessage
	if err := call.Decode(fr); err != nil {
		return err
	}

	start := time.Now()
	ctx, span := telemetry.StartServerSpan(ctx, call.Program, call.Version, call.Procedure,
		telemetry.RPCXID(call.XID), telemetry.NetworkPeer(clientAddr))
	defer span.End()

	reply, name := s.dispatch(ctx, &call, fr, buf, clientAddr, localAddr)
	status := replyLabel(reply)
	span.SetAttributes(telemetry.RPCStatus(status))

	if s.config.Metrics != nil {
		s.config.Metrics.RecordRequest(call.Program, call.Version, call.Procedure, status, time.Since(start))
	}
	if logger.Enabled(slog.LevelDebug) {
		logger.DebugCtx(ctx, "RPC request",
			logger.KeyXID, call.XID,
			logger.KeyProgram, call.Program,
			logger.KeyVersion, call.Version,
			logger.KeyProcedure, name,
			logger.KeyStatus, status,
			logger.KeyAddress, clientAddr,
			logger.KeyDurationMs, logger.Duration(start),
		)
	}
	return nil
}

// dispatch runs the handler for call and leaves the encoded reply in buf.
// It returns the reply header and the procedure name.
func (s *Server) dispatch(ctx context.Context, call *rpc.CallMessage, args io.Reader, buf *bytes.Buffer, clientAddr, localAddr string) (*rpc.ReplyMessage, string) {
	name := fmt.Sprintf("%d", call.Procedure)

	if call.RPCVersion != rpc.RPCVersion {
		reply := &rpc.ReplyMessage{XID: call.XID, MsgType: rpc.Reply, Stat: rpc.MsgDenied,
			RejectStat: rpc.RPCMismatch, Low: rpc.RPCVersion, High: rpc.RPCVersion}
		return s.encodeReply(buf, reply, nil), name
	}

	prog, ok := s.programs[call.Program]
	if !ok {
		return s.encodeReply(buf, acceptReply(call.XID, rpc.ProgUnavail), nil), name
	}
	table, ok := prog.Versions[call.Version]
	if !ok {
		reply := acceptReply(call.XID, rpc.ProgMismatch)
		reply.Low, reply.High = prog.versionRange()
		return s.encodeReply(buf, reply, nil), name
	}
	proc, ok := table[call.Procedure]
	if !ok {
		return s.encodeReply(buf, acceptReply(call.XID, rpc.ProcUnavail), nil), name
	}
	name = proc.Name

	result, err := s.invoke(ctx, proc, &Request{Call: call, Args: args, ClientAddr: clientAddr, LocalAddr: localAddr})
	if err != nil {
		stat := acceptStatFor(err)
		logger.DebugCtx(ctx, "RPC handler failed",
			logger.KeyProgram, call.Program,
			logger.KeyProcedure, name,
			logger.KeyStatus, stat.String(),
			logger.Err(err),
		)
		reply := acceptReply(call.XID, stat)
		var acceptErr *rpc.AcceptError
		if errors.As(err, &acceptErr) {
			reply.Low, reply.High = acceptErr.Low, acceptErr.High
		}
		return s.encodeReply(buf, reply, nil), name
	}
	return s.encodeReply(buf, rpc.NewSuccessReply(call.XID), result), name
}

// invoke calls the handler, turning a panic into SYSTEM_ERR.
func (s *Server) invoke(ctx context.Context, proc *Procedure, req *Request) (result xdr.XdrEncoder, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "RPC handler panic", logger.KeyProcedure, proc.Name, "panic", r)
			result, err = nil, fmt.Errorf("handler %s panicked: %v", proc.Name, r)
		}
	}()
	return proc.Handler(ctx, req)
}

// encodeReply writes the header and result into buf. A result that fails
// to encode is replaced by SYSTEM_ERR.
func (s *Server) encodeReply(buf *bytes.Buffer, reply *rpc.ReplyMessage, result xdr.XdrEncoder) *rpc.ReplyMessage {
	buf.Reset()
	_ = reply.Encode(buf)
	if result == nil {
		return reply
	}
	if err := result.Encode(buf); err != nil {
		logger.Warn("RPC result encoding failed", logger.KeyXID, reply.XID, logger.Err(err))
		reply = acceptReply(reply.XID, rpc.SystemErr)
		buf.Reset()
		_ = reply.Encode(buf)
	}
	return reply
}

func acceptReply(xid uint32, stat rpc.AcceptStat) *rpc.ReplyMessage {
	return &rpc.ReplyMessage{XID: xid, MsgType: rpc.Reply, Stat: rpc.MsgAccepted, Verf: rpc.NullAuth, AcceptStat: stat}
}

// replyLabel is the status label used in metrics and logs.
func replyLabel(reply *rpc.ReplyMessage) string {
	if reply.Stat == rpc.MsgDenied {
		return reply.RejectStat.String()
	}
	if reply.AcceptStat == rpc.Success {
		return "success"
	}
	return reply.AcceptStat.String()
}

func isClosed(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
