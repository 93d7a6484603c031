package rpc

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

	"github.com/google/uuid"

	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/internal/telemetry"
	"github.com/marmos91/oncrpc/pkg/metrics"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

type clientState int

const (
	stateIdle clientState = iota
	stateAwaitingReply
	stateBroken
	stateClosed
)

// deadliner is implemented by connections that support I/O deadlines,
// such as net.Conn.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Client is a session with one program/version over one stream.
//
// Calls are synchronous: each writes one call record and blocks until the
// matching reply record has been read in full. A Client may be shared
// between goroutines, but its calls are serialized; use several clients
// for concurrency.
//
// After a transport failure the client is broken and every later call
// returns ErrClientBroken. Reply status errors (*AcceptError,
// *RejectedError) and result decoding errors leave it usable, since the
// record framing keeps the stream aligned.
type Client struct {
	program uint32
	version uint32
	id      string
	opts    clientOptions

	conn io.ReadWriteCloser
	r    *bufio.Reader
	w    *bufio.Writer
	fr   *FragmentReader
	buf  bytes.Buffer

	mu    sync.Mutex
	state clientState
}

// NewClient wraps an established stream in a client for prog/vers.
func NewClient(conn io.ReadWriteCloser, prog, vers uint32, opts ...Option) *Client {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := bufio.NewReaderSize(conn, o.bufferSize)
	return &Client{
		program: prog,
		version: vers,
		id:      uuid.NewString(),
		opts:    o,
		conn:    conn,
		r:       r,
		w:       bufio.NewWriterSize(conn, o.bufferSize),
		fr:      NewFragmentReader(r),
	}
}

// Dial connects to addr over TCP and returns a client for prog/vers.
func Dial(ctx context.Context, addr string, prog, vers uint32, opts ...Option) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn, prog, vers, opts...), nil
}

// Program returns the program number the client calls.
func (c *Client) Program() uint32 { return c.program }

// Version returns the program version the client calls.
func (c *Client) Version() uint32 { return c.version }

// ID returns the session id used in logs.
func (c *Client) ID() string { return c.id }

// Call invokes procedure proc with args and decodes the result into result.
//
// Nil args and a nil result both stand for void. Encoding errors are
// returned before anything is sent. A non-successful reply status is
// returned as *AcceptError or *RejectedError.
//
// The context deadline, if any, bounds the whole exchange; cancelling ctx
// interrupts blocked I/O when the stream supports deadlines.
func (c *Client) Call(ctx context.Context, proc uint32, args xdr.XdrEncoder, result xdr.XdrDecoder) error {
	if result == nil {
		result = &xdr.Void{}
	}
	return c.roundTrip(ctx, proc, args, result.Decode)
}

// Close releases the stream. Further calls return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, proc uint32, args xdr.XdrEncoder, decode func(io.Reader) error) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateBroken:
		return ErrClientBroken
	case stateClosed:
		return ErrClientClosed
	}

	ctx, span := telemetry.StartRPCSpan(ctx, telemetry.SpanRPCCall, c.program, c.version, proc,
		telemetry.RPCXID(c.opts.xid))
	defer span.End()

	payload, err := c.encodeCall(proc, args)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	start := time.Now()
	c.state = stateAwaitingReply
	defer func() {
		// Anything that leaves the exchange unfinished, including a panic
		// from a decoder, makes the stream unusable.
		if c.state == stateAwaitingReply {
			c.state = stateBroken
			if c.opts.metrics != nil {
				c.opts.metrics.RecordClientBroken(c.program)
			}
		}
	}()

	stop := c.watchContext(ctx)
	err = c.send(payload)
	if err == nil {
		err = c.receive(decode)
	}
	stop()

	if err != nil && c.state == stateAwaitingReply && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}

	status := replyStatus(err)
	duration := time.Since(start)
	c.record(proc, status, duration, len(payload))

	span.SetAttributes(telemetry.RPCStatus(status))
	telemetry.RecordError(ctx, err)

	if logger.Enabled(slog.LevelDebug) {
		lc := &logger.LogContext{ClientID: c.id, Program: c.program, Version: c.version}
		logger.DebugCtx(logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))), "RPC call",
			logger.KeyProcedure, proc,
			logger.KeyStatus, status,
			logger.KeyFragments, c.fr.Fragments(),
			logger.KeyBytesSent, len(payload),
			logger.KeyBytesRecvd, c.fr.BytesRead(),
			logger.KeyDurationMs, logger.Duration(start),
			logger.Err(err),
		)
	}
	return err
}

// encodeCall builds the call record payload: header followed by args.
func (c *Client) encodeCall(proc uint32, args xdr.XdrEncoder) ([]byte, error) {
	c.buf.Reset()
	if err := NewCallMessage(c.opts.xid, c.program, c.version, proc).Encode(&c.buf); err != nil {
		return nil, err
	}
	if args != nil {
		if err := args.Encode(&c.buf); err != nil {
			return nil, fmt.Errorf("encode args: %w", err)
		}
	}
	if c.buf.Len() > MaxFragmentLength {
		return nil, fmt.Errorf("call of %d bytes exceeds maximum fragment length", c.buf.Len())
	}
	return c.buf.Bytes(), nil
}

func (c *Client) send(payload []byte) error {
	if err := WriteRecord(c.w, payload); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush call: %w", err)
	}
	return nil
}

// receive reads one reply record. The client returns to idle whenever the
// record is consumed to its end, even if the reply reports a failure.
func (c *Client) receive(decode func(io.Reader) error) error {
	c.fr.Reset()

	var reply ReplyMessage
	err := reply.Decode(c.fr)
	if err == nil {
		if reply.XID != c.opts.xid {
			logger.Debug("RPC reply xid differs from call",
				logger.KeyClientID, c.id,
				"want", c.opts.xid,
				"got", reply.XID,
			)
		}
		err = reply.Err()
		if err == nil {
			if decodeErr := decode(c.fr); decodeErr != nil {
				err = fmt.Errorf("decode result: %w", decodeErr)
			}
		}
	}

	if discardErr := c.fr.Discard(); discardErr != nil {
		if err == nil || !errors.Is(err, discardErr) {
			err = errors.Join(err, discardErr)
		}
		return err
	}

	c.state = stateIdle
	return err
}

// watchContext arranges for blocked I/O to fail once ctx is done. The
// returned function clears the deadline and must be called after I/O.
func (c *Client) watchContext(ctx context.Context) func() {
	d, ok := c.conn.(deadliner)
	if !ok {
		return func() {}
	}

	deadline, _ := ctx.Deadline()
	_ = d.SetDeadline(deadline)

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = d.SetDeadline(time.Unix(1, 0))
		close(fired)
	})
	return func() {
		if !stop() {
			<-fired
		}
		_ = d.SetDeadline(time.Time{})
	}
}

func (c *Client) record(proc uint32, status string, duration time.Duration, sent int) {
	m := c.opts.metrics
	if m == nil {
		return
	}
	m.RecordCall(c.program, c.version, proc, status, duration)
	m.RecordBytes(c.program, metrics.DirectionSent, int64(sent)+4)
	m.RecordBytes(c.program, metrics.DirectionReceived, c.fr.BytesRead()+4*int64(c.fr.Fragments()))
	if n := c.fr.Fragments(); n > 0 {
		m.RecordReplyFragments(c.program, n)
	}
}
