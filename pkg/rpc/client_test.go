package rpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oncrpc/pkg/xdr"
)

const (
	testProg = 0x20000001
	testVers = 1
)

// newPipe returns a client over one end of an in-memory pipe and the
// server end.
func newPipe(t *testing.T, opts ...Option) (*Client, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	c := NewClient(clientConn, testProg, testVers, opts...)
	t.Cleanup(func() {
		_ = c.Close()
		_ = serverConn.Close()
	})
	return c, serverConn
}

func readCall(r io.Reader) (*CallMessage, []byte, error) {
	fr := NewFragmentReader(r)
	var call CallMessage
	if err := call.Decode(fr); err != nil {
		return nil, nil, err
	}
	args, err := io.ReadAll(fr)
	return &call, args, err
}

// respond serves n calls on conn. reply returns the raw bytes written back,
// record marking included; nil means never answer.
func respond(conn net.Conn, n int, reply func(call *CallMessage, args []byte) []byte) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for i := 0; i < n; i++ {
			call, args, err := readCall(conn)
			if err != nil {
				errc <- err
				return
			}
			out := reply(call, args)
			if out == nil {
				continue
			}
			if _, err := conn.Write(out); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc
}

func successReply(xid uint32, result []byte) []byte {
	return append(words(xid, 1, 0, 0, 0, 0), result...)
}

func TestClientCall(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		c, server := newPipe(t)

		var got *CallMessage
		var gotArgs []byte
		errc := respond(server, 1, func(call *CallMessage, args []byte) []byte {
			got, gotArgs = call, args
			// Result split over three fragments.
			payload := successReply(call.XID, words(5))
			return record(payload[:3], payload[3:20], payload[20:])
		})

		var sum xdr.Int32
		require.NoError(t, c.Call(ctx, 1, xdr.Args{xdr.Int32(2), xdr.Int32(3)}, &sum))
		assert.Equal(t, xdr.Int32(5), sum)
		require.NoError(t, <-errc)

		assert.Equal(t, DefaultXID, got.XID)
		assert.Equal(t, uint32(testProg), got.Program)
		assert.Equal(t, uint32(testVers), got.Version)
		assert.Equal(t, uint32(1), got.Procedure)
		assert.Equal(t, uint32(AuthNull), got.Cred.Flavor)
		assert.Equal(t, words(2, 3), gotArgs)
	})

	t.Run("CallWireBytes", func(t *testing.T) {
		clientConn, serverConn := net.Pipe()
		c := NewClient(clientConn, 100000, 4)
		defer func() { _ = c.Close() }()

		raw := make(chan []byte, 1)
		go func() {
			buf := make([]byte, 4+40+4)
			_, _ = io.ReadFull(serverConn, buf)
			raw <- buf
			_, _ = serverConn.Write(record(successReply(DefaultXID, nil)))
		}()

		require.NoError(t, c.Call(ctx, 3, xdr.Uint32(7), &xdr.Void{}))
		want := append(words(0x80000000|44, 123456, 0, 2, 100000, 4, 3, 0, 0, 0, 0), words(7)...)
		assert.Equal(t, want, <-raw)
		_ = serverConn.Close()
	})

	t.Run("SeveralCallsOnOneStream", func(t *testing.T) {
		c, server := newPipe(t)
		errc := respond(server, 3, func(call *CallMessage, args []byte) []byte {
			return record(successReply(call.XID, args))
		})

		for i := int32(0); i < 3; i++ {
			var echo xdr.Int32
			require.NoError(t, c.Call(ctx, 1, xdr.Int32(i*10), &echo))
			assert.Equal(t, xdr.Int32(i*10), echo)
		}
		require.NoError(t, <-errc)
	})

	t.Run("XIDMismatchTolerated", func(t *testing.T) {
		c, server := newPipe(t, WithXID(77))
		errc := respond(server, 1, func(call *CallMessage, _ []byte) []byte {
			if call.XID != 77 {
				return nil
			}
			return record(successReply(1, words(9)))
		})

		var n xdr.Uint32
		require.NoError(t, c.Call(ctx, 1, nil, &n))
		assert.Equal(t, xdr.Uint32(9), n)
		require.NoError(t, <-errc)
	})

	t.Run("EncodeErrorSendsNothing", func(t *testing.T) {
		c, server := newPipe(t)
		errc := respond(server, 1, func(call *CallMessage, args []byte) []byte {
			return record(successReply(call.XID, args))
		})

		err := c.Call(ctx, 1, xdr.String("héllo"), &xdr.Void{})
		require.ErrorIs(t, err, xdr.ErrNonASCII)

		var s xdr.String
		require.NoError(t, c.Call(ctx, 1, xdr.String("hello"), &s))
		assert.Equal(t, xdr.String("hello"), s)
		require.NoError(t, <-errc)
	})

	t.Run("NilResultIsVoid", func(t *testing.T) {
		c, server := newPipe(t)
		errc := respond(server, 2, func(call *CallMessage, _ []byte) []byte {
			// Trailing bytes the void result leaves unread.
			return record(successReply(call.XID, words(1, 2)))
		})

		require.NotPanics(t, func() {
			require.NoError(t, c.Call(ctx, 0, nil, nil))
		})

		// The undecoded remainder was drained.
		var n xdr.Uint32
		require.NoError(t, c.Call(ctx, 0, nil, &n))
		assert.Equal(t, xdr.Uint32(1), n)
		require.NoError(t, <-errc)
	})
}

func TestClientReplyErrors(t *testing.T) {
	ctx := context.Background()

	replies := map[string][]byte{
		"ProcUnavail": words(DefaultXID, 1, 0, 0, 0, 3),
		"ProgMismatch": words(DefaultXID, 1, 0, 0, 0, 2, 1, 2),
		"AuthError":    words(DefaultXID, 1, 1, 1, uint32(AuthBadCred)),
		"RPCMismatch":  words(DefaultXID, 1, 1, 0, 2, 2),
		"NotReply":     words(DefaultXID, 0, 2, 1, 1, 0, 0, 0, 0, 0),
		"BadUTF8":      successReply(DefaultXID, []byte{0, 0, 0, 2, 0xc3, 0x28, 0, 0}),
		"ShortResult":  successReply(DefaultXID, []byte{0, 0}),
	}
	wantErrs := map[string]error{
		"ProcUnavail":  ErrProcUnavail,
		"ProgMismatch": ErrProgMismatch,
		"AuthError":    ErrAuth,
		"RPCMismatch":  ErrRPCMismatch,
		"NotReply":     ErrNotReply,
		"BadUTF8":      xdr.ErrInvalidUTF8,
		"ShortResult":  io.ErrUnexpectedEOF,
	}

	for name, wire := range replies {
		t.Run(name, func(t *testing.T) {
			c, server := newPipe(t)
			first := true
			errc := respond(server, 2, func(call *CallMessage, _ []byte) []byte {
				if first {
					first = false
					return record(wire)
				}
				return record(successReply(call.XID, words(0, 2, 'o'<<24|'k'<<16)))
			})

			var s xdr.String
			err := c.Call(ctx, 1, nil, &s)
			assert.ErrorIs(t, err, wantErrs[name])

			// The record was consumed to its end, so the client is usable.
			s = ""
			require.NoError(t, c.Call(ctx, 1, nil, &xdr.Results{new(xdr.Int32), &s}))
			assert.Equal(t, xdr.String("ok"), s)
			require.NoError(t, <-errc)
		})
	}

	t.Run("AcceptErrorDetails", func(t *testing.T) {
		c, server := newPipe(t)
		errc := respond(server, 1, func(*CallMessage, []byte) []byte {
			return record(words(DefaultXID, 1, 0, 0, 0, 2, 3, 5))
		})

		err := c.Call(ctx, 1, nil, &xdr.Void{})
		var acceptErr *AcceptError
		require.ErrorAs(t, err, &acceptErr)
		assert.Equal(t, ProgMismatch, acceptErr.Stat)
		assert.Equal(t, uint32(3), acceptErr.Low)
		assert.Equal(t, uint32(5), acceptErr.High)
		require.NoError(t, <-errc)
	})
}

func TestClientBroken(t *testing.T) {
	ctx := context.Background()

	t.Run("ConnectionClosedMidReply", func(t *testing.T) {
		c, server := newPipe(t)
		go func() {
			_, _, _ = readCall(server)
			_, _ = server.Write(words(0x80000000|24, DefaultXID, 1))
			_ = server.Close()
		}()

		err := c.Call(ctx, 1, nil, &xdr.Void{})
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

		err = c.Call(ctx, 1, nil, &xdr.Void{})
		assert.ErrorIs(t, err, ErrClientBroken)
	})

	t.Run("DeadlineExceeded", func(t *testing.T) {
		c, server := newPipe(t)
		errc := respond(server, 1, func(*CallMessage, []byte) []byte { return nil })

		deadlineCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		err := c.Call(deadlineCtx, 1, nil, &xdr.Void{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		require.NoError(t, <-errc)

		assert.ErrorIs(t, c.Call(ctx, 1, nil, &xdr.Void{}), ErrClientBroken)
	})

	t.Run("Cancelled", func(t *testing.T) {
		c, server := newPipe(t)
		errc := respond(server, 1, func(*CallMessage, []byte) []byte { return nil })

		cancelCtx, cancel := context.WithCancel(ctx)
		time.AfterFunc(20*time.Millisecond, cancel)

		err := c.Call(cancelCtx, 1, nil, &xdr.Void{})
		assert.ErrorIs(t, err, context.Canceled)
		require.NoError(t, <-errc)
	})

	t.Run("Closed", func(t *testing.T) {
		c, _ := newPipe(t)
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		assert.ErrorIs(t, c.Call(ctx, 1, nil, &xdr.Void{}), ErrClientClosed)
	})
}

func TestCallRawUnion(t *testing.T) {
	ctx := context.Background()

	t.Run("ReadsIntoCallerBuffer", func(t *testing.T) {
		c, server := newPipe(t, WithBufferSize(16))
		payload := []byte("hello")
		errc := respond(server, 2, func(call *CallMessage, _ []byte) []byte {
			if call.Procedure == 1 {
				res := append(words(3, 5), 'h', 'e', 'l', 'l', 'o', 0, 0, 0)
				return record(successReply(call.XID, res))
			}
			return record(successReply(call.XID, words(1)))
		})

		buf := make([]byte, len(payload))
		target := RawResponseUnion{Data: buf}
		require.NoError(t, c.CallRawUnion(ctx, 1, nil, &target))
		assert.Equal(t, int32(3), target.Discriminant)
		assert.Equal(t, payload, buf)

		var n xdr.Int32
		require.NoError(t, c.Call(ctx, 2, nil, &n))
		assert.Equal(t, xdr.Int32(1), n)
		require.NoError(t, <-errc)
	})

	t.Run("LengthMismatchPanics", func(t *testing.T) {
		c, server := newPipe(t)
		respond(server, 1, func(call *CallMessage, _ []byte) []byte {
			return record(successReply(call.XID, append(words(0, 4), 1, 2, 3, 4)))
		})

		target := RawResponseUnion{Data: make([]byte, 5)}
		assert.Panics(t, func() { _ = c.CallRawUnion(ctx, 1, nil, &target) })
		assert.ErrorIs(t, c.Call(ctx, 1, nil, &xdr.Void{}), ErrClientBroken)
	})
}

type fakeMetrics struct {
	mu        sync.Mutex
	statuses  []string
	bytes     map[string]int64
	fragments []int
	broken    int
}

func (m *fakeMetrics) RecordCall(_, _, _ uint32, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *fakeMetrics) RecordBytes(_ uint32, direction string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bytes == nil {
		m.bytes = make(map[string]int64)
	}
	m.bytes[direction] += n
}

func (m *fakeMetrics) RecordReplyFragments(_ uint32, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = append(m.fragments, n)
}

func (m *fakeMetrics) RecordClientBroken(uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken++
}

func TestClientMetrics(t *testing.T) {
	ctx := context.Background()
	m := &fakeMetrics{}
	c, server := newPipe(t, WithMetrics(m))

	first := true
	go func() {
		for i := 0; i < 2; i++ {
			call, _, err := readCall(server)
			if err != nil {
				return
			}
			if first {
				first = false
				payload := successReply(call.XID, nil)
				_, _ = server.Write(record(payload[:8], payload[8:]))
				continue
			}
			_, _ = server.Write(record(words(call.XID, 1, 0, 0, 0, 3)))
		}
		_ = server.Close()
	}()

	require.NoError(t, c.Call(ctx, 0, nil, &xdr.Void{}))
	require.ErrorIs(t, c.Call(ctx, 9, nil, &xdr.Void{}), ErrProcUnavail)
	require.Error(t, c.Call(ctx, 0, nil, &xdr.Void{}))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, []string{"success", "PROC_UNAVAIL", "error"}, m.statuses)
	assert.Equal(t, 2, m.fragments[0])
	assert.Equal(t, 1, m.broken)
	assert.Equal(t, int64(3*(4+40)), m.bytes["sent"])
}

func TestNewClient(t *testing.T) {
	var rw struct {
		io.Reader
		io.Writer
		io.Closer
	}
	rw.Reader = bytes.NewReader(nil)
	rw.Writer = io.Discard
	rw.Closer = io.NopCloser(nil)

	c := NewClient(rw, 100000, 4)
	assert.Equal(t, uint32(100000), c.Program())
	assert.Equal(t, uint32(4), c.Version())
	assert.NotEmpty(t, c.ID())

	// Without deadline support the call still fails cleanly at EOF.
	err := c.Call(context.Background(), 0, nil, &xdr.Void{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrClientBroken))
}
