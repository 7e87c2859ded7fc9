// File: device/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/momentics/nibblepipe/api"
)

// Ensure compile-time interface compliance.
var _ api.Session = (*Session)(nil)

// Session is an admitted opener of a Device.
type Session struct {
	dev    *Device
	flags  api.OpenFlags
	closed atomic.Bool
}

// Flags returns the flags the session was opened with.
func (s *Session) Flags() api.OpenFlags { return s.flags }

// Read blocks until data is buffered, then copies at most len(p) bytes.
// It returns 0, nil at a message boundary; calling again past the
// boundary waits for the next message.
func (s *Session) Read(ctx context.Context, p []byte) (int, error) {
	if s.closed.Load() {
		return 0, api.ErrSessionClosed
	}
	return s.dev.read(ctx, p)
}

// ReadMessage reads up to the next message boundary and returns the
// message without its sentinel.
func (s *Session) ReadMessage(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(s.Reader(ctx)); err != nil {
		return buf.Bytes(), err
	}
	return buf.Bytes(), nil
}

// Reader adapts the session to io.Reader for one message at a time: the
// boundary is reported as io.EOF.
func (s *Session) Reader(ctx context.Context) io.Reader {
	return &messageReader{s: s, ctx: ctx}
}

// Close releases the admission slot. It always succeeds and is idempotent.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.dev.release()
		s.dev.log.Debug("session closed")
	}
	return nil
}

type messageReader struct {
	s   *Session
	ctx context.Context
}

func (r *messageReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.s.Read(r.ctx, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
