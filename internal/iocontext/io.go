// Package iocontext provides injectable I/O streams via context for testability.
package iocontext

import (
	"bytes"
	"context"
	"io"
	"os"
)

// IO holds the input/output streams for commands.
type IO struct {
	Out    io.Writer // stdout
	ErrOut io.Writer // stderr
	In     io.Reader // stdin
}

// DefaultIO returns the standard IO streams.
func DefaultIO() *IO {
	return &IO{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		In:     os.Stdin,
	}
}

// Buffered returns IO backed by in-memory buffers, reading from in.
func Buffered(in string) (*IO, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &IO{Out: out, ErrOut: errOut, In: bytes.NewBufferString(in)}, out, errOut
}

type ioKey struct{}

// WithIO adds IO streams to a context.
func WithIO(ctx context.Context, io *IO) context.Context {
	return context.WithValue(ctx, ioKey{}, io)
}

// GetIO retrieves IO streams from context, defaulting to standard streams.
func GetIO(ctx context.Context) *IO {
	if io, ok := ctx.Value(ioKey{}).(*IO); ok && io != nil {
		return io
	}
	return DefaultIO()
}

// FromContext reports whether ctx carries explicit IO streams.
func FromContext(ctx context.Context) (*IO, bool) {
	io, ok := ctx.Value(ioKey{}).(*IO)
	return io, ok && io != nil
}
