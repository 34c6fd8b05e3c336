package slip

import (
	"context"
	"io"
)

// Result is one item delivered by Reader.Frames.
type Result struct {
	Payload []byte
	Err     error
}

// Frames reads frames in a goroutine and delivers them on the returned
// channel, which is closed after io.EOF, after the first error (delivered as
// a Result), or once ctx is done.
//
// A frame or error read after ctx is done is kept by the reader and
// returned by the next read call, so cancellation loses nothing. The reader
// must not be used directly until the channel is closed.
func (r *Reader) Frames(ctx context.Context) <-chan Result {
	ch := make(chan Result)
	go func() {
		defer close(ch)
		for ctx.Err() == nil {
			p, err := r.ReadFrame()
			if err == io.EOF {
				return
			}
			if ctx.Err() != nil {
				r.hold(p, err)
				return
			}
			select {
			case ch <- Result{Payload: p, Err: err}:
			case <-ctx.Done():
				r.hold(p, err)
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
