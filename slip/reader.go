package slip

import (
	"bytes"
	"errors"
	"io"
)

const (
	// DefaultReadBufferSize is the chunk size a Reader requests from its
	// source.
	DefaultReadBufferSize = 4096

	maxConsecutiveEmptyReads = 100
)

var errNegativeRead = errors.New("slip: reader returned negative count from Read")

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReadBufferSize sets the chunk size requested from the source. Sizes
// below 1 are raised to 1.
func WithReadBufferSize(size int) ReaderOption {
	return func(r *Reader) {
		if size < 1 {
			size = 1
		}
		r.size = size
	}
}

// Reader decodes SLIP frames from a byte source. It reads the source in
// chunks, so frames and escape sequences may straddle reads freely. Bytes
// read past the end of a frame are kept for the next call.
//
// When the source ends inside a frame, ReadFrame returns io.EOF and the
// partial payload stays available through TakeRemainder.
type Reader struct {
	src  io.Reader
	dec  Decoder
	size int
	buf  []byte
	r, w int // buf[r:w] is read but not yet decoded
	err  error

	held    Result // read by Frames but not delivered
	hasHeld bool
}

// NewReader returns a Reader that takes ownership of src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{src: src, size: DefaultReadBufferSize}
	for _, opt := range opts {
		opt(r)
	}
	r.buf = make([]byte, r.size)
	return r
}

// ReadFrame returns the next frame's payload. It returns io.EOF when the
// source is exhausted with no complete frame left, a *EscapeError on a
// malformed escape, and the source's own errors unchanged.
func (r *Reader) ReadFrame() ([]byte, error) {
	if r.hasHeld {
		return r.takeHeld()
	}
	if err := r.next(); err != nil {
		return nil, err
	}
	return r.dec.Frame(), nil
}

// ReadFrameInto appends the next frame's payload to dst. The reader's
// accumulation buffer is reused across calls.
func (r *Reader) ReadFrameInto(dst []byte) ([]byte, error) {
	if r.hasHeld {
		p, err := r.takeHeld()
		if err != nil {
			return dst, err
		}
		return append(dst, p...), nil
	}
	if err := r.next(); err != nil {
		return dst, err
	}
	return r.dec.AppendFrame(dst), nil
}

// ReadFrameLength consumes the next frame and returns only its payload
// length.
func (r *Reader) ReadFrameLength() (int, error) {
	if r.hasHeld {
		p, err := r.takeHeld()
		return len(p), err
	}
	if err := r.next(); err != nil {
		return 0, err
	}
	return r.dec.Discard(), nil
}

// TakeRemainder returns and clears the unescaped bytes of a frame that has
// not been terminated yet.
func (r *Reader) TakeRemainder() Remainder {
	return r.dec.TakeRemainder()
}

// HasRemainder reports whether an unterminated frame is accumulated.
func (r *Reader) HasRemainder() bool {
	return r.dec.Pending()
}

// Exhausted reports whether the source has signalled end of data.
func (r *Reader) Exhausted() bool {
	return r.err == io.EOF
}

// Buffered returns the number of bytes read from the source but not yet
// decoded.
func (r *Reader) Buffered() int {
	return r.w - r.r
}

// Release gives the source back to the caller. Bytes already read from it
// but not decoded are replayed ahead of it. Any later call on r returns
// ErrReleased.
func (r *Reader) Release() io.Reader {
	src := r.src
	r.src = nil
	if r.r < r.w {
		rest := append([]byte(nil), r.buf[r.r:r.w]...)
		r.r, r.w = 0, 0
		return io.MultiReader(bytes.NewReader(rest), src)
	}
	return src
}

// ReleaseWithRemainder releases the source together with any unterminated
// frame.
func (r *Reader) ReleaseWithRemainder() (io.Reader, Remainder) {
	rem := r.TakeRemainder()
	return r.Release(), rem
}

// next decodes until a frame is complete.
func (r *Reader) next() error {
	if r.src == nil {
		return ErrReleased
	}
	for {
		if r.r < r.w {
			n, complete, err := r.dec.Decode(r.buf[r.r:r.w])
			r.r += n
			if err != nil {
				return err
			}
			if complete {
				return nil
			}
			continue
		}
		if r.err != nil {
			return r.readErr()
		}
		r.fill()
	}
}

// fill reads a new chunk into the empty buffer.
func (r *Reader) fill() {
	r.r, r.w = 0, 0
	for i := maxConsecutiveEmptyReads; i > 0; i-- {
		n, err := r.src.Read(r.buf)
		if n < 0 {
			panic(errNegativeRead)
		}
		r.w = n
		if err != nil {
			r.err = err
			return
		}
		if n > 0 {
			return
		}
	}
	r.err = io.ErrNoProgress
}

// readErr returns the pending source error. io.EOF sticks; other errors are
// reported once.
func (r *Reader) readErr() error {
	err := r.err
	if err != io.EOF {
		r.err = nil
	}
	return err
}

// hold keeps the outcome of a read so the next read call returns it.
func (r *Reader) hold(p []byte, err error) {
	r.held = Result{Payload: p, Err: err}
	r.hasHeld = true
}

func (r *Reader) takeHeld() ([]byte, error) {
	h := r.held
	r.held = Result{}
	r.hasHeld = false
	return h.Payload, h.Err
}
