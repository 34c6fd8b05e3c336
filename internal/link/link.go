// Package link exchanges SLIP frames with a peer over a byte transport.
package link

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bigbag/slipstream/internal/serial"
	"github.com/bigbag/slipstream/slip"
)

// DefaultTimeout bounds Exchange when no WithTimeout option is given.
const DefaultTimeout = time.Second

var (
	// ErrTimeout is returned when no reply frame arrived in time.
	ErrTimeout = errors.New("link: timeout waiting for frame")
	// ErrMismatch is returned when an echoed frame differs from what was sent.
	ErrMismatch = errors.New("link: echo mismatch")
)

// ProgressCallback is called to report loopback progress.
type ProgressCallback func(current, total int)

// Link sends and receives frames on one transport. It is not safe for
// concurrent use.
type Link struct {
	w       *slip.Writer
	r       *slip.Reader
	timeout time.Duration
	log     zerolog.Logger
}

// Option configures a Link.
type Option func(*linkOptions)

type linkOptions struct {
	timeout    time.Duration
	bufferSize int
	log        zerolog.Logger
}

// WithTimeout bounds how long Exchange waits for a reply.
func WithTimeout(d time.Duration) Option {
	return func(o *linkOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithReadBufferSize sets the frame reader's lookahead size.
func WithReadBufferSize(n int) Option {
	return func(o *linkOptions) { o.bufferSize = n }
}

// WithLogger sets the logger for frame traffic. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(o *linkOptions) { o.log = log }
}

// New returns a Link over rw. Reads on rw should time out with
// serial.ErrTimeout so that context deadlines are honored; a transport
// that blocks forever can only be interrupted by closing it.
func New(rw io.ReadWriter, opts ...Option) *Link {
	o := linkOptions{
		timeout:    DefaultTimeout,
		bufferSize: slip.DefaultReadBufferSize,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Link{
		w:       slip.NewWriter(rw),
		r:       slip.NewReader(rw, slip.WithReadBufferSize(o.bufferSize)),
		timeout: o.timeout,
		log:     o.log,
	}
}

// Send writes payload as one frame.
func (l *Link) Send(payload []byte) error {
	if err := l.w.WriteFrame(payload); err != nil {
		return errors.Wrap(err, "send frame")
	}
	l.log.Debug().Int("len", len(payload)).Msg("frame sent")
	return nil
}

// Receive waits for the next frame until ctx is done. It returns io.EOF when
// the peer closed the transport.
func (l *Link) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, contextErr(err)
		}
		p, err := l.r.ReadFrame()
		switch {
		case err == nil:
			l.log.Debug().Int("len", len(p)).Msg("frame received")
			return p, nil
		case serial.IsTimeout(err):
			continue
		case err == io.EOF:
			return nil, io.EOF
		case errors.Is(err, slip.ErrMalformedEscape):
			// The reader skips the rest of the broken frame on the next read.
			rem := l.r.TakeRemainder()
			l.log.Warn().Err(err).Int("dropped", rem.Len()).Msg("malformed frame")
			return nil, errors.Wrap(err, "receive frame")
		default:
			return nil, errors.Wrap(err, "receive frame")
		}
	}
}

// Exchange sends payload and waits for one reply frame.
func (l *Link) Exchange(ctx context.Context, payload []byte) ([]byte, error) {
	if err := l.Send(payload); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.Receive(ctx)
}

// Probe exchanges payload until the peer echoes it back or attempts run out.
func (l *Link) Probe(ctx context.Context, payload []byte, attempts int) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reply, err := l.Exchange(ctx, payload)
		if err == nil && bytes.Equal(reply, payload) {
			l.log.Debug().Int("attempt", attempt).Msg("peer answered probe")
			return nil
		}
		if err == nil {
			err = ErrMismatch
		}
		if ctx.Err() != nil || err == io.EOF {
			return err
		}
		lastErr = err
		l.log.Debug().Err(err).Int("attempt", attempt).Msg("probe failed")
	}
	if lastErr == nil {
		return errors.Errorf("probe: invalid attempt count %d", attempts)
	}
	return errors.Wrapf(lastErr, "probe failed after %d attempts", attempts)
}

// Loopback sends every payload and checks that the peer echoes it unchanged.
func (l *Link) Loopback(ctx context.Context, payloads [][]byte, progress ProgressCallback) error {
	for i, p := range payloads {
		reply, err := l.Exchange(ctx, p)
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		if !bytes.Equal(reply, p) {
			return errors.Wrapf(ErrMismatch, "frame %d: sent %d bytes, got %d", i, len(p), len(reply))
		}
		if progress != nil {
			progress(i+1, len(payloads))
		}
	}
	return nil
}

// TakeRemainder returns and clears the bytes of an unfinished frame seen so
// far.
func (l *Link) TakeRemainder() slip.Remainder {
	return l.r.TakeRemainder()
}

func contextErr(err error) error {
	if err == context.DeadlineExceeded {
		return ErrTimeout
	}
	return err
}
