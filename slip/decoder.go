package slip

import (
	"bytes"
	"io"
)

// Remainder holds what a stream left behind when it ended without a
// terminating END.
type Remainder struct {
	// Decoded is the unescaped payload collected for the unfinished frame.
	Decoded []byte
	// EscapePending is set when the stream ended right after an ESC byte.
	EscapePending bool
}

// Len returns the number of decoded bytes held.
func (r Remainder) Len() int { return len(r.Decoded) }

// Empty reports whether the remainder holds no bytes and no pending escape.
func (r Remainder) Empty() bool { return len(r.Decoded) == 0 && !r.EscapePending }

// Decoder is the incremental SLIP decoding state machine. It is fed
// arbitrary chunks of an encoded stream and accumulates the unescaped
// payload of the current frame, tracking an ESC byte whose code byte has not
// arrived yet.
//
// The zero value is ready to use.
type Decoder struct {
	buf     []byte
	escaped bool
	offset  int64

	// After a malformed escape buf holds the broken frame's prefix until
	// decoding moves past that frame's END. resync is set while the rest of
	// the broken frame is being skipped.
	stale  bool
	resync bool
}

// Decode consumes src up to and including the next END. It returns the
// number of bytes consumed and whether a frame was completed. Once a frame
// is complete it must be collected with Frame, AppendFrame or Discard before
// Decode is called again.
//
// A malformed escape consumes the offending code byte. The bytes accumulated
// before it stay available through TakeRemainder, and the rest of the broken
// frame, up to and including its END, is skipped by later calls.
func (d *Decoder) Decode(src []byte) (n int, complete bool, err error) {
	n, complete, err = d.decode(src, d.offset)
	d.offset += int64(n)
	return n, complete, err
}

func (d *Decoder) decode(src []byte, base int64) (int, bool, error) {
	if d.resync {
		i := bytes.IndexByte(src, End)
		if i < 0 {
			return len(src), false, nil
		}
		d.resync = false
		d.dropStale()
		return i + 1, false, nil
	}
	if d.stale && len(src) > 0 {
		d.dropStale()
	}

	pos := 0
	if d.escaped && len(src) > 0 {
		d.escaped = false
		b, ok := unescape(src[0])
		if !ok {
			return 1, false, d.malformed(base-1, src[0])
		}
		d.buf = append(d.buf, b)
		pos = 1
	}
	s := newScanner(src)
	for {
		i := s.next(pos)
		d.buf = append(d.buf, src[pos:i]...)
		switch {
		case i == len(src):
			return i, false, nil
		case src[i] == End:
			return i + 1, true, nil
		case i+1 == len(src):
			d.escaped = true
			return i + 1, false, nil
		}
		b, ok := unescape(src[i+1])
		if !ok {
			return i + 2, false, d.malformed(base+int64(i), src[i+1])
		}
		d.buf = append(d.buf, b)
		pos = i + 2
	}
}

// malformed records a bad escape code. When the code byte is END the broken
// frame is already over and nothing needs to be skipped.
func (d *Decoder) malformed(offset int64, code byte) error {
	d.stale = true
	d.resync = code != End
	return &EscapeError{Offset: offset, Code: code}
}

func (d *Decoder) dropStale() {
	if d.stale {
		d.buf = d.buf[:0]
		d.stale = false
	}
}

// Frame hands over the accumulated payload and starts a new frame. The
// result is never nil.
func (d *Decoder) Frame() []byte {
	f := d.buf
	if f == nil {
		f = []byte{}
	}
	d.buf = nil
	return f
}

// AppendFrame appends the accumulated payload to dst and starts a new frame,
// keeping the decoder's buffer for reuse.
func (d *Decoder) AppendFrame(dst []byte) []byte {
	dst = append(dst, d.buf...)
	d.buf = d.buf[:0]
	return dst
}

// Discard drops the accumulated payload, returning its length.
func (d *Decoder) Discard() int {
	n := len(d.buf)
	d.buf = d.buf[:0]
	return n
}

// Len returns the number of payload bytes accumulated for the current frame.
func (d *Decoder) Len() int { return len(d.buf) }

// Pending reports whether a frame is partially accumulated.
func (d *Decoder) Pending() bool { return len(d.buf) > 0 || d.escaped }

// TakeRemainder returns and clears the partially accumulated frame. After a
// malformed escape that is the prefix of the broken frame; the rest of that
// frame is still skipped.
func (d *Decoder) TakeRemainder() Remainder {
	r := Remainder{Decoded: d.buf, EscapePending: d.escaped}
	d.buf = nil
	d.escaped = false
	d.stale = false
	return r
}

// Skipping reports whether the decoder is discarding the rest of a frame
// that held a malformed escape.
func (d *Decoder) Skipping() bool { return d.resync }

// Reset clears all state, including the input offset.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

// ScanFrames is a bufio.SplitFunc that yields one decoded payload per
// END-terminated frame. Input ending inside a frame fails with
// io.ErrUnexpectedEOF.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, End); i >= 0 {
		token, err = AppendDecode(make([]byte, 0, i), data[:i+1])
		if err != nil {
			return 0, nil, err
		}
		return i + 1, token, nil
	}
	if atEOF && len(data) > 0 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return 0, nil, nil
}
