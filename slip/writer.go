package slip

import "io"

// maxRetainedScratch bounds the encode buffer a Writer keeps between frames.
const maxRetainedScratch = 64 * 1024

// Writer encodes frames onto a byte sink. Every WriteFrame is one complete
// frame issued as a single Write; nothing is buffered between calls.
type Writer struct {
	dst     io.Writer
	scratch []byte
}

// NewWriter returns a Writer that takes ownership of dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// WriteFrame encodes p and writes it to the sink. The sink's error is
// returned unchanged; a short write without an error is io.ErrShortWrite.
func (w *Writer) WriteFrame(p []byte) error {
	if w.dst == nil {
		return ErrReleased
	}
	w.scratch = AppendEncode(w.scratch[:0], p)
	size := len(w.scratch)
	n, err := w.dst.Write(w.scratch)
	if cap(w.scratch) > maxRetainedScratch {
		w.scratch = nil
	}
	if err != nil {
		return err
	}
	if n < size {
		return io.ErrShortWrite
	}
	return nil
}

// Write implements io.Writer by writing p as one frame.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.WriteFrame(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush flushes the sink when it has a Flush method, such as *bufio.Writer.
func (w *Writer) Flush() error {
	if w.dst == nil {
		return ErrReleased
	}
	if f, ok := w.dst.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Sink returns the underlying writer without releasing it.
func (w *Writer) Sink() io.Writer { return w.dst }

// Release gives the sink back to the caller. Any later call on w returns
// ErrReleased.
func (w *Writer) Release() io.Writer {
	dst := w.dst
	w.dst = nil
	w.scratch = nil
	return dst
}
