package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/bigbag/slipstream/slip"
)

type printMode int

const (
	printRaw printMode = iota
	printHex
	printLength
)

// maxLineSize bounds a single --lines input line.
const maxLineSize = 16 << 20

// encodeStream writes in to out as one frame, or one frame per line.
func encodeStream(in io.Reader, out *bufio.Writer, lines bool) (int, error) {
	w := slip.NewWriter(out)
	if !lines {
		data, err := io.ReadAll(in)
		if err != nil {
			return 0, errors.Wrap(err, "read input")
		}
		if err := w.WriteFrame(data); err != nil {
			return 0, err
		}
		return 1, w.Flush()
	}

	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for s.Scan() {
		if err := w.WriteFrame(s.Bytes()); err != nil {
			return n, err
		}
		n++
	}
	if err := s.Err(); err != nil {
		return n, errors.Wrap(err, "read input")
	}
	return n, w.Flush()
}

// decodeStream prints every frame of in to out. On interruption it returns
// ctx.Err() and an empty remainder, since the reader is still in use.
func decodeStream(ctx context.Context, in io.Reader, out *bufio.Writer, mode printMode, bufSize int) (int, slip.Remainder, error) {
	r := slip.NewReader(in, slip.WithReadBufferSize(bufSize))
	frames := r.Frames(ctx)

	n := 0
	for {
		select {
		case <-ctx.Done():
			out.Flush()
			return n, slip.Remainder{}, errors.WithStack(ctx.Err())
		case res, ok := <-frames:
			if !ok {
				if err := out.Flush(); err != nil {
					return n, slip.Remainder{}, errors.Wrap(err, "write output")
				}
				return n, r.TakeRemainder(), nil
			}
			if res.Err != nil {
				out.Flush()
				return n, slip.Remainder{}, errors.Wrapf(res.Err, "frame %d", n)
			}
			if err := printFrame(out, mode, res.Payload); err != nil {
				return n, slip.Remainder{}, errors.Wrap(err, "write output")
			}
			n++
		}
	}
}

func printFrame(w io.Writer, mode printMode, p []byte) error {
	var err error
	switch mode {
	case printHex:
		_, err = fmt.Fprintf(w, "% X\n", p)
	case printLength:
		_, err = fmt.Fprintf(w, "%d\n", len(p))
	default:
		if _, err = w.Write(p); err == nil {
			_, err = io.WriteString(w, "\n")
		}
	}
	return err
}
