package slip

import "bytes"

// scanner finds END and ESC bytes in a buffer with the vectorized
// bytes.IndexByte. It remembers the next END, and never searches for ESC
// past it, so every byte is inspected at most once per special value no
// matter how the buffer is split into frames.
type scanner struct {
	buf     []byte
	nextEnd int // index of the next END, len(buf) if none
	nextEsc int // index of the next ESC, or nextEnd when none precedes it
}

func newScanner(buf []byte) scanner {
	return scanner{buf: buf, nextEnd: -1, nextEsc: -1}
}

// next returns the index of the first END or ESC at or after from, or
// len(buf) when there is none.
func (s *scanner) next(from int) int {
	if s.nextEnd < from {
		s.nextEnd = len(s.buf)
		if from < len(s.buf) {
			if i := bytes.IndexByte(s.buf[from:], End); i >= 0 {
				s.nextEnd = from + i
			}
		}
	}
	if s.nextEsc < from {
		s.nextEsc = s.nextEnd
		if from < s.nextEnd {
			if i := bytes.IndexByte(s.buf[from:s.nextEnd], Esc); i >= 0 {
				s.nextEsc = from + i
			}
		}
	}
	return s.nextEsc
}

// countSpecial reports how many END and ESC bytes p holds.
func countSpecial(p []byte) int {
	return bytes.Count(p, []byte{End}) + bytes.Count(p, []byte{Esc})
}
