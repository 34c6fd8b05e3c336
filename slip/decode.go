package slip

import "fmt"

// Decode decodes a single encoded frame. The trailing END is optional: when
// absent the whole input is taken as the frame. Bytes after the first END
// are rejected with ErrMultipleFrames; use DecodeFrames for streams.
func Decode(encoded []byte) ([]byte, error) {
	p, err := AppendDecode(make([]byte, 0, len(encoded)), encoded)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AppendDecode appends the payload of a single encoded frame to dst, with
// the same rules as Decode.
func AppendDecode(dst, encoded []byte) ([]byte, error) {
	s := newScanner(encoded)
	pos := 0
	for {
		i := s.next(pos)
		dst = append(dst, encoded[pos:i]...)
		if i == len(encoded) {
			return dst, nil
		}
		if encoded[i] == End {
			if extra := len(encoded) - i - 1; extra > 0 {
				return dst, fmt.Errorf("%w: %d bytes after END at offset %d", ErrMultipleFrames, extra, i)
			}
			return dst, nil
		}
		b, err := escapeAt(encoded, i)
		if err != nil {
			return dst, err
		}
		dst = append(dst, b)
		pos = i + 2
	}
}

// DecodeFrames decodes every END-terminated frame in buf, in order. A
// trailing unterminated segment is left out.
func DecodeFrames(buf []byte) ([][]byte, error) {
	frames, _, err := DecodeFramesWithRemainder(buf)
	return frames, err
}

// DecodeFramesWithRemainder is like DecodeFrames but also returns the
// trailing unterminated segment of buf, still escaped. Appending more input
// to the remainder and decoding again resumes where this call stopped.
//
// On a malformed escape the frames decoded before it are returned with the
// error. Frames share one backing array and are capped, so appending to one
// never overwrites another.
func DecodeFramesWithRemainder(buf []byte) (frames [][]byte, remainder []byte, err error) {
	out := make([]byte, 0, len(buf))
	s := newScanner(buf)
	start, pos, mark := 0, 0, 0
	for {
		i := s.next(pos)
		out = append(out, buf[pos:i]...)
		if i == len(buf) {
			return frames, buf[start:], nil
		}
		if buf[i] == End {
			frames = append(frames, out[mark:len(out):len(out)])
			mark = len(out)
			pos = i + 1
			start = pos
			continue
		}
		if i+1 == len(buf) {
			// ESC split from its code: more input may complete it.
			return frames, buf[start:], nil
		}
		b, err := escapeAt(buf, i)
		if err != nil {
			return frames, nil, err
		}
		out = append(out, b)
		pos = i + 2
	}
}

// DecodedLengths reports the payload length of every END-terminated frame in
// buf without materializing the payloads. A trailing unterminated segment is
// left out.
func DecodedLengths(buf []byte) ([]int, error) {
	var lengths []int
	s := newScanner(buf)
	n, pos := 0, 0
	for {
		i := s.next(pos)
		n += i - pos
		if i == len(buf) {
			return lengths, nil
		}
		if buf[i] == End {
			lengths = append(lengths, n)
			n = 0
			pos = i + 1
			continue
		}
		if i+1 == len(buf) {
			return lengths, nil
		}
		if _, err := escapeAt(buf, i); err != nil {
			return lengths, err
		}
		n++
		pos = i + 2
	}
}

// escapeAt resolves the escape sequence starting at buf[i], which is ESC.
func escapeAt(buf []byte, i int) (byte, error) {
	if i+1 >= len(buf) {
		return 0, &EscapeError{Offset: int64(i), AtEOF: true}
	}
	b, ok := unescape(buf[i+1])
	if !ok {
		return 0, &EscapeError{Offset: int64(i), Code: buf[i+1]}
	}
	return b, nil
}
