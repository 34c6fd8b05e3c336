package slip

import "slices"

// EncodedLen returns the length of Encode(p) without encoding it. Every END
// and ESC byte costs two output bytes, and the trailing END one more.
func EncodedLen(p []byte) int {
	return len(p) + countSpecial(p) + 1
}

// Encode returns the SLIP encoding of p, terminated by END. Encoding never
// fails.
func Encode(p []byte) []byte {
	return AppendEncode(nil, p)
}

// AppendEncode appends the SLIP encoding of p to dst and returns the
// extended buffer.
func AppendEncode(dst, p []byte) []byte {
	dst = slices.Grow(dst, EncodedLen(p))
	s := newScanner(p)
	pos := 0
	for {
		i := s.next(pos)
		dst = append(dst, p[pos:i]...)
		if i == len(p) {
			break
		}
		if p[i] == End {
			dst = append(dst, Esc, EscEnd)
		} else {
			dst = append(dst, Esc, EscEsc)
		}
		pos = i + 1
	}
	return append(dst, End)
}
