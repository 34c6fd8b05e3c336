// Package slip implements Serial Line Internet Protocol (RFC 1055) framing.
//
// A frame is encoded by replacing every END byte with ESC ESC_END, every ESC
// byte with ESC ESC_ESC, and appending a single END delimiter. No leading END
// is written, so encoded frames concatenate directly into a valid stream.
//
// The package offers one-shot functions over complete buffers (Encode,
// Decode, DecodeFrames, DecodedLengths) and streaming wrappers around an
// io.Writer (Writer) or io.Reader (Reader). Readers and writers are not safe
// for concurrent use.
package slip

import (
	"errors"
	"fmt"
)

// Wire bytes.
const (
	End    = 0xC0 // frame delimiter
	Esc    = 0xDB // escape marker
	EscEnd = 0xDC // escaped END, valid only after Esc
	EscEsc = 0xDD // escaped ESC, valid only after Esc
)

var (
	// ErrMalformedEscape is matched by every error reporting an ESC byte that
	// is not followed by EscEnd or EscEsc.
	ErrMalformedEscape = errors.New("slip: malformed escape sequence")
	// ErrMultipleFrames is returned by Decode when bytes follow the first END.
	ErrMultipleFrames = errors.New("slip: input holds more than one frame")
	// ErrReleased is returned by a Reader or Writer after Release.
	ErrReleased = errors.New("slip: use of released stream")
)

// EscapeError describes a malformed escape sequence.
type EscapeError struct {
	// Offset is the position of the ESC byte in the decoded input. For a
	// Reader or Decoder it counts bytes consumed since construction.
	Offset int64
	// Code is the byte that followed ESC. It is meaningless when AtEOF is set.
	Code byte
	// AtEOF is set when ESC was the last byte of the input.
	AtEOF bool
}

// Error describes the bad escape and where it was found.
func (e *EscapeError) Error() string {
	if e.AtEOF {
		return fmt.Sprintf("slip: malformed escape sequence at offset %d: ESC at end of input", e.Offset)
	}
	return fmt.Sprintf("slip: malformed escape sequence at offset %d: ESC followed by 0x%02X", e.Offset, e.Code)
}

// Is reports whether target is ErrMalformedEscape.
func (e *EscapeError) Is(target error) bool { return target == ErrMalformedEscape }

// unescape maps an escape code to the byte it stands for.
func unescape(code byte) (byte, bool) {
	switch code {
	case EscEnd:
		return End, true
	case EscEsc:
		return Esc, true
	}
	return 0, false
}
