package slip

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncode_EmptyData(t *testing.T) {
	expected := []byte{End}

	result := Encode(nil)
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(nil) = %v, want %v", result, expected)
	}

	result = Encode([]byte{})
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode([]) = %v, want %v", result, expected)
	}
}

func TestEncode_NoSpecialBytes(t *testing.T) {
	input := []byte("hello")
	result := Encode(input)
	expected := []byte{0x68, 0x65, 0x6c, 0x6c, 0x6f, 0xC0}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = % X, want % X", input, result, expected)
	}
}

func TestEncode_EscapeEndByte(t *testing.T) {
	input := []byte{0x01, End, 0x03}
	result := Encode(input)
	expected := []byte{0x01, Esc, EscEnd, 0x03, End}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestEncode_EscapeEscByte(t *testing.T) {
	input := []byte{0x01, Esc, 0x03}
	result := Encode(input)
	expected := []byte{0x01, Esc, EscEsc, 0x03, End}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestEncode_SpecialPair(t *testing.T) {
	input := []byte{0xC0, 0xDB}
	result := Encode(input)
	expected := []byte{0xDB, 0xDC, 0xDB, 0xDD, 0xC0}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(% X) = % X, want % X", input, result, expected)
	}
}

func TestEncode_AllSpecialBytes(t *testing.T) {
	input := []byte{End, End, Esc, Esc}
	result := Encode(input)
	expected := []byte{Esc, EscEnd, Esc, EscEnd, Esc, EscEsc, Esc, EscEsc, End}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestEncode_EscapeCodesPassThrough(t *testing.T) {
	// EscEnd and EscEsc are ordinary bytes outside an escape sequence.
	input := []byte{EscEnd, EscEsc}
	result := Encode(input)
	expected := []byte{EscEnd, EscEsc, End}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestAppendEncode_KeepsPrefix(t *testing.T) {
	dst := []byte{0xAA}
	result := AppendEncode(dst, []byte{End})
	expected := []byte{0xAA, Esc, EscEnd, End}
	if !bytes.Equal(result, expected) {
		t.Errorf("AppendEncode = %v, want %v", result, expected)
	}
}

func TestEncodedLen_CountsEscapes(t *testing.T) {
	tests := []struct {
		input    []byte
		expected int
	}{
		{nil, 1},
		{[]byte{0x01}, 2},
		{[]byte{End, Esc, 0x01}, 6},
		{bytes.Repeat([]byte{End}, 100), 201},
		{bytes.Repeat([]byte{0x7E}, 100), 101},
	}

	for _, tc := range tests {
		if got := EncodedLen(tc.input); got != tc.expected {
			t.Errorf("EncodedLen(%v) = %d, want %d", tc.input, got, tc.expected)
		}
		if got := len(Encode(tc.input)); got != tc.expected {
			t.Errorf("len(Encode(%v)) = %d, want %d", tc.input, got, tc.expected)
		}
	}
}

func TestDecode_ValidFrame(t *testing.T) {
	frame := []byte{0x01, 0x02, 0x03, End}
	result, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode(%v) error = %v", frame, err)
	}
	expected := []byte{0x01, 0x02, 0x03}
	if !bytes.Equal(result, expected) {
		t.Errorf("Decode(%v) = %v, want %v", frame, result, expected)
	}
}

func TestDecode_WithoutTrailingEnd(t *testing.T) {
	frame := []byte{0x01, Esc, EscEnd}
	result, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode(%v) error = %v", frame, err)
	}
	expected := []byte{0x01, End}
	if !bytes.Equal(result, expected) {
		t.Errorf("Decode(%v) = %v, want %v", frame, result, expected)
	}
}

func TestDecode_SpecialPair(t *testing.T) {
	frame := []byte{0xDB, 0xDC, 0xDB, 0xDD, 0xC0}
	result, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode(% X) error = %v", frame, err)
	}
	expected := []byte{0xC0, 0xDB}
	if !bytes.Equal(result, expected) {
		t.Errorf("Decode(% X) = % X, want % X", frame, result, expected)
	}
}

func TestDecode_EmptyFrame(t *testing.T) {
	for _, frame := range [][]byte{nil, {}, {End}} {
		result, err := Decode(frame)
		if err != nil {
			t.Fatalf("Decode(%v) error = %v", frame, err)
		}
		if result == nil || len(result) != 0 {
			t.Errorf("Decode(%v) = %#v, want empty non-nil", frame, result)
		}
	}
}

func TestDecode_InvalidEscapeCode(t *testing.T) {
	_, err := Decode([]byte{Esc, 0x01})
	if !errors.Is(err, ErrMalformedEscape) {
		t.Fatalf("Decode([ESC 0x01]) error = %v, want ErrMalformedEscape", err)
	}
	var escErr *EscapeError
	if !errors.As(err, &escErr) {
		t.Fatalf("Decode([ESC 0x01]) error type = %T, want *EscapeError", err)
	}
	if escErr.Code != 0x01 || escErr.Offset != 0 || escErr.AtEOF {
		t.Errorf("EscapeError = %+v, want Code=0x01 Offset=0 AtEOF=false", escErr)
	}
}

func TestDecode_EscapeAtEndOfInput(t *testing.T) {
	_, err := Decode([]byte{Esc})
	if !errors.Is(err, ErrMalformedEscape) {
		t.Fatalf("Decode([ESC]) error = %v, want ErrMalformedEscape", err)
	}
	var escErr *EscapeError
	if errors.As(err, &escErr) && !escErr.AtEOF {
		t.Errorf("EscapeError = %+v, want AtEOF", escErr)
	}
}

func TestDecode_EscapeBeforeEnd(t *testing.T) {
	_, err := Decode([]byte{0x01, Esc, End})
	var escErr *EscapeError
	if !errors.As(err, &escErr) {
		t.Fatalf("Decode error = %v, want *EscapeError", err)
	}
	if escErr.Code != End || escErr.Offset != 1 {
		t.Errorf("EscapeError = %+v, want Code=0xC0 Offset=1", escErr)
	}
}

func TestDecode_EmbeddedEnd(t *testing.T) {
	input := append(Encode([]byte("one")), Encode([]byte("two"))...)
	result, err := Decode(input)
	if !errors.Is(err, ErrMultipleFrames) {
		t.Fatalf("Decode(two frames) error = %v, want ErrMultipleFrames", err)
	}
	if result != nil {
		t.Errorf("Decode(two frames) = %v, want nil", result)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	allBytes := make([]byte, 256)
	for i := range allBytes {
		allBytes[i] = byte(i)
	}

	testCases := [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		{End},
		{Esc},
		{End, Esc},
		{Esc, EscEnd},
		{0x00, End, 0x00, Esc, 0x00},
		{0xFF, 0xFE, 0xFD},
		bytes.Repeat([]byte{End}, 64),
		bytes.Repeat([]byte{Esc}, 64),
		bytes.Repeat([]byte{End, Esc}, 64),
		allBytes,
		make([]byte, 256),
	}

	for i, tc := range testCases {
		encoded := Encode(tc)
		if bytes.IndexByte(encoded[:len(encoded)-1], End) >= 0 {
			t.Errorf("Case %d: Encode(%v) holds a literal END: %v", i, tc, encoded)
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Errorf("Case %d: Decode error = %v", i, err)
			continue
		}
		if !bytes.Equal(decoded, tc) {
			t.Errorf("Case %d: RoundTrip(%v) = %v, want %v", i, tc, decoded, tc)
		}
	}
}
