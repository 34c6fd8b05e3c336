package slip

import (
	"bytes"
	"io"
	"testing"
)

func benchPayload(n int, special bool) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(0x20 + i%0x5F)
	}
	if special {
		for i := 0; i < n; i += 16 {
			p[i] = End
		}
	}
	return p
}

func BenchmarkEncode(b *testing.B) {
	for _, special := range []bool{false, true} {
		p := benchPayload(64*1024, special)
		name := "ascii"
		if special {
			name = "specials"
		}
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(p)))
			b.ReportAllocs()
			dst := make([]byte, 0, EncodedLen(p))
			for i := 0; i < b.N; i++ {
				dst = AppendEncode(dst[:0], p)
			}
		})
	}
}

func BenchmarkDecodeFrames(b *testing.B) {
	var stream []byte
	for i := 0; i < 512; i++ {
		stream = append(stream, Encode(benchPayload(128, i%2 == 0))...)
	}
	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeFrames(stream); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReader(b *testing.B) {
	var stream []byte
	for i := 0; i < 512; i++ {
		stream = append(stream, Encode(benchPayload(128, i%2 == 0))...)
	}
	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	src := bytes.NewReader(stream)
	var frame []byte
	for i := 0; i < b.N; i++ {
		src.Reset(stream)
		r := NewReader(src)
		for {
			var err error
			frame, err = r.ReadFrameInto(frame[:0])
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
