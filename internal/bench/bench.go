// Package bench measures encode and decode throughput on reproducible frames.
package bench

import (
	"bytes"
	"time"

	"github.com/pkg/errors"

	"github.com/bigbag/slipstream/slip"
)

// Seed is the generator seed used by Frames.
const Seed = 0xDEADBEEF

// Kind selects the byte distribution of generated frames.
type Kind int

const (
	// Random draws bytes from the full 0x00-0xFF range.
	Random Kind = iota
	// ASCII draws printable bytes in 0x20-0x7E, so nothing needs escaping.
	ASCII
)

// String returns the label used in reports.
func (k Kind) String() string {
	switch k {
	case Random:
		return "random bytes"
	case ASCII:
		return "ASCII-only bytes"
	default:
		return "unknown"
	}
}

// LCG is a linear congruential generator with the Numerical Recipes constants.
type LCG struct {
	state uint64
}

// NewLCG returns a generator starting from seed.
func NewLCG(seed uint64) *LCG {
	return &LCG{state: seed}
}

// Next advances the generator and returns its state.
func (g *LCG) Next() uint64 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}

// NextByte returns bits 24-31 of the next state.
func (g *LCG) NextByte() byte {
	return byte(g.Next() >> 24)
}

// Frames generates count frames of length bytes from a fresh generator, so
// equal arguments always give equal frames.
func Frames(kind Kind, count, length int) [][]byte {
	g := NewLCG(Seed)
	frames := make([][]byte, count)
	for i := range frames {
		p := make([]byte, length)
		for j := range p {
			v := g.NextByte()
			if kind == ASCII {
				v = 0x20 + v%(0x7E-0x20+1)
			}
			p[j] = v
		}
		frames[i] = p
	}
	return frames
}

// ProgressCallback is called as frames are encoded.
type ProgressCallback func(current, total int)

// Result holds the timings of one run.
type Result struct {
	Frames        int
	EncodedBytes  int
	EncodeElapsed time.Duration
	DecodeElapsed time.Duration
}

// EncodeMBps returns encode throughput in MB/s of encoded output.
func (r Result) EncodeMBps() float64 {
	return mbps(r.EncodedBytes, r.EncodeElapsed)
}

// DecodeMBps returns decode throughput in MB/s of encoded input.
func (r Result) DecodeMBps() float64 {
	return mbps(r.EncodedBytes, r.DecodeElapsed)
}

// NsPerFrame returns the encode and decode cost per frame.
func (r Result) NsPerFrame() (encode, decode float64) {
	if r.Frames == 0 {
		return 0, 0
	}
	return float64(r.EncodeElapsed.Nanoseconds()) / float64(r.Frames),
		float64(r.DecodeElapsed.Nanoseconds()) / float64(r.Frames)
}

func mbps(n int, d time.Duration) float64 {
	secs := d.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(n) / 1e6 / secs
}

// progressStep limits callback overhead inside the timed loop.
const progressStep = 1024

// Run encodes every frame, decodes the concatenation and checks the round trip.
func Run(frames [][]byte, progress ProgressCallback) (Result, error) {
	total := len(frames)
	report := func(current int) {
		if progress != nil {
			progress(current, total)
		}
	}

	start := time.Now()
	encoded := make([][]byte, total)
	for i, f := range frames {
		encoded[i] = slip.Encode(f)
		if (i+1)%progressStep == 0 {
			report(i + 1)
		}
	}
	encodeElapsed := time.Since(start)
	report(total)

	stream := bytes.Join(encoded, nil)

	start = time.Now()
	decoded, err := slip.DecodeFrames(stream)
	decodeElapsed := time.Since(start)
	if err != nil {
		return Result{}, errors.Wrap(err, "decode frames")
	}

	if len(decoded) != total {
		return Result{}, errors.Errorf("round trip: got %d frames, want %d", len(decoded), total)
	}
	for i := range frames {
		if !bytes.Equal(decoded[i], frames[i]) {
			return Result{}, errors.Errorf("round trip: frame %d differs", i)
		}
	}

	return Result{
		Frames:        total,
		EncodedBytes:  len(stream),
		EncodeElapsed: encodeElapsed,
		DecodeElapsed: decodeElapsed,
	}, nil
}
