package slip

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames_DeliversUntilEOF(t *testing.T) {
	stream := concat(Encode([]byte("ping")), Encode([]byte("pong")), []byte("tail"))
	r := NewReader(bytes.NewReader(stream))

	var got [][]byte
	for res := range r.Frames(context.Background()) {
		require.NoError(t, res.Err)
		got = append(got, res.Payload)
	}
	assert.Equal(t, [][]byte{[]byte("ping"), []byte("pong")}, got)
	assert.Equal(t, []byte("tail"), r.TakeRemainder().Decoded)
}

func TestFrames_StopsOnError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{'a', Esc, 'b', End, 'c', End}))

	var results []Result
	for res := range r.Frames(context.Background()) {
		results = append(results, res)
	}
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrMalformedEscape)
}

func TestFrames_CancelKeepsFrame(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr)
	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Frames(ctx)

	go func() {
		_, _ = pw.Write(Encode([]byte("first")))
	}()
	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		assert.Equal(t, []byte("first"), res.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame delivered")
	}

	// Cancel while the goroutine waits for input, then let a read finish.
	cancel()
	go func() {
		_, _ = pw.Write(Encode([]byte("second")))
	}()
	for range ch {
		t.Error("frame delivered after cancel")
	}

	p, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), p)
	require.NoError(t, pw.Close())
}

func TestFrames_CancelKeepsError(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr)
	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Frames(ctx)

	go func() {
		_, _ = pw.Write(Encode([]byte("first")))
	}()
	select {
	case res := <-ch:
		require.NoError(t, res.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame delivered")
	}

	cancel()
	go func() {
		_, _ = pw.Write([]byte{'x', Esc, 0x01, 'y', End})
	}()
	for range ch {
		t.Error("result delivered after cancel")
	}

	p, err := r.ReadFrame()
	assert.ErrorIs(t, err, ErrMalformedEscape)
	assert.Nil(t, p)

	go func() {
		_, _ = pw.Write(Encode([]byte("next")))
	}()
	p, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), p)
	require.NoError(t, pw.Close())
}
