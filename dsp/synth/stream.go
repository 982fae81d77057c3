package synth

import (
	"encoding/binary"
	"io"
	"math"
)

const frameBytes = 8

// StreamReader exposes an Engine as an endless stream of interleaved
// stereo frames, each sample a little-endian IEEE 754 float32. It suits
// pull-based audio backends such as oto.
type StreamReader struct {
	engine *Engine
	frames []float32
}

// NewStreamReader returns a reader rendering from e.
func NewStreamReader(e *Engine) *StreamReader {
	return &StreamReader{engine: e}
}

// Read renders len(p)/8 frames into p. It returns io.ErrShortBuffer when
// p cannot hold one frame. A render error is returned together with the
// frames written, which are complete.
func (r *StreamReader) Read(p []byte) (int, error) {
	n := len(p) / frameBytes
	if n == 0 {
		return 0, io.ErrShortBuffer
	}
	if cap(r.frames) < 2*n {
		r.frames = make([]float32, 2*n)
	}
	buf := r.frames[:2*n]

	frames, err := r.engine.Render(buf)
	for i, s := range buf[:2*frames] {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(s))
	}
	return frames * frameBytes, err
}
