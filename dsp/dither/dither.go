// Package dither quantizes rendered float samples to integer PCM with
// triangular dither and optional first-order noise shaping.
package dither

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	minBitDepth = 8
	maxBitDepth = 24
)

// ErrBitDepth is returned for a bit depth outside [8, 24].
var ErrBitDepth = errors.New("dither: unsupported bit depth")

// Quantizer converts samples in [-1, 1] to signed integers of a fixed bit
// depth. It keeps one sample of error history per channel and is not safe
// for concurrent use.
type Quantizer struct {
	bits      int
	amplitude float64
	shaping   bool
	rng       *rand.Rand

	scale  float64
	lo, hi int
	errs   []float64
}

// Option configures a Quantizer.
type Option func(*Quantizer) error

// WithBitDepth sets the output bit depth. Default 16.
func WithBitDepth(bits int) Option {
	return func(q *Quantizer) error {
		if bits < minBitDepth || bits > maxBitDepth {
			return fmt.Errorf("%w: %d", ErrBitDepth, bits)
		}
		q.bits = bits
		return nil
	}
}

// WithAmplitude sets the dither amplitude in LSB. Zero disables dither.
// Default 1.
func WithAmplitude(amp float64) Option {
	return func(q *Quantizer) error {
		if amp < 0 || amp > 4 || math.IsNaN(amp) {
			return fmt.Errorf("dither: amplitude must be in [0, 4]: %g", amp)
		}
		q.amplitude = amp
		return nil
	}
}

// WithShaping enables first-order error feedback, which moves the
// quantization noise towards high frequencies.
func WithShaping(enabled bool) Option {
	return func(q *Quantizer) error {
		q.shaping = enabled
		return nil
	}
}

// WithSeed makes the dither sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(q *Quantizer) error {
		q.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		return nil
	}
}

// New returns a quantizer for interleaved audio with the given number of
// channels.
func New(channels int, opts ...Option) (*Quantizer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("dither: channel count must be positive: %d", channels)
	}
	q := &Quantizer{
		bits:      16,
		amplitude: 1,
		errs:      make([]float64, channels),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	if q.rng == nil {
		q.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	full := 1 << (q.bits - 1)
	q.scale = float64(full - 1)
	q.lo = -full + 1
	q.hi = full - 1
	return q, nil
}

// BitDepth returns the output bit depth.
func (q *Quantizer) BitDepth() int { return q.bits }

// Quantize converts one sample of channel ch.
func (q *Quantizer) Quantize(ch int, x float64) int {
	if math.IsNaN(x) {
		x = 0
	}
	v := max(-1, min(1, x)) * q.scale
	if q.shaping {
		v -= q.errs[ch]
	}
	noise := q.amplitude * (q.rng.Float64() - q.rng.Float64())
	out := max(q.lo, min(q.hi, int(math.Round(v+noise))))
	q.errs[ch] = float64(out) - v
	return out
}

// QuantizeInterleaved converts src into dst, cycling through the channels.
// It returns the number of converted samples.
func (q *Quantizer) QuantizeInterleaved(dst []int, src []float32) int {
	n := min(len(dst), len(src))
	chans := len(q.errs)
	for i := range n {
		dst[i] = q.Quantize(i%chans, float64(src[i]))
	}
	return n
}

// Reset clears the error history.
func (q *Quantizer) Reset() {
	clear(q.errs)
}
