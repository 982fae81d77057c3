package oversample

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFactor indicates an unsupported decimation factor.
var ErrInvalidFactor = errors.New("oversample: invalid factor")

// Quality controls the anti-aliasing filter length.
type Quality int

const (
	// QualityFast prioritizes lower CPU usage.
	QualityFast Quality = iota
	// QualityBalanced is the default quality/performance trade-off.
	QualityBalanced
	// QualityBest prioritizes stopband attenuation.
	QualityBest
)

type profile struct {
	tapsPerFactor int
	cutoffScale   float64
	kaiserBeta    float64
}

func qualityProfile(q Quality) profile {
	switch q {
	case QualityFast:
		return profile{tapsPerFactor: 8, cutoffScale: 0.88, kaiserBeta: 5.0}
	case QualityBest:
		return profile{tapsPerFactor: 32, cutoffScale: 0.96, kaiserBeta: 9.0}
	default:
		return profile{tapsPerFactor: 16, cutoffScale: 0.92, kaiserBeta: 7.5}
	}
}

// Option configures a Decimator.
type Option func(*Decimator)

// WithQuality selects a predefined anti-aliasing quality mode.
func WithQuality(q Quality) Option {
	return func(d *Decimator) {
		d.quality = q
	}
}

// Decimator reduces the sample rate by an integer factor using a
// Kaiser-windowed sinc low-pass. It keeps its filter history between
// calls, so consecutive blocks form one continuous stream.
type Decimator struct {
	factor  int
	quality Quality
	taps    []float64

	// history holds the last len(taps) inputs twice so every dot product
	// reads one contiguous window.
	history []float64
	pos     int
	phase   int
}

// NewDecimator creates a decimator for factor >= 1. Factor 1 is a plain copy.
func NewDecimator(factor int, opts ...Option) (*Decimator, error) {
	if factor < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}

	d := &Decimator{factor: factor, quality: QualityBalanced}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	if factor > 1 {
		d.taps = designLowpass(factor, qualityProfile(d.quality))
		d.history = make([]float64, 2*len(d.taps))
	}

	return d, nil
}

// Factor returns the decimation factor.
func (d *Decimator) Factor() int { return d.factor }

// Taps returns the number of FIR taps; 0 for factor 1.
func (d *Decimator) Taps() int { return len(d.taps) }

// Reset clears the filter history.
func (d *Decimator) Reset() {
	for i := range d.history {
		d.history[i] = 0
	}
	d.pos = 0
	d.phase = 0
}

// Process decimates src into dst and returns the number of samples written.
// dst must hold at least len(src)/Factor() samples. Process does not allocate.
func (d *Decimator) Process(dst, src []float64) int {
	if d.factor == 1 {
		return copy(dst, src)
	}

	n := len(d.taps)
	written := 0
	for _, x := range src {
		d.history[d.pos] = x
		d.history[d.pos+n] = x
		d.pos++
		if d.pos == n {
			d.pos = 0
		}

		d.phase++
		if d.phase < d.factor {
			continue
		}
		d.phase = 0

		if written >= len(dst) {
			continue
		}

		// window[k] runs oldest to newest; taps are symmetric.
		window := d.history[d.pos : d.pos+n]
		var y float64
		for k, c := range d.taps {
			y += c * window[k]
		}
		dst[written] = y
		written++
	}

	return written
}

func designLowpass(factor int, p profile) []float64 {
	nTaps := p.tapsPerFactor*factor + 1
	fc := 0.5 / float64(factor) * p.cutoffScale

	taps := make([]float64, nTaps)
	center := 0.5 * float64(nTaps-1)

	var sum float64
	for n := range nTaps {
		t := float64(n) - center
		taps[n] = 2 * fc * sinc(2*fc*t) * kaiserWindow(n, nTaps, p.kaiserBeta)
		sum += taps[n]
	}

	for i := range taps {
		taps[i] /= sum
	}

	return taps
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	pix := math.Pi * x

	return math.Sin(pix) / pix
}

func kaiserWindow(i, n int, beta float64) float64 {
	if n <= 1 || beta == 0 {
		return 1
	}

	t := 2*float64(i)/float64(n-1) - 1
	a := math.Sqrt(math.Max(0, 1-t*t))

	return i0(beta*a) / i0(beta)
}

// i0 is the zeroth-order modified Bessel function of the first kind.
func i0(x float64) float64 {
	sum := 1.0
	term := 1.0

	x2 := (x * x) / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)

		sum += term
		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
