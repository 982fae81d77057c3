package wavetable

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrNotPowerOfTwo is returned for table sizes the FFT cannot handle.
	ErrNotPowerOfTwo = errors.New("wavetable: size must be a power of two >= 4")
	// ErrSilent is returned when the input has no harmonic above the threshold.
	ErrSilent = errors.New("wavetable: waveform has no harmonic content")
	// ErrSizeMismatch is returned when real and imaginary parts differ in length.
	ErrSizeMismatch = errors.New("wavetable: spectrum parts differ in length")
)

const (
	// HarmonicThresholdDB is the level, relative to the strongest harmonic,
	// below which a harmonic counts as absent.
	HarmonicThresholdDB = -120.0

	// aliasHeadroom lets the top harmonic reach 2/3 of the sample rate:
	// what folds back lands above 1/3 of the rate, out of the audible band
	// for common rates.
	aliasHeadroom = 2.0 / 3.0

	normalizePeak = 0.999
)

// Spectrum is a frequency-domain description of one period: bin k holds the
// complex amplitude of harmonic k. Only bins 1..len/2-1 are used; the
// upper half is derived by conjugate symmetry and DC/Nyquist are dropped.
type Spectrum struct {
	Re []float64
	Im []float64
}

// NewSpectrum returns a zeroed spectrum of size bins.
func NewSpectrum(size int) Spectrum {
	return Spectrum{Re: make([]float64, size), Im: make([]float64, size)}
}

// Len returns the number of bins.
func (s Spectrum) Len() int { return len(s.Re) }

// FromSpectrum builds the band-limited table set for a spectrum.
func FromSpectrum(name string, s Spectrum) (*Memory, error) {
	if len(s.Re) != len(s.Im) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrSizeMismatch, len(s.Re), len(s.Im))
	}
	n := len(s.Re)
	if !isPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: %d", ErrNotPowerOfTwo, n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("wavetable: create FFT plan: %w", err)
	}

	b := &builder{
		plan: plan,
		size: n,
		work: make([]complex128, n),
		time: make([]complex128, n),
	}
	return b.build(name, s)
}

// FromSamples builds the band-limited table set for one period of
// time-domain samples. The period is transformed with a forward FFT first.
func FromSamples(name string, period []float64) (*Memory, error) {
	n := len(period)
	if !isPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: %d", ErrNotPowerOfTwo, n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("wavetable: create FFT plan: %w", err)
	}

	in := make([]complex128, n)
	for i, v := range period {
		in[i] = complex(v, 0)
	}
	out := make([]complex128, n)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("wavetable: forward FFT: %w", err)
	}

	s := NewSpectrum(n)
	for i, c := range out {
		s.Re[i] = real(c)
		s.Im[i] = imag(c)
	}

	b := &builder{
		plan: plan,
		size: n,
		work: in,
		time: out,
	}
	return b.build(name, s)
}

type builder struct {
	plan *algofft.Plan[complex128]
	size int
	work []complex128
	time []complex128
}

func (b *builder) build(name string, s Spectrum) (*Memory, error) {
	maxHarmonic := highestHarmonic(s)
	if maxHarmonic == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSilent, name)
	}

	mem := &Memory{name: name}
	topFreq := aliasHeadroom / float64(maxHarmonic)
	scale := 0.0

	for maxHarmonic >= 1 {
		table, err := b.makeTable(s, maxHarmonic, topFreq, &scale)
		if err != nil {
			return nil, fmt.Errorf("wavetable: %q harmonic %d: %w", name, maxHarmonic, err)
		}
		mem.tables = append(mem.tables, table)

		topFreq *= 2
		maxHarmonic >>= 1
	}

	logger.Debugf("built %q: %d tables of %d samples", name, len(mem.tables), b.size)
	return mem, nil
}

// makeTable keeps harmonics 1..maxHarmonic, inverse transforms them and
// scales the result. The first call fixes *scale from the peak so that all
// tables of one waveform share a gain.
func (b *builder) makeTable(s Spectrum, maxHarmonic int, topFreq float64, scale *float64) (*Table, error) {
	n := b.size
	for i := range b.work {
		b.work[i] = 0
	}

	for k := 1; k <= maxHarmonic && k < n/2; k++ {
		c := complex(s.Re[k], s.Im[k])
		b.work[k] = c
		b.work[n-k] = complex(real(c), -imag(c))
	}
	// DC and Nyquist stay zero.
	b.work[0] = 0
	b.work[n/2] = 0

	if err := b.plan.Inverse(b.time, b.work); err != nil {
		return nil, fmt.Errorf("inverse FFT: %w", err)
	}

	samples := make([]float64, n+1)
	for i := range n {
		samples[i] = real(b.time[i])
	}

	if *scale == 0 {
		peak := vecmath.MaxAbs(samples[:n])
		if peak == 0 {
			return nil, ErrSilent
		}
		*scale = normalizePeak / peak
	}

	vecmath.ScaleBlockInPlace(samples[:n], *scale)
	samples[n] = samples[0]

	return &Table{samples: samples, topFreq: topFreq, harmonics: maxHarmonic}, nil
}

// highestHarmonic returns the highest bin in 1..n/2-1 whose magnitude is
// within HarmonicThresholdDB of the strongest bin, or 0 for silence.
func highestHarmonic(s Spectrum) int {
	n := s.Len()
	half := n / 2
	if half < 2 {
		return 0
	}

	mag := make([]float64, half)
	vecmath.Magnitude(mag, s.Re[:half], s.Im[:half])
	mag[0] = 0

	peak := vecmath.MaxAbs(mag[1:])
	if peak == 0 {
		return 0
	}

	threshold := peak * math.Pow(10, HarmonicThresholdDB/20)
	for k := half - 1; k >= 1; k-- {
		if mag[k] > threshold {
			return k
		}
	}
	return 0
}

func isPowerOfTwo(n int) bool {
	return n >= 4 && n&(n-1) == 0
}
