package wavetable

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWidth is returned for pulse widths outside (0, 1).
var ErrInvalidWidth = errors.New("wavetable: pulse width must be in (0, 1)")

// Names of the built-in waveforms.
const (
	Sine     = "sine"
	Saw      = "saw"
	Square   = "square"
	Triangle = "triangle"
	Pulse25  = "pulse25"
)

// SineSpectrum returns a single-harmonic spectrum.
func SineSpectrum(size int) Spectrum {
	s := NewSpectrum(size)
	if size >= 4 {
		s.Im[1] = -1
	}
	return s
}

// SawSpectrum returns a spectrum with every harmonic at 1/k.
func SawSpectrum(size int) Spectrum {
	s := NewSpectrum(size)
	for k := 1; k < size/2; k++ {
		s.Im[k] = -1 / float64(k)
	}
	return s
}

// SquareSpectrum returns a spectrum with odd harmonics at 1/k.
func SquareSpectrum(size int) Spectrum {
	s := NewSpectrum(size)
	for k := 1; k < size/2; k += 2 {
		s.Im[k] = -1 / float64(k)
	}
	return s
}

// TriangleSpectrum returns a spectrum with odd harmonics at 1/k² and
// alternating sign.
func TriangleSpectrum(size int) Spectrum {
	s := NewSpectrum(size)
	sign := -1.0
	for k := 1; k < size/2; k += 2 {
		s.Im[k] = sign / float64(k*k)
		sign = -sign
	}
	return s
}

// PulseSpectrum returns the spectrum of a rectangular pulse that is high for
// width of the period.
func PulseSpectrum(size int, width float64) (Spectrum, error) {
	if !(width > 0 && width < 1) {
		return Spectrum{}, fmt.Errorf("%w: %g", ErrInvalidWidth, width)
	}
	s := NewSpectrum(size)
	for k := 1; k < size/2; k++ {
		a := math.Pi * float64(k) * width
		amp := math.Sin(a) / (math.Pi * float64(k))
		s.Re[k] = amp * math.Cos(a)
		s.Im[k] = -amp * math.Sin(a)
	}
	return s, nil
}

type standardWave struct {
	name     string
	spectrum func(size int) (Spectrum, error)
}

func infallible(f func(int) Spectrum) func(int) (Spectrum, error) {
	return func(size int) (Spectrum, error) { return f(size), nil }
}

var standardWaves = []standardWave{
	{Sine, infallible(SineSpectrum)},
	{Saw, infallible(SawSpectrum)},
	{Square, infallible(SquareSpectrum)},
	{Triangle, infallible(TriangleSpectrum)},
	{Pulse25, func(size int) (Spectrum, error) { return PulseSpectrum(size, 0.25) }},
}
