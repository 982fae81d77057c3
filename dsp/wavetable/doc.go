// Package wavetable synthesizes and plays band-limited wavetables.
//
// A waveform is described by its harmonic spectrum (or one period of
// samples, which is transformed first). FromSpectrum repeatedly inverse
// transforms the spectrum while halving the number of harmonics kept, so
// that each table in the resulting Memory is safe to play up to twice the
// frequency of the previous one. Tables share one normalization gain, which
// keeps the level constant as a Reader switches between them.
//
// Memories are immutable after construction and are shared by every
// oscillator that plays them.
package wavetable

import "github.com/juju/loggo"

var logger = loggo.GetLogger("synth.wavetable")
