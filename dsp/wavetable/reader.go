package wavetable

import (
	"math"

	"github.com/cwbudde/algo-synth/dsp/interp"
)

// Reader plays a Memory with a phase accumulator. The band-limited table is
// re-selected only when the frequency changes.
type Reader struct {
	mem   *Memory
	mode  interp.Mode
	table *Table
	freq  float64
	phase float64
}

// NewReader returns a reader positioned at phase zero.
func NewReader(mem *Memory, mode interp.Mode) *Reader {
	return &Reader{mem: mem, mode: mode, table: mem.tables[0]}
}

// Memory returns the table set being played.
func (r *Reader) Memory() *Memory { return r.mem }

// SetMemory switches waveform, keeping the phase.
func (r *Reader) SetMemory(mem *Memory) {
	r.mem = mem
	r.table = mem.Select(r.freq)
}

// Table returns the table chosen for the last frequency.
func (r *Reader) Table() *Table { return r.table }

// Phase returns the current phase in cycles, in [0, 1).
func (r *Reader) Phase() float64 { return r.phase }

// SetPhase moves the accumulator. Values outside [0, 1) wrap.
func (r *Reader) SetPhase(phase float64) { r.phase = wrap(phase) }

// Reset returns the accumulator to phase zero.
func (r *Reader) Reset() { r.phase = 0 }

// Next returns the sample at the current phase and advances by freq, the
// frequency divided by the sample rate.
func (r *Reader) Next(freq float64) float64 {
	return r.NextPM(freq, 0)
}

// NextPM is Next with a phase offset in cycles added to the read position
// only.
func (r *Reader) NextPM(freq, offset float64) float64 {
	if freq != r.freq {
		r.freq = freq
		r.table = r.mem.Select(freq)
	}

	pos := r.phase
	if offset != 0 {
		pos = wrap(pos + offset)
	}
	v := r.table.At(pos, r.mode)

	r.phase += freq
	if r.phase >= 1 || r.phase < 0 {
		r.phase = wrap(r.phase)
	}
	return v
}

func wrap(p float64) float64 {
	p -= math.Floor(p)
	if p >= 1 {
		p = 0
	}
	return p
}
