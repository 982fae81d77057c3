package wavetable

import (
	"github.com/cwbudde/algo-synth/dsp/interp"
)

// Table is one immutable band-limited cycle.
//
// samples holds Len()+1 values; the last duplicates the first so readers can
// interpolate across the wrap without a modulo.
type Table struct {
	samples   []float64
	topFreq   float64
	harmonics int
}

// Len returns the number of samples in one period.
func (t *Table) Len() int { return len(t.samples) - 1 }

// TopFreq returns the highest fundamental, as a fraction of the sample
// rate, this table can play without audible aliasing.
func (t *Table) TopFreq() float64 { return t.topFreq }

// Harmonics returns the index of the highest harmonic kept in this table.
func (t *Table) Harmonics() int { return t.harmonics }

// Samples returns the period plus the wrap-around sample. The slice is
// shared; callers must not modify it.
func (t *Table) Samples() []float64 { return t.samples }

// At reads the table at phase, measured in cycles. Phase outside [0,1) wraps.
func (t *Table) At(phase float64, mode interp.Mode) float64 {
	return interp.Periodic(t.samples, phase*float64(t.Len()), mode)
}

// Memory is the ordered set of band-limited tables for one waveform,
// ascending by TopFreq. It is read-only once built and may be shared by any
// number of oscillators.
type Memory struct {
	name   string
	tables []*Table
}

// Name returns the waveform name.
func (m *Memory) Name() string { return m.name }

// Len returns the number of tables.
func (m *Memory) Len() int { return len(m.tables) }

// Table returns table i.
func (m *Memory) Table(i int) *Table { return m.tables[i] }

// Index returns the index of the first table whose TopFreq is >= freq,
// or the last table when freq is above every cutoff.
func (m *Memory) Index(freq float64) int {
	if freq < 0 {
		freq = -freq
	}
	for i, t := range m.tables {
		if t.topFreq >= freq {
			return i
		}
	}
	return len(m.tables) - 1
}

// Select returns the table to use for a normalized frequency (Hz / sample rate).
func (m *Memory) Select(freq float64) *Table {
	return m.tables[m.Index(freq)]
}
