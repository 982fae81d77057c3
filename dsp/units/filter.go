package units

import (
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
)

const (
	defaultCutoff    = 2000.0
	defaultResonance = 0.5
	defaultDrive     = 1.0

	minCutoff      = 20.0
	maxCutoffRatio = 0.45
	maxResonance   = 4.0
	thermalVoltage = 5.0
	stageLimit     = 32.0
)

// Filter is a four-stage nonlinear ladder low-pass with Huovilainen tuning
// and resonance compensation.
//
// ParamCutoff (Hz) and ParamResonance (0 to 4) are scheduled and may be
// modulated by connections. Coefficients are recomputed only when the
// effective values change.
type Filter struct {
	*graph.Base

	driveScale float64

	stage      [4]float64
	prevOutput float64

	cutoff      float64
	resonance   float64
	coefficient float64
	feedback    float64
	outputScale float64
}

// FilterOption configures a Filter.
type FilterOption func(*Filter) error

// WithCutoff sets the initial cutoff in Hz.
func WithCutoff(hz float64) FilterOption {
	return func(f *Filter) error { return f.SetCutoff(hz) }
}

// WithResonance sets the initial resonance in [0, 4].
func WithResonance(r float64) FilterOption {
	return func(f *Filter) error { return f.SetResonance(r) }
}

// WithDrive sets the input drive in [0.1, 24].
func WithDrive(drive float64) FilterOption {
	return func(f *Filter) error {
		if err := validateFiniteRange(drive, 0.1, 24, "drive"); err != nil {
			return err
		}
		f.driveScale = 0.5 * drive / thermalVoltage
		return nil
	}
}

// NewFilter creates a ladder filter on g.
func NewFilter(g *graph.Graph, name string, opts ...FilterOption) (*Filter, error) {
	return create(g, KindFilter, name, newFilter, opts)
}

func newFilter(b *graph.Base) (*Filter, error) {
	b.Register(graph.ParamCutoff, defaultCutoff)
	b.Register(graph.ParamResonance, defaultResonance)
	f := &Filter{Base: b, driveScale: 0.5 * defaultDrive / thermalVoltage}
	f.updateCoefficients(defaultCutoff, defaultResonance)
	return f, nil
}

// SetCutoff sets the cutoff in Hz at the scheduler's current position.
func (f *Filter) SetCutoff(hz float64) error {
	if err := validateFiniteRange(hz, minCutoff, f.maxCutoff(), "cutoff"); err != nil {
		return err
	}
	return f.SetValue(graph.ParamCutoff, hz)
}

// SetResonance sets the resonance at the scheduler's current position.
func (f *Filter) SetResonance(r float64) error {
	if err := validateFiniteRange(r, 0, maxResonance, "resonance"); err != nil {
		return err
	}
	return f.SetValue(graph.ParamResonance, r)
}

// Reset clears the ladder state.
func (f *Filter) Reset() {
	f.stage = [4]float64{}
	f.prevOutput = 0
}

func (f *Filter) maxCutoff() float64 { return maxCutoffRatio * f.SampleRate() }

func (f *Filter) updateCoefficients(cutoff, resonance float64) {
	f.cutoff, f.resonance = cutoff, resonance

	fc := cutoff / f.SampleRate()
	fcr := max(0, 1.8730*fc*fc*fc+0.4955*fc*fc-0.6490*fc+0.9988)
	f.coefficient = 2 * thermalVoltage * (1 - math.Exp(-2*math.Pi*fcr*fc))

	comp := max(0, -3.9364*fc*fc+1.8409*fc+0.9968)
	f.feedback = resonance * comp

	gain := core.DBToLinear(resonance)
	f.outputScale = gain * gain / (1 + 0.5*resonance)
}

// Process renders one block.
func (f *Filter) Process(float64) {
	out := f.Samples()
	cutoff := f.Automation(graph.ParamCutoff)
	res := f.Automation(graph.ParamResonance)
	in := f.Inputs(graph.ParamInput)
	cutoffIn := f.Inputs(graph.ParamCutoff)
	resIn := f.Inputs(graph.ParamResonance)
	hi := f.maxCutoff()

	for i := range out {
		ca, cm := graph.Aggregate(cutoffIn, i, at(cutoff, i, defaultCutoff))
		ra, rm := graph.Aggregate(resIn, i, at(res, i, defaultResonance))
		c := core.Clamp(ca*cm, minCutoff, hi)
		r := core.Clamp(ra*rm, 0, maxResonance)
		if c != f.cutoff || r != f.resonance {
			f.updateCoefficients(c, r)
		}

		x, xm := graph.Aggregate(in, i, 0)
		out[i] = core.Sanitize(f.tick(x * xm))
	}
}

func (f *Filter) tick(input float64) float64 {
	s := &f.stage
	shape := f.driveScale

	fb := 0.5 * (s[3] + f.prevOutput)
	t0 := math.Tanh(shape * (input - f.feedback*fb))
	t1 := math.Tanh(shape * s[0])
	t2 := math.Tanh(shape * s[1])
	t3 := math.Tanh(shape * s[2])
	t4 := math.Tanh(shape * s[3])

	g := f.coefficient
	s[0] = clipStage(s[0] + g*(t0-t1))
	s[1] = clipStage(s[1] + g*(math.Tanh(shape*s[0])-t2))
	s[2] = clipStage(s[2] + g*(math.Tanh(shape*s[1])-t3))
	s[3] = clipStage(s[3] + g*(math.Tanh(shape*s[2])-t4))
	f.prevOutput = s[3]

	return f.outputScale * s[3]
}

func clipStage(x float64) float64 {
	return core.FlushDenormals(core.Clamp(x, -stageLimit, stageLimit))
}
