package units

import (
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/delay"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/interp"
)

const (
	defaultDelayTime = 0.25
	defaultFeedback  = 0.3
	defaultMix       = 0.3

	// MaxDelayTime is the longest delay a Delay node can hold, in seconds.
	MaxDelayTime = 2.0
	maxFeedback  = 0.98
)

// Delay is a feedback echo. ParamFeedback and ParamMix are scheduled and
// modulatable. The delay time is a node setting and is read with cubic
// interpolation.
type Delay struct {
	*graph.Base
	line  *delay.Line
	delay float64
}

// DelayOption configures a Delay.
type DelayOption func(*Delay) error

// WithDelayTime sets the delay time in seconds.
func WithDelayTime(seconds float64) DelayOption {
	return func(d *Delay) error { return d.SetTime(seconds) }
}

// WithFeedback sets the initial feedback amount in [0, 0.98].
func WithFeedback(fb float64) DelayOption {
	return func(d *Delay) error {
		if err := validateFiniteRange(fb, 0, maxFeedback, "feedback"); err != nil {
			return err
		}
		return d.SetValue(graph.ParamFeedback, fb)
	}
}

// WithMix sets the initial wet/dry mix in [0, 1].
func WithMix(mix float64) DelayOption {
	return func(d *Delay) error {
		if err := validateFiniteRange(mix, 0, 1, "mix"); err != nil {
			return err
		}
		return d.SetValue(graph.ParamMix, mix)
	}
}

// NewDelay creates a feedback delay on g.
func NewDelay(g *graph.Graph, name string, opts ...DelayOption) (*Delay, error) {
	return create(g, KindDelay, name, newDelay, opts)
}

func newDelay(b *graph.Base) (*Delay, error) {
	size := int(math.Ceil(MaxDelayTime*b.SampleRate())) + 4
	line, err := delay.New(size, interp.ModeCubic)
	if err != nil {
		return nil, err
	}
	b.Register(graph.ParamFeedback, defaultFeedback)
	b.Register(graph.ParamMix, defaultMix)
	return &Delay{Base: b, line: line, delay: defaultDelayTime * b.SampleRate()}, nil
}

// Time returns the delay time in seconds.
func (d *Delay) Time() float64 { return d.delay / d.SampleRate() }

// SetTime sets the delay time in seconds.
func (d *Delay) SetTime(seconds float64) error {
	minTime := 1 / d.SampleRate()
	if err := validateFiniteRange(seconds, minTime, MaxDelayTime, "delay time"); err != nil {
		return err
	}
	d.delay = seconds * d.SampleRate()
	return nil
}

// Reset clears the delay line.
func (d *Delay) Reset() { d.line.Reset() }

// Process renders one block.
func (d *Delay) Process(float64) {
	out := d.Samples()
	fb := d.Automation(graph.ParamFeedback)
	mix := d.Automation(graph.ParamMix)
	in := d.Inputs(graph.ParamInput)
	fbIn := d.Inputs(graph.ParamFeedback)
	mixIn := d.Inputs(graph.ParamMix)

	for i := range out {
		x, xm := graph.Aggregate(in, i, 0)
		fa, fm := graph.Aggregate(fbIn, i, at(fb, i, defaultFeedback))
		ma, mm := graph.Aggregate(mixIn, i, at(mix, i, defaultMix))
		dry := x * xm
		g := core.Clamp(fa*fm, 0, maxFeedback)
		m := core.Clamp(ma*mm, 0, 1)

		wet := d.line.ReadFractional(d.delay)
		d.line.Write(dry + g*wet)
		out[i] = core.Sanitize(dry*(1-m) + wet*m)
	}
}
