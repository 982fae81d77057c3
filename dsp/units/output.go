package units

import (
	"github.com/cwbudde/algo-synth/dsp/buffer"
	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
)

// Output is the terminal stereo stage of a graph. It sums ParamInput,
// applies ParamGain and a balance-law ParamPan in [-1, 1], and replaces
// non-finite samples with silence.
type Output struct {
	*graph.Base
	channels *buffer.Stereo
}

// OutputOption configures an Output.
type OutputOption func(*Output) error

// WithOutputGain sets the initial output gain.
func WithOutputGain(gain float64) OutputOption {
	return func(o *Output) error { return o.SetGain(gain) }
}

// WithPan sets the initial pan position.
func WithPan(pan float64) OutputOption {
	return func(o *Output) error { return o.SetPan(pan) }
}

// NewOutput creates an output stage on g.
func NewOutput(g *graph.Graph, name string, opts ...OutputOption) (*Output, error) {
	return create(g, KindOutput, name, newOutput, opts)
}

func newOutput(b *graph.Base) (*Output, error) {
	b.Register(graph.ParamGain, 1)
	b.Register(graph.ParamPan, 0)
	return &Output{Base: b, channels: b.InitStereo()}, nil
}

// Channels returns the rendered stereo block.
func (o *Output) Channels() *buffer.Stereo { return o.channels }

// SetGain sets the gain at the scheduler's current position.
func (o *Output) SetGain(gain float64) error {
	if err := validateFiniteRange(gain, 0, 16, "gain"); err != nil {
		return err
	}
	return o.SetValue(graph.ParamGain, gain)
}

// SetPan sets the pan position at the scheduler's current position.
func (o *Output) SetPan(pan float64) error {
	if err := validateFiniteRange(pan, -1, 1, "pan"); err != nil {
		return err
	}
	return o.SetValue(graph.ParamPan, pan)
}

// Process renders one block.
func (o *Output) Process(float64) {
	out := o.Samples()
	left := o.channels.Left.Samples()
	right := o.channels.Right.Samples()
	gain := o.Automation(graph.ParamGain)
	pan := o.Automation(graph.ParamPan)
	in := o.Inputs(graph.ParamInput)
	gainIn := o.Inputs(graph.ParamGain)
	panIn := o.Inputs(graph.ParamPan)

	for i := range out {
		l, r, xm := graph.AggregateStereo(in, i, 0)
		g, gm := graph.Aggregate(gainIn, i, at(gain, i, 1))
		p, pm := graph.Aggregate(panIn, i, at(pan, i, 0))
		gl, gr := balance(core.Clamp(p*pm, -1, 1))
		k := xm * g * gm

		left[i] = core.Sanitize(l * k * gl)
		right[i] = core.Sanitize(r * k * gr)
		out[i] = 0.5 * (left[i] + right[i])
	}
}

// balance returns unity gain on both sides at the centre and attenuates
// the opposite side linearly towards the edges.
func balance(pan float64) (left, right float64) {
	if pan < 0 {
		return 1, 1 + pan
	}
	return 1 - pan, 1
}
