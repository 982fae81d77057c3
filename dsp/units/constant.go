package units

import "github.com/cwbudde/algo-synth/dsp/graph"

// Constant outputs its scheduled ParamAmplitude value, modulated by any
// ParamAmplitude connections. It serves as a control source: a note
// frequency, a cutoff offset, a bias for an LFO.
type Constant struct {
	*graph.Base
}

// ConstantOption configures a Constant.
type ConstantOption func(*Constant) error

// WithValue sets the initial output value.
func WithValue(v float64) ConstantOption {
	return func(c *Constant) error { return c.SetValue(graph.ParamAmplitude, v) }
}

// NewConstant creates a constant source on g.
func NewConstant(g *graph.Graph, name string, opts ...ConstantOption) (*Constant, error) {
	return create(g, KindConstant, name, newConstant, opts)
}

func newConstant(b *graph.Base) (*Constant, error) {
	b.Register(graph.ParamAmplitude, 0)
	return &Constant{Base: b}, nil
}

// Process renders one block.
func (c *Constant) Process(float64) {
	out := c.Samples()
	v := c.Automation(graph.ParamAmplitude)
	in := c.Inputs(graph.ParamAmplitude)
	for i := range out {
		add, mul := graph.Aggregate(in, i, at(v, i, 0))
		out[i] = add * mul
	}
}
