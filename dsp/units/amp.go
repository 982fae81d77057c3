package units

import (
	"github.com/cwbudde/algo-synth/dsp/buffer"
	"github.com/cwbudde/algo-synth/dsp/graph"
)

// Amp scales its ParamInput signal by a gain.
//
// The gain is the scheduled ParamGain value combined with ParamGain
// connections, so an envelope connected in ModeMultiply shapes the level.
type Amp struct {
	*graph.Base
}

// AmpOption configures an Amp.
type AmpOption func(*Amp) error

// WithGain sets the scheduled gain.
func WithGain(gain float64) AmpOption {
	return func(a *Amp) error { return a.SetGain(gain) }
}

// NewAmp creates an amplifier on g.
func NewAmp(g *graph.Graph, name string, opts ...AmpOption) (*Amp, error) {
	return create(g, KindAmp, name, newAmp, opts)
}

func newAmp(b *graph.Base) (*Amp, error) {
	b.Register(graph.ParamGain, 1)
	return &Amp{Base: b}, nil
}

// SetGain sets the gain at the scheduler's current position.
func (a *Amp) SetGain(gain float64) error {
	if err := validateFiniteRange(gain, 0, 16, "gain"); err != nil {
		return err
	}
	return a.SetValue(graph.ParamGain, gain)
}

// Process renders one block.
func (a *Amp) Process(float64) {
	out := a.Samples()
	gain := a.Automation(graph.ParamGain)
	in := a.Inputs(graph.ParamInput)
	gainIn := a.Inputs(graph.ParamGain)

	for i := range out {
		x, xm := graph.Aggregate(in, i, 0)
		g, gm := graph.Aggregate(gainIn, i, at(gain, i, 1))
		out[i] = x * xm * g * gm
	}
}

// Mixer sums its ParamInput connections, each weighted by its strength,
// and applies a master gain. Stereo sources keep their channels.
type Mixer struct {
	*graph.Base
	channels *buffer.Stereo
}

// MixerOption configures a Mixer.
type MixerOption func(*Mixer) error

// WithMasterGain sets the scheduled master gain.
func WithMasterGain(gain float64) MixerOption {
	return func(m *Mixer) error {
		if err := validateFiniteRange(gain, 0, 16, "gain"); err != nil {
			return err
		}
		return m.SetValue(graph.ParamGain, gain)
	}
}

// NewMixer creates a mixer on g.
func NewMixer(g *graph.Graph, name string, opts ...MixerOption) (*Mixer, error) {
	return create(g, KindMixer, name, newMixer, opts)
}

func newMixer(b *graph.Base) (*Mixer, error) {
	b.Register(graph.ParamGain, 1)
	return &Mixer{Base: b, channels: b.InitStereo()}, nil
}

// Channels returns the stereo mix.
func (m *Mixer) Channels() *buffer.Stereo { return m.channels }

// Process renders one block.
func (m *Mixer) Process(float64) {
	out := m.Samples()
	left := m.channels.Left.Samples()
	right := m.channels.Right.Samples()
	gain := m.Automation(graph.ParamGain)
	in := m.Inputs(graph.ParamInput)
	gainIn := m.Inputs(graph.ParamGain)

	for i := range out {
		l, r, xm := graph.AggregateStereo(in, i, 0)
		g, gm := graph.Aggregate(gainIn, i, at(gain, i, 1))
		k := xm * g * gm
		left[i] = l * k
		right[i] = r * k
		out[i] = 0.5 * (left[i] + right[i])
	}
}
