package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/units"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

// ErrIncompletePatch is returned when a patch does not provide the ports
// a voice needs.
var ErrIncompletePatch = errors.New("synth: incomplete patch")

// Ports are the nodes of a voice the engine drives from note and
// controller input.
type Ports struct {
	// Oscillators follow the played note.
	Oscillators []*units.Oscillator
	// Envelope is opened by note on and scaled by velocity. The voice is
	// free once it has finished releasing.
	Envelope *units.Envelope
	// Filter, when set, follows the brightness controller.
	Filter *units.Filter
	// Vibrato, when set, is an LFO whose amplitude is the modulation depth
	// in semitones.
	Vibrato *units.Oscillator
	// Output is the node the engine mixes.
	Output *units.Output
	// Tail keeps the voice rendering for this many seconds after the
	// envelope has finished, for echoes and reverbs.
	Tail float64
}

func (p Ports) validate() error {
	switch {
	case p.Output == nil:
		return fmt.Errorf("%w: no output", ErrIncompletePatch)
	case p.Envelope == nil:
		return fmt.Errorf("%w: no envelope", ErrIncompletePatch)
	case len(p.Oscillators) == 0:
		return fmt.Errorf("%w: no oscillators", ErrIncompletePatch)
	case p.Tail < 0 || math.IsNaN(p.Tail):
		return fmt.Errorf("%w: negative tail %g", ErrIncompletePatch, p.Tail)
	}
	return nil
}

// Patch builds one voice on an empty graph and reports its ports.
type Patch func(g *graph.Graph, store *wavetable.Store) (Ports, error)

// Default patch settings.
const (
	DefaultCutoff      = 1200.0
	DefaultVibratoRate = 5.5
	filterEnvDepth     = 3000.0
	detuneSemitones    = 0.07
)

type link struct {
	src, dst graph.Node
	param    graph.Param
	mode     graph.Mode
	strength float64
}

func connectAll(g *graph.Graph, links []link) error {
	for _, l := range links {
		if err := g.Connect(l.src, l.dst, l.param, l.mode, l.strength); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPatch is a two-oscillator subtractive voice: a saw and a slightly
// detuned square through the ladder filter, one ADSR shaping both the
// amplitude and the cutoff, and a sine LFO for vibrato.
func DefaultPatch(g *graph.Graph, store *wavetable.Store) (Ports, error) {
	saw, err := units.NewOscillator(g, "osc1", store, units.WithWaveform(wavetable.Saw))
	if err != nil {
		return Ports{}, err
	}
	square, err := units.NewOscillator(g, "osc2", store, units.WithWaveform(wavetable.Square))
	if err != nil {
		return Ports{}, err
	}
	if err := square.SetValue(graph.ParamPitch, detuneSemitones); err != nil {
		return Ports{}, err
	}

	lfo, err := units.NewOscillator(g, "vibrato", store,
		units.WithWaveform(wavetable.Sine), units.WithFrequency(DefaultVibratoRate))
	if err != nil {
		return Ports{}, err
	}
	if err := lfo.SetValue(graph.ParamAmplitude, 0); err != nil {
		return Ports{}, err
	}

	env, err := units.NewEnvelope(g, "env", units.WithADSR(0.005, 0.25, 0.6, 0.3))
	if err != nil {
		return Ports{}, err
	}
	filter, err := units.NewFilter(g, "filter", units.WithCutoff(DefaultCutoff), units.WithResonance(0.6))
	if err != nil {
		return Ports{}, err
	}
	amp, err := units.NewAmp(g, "amp")
	if err != nil {
		return Ports{}, err
	}
	out, err := units.NewOutput(g, "out")
	if err != nil {
		return Ports{}, err
	}

	err = connectAll(g, []link{
		{lfo, saw, graph.ParamPitch, graph.ModeAdd, 1},
		{lfo, square, graph.ParamPitch, graph.ModeAdd, 1},
		{saw, filter, graph.ParamInput, graph.ModeAdd, 0.5},
		{square, filter, graph.ParamInput, graph.ModeAdd, 0.35},
		{env, filter, graph.ParamCutoff, graph.ModeAdd, filterEnvDepth},
		{filter, amp, graph.ParamInput, graph.ModeAdd, 1},
		{env, amp, graph.ParamGain, graph.ModeMultiply, 1},
		{amp, out, graph.ParamInput, graph.ModeAdd, 1},
	})
	if err != nil {
		return Ports{}, err
	}
	if err := g.SetOutput(out); err != nil {
		return Ports{}, err
	}

	return Ports{
		Oscillators: []*units.Oscillator{saw, square},
		Envelope:    env,
		Filter:      filter,
		Vibrato:     lfo,
		Output:      out,
	}, nil
}

// WithEcho wraps p with a feedback delay inserted in front of its output
// node. The voice tail grows by the time the echoes need to fall 60 dB.
func WithEcho(p Patch, seconds, feedback, mix float64) Patch {
	return func(g *graph.Graph, store *wavetable.Store) (Ports, error) {
		ports, err := p(g, store)
		if err != nil {
			return ports, err
		}
		if ports.Output == nil {
			return ports, fmt.Errorf("%w: no output", ErrIncompletePatch)
		}

		echo, err := units.NewDelay(g, "echo",
			units.WithDelayTime(seconds), units.WithFeedback(feedback), units.WithMix(mix))
		if err != nil {
			return ports, err
		}

		var out graph.Node = ports.Output
		for _, l := range g.Links() {
			if l.Destination != out || l.Param != graph.ParamInput {
				continue
			}
			if err := g.Disconnect(l.Source, out, graph.ParamInput); err != nil {
				return ports, err
			}
			if err := g.Connect(l.Source, echo, graph.ParamInput, l.Mode, l.Strength); err != nil {
				return ports, err
			}
		}
		if err := g.Connect(echo, out, graph.ParamInput, graph.ModeAdd, 1); err != nil {
			return ports, err
		}

		ports.Tail += echoTail(seconds, feedback)
		return ports, nil
	}
}

// echoTail returns the time until the echoes of a delay with the given
// feedback have decayed by 60 dB.
func echoTail(seconds, feedback float64) float64 {
	if feedback <= 0 {
		return seconds
	}
	repeats := math.Ceil(math.Log(1e-3) / math.Log(feedback))
	return seconds * (repeats + 1)
}
