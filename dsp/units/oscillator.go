package units

import (
	"errors"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/interp"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

const (
	defaultFrequency = 440.0
	defaultWaveform  = wavetable.Saw
)

// Oscillator plays a band-limited wavetable.
//
// Scheduled parameters: ParamFrequency (Hz), ParamAmplitude and ParamPitch
// (semitones). Connections on ParamFrequency, ParamAmplitude and ParamPitch
// modulate the scheduled values; connections on ParamPhase add a phase
// offset in cycles.
type Oscillator struct {
	*graph.Base

	store  *wavetable.Store
	reader *wavetable.Reader
	glide  float64
	retrig bool
}

// OscillatorOption configures an Oscillator.
type OscillatorOption func(*Oscillator) error

// WithWaveform selects the waveform by store name.
func WithWaveform(name string) OscillatorOption {
	return func(o *Oscillator) error { return o.SetWaveform(name) }
}

// WithInterpolation selects linear or cubic table reads.
func WithInterpolation(mode interp.Mode) OscillatorOption {
	return func(o *Oscillator) error {
		o.reader = wavetable.NewReader(o.reader.Memory(), mode)
		return nil
	}
}

// WithFrequency sets the initial frequency in Hz.
func WithFrequency(hz float64) OscillatorOption {
	return func(o *Oscillator) error {
		if err := validateFiniteRange(hz, 0, o.SampleRate()/2, "frequency"); err != nil {
			return err
		}
		return o.SetValue(graph.ParamFrequency, hz)
	}
}

// WithGlide sets the portamento time in seconds used by SetFrequency.
func WithGlide(seconds float64) OscillatorOption {
	return func(o *Oscillator) error {
		if err := validateFiniteRange(seconds, 0, 10, "glide"); err != nil {
			return err
		}
		o.glide = seconds
		return nil
	}
}

// WithPhaseReset makes OpenGate restart the waveform at phase zero.
func WithPhaseReset(enabled bool) OscillatorOption {
	return func(o *Oscillator) error {
		o.retrig = enabled
		return nil
	}
}

// NewOscillator creates an oscillator on g playing tables from store.
func NewOscillator(g *graph.Graph, name string, store *wavetable.Store, opts ...OscillatorOption) (*Oscillator, error) {
	return create(g, KindOscillator, name, func(b *graph.Base) (*Oscillator, error) {
		return newOscillator(b, store)
	}, opts)
}

func newOscillator(b *graph.Base, store *wavetable.Store) (*Oscillator, error) {
	if store == nil {
		return nil, errors.New("units: oscillator needs a wavetable store")
	}
	mem, err := store.Get(defaultWaveform)
	if err != nil {
		return nil, err
	}

	b.Register(graph.ParamFrequency, defaultFrequency)
	b.Register(graph.ParamAmplitude, 1)
	b.Register(graph.ParamPitch, 0)

	return &Oscillator{
		Base:   b,
		store:  store,
		reader: wavetable.NewReader(mem, interp.ModeCubic),
	}, nil
}

// Waveform returns the name of the waveform being played.
func (o *Oscillator) Waveform() string { return o.reader.Memory().Name() }

// SetWaveform switches to another waveform of the store. Unknown names
// return wavetable.ErrUnknownWaveform.
func (o *Oscillator) SetWaveform(name string) error {
	mem, err := o.store.Get(name)
	if err != nil {
		return err
	}
	o.reader.SetMemory(mem)
	return nil
}

// SetFrequency moves to hz, gliding geometrically when a glide time is set.
func (o *Oscillator) SetFrequency(hz float64) error {
	if o.glide > 0 && hz > 0 {
		err := o.ExponentialRamp(graph.ParamFrequency, hz, o.Now()+o.glide)
		if err == nil {
			return nil
		}
		// A glide from 0 Hz is undefined; jump instead.
		logger.Tracef("%s: glide rejected, setting directly: %v", o.Name(), err)
	}
	return o.SetValue(graph.ParamFrequency, hz)
}

// OpenGate restarts the phase if phase reset is enabled.
func (o *Oscillator) OpenGate() {
	if o.retrig {
		o.reader.Reset()
	}
}

// Process renders one block.
func (o *Oscillator) Process(increment float64) {
	out := o.Samples()
	freq := o.Automation(graph.ParamFrequency)
	amp := o.Automation(graph.ParamAmplitude)
	pitch := o.Automation(graph.ParamPitch)

	freqIn := o.Inputs(graph.ParamFrequency)
	ampIn := o.Inputs(graph.ParamAmplitude)
	pitchIn := o.Inputs(graph.ParamPitch)
	phaseIn := o.Inputs(graph.ParamPhase)

	for i := range out {
		fAdd, fMul := graph.Aggregate(freqIn, i, at(freq, i, defaultFrequency))
		hz := fAdd * fMul

		if semis, _ := graph.Aggregate(pitchIn, i, at(pitch, i, 0)); semis != 0 {
			hz *= core.SemitonesToRatio(semis)
		}

		var offset float64
		if len(phaseIn) > 0 {
			offset, _ = graph.Aggregate(phaseIn, i, 0)
		}

		aAdd, aMul := graph.Aggregate(ampIn, i, at(amp, i, 1))
		out[i] = o.reader.NextPM(hz*increment, offset) * aAdd * aMul
	}
}
