package units

import (
	"github.com/cwbudde/algo-synth/dsp/automation"
	"github.com/cwbudde/algo-synth/dsp/graph"
)

const (
	defaultAttack  = 0.005
	defaultDecay   = 0.1
	defaultSustain = 0.7
	defaultRelease = 0.2

	// silentLevel is the level below which a released envelope counts as
	// finished.
	silentLevel = 1e-4
)

// Envelope is an ADSR generator driven by the scheduler. Its output is the
// rendered ParamEnvelope lane, so every stage is sample accurate.
//
// OpenGate ramps linearly from the current level to the peak, then decays
// geometrically to the sustain level. CloseGate decays geometrically to
// silence over the release time.
type Envelope struct {
	*graph.Base

	attack  float64
	decay   float64
	sustain float64
	release float64
	peak    float64

	gate   bool
	active bool
}

// EnvelopeOption configures an Envelope.
type EnvelopeOption func(*Envelope) error

// WithADSR sets attack, decay and release times in seconds and the sustain
// level in [0, 1].
func WithADSR(attack, decay, sustain, release float64) EnvelopeOption {
	return func(e *Envelope) error { return e.SetADSR(attack, decay, sustain, release) }
}

// NewEnvelope creates an envelope on g.
func NewEnvelope(g *graph.Graph, name string, opts ...EnvelopeOption) (*Envelope, error) {
	return create(g, KindEnvelope, name, newEnvelope, opts)
}

func newEnvelope(b *graph.Base) (*Envelope, error) {
	b.Register(graph.ParamEnvelope, 0)
	return &Envelope{
		Base:    b,
		attack:  defaultAttack,
		decay:   defaultDecay,
		sustain: defaultSustain,
		release: defaultRelease,
		peak:    1,
	}, nil
}

// SetADSR changes the stage settings. They apply from the next gate change.
func (e *Envelope) SetADSR(attack, decay, sustain, release float64) error {
	for _, v := range []struct {
		name  string
		value float64
	}{{"attack", attack}, {"decay", decay}, {"release", release}} {
		if err := validateFiniteRange(v.value, 0, 60, v.name); err != nil {
			return err
		}
	}
	if err := validateFiniteRange(sustain, 0, 1, "sustain"); err != nil {
		return err
	}
	e.attack, e.decay, e.sustain, e.release = attack, decay, sustain, release
	return nil
}

// ADSR returns the stage settings.
func (e *Envelope) ADSR() (attack, decay, sustain, release float64) {
	return e.attack, e.decay, e.sustain, e.release
}

// SetPeak scales the attack target, typically by note velocity.
func (e *Envelope) SetPeak(peak float64) error {
	if err := validateFiniteRange(peak, 0, 1, "peak"); err != nil {
		return err
	}
	e.peak = peak
	return nil
}

// Gate reports whether the gate is open.
func (e *Envelope) Gate() bool { return e.gate }

// Active reports whether the envelope is open or still releasing.
func (e *Envelope) Active() bool { return e.gate || e.active }

// OpenGate starts the attack from the current level.
func (e *Envelope) OpenGate() {
	e.gate = true
	e.active = true

	now := e.Now()
	attackEnd := now + e.attack
	if err := e.LinearRamp(graph.ParamEnvelope, e.peak, attackEnd); err != nil {
		logger.Errorf("%s: attack: %v", e.Name(), err)
		return
	}

	sustain := e.sustain * e.peak
	decayEnd := attackEnd + e.decay
	if e.peak > 0 && sustain > 0 {
		if err := e.QueueExponentialRamp(graph.ParamEnvelope, sustain, decayEnd); err != nil {
			logger.Errorf("%s: decay: %v", e.Name(), err)
		}
		return
	}
	if err := e.QueueLinearRamp(graph.ParamEnvelope, sustain, decayEnd); err != nil {
		logger.Errorf("%s: decay: %v", e.Name(), err)
	}
}

// CloseGate starts the release from the current level.
func (e *Envelope) CloseGate() {
	if !e.gate {
		return
	}
	e.gate = false

	now := e.Now()
	end := now + e.release
	err := e.ExponentialRamp(graph.ParamEnvelope, automation.MinExponentialValue, end)
	if err != nil {
		// Already silent: exponential ramps cannot start from zero.
		err = e.LinearRamp(graph.ParamEnvelope, 0, end)
	}
	if err == nil {
		err = e.ScheduleValue(graph.ParamEnvelope, 0, end)
	}
	if err != nil {
		logger.Errorf("%s: release: %v", e.Name(), err)
	}
}

// Process copies the rendered envelope lane to the output.
func (e *Envelope) Process(float64) {
	out := e.Samples()
	level := e.Automation(graph.ParamEnvelope)
	copy(out, level)
	for i := len(level); i < len(out); i++ {
		out[i] = 0
	}

	if !e.gate && len(out) > 0 && out[len(out)-1] < silentLevel && e.Scheduler().Pending(e.ID(), graph.ParamEnvelope) == 0 {
		e.active = false
	}
}
