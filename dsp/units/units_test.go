package units

import (
	"errors"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

func TestRegistryKnowsEveryKind(t *testing.T) {
	c := qt.New(t)
	r := newRig(c)

	kinds := r.graph.Registry().Kinds()
	for _, k := range []string{KindAmp, KindConstant, KindDelay, KindEnvelope, KindFilter, KindMixer, KindOscillator, KindOutput} {
		c.Assert(kinds, qt.Any(qt.Equals), k)
	}

	n, err := r.graph.CreateNode(KindOscillator, "osc")
	c.Assert(err, qt.IsNil)
	osc, ok := n.(*Oscillator)
	c.Assert(ok, qt.IsTrue)
	c.Assert(osc.Waveform(), qt.Equals, wavetable.Saw)

	_, err = NewRegistry(nil)
	c.Assert(err, qt.IsNil)
}

func TestOscillatorRequiresStore(t *testing.T) {
	c := qt.New(t)
	r := newRig(c)
	_, err := NewOscillator(r.graph, "osc", nil)
	c.Assert(err, qt.ErrorMatches, `.*needs a wavetable store`)
}

func TestOscillatorSine(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(64))
	osc, err := NewOscillator(r.graph, "osc", sharedStore(c),
		WithWaveform(wavetable.Sine), WithFrequency(441))
	c.Assert(err, qt.IsNil)

	got := r.collect(c, osc, 4)
	for i, v := range got {
		want := 0.999 * math.Sin(2*math.Pi*441*float64(i)/r.cfg.SampleRate)
		c.Assert(math.Abs(v-want) < 1e-4, qt.IsTrue, qt.Commentf("sample %d: got %g want %g", i, v, want))
	}
}

func TestOscillatorUnknownWaveform(t *testing.T) {
	c := qt.New(t)
	r := newRig(c)
	_, err := NewOscillator(r.graph, "osc", sharedStore(c), WithWaveform("noise"))
	c.Assert(errors.Is(err, wavetable.ErrUnknownWaveform), qt.IsTrue)

	_, err = r.graph.GetNode("osc")
	c.Assert(errors.Is(err, graph.ErrNodeNotFound), qt.IsTrue)
}

func TestOscillatorPitchOctaveMatchesDoubledFrequency(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(32))
	store := sharedStore(c)

	lo, err := NewOscillator(r.graph, "lo", store, WithFrequency(300))
	c.Assert(err, qt.IsNil)
	c.Assert(lo.SetValue(graph.ParamPitch, 12), qt.IsNil)
	hi, err := NewOscillator(r.graph, "hi", store, WithFrequency(600))
	c.Assert(err, qt.IsNil)

	for range 3 {
		r.tick(c)
		for i, v := range lo.Samples() {
			c.Assert(math.Abs(v-hi.At(i)) < 1e-9, qt.IsTrue)
		}
	}
}

func TestOscillatorFrequencyConnection(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(32))
	store := sharedStore(c)

	base, err := NewOscillator(r.graph, "base", store, WithFrequency(100))
	c.Assert(err, qt.IsNil)
	note, err := NewConstant(r.graph, "note", WithValue(2))
	c.Assert(err, qt.IsNil)
	r.connect(c, note, base, graph.ParamFrequency, graph.ModeMultiply, 1)

	ref, err := NewOscillator(r.graph, "ref", store, WithFrequency(200))
	c.Assert(err, qt.IsNil)

	r.tick(c)
	r.tick(c)
	for i, v := range base.Samples() {
		c.Assert(math.Abs(v-ref.At(i)) < 1e-9, qt.IsTrue)
	}
}

func TestOscillatorPhaseReset(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(16))
	osc, err := NewOscillator(r.graph, "osc", sharedStore(c), WithPhaseReset(true), WithFrequency(1000))
	c.Assert(err, qt.IsNil)

	r.tick(c)
	first := osc.At(0)
	r.tick(c)
	c.Assert(osc.At(0), qt.Not(qt.Equals), first)

	osc.OpenGate()
	r.tick(c)
	c.Assert(osc.At(0), qt.Equals, first)
}

func TestOscillatorGlide(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithSampleRate(1000), core.WithBlockSize(10))
	osc, err := NewOscillator(r.graph, "osc", sharedStore(c), WithFrequency(100), WithGlide(0.1))
	c.Assert(err, qt.IsNil)

	c.Assert(osc.SetFrequency(400), qt.IsNil)
	for range 5 {
		r.tick(c)
	}
	mid := r.sched.Value(osc.ID(), graph.ParamFrequency, 0)
	c.Assert(mid > 100 && mid < 400, qt.IsTrue, qt.Commentf("mid = %g", mid))

	for range 10 {
		r.tick(c)
	}
	c.Assert(r.sched.Value(osc.ID(), graph.ParamFrequency, 0), qt.Equals, 400.0)
}

func TestEnvelopeStages(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithSampleRate(1000), core.WithBlockSize(10))
	env, err := NewEnvelope(r.graph, "env", WithADSR(0.01, 0.01, 0.5, 0.01))
	c.Assert(err, qt.IsNil)
	c.Assert(env.Active(), qt.IsFalse)

	env.OpenGate()
	c.Assert(env.Gate(), qt.IsTrue)
	c.Assert(env.Active(), qt.IsTrue)

	// Attack: linear from 0 to 1 over samples 0..10.
	r.tick(c)
	for i, v := range env.Samples() {
		c.Assert(math.Abs(v-float64(i)/10) < 1e-9, qt.IsTrue, qt.Commentf("attack %d: %g", i, v))
	}

	// Decay: geometric from 1 to 0.5 over samples 10..20.
	r.tick(c)
	out := env.Samples()
	c.Assert(out[0], qt.Equals, 1.0)
	c.Assert(math.Abs(out[5]-math.Sqrt(0.5)) < 1e-9, qt.IsTrue, qt.Commentf("decay midpoint %g", out[5]))

	// Sustain.
	r.tick(c)
	for _, v := range env.Samples() {
		c.Assert(math.Abs(v-0.5) < 1e-9, qt.IsTrue)
	}

	env.CloseGate()
	c.Assert(env.Gate(), qt.IsFalse)
	c.Assert(env.Active(), qt.IsTrue)
	r.tick(c)
	out = env.Samples()
	c.Assert(out[0], qt.Equals, 0.5)
	for i := 1; i < len(out); i++ {
		c.Assert(out[i] < out[i-1], qt.IsTrue)
	}

	r.tick(c)
	for _, v := range env.Samples() {
		c.Assert(v, qt.Equals, 0.0)
	}
	c.Assert(env.Active(), qt.IsFalse)
}

func TestEnvelopeRetriggerStartsFromCurrentLevel(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithSampleRate(1000), core.WithBlockSize(10))
	env, err := NewEnvelope(r.graph, "env", WithADSR(0.01, 0.01, 0.5, 0.05))
	c.Assert(err, qt.IsNil)

	env.OpenGate()
	for range 3 {
		r.tick(c)
	}
	env.CloseGate()
	r.tick(c)
	level := env.At(len(env.Samples()) - 1)
	c.Assert(level > 0 && level < 0.5, qt.IsTrue)

	env.OpenGate()
	r.tick(c)
	out := env.Samples()
	c.Assert(math.Abs(out[0]-level) < level, qt.IsTrue, qt.Commentf("retrigger jumped to %g", out[0]))
	for i := 1; i < len(out); i++ {
		c.Assert(out[i] > out[i-1], qt.IsTrue)
	}

	r.tick(c)
	c.Assert(env.At(0), qt.Equals, 1.0)
}

func TestEnvelopeValidation(t *testing.T) {
	c := qt.New(t)
	r := newRig(c)
	_, err := NewEnvelope(r.graph, "env", WithADSR(0.01, 0.01, 1.5, 0.01))
	c.Assert(err, qt.ErrorMatches, `.*sustain must be in.*`)

	env, err := NewEnvelope(r.graph, "env2")
	c.Assert(err, qt.IsNil)
	c.Assert(env.SetADSR(-1, 0, 0, 0), qt.IsNotNil)
	c.Assert(env.SetPeak(math.NaN()), qt.IsNotNil)
	c.Assert(env.SetPeak(0.8), qt.IsNil)

	a, d, s, rel := env.ADSR()
	c.Assert([]float64{a, d, s, rel}, qt.DeepEquals, []float64{defaultAttack, defaultDecay, defaultSustain, defaultRelease})
}

func TestAmpAndEnvelopeModulation(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithSampleRate(1000), core.WithBlockSize(10))

	src, err := NewConstant(r.graph, "src", WithValue(0.5))
	c.Assert(err, qt.IsNil)
	env, err := NewEnvelope(r.graph, "env", WithADSR(0.01, 0, 1, 0.01))
	c.Assert(err, qt.IsNil)
	amp, err := NewAmp(r.graph, "amp", WithGain(2))
	c.Assert(err, qt.IsNil)

	r.connect(c, src, amp, graph.ParamInput, graph.ModeAdd, 1)
	r.tick(c)
	for _, v := range amp.Samples() {
		c.Assert(v, qt.Equals, 1.0)
	}

	r.connect(c, env, amp, graph.ParamGain, graph.ModeMultiply, 1)
	r.tick(c)
	for _, v := range amp.Samples() {
		c.Assert(v, qt.Equals, 0.0)
	}

	env.OpenGate()
	r.tick(c)
	out := amp.Samples()
	for i, v := range out {
		c.Assert(math.Abs(v-float64(i)/10) < 1e-9, qt.IsTrue)
	}

	c.Assert(amp.SetGain(17), qt.IsNotNil)
}

func TestMixerStereo(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(8))

	a, err := NewConstant(r.graph, "a", WithValue(0.25))
	c.Assert(err, qt.IsNil)
	b, err := NewConstant(r.graph, "b", WithValue(0.5))
	c.Assert(err, qt.IsNil)
	left, err := NewOutput(r.graph, "left", WithPan(-1))
	c.Assert(err, qt.IsNil)
	mix, err := NewMixer(r.graph, "mix", WithMasterGain(2))
	c.Assert(err, qt.IsNil)

	r.connect(c, a, mix, graph.ParamInput, graph.ModeAdd, 1)
	r.connect(c, b, left, graph.ParamInput, graph.ModeAdd, 1)
	r.connect(c, left, mix, graph.ParamInput, graph.ModeAdd, 1)
	r.tick(c)

	ch := mix.Channels()
	for i := range ch.Len() {
		c.Assert(ch.Left.At(i), qt.Equals, 1.5)
		c.Assert(ch.Right.At(i), qt.Equals, 0.5)
		c.Assert(mix.At(i), qt.Equals, 1.0)
	}
}

func TestFilterPassesDC(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(64))

	src, err := NewConstant(r.graph, "src", WithValue(0.5))
	c.Assert(err, qt.IsNil)
	f, err := NewFilter(r.graph, "lp", WithCutoff(2000), WithResonance(0))
	c.Assert(err, qt.IsNil)
	r.connect(c, src, f, graph.ParamInput, graph.ModeAdd, 1)

	for range 40 {
		r.tick(c)
	}
	out := f.Samples()
	c.Assert(math.Abs(out[len(out)-1]-0.5) < 1e-3, qt.IsTrue, qt.Commentf("dc = %g", out[len(out)-1]))
}

func TestFilterAttenuatesAboveCutoff(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(128))
	store := sharedStore(c)

	osc, err := NewOscillator(r.graph, "osc", store, WithWaveform(wavetable.Sine), WithFrequency(10000))
	c.Assert(err, qt.IsNil)
	f, err := NewFilter(r.graph, "lp", WithCutoff(200), WithResonance(0))
	c.Assert(err, qt.IsNil)
	r.connect(c, osc, f, graph.ParamInput, graph.ModeAdd, 1)

	for range 20 {
		r.tick(c)
	}
	peak := 0.0
	for range 4 {
		r.tick(c)
		for _, v := range f.Samples() {
			peak = max(peak, math.Abs(v))
		}
	}
	c.Assert(peak < 1e-3, qt.IsTrue, qt.Commentf("peak = %g", peak))
}

func TestFilterCutoffModulation(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(32))

	f, err := NewFilter(r.graph, "lp", WithCutoff(500))
	c.Assert(err, qt.IsNil)
	mod, err := NewConstant(r.graph, "mod", WithValue(1))
	c.Assert(err, qt.IsNil)
	r.connect(c, mod, f, graph.ParamCutoff, graph.ModeAdd, 1500)

	r.tick(c)
	c.Assert(f.cutoff, qt.Equals, 2000.0)

	c.Assert(mod.SetValue(graph.ParamAmplitude, 1e6), qt.IsNil)
	r.tick(c)
	c.Assert(f.cutoff, qt.Equals, maxCutoffRatio*r.cfg.SampleRate)
}

func TestFilterValidation(t *testing.T) {
	c := qt.New(t)
	r := newRig(c)
	f, err := NewFilter(r.graph, "lp")
	c.Assert(err, qt.IsNil)
	c.Assert(f.SetCutoff(5), qt.IsNotNil)
	c.Assert(f.SetCutoff(math.Inf(1)), qt.IsNotNil)
	c.Assert(f.SetResonance(5), qt.IsNotNil)
	c.Assert(f.SetResonance(1), qt.IsNil)

	_, err = NewFilter(r.graph, "lp2", WithDrive(0))
	c.Assert(err, qt.IsNotNil)
}

func TestDelayEchoes(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithSampleRate(1000), core.WithBlockSize(10))

	impulse, err := NewConstant(r.graph, "impulse", WithValue(1))
	c.Assert(err, qt.IsNil)
	c.Assert(impulse.ScheduleValue(graph.ParamAmplitude, 0, 0.001), qt.IsNil)

	d, err := NewDelay(r.graph, "echo", WithDelayTime(0.005), WithFeedback(0.5), WithMix(1))
	c.Assert(err, qt.IsNil)
	c.Assert(math.Abs(d.Time()-0.005) < 1e-15, qt.IsTrue)
	r.connect(c, impulse, d, graph.ParamInput, graph.ModeAdd, 1)

	got := r.collect(c, d, 2)
	want := make([]float64, 20)
	want[5], want[10], want[15] = 1, 0.5, 0.25
	for i := range want {
		c.Assert(math.Abs(got[i]-want[i]) < 1e-12, qt.IsTrue, qt.Commentf("sample %d: got %g", i, got[i]))
	}

	d.Reset()
	r.tick(c)
	for _, v := range d.Samples() {
		c.Assert(v, qt.Equals, 0.0)
	}
}

func TestDelayValidation(t *testing.T) {
	c := qt.New(t)
	r := newRig(c)
	_, err := NewDelay(r.graph, "d", WithFeedback(1))
	c.Assert(err, qt.IsNotNil)
	d, err := NewDelay(r.graph, "d2")
	c.Assert(err, qt.IsNil)
	c.Assert(d.SetTime(MaxDelayTime+1), qt.IsNotNil)
	c.Assert(d.SetTime(0), qt.IsNotNil)
}

func TestOutputPanAndGain(t *testing.T) {
	c := qt.New(t)
	r := newRig(c, core.WithBlockSize(8))

	src, err := NewConstant(r.graph, "src", WithValue(0.5))
	c.Assert(err, qt.IsNil)
	out, err := NewOutput(r.graph, "out", WithOutputGain(2), WithPan(0.5))
	c.Assert(err, qt.IsNil)
	r.connect(c, src, out, graph.ParamInput, graph.ModeAdd, 1)
	c.Assert(r.graph.SetOutput(out), qt.IsNil)

	r.tick(c)
	ch := out.Channels()
	c.Assert(ch.Left.At(0), qt.Equals, 0.5)
	c.Assert(ch.Right.At(0), qt.Equals, 1.0)
	c.Assert(out.At(0), qt.Equals, 0.75)

	c.Assert(out.SetPan(-2), qt.IsNotNil)
}

func TestBalance(t *testing.T) {
	c := qt.New(t)
	for _, tc := range []struct {
		pan, left, right float64
	}{
		{-1, 1, 0},
		{-0.25, 1, 0.75},
		{0, 1, 1},
		{1, 0, 1},
	} {
		l, r := balance(tc.pan)
		c.Assert([]float64{l, r}, qt.DeepEquals, []float64{tc.left, tc.right}, qt.Commentf("pan %g", tc.pan))
	}
}
