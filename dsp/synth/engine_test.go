package synth

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/units"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

func TestContextReset(t *testing.T) {
	c := qt.New(t)
	ctx := newTestContext(c, core.WithOversampling(2))
	c.Assert(ctx.Scheduler().BlockSize(), qt.Equals, 2*testBlock)
	c.Assert(ctx.Scheduler().SampleRate(), qt.Equals, 2.0*testRate)

	ctx.Scheduler().Process()
	c.Assert(ctx.Reset(core.WithBlockSize(64)), qt.IsNil)
	c.Assert(ctx.Config().BlockSize, qt.Equals, 64)
	c.Assert(ctx.Config().Oversampling, qt.Equals, 2)
	c.Assert(ctx.Scheduler().BlockSize(), qt.Equals, 128)
	c.Assert(ctx.Scheduler().CurrentSample(), qt.Equals, int64(0))
}

func TestNewContextBuildsStandardStore(t *testing.T) {
	c := qt.New(t)
	ctx, err := NewContext(nil)
	c.Assert(err, qt.IsNil)
	_, err = ctx.Store().Get(wavetable.Saw)
	c.Assert(err, qt.IsNil)
	c.Assert(ctx.Config(), qt.DeepEquals, core.DefaultProcessorConfig())
}

func TestNoteLifecycle(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(2))
	c.Assert(e.ActiveVoices(), qt.Equals, 0)

	processBlocks(c, e, 2)
	c.Assert(peak(e.Mix().Left.Samples()), qt.Equals, 0.0)

	c.Assert(e.NoteOn(69, 100), qt.IsNil)
	c.Assert(e.ActiveVoices(), qt.Equals, 1)
	processBlocks(c, e, 10)
	c.Assert(peak(e.Mix().Left.Samples()) > 1e-3, qt.IsTrue)
	c.Assert(peak(e.Mix().Right.Samples()) > 1e-3, qt.IsTrue)

	c.Assert(e.NoteOff(69), qt.IsNil)
	c.Assert(e.Voices()[0].Gate(), qt.IsFalse)
	c.Assert(e.ActiveVoices(), qt.Equals, 1)

	// Release is 0.3 s: 75 blocks at 8 kHz.
	processBlocks(c, e, 100)
	c.Assert(e.ActiveVoices(), qt.Equals, 0)
	c.Assert(notes(e), qt.DeepEquals, []int{-1, -1})

	processBlocks(c, e, 1)
	c.Assert(peak(e.Mix().Left.Samples()), qt.Equals, 0.0)
}

func TestVoiceAllocation(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(2))

	c.Assert(e.NoteOn(60, 100), qt.IsNil)
	c.Assert(e.NoteOn(62, 100), qt.IsNil)
	c.Assert(notes(e), qt.DeepEquals, []int{60, 62})

	// Retrigger keeps the voice.
	c.Assert(e.NoteOn(62, 80), qt.IsNil)
	c.Assert(notes(e), qt.DeepEquals, []int{60, 62})

	// No free voice: the oldest note is stolen.
	c.Assert(e.NoteOn(64, 100), qt.IsNil)
	c.Assert(notes(e), qt.DeepEquals, []int{64, 62})
	c.Assert(e.NoteOn(65, 100), qt.IsNil)
	c.Assert(notes(e), qt.DeepEquals, []int{64, 65})

	processBlocks(c, e, 4)
	c.Assert(e.ActiveVoices(), qt.Equals, 2)
}

func TestNoteValidation(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(1))

	c.Assert(e.NoteOn(128, 1), qt.ErrorIs, ErrInvalidNote)
	c.Assert(e.NoteOn(60, -1), qt.ErrorIs, ErrInvalidVelocity)
	c.Assert(e.NoteOff(-1), qt.ErrorIs, ErrInvalidNote)

	c.Assert(e.NoteOn(60, 90), qt.IsNil)
	c.Assert(e.Voices()[0].Gate(), qt.IsTrue)
	c.Assert(e.NoteOn(60, 0), qt.IsNil)
	c.Assert(e.Voices()[0].Gate(), qt.IsFalse)
}

func TestAllNotesOff(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(4))
	for _, n := range []int{60, 64, 67} {
		c.Assert(e.NoteOn(n, 100), qt.IsNil)
	}
	processBlocks(c, e, 2)

	e.AllNotesOff()
	for _, v := range e.Voices() {
		c.Assert(v.Gate(), qt.IsFalse)
	}
	processBlocks(c, e, 100)
	c.Assert(e.ActiveVoices(), qt.Equals, 0)
}

func TestEngineOptions(t *testing.T) {
	c := qt.New(t)
	ctx := newTestContext(c)

	_, err := NewEngine(nil)
	c.Assert(err, qt.IsNotNil)
	_, err = NewEngine(ctx, WithVoices(0))
	c.Assert(err, qt.ErrorMatches, `synth: voices must be in.*`)
	_, err = NewEngine(ctx, WithGain(math.NaN()))
	c.Assert(err, qt.IsNotNil)
	_, err = NewEngine(ctx, WithPatch(nil))
	c.Assert(err, qt.IsNotNil)

	empty := func(*graph.Graph, *wavetable.Store) (Ports, error) { return Ports{}, nil }
	_, err = NewEngine(ctx, WithPatch(empty))
	c.Assert(err, qt.ErrorIs, ErrIncompletePatch)
}

func TestFailedPatchUnregistersNodes(t *testing.T) {
	c := qt.New(t)
	ctx := newTestContext(c)

	var env *units.Envelope
	broken := func(g *graph.Graph, store *wavetable.Store) (Ports, error) {
		ports, err := DefaultPatch(g, store)
		env = ports.Envelope
		ports.Oscillators = nil
		return ports, err
	}
	_, err := NewEngine(ctx, WithVoices(1), WithPatch(broken))
	c.Assert(err, qt.ErrorIs, ErrIncompletePatch)
	c.Assert(env, qt.IsNotNil)
	c.Assert(ctx.Scheduler().Registered(env.ID(), graph.ParamEnvelope), qt.IsFalse)
}

func TestControllers(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(2))
	sched := e.Context().Scheduler()
	ports := e.Voices()[1].Ports()

	c.Assert(e.HandleMIDI(midi.ControlChange(0, CCBrightness, 127)), qt.IsNil)
	c.Assert(e.HandleMIDI(midi.ControlChange(0, CCModWheel, 127)), qt.IsNil)
	processBlocks(c, e, 1)
	c.Assert(sched.Value(ports.Filter.ID(), graph.ParamCutoff, 0), qt.Equals, 0.45*testRate)
	c.Assert(sched.Value(ports.Vibrato.ID(), graph.ParamAmplitude, 0), qt.Equals, MaxVibrato)

	c.Assert(e.SetVibrato(-1), qt.IsNotNil)
	c.Assert(e.SetCutoff(1), qt.IsNotNil)
}

func TestHandleMIDINotes(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(2))

	c.Assert(e.HandleMIDI(midi.NoteOn(3, 60, 100)), qt.IsNil)
	c.Assert(e.HandleMIDI(midi.NoteOn(3, 67, 100)), qt.IsNil)
	c.Assert(notes(e), qt.DeepEquals, []int{60, 67})

	c.Assert(e.HandleMIDI(midi.NoteOff(3, 60)), qt.IsNil)
	c.Assert(e.Voices()[0].Gate(), qt.IsFalse)
	c.Assert(e.Voices()[1].Gate(), qt.IsTrue)

	c.Assert(e.HandleMIDI(midi.ControlChange(0, CCAllNotesOff, 0)), qt.IsNil)
	c.Assert(e.Voices()[1].Gate(), qt.IsFalse)

	c.Assert(e.HandleMIDI(midi.ProgramChange(0, 5)), qt.IsNil)
}

func TestCCCutoff(t *testing.T) {
	c := qt.New(t)
	c.Assert(ccCutoff(0, 8000), qt.Equals, 20.0)
	c.Assert(ccCutoff(127, 8000), qt.Equals, 3600.0)
	c.Assert(ccCutoff(127, 96000), qt.Equals, 18000.0)
	c.Assert(ccCutoff(64, 96000) < 18000, qt.IsTrue)
}

func TestRenderDecimates(t *testing.T) {
	c := qt.New(t)
	ctx := newTestContext(c, core.WithOversampling(2), core.WithBlockSize(16))
	e, err := NewEngine(ctx, WithVoices(2))
	c.Assert(err, qt.IsNil)
	c.Assert(e.NoteOn(57, 127), qt.IsNil)

	dst := make([]float32, 2*40+1)
	n, err := e.Render(dst)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 40)
	// 40 device frames need three blocks of 16.
	c.Assert(ctx.Scheduler().CurrentSample(), qt.Equals, int64(3*32))

	loud := false
	for _, s := range dst[:80] {
		c.Assert(math.IsNaN(float64(s)) || math.IsInf(float64(s), 0), qt.IsFalse)
		loud = loud || math.Abs(float64(s)) > 1e-3
	}
	c.Assert(loud, qt.IsTrue)

	// The remaining 8 frames of the third block are served without
	// rendering.
	n, err = e.Render(dst[:16])
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 8)
	c.Assert(ctx.Scheduler().CurrentSample(), qt.Equals, int64(3*32))
}

func TestStreamReader(t *testing.T) {
	c := qt.New(t)
	a := newTestEngine(c, WithVoices(1))
	b := newTestEngine(c, WithVoices(1))
	c.Assert(a.NoteOn(60, 100), qt.IsNil)
	c.Assert(b.NoteOn(60, 100), qt.IsNil)

	r := NewStreamReader(a)
	p := make([]byte, 100*frameBytes+3)
	n, err := r.Read(p)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 100*frameBytes)

	want := make([]float32, 200)
	_, err = b.Render(want)
	c.Assert(err, qt.IsNil)
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
		c.Assert(got, qt.Equals, w, qt.Commentf("sample %d", i))
	}

	_, err = r.Read(make([]byte, 7))
	c.Assert(errors.Is(err, io.ErrShortBuffer), qt.IsTrue)
}

func TestEngineReset(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(2))
	sched := e.Context().Scheduler()
	old := e.Voices()[0].Ports().Envelope
	c.Assert(e.SetVibrato(0.25), qt.IsNil)
	c.Assert(e.NoteOn(60, 100), qt.IsNil)
	processBlocks(c, e, 3)

	c.Assert(e.Reset(core.WithBlockSize(64)), qt.IsNil)
	c.Assert(e.ActiveVoices(), qt.Equals, 0)
	c.Assert(e.Mix().Len(), qt.Equals, 64)
	c.Assert(sched.CurrentSample(), qt.Equals, int64(0))
	c.Assert(sched.Registered(old.ID(), graph.ParamEnvelope), qt.IsFalse)

	lfo := e.Voices()[0].Ports().Vibrato
	c.Assert(sched.Values(lfo.ID(), graph.ParamAmplitude), qt.HasLen, 64)
	processBlocks(c, e, 1)
	c.Assert(sched.Value(lfo.ID(), graph.ParamAmplitude, 0), qt.Equals, 0.25)

	c.Assert(e.NoteOn(60, 100), qt.IsNil)
	processBlocks(c, e, 2)
	c.Assert(peak(e.Mix().Left.Samples()) > 0, qt.IsTrue)
}

func TestEchoPatch(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(c, WithVoices(1), WithPatch(WithEcho(DefaultPatch, 0.05, 0.5, 0.3)))
	v := e.Voices()[0]
	c.Assert(math.Abs(v.Ports().Tail-0.55) < 1e-12, qt.IsTrue)

	var intoOut, intoEcho []string
	for _, l := range v.Graph().Links() {
		switch nodeName(l.Destination) {
		case "out":
			intoOut = append(intoOut, nodeName(l.Source))
		case "echo":
			intoEcho = append(intoEcho, nodeName(l.Source))
		}
	}
	c.Assert(intoOut, qt.DeepEquals, []string{"echo"})
	c.Assert(intoEcho, qt.DeepEquals, []string{"amp"})

	// The voice keeps sounding through the echo tail.
	c.Assert(e.NoteOn(60, 100), qt.IsNil)
	processBlocks(c, e, 5)
	c.Assert(e.NoteOff(60), qt.IsNil)
	processBlocks(c, e, 100)
	c.Assert(e.ActiveVoices(), qt.Equals, 1)
	processBlocks(c, e, 150)
	c.Assert(e.ActiveVoices(), qt.Equals, 0)
}

func TestEchoTail(t *testing.T) {
	c := qt.New(t)
	c.Assert(echoTail(0.1, 0), qt.Equals, 0.1)
	c.Assert(math.Abs(echoTail(0.1, 0.5)-1.1) < 1e-12, qt.IsTrue)
}
