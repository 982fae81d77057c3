package synth

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-synth/dsp/buffer"
	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/oversample"
	"github.com/cwbudde/algo-synth/dsp/units"
)

var (
	// ErrInvalidNote is returned for note numbers outside 0..127.
	ErrInvalidNote = errors.New("synth: note out of range")
	// ErrInvalidVelocity is returned for velocities outside 0..127.
	ErrInvalidVelocity = errors.New("synth: velocity out of range")
)

const (
	defaultVoices = 8
	maxVoices     = 64
	defaultGain   = 0.5
	// MaxVibrato is the vibrato depth in semitones at full modulation.
	MaxVibrato = 0.5
)

// EngineOption configures an Engine.
type EngineOption func(*Engine) error

// WithVoices sets the polyphony.
func WithVoices(n int) EngineOption {
	return func(e *Engine) error {
		if n < 1 || n > maxVoices {
			return fmt.Errorf("synth: voices must be in [1, %d]: %d", maxVoices, n)
		}
		e.numVoices = n
		return nil
	}
}

// WithPatch sets the patch every voice is built from.
func WithPatch(p Patch) EngineOption {
	return func(e *Engine) error {
		if p == nil {
			return errors.New("synth: nil patch")
		}
		e.patch = p
		return nil
	}
}

// WithGain sets the master gain applied to the voice sum.
func WithGain(gain float64) EngineOption {
	return func(e *Engine) error {
		if gain < 0 || gain > 4 || math.IsNaN(gain) {
			return fmt.Errorf("synth: gain must be in [0, 4]: %g", gain)
		}
		e.gain = gain
		return nil
	}
}

// WithQuality selects the decimation filter used when oversampling.
func WithQuality(q oversample.Quality) EngineOption {
	return func(e *Engine) error {
		e.quality = q
		return nil
	}
}

// Engine plays a fixed set of voices.
//
// Note and controller calls and the render calls serialize on one mutex,
// so a control call waits at most one block. Within a block the voices
// render concurrently and are summed into the mix under a second mutex.
type Engine struct {
	ctx      *Context
	patch    Patch
	registry *graph.Registry

	numVoices int
	gain      float64
	quality   oversample.Quality

	mu      sync.Mutex
	voices  []*Voice
	order   uint64
	vibrato float64
	cutoff  float64

	mixMu sync.Mutex
	mix   *buffer.Stereo

	decLeft  *oversample.Decimator
	decRight *oversample.Decimator
	down     *buffer.Stereo
	pending  []float32
	pos      int
}

// NewEngine builds the voices for ctx.
func NewEngine(ctx *Context, opts ...EngineOption) (*Engine, error) {
	if ctx == nil {
		return nil, errors.New("synth: nil context")
	}
	e := &Engine{
		ctx:       ctx,
		patch:     DefaultPatch,
		numVoices: defaultVoices,
		gain:      defaultGain,
		quality:   oversample.QualityBalanced,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	reg, err := units.NewRegistry(ctx.store)
	if err != nil {
		return nil, err
	}
	e.registry = reg

	if err := e.build(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) build() error {
	cfg := e.ctx.cfg

	voices := make([]*Voice, 0, e.numVoices)
	for i := range e.numVoices {
		v, err := newVoice(i, e.ctx, e.registry, e.patch)
		if err != nil {
			for _, built := range voices {
				built.graph.Clear()
			}
			return fmt.Errorf("synth: voice %d: %w", i, err)
		}
		voices = append(voices, v)
	}

	decLeft, err := oversample.NewDecimator(cfg.Oversampling, oversample.WithQuality(e.quality))
	if err != nil {
		return err
	}
	decRight, err := oversample.NewDecimator(cfg.Oversampling, oversample.WithQuality(e.quality))
	if err != nil {
		return err
	}

	e.voices = voices
	e.mix = buffer.NewStereo(cfg.InternalBlockSize())
	e.down = buffer.NewStereo(cfg.BlockSize)
	e.decLeft, e.decRight = decLeft, decRight
	e.pending = make([]float32, 2*cfg.BlockSize)
	e.pos = len(e.pending)
	e.order = 0

	logger.Infof("built %d voices at %g Hz, block %d, oversampling %dx",
		len(voices), cfg.SampleRate, cfg.BlockSize, cfg.Oversampling)
	return e.applyControls()
}

// applyControls pushes the controller state to freshly built voices.
func (e *Engine) applyControls() error {
	if e.vibrato != 0 {
		if err := e.setVibrato(e.vibrato); err != nil {
			return err
		}
	}
	if e.cutoff != 0 {
		return e.setCutoff(e.cutoff)
	}
	return nil
}

// Context returns the engine's context.
func (e *Engine) Context() *Context { return e.ctx }

// Voices returns the voice slots.
func (e *Engine) Voices() []*Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Voice(nil), e.voices...)
}

// ActiveVoices returns the number of voices being rendered.
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, v := range e.voices {
		if v.sounding {
			n++
		}
	}
	return n
}

// Reset applies opts to the context and rebuilds every voice for the new
// configuration. Playing notes are dropped. If the new configuration is
// invalid the voices are rebuilt for the old one and the error returned.
func (e *Engine) Reset(opts ...core.ProcessorOption) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range e.voices {
		v.graph.Clear()
	}
	e.voices = nil

	resetErr := e.ctx.Reset(opts...)
	if err := e.build(); err != nil {
		return err
	}
	return resetErr
}

// NoteOn starts note on a voice. A voice already playing the note is
// retriggered; otherwise a free voice is taken, and when none is free the
// oldest note is stolen. Velocity 0 releases the note.
func (e *Engine) NoteOn(note, velocity int) error {
	if note < 0 || note > 127 {
		return fmt.Errorf("%w: %d", ErrInvalidNote, note)
	}
	if velocity < 0 || velocity > 127 {
		return fmt.Errorf("%w: %d", ErrInvalidVelocity, velocity)
	}
	if velocity == 0 {
		return e.NoteOff(note)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.allocate(note)
	if v == nil {
		return errors.New("synth: no voices")
	}
	e.order++
	v.start(note, float64(velocity)/127, e.order)
	return nil
}

func (e *Engine) allocate(note int) *Voice {
	var free, oldest *Voice
	for _, v := range e.voices {
		if v.sounding && v.note == note {
			return v
		}
		if !v.sounding && free == nil {
			free = v
		}
		if v.sounding && (oldest == nil || v.order < oldest.order) {
			oldest = v
		}
	}
	if free != nil {
		return free
	}
	if oldest != nil {
		logger.Debugf("stealing voice %d from note %d for note %d", oldest.index, oldest.note, note)
	}
	return oldest
}

// NoteOff releases every voice holding note.
func (e *Engine) NoteOff(note int) error {
	if note < 0 || note > 127 {
		return fmt.Errorf("%w: %d", ErrInvalidNote, note)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range e.voices {
		if v.note == note && v.Gate() {
			v.release()
		}
	}
	return nil
}

// AllNotesOff releases every held voice. Voices finish their release
// normally.
func (e *Engine) AllNotesOff() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range e.voices {
		if v.sounding {
			v.release()
		}
	}
}

// SetVibrato sets the vibrato depth in semitones on every voice.
func (e *Engine) SetVibrato(semitones float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setVibrato(semitones)
}

func (e *Engine) setVibrato(semitones float64) error {
	if semitones < 0 || semitones > 12 || math.IsNaN(semitones) {
		return fmt.Errorf("synth: vibrato must be in [0, 12]: %g", semitones)
	}
	for _, v := range e.voices {
		if lfo := v.ports.Vibrato; lfo != nil {
			if err := lfo.SetValue(graph.ParamAmplitude, semitones); err != nil {
				return err
			}
		}
	}
	e.vibrato = semitones
	return nil
}

// SetCutoff sets the filter cutoff in Hz on every voice.
func (e *Engine) SetCutoff(hz float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setCutoff(hz)
}

func (e *Engine) setCutoff(hz float64) error {
	for _, v := range e.voices {
		if f := v.ports.Filter; f != nil {
			if err := f.SetCutoff(hz); err != nil {
				return err
			}
		}
	}
	e.cutoff = hz
	return nil
}

// Process renders one internal block into the mix: the scheduler first,
// then every sounding voice in parallel. The mix is complete even when a
// voice fails; the first error is returned.
func (e *Engine) Process() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process()
}

func (e *Engine) process() error {
	sched := e.ctx.sched
	increment := e.ctx.cfg.TimeIncrement()

	sched.Process()
	e.mix.Zero()

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, v := range e.voices {
		if !v.sounding {
			continue
		}
		g.Go(func() error {
			if err := v.graph.Process(increment); err != nil {
				return fmt.Errorf("synth: voice %d: %w", v.index, err)
			}
			ch := v.ports.Output.Channels()
			e.mixMu.Lock()
			e.mix.Mix(ch.Left.Samples(), ch.Right.Samples())
			e.mixMu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	now := sched.CurrentSample()
	for _, v := range e.voices {
		if v.sounding {
			v.update(now)
		}
	}
	e.mix.Scale(e.gain)
	return err
}

// Mix returns the stereo mix of the last internal block.
func (e *Engine) Mix() *buffer.Stereo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mix
}

// Render fills dst with interleaved stereo frames at the device rate and
// returns the number of frames written. It renders and decimates as many
// internal blocks as needed; frames left over from a block are kept for
// the next call. A trailing odd sample of dst is left untouched.
func (e *Engine) Render(dst []float32) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	frames := len(dst) / 2
	var firstErr error
	n := 0
	for n < frames {
		if e.pos >= len(e.pending) {
			if err := e.process(); err != nil && firstErr == nil {
				firstErr = err
			}
			e.downmix()
		}
		k := copy(dst[2*n:2*frames], e.pending[e.pos:])
		e.pos += k
		n += k / 2
	}
	return n, firstErr
}

func (e *Engine) downmix() {
	e.decLeft.Process(e.down.Left.Samples(), e.mix.Left.Samples())
	e.decRight.Process(e.down.Right.Samples(), e.mix.Right.Samples())
	e.down.Interleave(e.pending)
	e.pos = 0
}
