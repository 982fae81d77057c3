package synth

import (
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
)

// Voice is one polyphonic slot: a graph built by a Patch plus the note it
// is playing.
type Voice struct {
	index int
	graph *graph.Graph
	ports Ports
	tail  int64

	note      int
	order     uint64
	sounding  bool
	idleSince int64
}

func newVoice(index int, ctx *Context, reg *graph.Registry, patch Patch) (*Voice, error) {
	g, err := graph.New(ctx.cfg, ctx.sched, graph.WithRegistry(reg))
	if err != nil {
		return nil, err
	}
	ports, err := patch(g, ctx.store)
	if err != nil {
		g.Clear()
		return nil, err
	}
	if err := ports.validate(); err != nil {
		g.Clear()
		return nil, err
	}
	if g.Output() == nil {
		if err := g.SetOutput(ports.Output); err != nil {
			g.Clear()
			return nil, err
		}
	}

	return &Voice{
		index:     index,
		graph:     g,
		ports:     ports,
		tail:      int64(math.Ceil(ports.Tail * ctx.cfg.InternalRate())),
		note:      -1,
		idleSince: -1,
	}, nil
}

// Index returns the slot number of the voice.
func (v *Voice) Index() int { return v.index }

// Graph returns the voice graph.
func (v *Voice) Graph() *graph.Graph { return v.graph }

// Ports returns the nodes the engine drives.
func (v *Voice) Ports() Ports { return v.ports }

// Note returns the note being played or released, or -1 when the voice
// is free.
func (v *Voice) Note() int { return v.note }

// Sounding reports whether the voice is rendered.
func (v *Voice) Sounding() bool { return v.sounding }

// Gate reports whether the note is held.
func (v *Voice) Gate() bool { return v.ports.Envelope.Gate() }

func (v *Voice) start(note int, velocity float64, order uint64) {
	hz := core.NoteToFreq(float64(note))
	for _, osc := range v.ports.Oscillators {
		if err := osc.SetFrequency(hz); err != nil {
			logger.Errorf("voice %d: note %d: %v", v.index, note, err)
		}
	}
	if err := v.ports.Envelope.SetPeak(velocity); err != nil {
		logger.Errorf("voice %d: velocity %g: %v", v.index, velocity, err)
	}
	v.graph.OpenGates()

	v.note = note
	v.order = order
	v.sounding = true
	v.idleSince = -1
}

func (v *Voice) release() {
	v.graph.CloseGates()
}

// update frees the voice once the envelope and the tail are over. now is
// the scheduler position after the block just rendered.
func (v *Voice) update(now int64) {
	if v.ports.Envelope.Active() {
		v.idleSince = -1
		return
	}
	if v.idleSince < 0 {
		v.idleSince = now
	}
	if now-v.idleSince >= v.tail {
		v.sounding = false
		v.note = -1
	}
}
