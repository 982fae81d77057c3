package units

import (
	"sync"

	qt "github.com/frankban/quicktest"

	"github.com/cwbudde/algo-synth/dsp/automation"
	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

var (
	storeOnce sync.Once
	testStore *wavetable.Store
	storeErr  error
)

func sharedStore(c *qt.C) *wavetable.Store {
	c.Helper()
	storeOnce.Do(func() {
		testStore, storeErr = wavetable.NewStandardStore(256)
	})
	c.Assert(storeErr, qt.IsNil)
	return testStore
}

type rig struct {
	cfg   core.ProcessorConfig
	sched *automation.Scheduler
	graph *graph.Graph
}

func newRig(c *qt.C, opts ...core.ProcessorOption) *rig {
	c.Helper()
	cfg := core.ApplyProcessorOptions(opts...)
	sched, err := automation.NewFromConfig(cfg)
	c.Assert(err, qt.IsNil)
	reg, err := NewRegistry(sharedStore(c))
	c.Assert(err, qt.IsNil)
	g, err := graph.New(cfg, sched, graph.WithRegistry(reg))
	c.Assert(err, qt.IsNil)
	return &rig{cfg: cfg, sched: sched, graph: g}
}

// tick renders one block the way the engine does.
func (r *rig) tick(c *qt.C) {
	c.Helper()
	r.sched.Process()
	c.Assert(r.graph.Process(r.cfg.TimeIncrement()), qt.IsNil)
}

// collect renders blocks and concatenates the output of n.
func (r *rig) collect(c *qt.C, n graph.Node, blocks int) []float64 {
	c.Helper()
	var out []float64
	for range blocks {
		r.tick(c)
		out = append(out, n.(interface{ Samples() []float64 }).Samples()...)
	}
	return out
}

func (r *rig) connect(c *qt.C, src, dst graph.Node, param graph.Param, mode graph.Mode, strength float64) {
	c.Helper()
	c.Assert(r.graph.Connect(src, dst, param, mode, strength), qt.IsNil)
}
