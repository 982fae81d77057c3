package synth

import (
	"math"
	"sync"

	qt "github.com/frankban/quicktest"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

const (
	testRate  = 8000
	testBlock = 32
)

var (
	storeOnce sync.Once
	testStore *wavetable.Store
	storeErr  error
)

func newTestContext(c *qt.C, opts ...core.ProcessorOption) *Context {
	c.Helper()
	storeOnce.Do(func() {
		testStore, storeErr = wavetable.NewStandardStore(256)
	})
	c.Assert(storeErr, qt.IsNil)

	opts = append([]core.ProcessorOption{core.WithSampleRate(testRate), core.WithBlockSize(testBlock)}, opts...)
	ctx, err := NewContext(testStore, opts...)
	c.Assert(err, qt.IsNil)
	return ctx
}

func newTestEngine(c *qt.C, opts ...EngineOption) *Engine {
	c.Helper()
	e, err := NewEngine(newTestContext(c), opts...)
	c.Assert(err, qt.IsNil)
	return e
}

func processBlocks(c *qt.C, e *Engine, n int) {
	c.Helper()
	for range n {
		c.Assert(e.Process(), qt.IsNil)
	}
}

func peak(samples []float64) float64 {
	m := 0.0
	for _, v := range samples {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func notes(e *Engine) []int {
	var out []int
	for _, v := range e.Voices() {
		out = append(out, v.Note())
	}
	return out
}

func nodeName(n graph.Node) string {
	return n.(interface{ Name() string }).Name()
}
