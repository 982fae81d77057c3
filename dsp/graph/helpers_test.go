package graph

import (
	qt "github.com/frankban/quicktest"

	"github.com/cwbudde/algo-synth/dsp/automation"
	"github.com/cwbudde/algo-synth/dsp/core"
)

const testBlock = 16

// constNode fills its buffer with a fixed value.
type constNode struct {
	*Base
	value float64
	calls int
}

func (n *constNode) Process(float64) {
	n.calls++
	core.Fill(n.Samples(), n.value)
}

// scaleNode outputs its aggregated input times gain.
type scaleNode struct {
	*Base
	gain  float64
	calls int
}

func (n *scaleNode) Process(float64) {
	n.calls++
	out := n.Samples()
	for i := range out {
		add, mul := n.GetParameter(ParamInput, i, 0)
		out[i] = add * mul * n.gain
	}
}

func newTestGraph(c *qt.C) *Graph {
	c.Helper()
	cfg := core.ApplyProcessorOptions(core.WithBlockSize(testBlock))
	sched, err := automation.NewFromConfig(cfg)
	c.Assert(err, qt.IsNil)

	r := NewRegistry()
	r.MustRegister("const", func(b *Base) (Node, error) {
		return &constNode{Base: b, value: 1}, nil
	})
	r.MustRegister("scale", func(b *Base) (Node, error) {
		b.Register(ParamGain, 1)
		return &scaleNode{Base: b, gain: 1}, nil
	})

	g, err := New(cfg, sched, WithRegistry(r))
	c.Assert(err, qt.IsNil)
	return g
}

func newConst(c *qt.C, g *Graph, name string, v float64) *constNode {
	c.Helper()
	n, err := Create[*constNode](g, "const", name)
	c.Assert(err, qt.IsNil)
	n.value = v
	return n
}

func newScale(c *qt.C, g *Graph, name string, gain float64) *scaleNode {
	c.Helper()
	n, err := Create[*scaleNode](g, "scale", name)
	c.Assert(err, qt.IsNil)
	n.gain = gain
	return n
}

func mustConnect(c *qt.C, g *Graph, src, dst Node, param Param) {
	c.Helper()
	c.Assert(g.Connect(src, dst, param, ModeAdd, 1), qt.IsNil)
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.base().Name()
	}
	return out
}

func sourcesOf(n Node, param Param) []string {
	var out []string
	for _, conn := range n.base().Inputs(param) {
		out = append(out, conn.Source.base().Name())
	}
	return out
}

func process(c *qt.C, g *Graph) {
	c.Helper()
	c.Assert(g.Process(g.Config().TimeIncrement()), qt.IsNil)
}
