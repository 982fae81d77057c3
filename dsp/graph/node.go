package graph

import (
	"slices"

	"github.com/cwbudde/algo-synth/dsp/automation"
	"github.com/cwbudde/algo-synth/dsp/buffer"
	"github.com/cwbudde/algo-synth/dsp/core"
)

// Node is a processing unit owned by a Graph. Only types that embed *Base
// implement it.
type Node interface {
	// Process renders one block. increment is the duration of one sample
	// in seconds.
	Process(increment float64)

	base() *Base
}

// Stereo is implemented by nodes that render separate left and right
// channels in addition to their mono buffer.
type Stereo interface {
	Node
	Channels() *buffer.Stereo
}

// Gated is implemented by nodes that react to note on and off. Base
// provides no-op defaults, so every Node is Gated.
type Gated interface {
	Node
	OpenGate()
	CloseGate()
}

// Base holds the state every node shares. Concrete nodes embed *Base.
type Base struct {
	graph   *Graph
	slot    int
	kind    string
	name    string
	id      automation.NodeID
	enabled bool

	cfg    core.ProcessorConfig
	sched  *automation.Scheduler
	out    *buffer.Buffer
	stereo *buffer.Stereo

	inputs      map[Param][]Connection
	inputParams []Param
}

func (b *Base) base() *Base { return b }

// Name returns the graph-unique node name.
func (b *Base) Name() string { return b.name }

// Kind returns the registry kind the node was created from.
func (b *Base) Kind() string { return b.kind }

// ID returns the node's scheduler handle.
func (b *Base) ID() automation.NodeID { return b.id }

// Enabled reports whether the graph processes the node.
func (b *Base) Enabled() bool { return b.enabled }

// Config returns the processing configuration of the owning graph.
func (b *Base) Config() core.ProcessorConfig { return b.cfg }

// BlockSize returns the number of samples rendered per Process call.
func (b *Base) BlockSize() int { return b.out.Len() }

// SampleRate returns the rate the node renders at.
func (b *Base) SampleRate() float64 { return b.cfg.InternalRate() }

// Scheduler returns the scheduler the node's parameters live on.
func (b *Base) Scheduler() *automation.Scheduler { return b.sched }

// Buffer returns the mono output buffer.
func (b *Base) Buffer() *buffer.Buffer { return b.out }

// Samples returns the mono output samples for the node to write.
func (b *Base) Samples() []float64 { return b.out.Samples() }

// At returns output sample i.
func (b *Base) At(i int) float64 { return b.out.At(i) }

// InitStereo allocates left and right buffers. Nodes implementing Stereo
// call it from their factory.
func (b *Base) InitStereo() *buffer.Stereo {
	if b.stereo == nil {
		b.stereo = buffer.NewStereo(b.out.Len())
	}
	return b.stereo
}

// OpenGate does nothing.
func (b *Base) OpenGate() {}

// CloseGate does nothing.
func (b *Base) CloseGate() {}

// Inputs returns the live connections on param. The slice is owned by the
// node and replaced on topology changes.
func (b *Base) Inputs(param Param) []Connection { return b.inputs[param] }

// InputParams returns the parameters that currently have live inputs.
func (b *Base) InputParams() []Param { return b.inputParams }

// GetParameter aggregates the live connections on param at sample i.
func (b *Base) GetParameter(param Param, i int, def float64) (add, mul float64) {
	return Aggregate(b.inputs[param], i, def)
}

// GetParameterStereo aggregates param with separate left and right
// additive terms.
func (b *Base) GetParameterStereo(param Param, i int, def float64) (left, right, mul float64) {
	return AggregateStereo(b.inputs[param], i, def)
}

// Register declares an automatable parameter with its default value.
func (b *Base) Register(param Param, def float64) {
	b.sched.RegisterParam(b.id, param, def)
}

// Automation returns the scheduler-rendered values of param for the current
// block, or nil when param was never registered.
func (b *Base) Automation(param Param) []float64 {
	return b.sched.Values(b.id, param)
}

// Value returns the scheduler-rendered value of param at sample i. It takes
// the scheduler locks on every call; Process reads Automation instead.
func (b *Base) Value(param Param, i int, def float64) float64 {
	return b.sched.GetValueAtSample(b.id, param, i, def)
}

// SetValue sets param at the scheduler's current position.
func (b *Base) SetValue(param Param, v float64) error {
	return b.sched.SetValue(b.id, param, v)
}

// ScheduleValue sets param to v at time t in seconds.
func (b *Base) ScheduleValue(param Param, v, t float64) error {
	return b.sched.ScheduleValueAtTime(b.id, param, v, t)
}

// LinearRamp ramps param linearly to target, arriving at end.
func (b *Base) LinearRamp(param Param, target, end float64) error {
	return b.sched.LinearRampToValueAtTime(b.id, param, target, end)
}

// ExponentialRamp ramps param geometrically to target, arriving at end.
func (b *Base) ExponentialRamp(param Param, target, end float64) error {
	return b.sched.ExponentialRampToValueAtTime(b.id, param, target, end)
}

// QueueLinearRamp appends a linear segment after the last pending event
// of param.
func (b *Base) QueueLinearRamp(param Param, target, end float64) error {
	return b.sched.QueueLinearRamp(b.id, param, target, end)
}

// QueueExponentialRamp appends a geometric segment after the last pending
// event of param.
func (b *Base) QueueExponentialRamp(param Param, target, end float64) error {
	return b.sched.QueueExponentialRamp(b.id, param, target, end)
}

// CancelScheduled drops events on param at or after t.
func (b *Base) CancelScheduled(param Param, t float64) error {
	return b.sched.CancelScheduledValues(b.id, param, t)
}

// Now returns the scheduler time in seconds.
func (b *Base) Now() float64 { return b.sched.Now() }

func (b *Base) clearInputs() {
	clear(b.inputs)
	b.inputParams = b.inputParams[:0]
}

// attach adds a live connection unless src already feeds param.
func (b *Base) attach(param Param, c Connection) {
	conns := b.inputs[param]
	for _, existing := range conns {
		if existing.Source == c.Source {
			return
		}
	}
	if len(conns) == 0 {
		i, _ := slices.BinarySearch(b.inputParams, param)
		b.inputParams = slices.Insert(b.inputParams, i, param)
	}
	b.inputs[param] = append(conns, c)
}
