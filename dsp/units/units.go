package units

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/dsp/graph"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

// Node kinds registered by Register.
const (
	KindOscillator = "oscillator"
	KindEnvelope   = "envelope"
	KindAmp        = "amp"
	KindMixer      = "mixer"
	KindFilter     = "filter"
	KindDelay      = "delay"
	KindConstant   = "constant"
	KindOutput     = "output"
)

// Register adds every unit kind to r with default settings. Oscillators
// read their tables from store.
func Register(r *graph.Registry, store *wavetable.Store) error {
	factories := []struct {
		kind    string
		factory graph.Factory
	}{
		{KindOscillator, func(b *graph.Base) (graph.Node, error) { return newOscillator(b, store) }},
		{KindEnvelope, func(b *graph.Base) (graph.Node, error) { return newEnvelope(b) }},
		{KindAmp, func(b *graph.Base) (graph.Node, error) { return newAmp(b) }},
		{KindMixer, func(b *graph.Base) (graph.Node, error) { return newMixer(b) }},
		{KindFilter, func(b *graph.Base) (graph.Node, error) { return newFilter(b) }},
		{KindDelay, func(b *graph.Base) (graph.Node, error) { return newDelay(b) }},
		{KindConstant, func(b *graph.Base) (graph.Node, error) { return newConstant(b) }},
		{KindOutput, func(b *graph.Base) (graph.Node, error) { return newOutput(b) }},
	}
	for _, f := range factories {
		if err := r.Register(f.kind, f.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry with every unit kind registered.
func NewRegistry(store *wavetable.Store) (*graph.Registry, error) {
	r := graph.NewRegistry()
	if err := Register(r, store); err != nil {
		return nil, err
	}
	return r, nil
}

// create builds a unit on g, applying opts to the concrete node inside the
// factory so a failing option fails creation.
func create[T graph.Node, O ~func(T) error](g *graph.Graph, kind, name string, build func(*graph.Base) (T, error), opts []O) (T, error) {
	var zero T
	n, err := g.CreateNodeFunc(kind, name, func(b *graph.Base) (graph.Node, error) {
		node, err := build(b)
		if err != nil {
			return nil, err
		}
		for _, opt := range opts {
			if err := opt(node); err != nil {
				return nil, err
			}
		}
		return node, nil
	})
	if err != nil {
		return zero, err
	}
	return n.(T), nil
}

func validateFiniteRange(v, lo, hi float64, name string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < lo || v > hi {
		return fmt.Errorf("units: %s must be in [%g, %g]: %g", name, lo, hi, v)
	}
	return nil
}

// at returns values[i], or def when the lane is missing or short.
func at(values []float64, i int, def float64) float64 {
	if i < len(values) {
		return values[i]
	}
	return def
}
