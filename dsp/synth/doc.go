// Package synth assembles the graph, the parameter scheduler and the
// wavetable store into a playable polyphonic instrument.
//
// A [Context] owns the process-wide configuration, the scheduler and the
// store. An [Engine] builds a fixed set of voices from a [Patch], each
// voice being an independent graph that shares the context's scheduler.
// Every block the engine renders the scheduler first, then the voices in
// parallel, then sums them into a stereo mix that [Engine.Render]
// decimates to the device rate.
package synth

import "github.com/juju/loggo"

var logger = loggo.GetLogger("synth.engine")
