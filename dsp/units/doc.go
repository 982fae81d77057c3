// Package units provides the concrete nodes a synth voice is built from:
// wavetable oscillators, ADSR envelopes, amplifiers, mixers, a ladder
// low-pass filter, a feedback delay, constants and the stereo output stage.
//
// Every unit embeds *graph.Base. Sample-accurate parameters live on the
// graph's scheduler and are read once per block; connections on the same
// parameter modulate the scheduled value. Units are created either by kind
// through a registry populated with [Register], or with the typed
// constructors such as [NewOscillator].
package units

import "github.com/juju/loggo"

var logger = loggo.GetLogger("synth.units")
