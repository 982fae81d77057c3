package testutil

import (
	"math"
	"math/rand/v2"
)

// Sine returns n samples of amp*sin(2*pi*freq*i/rate), starting at phase 0.
func Sine(freq, rate, amp float64, n int) []float64 {
	out := make([]float64, n)
	w := 2 * math.Pi * freq / rate
	for i := range out {
		out[i] = amp * math.Sin(w*float64(i))
	}
	return out
}

// Noise returns n uniform samples in [-amp, amp). The same seed always
// yields the same block.
func Noise(seed uint64, amp float64, n int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (2*rng.Float64() - 1)
	}
	return out
}

// Const returns n copies of v.
func Const(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
