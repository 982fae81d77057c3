// Package oversample converts the internally oversampled render stream back
// to the device rate.
//
// The synthesizer graph may run at an integer multiple of the device
// sample rate to push oscillator and nonlinear filter aliasing above the
// audible band. [Decimator] low-passes and downsamples that stream block by
// block without allocating, which makes it safe on the audio thread.
package oversample
