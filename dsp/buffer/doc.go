// Package buffer provides reusable mono and stereo float64 buffers for
// allocation-free block processing. Buffers are sized once per
// configuration and then only cleared and accumulated on the audio thread.
package buffer
