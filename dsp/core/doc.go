// Package core holds the process-wide rendering configuration and the small
// numeric helpers shared by the synthesizer packages.
//
// A [ProcessorConfig] is built with functional options and passed by value
// to every component that needs the sample rate or block size; there is no
// global configuration.
package core
