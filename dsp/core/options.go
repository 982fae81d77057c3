package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by [ProcessorConfig.Validate].
var ErrInvalidConfig = errors.New("core: invalid processor config")

// ProcessorConfig defines the process-wide rendering settings shared by
// every node, the parameter scheduler and the output stage.
//
// SampleRate and BlockSize describe the device stream. The graph renders
// Oversampling times faster than the device: see [ProcessorConfig.InternalRate]
// and [ProcessorConfig.InternalBlockSize].
type ProcessorConfig struct {
	SampleRate   float64
	BlockSize    int
	Oversampling int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns sensible defaults for real-time synthesis.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate:   44100,
		BlockSize:    128,
		Oversampling: 1,
	}
}

// WithSampleRate sets the device sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 && !math.IsInf(sampleRate, 0) {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the device block size in frames.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// WithOversampling sets the internal oversampling factor. Allowed values: 1, 2, 4, 8.
func WithOversampling(factor int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if validOversampling(factor) {
			cfg.Oversampling = factor
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// InternalRate returns the rate the graph renders at.
func (c ProcessorConfig) InternalRate() float64 {
	return c.SampleRate * float64(max(1, c.Oversampling))
}

// InternalBlockSize returns the number of samples one graph tick renders.
func (c ProcessorConfig) InternalBlockSize() int {
	return c.BlockSize * max(1, c.Oversampling)
}

// TimeIncrement returns the duration of one internal sample in seconds.
func (c ProcessorConfig) TimeIncrement() float64 {
	return 1 / c.InternalRate()
}

// BlockDuration returns the real-time deadline of one block in seconds.
func (c ProcessorConfig) BlockDuration() float64 {
	return float64(c.BlockSize) / c.SampleRate
}

// Validate reports whether the config can drive a render loop.
func (c ProcessorConfig) Validate() error {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be > 0: %f", ErrInvalidConfig, c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidConfig, c.BlockSize)
	}
	if !validOversampling(c.Oversampling) {
		return fmt.Errorf("%w: oversampling must be one of {1,2,4,8}: %d", ErrInvalidConfig, c.Oversampling)
	}
	return nil
}

func validOversampling(factor int) bool {
	return factor == 1 || factor == 2 || factor == 4 || factor == 8
}
