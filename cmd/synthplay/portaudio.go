//go:build portaudio

package main

import (
	"github.com/gordonklaus/portaudio"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/synth"
)

func init() {
	backends["portaudio"] = startPortAudio
}

// startPortAudio renders from the PortAudio callback. The callback asks
// for one device block of interleaved stereo frames at a time.
func startPortAudio(e *synth.Engine, cfg core.ProcessorConfig) (func() error, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, cfg.SampleRate, cfg.BlockSize, func(out []float32) {
		if _, err := e.Render(out); err != nil {
			logger.Errorf("render: %v", err)
		}
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, err
	}
	logger.Debugf("portaudio: %g Hz, %d frames per buffer", cfg.SampleRate, cfg.BlockSize)

	return func() error {
		if err := stream.Stop(); err != nil {
			return err
		}
		if err := stream.Close(); err != nil {
			return err
		}
		return portaudio.Terminate()
	}, nil
}
