package main

import (
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/synth"
)

func startOto(e *synth.Engine, cfg core.ProcessorConfig) (func() error, error) {
	buffer := time.Duration(2 * cfg.BlockDuration() * float64(time.Second))
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(cfg.SampleRate),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(synth.NewStreamReader(e))
	player.Play()
	logger.Debugf("oto: %g Hz, buffer %v", cfg.SampleRate, buffer)

	return func() error {
		player.Pause()
		if err := player.Close(); err != nil {
			return err
		}
		return ctx.Suspend()
	}, nil
}
