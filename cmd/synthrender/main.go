// Command synthrender renders the demo phrase offline to a WAV file.
//
// Usage:
//
//	synthrender [flags]
//
// Examples:
//
//	synthrender -o demo.wav
//	synthrender -os 4 -bits 24 -echo -o demo.wav
//	synthrender -bpm 90 -voices 4 -v -o slow.wav
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	flag "github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/dither"
	"github.com/cwbudde/algo-synth/dsp/synth"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
	"github.com/cwbudde/algo-synth/internal/demo"
)

var logger = loggo.GetLogger("synthrender")

type options struct {
	output   string
	rate     int
	block    int
	factor   int
	voices   int
	bits     int
	bpm      float64
	tail     float64
	echo     bool
	dither   bool
	verbose  bool
	tableLen int
}

func main() {
	var o options
	flag.StringVar(&o.output, "o", "synth.wav", "output WAV file")
	flag.IntVar(&o.rate, "rate", 44100, "sample rate in Hz")
	flag.IntVar(&o.block, "block", 128, "block size in frames")
	flag.IntVar(&o.factor, "os", 2, "oversampling factor (1, 2, 4 or 8)")
	flag.IntVar(&o.voices, "voices", 8, "polyphony")
	flag.IntVar(&o.bits, "bits", 16, "bit depth (16 or 24)")
	flag.Float64Var(&o.bpm, "bpm", 120, "tempo of the demo phrase")
	flag.Float64Var(&o.tail, "tail", 1.5, "seconds rendered after the last note off")
	flag.BoolVar(&o.echo, "echo", false, "add a feedback echo to every voice")
	flag.BoolVar(&o.dither, "dither", true, "apply noise-shaped triangular dither")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.IntVar(&o.tableLen, "table", 2048, "wavetable length (power of two)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: synthrender [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders the demo phrase to a WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse(true)

	if o.verbose {
		if err := loggo.ConfigureLoggers("<root>=INFO;synth=DEBUG"); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.bits != 16 && o.bits != 24 {
		return fmt.Errorf("unsupported bit depth %d", o.bits)
	}

	engine, err := newEngine(o)
	if err != nil {
		return err
	}

	events := demo.Phrase(o.bpm)
	frames := int(math.Ceil((demo.Duration(events) + o.tail) * float64(o.rate)))
	samples, err := render(engine, events, frames, o.rate, o.block)
	if err != nil {
		return err
	}

	opts := []dither.Option{dither.WithBitDepth(o.bits)}
	if o.dither {
		opts = append(opts, dither.WithShaping(true))
	} else {
		opts = append(opts, dither.WithAmplitude(0))
	}
	q, err := dither.New(2, opts...)
	if err != nil {
		return err
	}
	if err := writeWAV(o.output, samples, o.rate, q); err != nil {
		return err
	}
	logger.Infof("wrote %d frames to %s", frames, o.output)
	return nil
}

func newEngine(o options) (*synth.Engine, error) {
	store, err := wavetable.NewStandardStore(o.tableLen)
	if err != nil {
		return nil, err
	}
	ctx, err := synth.NewContext(store,
		core.WithSampleRate(float64(o.rate)),
		core.WithBlockSize(o.block),
		core.WithOversampling(o.factor))
	if err != nil {
		return nil, err
	}
	if cfg := ctx.Config(); cfg.Oversampling != o.factor {
		return nil, fmt.Errorf("unsupported oversampling factor %d", o.factor)
	}

	patch := synth.DefaultPatch
	if o.echo {
		patch = synth.WithEcho(patch, 0.375*120/o.bpm, 0.35, 0.25)
	}
	return synth.NewEngine(ctx, synth.WithVoices(o.voices), synth.WithPatch(patch))
}

// render plays events against the engine one block at a time and returns
// the interleaved stereo output. Events fire at the start of the block
// containing them.
func render(e *synth.Engine, events []demo.Event, frames, rate, block int) ([]float32, error) {
	out := make([]float32, 2*frames)
	next := 0
	for pos := 0; pos < frames; {
		now := float64(pos) / float64(rate)
		for ; next < len(events) && events[next].At <= now; next++ {
			ev := events[next]
			if err := e.NoteOn(ev.Note, ev.Velocity); err != nil {
				return nil, err
			}
		}

		n := min(block, frames-pos)
		if _, err := e.Render(out[2*pos : 2*(pos+n)]); err != nil {
			return nil, err
		}
		pos += n
	}
	return out, nil
}

func writeWAV(path string, samples []float32, rate int, q *dither.Quantizer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bits := q.BitDepth()
	enc := wav.NewEncoder(f, rate, bits, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bits,
	}
	q.QuantizeInterleaved(buf.Data, samples)

	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
