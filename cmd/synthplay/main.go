// Command synthplay plays the synth live, driven by a MIDI input or by the
// demo phrase.
//
// Usage:
//
//	synthplay [flags]
//
// Examples:
//
//	synthplay                     # loop the demo phrase
//	synthplay -list-midi
//	synthplay -midi "Keystation"  # play from a MIDI keyboard
//	synthplay -backend portaudio  # needs the portaudio build tag
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	flag "github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/synth"
	"github.com/cwbudde/algo-synth/internal/demo"
)

var logger = loggo.GetLogger("synthplay")

// backend starts pulling audio from the engine and returns a function
// that stops it.
type backend func(e *synth.Engine, cfg core.ProcessorConfig) (stop func() error, err error)

var backends = map[string]backend{
	"oto": startOto,
}

func main() {
	rate := flag.Int("rate", 48000, "sample rate in Hz")
	block := flag.Int("block", 256, "block size in frames")
	factor := flag.Int("os", 2, "oversampling factor (1, 2, 4 or 8)")
	voices := flag.Int("voices", 8, "polyphony")
	backendName := flag.String("backend", "oto", "audio backend: "+strings.Join(backendNames(), ", "))
	midiPort := flag.String("midi", "", "MIDI input port name (substring match)")
	listMIDI := flag.Bool("list-midi", false, "list MIDI input ports")
	bpm := flag.Float64("bpm", 110, "tempo of the demo phrase")
	echo := flag.Bool("echo", true, "add a feedback echo to every voice")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: synthplay [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Plays the synth from a MIDI input, or loops the demo phrase.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse(true)

	level := "<root>=INFO"
	if *verbose {
		level = "<root>=INFO;synth=DEBUG;synthplay=DEBUG"
	}
	if err := loggo.ConfigureLoggers(level); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *listMIDI {
		if err := printMIDIPorts(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	start, ok := backends[*backendName]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown backend %q (available: %s)\n", *backendName, strings.Join(backendNames(), ", "))
		os.Exit(2)
	}

	ctx, err := synth.NewContext(nil,
		core.WithSampleRate(float64(*rate)),
		core.WithBlockSize(*block),
		core.WithOversampling(*factor))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	patch := synth.DefaultPatch
	if *echo {
		patch = synth.WithEcho(patch, 0.375*120 / *bpm, 0.35, 0.25)
	}
	engine, err := synth.NewEngine(ctx, synth.WithVoices(*voices), synth.WithPatch(patch))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sig, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	stopAudio, err := start(engine, ctx.Config())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: audio: %v\n", err)
		os.Exit(1)
	}

	if *midiPort != "" {
		stopMIDI, err := listenMIDI(*midiPort, engine)
		if err != nil {
			_ = stopAudio()
			fmt.Fprintf(os.Stderr, "error: midi: %v\n", err)
			os.Exit(1)
		}
		defer stopMIDI()
		logger.Infof("playing from MIDI port matching %q, press Ctrl-C to quit", *midiPort)
		<-sig.Done()
	} else {
		logger.Infof("looping the demo phrase, press Ctrl-C to quit")
		playDemo(sig, engine, *bpm)
	}

	engine.AllNotesOff()
	// Let the releases ring out before closing the device.
	time.Sleep(300 * time.Millisecond)
	if err := stopAudio(); err != nil {
		logger.Errorf("stopping audio: %v", err)
	}
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// playDemo loops the demo phrase from the control goroutine until ctx is
// done.
func playDemo(ctx context.Context, e *synth.Engine, bpm float64) {
	events := demo.Phrase(bpm)
	loop := time.Duration(demo.Duration(events)*float64(time.Second)) + time.Second/2
	for {
		start := time.Now()
		for _, ev := range events {
			at := start.Add(time.Duration(ev.At * float64(time.Second)))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(at)):
			}
			if err := e.NoteOn(ev.Note, ev.Velocity); err != nil {
				logger.Errorf("note %d: %v", ev.Note, err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(start.Add(loop))):
		}
	}
}
