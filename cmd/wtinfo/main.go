// Command wtinfo prints the band-limited table layout of the built-in
// waveforms.
//
// Usage:
//
//	wtinfo [flags] [waveform ...]
//
// Without arguments it prints every waveform of the standard store.
//
// Examples:
//
//	wtinfo saw
//	wtinfo -size 4096 square triangle
//	wtinfo -rate 48000 -pulse 0.1
//	wtinfo -list
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	flag "github.com/juju/gnuflag"
	"github.com/juju/loggo"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

func main() {
	size := flag.Int("size", wavetable.DefaultSize, "table length in samples (power of two)")
	rate := flag.Float64("rate", 44100, "sample rate used to print frequencies in Hz")
	pulse := flag.Float64("pulse", 0, "also build a pulse wave with this duty cycle (0 < w < 1)")
	list := flag.Bool("list", false, "list available waveform names")
	verbose := flag.Bool("v", false, "log table builds")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wtinfo [flags] [waveform ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the mip-table layout of band-limited waveforms.\n")
		fmt.Fprintf(os.Stderr, "Without arguments, prints every built-in waveform.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  wtinfo saw\n")
		fmt.Fprintf(os.Stderr, "  wtinfo -size 4096 square triangle\n")
		fmt.Fprintf(os.Stderr, "  wtinfo -list\n")
	}
	flag.Parse(true)

	if *verbose {
		if err := loggo.ConfigureLoggers("synth=DEBUG"); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
	}

	store, err := wavetable.NewStandardStore(*size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *pulse != 0 {
		spec, err := wavetable.PulseSpectrum(*size, *pulse)
		if err == nil {
			_, err = store.Build(pulseName(*pulse), spec)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: pulse: %v\n", err)
			os.Exit(1)
		}
	}

	if *list {
		for _, n := range store.Names() {
			fmt.Println(n)
		}
		return
	}

	names := flag.Args()
	if len(names) == 0 {
		names = store.Names()
	}

	var mems []*wavetable.Memory
	for _, name := range names {
		mem, err := store.Get(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v (use -list to see available)\n", err)
			continue
		}
		mems = append(mems, mem)
	}
	if len(mems) == 0 {
		fmt.Fprintf(os.Stderr, "error: no matching waveforms\n")
		os.Exit(1)
	}

	printLayout(mems, *rate)
}

func pulseName(width float64) string {
	return fmt.Sprintf("pulse-%g", width)
}

func printLayout(mems []*wavetable.Memory, rate float64) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Waveform\tTable\tLength\tHarmonics\tTop Freq\tMax f0 [Hz]\tMax Note\tPeak [dB]\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}
	if _, err := fmt.Fprintf(tw, "--------\t-----\t------\t---------\t--------\t-----------\t--------\t---------\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}

	for _, mem := range mems {
		for i := range mem.Len() {
			t := mem.Table(i)
			maxF0 := t.TopFreq() * rate
			if _, err := fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.6f\t%.1f\t%.1f\t%.2f\n",
				mem.Name(),
				i,
				t.Len(),
				t.Harmonics(),
				t.TopFreq(),
				maxF0,
				core.FreqToNote(maxF0),
				core.LinearToDB(vecmath.MaxAbs(t.Samples())),
			); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output row: %v\n", err)
				return
			}
		}
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
