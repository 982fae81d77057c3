package wavetable_test

import (
	"fmt"

	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

func ExampleFromSpectrum() {
	mem, err := wavetable.FromSpectrum("square", wavetable.SquareSpectrum(64))
	if err != nil {
		panic(err)
	}
	for i := 0; i < mem.Len(); i++ {
		t := mem.Table(i)
		fmt.Printf("table %d: harmonics=%d topFreq=%.4f\n", i, t.Harmonics(), t.TopFreq())
	}
	// Output:
	// table 0: harmonics=31 topFreq=0.0215
	// table 1: harmonics=15 topFreq=0.0430
	// table 2: harmonics=7 topFreq=0.0860
	// table 3: harmonics=3 topFreq=0.1720
	// table 4: harmonics=1 topFreq=0.3441
}
