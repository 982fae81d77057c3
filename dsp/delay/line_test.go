package delay

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/dsp/interp"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, interp.ModeLinear); err == nil {
		t.Fatal("expected error for size=0")
	}

	if _, err := New(-1, interp.ModeCubic); err == nil {
		t.Fatal("expected error for size=-1")
	}
}

func TestIntegerRead(t *testing.T) {
	d, err := New(8, interp.ModeLinear)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		d.Write(float64(i))
	}

	if got := d.Read(1); got != 5 {
		t.Fatalf("Read(1) = %v, want 5", got)
	}
	if got := d.Read(3); got != 3 {
		t.Fatalf("Read(3) = %v, want 3", got)
	}
}

func TestFractionalReadOnRamp(t *testing.T) {
	for _, mode := range []interp.Mode{interp.ModeLinear, interp.ModeCubic} {
		d, err := New(32, mode)
		if err != nil {
			t.Fatal(err)
		}
		for i := range 32 {
			d.Write(float64(i))
		}
		// Most recent sample is 31 at delay 1; delay 2.5 sits halfway between 30 and 29.
		if got := d.ReadFractional(2.5); !approxEqual(got, 29.5, 1e-9) {
			t.Fatalf("%v: ReadFractional(2.5) = %v, want 29.5", mode, got)
		}
	}
}

func TestWriteFlushesDenormals(t *testing.T) {
	d, err := New(4, interp.ModeLinear)
	if err != nil {
		t.Fatal(err)
	}
	d.Write(1e-40)
	if got := d.Read(1); got != 0 {
		t.Fatalf("Read(1) = %v, want 0 after denormal flush", got)
	}
}

func TestReset(t *testing.T) {
	d, err := New(4, interp.ModeLinear)
	if err != nil {
		t.Fatal(err)
	}
	d.Write(1)
	d.Reset()
	for i := 1; i <= 4; i++ {
		if d.Read(i) != 0 {
			t.Fatalf("Read(%d) = %v after Reset", i, d.Read(i))
		}
	}
}
