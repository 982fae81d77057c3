package demo

import (
	"math"
	"testing"
)

func TestPhraseBalanced(t *testing.T) {
	events := Phrase(120)
	if len(events) == 0 {
		t.Fatal("empty phrase")
	}

	held := map[int]int{}
	for i, e := range events {
		if i > 0 && e.At < events[i-1].At {
			t.Fatalf("event %d at %g before %g", i, e.At, events[i-1].At)
		}
		if e.Note < 0 || e.Note > 127 || e.Velocity < 0 || e.Velocity > 127 {
			t.Fatalf("event %d out of range: %+v", i, e)
		}
		if e.Velocity > 0 {
			held[e.Note]++
		} else {
			held[e.Note]--
		}
	}
	for n, c := range held {
		if c != 0 {
			t.Fatalf("note %d unbalanced by %d", n, c)
		}
	}
}

func TestPhraseTempo(t *testing.T) {
	// The last arpeggio note ends 15.9 beats in.
	if got := Duration(Phrase(120)); math.Abs(got-7.95) > 1e-9 {
		t.Fatalf("Duration at 120 bpm = %g, want 7.95", got)
	}
	if got := Duration(Phrase(60)); math.Abs(got-15.9) > 1e-9 {
		t.Fatalf("Duration at 60 bpm = %g, want 15.9", got)
	}
	if got, want := Duration(Phrase(0)), Duration(Phrase(120)); got != want {
		t.Fatalf("Duration with default tempo = %g, want %g", got, want)
	}
	if Duration(nil) != 0 {
		t.Fatal("Duration(nil) != 0")
	}
}
