// Package demo holds the phrase the command line hosts play when no
// controller is attached.
package demo

import (
	"cmp"
	"slices"
)

// Event is a note on (Velocity > 0) or note off (Velocity == 0) at a time
// in seconds from the start of the phrase.
type Event struct {
	At       float64
	Note     int
	Velocity int
}

type step struct {
	beat, length float64
	note, vel    int
}

// chords are voiced around middle C: Am, F, C, G.
var chords = [][]int{
	{57, 60, 64},
	{53, 57, 60},
	{48, 55, 64},
	{55, 59, 62},
}

// Phrase returns a four-bar arpeggio over a pad, sorted by time. Note offs
// sort before note ons at the same instant.
func Phrase(bpm float64) []Event {
	if bpm <= 0 {
		bpm = 120
	}
	spb := 60 / bpm

	var steps []step
	for bar, chord := range chords {
		start := float64(4 * bar)
		for _, n := range chord {
			steps = append(steps, step{start, 3.5, n - 12, 70})
		}
		for i := range 8 {
			n := chord[i%len(chord)] + 12*(i/len(chord)%2)
			steps = append(steps, step{start + 0.5*float64(i), 0.4, n, 90 + 4*(i%2)})
		}
	}

	events := make([]Event, 0, 2*len(steps))
	for _, s := range steps {
		events = append(events,
			Event{At: s.beat * spb, Note: s.note, Velocity: s.vel},
			Event{At: (s.beat + s.length) * spb, Note: s.note})
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.At, b.At); c != 0 {
			return c
		}
		return cmp.Compare(a.Velocity, b.Velocity)
	})
	return events
}

// Duration returns the time of the last event.
func Duration(events []Event) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].At
}
