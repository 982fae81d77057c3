package synth

import (
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-synth/dsp/core"
)

// Controller numbers handled by HandleMIDI.
const (
	CCModWheel    = 1
	CCBrightness  = 74
	CCAllNotesOff = 123
)

const minCCCutoff = 20.0

// HandleMIDI applies one MIDI message. Note on and off play voices on any
// channel; the mod wheel sets the vibrato depth up to MaxVibrato, the
// brightness controller sweeps the filter cutoff exponentially, and the
// all-notes-off controller releases every voice. Other messages are
// ignored.
func (e *Engine) HandleMIDI(msg midi.Message) error {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return e.NoteOn(int(key), int(vel))
	case msg.GetNoteEnd(&ch, &key):
		return e.NoteOff(int(key))
	case msg.GetControlChange(&ch, &cc, &val):
		return e.controlChange(cc, val)
	}
	logger.Tracef("ignored MIDI message %s", msg)
	return nil
}

func (e *Engine) controlChange(cc, val uint8) error {
	switch cc {
	case CCModWheel:
		return e.SetVibrato(MaxVibrato * float64(val) / 127)
	case CCBrightness:
		return e.SetCutoff(ccCutoff(val, e.ctx.cfg.InternalRate()))
	case CCAllNotesOff:
		e.AllNotesOff()
	default:
		logger.Tracef("ignored controller %d", cc)
	}
	return nil
}

// ccCutoff maps a controller value onto 20 Hz to min(18 kHz, 0.45 rate)
// on an exponential curve.
func ccCutoff(val uint8, rate float64) float64 {
	hi := math.Min(18000, 0.45*rate)
	hz := minCCCutoff * math.Pow(hi/minCCCutoff, float64(val)/127)
	return core.Clamp(hz, minCCCutoff, hi)
}
