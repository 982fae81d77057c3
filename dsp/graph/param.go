package graph

import (
	"fmt"

	"github.com/cwbudde/algo-synth/dsp/automation"
)

// Param identifies a node input. It is shared with the scheduler so the
// same identifier names both the connection slot and the automation lane.
type Param = automation.Param

// Well-known parameters.
const (
	ParamInput Param = iota
	ParamFrequency
	ParamAmplitude
	ParamPitch
	ParamPhase
	ParamGain
	ParamCutoff
	ParamResonance
	ParamPan
	ParamFeedback
	ParamMix
	ParamEnvelope
)

var paramNames = map[Param]string{
	ParamInput:     "input",
	ParamFrequency: "frequency",
	ParamAmplitude: "amplitude",
	ParamPitch:     "pitch",
	ParamPhase:     "phase",
	ParamGain:      "gain",
	ParamCutoff:    "cutoff",
	ParamResonance: "resonance",
	ParamPan:       "pan",
	ParamFeedback:  "feedback",
	ParamMix:       "mix",
	ParamEnvelope:  "envelope",
}

// ParamName returns a readable name for p.
func ParamName(p Param) string {
	if s, ok := paramNames[p]; ok {
		return s
	}
	return fmt.Sprintf("param(%d)", int(p))
}

// Mode selects how a connection combines with the others on a parameter.
type Mode int

const (
	// ModeAdd sums the scaled source into the additive term.
	ModeAdd Mode = iota
	// ModeMultiply multiplies the scaled source into the multiplicative term.
	ModeMultiply
)

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeMultiply:
		return "multiply"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Connection is one live modulation input of a node parameter.
type Connection struct {
	Source   Node
	Mode     Mode
	Strength float64
}

// Link is one edge of the intended topology, independent of which nodes
// are enabled.
type Link struct {
	Source      Node
	Destination Node
	Param       Param
	Mode        Mode
	Strength    float64
}

// Aggregate combines conns at sample i. The additive term starts at def
// and the multiplicative term at 1.
func Aggregate(conns []Connection, i int, def float64) (add, mul float64) {
	add, mul = def, 1
	for _, c := range conns {
		v := c.Source.base().out.At(i) * c.Strength
		if c.Mode == ModeMultiply {
			mul *= v
		} else {
			add += v
		}
	}
	return add, mul
}

// AggregateStereo is Aggregate for stereo destinations. Stereo sources
// contribute their own channels; mono sources feed both sides. Multiply
// connections read the mono buffer.
func AggregateStereo(conns []Connection, i int, def float64) (left, right, mul float64) {
	left, right, mul = def, def, 1
	for _, c := range conns {
		b := c.Source.base()
		if c.Mode == ModeMultiply {
			mul *= b.out.At(i) * c.Strength
			continue
		}
		if b.stereo != nil {
			left += b.stereo.Left.At(i) * c.Strength
			right += b.stereo.Right.At(i) * c.Strength
			continue
		}
		v := b.out.At(i) * c.Strength
		left += v
		right += v
	}
	return left, right, mul
}
