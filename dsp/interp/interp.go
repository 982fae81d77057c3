package interp

import "fmt"

// Mode selects the interpolation kernel used for fractional reads.
type Mode int

const (
	// ModeLinear is 2-point linear interpolation.
	ModeLinear Mode = iota
	// ModeCubic is 4-point cubic Hermite interpolation.
	ModeCubic
)

func (m Mode) String() string {
	switch m {
	case ModeLinear:
		return "linear"
	case ModeCubic:
		return "cubic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Linear2 interpolates between x0 and x1 at t in [0,1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// Periodic reads one period of a cyclic table at fractional position pos.
//
// The table holds period+1 samples where the last one duplicates the first,
// so the linear path never needs a modulo. pos is wrapped into [0, period).
func Periodic(table []float64, pos float64, mode Mode) float64 {
	period := len(table) - 1
	if period <= 0 {
		if len(table) == 1 {
			return table[0]
		}
		return 0
	}

	p := float64(period)
	if pos < 0 || pos >= p {
		pos -= p * float64(int(pos/p))
		if pos < 0 {
			pos += p
		}
		if pos >= p {
			pos = 0
		}
	}

	i := int(pos)
	t := pos - float64(i)

	if mode != ModeCubic {
		return Linear2(t, table[i], table[i+1])
	}

	im1 := i - 1
	if im1 < 0 {
		im1 += period
	}
	i2 := i + 2
	if i2 > period {
		i2 -= period
	}
	return Hermite4(t, table[im1], table[i], table[i+1], table[i2])
}
