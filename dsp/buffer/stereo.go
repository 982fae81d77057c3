package buffer

// Stereo is a pair of equally sized channel buffers.
type Stereo struct {
	Left  *Buffer
	Right *Buffer
}

// NewStereo returns a zero-filled stereo buffer with n frames.
func NewStereo(n int) *Stereo {
	return &Stereo{Left: New(n), Right: New(n)}
}

// Len returns the number of frames.
func (s *Stereo) Len() int {
	return s.Left.Len()
}

// Resize resizes both channels to n frames.
func (s *Stereo) Resize(n int) {
	s.Left.Resize(n)
	s.Right.Resize(n)
}

// Zero clears both channels.
func (s *Stereo) Zero() {
	s.Left.Zero()
	s.Right.Zero()
}

// Mix accumulates left and right into the buffer. Both slices must have
// Len() samples.
func (s *Stereo) Mix(left, right []float64) {
	s.Left.Add(left)
	s.Right.Add(right)
}

// Scale multiplies both channels by gain.
func (s *Stereo) Scale(gain float64) {
	s.Left.Scale(gain)
	s.Right.Scale(gain)
}

// Interleave writes the frames as L,R pairs into dst and returns the number
// of frames written.
func (s *Stereo) Interleave(dst []float32) int {
	left := s.Left.Samples()
	right := s.Right.Samples()
	n := min(len(left), len(dst)/2)
	for i := range n {
		dst[2*i] = float32(left[i])
		dst[2*i+1] = float32(right[i])
	}
	return n
}
