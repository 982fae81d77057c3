package automation

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-synth/dsp/core"
)

var (
	// ErrNotRegistered is returned for (node, param) pairs the scheduler
	// does not know.
	ErrNotRegistered = errors.New("automation: parameter not registered")
	// ErrNonPositiveExponential is returned when an exponential ramp would
	// start or end at a value <= 0.
	ErrNonPositiveExponential = errors.New("automation: exponential ramp requires positive values")
	// ErrInvalidTime is returned for negative, NaN or infinite times.
	ErrInvalidTime = errors.New("automation: invalid time")
)

// MinExponentialValue is the floor applied to exponential ramp values.
const MinExponentialValue = 1e-6

// NodeID identifies a node registered with a Scheduler.
type NodeID int64

// Param identifies one automatable parameter of a node.
type Param int

type paramState struct {
	def    float64
	value  float64
	values []float64
	queue  eventQueue
}

type nodeState struct {
	mu     sync.Mutex
	params map[Param]*paramState
	pool   eventPool
}

// Scheduler turns scheduled parameter events into per-sample values.
//
// The registry of nodes is guarded by a read-write lock that is only taken
// for writing on registration changes and Reset. Event mutation and
// rendering for one node hold that node's mutex, so control calls for
// different nodes never contend.
type Scheduler struct {
	mu         sync.RWMutex
	nodes      map[NodeID]*nodeState
	sampleRate float64
	blockSize  int

	cursor atomic.Int64
	seq    atomic.Uint64
	nextID atomic.Int64
}

// New returns a scheduler rendering blockSize values per Process call at
// sampleRate.
func New(sampleRate float64, blockSize int) (*Scheduler, error) {
	if err := validate(sampleRate, blockSize); err != nil {
		return nil, err
	}
	return &Scheduler{
		nodes:      make(map[NodeID]*nodeState),
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}, nil
}

// NewFromConfig returns a scheduler running at the internal rate and block
// size of cfg.
func NewFromConfig(cfg core.ProcessorConfig) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.InternalRate(), cfg.InternalBlockSize())
}

func validate(sampleRate float64, blockSize int) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate %g", core.ErrInvalidConfig, sampleRate)
	}
	if blockSize <= 0 {
		return fmt.Errorf("%w: block size %d", core.ErrInvalidConfig, blockSize)
	}
	return nil
}

// Reset changes the rate and block size, drops every pending event, returns
// all parameters to their defaults and rewinds the cursor to zero.
// Registrations are kept.
func (s *Scheduler) Reset(sampleRate float64, blockSize int) error {
	if err := validate(sampleRate, blockSize); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sampleRate = sampleRate
	s.blockSize = blockSize
	s.cursor.Store(0)

	for _, n := range s.nodes {
		n.mu.Lock()
		for _, p := range n.params {
			p.queue.removeFrom(math.MinInt64, n.pool.put)
			p.value = p.def
			p.values = core.EnsureLen(p.values, blockSize)
			core.Fill(p.values, p.def)
		}
		n.mu.Unlock()
	}

	logger.Debugf("reset: rate=%g block=%d nodes=%d", sampleRate, blockSize, len(s.nodes))
	return nil
}

// SampleRate returns the rendering rate.
func (s *Scheduler) SampleRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sampleRate
}

// BlockSize returns the number of values rendered per Process call.
func (s *Scheduler) BlockSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blockSize
}

// CurrentSample returns the absolute sample position of the next block.
func (s *Scheduler) CurrentSample() int64 { return s.cursor.Load() }

// Now returns CurrentSample in seconds.
func (s *Scheduler) Now() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.cursor.Load()) / s.sampleRate
}

// NewNodeID returns a handle that has never been returned before.
func (s *Scheduler) NewNodeID() NodeID {
	return NodeID(s.nextID.Add(1))
}

// RegisterNode declares params for id with default value 0. Pairs that are
// already registered are left untouched.
func (s *Scheduler) RegisterNode(id NodeID, params ...Param) {
	for _, p := range params {
		s.RegisterParam(id, p, 0)
	}
	if len(params) == 0 {
		s.mu.Lock()
		s.node(id)
		s.mu.Unlock()
	}
}

// RegisterParam declares one parameter of id with a default value. It is a
// no-op if the pair is already registered.
func (s *Scheduler) RegisterParam(id NodeID, param Param, def float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.node(id)
	if _, ok := n.params[param]; ok {
		return
	}
	values := make([]float64, s.blockSize)
	core.Fill(values, def)
	n.params[param] = &paramState{def: def, value: def, values: values}
}

// node returns the state for id, creating it. Callers hold s.mu for writing.
func (s *Scheduler) node(id NodeID) *nodeState {
	n, ok := s.nodes[id]
	if !ok {
		n = &nodeState{params: make(map[Param]*paramState)}
		s.nodes[id] = n
	}
	return n
}

// UnregisterNode forgets id and all of its pending events.
func (s *Scheduler) UnregisterNode(id NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// Registered reports whether the pair is known.
func (s *Scheduler) Registered(id NodeID, param Param) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	_, ok = n.params[param]
	return ok
}

// Params returns the registered parameters of id in ascending order.
func (s *Scheduler) Params(id NodeID) []Param {
	s.mu.RLock()
	n, ok := s.nodes[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Param, 0, len(n.params))
	for p := range n.params {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// locked looks up a pair and calls fn with the node mutex held. pos is the
// cursor and rate the sample rate at the time of the call.
func (s *Scheduler) locked(id NodeID, param Param, fn func(n *nodeState, p *paramState, now int64, rate float64) error) error {
	s.mu.RLock()
	rate := s.sampleRate
	n, ok := s.nodes[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNotRegistered, id)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.params[param]
	if !ok {
		return fmt.Errorf("%w: node %d param %d", ErrNotRegistered, id, param)
	}
	return fn(n, p, s.cursor.Load(), rate)
}

func toSample(t, rate float64) (int64, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidTime, t)
	}
	return int64(math.Round(t * rate)), nil
}

func (s *Scheduler) push(n *nodeState, p *paramState, kind eventKind, start, end int64, from, to float64) {
	e := n.pool.get()
	e.kind = kind
	e.start = start
	e.end = end
	e.startValue = from
	e.target = to
	e.seq = s.seq.Add(1)
	heap.Push(&p.queue, e)
}

// current returns the value the pair has at sample now: the last rendered
// value, overridden by the latest-scheduled event that has already begun.
func current(p *paramState, now int64) float64 {
	v := p.value
	var last *event
	for _, e := range p.queue {
		if e.start <= now && (last == nil || e.seq > last.seq) {
			last = e
		}
	}
	if last != nil {
		v = last.valueAt(now)
	}
	return v
}

// SetValue sets the pair to value at the current cursor.
func (s *Scheduler) SetValue(id NodeID, param Param, value float64) error {
	return s.locked(id, param, func(n *nodeState, p *paramState, now int64, _ float64) error {
		p.queue.removeFrom(now, n.pool.put)
		s.push(n, p, kindSet, now, now, value, value)
		return nil
	})
}

// ScheduleValueAtTime cancels events at or after t and sets the pair to
// value at t. Times in the past take effect at the next rendered sample.
func (s *Scheduler) ScheduleValueAtTime(id NodeID, param Param, value, t float64) error {
	return s.locked(id, param, func(n *nodeState, p *paramState, now int64, rate float64) error {
		pos, err := toSample(t, rate)
		if err != nil {
			return err
		}
		pos = max(pos, now)
		p.queue.removeFrom(pos, n.pool.put)
		s.push(n, p, kindSet, pos, pos, value, value)
		return nil
	})
}

// LinearRampToValueAtTime cancels events from now on and ramps linearly
// from the current value to target, arriving at endTime.
func (s *Scheduler) LinearRampToValueAtTime(id NodeID, param Param, target, endTime float64) error {
	return s.ramp(id, param, kindLinear, target, endTime)
}

// ExponentialRampToValueAtTime is LinearRampToValueAtTime with geometric
// interpolation. Both the current value and target must be positive.
func (s *Scheduler) ExponentialRampToValueAtTime(id NodeID, param Param, target, endTime float64) error {
	return s.ramp(id, param, kindExponential, target, endTime)
}

func (s *Scheduler) ramp(id NodeID, param Param, kind eventKind, target, endTime float64) error {
	return s.locked(id, param, func(n *nodeState, p *paramState, now int64, rate float64) error {
		end, err := toSample(endTime, rate)
		if err != nil {
			return err
		}

		from := current(p, now)
		if kind == kindExponential {
			if !(from > 0) || !(target > 0) {
				return fmt.Errorf("%w: %g -> %g", ErrNonPositiveExponential, from, target)
			}
			from = math.Max(from, MinExponentialValue)
			target = math.Max(target, MinExponentialValue)
		}

		p.queue.removeFrom(now, n.pool.put)
		if end <= now {
			s.push(n, p, kindSet, now, now, target, target)
			return nil
		}
		s.push(n, p, kind, now, end, from, target)
		return nil
	})
}

// QueueLinearRamp appends a linear ramp that starts where the last pending
// event ends, or at the cursor when nothing is pending, and arrives at
// target at endTime. Unlike LinearRampToValueAtTime it cancels nothing, so
// successive calls chain into a multi-segment curve.
func (s *Scheduler) QueueLinearRamp(id NodeID, param Param, target, endTime float64) error {
	return s.queue(id, param, kindLinear, target, endTime)
}

// QueueExponentialRamp is QueueLinearRamp with geometric interpolation.
func (s *Scheduler) QueueExponentialRamp(id NodeID, param Param, target, endTime float64) error {
	return s.queue(id, param, kindExponential, target, endTime)
}

func (s *Scheduler) queue(id NodeID, param Param, kind eventKind, target, endTime float64) error {
	return s.locked(id, param, func(n *nodeState, p *paramState, now int64, rate float64) error {
		end, err := toSample(endTime, rate)
		if err != nil {
			return err
		}

		start, from := now, p.value
		// The event applied last holds the value, whatever its end.
		var tail *event
		for _, e := range p.queue {
			if tail == nil || e.start > tail.start || (e.start == tail.start && e.seq > tail.seq) {
				tail = e
			}
		}
		if tail != nil {
			start, from = max(tail.end, now), tail.target
		}

		if kind == kindExponential {
			if !(from > 0) || !(target > 0) {
				return fmt.Errorf("%w: %g -> %g", ErrNonPositiveExponential, from, target)
			}
			from = math.Max(from, MinExponentialValue)
			target = math.Max(target, MinExponentialValue)
		}

		if end <= start {
			s.push(n, p, kindSet, start, start, target, target)
			return nil
		}
		s.push(n, p, kind, start, end, from, target)
		return nil
	})
}

// CancelScheduledValues removes events starting at or after t. The pair
// holds whatever value it reaches when the last remaining event ends.
func (s *Scheduler) CancelScheduledValues(id NodeID, param Param, t float64) error {
	return s.locked(id, param, func(n *nodeState, p *paramState, now int64, rate float64) error {
		pos, err := toSample(t, rate)
		if err != nil {
			return err
		}
		p.queue.removeFrom(max(pos, now), n.pool.put)
		return nil
	})
}

// Pending returns the number of events waiting for the pair.
func (s *Scheduler) Pending(id NodeID, param Param) int {
	count := 0
	_ = s.locked(id, param, func(_ *nodeState, p *paramState, _ int64, _ float64) error {
		count = p.queue.Len()
		return nil
	})
	return count
}

// Value returns the pair's value at the cursor, which is the value the last
// Process call ended on, or def when the pair is unknown.
func (s *Scheduler) Value(id NodeID, param Param, def float64) float64 {
	v := def
	_ = s.locked(id, param, func(_ *nodeState, p *paramState, _ int64, _ float64) error {
		v = p.value
		return nil
	})
	return v
}

// Values returns the rendered buffer of the pair, or nil when unknown. The
// slice is overwritten by the next Process call.
func (s *Scheduler) Values(id NodeID, param Param) []float64 {
	var out []float64
	_ = s.locked(id, param, func(_ *nodeState, p *paramState, _ int64, _ float64) error {
		out = p.values
		return nil
	})
	return out
}

// GetValueAtSample returns the rendered value at offset i of the current
// block, falling back to the last value when i is out of range and to def
// when the pair is unknown.
func (s *Scheduler) GetValueAtSample(id NodeID, param Param, i int, def float64) float64 {
	v := def
	_ = s.locked(id, param, func(_ *nodeState, p *paramState, _ int64, _ float64) error {
		if i >= 0 && i < len(p.values) {
			v = p.values[i]
		} else {
			v = p.value
		}
		return nil
	})
	return v
}
