package automation

import (
	"container/heap"
	"math"
)

type eventKind uint8

const (
	kindSet eventKind = iota
	kindLinear
	kindExponential
)

func (k eventKind) String() string {
	switch k {
	case kindSet:
		return "set"
	case kindLinear:
		return "linear"
	case kindExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// event is a pending change for one (node, param) pair. Positions are
// absolute sample indices. For kindSet, end equals start and only target
// is used.
type event struct {
	kind       eventKind
	start      int64
	end        int64
	startValue float64
	target     float64
	seq        uint64
	index      int
}

// valueAt returns the ramp value at absolute sample s, start <= s <= end.
func (e *event) valueAt(s int64) float64 {
	if e.kind == kindSet || s >= e.end {
		return e.target
	}
	t := float64(s-e.start) / float64(e.end-e.start)
	if t <= 0 {
		return e.startValue
	}
	if e.kind == kindExponential {
		v := e.startValue * math.Pow(e.target/e.startValue, t)
		return math.Max(v, MinExponentialValue)
	}
	return e.startValue + t*(e.target-e.startValue)
}

// eventQueue is a min-heap ordered by (start, seq).
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].start != q[j].start {
		return q[i].start < q[j].start
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	e := x.(*event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// removeFrom drops every event starting at or after pos and hands each to
// release. It returns the number removed.
func (q *eventQueue) removeFrom(pos int64, release func(*event)) int {
	kept := (*q)[:0]
	removed := 0
	for _, e := range *q {
		if e.start >= pos {
			release(e)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(*q); i++ {
		(*q)[i] = nil
	}
	*q = kept
	if removed > 0 {
		for i, e := range *q {
			e.index = i
		}
		heap.Init(q)
	}
	return removed
}

// eventPool is a free list of retired events. It is owned by one node and
// guarded by that node's mutex.
type eventPool struct {
	free []*event
}

func (p *eventPool) get() *event {
	if n := len(p.free); n > 0 {
		e := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return e
	}
	return &event{}
}

func (p *eventPool) put(e *event) {
	*e = event{index: -1}
	p.free = append(p.free, e)
}
