package automation

import (
	"container/heap"

	"github.com/cwbudde/algo-synth/dsp/core"
)

// Process renders one block of values for every registered pair and
// advances the cursor by the block size. It is called once per block from
// the audio goroutine, before any node reads its values.
func (s *Scheduler) Process() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := s.cursor.Load()
	for _, n := range s.nodes {
		n.mu.Lock()
		for _, p := range n.params {
			p.values = core.EnsureLen(p.values, s.blockSize)
			render(p, &n.pool, pos)
		}
		n.mu.Unlock()
	}
	s.cursor.Add(int64(s.blockSize))
}

// render fills p.values for the block starting at absolute sample pos.
//
// A set applies from its start sample. A ramp runs until it ends, the next
// event starts, or the block ends, whichever comes first; in the last case
// it is re-queued starting at the next block with the value it reached.
func render(p *paramState, pool *eventPool, pos int64) {
	buf := p.values
	n := len(buf)
	blockEnd := pos + int64(n)
	v := p.value

	i := 0
	for i < n {
		if p.queue.Len() == 0 {
			core.Fill(buf[i:], v)
			break
		}

		e := p.queue[0]
		at := pos + int64(i)
		if e.start > at {
			stop := n
			if e.start < blockEnd {
				stop = int(e.start - pos)
			}
			core.Fill(buf[i:stop], v)
			i = stop
			continue
		}

		heap.Pop(&p.queue)
		if e.kind == kindSet {
			v = e.target
			pool.put(e)
			continue
		}

		stop := blockEnd
		superseded := false
		if p.queue.Len() > 0 && p.queue[0].start < stop {
			stop = p.queue[0].start
			superseded = true
		}
		finished := e.end <= stop
		if finished {
			stop = e.end
		}

		for s := at; s < stop; s++ {
			buf[i] = e.valueAt(s)
			i++
		}

		switch {
		case finished:
			v = e.target
			pool.put(e)
		case superseded:
			v = e.valueAt(stop)
			pool.put(e)
		default:
			v = e.valueAt(stop)
			e.startValue = v
			e.start = stop
			heap.Push(&p.queue, e)
		}
	}

	p.value = v
}
