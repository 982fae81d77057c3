package graph

import (
	"fmt"
	"slices"
)

// Connect links src's output to param of dst. Connecting an existing
// (src, dst, param) triple again is a no-op. A link that would close a
// cycle among enabled nodes is rejected with ErrCycle and not added.
func (g *Graph) Connect(src, dst Node, param Param, mode Mode, strength float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.owns(src); err != nil {
		return err
	}
	if err := g.owns(dst); err != nil {
		return err
	}
	s, d := src.base().slot, dst.base().slot
	if s == d {
		return fmt.Errorf("%w: %s feeds itself", ErrCycle, src.base().name)
	}
	for _, e := range g.edges[s] {
		if e.dst == d && e.param == param {
			return nil
		}
	}

	prev := g.edges[s]
	g.edges[s] = append(slices.Clip(prev), edge{dst: d, param: param, mode: mode, strength: strength})
	if err := g.commit(); err != nil {
		g.edges[s] = prev
		g.rollback()
		return err
	}

	logger.Debugf("connected %s -> %s.%s (%s %g)", src.base().name, dst.base().name, ParamName(param), mode, strength)
	return nil
}

// Disconnect removes the link from src to param of dst, if any.
func (g *Graph) Disconnect(src, dst Node, param Param) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.owns(src); err != nil {
		return err
	}
	if err := g.owns(dst); err != nil {
		return err
	}
	s, d := src.base().slot, dst.base().slot
	n := len(g.edges[s])
	g.edges[s] = deleteEdges(g.edges[s], func(e edge) bool { return e.dst == d && e.param == param })
	if len(g.edges[s]) == n {
		return nil
	}

	// Removing an edge cannot create a cycle.
	_ = g.commit()
	logger.Debugf("disconnected %s -> %s.%s", src.base().name, dst.base().name, ParamName(param))
	return nil
}

// SetNodeEnabled enables or disables n. Links into a disabled node are
// rerouted to its nearest enabled descendant; links out of it are
// dropped until it is enabled again.
func (g *Graph) SetNodeEnabled(n Node, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.owns(n); err != nil {
		return err
	}
	b := n.base()
	if b.enabled == enabled {
		return nil
	}

	b.enabled = enabled
	if err := g.commit(); err != nil {
		b.enabled = !enabled
		g.rollback()
		return err
	}

	logger.Debugf("%s enabled=%v", b.name, enabled)
	return nil
}

// TopologicalSortWorkingGraph returns the enabled nodes ordered so every
// node comes after the nodes it reads from.
func (g *Graph) TopologicalSortWorkingGraph() ([]Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, err := g.sort()
	if err != nil {
		return nil, err
	}
	return slices.Clone(order), nil
}

// commit rebuilds the live connections and the processing order.
func (g *Graph) commit() error {
	g.rebuild()
	_, err := g.sort()
	return err
}

// rollback restores live state after the caller undid a change that
// commit rejected. The previous topology was acyclic, so this cannot fail.
func (g *Graph) rollback() {
	g.rebuild()
	if _, err := g.sort(); err != nil {
		logger.Errorf("rollback left an unsortable graph: %v", err)
	}
}

// rebuild derives every node's live connections from the links.
func (g *Graph) rebuild() {
	for _, n := range g.nodes {
		if n != nil {
			n.base().clearInputs()
		}
	}

	visited := make([]bool, len(g.nodes))
	for s, edges := range g.edges {
		src := g.nodes[s]
		if src == nil || !src.base().enabled {
			continue
		}
		for _, e := range edges {
			dst, param := e.dst, e.param
			if !g.nodes[dst].base().enabled {
				clear(visited)
				var ok bool
				dst, param, ok = g.reroute(s, e.dst, visited)
				if !ok {
					continue
				}
			}
			g.nodes[dst].base().attach(param, Connection{Source: src, Mode: e.mode, Strength: e.strength})
		}
	}
	g.sorted = false
}

// reroute searches depth-first below the disabled node at slot from for
// the first enabled node that src does not already equal. It returns that
// node's slot and the parameter the final link enters it on.
func (g *Graph) reroute(src, from int, visited []bool) (int, Param, bool) {
	visited[from] = true
	for _, e := range g.edges[from] {
		if visited[e.dst] || e.dst == src {
			continue
		}
		if g.nodes[e.dst].base().enabled {
			return e.dst, e.param, true
		}
		if dst, param, ok := g.reroute(src, e.dst, visited); ok {
			return dst, param, true
		}
	}
	return 0, 0, false
}

const (
	unvisited = iota
	onStack
	done
)

// sort returns the cached order, recomputing it if the topology changed.
func (g *Graph) sort() ([]Node, error) {
	if g.sorted {
		return g.order, nil
	}

	state := make([]uint8, len(g.nodes))
	order := g.order[:0]

	var visit func(slot int) error
	visit = func(slot int) error {
		switch state[slot] {
		case done:
			return nil
		case onStack:
			return fmt.Errorf("%w: through %s", ErrCycle, g.nodes[slot].base().name)
		}
		state[slot] = onStack

		b := g.nodes[slot].base()
		for _, p := range b.inputParams {
			for _, c := range b.inputs[p] {
				if err := visit(c.Source.base().slot); err != nil {
					return err
				}
			}
		}

		state[slot] = done
		order = append(order, g.nodes[slot])
		return nil
	}

	for slot, n := range g.nodes {
		if n == nil || !n.base().enabled {
			continue
		}
		if err := visit(slot); err != nil {
			g.order = order[:0]
			return nil, err
		}
	}

	g.order = order
	g.sorted = true
	return order, nil
}
