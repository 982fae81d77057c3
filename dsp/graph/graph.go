package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-synth/dsp/automation"
	"github.com/cwbudde/algo-synth/dsp/buffer"
	"github.com/cwbudde/algo-synth/dsp/core"
)

var (
	// ErrDuplicateNode is returned when a node name is already taken.
	ErrDuplicateNode = errors.New("graph: duplicate node name")
	// ErrNodeNotFound is returned by lookups of unknown names.
	ErrNodeNotFound = errors.New("graph: node not found")
	// ErrForeignNode is returned when a node does not belong to the graph.
	ErrForeignNode = errors.New("graph: node not registered in this graph")
	// ErrCycle is returned when the enabled nodes would form a cycle.
	ErrCycle = errors.New("graph: cycle detected")
)

type edge struct {
	dst      int
	param    Param
	mode     Mode
	strength float64
}

// Graph owns a set of nodes and the links between them.
//
// Topology changes and Process serialize on one mutex. Topology changes
// are rare, so the audio goroutine only waits for them while they run.
type Graph struct {
	mu       sync.Mutex
	cfg      core.ProcessorConfig
	sched    *automation.Scheduler
	registry *Registry

	nodes  []Node
	edges  [][]edge
	byName map[string]int
	output Node

	order  []Node
	sorted bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithRegistry sets the registry used by CreateNode.
func WithRegistry(r *Registry) Option {
	return func(g *Graph) {
		if r != nil {
			g.registry = r
		}
	}
}

// New returns an empty graph rendering with cfg whose nodes schedule their
// parameters on sched.
func New(cfg core.ProcessorConfig, sched *automation.Scheduler, opts ...Option) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, errors.New("graph: nil scheduler")
	}
	g := &Graph{
		cfg:      cfg,
		sched:    sched,
		registry: NewRegistry(),
		byName:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns the processing configuration.
func (g *Graph) Config() core.ProcessorConfig { return g.cfg }

// Scheduler returns the scheduler shared by the graph's nodes.
func (g *Graph) Scheduler() *automation.Scheduler { return g.sched }

// Registry returns the registry used by CreateNode.
func (g *Graph) Registry() *Registry { return g.registry }

// CreateNode builds a node of a registered kind under name.
func (g *Graph) CreateNode(kind, name string) (Node, error) {
	factory := g.registry.Lookup(kind)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return g.add(kind, name, factory)
}

// CreateNodeFunc builds a node with factory instead of a registered kind.
func (g *Graph) CreateNodeFunc(kind, name string, factory Factory) (Node, error) {
	if factory == nil {
		return nil, errors.New("graph: nil factory")
	}
	return g.add(kind, name, factory)
}

// Create is CreateNode with the result asserted to T.
func Create[T Node](g *Graph, kind, name string) (T, error) {
	var zero T
	n, err := g.CreateNode(kind, name)
	if err != nil {
		return zero, err
	}
	t, ok := n.(T)
	if !ok {
		_ = g.RemoveNode(name)
		return zero, fmt.Errorf("graph: node %q of kind %s is %T, not %T", name, kind, n, zero)
	}
	return t, nil
}

func (g *Graph) add(kind, name string, factory Factory) (Node, error) {
	if name == "" {
		return nil, errors.New("graph: empty node name")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}

	b := &Base{
		graph:   g,
		slot:    len(g.nodes),
		kind:    kind,
		name:    name,
		id:      g.sched.NewNodeID(),
		enabled: true,
		cfg:     g.cfg,
		sched:   g.sched,
		out:     buffer.New(g.cfg.InternalBlockSize()),
		inputs:  make(map[Param][]Connection),
	}
	g.sched.RegisterNode(b.id)

	n, err := factory(b)
	if err != nil {
		g.sched.UnregisterNode(b.id)
		return nil, fmt.Errorf("graph: create %s %q: %w", kind, name, err)
	}
	if n == nil || n.base() != b {
		g.sched.UnregisterNode(b.id)
		return nil, fmt.Errorf("graph: factory for %s did not return a node built on its base", kind)
	}

	g.nodes = append(g.nodes, n)
	g.edges = append(g.edges, nil)
	g.byName[name] = b.slot
	g.sorted = false

	logger.Debugf("created %s %q", kind, name)
	return n, nil
}

// RemoveNode deletes a node and every link touching it.
func (g *Graph) RemoveNode(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	n := g.nodes[slot]

	g.edges[slot] = nil
	for src, edges := range g.edges {
		g.edges[src] = deleteEdges(edges, func(e edge) bool { return e.dst == slot })
	}
	g.nodes[slot] = nil
	delete(g.byName, name)
	if g.output == n {
		g.output = nil
	}
	g.sched.UnregisterNode(n.base().id)
	n.base().graph = nil

	g.rebuild()
	_, err := g.sort()
	logger.Debugf("removed %q", name)
	return err
}

// Clear removes every node and link and unregisters the nodes from the
// scheduler. The graph stays usable.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range g.nodes {
		if n != nil {
			g.sched.UnregisterNode(n.base().id)
			n.base().graph = nil
		}
	}
	g.nodes = nil
	g.edges = nil
	clear(g.byName)
	g.output = nil
	g.order = nil
	g.sorted = false
}

// GetNode returns the node registered under name.
func (g *Graph) GetNode(name string) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return g.nodes[slot], nil
}

// Nodes returns the live nodes in creation order.
func (g *Graph) Nodes() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Node, 0, len(g.byName))
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Links returns a snapshot of the intended topology, grouped by source in
// creation order.
func (g *Graph) Links() []Link {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Link
	for src, edges := range g.edges {
		for _, e := range edges {
			out = append(out, Link{
				Source:      g.nodes[src],
				Destination: g.nodes[e.dst],
				Param:       e.param,
				Mode:        e.mode,
				Strength:    e.strength,
			})
		}
	}
	return out
}

// SetOutput designates the node the host reads after Process.
func (g *Graph) SetOutput(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.owns(n); err != nil {
		return err
	}
	g.output = n
	return nil
}

// Output returns the designated output node, or nil.
func (g *Graph) Output() Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.output
}

// OpenGates calls OpenGate on every enabled node that is Gated.
func (g *Graph) OpenGates() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if gated, ok := n.(Gated); ok && n.base().enabled {
			gated.OpenGate()
		}
	}
}

// CloseGates calls CloseGate on every enabled node that is Gated.
func (g *Graph) CloseGates() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if gated, ok := n.(Gated); ok && n.base().enabled {
			gated.CloseGate()
		}
	}
}

// Process renders one block. The order is rebuilt first if the topology
// changed. If the graph cannot be ordered every node buffer is silenced
// and the error returned.
func (g *Graph) Process(increment float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, err := g.sort()
	if err != nil {
		for _, n := range g.nodes {
			if n != nil {
				silence(n.base())
			}
		}
		return err
	}

	for _, n := range order {
		n.Process(increment)
	}
	return nil
}

func silence(b *Base) {
	b.out.Zero()
	if b.stereo != nil {
		b.stereo.Zero()
	}
}

func (g *Graph) owns(n Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrForeignNode)
	}
	b := n.base()
	if b.graph != g || b.slot >= len(g.nodes) || g.nodes[b.slot] != n {
		return fmt.Errorf("%w: %s", ErrForeignNode, b.name)
	}
	return nil
}

func deleteEdges(edges []edge, drop func(edge) bool) []edge {
	kept := edges[:0]
	for _, e := range edges {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	return kept
}
