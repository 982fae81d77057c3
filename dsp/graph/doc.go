// Package graph implements the node graph that renders a synth voice.
//
// A [Graph] owns its nodes. Every node embeds [*Base], which carries the
// node's output buffer, its enabled flag and the live set of incoming
// parameter connections. Links added with [Graph.Connect] form the intended
// topology; the live connections are derived from it whenever the
// topology or the set of enabled nodes changes. When a node is disabled,
// links into it are rerouted to its nearest enabled descendant so a
// bypassed stage does not break the signal path.
//
// [Graph.Process] renders one block by calling Process on every enabled
// node in dependency order. The parameter scheduler must be processed for
// the block before the graph is.
package graph

import "github.com/juju/loggo"

var logger = loggo.GetLogger("synth.graph")
