package audiocore

import "fmt"

// Graph is the ordered node list plus connection set from spec.md §3: the
// engine precomputes a topological order once per reconfiguration and
// consults nothing else at runtime. Standard-library-only: topological
// sort is a generic graph algorithm with no domain-specific third-party
// library in the example corpus (see DESIGN.md).
type Graph struct {
	nodes       map[string]Node
	connections []Connection

	// order is the single topological order across every node. Because
	// sources have no input pads and sinks have no output pads, any cycle
	// necessarily involves only processor nodes, so one Kahn pass over
	// the whole graph both detects cycles and yields an order in which
	// sources precede the processors that consume them and sinks follow
	// the processors that feed them (spec.md §4.6 step 6).
	order []string

	// incoming maps each (node, pad) to the connection feeding it, used
	// to reject duplicate sink connections and to resolve tick inputs.
	incoming map[sinkKey]Connection
	// outgoing maps each (node, pad) to its fan-out connections.
	outgoing map[sourceKey][]Connection
}

// BuildGraph validates and orders a node set and connection set per
// spec.md §3 and §4.6 step 1/6.
func BuildGraph(nodes []Node, connections []Connection) (*Graph, error) {
	byName := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byName[n.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate node name %q", ErrUnknownNode, n.Name())
		}
		byName[n.Name()] = n
	}

	incoming := make(map[sinkKey]Connection, len(connections))
	outgoing := make(map[sourceKey][]Connection, len(connections))

	for _, c := range connections {
		if c.isSelfLoop() {
			return nil, fmt.Errorf("%w: node %q", ErrSelfLoop, c.SourceNode)
		}
		src, ok := byName[c.SourceNode]
		if !ok {
			return nil, fmt.Errorf("%w: %q (connection source)", ErrUnknownNode, c.SourceNode)
		}
		dst, ok := byName[c.SinkNode]
		if !ok {
			return nil, fmt.Errorf("%w: %q (connection sink)", ErrUnknownNode, c.SinkNode)
		}
		if c.SourcePad < 0 || c.SourcePad >= src.OutputPadCount() {
			return nil, fmt.Errorf("%w: %q output pad %d", ErrUnknownNode, c.SourceNode, c.SourcePad)
		}
		if c.SinkPad < 0 || c.SinkPad >= dst.InputPadCount() {
			return nil, fmt.Errorf("%w: %q input pad %d", ErrUnknownNode, c.SinkNode, c.SinkPad)
		}

		sk := sinkKey{node: c.SinkNode, pad: c.SinkPad}
		if _, dup := incoming[sk]; dup {
			return nil, fmt.Errorf("%w: %q pad %d", ErrDuplicateSink, c.SinkNode, c.SinkPad)
		}
		incoming[sk] = c

		so := sourceKey{node: c.SourceNode, pad: c.SourcePad}
		outgoing[so] = append(outgoing[so], c)
	}

	// Fan-out edges (a source pad feeding more than one sink) must declare
	// shared_ref so the ref count is bumped per edge (spec.md §3).
	for so, edges := range outgoing {
		if len(edges) > 1 {
			for _, e := range edges {
				if e.Policy != BufferPolicySharedRef && e.Policy != BufferPolicyAuto {
					return nil, fmt.Errorf("%w: %q pad %d fans out without shared_ref", ErrDuplicateSink, so.node, so.pad)
				}
			}
		}
	}

	order, err := topologicalOrder(byName, incoming)
	if err != nil {
		return nil, err
	}

	return &Graph{
		nodes:       byName,
		connections: connections,
		order:       order,
		incoming:    incoming,
		outgoing:    outgoing,
	}, nil
}

// topologicalOrder runs Kahn's algorithm over the node/edge graph implied
// by incoming. A node with indegree never reduced to zero indicates a
// cycle (spec.md §8 scenario 6: "expect engine.load_config to fail... naming
// both nodes").
func topologicalOrder(nodes map[string]Node, incoming map[sinkKey]Connection) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	adj := make(map[string][]string, len(nodes))
	for name := range nodes {
		indegree[name] = 0
	}
	for _, c := range incoming {
		indegree[c.SinkNode]++
		adj[c.SourceNode] = append(adj[c.SourceNode], c.SinkNode)
	}

	var queue []string
	for name, d := range indegree {
		if d == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range adj[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(nodes) {
		var stuck []string
		for name, d := range indegree {
			if d > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrGraphHasCycle, stuck)
	}
	return order, nil
}

// Order returns the precomputed topological node-name order.
func (g *Graph) Order() []string { return append([]string(nil), g.order...) }

// Node returns the named node, or nil if unknown.
func (g *Graph) Node(name string) Node { return g.nodes[name] }

// Nodes returns every node in the graph, in no particular order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// IncomingTo returns the connection feeding (node, pad), if any.
func (g *Graph) IncomingTo(node string, pad int) (Connection, bool) {
	c, ok := g.incoming[sinkKey{node: node, pad: pad}]
	return c, ok
}

// OutgoingFrom returns the connections fed by (node, pad).
func (g *Graph) OutgoingFrom(node string, pad int) []Connection {
	return g.outgoing[sourceKey{node: node, pad: pad}]
}
