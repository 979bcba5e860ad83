package entities

import "fmt"

// FlowNode is one candidate at one round layer. Value is the candidate's vote
// count when the node was appended; it is only recorded for the first two
// layers, matching the export contract consumed by the visualization tooling.
type FlowNode struct {
	Name  string
	Layer int
	Value int
}

// FlowLink moves votes between two nodes identified by their positions in the
// node list.
type FlowLink struct {
	Source int
	Target int
	Value  int
}

type nodeKey struct {
	name  string
	layer int
}

// FlowGraph records the round-by-round vote-flow topology of a tabulation.
// Node identity is the (candidate, layer) pair; the graph keeps an explicit
// index from that pair to the node's position so links never resolve by
// searching the node list.
type FlowGraph struct {
	nodes []FlowNode
	links []FlowLink
	index map[nodeKey]int
}

func NewFlowGraph() *FlowGraph {
	return &FlowGraph{
		index: make(map[nodeKey]int),
	}
}

// AddNode appends a node for candidate name at the given layer. The first
// node appended for a (name, layer) pair wins; duplicates are ignored so the
// index stays consistent with node positions.
func (g *FlowGraph) AddNode(name string, layer int, value int) {
	key := nodeKey{name: name, layer: layer}
	if _, ok := g.index[key]; ok {
		return
	}
	g.index[key] = len(g.nodes)
	g.nodes = append(g.nodes, FlowNode{Name: name, Layer: layer, Value: value})
}

// Link appends a link between two previously added nodes. A missing endpoint
// means the round bookkeeping is out of step with node creation, which is a
// hard error rather than a silently wrong index.
func (g *FlowGraph) Link(fromName string, fromLayer int, toName string, toLayer int, value int) error {
	source, ok := g.index[nodeKey{name: fromName, layer: fromLayer}]
	if !ok {
		return fmt.Errorf("flow graph has no node for %q at layer %d", fromName, fromLayer)
	}
	target, ok := g.index[nodeKey{name: toName, layer: toLayer}]
	if !ok {
		return fmt.Errorf("flow graph has no node for %q at layer %d", toName, toLayer)
	}
	g.links = append(g.links, FlowLink{Source: source, Target: target, Value: value})
	return nil
}

// Nodes returns the ordered node entries.
func (g *FlowGraph) Nodes() []FlowNode {
	return append([]FlowNode(nil), g.nodes...)
}

// Links returns the ordered link entries.
func (g *FlowGraph) Links() []FlowLink {
	return append([]FlowLink(nil), g.links...)
}
