package model

// Graph is the serializable form of a causal knowledge base.
// Nodes and edges keep the order they were authored in.
type Graph struct {
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Edges []*Edge `json:"edges" yaml:"edges"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// CountByType returns the number of nodes of each type
func (g *Graph) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int)
	for _, n := range g.Nodes {
		counts[n.Type]++
	}
	return counts
}
