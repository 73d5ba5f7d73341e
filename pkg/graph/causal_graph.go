package graph

import (
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ritzau/faultgraph/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrUnknownNode is returned when an edge references a node that was never added
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidWeight is returned for edge weights outside [0, 1]
	ErrInvalidWeight = errors.New("edge weight must be within [0, 1]")
	// ErrSelfLoop is returned for edges whose source and target are the same node
	ErrSelfLoop = errors.New("edge source and target are the same node")
)

const (
	DefaultPathCacheSize = 256
)

// pathKey identifies a memoized path enumeration
type pathKey struct {
	node  string
	depth int
}

// CausalGraph is the causal knowledge base: typed nodes connected by weighted,
// annotated edges. It is built once and then shared read-only between analyses.
type CausalGraph struct {
	graph  *simple.WeightedDirectedGraph
	nodes  map[string]*model.Node // Map from node name to node
	ids    map[string]int64       // Map from node name to graph ID
	order  []string               // Node names in insertion order
	nextID int64

	edges    []*model.Edge            // All edges in insertion order
	parents  map[string][]*model.Edge // Incoming edges per node, insertion order
	children map[string][]*model.Edge // Outgoing edges per node, insertion order

	maxPaths    int
	simplePaths bool
	cache       *lru.Cache[pathKey, [][]string]
}

// Option configures a CausalGraph
type Option func(*CausalGraph)

// WithMaxPaths caps the number of paths a single enumeration may return
func WithMaxPaths(n int) Option {
	return func(cg *CausalGraph) {
		if n > 0 {
			cg.maxPaths = n
		}
	}
}

// WithSimplePaths makes path enumeration skip nodes already on the current
// path, so feedback loops are traversed at most once
func WithSimplePaths() Option {
	return func(cg *CausalGraph) {
		cg.simplePaths = true
	}
}

// WithPathCacheSize sets the number of memoized path enumerations. Zero disables the cache.
func WithPathCacheSize(n int) Option {
	return func(cg *CausalGraph) {
		if n <= 0 {
			cg.cache = nil
			return
		}
		cache, err := lru.New[pathKey, [][]string](n)
		if err == nil {
			cg.cache = cache
		}
	}
}

// New creates a new empty causal graph
func New(opts ...Option) *CausalGraph {
	cg := &CausalGraph{
		graph:    simple.NewWeightedDirectedGraph(0, math.NaN()),
		nodes:    make(map[string]*model.Node),
		ids:      make(map[string]int64),
		order:    make([]string, 0),
		edges:    make([]*model.Edge, 0),
		parents:  make(map[string][]*model.Edge),
		children: make(map[string][]*model.Edge),
		maxPaths: DefaultMaxPaths,
	}
	WithPathCacheSize(DefaultPathCacheSize)(cg)
	for _, opt := range opts {
		opt(cg)
	}
	return cg
}

// AddNode adds a node to the graph. If a node with the same name exists, its
// attributes are replaced and its edges are kept.
func (cg *CausalGraph) AddNode(name string, nodeType model.NodeType, description string, degradationModes ...string) {
	if degradationModes == nil {
		degradationModes = []string{}
	}
	node := &model.Node{
		Name:             name,
		Type:             nodeType,
		Description:      description,
		DegradationModes: degradationModes,
	}

	if _, exists := cg.nodes[name]; exists {
		cg.nodes[name] = node
		cg.invalidate()
		return
	}

	cg.nodes[name] = node
	cg.ids[name] = cg.nextID
	cg.order = append(cg.order, name)

	// Add node to gonum graph
	cg.graph.AddNode(simple.Node(cg.nextID))

	cg.nextID++
	cg.invalidate()
}

// AddEdge adds a causal edge from source to target.
// Returns an error if either node doesn't exist in the graph. Adding an
// edge between an already connected pair replaces that edge.
func (cg *CausalGraph) AddEdge(source, target string, weight float64, mechanism string) error {
	if _, ok := cg.nodes[source]; !ok {
		return fmt.Errorf("source node %q: %w", source, ErrUnknownNode)
	}
	if _, ok := cg.nodes[target]; !ok {
		return fmt.Errorf("target node %q: %w", target, ErrUnknownNode)
	}
	if source == target {
		return fmt.Errorf("edge %s -> %s: %w", source, target, ErrSelfLoop)
	}
	if math.IsNaN(weight) || weight < 0 || weight > 1 {
		return fmt.Errorf("edge %s -> %s has weight %v: %w", source, target, weight, ErrInvalidWeight)
	}

	sourceID := cg.ids[source]
	targetID := cg.ids[target]
	cg.graph.SetWeightedEdge(cg.graph.NewWeightedEdge(simple.Node(sourceID), simple.Node(targetID), weight))
	defer cg.invalidate()

	// Edges are shared between the three indexes, so updating in place covers all of them
	for _, e := range cg.children[source] {
		if e.Target == target {
			e.Weight = weight
			e.Mechanism = mechanism
			return nil
		}
	}

	edge := &model.Edge{Source: source, Target: target, Weight: weight, Mechanism: mechanism}
	cg.edges = append(cg.edges, edge)
	cg.children[source] = append(cg.children[source], edge)
	cg.parents[target] = append(cg.parents[target], edge)
	return nil
}

func (cg *CausalGraph) invalidate() {
	if cg.cache != nil {
		cg.cache.Purge()
	}
}

// Node returns a node by name
func (cg *CausalGraph) Node(name string) (*model.Node, bool) {
	node, exists := cg.nodes[name]
	return node, exists
}

// HasNode reports whether a node with the given name exists
func (cg *CausalGraph) HasNode(name string) bool {
	_, exists := cg.nodes[name]
	return exists
}

// Nodes returns all nodes in insertion order
func (cg *CausalGraph) Nodes() []*model.Node {
	nodes := make([]*model.Node, 0, len(cg.order))
	for _, name := range cg.order {
		nodes = append(nodes, cg.nodes[name])
	}
	return nodes
}

// Edges returns all edges in insertion order
func (cg *CausalGraph) Edges() []*model.Edge {
	edges := make([]*model.Edge, len(cg.edges))
	copy(edges, cg.edges)
	return edges
}

// Children returns the nodes the given node points to, mapped to edge weights
func (cg *CausalGraph) Children(name string) map[string]float64 {
	children := make(map[string]float64, len(cg.children[name]))
	for _, e := range cg.children[name] {
		children[e.Target] = e.Weight
	}
	return children
}

// Parents returns the nodes pointing to the given node, mapped to edge weights
func (cg *CausalGraph) Parents(name string) map[string]float64 {
	parents := make(map[string]float64, len(cg.parents[name]))
	for _, e := range cg.parents[name] {
		parents[e.Source] = e.Weight
	}
	return parents
}

// ChildNames returns the children of a node in edge insertion order
func (cg *CausalGraph) ChildNames(name string) []string {
	names := make([]string, 0, len(cg.children[name]))
	for _, e := range cg.children[name] {
		names = append(names, e.Target)
	}
	return names
}

// ParentNames returns the parents of a node in edge insertion order
func (cg *CausalGraph) ParentNames(name string) []string {
	names := make([]string, 0, len(cg.parents[name]))
	for _, e := range cg.parents[name] {
		names = append(names, e.Source)
	}
	return names
}

// Weight returns the weight of the edge source -> target, if there is one
func (cg *CausalGraph) Weight(source, target string) (float64, bool) {
	sourceID, ok := cg.ids[source]
	if !ok {
		return 0, false
	}
	targetID, ok := cg.ids[target]
	if !ok {
		return 0, false
	}
	return cg.graph.Weight(sourceID, targetID)
}

// RootCauses returns the names of all root cause nodes in insertion order
func (cg *CausalGraph) RootCauses() []string {
	return cg.namesOfType(model.NodeTypeRootCause)
}

// Observables returns the names of all observable nodes in insertion order
func (cg *CausalGraph) Observables() []string {
	return cg.namesOfType(model.NodeTypeObservable)
}

// Intermediates returns the names of all intermediate nodes in insertion order
func (cg *CausalGraph) Intermediates() []string {
	return cg.namesOfType(model.NodeTypeIntermediate)
}

func (cg *CausalGraph) namesOfType(t model.NodeType) []string {
	var names []string
	for _, name := range cg.order {
		if cg.nodes[name].Type == t {
			names = append(names, name)
		}
	}
	return names
}

// Graph returns the underlying directed graph
func (cg *CausalGraph) Graph() *simple.WeightedDirectedGraph {
	return cg.graph
}

// Snapshot returns a serializable copy of the graph
func (cg *CausalGraph) Snapshot() *model.Graph {
	g := model.NewGraph()
	for _, name := range cg.order {
		n := *cg.nodes[name]
		n.DegradationModes = append([]string{}, n.DegradationModes...)
		g.Nodes = append(g.Nodes, &n)
	}
	for _, e := range cg.edges {
		edge := *e
		g.Edges = append(g.Edges, &edge)
	}
	return g
}

// FromModel builds a causal graph from its serialized form. Edges are
// validated as they are added, so the first authoring mistake is returned.
func FromModel(g *model.Graph, opts ...Option) (*CausalGraph, error) {
	cg := New(opts...)
	for _, n := range g.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("node with empty name")
		}
		if _, err := model.ParseNodeType(string(n.Type)); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		cg.AddNode(n.Name, n.Type, n.Description, n.DegradationModes...)
	}
	for _, e := range g.Edges {
		if err := cg.AddEdge(e.Source, e.Target, e.Weight, e.Mechanism); err != nil {
			return nil, err
		}
	}
	return cg, nil
}
