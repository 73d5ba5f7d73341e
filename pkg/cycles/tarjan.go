package cycles

import (
	causal "github.com/ritzau/faultgraph/pkg/graph"
)

// loopFinder runs Tarjan's strongly connected components algorithm over the
// causal graph by node name. Nodes and children are visited in insertion
// order, so components come out in a stable order.
type loopFinder struct {
	cg       *causal.CausalGraph
	counter  int
	stack    []string
	onStack  map[string]bool
	discover map[string]int // Visit order per node
	low      map[string]int // Lowest visit order reachable per node
	loops    [][]string
}

func newLoopFinder(cg *causal.CausalGraph) *loopFinder {
	return &loopFinder{
		cg:       cg,
		onStack:  make(map[string]bool),
		discover: make(map[string]int),
		low:      make(map[string]int),
	}
}

// find returns the components with more than one node. Each one is a set of
// causal nodes that lie on a common feedback loop.
func (f *loopFinder) find() [][]string {
	for _, node := range f.cg.Nodes() {
		if _, seen := f.discover[node.Name]; !seen {
			f.visit(node.Name)
		}
	}
	return f.loops
}

func (f *loopFinder) visit(name string) {
	f.discover[name] = f.counter
	f.low[name] = f.counter
	f.counter++

	f.stack = append(f.stack, name)
	f.onStack[name] = true

	for _, child := range f.cg.ChildNames(name) {
		if _, seen := f.discover[child]; !seen {
			f.visit(child)
			f.low[name] = min(f.low[name], f.low[child])
		} else if f.onStack[child] {
			f.low[name] = min(f.low[name], f.discover[child])
		}
	}

	if f.low[name] != f.discover[name] {
		return
	}

	var component []string
	for {
		top := f.stack[len(f.stack)-1]
		f.stack = f.stack[:len(f.stack)-1]
		f.onStack[top] = false
		component = append(component, top)
		if top == name {
			break
		}
	}
	// The store rejects self-loops, so a singleton is never a loop
	if len(component) > 1 {
		f.loops = append(f.loops, component)
	}
}
