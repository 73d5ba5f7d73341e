// Package dsep checks d-separation between nodes of a causal graph.
//
// Only directed paths from x to z are considered. Back-door paths through
// common causes are not searched, so "separated" here means no directed
// influence of x reaches z past the conditioning set.
package dsep

import (
	"fmt"
	"sort"

	"github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/logging"
)

// ErrUnknownNode is returned when a queried node is not in the graph
var ErrUnknownNode = graph.ErrUnknownNode

// Result is the outcome of a d-separation query
type Result struct {
	Separated     bool       `json:"separated"`
	NoPaths       bool       `json:"noPaths"`                 // No directed path connects the nodes
	BlockingNodes []string   `json:"blockingNodes,omitempty"` // Conditioned nodes on blocked paths, sorted
	Paths         [][]string `json:"paths,omitempty"`
}

// Analyzer answers d-separation queries against a read-only causal graph
type Analyzer struct {
	graph    *graph.CausalGraph
	maxDepth int
}

// New creates an analyzer. maxDepth bounds path enumeration; values below 1
// fall back to graph.DefaultMaxDepth.
func New(g *graph.CausalGraph, maxDepth int) *Analyzer {
	if maxDepth < 1 {
		maxDepth = graph.DefaultMaxDepth
	}
	return &Analyzer{graph: g, maxDepth: maxDepth}
}

// AreDSeparated reports whether x and z are d-separated given the
// conditioning set. When no directed path connects them they are separated
// regardless of the conditioning set.
func (a *Analyzer) AreDSeparated(x, z string, given []string) (Result, error) {
	for _, name := range []string{x, z} {
		if !a.graph.HasNode(name) {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownNode, name)
		}
	}

	conditioned := make(map[string]bool, len(given))
	for _, name := range given {
		conditioned[name] = true
	}

	paths := a.Paths(x, z)
	if len(paths) == 0 {
		logging.Debug("no directed paths", "x", x, "z", z)
		return Result{Separated: true, NoPaths: true}, nil
	}

	result := Result{Separated: true, Paths: paths}
	blocking := make(map[string]bool)
	for _, path := range paths {
		if !a.blocked(path, conditioned) {
			result.Separated = false
			continue
		}
		for _, node := range path[1 : len(path)-1] {
			if conditioned[node] {
				blocking[node] = true
			}
		}
	}

	for node := range blocking {
		result.BlockingNodes = append(result.BlockingNodes, node)
	}
	sort.Strings(result.BlockingNodes)

	logging.Debug("d-separation checked", "x", x, "z", z, "given", given,
		"paths", len(paths), "separated", result.Separated)
	return result, nil
}

// Paths enumerates directed paths from start to end following children in
// edge insertion order. A node is never revisited on the same path.
func (a *Analyzer) Paths(start, end string) [][]string {
	var paths [][]string
	a.walk(start, end, nil, make(map[string]bool), &paths)
	return paths
}

func (a *Analyzer) walk(node, end string, path []string, visited map[string]bool, out *[][]string) {
	if node == end {
		found := make([]string, len(path)+1)
		copy(found, path)
		found[len(path)] = node
		*out = append(*out, found)
		return
	}
	if len(path) >= a.maxDepth || visited[node] {
		return
	}

	visited[node] = true
	path = append(path, node)
	for _, child := range a.graph.ChildNames(node) {
		a.walk(child, end, path, visited, out)
	}
	delete(visited, node)
}

// blocked reports whether the conditioning set blocks information flow
// along a path
func (a *Analyzer) blocked(path []string, conditioned map[string]bool) bool {
	if len(path) < 2 {
		return true
	}

	for i := 1; i < len(path)-1; i++ {
		node := path[i]
		if a.IsCollider(node, path[i-1], path[i+1]) {
			if !a.anyDescendantIn(node, conditioned) {
				return true
			}
		} else if conditioned[node] {
			return true
		}
	}
	return false
}

// IsCollider reports whether both path neighbours point into node
func (a *Analyzer) IsCollider(node, prev, next string) bool {
	parents := a.graph.Parents(node)
	_, fromPrev := parents[prev]
	_, fromNext := parents[next]
	return fromPrev && fromNext
}

func (a *Analyzer) anyDescendantIn(node string, set map[string]bool) bool {
	for d := range a.Descendants(node) {
		if set[d] {
			return true
		}
	}
	return false
}

// Descendants returns every node reachable from node via outgoing edges.
// On a cycle the node itself is included.
func (a *Analyzer) Descendants(node string) map[string]struct{} {
	descendants := make(map[string]struct{})
	visited := map[string]bool{node: true}
	stack := []string{node}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range a.graph.ChildNames(current) {
			descendants[child] = struct{}{}
			if !visited[child] {
				visited[child] = true
				stack = append(stack, child)
			}
		}
	}
	return descendants
}
