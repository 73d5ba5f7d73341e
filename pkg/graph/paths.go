package graph

import (
	"github.com/ritzau/faultgraph/pkg/logging"
)

const (
	// DefaultMaxDepth bounds the number of nodes on an enumerated path
	DefaultMaxDepth = 10
	// DefaultMaxPaths caps the number of paths a single enumeration collects
	DefaultMaxPaths = 1000
)

// pathWalker holds the state of one backward enumeration
type pathWalker struct {
	cg        *CausalGraph
	limit     int
	simple    bool
	onPath    map[string]bool
	paths     [][]string
	truncated bool
}

// PathsToRoot finds all paths from a node back to parentless ancestors.
// Each path is ordered from the root cause to the starting node. Branches
// longer than maxDepth nodes are dropped and enumeration stops once the path
// cap is reached. An unknown node yields nil rather than a single-node path.
//
// Paths are not unique per root cause: a diamond yields one path per branch,
// and a feedback loop yields one path per traversal that fits the depth
// budget. WithSimplePaths restricts enumeration to paths without repeated
// nodes.
func (cg *CausalGraph) PathsToRoot(name string, maxDepth int) [][]string {
	if !cg.HasNode(name) {
		return nil
	}

	key := pathKey{node: name, depth: maxDepth}
	if cg.cache != nil {
		if paths, ok := cg.cache.Get(key); ok {
			return clonePaths(paths)
		}
	}

	w := &pathWalker{
		cg:     cg,
		limit:  cg.maxPaths,
		simple: cg.simplePaths,
		onPath: make(map[string]bool),
	}
	w.walk(name, maxDepth, nil)

	if w.truncated {
		logging.Debug("path enumeration truncated", "node", name, "maxPaths", w.limit)
	}
	logging.Trace("enumerated paths to root", "node", name, "depth", maxDepth, "paths", len(w.paths))

	if cg.cache != nil {
		cg.cache.Add(key, w.paths)
	}
	return clonePaths(w.paths)
}

// walk visits node with the remaining depth budget. tail is the path from
// node's child down to the starting node.
func (w *pathWalker) walk(node string, depth int, tail []string) {
	if depth <= 0 || w.truncated {
		return
	}

	path := make([]string, 0, len(tail)+1)
	path = append(path, node)
	path = append(path, tail...)

	parents := w.cg.parents[node]
	if len(parents) == 0 {
		w.paths = append(w.paths, path)
		if len(w.paths) >= w.limit {
			w.truncated = true
		}
		return
	}

	w.onPath[node] = true
	for _, e := range parents {
		if w.simple && w.onPath[e.Source] {
			continue
		}
		w.walk(e.Source, depth-1, path)
		if w.truncated {
			break
		}
	}
	delete(w.onPath, node)
}

// PathStrength multiplies the edge weights along a root-first path.
// A hop with no edge leaves the strength unchanged.
func (cg *CausalGraph) PathStrength(path []string) float64 {
	strength := 1.0
	for i := 0; i < len(path)-1; i++ {
		if w, ok := cg.Weight(path[i], path[i+1]); ok {
			strength *= w
		}
	}
	return strength
}

func clonePaths(paths [][]string) [][]string {
	if paths == nil {
		return nil
	}
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = append([]string(nil), p...)
	}
	return out
}
