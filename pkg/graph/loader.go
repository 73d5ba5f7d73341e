package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ritzau/faultgraph/pkg/logging"
	"github.com/ritzau/faultgraph/pkg/model"
	"gopkg.in/yaml.v3"
)

// fileEdge allows weight to be omitted, in which case it defaults to 1
type fileEdge struct {
	Source    string   `yaml:"source"`
	Target    string   `yaml:"target"`
	Weight    *float64 `yaml:"weight"`
	Mechanism string   `yaml:"mechanism"`
}

type fileGraph struct {
	Nodes []*model.Node `yaml:"nodes"`
	Edges []fileEdge    `yaml:"edges"`
}

// Load reads a YAML knowledge base. Unknown fields, unknown node types and
// edges that reference missing nodes are reported as errors.
func Load(r io.Reader, opts ...Option) (*CausalGraph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fg fileGraph
	if err := dec.Decode(&fg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty knowledge base")
		}
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}

	g := model.NewGraph()
	g.Nodes = fg.Nodes
	for _, e := range fg.Edges {
		weight := 1.0
		if e.Weight != nil {
			weight = *e.Weight
		}
		g.Edges = append(g.Edges, &model.Edge{
			Source:    e.Source,
			Target:    e.Target,
			Weight:    weight,
			Mechanism: e.Mechanism,
		})
	}

	cg, err := FromModel(g, opts...)
	if err != nil {
		return nil, err
	}

	logging.Debug("loaded knowledge base", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return cg, nil
}

// LoadFile reads a YAML knowledge base from disk
func LoadFile(path string, opts ...Option) (*CausalGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer f.Close()

	cg, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cg, nil
}

// Marshal writes the graph in the format accepted by Load
func (cg *CausalGraph) Marshal(w io.Writer) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cg.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
