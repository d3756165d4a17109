package workflow

import (
	"fmt"

	"github.com/hupe1980/missionmesh/core"
)

// Graph is a validated workflow definition. Graphs are immutable once built;
// any number of concurrent ExecutionContexts may run against one graph.
type Graph struct {
	ID       string
	Name     string
	Start    string
	Defaults map[string]any

	nodes map[string]Node
}

// GraphOptions customizes graph construction.
type GraphOptions struct {
	// Name is a human-readable label.
	Name string
	// Defaults seed the variables of every run before the run input is
	// merged.
	Defaults map[string]any
}

// NewGraph builds and validates a graph from its nodes and entry node id.
func NewGraph(start string, nodes []Node, optFns ...func(o *GraphOptions)) (*Graph, error) {
	opts := GraphOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	g := &Graph{
		ID:       core.NewID(),
		Name:     opts.Name,
		Start:    start,
		Defaults: opts.Defaults,
		nodes:    make(map[string]Node, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("graph node without id")
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		if n.Config == nil {
			return nil, fmt.Errorf("node %q has no configuration", n.ID)
		}
		g.nodes[n.ID] = n
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// validate checks that the entry node and every referenced edge exist.
func (g *Graph) validate() error {
	if _, ok := g.nodes[g.Start]; !ok {
		return fmt.Errorf("start node %q not in graph", g.Start)
	}

	check := func(from, to string) error {
		if to == "" {
			return nil
		}
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("node %q references unknown node %q", from, to)
		}
		return nil
	}

	for id, n := range g.nodes {
		if err := check(id, staticNext(n.Config)); err != nil {
			return err
		}
		switch c := n.Config.(type) {
		case ConditionConfig:
			if err := check(id, c.Yes); err != nil {
				return err
			}
			if err := check(id, c.No); err != nil {
				return err
			}
		case ParallelConfig:
			if len(c.Branches) == 0 {
				return fmt.Errorf("parallel node %q has no branches", id)
			}
			for branch, entry := range c.Branches {
				if entry == "" {
					return fmt.Errorf("parallel node %q branch %q has no entry node", id, branch)
				}
				if err := check(id, entry); err != nil {
					return err
				}
			}
			if c.Mode != WaitAll && c.Mode != Race {
				return fmt.Errorf("parallel node %q has invalid mode %q", id, c.Mode)
			}
		}
	}
	return nil
}
