package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// graphYAML is the serialized shape of a graph definition.
type graphYAML struct {
	Name     string         `yaml:"name"`
	Start    string         `yaml:"start"`
	Defaults map[string]any `yaml:"defaults"`
	Nodes    []nodeYAML     `yaml:"nodes"`
}

// nodeYAML is the union of all node fields; Type selects which ones apply.
type nodeYAML struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Next string `yaml:"next"`

	// agent nodes
	Agent     string `yaml:"agent"`
	Prompt    string `yaml:"prompt"`
	OutputKey string `yaml:"output_key"`

	// tool nodes
	Tool string         `yaml:"tool"`
	Args map[string]any `yaml:"args"`

	// condition nodes
	Rule Rule   `yaml:"rule"`
	Yes  string `yaml:"yes"`
	No   string `yaml:"no"`

	// parallel nodes
	Branches map[string]string `yaml:"branches"`
	Mode     string            `yaml:"mode"`
}

// LoadGraph parses a YAML graph definition and validates it.
func LoadGraph(data []byte) (*Graph, error) {
	var doc graphYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}

	nodes := make([]Node, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		cfg, err := n.config()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{ID: n.ID, Config: cfg})
	}

	return NewGraph(doc.Start, nodes, func(o *GraphOptions) {
		o.Name = doc.Name
		o.Defaults = doc.Defaults
	})
}

func (n nodeYAML) config() (NodeConfig, error) {
	switch NodeType(n.Type) {
	case NodeStart:
		return StartConfig{Next: n.Next}, nil
	case NodeEnd:
		return EndConfig{}, nil
	case NodeAgent:
		if n.Agent == "" {
			return nil, fmt.Errorf("agent node %q requires an agent name", n.ID)
		}
		return AgentConfig{Agent: n.Agent, Prompt: n.Prompt, OutputKey: n.OutputKey, Next: n.Next}, nil
	case NodeTool:
		if n.Tool == "" {
			return nil, fmt.Errorf("tool node %q requires a tool name", n.ID)
		}
		return ToolConfig{Tool: n.Tool, Args: n.Args, OutputKey: n.OutputKey, Next: n.Next}, nil
	case NodeCondition:
		return ConditionConfig{Rule: n.Rule, Yes: n.Yes, No: n.No}, nil
	case NodeHumanInput:
		return HumanInputConfig{Prompt: n.Prompt, Next: n.Next}, nil
	case NodeParallel:
		mode := ParallelMode(n.Mode)
		if mode == "" {
			mode = WaitAll
		}
		return ParallelConfig{Branches: n.Branches, Mode: mode, Next: n.Next}, nil
	default:
		return nil, fmt.Errorf("node %q has unknown type %q", n.ID, n.Type)
	}
}
