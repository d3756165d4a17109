package workflow

// NodeType discriminates node configurations.
type NodeType string

const (
	// NodeStart marks the entry node of a graph.
	NodeStart NodeType = "start"
	// NodeEnd terminates a walk explicitly.
	NodeEnd NodeType = "end"
	// NodeAgent invokes a worker agent with a templated prompt.
	NodeAgent NodeType = "agent"
	// NodeTool invokes a registered tool with resolved arguments.
	NodeTool NodeType = "tool"
	// NodeCondition branches on a structured rule.
	NodeCondition NodeType = "condition"
	// NodeHumanInput pauses the run until external input arrives.
	NodeHumanInput NodeType = "human_input"
	// NodeParallel fans out branch sub-walks.
	NodeParallel NodeType = "parallel"
)

// ParallelMode selects how a parallel node rejoins its branches.
type ParallelMode string

const (
	// WaitAll waits for every branch before continuing.
	WaitAll ParallelMode = "wait_all"
	// Race continues with the first branch to finish; the rest are abandoned
	// cooperatively.
	Race ParallelMode = "race"
)

// NodeConfig is the per-kind payload of a node. Exactly one variant struct
// implements it per NodeType; the engine matches exhaustively at dispatch.
type NodeConfig interface {
	nodeType() NodeType
}

// Node is one vertex of a graph.
type Node struct {
	ID     string
	Config NodeConfig
}

// Type returns the discriminator of the node's configuration.
func (n Node) Type() NodeType { return n.Config.nodeType() }

// StartConfig is the entry node. Its only job is pointing at the first real
// node.
type StartConfig struct {
	Next string
}

func (StartConfig) nodeType() NodeType { return NodeStart }

// EndConfig terminates the walk.
type EndConfig struct{}

func (EndConfig) nodeType() NodeType { return NodeEnd }

// AgentConfig invokes the named worker with Prompt after {{variable}}
// substitution. The worker's text output lands in the variables under
// OutputKey (default "<node id>_output").
type AgentConfig struct {
	Agent     string
	Prompt    string
	OutputKey string
	Next      string
}

func (AgentConfig) nodeType() NodeType { return NodeAgent }

// ToolConfig invokes the named tool. Every string inside Args, however
// nested, goes through variable substitution first.
type ToolConfig struct {
	Tool      string
	Args      map[string]any
	OutputKey string
	Next      string
}

func (ToolConfig) nodeType() NodeType { return NodeTool }

// ConditionConfig branches to Yes or No depending on Rule. A rule that fails
// to evaluate takes the No edge.
type ConditionConfig struct {
	Rule Rule
	Yes  string
	No   string
}

func (ConditionConfig) nodeType() NodeType { return NodeCondition }

// HumanInputConfig pauses the run. Prompt describes what input is expected;
// Resume merges the caller's input and continues at Next.
type HumanInputConfig struct {
	Prompt string
	Next   string
}

func (HumanInputConfig) nodeType() NodeType { return NodeHumanInput }

// ParallelConfig fans out sub-walks. Branches maps a branch name to the id
// of its first node; each branch runs on a snapshot of the variables and its
// results are merged back per Mode.
type ParallelConfig struct {
	Branches map[string]string
	Mode     ParallelMode
	Next     string
}

func (ParallelConfig) nodeType() NodeType { return NodeParallel }

// staticNext returns the fixed continuation of a config, or "" when the node
// has none (condition nodes pick their edge dynamically).
func staticNext(cfg NodeConfig) string {
	switch c := cfg.(type) {
	case StartConfig:
		return c.Next
	case AgentConfig:
		return c.Next
	case ToolConfig:
		return c.Next
	case HumanInputConfig:
		return c.Next
	case ParallelConfig:
		return c.Next
	default:
		return ""
	}
}
