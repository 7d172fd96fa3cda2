package graph

// Kind discriminates the node variants understood by the runner.
type Kind string

const (
	// KindAgent is a leaf unit driven by an instruction and a model.
	KindAgent Kind = "agent"
	// KindSequence runs child nodes once each, in declared order.
	KindSequence Kind = "sequence"
	// KindParallel runs child nodes concurrently with a join barrier.
	KindParallel Kind = "parallel"
	// KindLoop repeats its child sequence until an exit signal or MaxIterations.
	KindLoop Kind = "loop"
)

type (
	// Node is a single unit of an agent team: either a leaf agent or a
	// composite (sequence, parallel, loop). Composites own structure and
	// iteration policy only; shared state lives in the run session.
	Node struct {
		ID          string `json:"id,omitempty" yaml:"id,omitempty"`
		Name        string `json:"name,omitempty" yaml:"name,omitempty"`
		Kind        Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
		Description string `json:"description,omitempty" yaml:"description,omitempty"`

		// Instruction is a template rendered against the session state at
		// invocation time; placeholders use the `{ key? }` form.
		Instruction string `json:"instruction,omitempty" yaml:"instruction,omitempty"`

		// Model names the reasoning backend used by a leaf agent.
		Model string `json:"model,omitempty" yaml:"model,omitempty"`

		// Tools lists fully qualified capability references (service.method)
		// the agent may invoke.
		Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`

		// OutputKey, when set on a leaf agent, stores the agent's final text
		// under this session key.
		OutputKey string `json:"outputKey,omitempty" yaml:"outputKey,omitempty"`

		// MaxIterations bounds a loop node; zero means the runner default.
		MaxIterations int `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`

		Retry *Retry  `json:"retry,omitempty" yaml:"retry,omitempty"`
		Nodes []*Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	}

	// Retry describes the model-call retry strategy for a leaf agent.
	Retry struct {
		Type        string  `json:"type,omitempty" yaml:"type,omitempty"` // fixed, exponential, none
		MaxAttempts int     `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
		Delay       string  `json:"delay,omitempty" yaml:"delay,omitempty"` // initial delay (duration string)
		Multiplier  float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
		MaxDelay    string  `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
	}
)

// IsComposite reports whether the node owns child nodes.
func (n *Node) IsComposite() bool {
	switch n.Kind {
	case KindSequence, KindParallel, KindLoop:
		return true
	}
	return false
}

// WithDescription sets the node description.
func (n *Node) WithDescription(description string) *Node {
	n.Description = description
	return n
}

// WithInstruction sets the leaf instruction template.
func (n *Node) WithInstruction(instruction string) *Node {
	n.Instruction = instruction
	return n
}

// WithModel sets the reasoning backend name.
func (n *Node) WithModel(model string) *Node {
	n.Model = model
	return n
}

// WithTools declares the capabilities available to a leaf agent.
func (n *Node) WithTools(tools ...string) *Node {
	n.Tools = append(n.Tools, tools...)
	return n
}

// WithOutputKey stores the leaf's final text under the given session key.
func (n *Node) WithOutputKey(key string) *Node {
	n.OutputKey = key
	return n
}

// WithMaxIterations bounds a loop node.
func (n *Node) WithMaxIterations(max int) *Node {
	n.MaxIterations = max
	return n
}

// WithRetry sets the model-call retry strategy.
func (n *Node) WithRetry(retry *Retry) *Node {
	n.Retry = retry
	return n
}

// AddNode creates a child node of the given kind and appends it.
func (n *Node) AddNode(name string, kind Kind) *Node {
	child := &Node{
		ID:   n.ID + "/" + name,
		Name: name,
		Kind: kind,
	}
	n.Nodes = append(n.Nodes, child)
	return child
}

// Clone creates a deep copy of the node tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		ID:            n.ID,
		Name:          n.Name,
		Kind:          n.Kind,
		Description:   n.Description,
		Instruction:   n.Instruction,
		Model:         n.Model,
		OutputKey:     n.OutputKey,
		MaxIterations: n.MaxIterations,
	}
	if n.Tools != nil {
		clone.Tools = append([]string(nil), n.Tools...)
	}
	if n.Retry != nil {
		retry := *n.Retry
		clone.Retry = &retry
	}
	if n.Nodes != nil {
		clone.Nodes = make([]*Node, len(n.Nodes))
		for i, child := range n.Nodes {
			clone.Nodes[i] = child.Clone()
		}
	}
	return clone
}
