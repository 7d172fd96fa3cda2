package model

import (
	"fmt"
	"strings"

	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/model/state"
)

// Team represents an agent-team definition: a named tree of leaf agents and
// composite nodes together with parameters applied when a run starts.
type Team struct {
	// Source provides information about the origin of the definition
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the unique identifier for the team
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description of the team
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the definition version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Init parameters are applied to the session before the root node runs
	Init state.Parameters `json:"init,omitempty" yaml:"init,omitempty"`

	// Root is the top-level node executed for each run
	Root *graph.Node `json:"team,omitempty" yaml:"team,omitempty"`
}

type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// NewTeam creates a team definition with a sequence root.
func NewTeam(name string) *Team {
	return &Team{
		Name: name,
		Root: &graph.Node{ID: name, Name: name, Kind: graph.KindSequence},
	}
}

// WithDescription sets the team description.
func (t *Team) WithDescription(description string) *Team {
	t.Description = description
	return t
}

// WithInit adds an initialization parameter.
func (t *Team) WithInit(name string, value interface{}) *Team {
	if t.Init == nil {
		t.Init = make(state.Parameters, 0)
	}
	t.Init.Add(name, value)
	return t
}

// NewNode creates a child of the root node and returns it.
func (t *Team) NewNode(name string, kind graph.Kind) *graph.Node {
	if t.Root == nil {
		t.Root = &graph.Node{ID: t.Name, Name: t.Name, Kind: graph.KindSequence}
	}
	return t.Root.AddNode(name, kind)
}

// AllNodes returns every node in the team keyed by both ID and name.
func (t *Team) AllNodes() map[string]*graph.Node {
	nodes := make(map[string]*graph.Node)
	t.traverse(t.Root, nodes)
	return nodes
}

func (t *Team) traverse(node *graph.Node, nodes map[string]*graph.Node) {
	if node == nil {
		return
	}
	if _, exists := nodes[node.ID]; !exists {
		nodes[node.ID] = node
		if node.Name != "" {
			nodes[node.Name] = node
		}
		for _, child := range node.Nodes {
			t.traverse(child, nodes)
		}
	}
}

// Validate performs a best-effort structural validation of the team. The
// returned slice is empty when the definition is sound; otherwise it contains
// human-readable error descriptions. Only static properties are verified.
func (t *Team) Validate() []error {
	var issues []error

	if t.Root == nil {
		issues = append(issues, fmt.Errorf("team root is nil"))
		return issues
	}

	seen := map[string]bool{}
	var walk func(n *graph.Node, path string)
	walk = func(n *graph.Node, path string) {
		if n == nil {
			return
		}
		if n.Name != "" {
			if seen[n.Name] {
				issues = append(issues, fmt.Errorf("duplicate node name %s", n.Name))
			}
			seen[n.Name] = true
		}

		switch n.Kind {
		case graph.KindAgent:
			if strings.TrimSpace(n.Instruction) == "" {
				issues = append(issues, fmt.Errorf("agent %s has no instruction", n.Name))
			}
			if len(n.Nodes) > 0 {
				issues = append(issues, fmt.Errorf("agent %s cannot own child nodes", n.Name))
			}
			for _, ref := range n.Tools {
				if !strings.Contains(ref, ".") {
					issues = append(issues, fmt.Errorf("agent %s has malformed tool reference %q", n.Name, ref))
				}
			}
		case graph.KindSequence, graph.KindParallel:
			if len(n.Nodes) == 0 {
				issues = append(issues, fmt.Errorf("%s node %s has no children", n.Kind, n.Name))
			}
		case graph.KindLoop:
			if len(n.Nodes) == 0 {
				issues = append(issues, fmt.Errorf("loop node %s has no children", n.Name))
			}
			if n.MaxIterations < 0 {
				issues = append(issues, fmt.Errorf("loop node %s has negative maxIterations", n.Name))
			}
		default:
			issues = append(issues, fmt.Errorf("node %s has unknown kind %q", n.Name, n.Kind))
		}

		for _, child := range n.Nodes {
			walk(child, path+"/"+n.Name)
		}
	}
	walk(t.Root, "")
	return issues
}

// Clone creates a deep copy of the team definition.
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	clone := &Team{
		Name:        t.Name,
		Description: t.Description,
		Version:     t.Version,
	}
	if t.Init != nil {
		clone.Init = make(state.Parameters, len(t.Init))
		copy(clone.Init, t.Init)
	}
	if t.Root != nil {
		clone.Root = t.Root.Clone()
	}
	return clone
}
