package dsl

import "github.com/aretw0/lattice/pkg/domain"

type flow struct {
	target string
	label  string
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	flows   []flow
	placed  bool
	builder *Builder
}

// Label sets the display name.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// At pins the node to a canvas position.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	n.placed = true
	return n
}

// Meta sets a metadata attribute.
func (n *NodeBuilder) Meta(key string, value any) *NodeBuilder {
	n.node.Metadata[key] = value
	return n
}

// Assign sets the responsible user or role of a task.
func (n *NodeBuilder) Assign(assignee string) *NodeBuilder {
	return n.Meta(domain.KeyAssignee, assignee)
}

// Go adds an unlabeled sequence flow to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.flows = append(n.flows, flow{target: target})
	return n
}

// Branch adds a labeled sequence flow, typically a gateway outcome.
func (n *NodeBuilder) Branch(label, target string) *NodeBuilder {
	n.flows = append(n.flows, flow{target: target, label: label})
	return n
}

// Then returns to the diagram builder to declare the next node.
func (n *NodeBuilder) Then() *Builder {
	return n.builder
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}
