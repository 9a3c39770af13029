package dsl

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layout"
)

// Builder manages the diagram construction.
type Builder struct {
	name  string
	opts  []domain.DiagramOption
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new diagram builder.
func New(name string, opts ...domain.DiagramOption) *Builder {
	return &Builder{
		name:  name,
		opts:  opts,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node of the given kind.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string, kind domain.NodeKind) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:       id,
			Kind:     kind,
			Size:     kind.DefaultSize(),
			Metadata: domain.Metadata{},
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Start adds a start event.
func (b *Builder) Start(id string) *NodeBuilder { return b.Add(id, domain.KindStartEvent) }

// End adds an end event.
func (b *Builder) End(id string) *NodeBuilder { return b.Add(id, domain.KindEndEvent) }

// Task adds a task.
func (b *Builder) Task(id string) *NodeBuilder { return b.Add(id, domain.KindTask) }

// SubProcess adds a collapsed sub-process.
func (b *Builder) SubProcess(id string) *NodeBuilder { return b.Add(id, domain.KindSubProcess) }

// Gateway adds a gateway of type g.
func (b *Builder) Gateway(id string, g domain.GatewayType) *NodeBuilder {
	return b.Add(id, domain.KindGateway).Meta(domain.KeyGatewayType, string(g))
}

// Build assembles the diagram. Flows may name nodes declared after them;
// a flow to a node that was never declared is an error.
// Diagrams without any explicit position are arranged with the layered layout.
func (b *Builder) Build() (*domain.Diagram, error) {
	d := domain.NewDiagram(b.name, b.opts...)

	placed := false
	for _, id := range b.order {
		nb := b.nodes[id]
		if err := d.AppendNode(nb.node.Clone()); err != nil {
			return nil, err
		}
		placed = placed || nb.placed
	}
	for _, id := range b.order {
		for _, f := range b.nodes[id].flows {
			if _, err := d.Connect(id, f.target, f.label); err != nil {
				return nil, fmt.Errorf("failed to connect %q: %w", id, err)
			}
		}
	}

	if !placed {
		layout.Layered(d, layout.DefaultOptions())
	}
	return d, nil
}

// MustBuild is Build for diagrams known to be well-formed. It panics on error.
func (b *Builder) MustBuild() *domain.Diagram {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
