package catalog

import (
	"github.com/aretw0/lattice/pkg/domain"
)

// ProcessRecord is a diagram persisted as a named entity.
type ProcessRecord struct {
	domain.Entity
	Version  string   `json:"version" validate:"max=32"`
	Category string   `json:"category,omitempty" validate:"max=100"`
	Tags     []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	// TemplateID links a process to the template it was instantiated from.
	TemplateID string        `json:"templateId,omitempty"`
	Nodes      []domain.Node `json:"nodes"`
	Edges      []domain.Edge `json:"edges"`
}

// RecordFromDiagram captures d's identity and graph.
func RecordFromDiagram(d *domain.Diagram) ProcessRecord {
	c := d.Clone()
	r := ProcessRecord{
		Entity: domain.Entity{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Status:      c.Status,
		},
		Version: c.Version,
		Nodes:   c.Nodes,
		Edges:   c.Edges,
	}
	if r.Nodes == nil {
		r.Nodes = []domain.Node{}
	}
	if r.Edges == nil {
		r.Edges = []domain.Edge{}
	}
	return r
}

// Diagram rebuilds an editable diagram from the record. Nodes and edges go
// through the same checks as any other write, so a record holding an unknown
// kind, a duplicate id or a dangling edge is rejected.
func (r ProcessRecord) Diagram(opts ...domain.DiagramOption) (*domain.Diagram, error) {
	d := domain.NewDiagram(r.Name, opts...)
	d.ID = r.ID
	d.Description = r.Description
	if r.Version != "" {
		d.Version = r.Version
	}
	if r.Status != "" {
		d.Status = r.Status
	}
	for _, n := range r.Nodes {
		if err := d.AppendNode(n.Clone()); err != nil {
			return nil, err
		}
	}
	for _, e := range r.Edges {
		if err := d.AppendEdge(e.Clone()); err != nil {
			return nil, err
		}
	}
	d.LastModified = r.UpdatedAt
	return d, nil
}

// Integrity reports whether the stored graph satisfies the diagram invariants.
// Collections call it before every write.
func (r *ProcessRecord) Integrity() error {
	_, err := r.Diagram()
	return err
}
