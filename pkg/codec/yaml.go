package codec

import (
	"bytes"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layout"
	"gopkg.in/yaml.v3"
)

// yamlProcess is the minimal hand-written process description:
//
//	name: Invoice approval
//	nodes:
//	  - {id: start, kind: start, label: Received}
//	  - {id: review, kind: task, label: Review}
//	flows:
//	  - {from: start, to: review}
type yamlProcess struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Nodes       []yamlNode `yaml:"nodes"`
	Flows       []yamlFlow `yaml:"flows,omitempty"`
}

type yamlNode struct {
	ID       string           `yaml:"id"`
	Kind     string           `yaml:"kind"`
	Label    string           `yaml:"label,omitempty"`
	Position *domain.Position `yaml:"position,omitempty"`
	Metadata domain.Metadata  `yaml:"metadata,omitempty"`
}

type yamlFlow struct {
	ID    string `yaml:"id,omitempty"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Label string `yaml:"label,omitempty"`
}

// importYAML maps a yamlProcess onto a diagram. Nodes with an unknown kind,
// a missing or repeated id, and flows that cannot be attached are skipped and
// counted in the returned dropped total.
func importYAML(data []byte, opts ...domain.DiagramOption) (*domain.Diagram, int, error) {
	var p yamlProcess
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	name := p.Name
	if name == "" {
		name = "Imported Process"
	}
	d := domain.NewDiagram(name, opts...)
	d.Description = p.Description

	placed := true
	dropped := 0
	for _, yn := range p.Nodes {
		kind, err := domain.ParseNodeKind(yn.Kind)
		if err != nil || yn.ID == "" {
			dropped++
			continue
		}
		n := domain.Node{
			ID:       yn.ID,
			Kind:     kind,
			Size:     kind.DefaultSize(),
			Label:    yn.Label,
			Metadata: yn.Metadata.Clone(),
		}
		if n.Metadata == nil {
			n.Metadata = domain.Metadata{}
		}
		if kind == domain.KindGateway && n.Metadata.String(domain.KeyGatewayType) == "" {
			n.Metadata[domain.KeyGatewayType] = string(domain.GatewayExclusive)
		}
		if yn.Position != nil {
			n.Position = *yn.Position
		}
		if err := d.AppendNode(n); err != nil {
			dropped++
			continue
		}
		if yn.Position == nil {
			placed = false
		}
	}
	if len(d.Nodes) == 0 {
		return nil, dropped, errNothingMapped
	}

	for _, f := range p.Flows {
		var err error
		if f.ID != "" {
			err = d.AppendEdge(domain.Edge{ID: f.ID, SourceID: f.From, TargetID: f.To, Label: f.Label})
		} else {
			_, err = d.Connect(f.From, f.To, f.Label)
		}
		if err != nil {
			dropped++
		}
	}

	if !placed {
		layout.Layered(d, layout.DefaultOptions())
	}
	return d, dropped, nil
}

// ExportYAML writes d in the minimal YAML description read by ImportExternal.
func ExportYAML(d *domain.Diagram) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil diagram", domain.ErrMalformedInput)
	}

	p := yamlProcess{Name: d.Name, Description: d.Description}
	for _, n := range d.Nodes {
		pos := n.Position
		p.Nodes = append(p.Nodes, yamlNode{
			ID:       n.ID,
			Kind:     string(n.Kind),
			Label:    n.Label,
			Position: &pos,
			Metadata: n.Metadata,
		})
	}
	for _, e := range d.Edges {
		p.Flows = append(p.Flows, yamlFlow{ID: e.ID, From: e.SourceID, To: e.TargetID, Label: e.Label})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
