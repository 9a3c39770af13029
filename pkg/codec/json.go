package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/validation"
	"github.com/mitchellh/mapstructure"
)

// FormatVersion is written to every exported envelope.
const FormatVersion = "1.0"

// ExportMetadata describes who produced an export and when.
type ExportMetadata struct {
	ExportedAt time.Time `json:"exportedAt"`
	ExportedBy string    `json:"exportedBy"`
	Version    string    `json:"version"`
}

// Header carries the diagram identity so it survives a round-trip.
type Header struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Version      string        `json:"version,omitempty"`
	Status       domain.Status `json:"status,omitempty"`
	LastModified time.Time     `json:"lastModified"`
}

// Envelope is the exported JSON document.
type Envelope struct {
	Diagram    *Header            `json:"diagram,omitempty"`
	Nodes      []domain.Node      `json:"nodes"`
	Edges      []domain.Edge      `json:"edges"`
	Metadata   ExportMetadata     `json:"metadata"`
	Validation *validation.Result `json:"validation,omitempty"`
}

// ExportOptions tunes ExportJSON.
type ExportOptions struct {
	// ExportedBy identifies the exporting user or tool.
	ExportedBy string
	// IncludeValidation embeds the validation report in the envelope.
	IncludeValidation bool
	// Now overrides the export timestamp source.
	Now func() time.Time
}

// ExportJSON serializes d as a pretty-printed envelope.
func ExportJSON(d *domain.Diagram, opts ExportOptions) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil diagram", domain.ErrMalformedInput)
	}

	now := time.Now().UTC()
	if opts.Now != nil {
		now = opts.Now()
	}

	env := Envelope{
		Diagram: &Header{
			ID:           d.ID,
			Name:         d.Name,
			Description:  d.Description,
			Version:      d.Version,
			Status:       d.Status,
			LastModified: d.LastModified,
		},
		Nodes: d.Nodes,
		Edges: d.Edges,
		Metadata: ExportMetadata{
			ExportedAt: now,
			ExportedBy: opts.ExportedBy,
			Version:    FormatVersion,
		},
	}
	if env.Nodes == nil {
		env.Nodes = []domain.Node{}
	}
	if env.Edges == nil {
		env.Edges = []domain.Edge{}
	}
	if opts.IncludeValidation {
		res := validation.Validate(d)
		env.Validation = &res
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diagram: %w", err)
	}
	return data, nil
}

// wireNode is the tolerant decoding shape of a node.
// Fields it does not know land in Extra and are folded into metadata.
type wireNode struct {
	ID       string          `mapstructure:"id"`
	Kind     string          `mapstructure:"kind"`
	Type     string          `mapstructure:"type"`
	Position domain.Position `mapstructure:"position"`
	Size     *domain.Size    `mapstructure:"size"`
	Label    string          `mapstructure:"label"`
	Metadata map[string]any  `mapstructure:"metadata"`
	Extra    map[string]any  `mapstructure:",remain"`
}

type wireEdge struct {
	ID           string         `mapstructure:"id"`
	SourceID     string         `mapstructure:"sourceId"`
	TargetID     string         `mapstructure:"targetId"`
	Source       string         `mapstructure:"source"`
	Target       string         `mapstructure:"target"`
	SourceHandle *string        `mapstructure:"sourceHandle"`
	TargetHandle *string        `mapstructure:"targetHandle"`
	Label        string         `mapstructure:"label"`
	Metadata     map[string]any `mapstructure:"metadata"`
	Extra        map[string]any `mapstructure:",remain"`
}

// ImportJSON parses an envelope produced by ExportJSON (or a compatible editor export).
// It fails with domain.ErrMalformedInput when the text is not JSON, when the
// nodes or edges keys are missing, or when an edge references a missing node.
func ImportJSON(data []byte, opts ...domain.DiagramOption) (*domain.Diagram, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	rawNodes, okNodes := raw["nodes"]
	rawEdges, okEdges := raw["edges"]
	if !okNodes || !okEdges {
		return nil, fmt.Errorf("%w: envelope requires both \"nodes\" and \"edges\"", domain.ErrMalformedInput)
	}

	var nodes, edges []map[string]any
	if err := unmarshalNumbers(rawNodes, &nodes); err != nil {
		return nil, fmt.Errorf("%w: nodes: %v", domain.ErrMalformedInput, err)
	}
	if err := unmarshalNumbers(rawEdges, &edges); err != nil {
		return nil, fmt.Errorf("%w: edges: %v", domain.ErrMalformedInput, err)
	}

	var header *Header
	if rawHeader, ok := raw["diagram"]; ok && string(rawHeader) != "null" {
		header = &Header{}
		if err := json.Unmarshal(rawHeader, header); err != nil {
			return nil, fmt.Errorf("%w: diagram header: %v", domain.ErrMalformedInput, err)
		}
	}

	d := domain.NewDiagram("Imported Process", opts...)
	for i, rn := range nodes {
		n, err := decodeNode(rn)
		if err != nil {
			return nil, fmt.Errorf("%w: node #%d: %w", domain.ErrMalformedInput, i, err)
		}
		if err := d.AppendNode(n); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrMalformedInput, err)
		}
	}
	for i, re := range edges {
		e, err := decodeEdge(re)
		if err != nil {
			return nil, fmt.Errorf("%w: edge #%d: %w", domain.ErrMalformedInput, i, err)
		}
		if err := d.AppendEdge(e); err != nil {
			return nil, err
		}
	}

	if header != nil {
		applyHeader(d, header)
	}
	return d, nil
}

func applyHeader(d *domain.Diagram, h *Header) {
	if h.ID != "" {
		d.ID = h.ID
	}
	if h.Name != "" {
		d.Name = h.Name
	}
	d.Description = h.Description
	if h.Version != "" {
		d.Version = h.Version
	}
	if h.Status != "" {
		d.Status = h.Status
	}
	if !h.LastModified.IsZero() {
		d.LastModified = h.LastModified
	}
}

// unmarshalNumbers keeps numbers as json.Number so integers wider than a
// float64 mantissa survive until metadata normalization.
func unmarshalNumbers(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decodeNode(raw map[string]any) (domain.Node, error) {
	var w wireNode
	if err := decode(raw, &w); err != nil {
		return domain.Node{}, err
	}

	kindName := w.Kind
	if kindName == "" {
		kindName = w.Type
	} else if w.Type != "" {
		if w.Extra == nil {
			w.Extra = map[string]any{}
		}
		w.Extra["type"] = w.Type
	}
	kind, err := domain.ParseNodeKind(kindName)
	if err != nil {
		return domain.Node{}, err
	}

	n := domain.Node{
		ID:       w.ID,
		Kind:     kind,
		Position: w.Position,
		Size:     kind.DefaultSize(),
		Label:    w.Label,
		Metadata: mergeExtra(w.Metadata, w.Extra),
	}
	if w.Size != nil {
		n.Size = *w.Size
	}
	return n, nil
}

func decodeEdge(raw map[string]any) (domain.Edge, error) {
	var w wireEdge
	if err := decode(raw, &w); err != nil {
		return domain.Edge{}, err
	}

	e := domain.Edge{
		ID:           w.ID,
		SourceID:     w.SourceID,
		TargetID:     w.TargetID,
		SourceHandle: w.SourceHandle,
		TargetHandle: w.TargetHandle,
		Label:        w.Label,
	}
	if e.SourceID == "" {
		e.SourceID = w.Source
	}
	if e.TargetID == "" {
		e.TargetID = w.Target
	}
	if md := mergeExtra(w.Metadata, w.Extra); len(md) > 0 || w.Metadata != nil {
		e.Metadata = md
	}
	return e, nil
}

// mergeExtra folds unknown fields into metadata without overwriting explicit keys.
func mergeExtra(metadata, extra map[string]any) domain.Metadata {
	md := domain.Metadata{}
	for k, v := range metadata {
		md[k] = v
	}
	for k, v := range extra {
		if _, exists := md[k]; !exists {
			md[k] = v
		}
	}
	return md
}
