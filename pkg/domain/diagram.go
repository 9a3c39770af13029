package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a diagram or stored entity.
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

// IDGenerator produces identifiers for new nodes, edges and diagrams.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// Diagram is one process model: ordered nodes and directed edges.
// Node and edge order only affects rendering (z-index), never semantics.
type Diagram struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Version      string    `json:"version" yaml:"version"`
	Status       Status    `json:"status" yaml:"status"`
	LastModified time.Time `json:"lastModified" yaml:"lastModified"`

	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`

	newID IDGenerator
	now   func() time.Time
}

// DiagramOption configures a Diagram.
type DiagramOption func(*Diagram)

// WithIDGenerator sets the generator used for node, edge and diagram IDs.
func WithIDGenerator(gen IDGenerator) DiagramOption {
	return func(d *Diagram) {
		d.newID = gen
	}
}

// WithClock sets the time source used for LastModified.
func WithClock(now func() time.Time) DiagramOption {
	return func(d *Diagram) {
		d.now = now
	}
}

// NewDiagram creates an empty draft diagram.
func NewDiagram(name string, opts ...DiagramOption) *Diagram {
	d := &Diagram{
		Name:    name,
		Version: "1.0",
		Status:  StatusDraft,
		Nodes:   []Node{},
		Edges:   []Edge{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ID = d.generateID()
	d.Touch()
	return d
}

// Configure applies options to an existing diagram, e.g. one produced by an importer.
func (d *Diagram) Configure(opts ...DiagramOption) {
	for _, opt := range opts {
		opt(d)
	}
}

func (d *Diagram) generateID() string {
	if d.newID == nil {
		return NewUUID()
	}
	return d.newID()
}

func (d *Diagram) clock() time.Time {
	if d.now == nil {
		return time.Now().UTC()
	}
	return d.now()
}

// Touch refreshes LastModified.
func (d *Diagram) Touch() {
	d.LastModified = d.clock()
}

// AddNode places a new node of the given kind with its default size and placeholder label.
// Gateways start as exclusive gateways.
func (d *Diagram) AddNode(kind NodeKind, pos Position) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	node := Node{
		ID:       d.uniqueNodeID(),
		Kind:     kind,
		Position: pos,
		Size:     kind.DefaultSize(),
		Label:    kind.Placeholder(),
		Metadata: Metadata{},
	}
	if kind == KindGateway {
		node.Metadata[KeyGatewayType] = string(GatewayExclusive)
	}

	d.Nodes = append(d.Nodes, node)
	d.Touch()
	return node.ID, nil
}

// AppendNode inserts a fully specified node, enforcing kind validity and ID uniqueness.
// Importers use it to rebuild diagrams from external data.
func (d *Diagram) AppendNode(n Node) error {
	if !n.Kind.IsValid() {
		return fmt.Errorf("%w: node %q has kind %q", ErrInvalidKind, n.ID, n.Kind)
	}
	if n.ID == "" {
		return fmt.Errorf("%w: node without id", ErrMalformedInput)
	}
	if _, exists := d.nodeIndex(n.ID); exists {
		return fmt.Errorf("%w: duplicate node id %q", ErrMalformedInput, n.ID)
	}
	n.Metadata = n.Metadata.Normalize()
	if n.Metadata == nil {
		n.Metadata = Metadata{}
	}
	d.Nodes = append(d.Nodes, n)
	d.Touch()
	return nil
}

// NodePatch holds the fields to merge into a node. Nil fields are left untouched.
// Metadata keys are merged one by one; a nil value removes the key. Values are
// stored in their JSON-native form (see Metadata.Normalize).
type NodePatch struct {
	Label    *string
	Position *Position
	Size     *Size
	Metadata Metadata
}

// UpdateNode merges patch into the node identified by id.
func (d *Diagram) UpdateNode(id string, patch NodePatch) error {
	i, ok := d.nodeIndex(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	node := &d.Nodes[i]
	if patch.Label != nil {
		node.Label = *patch.Label
	}
	if patch.Position != nil {
		node.Position = *patch.Position
	}
	if patch.Size != nil {
		node.Size = *patch.Size
	}
	if len(patch.Metadata) > 0 && node.Metadata == nil {
		node.Metadata = Metadata{}
	}
	for k, v := range patch.Metadata {
		if v == nil {
			delete(node.Metadata, k)
			continue
		}
		node.Metadata[k] = normalizeValue(v)
	}

	d.Touch()
	return nil
}

// RemoveNode deletes the node and every edge that references it.
func (d *Diagram) RemoveNode(id string) error {
	i, ok := d.nodeIndex(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)

	kept := d.Edges[:0]
	for _, e := range d.Edges {
		if !e.References(id) {
			kept = append(kept, e)
		}
	}
	d.Edges = kept

	d.Touch()
	return nil
}

// Connect adds an edge from sourceID to targetID.
// Self-loops and parallel edges between the same pair are permitted.
func (d *Diagram) Connect(sourceID, targetID, label string) (string, error) {
	return d.ConnectHandles(sourceID, nil, targetID, nil, label)
}

// ConnectHandles adds an edge bound to specific connection ports.
func (d *Diagram) ConnectHandles(sourceID string, sourceHandle *string, targetID string, targetHandle *string, label string) (string, error) {
	if _, ok := d.nodeIndex(sourceID); !ok {
		return "", fmt.Errorf("%w: source %q", ErrNodeNotFound, sourceID)
	}
	if _, ok := d.nodeIndex(targetID); !ok {
		return "", fmt.Errorf("%w: target %q", ErrNodeNotFound, targetID)
	}

	edge := Edge{
		ID:           d.uniqueEdgeID(),
		SourceID:     sourceID,
		TargetID:     targetID,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Label:        label,
	}
	d.Edges = append(d.Edges, edge.Clone())
	d.Touch()
	return edge.ID, nil
}

// AppendEdge inserts a fully specified edge. Both endpoints must resolve.
func (d *Diagram) AppendEdge(e Edge) error {
	if e.ID == "" {
		return fmt.Errorf("%w: edge without id", ErrMalformedInput)
	}
	if _, exists := d.edgeIndex(e.ID); exists {
		return fmt.Errorf("%w: duplicate edge id %q", ErrMalformedInput, e.ID)
	}
	if _, ok := d.nodeIndex(e.SourceID); !ok {
		return fmt.Errorf("%w: edge %q references missing source %q", ErrMalformedInput, e.ID, e.SourceID)
	}
	if _, ok := d.nodeIndex(e.TargetID); !ok {
		return fmt.Errorf("%w: edge %q references missing target %q", ErrMalformedInput, e.ID, e.TargetID)
	}
	e.Metadata = e.Metadata.Normalize()
	d.Edges = append(d.Edges, e)
	d.Touch()
	return nil
}

// RemoveEdge deletes the edge with the given id. Removing an absent edge is a no-op.
func (d *Diagram) RemoveEdge(id string) {
	i, ok := d.edgeIndex(id)
	if !ok {
		return
	}
	d.Edges = append(d.Edges[:i], d.Edges[i+1:]...)
	d.Touch()
}

// Node returns a copy of the node with the given id.
func (d *Diagram) Node(id string) (Node, bool) {
	i, ok := d.nodeIndex(id)
	if !ok {
		return Node{}, false
	}
	return d.Nodes[i].Clone(), true
}

// Edge returns a copy of the edge with the given id.
func (d *Diagram) Edge(id string) (Edge, bool) {
	i, ok := d.edgeIndex(id)
	if !ok {
		return Edge{}, false
	}
	return d.Edges[i].Clone(), true
}

// DanglingEdges returns the edges whose source or target does not resolve to a node.
func (d *Diagram) DanglingEdges() []Edge {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	var dangling []Edge
	for _, e := range d.Edges {
		_, src := ids[e.SourceID]
		_, dst := ids[e.TargetID]
		if !src || !dst {
			dangling = append(dangling, e)
		}
	}
	return dangling
}

// Clone returns a deep copy of the diagram, keeping its ID generator and clock.
func (d *Diagram) Clone() *Diagram {
	out := *d
	if d.Nodes != nil {
		out.Nodes = make([]Node, len(d.Nodes))
		for i, n := range d.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if d.Edges != nil {
		out.Edges = make([]Edge, len(d.Edges))
		for i, e := range d.Edges {
			out.Edges[i] = e.Clone()
		}
	}
	return &out
}

func (d *Diagram) nodeIndex(id string) (int, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (d *Diagram) edgeIndex(id string) (int, bool) {
	for i := range d.Edges {
		if d.Edges[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// uniqueNodeID suffixes a colliding generated ID so uniqueness holds even for a poor generator.
func (d *Diagram) uniqueNodeID() string {
	base := d.generateID()
	id := base
	for n := 2; ; n++ {
		if _, taken := d.nodeIndex(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (d *Diagram) uniqueEdgeID() string {
	base := d.generateID()
	id := base
	for n := 2; ; n++ {
		if _, taken := d.edgeIndex(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}
