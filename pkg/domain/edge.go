package domain

// Edge is a directed sequence flow between two nodes of the same diagram.
type Edge struct {
	ID       string `json:"id" yaml:"id"`
	SourceID string `json:"sourceId" yaml:"source"`
	TargetID string `json:"targetId" yaml:"target"`

	// SourceHandle and TargetHandle identify connection ports on multi-port nodes.
	// They are nil when the rendering layer does not use ports.
	SourceHandle *string `json:"sourceHandle" yaml:"sourceHandle,omitempty"`
	TargetHandle *string `json:"targetHandle" yaml:"targetHandle,omitempty"`

	// Label is shown on the connector, e.g. "Yes"/"No" on gateway outputs.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	Metadata Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// References reports whether the edge starts or ends at nodeID.
func (e Edge) References(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// Clone returns a copy of the edge that shares no mutable state with e.
func (e Edge) Clone() Edge {
	if e.SourceHandle != nil {
		h := *e.SourceHandle
		e.SourceHandle = &h
	}
	if e.TargetHandle != nil {
		h := *e.TargetHandle
		e.TargetHandle = &h
	}
	e.Metadata = e.Metadata.Clone()
	return e
}
