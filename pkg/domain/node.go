package domain

import (
	"fmt"
	"strings"
)

// NodeKind defines the structural role of a node in a process diagram.
type NodeKind string

const (
	// KindStartEvent marks an entry point of the process.
	KindStartEvent NodeKind = "StartEvent"
	// KindEndEvent marks a terminal point of the process.
	KindEndEvent NodeKind = "EndEvent"
	// KindTask is a unit of work.
	KindTask NodeKind = "Task"
	// KindGateway branches or merges the flow. See GatewayType.
	KindGateway NodeKind = "Gateway"
	// KindSubProcess embeds a nested process.
	KindSubProcess NodeKind = "SubProcess"
)

// Kinds lists every recognized node kind in palette order.
var Kinds = []NodeKind{KindStartEvent, KindEndEvent, KindTask, KindGateway, KindSubProcess}

// IsValid reports whether k is one of the recognized kinds.
func (k NodeKind) IsValid() bool {
	switch k {
	case KindStartEvent, KindEndEvent, KindTask, KindGateway, KindSubProcess:
		return true
	}
	return false
}

// DefaultSize returns the size a freshly placed node of this kind receives.
func (k NodeKind) DefaultSize() Size {
	switch k {
	case KindStartEvent, KindEndEvent:
		return Size{Width: 36, Height: 36}
	case KindGateway:
		return Size{Width: 50, Height: 50}
	case KindSubProcess:
		return Size{Width: 200, Height: 120}
	default:
		return Size{Width: 120, Height: 60}
	}
}

// Placeholder returns the auto-generated label given to new nodes ("New Task").
func (k NodeKind) Placeholder() string {
	return "New " + string(k)
}

// ParseNodeKind resolves a kind name case-insensitively.
// It accepts the canonical names and the short palette aliases (start, end, task, gateway, subprocess).
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "startevent", "start":
		return KindStartEvent, nil
	case "endevent", "end":
		return KindEndEvent, nil
	case "task":
		return KindTask, nil
	case "gateway":
		return KindGateway, nil
	case "subprocess", "sub-process", "sub_process":
		return KindSubProcess, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// GatewayType refines the branching semantics of a Gateway node.
type GatewayType string

const (
	// GatewayExclusive takes exactly one outgoing path.
	GatewayExclusive GatewayType = "exclusive"
	// GatewayParallel takes all outgoing paths.
	GatewayParallel GatewayType = "parallel"
	// GatewayInclusive takes one or more outgoing paths.
	GatewayInclusive GatewayType = "inclusive"
)

// IsValid reports whether g is a recognized gateway sub-type.
func (g GatewayType) IsValid() bool {
	return g == GatewayExclusive || g == GatewayParallel || g == GatewayInclusive
}

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
}

// Size is the rendered extent of a node.
type Size struct {
	Width  float64 `json:"width" yaml:"width" mapstructure:"width"`
	Height float64 `json:"height" yaml:"height" mapstructure:"height"`
}

// Metadata is an open key-value bag attached to nodes and edges.
// Its schema depends on the node kind but is deliberately not enforced:
// readers must tolerate missing and extra keys.
type Metadata map[string]any

// Clone returns a deep copy of nested maps and slices.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the value under key when it is a string, or "".
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, sv := range t {
			out[k] = cloneValue(sv)
		}
		return out
	case Metadata:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, sv := range t {
			out[i] = cloneValue(sv)
		}
		return out
	default:
		return v
	}
}

// Node represents an element of a process diagram.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     NodeKind `json:"kind" yaml:"kind"`
	Position Position `json:"position" yaml:"position"`
	Size     Size     `json:"size" yaml:"size"`
	Label    string   `json:"label" yaml:"label"`

	// Metadata carries kind-dependent attributes such as assignee, priority or gatewayType.
	Metadata Metadata `json:"metadata" yaml:"metadata,omitempty"`
}

// GatewayType returns the gateway sub-type recorded in metadata.
func (n Node) GatewayType() GatewayType {
	return GatewayType(n.Metadata.String(KeyGatewayType))
}

// IsUnnamed reports whether the label is empty or still the auto-generated placeholder.
func (n Node) IsUnnamed() bool {
	label := strings.TrimSpace(n.Label)
	return label == "" || label == n.Kind.Placeholder()
}

// Clone returns a copy of the node that shares no mutable state with n.
func (n Node) Clone() Node {
	n.Metadata = n.Metadata.Clone()
	return n
}
