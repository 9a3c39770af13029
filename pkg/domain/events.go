package domain

// EditorEventType identifies what an editing gesture changed.
type EditorEventType string

const (
	EventNodeAdded        EditorEventType = "node_added"
	EventNodeUpdated      EditorEventType = "node_updated"
	EventNodeRemoved      EditorEventType = "node_removed"
	EventEdgeAdded        EditorEventType = "edge_added"
	EventSelectionChanged EditorEventType = "selection_changed"
)

// EditorEvent describes one applied change to a diagram during an editing session.
type EditorEvent struct {
	Type      EditorEventType `json:"type"`
	DiagramID string          `json:"diagram_id"`
	NodeID    string          `json:"node_id,omitempty"`
	EdgeID    string          `json:"edge_id,omitempty"`
	// Field names the property edited for EventNodeUpdated.
	Field string `json:"field,omitempty"`
}

// EditorHooks lets a presentation layer observe editing without coupling the
// model to notifications. Every hook is optional.
type EditorHooks struct {
	OnNodeAdded        func(EditorEvent)
	OnNodeUpdated      func(EditorEvent)
	OnNodeRemoved      func(EditorEvent)
	OnEdgeAdded        func(EditorEvent)
	OnSelectionChanged func(EditorEvent)
}

// Emit dispatches ev to the matching hook, if set.
func (h EditorHooks) Emit(ev EditorEvent) {
	var fn func(EditorEvent)
	switch ev.Type {
	case EventNodeAdded:
		fn = h.OnNodeAdded
	case EventNodeUpdated:
		fn = h.OnNodeUpdated
	case EventNodeRemoved:
		fn = h.OnNodeRemoved
	case EventEdgeAdded:
		fn = h.OnEdgeAdded
	case EventSelectionChanged:
		fn = h.OnSelectionChanged
	}
	if fn != nil {
		fn(ev)
	}
}
