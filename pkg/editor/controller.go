package editor

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
)

// Mode is the gesture state of a Controller.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeConnecting
	ModeSelected
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDragging:
		return "dragging"
	case ModeConnecting:
		return "connecting"
	case ModeSelected:
		return "selected"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// State is a snapshot of the controller. Only the fields relevant to Mode are set.
type State struct {
	Mode Mode
	// Kind is the palette item being dragged (ModeDragging).
	Kind domain.NodeKind
	// SourceID and Handle identify the port a connection started from (ModeConnecting).
	SourceID string
	Handle   *string
	// NodeID is the selected node (ModeSelected).
	NodeID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithHooks registers observers for applied changes.
func WithHooks(h domain.EditorHooks) Option {
	return func(c *Controller) {
		c.hooks = h
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller mediates gestures for a single diagram. It is not safe for concurrent use.
type Controller struct {
	diagram *domain.Diagram
	state   State
	hooks   domain.EditorHooks
	logger  *slog.Logger
}

// New starts an editing session on d in the Idle state.
func New(d *domain.Diagram, opts ...Option) *Controller {
	c := &Controller{
		diagram: d,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Diagram returns the diagram being edited.
func (c *Controller) Diagram() *domain.Diagram { return c.diagram }

// State returns the current gesture state.
func (c *Controller) State() State { return c.state }

// Selection returns the selected node id, if any.
func (c *Controller) Selection() (string, bool) {
	if c.state.Mode != ModeSelected {
		return "", false
	}
	return c.state.NodeID, true
}

func (c *Controller) invalid(gesture string) error {
	return fmt.Errorf("%w: %s while %s", domain.ErrInvalidGesture, gesture, c.state.Mode)
}

func (c *Controller) emit(ev domain.EditorEvent) {
	ev.DiagramID = c.diagram.ID
	c.hooks.Emit(ev)
}

// setIdle returns to Idle, announcing a cleared selection.
func (c *Controller) setIdle() {
	wasSelected := c.state.Mode == ModeSelected
	c.state = State{Mode: ModeIdle}
	if wasSelected {
		c.emit(domain.EditorEvent{Type: domain.EventSelectionChanged})
	}
}

// BeginDrag starts dragging a palette item. An existing selection is cleared.
func (c *Controller) BeginDrag(kind domain.NodeKind) error {
	if c.state.Mode != ModeIdle && c.state.Mode != ModeSelected {
		return c.invalid("drag start")
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	c.setIdle()
	c.state = State{Mode: ModeDragging, Kind: kind}
	c.logger.Debug("drag started", "kind", kind)
	return nil
}

// Drop places the dragged item at pos and returns the new node id.
func (c *Controller) Drop(pos domain.Position) (string, error) {
	if c.state.Mode != ModeDragging {
		return "", c.invalid("drop")
	}
	id, err := c.diagram.AddNode(c.state.Kind, pos)
	if err != nil {
		return "", err
	}
	c.state = State{Mode: ModeIdle}
	c.logger.Debug("node added", "node_id", id, "x", pos.X, "y", pos.Y)
	c.emit(domain.EditorEvent{Type: domain.EventNodeAdded, NodeID: id})
	return id, nil
}

// BeginConnect starts a connection from a node's port. handle may be nil.
func (c *Controller) BeginConnect(sourceID string, handle *string) error {
	if c.state.Mode != ModeIdle && c.state.Mode != ModeSelected {
		return c.invalid("connect start")
	}
	if _, ok := c.diagram.Node(sourceID); !ok {
		return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, sourceID)
	}
	c.setIdle()
	c.state = State{Mode: ModeConnecting, SourceID: sourceID, Handle: handle}
	return nil
}

// ReleaseOnNode completes a pending connection at targetID.
// The gesture ends in Idle even when the target cannot be resolved.
func (c *Controller) ReleaseOnNode(targetID string, targetHandle *string) (string, error) {
	if c.state.Mode != ModeConnecting {
		return "", c.invalid("release on node")
	}
	pending := c.state
	c.state = State{Mode: ModeIdle}

	id, err := c.diagram.ConnectHandles(pending.SourceID, pending.Handle, targetID, targetHandle, "")
	if err != nil {
		c.logger.Debug("connection dropped", "source", pending.SourceID, "target", targetID, "error", err)
		return "", err
	}
	c.logger.Debug("edge added", "edge_id", id, "source", pending.SourceID, "target", targetID)
	c.emit(domain.EditorEvent{Type: domain.EventEdgeAdded, EdgeID: id})
	return id, nil
}

// ClickCanvas handles a click or pointer-up on empty canvas.
// It cancels any drag or connection and clears the selection.
func (c *Controller) ClickCanvas() {
	if c.state.Mode == ModeConnecting {
		c.logger.Debug("connection cancelled", "source", c.state.SourceID)
	}
	c.setIdle()
}

// ClickNode selects a node.
func (c *Controller) ClickNode(id string) error {
	if c.state.Mode != ModeIdle && c.state.Mode != ModeSelected {
		return c.invalid("node click")
	}
	if _, ok := c.diagram.Node(id); !ok {
		return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	if c.state.Mode == ModeSelected && c.state.NodeID == id {
		return nil
	}
	c.state = State{Mode: ModeSelected, NodeID: id}
	c.emit(domain.EditorEvent{Type: domain.EventSelectionChanged, NodeID: id})
	return nil
}

// SetLabel edits the selected node's label.
func (c *Controller) SetLabel(label string) error {
	return c.edit("label", domain.NodePatch{Label: &label})
}

// SetProperty edits one metadata key of the selected node. A nil value removes the key.
func (c *Controller) SetProperty(key string, value any) error {
	return c.edit(key, domain.NodePatch{Metadata: domain.Metadata{key: value}})
}

// Resize edits the selected node's size.
func (c *Controller) Resize(size domain.Size) error {
	return c.edit("size", domain.NodePatch{Size: &size})
}

func (c *Controller) edit(field string, patch domain.NodePatch) error {
	if c.state.Mode != ModeSelected {
		return c.invalid("edit " + field)
	}
	if err := c.diagram.UpdateNode(c.state.NodeID, patch); err != nil {
		return err
	}
	c.emit(domain.EditorEvent{Type: domain.EventNodeUpdated, NodeID: c.state.NodeID, Field: field})
	return nil
}

// MoveNode repositions a node dragged on the canvas. Selection is left as is.
func (c *Controller) MoveNode(id string, pos domain.Position) error {
	if c.state.Mode != ModeIdle && c.state.Mode != ModeSelected {
		return c.invalid("move")
	}
	if err := c.diagram.UpdateNode(id, domain.NodePatch{Position: &pos}); err != nil {
		return err
	}
	c.emit(domain.EditorEvent{Type: domain.EventNodeUpdated, NodeID: id, Field: "position"})
	return nil
}

// DeleteSelection removes the selected node and its edges, then returns to Idle.
func (c *Controller) DeleteSelection() error {
	if c.state.Mode != ModeSelected {
		return c.invalid("delete")
	}
	id := c.state.NodeID
	if err := c.diagram.RemoveNode(id); err != nil {
		return err
	}
	c.logger.Debug("node removed", "node_id", id)
	c.emit(domain.EditorEvent{Type: domain.EventNodeRemoved, NodeID: id})
	c.setIdle()
	return nil
}
