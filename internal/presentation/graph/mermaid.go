package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/validation"
)

// Overlay marks nodes on top of the plain diagram.
type Overlay struct {
	Errors   []string
	Warnings []string
	Selected string
}

// OverlayFromResult highlights the elements named by validation issues.
func OverlayFromResult(res validation.Result) *Overlay {
	o := &Overlay{}
	for _, issue := range res.Errors {
		if issue.ElementID != "" {
			o.Errors = append(o.Errors, issue.ElementID)
		}
	}
	for _, issue := range res.Warnings {
		if issue.ElementID != "" {
			o.Warnings = append(o.Warnings, issue.ElementID)
		}
	}
	return o
}

// GenerateMermaid produces a left-to-right Mermaid flowchart for d.
// Shapes follow BPMN conventions:
// - StartEvent: ((circle))
// - EndEvent: (((double circle)))
// - Task: (rounded)
// - Gateway: {rhombus}
// - SubProcess: [[subroutine]]
func GenerateMermaid(d *domain.Diagram, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	if d == nil {
		return sb.String()
	}

	ids := newIDMap()
	known := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		known[n.ID] = true
		opener, closer := shape(n.Kind)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", ids.of(n.ID), opener, escape(caption(n)), closer)
	}

	for _, e := range d.Edges {
		arrow := "-->"
		if !known[e.SourceID] || !known[e.TargetID] {
			arrow = "-.->"
		}
		if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(e.Label))
			if !known[e.SourceID] || !known[e.TargetID] {
				arrow = fmt.Sprintf("-. \"%s\" .->", escape(e.Label))
			}
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", ids.of(e.SourceID), arrow, ids.of(e.TargetID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef warning fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected stroke:#1565c0,stroke-width:4px;\n")

		marked := make(map[string]bool)
		for _, id := range overlay.Errors {
			if known[id] && !marked[id] {
				marked[id] = true
				fmt.Fprintf(&sb, "    class %s invalid;\n", ids.of(id))
			}
		}
		for _, id := range overlay.Warnings {
			if known[id] && !marked[id] {
				marked[id] = true
				fmt.Fprintf(&sb, "    class %s warning;\n", ids.of(id))
			}
		}
		if known[overlay.Selected] {
			fmt.Fprintf(&sb, "    class %s selected;\n", ids.of(overlay.Selected))
		}
	}

	return sb.String()
}

func shape(kind domain.NodeKind) (string, string) {
	switch kind {
	case domain.KindStartEvent:
		return "((", "))"
	case domain.KindEndEvent:
		return "(((", ")))"
	case domain.KindTask:
		return "(", ")"
	case domain.KindGateway:
		return "{", "}"
	case domain.KindSubProcess:
		return "[[", "]]"
	}
	return "[", "]"
}

func caption(n domain.Node) string {
	label := strings.TrimSpace(n.Label)
	if label == "" {
		label = n.ID
	}
	if n.Kind == domain.KindGateway {
		if g := n.GatewayType(); g != "" && g != domain.GatewayExclusive {
			label = fmt.Sprintf("%s <br/> %s", label, g)
		}
	}
	return label
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

var idReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")

// idMap assigns each diagram id a Mermaid-safe id. Ids that sanitize to the
// same text get a numeric suffix, so distinct nodes never merge.
type idMap struct {
	byID  map[string]string
	taken map[string]bool
}

func newIDMap() *idMap {
	return &idMap{byID: map[string]string{}, taken: map[string]bool{}}
}

func (m *idMap) of(id string) string {
	if safe, ok := m.byID[id]; ok {
		return safe
	}
	base := idReplacer.Replace(id)
	safe := base
	for n := 2; m.taken[safe]; n++ {
		safe = fmt.Sprintf("%s_%d", base, n)
	}
	m.byID[id] = safe
	m.taken[safe] = true
	return safe
}
