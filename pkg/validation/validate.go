package validation

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Severity separates blocking findings from advisory ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the rule that produced an Issue.
type Code string

const (
	MissingStartEvent   Code = "MissingStartEvent"
	MultipleStartEvents Code = "MultipleStartEvents"
	MissingEndEvent     Code = "MissingEndEvent"
	DisconnectedElement Code = "DisconnectedElement"
	UnnamedElement      Code = "UnnamedElement"
	DanglingReference   Code = "DanglingReference"
	InvalidGatewayType  Code = "InvalidGatewayType"
)

// Issue is a single validation finding.
type Issue struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	// ElementID is the offending node or edge, empty for diagram-level findings.
	ElementID string `json:"elementId,omitempty"`
	Message   string `json:"message"`
}

// Result is the structural report for one diagram.
type Result struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Has reports whether the result contains an issue with the given code.
func (r Result) Has(code Code) bool {
	for _, list := range [][]Issue{r.Errors, r.Warnings} {
		for _, issue := range list {
			if issue.Code == code {
				return true
			}
		}
	}
	return false
}

// Summary returns a one-line description suitable for a toast.
func (r Result) Summary() string {
	if r.IsValid && len(r.Warnings) == 0 {
		return "Process is valid"
	}
	if r.IsValid {
		return fmt.Sprintf("Process is valid with %d warning(s)", len(r.Warnings))
	}
	return fmt.Sprintf("Process has %d error(s) and %d warning(s)", len(r.Errors), len(r.Warnings))
}

type report struct {
	errors   []Issue
	warnings []Issue
}

func (r *report) fail(code Code, elementID, format string, args ...any) {
	r.errors = append(r.errors, Issue{Code: code, Severity: SeverityError, ElementID: elementID, Message: fmt.Sprintf(format, args...)})
}

func (r *report) warn(code Code, elementID, format string, args ...any) {
	r.warnings = append(r.warnings, Issue{Code: code, Severity: SeverityWarning, ElementID: elementID, Message: fmt.Sprintf(format, args...)})
}

// Validate runs every rule against d. A nil diagram is treated as empty.
func Validate(d *domain.Diagram) Result {
	var nodes []domain.Node
	var edges []domain.Edge
	if d != nil {
		nodes, edges = d.Nodes, d.Edges
	}

	r := &report{}
	checkEvents(r, nodes)
	checkConnectivity(r, nodes, edges)
	checkNames(r, nodes)
	checkReferences(r, nodes, edges)
	checkGateways(r, nodes)

	res := Result{
		IsValid:  len(r.errors) == 0,
		Errors:   r.errors,
		Warnings: r.warnings,
	}
	if res.Errors == nil {
		res.Errors = []Issue{}
	}
	if res.Warnings == nil {
		res.Warnings = []Issue{}
	}
	return res
}

func checkEvents(r *report, nodes []domain.Node) {
	var starts, ends int
	for _, n := range nodes {
		switch n.Kind {
		case domain.KindStartEvent:
			starts++
		case domain.KindEndEvent:
			ends++
		}
	}

	switch {
	case starts == 0:
		r.fail(MissingStartEvent, "", "Process must have a start event")
	case starts > 1:
		r.warn(MultipleStartEvents, "", "Process has %d start events", starts)
	}
	if ends == 0 {
		r.fail(MissingEndEvent, "", "Process must have an end event")
	}
}

func checkConnectivity(r *report, nodes []domain.Node, edges []domain.Edge) {
	referenced := make(map[string]bool, len(edges)*2)
	for _, e := range edges {
		referenced[e.SourceID] = true
		referenced[e.TargetID] = true
	}

	for _, n := range nodes {
		if n.Kind == domain.KindStartEvent || referenced[n.ID] {
			continue
		}
		r.warn(DisconnectedElement, n.ID, "Element %q is not connected", displayName(n))
	}
}

func checkNames(r *report, nodes []domain.Node) {
	for _, n := range nodes {
		if n.IsUnnamed() {
			r.warn(UnnamedElement, n.ID, "%s %q should have a name", n.Kind, n.ID)
		}
	}
}

func checkReferences(r *report, nodes []domain.Node, edges []domain.Edge) {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	for _, e := range edges {
		if !known[e.SourceID] {
			r.fail(DanglingReference, e.ID, "Connection %q starts at missing element %q", e.ID, e.SourceID)
		}
		if !known[e.TargetID] {
			r.fail(DanglingReference, e.ID, "Connection %q ends at missing element %q", e.ID, e.TargetID)
		}
	}
}

func checkGateways(r *report, nodes []domain.Node) {
	for _, n := range nodes {
		if n.Kind != domain.KindGateway {
			continue
		}
		raw, present := n.Metadata[domain.KeyGatewayType]
		if !present {
			continue
		}
		if s, ok := raw.(string); !ok || !domain.GatewayType(s).IsValid() {
			r.warn(InvalidGatewayType, n.ID, "Gateway %q has unknown type %v", displayName(n), raw)
		}
	}
}

func displayName(n domain.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
