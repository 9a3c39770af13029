package dsl

import (
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/validation"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	// 1. Build the diagram using DSL
	b := New("Expense approval")

	b.Start("start").Label("Expense submitted").Go("review")
	b.Task("review").Label("Review expense").Assign("finance").Go("ok")
	b.Gateway("ok", domain.GatewayExclusive).Label("Approved?").
		Branch("Yes", "pay").
		Branch("No", "rejected")
	b.Task("pay").Label("Reimburse").Go("done")
	b.End("rejected").Label("Rejected")
	b.End("done").Label("Paid")

	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// 2. Verify structure
	if d.Name != "Expense approval" {
		t.Errorf("Expected name 'Expense approval', got '%s'", d.Name)
	}
	if len(d.Nodes) != 6 {
		t.Fatalf("Expected 6 nodes, got %d", len(d.Nodes))
	}
	if len(d.Edges) != 5 {
		t.Fatalf("Expected 5 edges, got %d", len(d.Edges))
	}
	if d.Nodes[0].ID != "start" || d.Nodes[5].ID != "done" {
		t.Errorf("Expected declaration order, got %s..%s", d.Nodes[0].ID, d.Nodes[5].ID)
	}

	review, _ := d.Node("review")
	if review.Metadata.String(domain.KeyAssignee) != "finance" {
		t.Errorf("Expected assignee 'finance', got %v", review.Metadata[domain.KeyAssignee])
	}
	gateway, _ := d.Node("ok")
	if gateway.GatewayType() != domain.GatewayExclusive {
		t.Errorf("Expected exclusive gateway, got '%s'", gateway.GatewayType())
	}

	labels := map[string]string{}
	for _, e := range d.Edges {
		if e.SourceID == "ok" {
			labels[e.Label] = e.TargetID
		}
	}
	if labels["Yes"] != "pay" || labels["No"] != "rejected" {
		t.Errorf("Unexpected gateway branches: %v", labels)
	}

	// 3. The built diagram is valid and was laid out left to right
	if res := validation.Validate(d); !res.IsValid || len(res.Warnings) > 0 {
		t.Errorf("Expected a clean diagram, got %s", res.Summary())
	}
	start, _ := d.Node("start")
	if start.Position.X >= review.Position.X {
		t.Errorf("Expected start left of review, got %v and %v", start.Position, review.Position)
	}
}

func TestBuilder_Chaining(t *testing.T) {
	d := New("Chained").
		Start("s").Label("Begin").Go("e").Then().
		End("e").Label("Finish").Then().
		MustBuild()

	if len(d.Nodes) != 2 || len(d.Edges) != 1 {
		t.Fatalf("Expected 2 nodes and 1 edge, got %d and %d", len(d.Nodes), len(d.Edges))
	}
}

func TestBuilder_AddIsIdempotent(t *testing.T) {
	b := New("Twice")
	first := b.Task("t").Label("First")
	second := b.Task("t")
	if first != second {
		t.Fatal("Expected Add to return the existing builder")
	}
	if got := second.Build().Label; got != "First" {
		t.Errorf("Expected label 'First', got '%s'", got)
	}
}

func TestBuilder_ExplicitPositionsSkipLayout(t *testing.T) {
	d := New("Pinned").
		Start("s").Label("Begin").At(500, 40).Go("e").Then().
		End("e").Label("Finish").At(10, 40).Then().
		MustBuild()

	s, _ := d.Node("s")
	if s.Position.X != 500 {
		t.Errorf("Expected pinned x=500, got %v", s.Position.X)
	}
}

func TestBuilder_UnknownTarget(t *testing.T) {
	_, err := New("Broken").
		Start("s").Label("Begin").Go("nowhere").Then().
		Build()
	if !errors.Is(err, domain.ErrNodeNotFound) {
		t.Fatalf("Expected ErrNodeNotFound, got %v", err)
	}
}
