package validation_test

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, kind domain.NodeKind, label string) domain.Node {
	return domain.Node{ID: id, Kind: kind, Label: label, Size: kind.DefaultSize(), Metadata: domain.Metadata{}}
}

func edge(id, from, to string) domain.Edge {
	return domain.Edge{ID: id, SourceID: from, TargetID: to}
}

func codes(issues []validation.Issue) []validation.Code {
	out := make([]validation.Code, len(issues))
	for i, issue := range issues {
		out[i] = issue.Code
	}
	return out
}

func TestValidate_LinearProcessIsClean(t *testing.T) {
	d := &domain.Diagram{
		Nodes: []domain.Node{
			node("s1", domain.KindStartEvent, "Start"),
			node("t1", domain.KindTask, "Review"),
			node("e1", domain.KindEndEvent, "Done"),
		},
		Edges: []domain.Edge{edge("f1", "s1", "t1"), edge("f2", "t1", "e1")},
	}

	res := validation.Validate(d)

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "Process is valid", res.Summary())
}

func TestValidate_LoneUnnamedTask(t *testing.T) {
	d := &domain.Diagram{Nodes: []domain.Node{node("t1", domain.KindTask, "")}}

	res := validation.Validate(d)

	assert.False(t, res.IsValid)
	assert.Equal(t, []validation.Code{validation.MissingStartEvent, validation.MissingEndEvent}, codes(res.Errors))
	// A lone task is both disconnected and unnamed.
	assert.Equal(t, []validation.Code{validation.DisconnectedElement, validation.UnnamedElement}, codes(res.Warnings))
	for _, w := range res.Warnings {
		assert.Equal(t, "t1", w.ElementID)
	}
}

func TestValidate_Totality(t *testing.T) {
	cyclic := &domain.Diagram{
		Nodes: []domain.Node{
			node("s", domain.KindStartEvent, "Start"),
			node("a", domain.KindTask, "Do"),
			node("b", domain.KindTask, "Check"),
			node("e", domain.KindEndEvent, "End"),
		},
		Edges: []domain.Edge{
			edge("1", "s", "a"), edge("2", "a", "b"), edge("3", "b", "a"),
			edge("4", "b", "e"), edge("5", "b", "e"), edge("6", "a", "a"),
		},
	}

	tests := []struct {
		name    string
		diagram *domain.Diagram
		valid   bool
	}{
		{"nil diagram", nil, false},
		{"zero nodes", &domain.Diagram{}, false},
		{"cycles and parallel edges", cyclic, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res validation.Result
			require.NotPanics(t, func() { res = validation.Validate(tt.diagram) })
			assert.Equal(t, tt.valid, res.IsValid)
			assert.NotNil(t, res.Errors)
			assert.NotNil(t, res.Warnings)
		})
	}
}

func TestValidate_StartEndDetection(t *testing.T) {
	t.Run("No start is always an error", func(t *testing.T) {
		d := &domain.Diagram{
			Nodes: []domain.Node{node("e", domain.KindEndEvent, "End"), node("t", domain.KindTask, "Work")},
			Edges: []domain.Edge{edge("1", "t", "e")},
		}
		res := validation.Validate(d)
		assert.True(t, res.Has(validation.MissingStartEvent))
		assert.False(t, res.IsValid)
	})

	t.Run("Multiple starts only warn", func(t *testing.T) {
		d := &domain.Diagram{
			Nodes: []domain.Node{
				node("s1", domain.KindStartEvent, "Web order"),
				node("s2", domain.KindStartEvent, "Phone order"),
				node("e", domain.KindEndEvent, "End"),
			},
			Edges: []domain.Edge{edge("1", "s1", "e"), edge("2", "s2", "e")},
		}
		res := validation.Validate(d)
		assert.True(t, res.IsValid)
		assert.Equal(t, []validation.Code{validation.MultipleStartEvents}, codes(res.Warnings))
	})

	t.Run("Unconnected start is not flagged as disconnected", func(t *testing.T) {
		d := &domain.Diagram{
			Nodes: []domain.Node{node("s", domain.KindStartEvent, "Start"), node("e", domain.KindEndEvent, "End")},
		}
		res := validation.Validate(d)
		assert.True(t, res.IsValid)
		assert.Equal(t, []validation.Code{validation.DisconnectedElement}, codes(res.Warnings))
		assert.Equal(t, "e", res.Warnings[0].ElementID)
	})
}

func TestValidate_PlaceholderLabelIsUnnamed(t *testing.T) {
	d := domain.NewDiagram("fresh")
	_, err := d.AddNode(domain.KindStartEvent, domain.Position{})
	require.NoError(t, err)

	res := validation.Validate(d)
	assert.True(t, res.Has(validation.UnnamedElement))
	assert.False(t, res.Has(validation.DisconnectedElement))
}

func TestValidate_DanglingReference(t *testing.T) {
	d := &domain.Diagram{
		Nodes: []domain.Node{node("s", domain.KindStartEvent, "Start"), node("e", domain.KindEndEvent, "End")},
		Edges: []domain.Edge{edge("ok", "s", "e"), edge("bad", "s", "ghost")},
	}

	res := validation.Validate(d)

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, validation.DanglingReference, res.Errors[0].Code)
	assert.Equal(t, "bad", res.Errors[0].ElementID)
}

func TestValidate_GatewayType(t *testing.T) {
	gw := node("g", domain.KindGateway, "Approved?")
	gw.Metadata[domain.KeyGatewayType] = "eventBased"
	d := &domain.Diagram{
		Nodes: []domain.Node{node("s", domain.KindStartEvent, "Start"), gw, node("e", domain.KindEndEvent, "End")},
		Edges: []domain.Edge{edge("1", "s", "g"), edge("2", "g", "e")},
	}

	res := validation.Validate(d)
	assert.True(t, res.IsValid)
	assert.Equal(t, []validation.Code{validation.InvalidGatewayType}, codes(res.Warnings))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	d := &domain.Diagram{Nodes: []domain.Node{node("t1", domain.KindTask, "")}}
	before := d.Clone()

	_ = validation.Validate(d)
	assert.Equal(t, before.Nodes, d.Nodes)
	assert.Equal(t, before.Edges, d.Edges)
}
