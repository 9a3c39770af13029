package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns a deterministic IDGenerator ("id-1", "id-2", ...).
func sequence() domain.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestDiagram() *domain.Diagram {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.NewDiagram("Order Handling",
		domain.WithIDGenerator(sequence()),
		domain.WithClock(func() time.Time { return fixed }),
	)
}

func TestNewDiagram_Defaults(t *testing.T) {
	d := newTestDiagram()

	assert.Equal(t, "id-1", d.ID)
	assert.Equal(t, "Order Handling", d.Name)
	assert.Equal(t, domain.StatusDraft, d.Status)
	assert.Equal(t, "1.0", d.Version)
	assert.Empty(t, d.Nodes)
	assert.Empty(t, d.Edges)
	assert.False(t, d.LastModified.IsZero())
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		kind domain.NodeKind
		size domain.Size
	}{
		{domain.KindStartEvent, domain.Size{Width: 36, Height: 36}},
		{domain.KindEndEvent, domain.Size{Width: 36, Height: 36}},
		{domain.KindTask, domain.Size{Width: 120, Height: 60}},
		{domain.KindGateway, domain.Size{Width: 50, Height: 50}},
		{domain.KindSubProcess, domain.Size{Width: 200, Height: 120}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d := newTestDiagram()
			id, err := d.AddNode(tt.kind, domain.Position{X: 10, Y: 20})
			require.NoError(t, err)

			n, ok := d.Node(id)
			require.True(t, ok)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.size, n.Size)
			assert.Equal(t, domain.Position{X: 10, Y: 20}, n.Position)
			assert.Equal(t, "New "+string(tt.kind), n.Label)
			assert.NotNil(t, n.Metadata)
		})
	}
}

func TestAddNode_GatewayDefaultsToExclusive(t *testing.T) {
	d := newTestDiagram()
	id, err := d.AddNode(domain.KindGateway, domain.Position{})
	require.NoError(t, err)

	n, _ := d.Node(id)
	assert.Equal(t, domain.GatewayExclusive, n.GatewayType())
}

func TestAddNode_InvalidKind(t *testing.T) {
	d := newTestDiagram()
	_, err := d.AddNode("Swimlane", domain.Position{})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
	assert.Empty(t, d.Nodes)
}

func TestAddNode_CollidingGeneratorStillUnique(t *testing.T) {
	d := domain.NewDiagram("dup", domain.WithIDGenerator(func() string { return "same" }))

	a, err := d.AddNode(domain.KindTask, domain.Position{})
	require.NoError(t, err)
	b, err := d.AddNode(domain.KindTask, domain.Position{})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestUpdateNode(t *testing.T) {
	d := newTestDiagram()
	id, _ := d.AddNode(domain.KindTask, domain.Position{})

	label := "Review order"
	pos := domain.Position{X: 300, Y: 40}
	err := d.UpdateNode(id, domain.NodePatch{
		Label:    &label,
		Position: &pos,
		Metadata: domain.Metadata{domain.KeyAssignee: "alice", domain.KeyPriority: "high"},
	})
	require.NoError(t, err)

	n, _ := d.Node(id)
	assert.Equal(t, "Review order", n.Label)
	assert.Equal(t, pos, n.Position)
	assert.Equal(t, "alice", n.Metadata[domain.KeyAssignee])

	// Keys merge individually; nil removes.
	err = d.UpdateNode(id, domain.NodePatch{Metadata: domain.Metadata{domain.KeyPriority: nil, domain.KeyAutomated: true}})
	require.NoError(t, err)

	n, _ = d.Node(id)
	assert.Equal(t, "alice", n.Metadata[domain.KeyAssignee])
	assert.NotContains(t, n.Metadata, domain.KeyPriority)
	assert.Equal(t, true, n.Metadata[domain.KeyAutomated])
}

func TestUpdateNode_NotFound(t *testing.T) {
	d := newTestDiagram()
	err := d.UpdateNode("ghost", domain.NodePatch{})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestRemoveNode_CascadesEdges(t *testing.T) {
	d := newTestDiagram()
	s, _ := d.AddNode(domain.KindStartEvent, domain.Position{})
	t1, _ := d.AddNode(domain.KindTask, domain.Position{})
	e, _ := d.AddNode(domain.KindEndEvent, domain.Position{})

	_, err := d.Connect(s, t1, "")
	require.NoError(t, err)
	_, err = d.Connect(t1, e, "")
	require.NoError(t, err)
	_, err = d.Connect(t1, t1, "rework")
	require.NoError(t, err)
	keep, err := d.Connect(s, e, "skip")
	require.NoError(t, err)

	require.NoError(t, d.RemoveNode(t1))

	for _, edge := range d.Edges {
		assert.NotEqual(t, t1, edge.SourceID)
		assert.NotEqual(t, t1, edge.TargetID)
	}
	require.Len(t, d.Edges, 1)
	assert.Equal(t, keep, d.Edges[0].ID)

	_, ok := d.Node(t1)
	assert.False(t, ok)
}

func TestRemoveNode_EveryNodeLeavesNoReferences(t *testing.T) {
	for victim := 0; victim < 4; victim++ {
		d := newTestDiagram()
		ids := make([]string, 4)
		for i := range ids {
			ids[i], _ = d.AddNode(domain.KindTask, domain.Position{})
		}
		for _, a := range ids {
			for _, b := range ids {
				_, err := d.Connect(a, b, "")
				require.NoError(t, err)
			}
		}

		require.NoError(t, d.RemoveNode(ids[victim]))
		for _, edge := range d.Edges {
			assert.False(t, edge.References(ids[victim]))
		}
		assert.Len(t, d.Edges, 9)
	}
}

func TestRemoveNode_NotFound(t *testing.T) {
	d := newTestDiagram()
	assert.ErrorIs(t, d.RemoveNode("ghost"), domain.ErrNodeNotFound)
}

func TestConnect(t *testing.T) {
	d := newTestDiagram()
	a, _ := d.AddNode(domain.KindTask, domain.Position{})
	b, _ := d.AddNode(domain.KindTask, domain.Position{})

	t.Run("Missing endpoint", func(t *testing.T) {
		_, err := d.Connect(a, "ghost", "")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
		_, err = d.Connect("ghost", b, "")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
		assert.Empty(t, d.Edges)
	})

	t.Run("Duplicates and self-loops are allowed", func(t *testing.T) {
		e1, err := d.Connect(a, b, "Yes")
		require.NoError(t, err)
		e2, err := d.Connect(a, b, "Yes")
		require.NoError(t, err)
		e3, err := d.Connect(a, a, "")
		require.NoError(t, err)

		assert.NotEqual(t, e1, e2)
		assert.Len(t, d.Edges, 3)

		edge, ok := d.Edge(e1)
		require.True(t, ok)
		assert.Equal(t, "Yes", edge.Label)
		assert.Nil(t, edge.SourceHandle)

		loop, _ := d.Edge(e3)
		assert.Equal(t, loop.SourceID, loop.TargetID)
	})

	t.Run("Handles are kept", func(t *testing.T) {
		out, in := "bottom", "top"
		id, err := d.ConnectHandles(a, &out, b, &in, "")
		require.NoError(t, err)

		edge, _ := d.Edge(id)
		require.NotNil(t, edge.SourceHandle)
		assert.Equal(t, "bottom", *edge.SourceHandle)
		assert.Equal(t, "top", *edge.TargetHandle)
	})
}

func TestRemoveEdge_Idempotent(t *testing.T) {
	d := newTestDiagram()
	a, _ := d.AddNode(domain.KindTask, domain.Position{})
	b, _ := d.AddNode(domain.KindTask, domain.Position{})
	id, _ := d.Connect(a, b, "")

	assert.NotPanics(t, func() {
		d.RemoveEdge(id)
		d.RemoveEdge(id)
	})
	assert.Empty(t, d.Edges)
}

func TestAppendEdge_RejectsDangling(t *testing.T) {
	d := newTestDiagram()
	a, _ := d.AddNode(domain.KindTask, domain.Position{})

	err := d.AppendEdge(domain.Edge{ID: "e1", SourceID: a, TargetID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestDanglingEdges(t *testing.T) {
	d := newTestDiagram()
	a, _ := d.AddNode(domain.KindTask, domain.Position{})
	d.Edges = append(d.Edges, domain.Edge{ID: "broken", SourceID: a, TargetID: "ghost"})

	dangling := d.DanglingEdges()
	require.Len(t, dangling, 1)
	assert.Equal(t, "broken", dangling[0].ID)
}

func TestClone_IsIndependent(t *testing.T) {
	d := newTestDiagram()
	id, _ := d.AddNode(domain.KindTask, domain.Position{})
	_ = d.UpdateNode(id, domain.NodePatch{Metadata: domain.Metadata{"tags": []any{"a"}}})

	c := d.Clone()
	_ = c.UpdateNode(id, domain.NodePatch{Metadata: domain.Metadata{domain.KeyAssignee: "bob"}})
	c.Nodes[0].Metadata["tags"].([]any)[0] = "changed"

	n, _ := d.Node(id)
	assert.NotContains(t, n.Metadata, domain.KeyAssignee)
	assert.Equal(t, "a", n.Metadata["tags"].([]any)[0])
}

func TestParseNodeKind(t *testing.T) {
	tests := map[string]domain.NodeKind{
		"StartEvent": domain.KindStartEvent,
		"start":      domain.KindStartEvent,
		"END":        domain.KindEndEvent,
		"task":       domain.KindTask,
		"Gateway":    domain.KindGateway,
		"subprocess": domain.KindSubProcess,
	}
	for in, want := range tests {
		got, err := domain.ParseNodeKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := domain.ParseNodeKind("lane")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestNode_IsUnnamed(t *testing.T) {
	assert.True(t, domain.Node{Kind: domain.KindTask}.IsUnnamed())
	assert.True(t, domain.Node{Kind: domain.KindTask, Label: "New Task"}.IsUnnamed())
	assert.False(t, domain.Node{Kind: domain.KindTask, Label: "Review"}.IsUnnamed())
	assert.False(t, domain.Node{Kind: domain.KindGateway, Label: "New Task"}.IsUnnamed())
}

func TestUpdateNode_StoresJSONNativeMetadata(t *testing.T) {
	d := newTestDiagram()
	id, _ := d.AddNode(domain.KindTask, domain.Position{})

	type sla struct {
		Hours int `json:"hours"`
	}
	require.NoError(t, d.UpdateNode(id, domain.NodePatch{Metadata: domain.Metadata{
		"retries":  3,
		"weight":   float32(0.5),
		"ledgerId": int64(1<<60 + 1),
		"huge":     uint64(1<<64 - 1),
		"tags":     []string{"a", "b"},
		"sla":      sla{Hours: 4},
		"nested":   domain.Metadata{"level": uint8(2)},
	}}))

	n, _ := d.Node(id)
	assert.Equal(t, float64(3), n.Metadata["retries"])
	assert.Equal(t, 0.5, n.Metadata["weight"])
	assert.Equal(t, int64(1<<60+1), n.Metadata["ledgerId"])
	assert.Equal(t, uint64(1<<64-1), n.Metadata["huge"])
	assert.Equal(t, []any{"a", "b"}, n.Metadata["tags"])
	assert.Equal(t, map[string]any{"hours": float64(4)}, n.Metadata["sla"])
	assert.Equal(t, map[string]any{"level": float64(2)}, n.Metadata["nested"])
}

func TestAppendNode_NormalizesMetadata(t *testing.T) {
	d := newTestDiagram()
	require.NoError(t, d.AppendNode(domain.Node{
		ID:       "n1",
		Kind:     domain.KindTask,
		Metadata: domain.Metadata{"priority": 2, "automated": true},
	}))
	n, _ := d.Node("n1")
	assert.Equal(t, domain.Metadata{"priority": float64(2), "automated": true}, n.Metadata)
}
