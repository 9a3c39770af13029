package codec_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/codec"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sequence(prefix string) domain.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testOpts(prefix string) []domain.DiagramOption {
	return []domain.DiagramOption{
		domain.WithIDGenerator(sequence(prefix)),
		domain.WithClock(func() time.Time { return fixedTime }),
	}
}

func label(s string) *string { return &s }

// invoiceApproval builds Received -> Approved? -> (Yes) Pay -> Paid, (No) Rejected.
func invoiceApproval(t *testing.T) *domain.Diagram {
	t.Helper()
	d := domain.NewDiagram("Invoice approval", testOpts("src")...)
	d.Description = "Approve supplier invoices"

	add := func(kind domain.NodeKind, x, y float64, name string) string {
		id, err := d.AddNode(kind, domain.Position{X: x, Y: y})
		require.NoError(t, err)
		require.NoError(t, d.UpdateNode(id, domain.NodePatch{Label: label(name)}))
		return id
	}
	start := add(domain.KindStartEvent, 100, 100, "Received")
	gw := add(domain.KindGateway, 280, 100, "Approved?")
	pay := add(domain.KindTask, 460, 100, "Pay")
	rejected := add(domain.KindEndEvent, 460, 220, "Rejected")
	done := add(domain.KindEndEvent, 640, 100, "Paid")

	require.NoError(t, d.UpdateNode(pay, domain.NodePatch{Metadata: domain.Metadata{
		domain.KeyAssignee:  "finance",
		domain.KeyPriority:  "high",
		domain.KeyAutomated: true,
		"retries":           3,
		"ledgerId":          int64(1<<60 + 1),
		"approvers":         []string{"cfo", "controller"},
	}}))

	for _, c := range []struct{ from, to, label string }{
		{start, gw, ""},
		{gw, pay, "Yes"},
		{gw, rejected, "No"},
		{pay, done, ""},
	} {
		_, err := d.Connect(c.from, c.to, c.label)
		require.NoError(t, err)
	}
	return d
}

func TestJSON_RoundTrip(t *testing.T) {
	original := invoiceApproval(t)

	data, err := codec.ExportJSON(original, codec.ExportOptions{ExportedBy: "alice"})
	require.NoError(t, err)

	imported, err := codec.ImportJSON(data, testOpts("imp")...)
	require.NoError(t, err)

	assert.Equal(t, original.Nodes, imported.Nodes)
	assert.Equal(t, original.Edges, imported.Edges)
	assert.Equal(t, original.ID, imported.ID)

	pay, ok := imported.Node(original.Nodes[2].ID)
	require.True(t, ok)
	assert.Equal(t, float64(3), pay.Metadata["retries"])
	assert.Equal(t, int64(1<<60+1), pay.Metadata["ledgerId"], "wide integers keep full precision")
	assert.Equal(t, []any{"cfo", "controller"}, pay.Metadata["approvers"])
	assert.Equal(t, original.Name, imported.Name)
	assert.Equal(t, original.Description, imported.Description)
	assert.Equal(t, original.Status, imported.Status)
	assert.True(t, original.LastModified.Equal(imported.LastModified))
}

func TestExportJSON_Envelope(t *testing.T) {
	d := invoiceApproval(t)
	data, err := codec.ExportJSON(d, codec.ExportOptions{
		ExportedBy:        "alice",
		IncludeValidation: true,
		Now:               func() time.Time { return fixedTime },
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"nodes\": [")

	var env codec.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "alice", env.Metadata.ExportedBy)
	assert.Equal(t, codec.FormatVersion, env.Metadata.Version)
	assert.True(t, fixedTime.Equal(env.Metadata.ExportedAt))
	require.NotNil(t, env.Validation)
	assert.True(t, env.Validation.IsValid)
	assert.Len(t, env.Nodes, 5)
	assert.Len(t, env.Edges, 4)
}

func TestExportJSON_EmptyDiagramUsesArrays(t *testing.T) {
	d := &domain.Diagram{ID: "empty", Name: "Empty"}
	data, err := codec.ExportJSON(d, codec.ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes": []`)
	assert.Contains(t, string(data), `"edges": []`)
	assert.NotContains(t, string(data), `"validation"`)
}

func TestImportJSON_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        "{not json",
		"missing edges":   `{"nodes": []}`,
		"missing nodes":   `{"edges": []}`,
		"nodes not array": `{"nodes": {}, "edges": []}`,
		"unknown kind":    `{"nodes": [{"id": "a", "kind": "Pool"}], "edges": []}`,
		"node without id": `{"nodes": [{"kind": "Task"}], "edges": []}`,
		"duplicate node":  `{"nodes": [{"id": "a", "kind": "Task"}, {"id": "a", "kind": "Task"}], "edges": []}`,
		"dangling edge":   `{"nodes": [{"id": "a", "kind": "Task"}], "edges": [{"id": "e", "sourceId": "a", "targetId": "ghost"}]}`,
		"edge without id": `{"nodes": [{"id": "a", "kind": "Task"}], "edges": [{"sourceId": "a", "targetId": "a"}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.ImportJSON([]byte(input))
			assert.ErrorIs(t, err, domain.ErrMalformedInput)
		})
	}
}

func TestImportJSON_PreservesUnknownFields(t *testing.T) {
	input := `{
		"nodes": [
			{"id": "a", "type": "task", "position": {"x": 10, "y": 20}, "label": "Review", "color": "red", "metadata": {"assignee": "bob"}},
			{"id": "b", "kind": "EndEvent", "position": {"x": 200, "y": 20}, "size": {"width": 40, "height": 40}}
		],
		"edges": [
			{"id": "e1", "source": "a", "target": "b", "animated": true}
		]
	}`

	d, err := codec.ImportJSON([]byte(input), testOpts("imp")...)
	require.NoError(t, err)
	require.Len(t, d.Nodes, 2)

	a := d.Nodes[0]
	assert.Equal(t, domain.KindTask, a.Kind)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, a.Position)
	assert.Equal(t, domain.KindTask.DefaultSize(), a.Size)
	assert.Equal(t, "red", a.Metadata["color"])
	assert.Equal(t, "bob", a.Metadata[domain.KeyAssignee])

	b := d.Nodes[1]
	assert.Equal(t, domain.Size{Width: 40, Height: 40}, b.Size)
	assert.Empty(t, b.Metadata)

	require.Len(t, d.Edges, 1)
	e := d.Edges[0]
	assert.Equal(t, "a", e.SourceID)
	assert.Equal(t, "b", e.TargetID)
	assert.Nil(t, e.SourceHandle)
	assert.Equal(t, true, e.Metadata["animated"])

	// Re-export keeps the preserved fields.
	data, err := codec.ExportJSON(d, codec.ExportOptions{})
	require.NoError(t, err)
	again, err := codec.ImportJSON(data)
	require.NoError(t, err)
	assert.Equal(t, d.Nodes, again.Nodes)
	assert.Equal(t, d.Edges, again.Edges)
}

func TestImportExternal_UnsupportedFormat(t *testing.T) {
	_, err := codec.ImportExternal("process.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = codec.ImportExternal("process", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestImportExternal_JSONIsStrict(t *testing.T) {
	_, err := codec.ImportExternal("broken.json", []byte("{not json"))
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	data, err := codec.ExportJSON(invoiceApproval(t), codec.ExportOptions{})
	require.NoError(t, err)
	d, err := codec.ImportExternal("Invoice.JSON", data)
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 5)
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]codec.Format{
		"a.json": codec.FormatJSON,
		"a.bpmn": codec.FormatBPMN,
		"a.XML":  codec.FormatBPMN,
		"a.yaml": codec.FormatYAML,
		"a.yml":  codec.FormatYAML,
	}
	for name, want := range cases {
		got, err := codec.DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := codec.ParseFormat("docx")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestSkeleton(t *testing.T) {
	d := codec.Skeleton("Fallback", testOpts("sk")...)

	require.Len(t, d.Nodes, 3)
	assert.Equal(t, domain.KindStartEvent, d.Nodes[0].Kind)
	assert.Equal(t, domain.KindTask, d.Nodes[1].Kind)
	assert.Equal(t, domain.KindEndEvent, d.Nodes[2].Kind)

	require.Len(t, d.Edges, 2)
	assert.Equal(t, d.Nodes[0].ID, d.Edges[0].SourceID)
	assert.Equal(t, d.Nodes[1].ID, d.Edges[0].TargetID)
	assert.Equal(t, d.Nodes[1].ID, d.Edges[1].SourceID)
	assert.Equal(t, d.Nodes[2].ID, d.Edges[1].TargetID)
}
