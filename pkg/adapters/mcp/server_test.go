package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/codec"
)

func newTestServer(t *testing.T) (*Server, *lattice.Workspace) {
	t.Helper()
	ws, err := lattice.New()
	require.NoError(t, err)
	return NewServer(ws), ws
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func skeletonJSON(t *testing.T, name string) string {
	t.Helper()
	data, err := codec.ExportJSON(codec.Skeleton(name), codec.ExportOptions{})
	require.NoError(t, err)
	return string(data)
}

func TestValidateDiagram(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleValidate(ctx, call(map[string]any{"diagram": skeletonJSON(t, "Intake")}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "valid")

	res, err = s.handleValidate(ctx, call(map[string]any{"diagram": "{}"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleValidate(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestConvertDiagram(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleConvert(ctx, call(map[string]any{
		"content": skeletonJSON(t, "Intake"),
		"from":    "json",
		"to":      "bpmn",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	bpmn := text(t, res)
	assert.Contains(t, bpmn, "startEvent")

	res, err = s.handleConvert(ctx, call(map[string]any{"content": bpmn, "from": "bpmn", "to": "yaml"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "name: Intake")

	res, err = s.handleConvert(ctx, call(map[string]any{"content": "garbage", "from": "bpmn", "to": "json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "placeholders are not silently converted")

	res, err = s.handleConvert(ctx, call(map[string]any{"content": "x", "from": "visio", "to": "json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRenderMermaid(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleMermaid(context.Background(), call(map[string]any{"diagram": skeletonJSON(t, "Intake"), "overlay": true}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, "classDef warning")
}

func TestListAndGetProcess(t *testing.T) {
	s, ws := newTestServer(t)
	ctx := context.Background()
	d := codec.Skeleton("Onboarding")
	_, err := ws.Save(ctx, catalog.Processes, d)
	require.NoError(t, err)

	res, err := s.handleList(ctx, call(map[string]any{"query": "board"}))
	require.NoError(t, err)
	var list []processSummary
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &list))
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)
	assert.Equal(t, 3, list[0].Nodes)

	res, err = s.handleList(ctx, call(map[string]any{"collection": "users"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleGet(ctx, call(map[string]any{"id": d.ID, "format": "yaml"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "name: Onboarding")

	res, err = s.handleGet(ctx, call(map[string]any{"id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
