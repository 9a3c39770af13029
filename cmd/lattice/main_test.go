package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/validation"
)

const onboardingJSON = `{
  "diagram": {"id": "onboarding", "name": "Onboarding"},
  "nodes": [
    {"id": "s", "type": "start", "label": "Start"},
    {"id": "t", "type": "task", "label": "Review"},
    {"id": "e", "type": "end", "label": "End"}
  ],
  "edges": [
    {"id": "e1", "source": "s", "target": "t"},
    {"id": "e2", "source": "t", "target": "e"}
  ]
}`

const brokenJSON = `{
  "diagram": {"name": "Broken"},
  "nodes": [{"id": "t", "type": "task", "label": "Lonely"}],
  "edges": []
}`

// run executes the CLI against a file store rooted in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--store", "file", "--data", filepath.Join(dir, "data"), "--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "lattice version "+lattice.Version+"\n", out)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "validate", writeFile(t, dir, "ok.json", onboardingJSON))
	require.NoError(t, err)
	assert.Contains(t, out, "# Onboarding")

	out, err = run(t, dir, "validate", "--json", writeFile(t, dir, "broken.json", brokenJSON))
	require.ErrorIs(t, err, errInvalid)

	var res validation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.IsValid)
	assert.True(t, res.Has(validation.MissingStartEvent))
}

func TestExport_ConvertsFormats(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "onboarding.json", onboardingJSON)

	out, err := run(t, dir, "export", src, "--to", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Onboarding")

	bpmn := filepath.Join(dir, "onboarding.bpmn")
	_, err = run(t, dir, "convert", src, "--to", "bpmn", "-o", bpmn)
	require.NoError(t, err)
	data, err := os.ReadFile(bpmn)
	require.NoError(t, err)
	assert.Contains(t, string(data), "startEvent")

	// The written BPMN reads back.
	out, err = run(t, dir, "validate", bpmn)
	require.NoError(t, err)
	assert.Contains(t, out, "# Onboarding")

	_, err = run(t, dir, "export", src, "--to", "svg")
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "graph", "--overlay", writeFile(t, dir, "broken.json", brokenJSON))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "flowchart LR"))
	assert.Contains(t, out, "class t warning;")
}

func TestLayout(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "layout", writeFile(t, dir, "onboarding.json", onboardingJSON))
	require.NoError(t, err)

	var envelope struct {
		Nodes []struct {
			ID       string `json:"id"`
			Position struct {
				X float64 `json:"x"`
			} `json:"position"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	require.Len(t, envelope.Nodes, 3)
	assert.Less(t, envelope.Nodes[0].Position.X, envelope.Nodes[1].Position.X)
	assert.Less(t, envelope.Nodes[1].Position.X, envelope.Nodes[2].Position.X)
}

func TestProcessLifecycle(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "onboarding.json", onboardingJSON)

	out, err := run(t, dir, "process", "save", src)
	require.NoError(t, err)
	assert.Contains(t, out, "onboarding\tOnboarding (3 nodes, 2 edges)")

	// Saving again replaces the entry.
	_, err = run(t, dir, "process", "save", src)
	require.NoError(t, err)

	out, err = run(t, dir, "process", "list", "--json")
	require.NoError(t, err)
	var records []catalog.ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "onboarding", records[0].ID)

	out, err = run(t, dir, "process", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Onboarding")

	out, err = run(t, dir, "process", "search", "onboard")
	require.NoError(t, err)
	assert.Contains(t, out, "onboarding")

	out, err = run(t, dir, "process", "search", "payroll")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries.")

	out, err = run(t, dir, "process", "show", "onboarding", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Review")

	out, err = run(t, dir, "process", "delete", "onboarding")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted processes/onboarding")

	_, err = run(t, dir, "process", "show", "onboarding")
	assert.Error(t, err)
}

func TestImportAndInstantiate(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "onboarding.json", onboardingJSON)

	out, err := run(t, dir, "import", src, "--collection", catalog.Templates, "--json")
	require.NoError(t, err)
	var tpl catalog.ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(out), &tpl))
	assert.NotEqual(t, "onboarding", tpl.ID)

	out, err = run(t, dir, "process", "instantiate", tpl.ID, "Onboarding ACME", "--json")
	require.NoError(t, err)
	var proc catalog.ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(out), &proc))
	assert.Equal(t, "Onboarding ACME", proc.Name)
	assert.Len(t, proc.Nodes, 3)

	out, err = run(t, dir, "process", "list", "-c", catalog.Processes, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Onboarding ACME")
}

func TestProcess_UnknownCollection(t *testing.T) {
	_, err := run(t, t.TempDir(), "process", "list", "-c", "invoices")
	assert.ErrorIs(t, err, catalog.ErrUnknownCollection)
}

func TestProcessSeed(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "process", "seed")
	require.NoError(t, err)
	assert.Equal(t, "Added 2 template(s)\n", out)

	out, err = run(t, dir, "process", "list", "-c", catalog.Templates)
	require.NoError(t, err)
	assert.Contains(t, out, "tpl-approval")
	assert.Contains(t, out, "tpl-onboarding")
}
