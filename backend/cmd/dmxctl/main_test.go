package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dmx-platform/backend/internal/app"
	"dmx-platform/backend/pkg/config"
)

const notesYAML = `
topic_types:
  - uri: dmx.notes.note
    name: Note
    data_type: entity
    comp_defs:
      - child: dmx.notes.title
      - child: dmx.notes.tag
        kind: aggregation
        cardinality: many
  - uri: dmx.notes.title
    name: Title
    data_type: text
    index_modes: [fulltext]
  - uri: dmx.notes.tag
    name: Tag
    data_type: text
    index_modes: [key]
`

func sharedOpener(t *testing.T) opener {
	t.Helper()
	color.NoColor = true

	ctx := context.Background()
	cfg := &config.Config{Store: config.StoreMemory, MetricsNamespace: "dmxctl_test"}
	a, err := app.New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	return func(context.Context) (*app.App, func(), error) {
		return a, func() {}, nil
	}
}

func execute(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(notesYAML), 0o644))
	return path
}

func TestBootstrap(t *testing.T) {
	out, err := execute(t, sharedOpener(t), "bootstrap")
	require.NoError(t, err)
	assert.Contains(t, out, "store bootstrapped")
}

func TestApply(t *testing.T) {
	open := sharedOpener(t)
	path := writeSchema(t)

	out, err := execute(t, open, "apply", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created  dmx.notes.note")
	assert.Contains(t, out, "created  dmx.notes.title")
	assert.Contains(t, out, "created  dmx.notes.tag")

	out, err = execute(t, open, "apply", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged dmx.notes.note")
	assert.NotContains(t, out, "created")
}

func TestApply_RequiresFile(t *testing.T) {
	_, err := execute(t, sharedOpener(t), "apply")
	assert.Error(t, err)
}

func TestApply_MissingFile(t *testing.T) {
	_, err := execute(t, sharedOpener(t), "apply", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTypeShow(t *testing.T) {
	open := sharedOpener(t)
	_, err := execute(t, open, "apply", "-f", writeSchema(t))
	require.NoError(t, err)

	out, err := execute(t, open, "type", "show", "dmx.notes.note")
	require.NoError(t, err)
	assert.Contains(t, out, "Note (dmx.notes.note)")
	assert.Contains(t, out, "data type:   entity")
	assert.Contains(t, out, "COMP DEF")
	assert.Contains(t, out, "dmx.notes.title")
	assert.Contains(t, out, "aggregation")
	assert.Contains(t, out, "many")
}

func TestTypeShow_AssocType(t *testing.T) {
	out, err := execute(t, sharedOpener(t), "type", "show", "dmx.core.composition")
	require.NoError(t, err)
	assert.Contains(t, out, "Composition (dmx.core.composition)")
	assert.Contains(t, out, "kind:        assoc_type")
}

func TestTypeShow_Unknown(t *testing.T) {
	_, err := execute(t, sharedOpener(t), "type", "show", "dmx.notes.missing")
	assert.Error(t, err)
}

func TestTypeList(t *testing.T) {
	open := sharedOpener(t)
	_, err := execute(t, open, "apply", "-f", writeSchema(t))
	require.NoError(t, err)

	out, err := execute(t, open, "type", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "URI")
	assert.Contains(t, out, "dmx.notes.note")
	assert.Contains(t, out, "dmx.core.composition")
}

func TestSequenceCheck(t *testing.T) {
	open := sharedOpener(t)
	_, err := execute(t, open, "apply", "-f", writeSchema(t))
	require.NoError(t, err)

	out, err := execute(t, open, "sequence", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "sequences intact")
}

func TestSequenceRepair_Unknown(t *testing.T) {
	_, err := execute(t, sharedOpener(t), "sequence", "repair", "dmx.notes.missing")
	assert.Error(t, err)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "abcd", padRight("abcd", 2))
}
