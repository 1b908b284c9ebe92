package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dmx-platform/backend/internal/storage/memory"
	"dmx-platform/backend/pkg/config"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

const tagsYAML = `
topic_types:
  - uri: dmx.tags.tag
    name: Tag
    data_type: text
    index_modes: [key]
`

func memoryConfig() *config.Config {
	return &config.Config{Store: config.StoreMemory, MetricsNamespace: "dmx_app_test"}
}

func TestNew_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.IsType(t, &memory.Store{}, a.Store)
	composition, err := a.Service.GetAssocType(ctx, "dmx.core.composition")
	require.NoError(t, err)
	assert.True(t, composition.IsAssocType())

	uris, err := a.Service.TypeURIs(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, uris)
}

func TestNew_AppliesTypesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tagsYAML), 0o644))

	cfg := memoryConfig()
	cfg.TypesFile = path
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)

	tag, err := a.Service.GetTopicType(ctx, "dmx.tags.tag")
	require.NoError(t, err)
	assert.Equal(t, "Tag", tag.Name())

	res, err := a.ApplySchemaFile(ctx, path)
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func TestNew_MissingTypesFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.TypesFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenStore_Unknown(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store = "sqlite"

	_, err := OpenStore(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeConfig))
}
