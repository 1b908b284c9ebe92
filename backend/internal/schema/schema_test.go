package schema

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmx-platform/backend/internal/core"
	"dmx-platform/backend/internal/model"
	"dmx-platform/backend/internal/storage/memory"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

const contactsYAML = `
topic_types:
  - uri: dmx.contacts.person
    name: Person
    data_type: entity
    index_modes: [fulltext]
    view_config:
      icon: user
      add_to_create_menu: true
    comp_defs:
      - child: dmx.contacts.person_name
      - child: dmx.contacts.email
        cardinality: many
      - child: dmx.contacts.city
        kind: aggregation
        custom_assoc_type: dmx.contacts.lives_in
  - uri: dmx.contacts.person_name
    name: Person Name
    data_type: text
    index_modes: [fulltext_key]
  - uri: dmx.contacts.email
    name: Email Address
    data_type: text
    index_modes: [key]
  - uri: dmx.contacts.city
    name: City
    data_type: text
assoc_types:
  - uri: dmx.contacts.lives_in
    name: Lives In
    data_type: text
`

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func newService(t *testing.T) *core.Service {
	t.Helper()
	svc := core.NewService(memory.NewStore())
	require.NoError(t, svc.Bootstrap(context.Background()))
	return svc
}

func TestParse(t *testing.T) {
	doc := parse(t, contactsYAML)
	require.Len(t, doc.TopicTypes, 4)
	require.Len(t, doc.AssocTypes, 1)

	tm, err := doc.TopicTypes[0].TypeModel(model.TopicType)
	require.NoError(t, err)
	assert.Equal(t, "dmx.contacts.person", tm.URI)
	assert.Equal(t, "Person", tm.Name())
	assert.Equal(t, model.DataTypeEntity, tm.DataTypeURI)
	assert.Equal(t, model.IndexModes{model.IndexFulltext}, tm.IndexModes)

	icon, ok := tm.ViewConfig.Get("icon")
	require.True(t, ok)
	assert.Equal(t, "user", icon.String())

	require.Len(t, tm.CompDefs, 3)
	assert.Equal(t, model.AssocCompositionDef, tm.CompDefs[0].Kind)
	assert.Equal(t, model.CardinalityOne, tm.CompDefs[0].ChildCardinalityURI)
	assert.Equal(t, model.CardinalityMany, tm.CompDefs[1].ChildCardinalityURI)
	assert.Equal(t, model.AssocAggregationDef, tm.CompDefs[2].Kind)
	assert.Equal(t, "dmx.contacts.city#dmx.contacts.lives_in", tm.CompDefs[2].URI())
	for _, cd := range tm.CompDefs {
		assert.Equal(t, tm.URI, cd.ParentTypeURI)
	}
}

func TestParse_Empty(t *testing.T) {
	doc := parse(t, "")
	assert.Empty(t, doc.TopicTypes)
	assert.Empty(t, doc.AssocTypes)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "topic_types:\n  - uri: a\n    data_type: text\n    colour: red\n"},
		{"missing uri", "topic_types:\n  - name: A\n    data_type: text\n"},
		{"duplicate uri", "topic_types:\n  - uri: a\n    data_type: text\nassoc_types:\n  - uri: a\n    data_type: text\n"},
		{"unknown data type", "topic_types:\n  - uri: a\n    data_type: blob\n"},
		{"unknown cardinality", "topic_types:\n  - uri: a\n    data_type: value\n    comp_defs:\n      - child: b\n        cardinality: some\n"},
		{"unknown kind", "topic_types:\n  - uri: a\n    data_type: value\n    comp_defs:\n      - child: b\n        kind: inheritance\n"},
		{"comp def without child", "topic_types:\n  - uri: a\n    data_type: value\n    comp_defs:\n      - cardinality: one\n"},
		{"malformed yaml", "topic_types: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestResolveDataType_AcceptsFullURI(t *testing.T) {
	uri, err := resolveDataType(model.DataTypeNumber)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeNumber, uri)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contactsYAML), 0o644))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.TopicTypes, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInstallOrder_ChildrenFirst(t *testing.T) {
	order, err := installOrder(parse(t, contactsYAML))
	require.NoError(t, err)

	uris := make([]string, len(order))
	for i, e := range order {
		uris[i] = e.def.URI
	}
	assert.Equal(t, []string{
		"dmx.contacts.person_name",
		"dmx.contacts.email",
		"dmx.contacts.city",
		"dmx.contacts.lives_in",
		"dmx.contacts.person",
	}, uris)
	assert.Equal(t, model.AssocType, order[3].kind)
}

func TestInstallOrder_Cycle(t *testing.T) {
	doc := parse(t, `
topic_types:
  - uri: x
    data_type: value
    comp_defs: [{child: y}]
  - uri: y
    data_type: value
    comp_defs: [{child: x}]
`)
	_, err := installOrder(doc)
	require.Error(t, err)

	var cyc *dmxerrors.ErrCyclicTypeDefinition
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"x", "y", "x"}, cyc.Path)
}

func TestInstall(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	res, err := Install(ctx, svc, parse(t, contactsYAML))
	require.NoError(t, err)
	assert.Len(t, res.Created, 5)
	assert.Empty(t, res.Extended)
	assert.True(t, res.Changed())

	person, err := svc.GetTopicType(ctx, "dmx.contacts.person")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dmx.contacts.person_name",
		"dmx.contacts.email",
		"dmx.contacts.city#dmx.contacts.lives_in",
	}, person.CompDefURIs())

	livesIn, err := svc.GetAssocType(ctx, "dmx.contacts.lives_in")
	require.NoError(t, err)
	assert.True(t, livesIn.IsAssocType())

	// the installed types are usable
	children := model.NewChildTopicsModel().
		SetValue("dmx.contacts.person_name", "Ada").
		AddValue("dmx.contacts.email", "ada@example.org").
		SetValue("dmx.contacts.city#dmx.contacts.lives_in", "London")
	created, _, err := svc.CreateTopic(ctx, model.NewCompositeTopicModel("dmx.contacts.person", children))
	require.NoError(t, err)
	got, err := svc.GetTopic(ctx, created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "London", got.Children().StringValueOr("dmx.contacts.city#dmx.contacts.lives_in", ""))
}

func TestInstall_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	doc := parse(t, contactsYAML)

	_, err := Install(ctx, svc, doc)
	require.NoError(t, err)

	res, err := Install(ctx, svc, doc)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Len(t, res.Unchanged, 5)
}

func TestInstall_AppendsMissingCompDefs(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := Install(ctx, svc, parse(t, contactsYAML))
	require.NoError(t, err)

	res, err := Install(ctx, svc, parse(t, `
topic_types:
  - uri: dmx.contacts.phone
    data_type: text
  - uri: dmx.contacts.person
    data_type: entity
    comp_defs:
      - child: dmx.contacts.phone
        cardinality: many
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"dmx.contacts.phone"}, res.Created)
	assert.Equal(t, []string{"dmx.contacts.person"}, res.Extended)

	person, err := svc.GetTopicType(ctx, "dmx.contacts.person")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dmx.contacts.person_name",
		"dmx.contacts.email",
		"dmx.contacts.city#dmx.contacts.lives_in",
		"dmx.contacts.phone",
	}, person.CompDefURIs())
}

func TestInstall_UnknownChild(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	res, err := Install(ctx, svc, parse(t, `
topic_types:
  - uri: dmx.test.holder
    data_type: value
    comp_defs: [{child: dmx.test.nowhere}]
`))
	require.Error(t, err)
	assert.True(t, dmxerrors.IsNotFound(err))
	assert.Empty(t, res.Created)

	_, err = svc.GetTopicType(ctx, "dmx.test.holder")
	assert.True(t, dmxerrors.IsNotFound(err))
}

func TestInstall_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Install(ctx, newService(t), parse(t, contactsYAML))
	assert.ErrorIs(t, err, context.Canceled)
}
