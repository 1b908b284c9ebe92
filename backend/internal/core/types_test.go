package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

const (
	cardType = "dmx.test.card"
	aType    = "dmx.test.a"
	bType    = "dmx.test.b"
	cType    = "dmx.test.c"
	dType    = "dmx.test.d"
)

// installCardType creates Card with comp defs a, b, c in that order
func installCardType(t *testing.T, svc *Service) {
	t.Helper()
	for _, uri := range []string{aType, bType, cType, dType} {
		createTextType(t, svc, uri)
	}
	card := model.NewTopicTypeModel(cardType, "Card", model.DataTypeValue).
		AddCompDef(model.NewCompositionDef("", aType, model.CardinalityOne)).
		AddCompDef(model.NewCompositionDef("", bType, model.CardinalityOne)).
		AddCompDef(model.NewCompositionDef("", cType, model.CardinalityOne))
	_, _, err := svc.CreateTopicType(context.Background(), card)
	require.NoError(t, err)
}

func findReport(reports []SequenceReport, typeURI string) (SequenceReport, bool) {
	for _, r := range reports {
		if r.TypeURI == typeURI {
			return r, true
		}
	}
	return SequenceReport{}, false
}

// ============================================================================
// Type definitions
// ============================================================================

func TestCreateTopicType(t *testing.T) {
	svc, _ := newTestService(t)
	createTextType(t, svc, nameType, model.IndexFulltextKey)
	ctx := context.Background()

	vc := model.NewViewConfigModel().Set("icon", "").Set("add_to_create_menu", true)
	person := model.NewTopicTypeModel(personType, "Person", model.DataTypeEntity).
		AddCompDef(model.NewCompositionDef("", nameType, model.CardinalityOne))
	person.ViewConfig = vc

	created, d, err := svc.CreateTopicType(ctx, person)
	require.NoError(t, err)
	assert.True(t, d.Has(DirectiveUpdateTopicType, created.ID))
	assert.Equal(t, "Person", created.Name())
	assert.Equal(t, model.DataTypeEntity, created.DataTypeURI)
	assert.Equal(t, []string{nameType}, created.CompDefURIs())

	cd, ok := created.CompDef(nameType)
	require.True(t, ok)
	assert.Equal(t, personType, cd.ParentTypeURI)
	assert.Equal(t, model.CardinalityOne, cd.ParentCardinalityURI)
	assert.True(t, cd.IsComposition())

	icon, ok := created.ViewConfig.Get("icon")
	require.True(t, ok)
	assert.Equal(t, "", icon.String())

	name, err := svc.GetTopicType(ctx, nameType)
	require.NoError(t, err)
	assert.Equal(t, model.IndexModes{model.IndexFulltextKey}, name.IndexModes)

	_, _, err = svc.CreateTopicType(ctx, model.NewTopicTypeModel(personType, "Again", model.DataTypeText))
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation))

	_, err = svc.GetAssocType(ctx, personType)
	assert.True(t, dmxerrors.IsNotFound(err))
}

func TestCreateTopicType_Validation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	topics, assocs := store.Stats()

	tests := []struct {
		name string
		tm   *model.TypeModel
	}{
		{"missing uri", model.NewTopicTypeModel("", "X", model.DataTypeText)},
		{"unknown data type", model.NewTopicTypeModel("dmx.test.x", "X", "dmx.core.blob")},
		{"unknown index mode", model.NewTopicTypeModel("dmx.test.x", "X", model.DataTypeText).AddIndexMode("dmx.core.none")},
		{"simple type with comp defs", model.NewTopicTypeModel("dmx.test.x", "X", model.DataTypeText).
			AddCompDef(model.NewCompositionDef("", model.DataTypeType, model.CardinalityOne))},
		{"bad cardinality", model.NewTopicTypeModel("dmx.test.x", "X", model.DataTypeEntity).
			AddCompDef(model.NewCompositionDef("", model.DataTypeType, "dmx.core.some"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateTopicType(ctx, tt.tm)
			assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation), "got %v", err)
			topics2, assocs2 := store.Stats()
			assert.Equal(t, topics, topics2)
			assert.Equal(t, assocs, assocs2)
		})
	}
}

func TestCreateAssocType_CustomAssocTypeComposite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createTextType(t, svc, nameType)
	createTextType(t, svc, "dmx.test.role_note")

	employment := model.NewAssocTypeModel("dmx.test.employment", "Employment", model.DataTypeValue).
		AddCompDef(model.NewCompositionDef("", "dmx.test.role_note", model.CardinalityOne))
	created, d, err := svc.CreateAssocType(ctx, employment)
	require.NoError(t, err)
	assert.True(t, created.IsAssocType())
	assert.True(t, d.Has(DirectiveUpdateAssocType, created.ID))

	org := model.NewTopicTypeModel("dmx.test.org", "Organization", model.DataTypeEntity).
		AddCompDef(model.NewAggregationDef("", nameType, model.CardinalityMany).WithCustomAssocType("dmx.test.employment"))
	_, _, err = svc.CreateTopicType(ctx, org)
	require.NoError(t, err)

	staff, _, err := svc.CreateTopic(ctx, model.NewTopicModel(nameType, "Carol"))
	require.NoError(t, err)

	compDefURI := model.CompDefURI(nameType, "dmx.test.employment")
	acme, _, err := svc.CreateTopic(ctx, model.NewCompositeTopicModel("dmx.test.org",
		model.NewChildTopicsModel().AddRef(compDefURI, staff.ID)))
	require.NoError(t, err)

	children := acme.ChildTopics.TopicsOrNil(compDefURI)
	require.Len(t, children, 1)
	assert.Equal(t, staff.ID, children[0].ID)
	assert.Equal(t, "dmx.test.employment", children[0].RelatingAssoc.TypeURI)

	// the custom association type is in use
	_, err = svc.DeleteAssocType(ctx, "dmx.test.employment")
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation))

	all, err := svc.GetAllAssocTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dmx.test.employment", all[len(all)-1].URI)
}

func TestAddCompDef_RejectsCycles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, uri := range []string{"dmx.test.x", "dmx.test.y", "dmx.test.z"} {
		_, _, err := svc.CreateTopicType(ctx, model.NewTopicTypeModel(uri, uri, model.DataTypeValue))
		require.NoError(t, err)
	}

	_, _, err := svc.AddCompDef(ctx, "dmx.test.x", model.NewCompositionDef("", "dmx.test.y", model.CardinalityOne), -1)
	require.NoError(t, err)
	_, _, err = svc.AddCompDef(ctx, "dmx.test.y", model.NewCompositionDef("", "dmx.test.z", model.CardinalityMany), -1)
	require.NoError(t, err)

	_, _, err = svc.AddCompDef(ctx, "dmx.test.z", model.NewCompositionDef("", "dmx.test.x", model.CardinalityOne), -1)
	require.Error(t, err)
	var cyclic *dmxerrors.ErrCyclicTypeDefinition
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, []string{"dmx.test.z", "dmx.test.x", "dmx.test.y", "dmx.test.z"}, cyclic.Path)

	_, _, err = svc.AddCompDef(ctx, "dmx.test.x", model.NewCompositionDef("", "dmx.test.x", model.CardinalityOne), -1)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeCyclicType))

	z, err := svc.GetTopicType(ctx, "dmx.test.z")
	require.NoError(t, err)
	assert.Empty(t, z.CompDefs)
}

// ============================================================================
// Sequence
// ============================================================================

func TestCompDefSequence_Mutations(t *testing.T) {
	svc, _ := newTestService(t)
	installCardType(t, svc)
	ctx := context.Background()

	card, _, err := svc.CreateTopic(ctx, model.NewCompositeTopicModel(cardType, model.NewChildTopicsModel().
		SetValue(aType, "ay").
		SetValue(bType, "bee")))
	require.NoError(t, err)

	typ, d, err := svc.AddCompDef(ctx, cardType, model.NewCompositionDef("", dType, model.CardinalityOne), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{aType, dType, bType, cType}, typ.CompDefURIs())
	assert.True(t, d.Has(DirectiveUpdateTopicType, typ.ID))

	typ, _, err = svc.AddCompDef(ctx, cardType, model.NewCompositionDef("", dType, model.CardinalityOne), 0)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation))
	assert.Nil(t, typ)

	typ, _, err = svc.RemoveCompDef(ctx, cardType, bType)
	require.NoError(t, err)
	assert.Equal(t, []string{aType, dType, cType}, typ.CompDefURIs())

	// the instance lost its b child, and the child itself is gone
	card, err = svc.GetTopic(ctx, card.ID, true)
	require.NoError(t, err)
	assert.False(t, card.ChildTopics.Has(bType))
	assert.Equal(t, "ay", card.ChildTopics.StringValueOr(aType, ""))
	bees, err := svc.GetTopicsByType(ctx, bType, false)
	require.NoError(t, err)
	assert.Empty(t, bees)

	typ, _, err = svc.MoveCompDef(ctx, cardType, cType, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{cType, aType, dType}, typ.CompDefURIs())

	typ, _, err = svc.MoveCompDef(ctx, cardType, cType, 99)
	require.NoError(t, err)
	assert.Equal(t, []string{aType, dType, cType}, typ.CompDefURIs())

	typ, _, err = svc.ReorderCompDefs(ctx, cardType, []string{dType, cType, aType})
	require.NoError(t, err)
	assert.Equal(t, []string{dType, cType, aType}, typ.CompDefURIs())

	_, _, err = svc.ReorderCompDefs(ctx, cardType, []string{dType, cType})
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation))
	_, _, err = svc.ReorderCompDefs(ctx, cardType, []string{dType, dType, aType})
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation))

	reports, err := svc.CheckSequences(ctx)
	require.NoError(t, err)
	for _, r := range reports {
		assert.True(t, r.OK(), "%s: %s", r.TypeURI, r.Error)
	}
	r, ok := findReport(reports, cardType)
	require.True(t, ok)
	assert.Equal(t, 3, r.CompDefs)

	// children come back in the new sequence order
	card, err = svc.GetTopic(ctx, card.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{aType}, card.ChildTopics.Keys())
}

func TestRemoveCompDef_AggregationKeepsChildren(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createTextType(t, svc, nameType)
	createTextType(t, svc, tagType, model.IndexKey)
	note := model.NewTopicTypeModel(noteType, "Note", model.DataTypeEntity).
		AddCompDef(model.NewCompositionDef("", nameType, model.CardinalityOne)).
		AddCompDef(model.NewAggregationDef("", tagType, model.CardinalityMany))
	_, _, err := svc.CreateTopicType(ctx, note)
	require.NoError(t, err)

	tag, _, err := svc.CreateTopic(ctx, model.NewTopicModel(tagType, "go"))
	require.NoError(t, err)
	n, _, err := svc.CreateTopic(ctx, model.NewCompositeTopicModel(noteType, model.NewChildTopicsModel().
		SetValue(nameType, "first").
		AddRef(tagType, tag.ID)))
	require.NoError(t, err)
	require.Len(t, n.ChildTopics.TopicsOrNil(tagType), 1)

	typ, _, err := svc.RemoveCompDef(ctx, noteType, tagType)
	require.NoError(t, err)
	assert.Equal(t, []string{nameType}, typ.CompDefURIs())

	kept, err := svc.GetTopic(ctx, tag.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "go", kept.Value.String())
	assocs, err := svc.GetAssociations(ctx, tag.ID)
	require.NoError(t, err)
	assert.Empty(t, assocs)

	n, err = svc.GetTopic(ctx, n.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{nameType}, n.ChildTopics.Keys())
	assert.Equal(t, "first", n.ChildTopics.StringValueOr(nameType, ""))
}

func TestCompDefSequence_CorruptionAndRepair(t *testing.T) {
	svc, store := newTestService(t)
	installCardType(t, svc)
	ctx := context.Background()

	// drop the sequence start behind the engine's back
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	typeTopic, err := tx.FetchTopicByURI(cardType)
	require.NoError(t, err)
	starts, err := tx.FetchRelatedAssociations(typeTopic.ID, sequenceStartFilter)
	require.NoError(t, err)
	require.Len(t, starts, 1)
	require.NoError(t, tx.DeleteAssociation(starts[0].RelatingAssoc.ID))
	tx.Success()
	require.NoError(t, tx.Finish())
	svc.TypeCache().Clear()

	_, err = svc.GetTopicType(ctx, cardType)
	require.Error(t, err)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeSequenceCorruption))

	reports, err := svc.CheckSequences(ctx)
	require.NoError(t, err)
	r, ok := findReport(reports, cardType)
	require.True(t, ok)
	assert.False(t, r.OK())

	typ, d, err := svc.RepairSequence(ctx, cardType)
	require.NoError(t, err)
	assert.Equal(t, []string{aType, bType, cType}, typ.CompDefURIs())
	assert.True(t, d.Has(DirectiveUpdateTopicType, typ.ID))

	reports, err = svc.CheckSequences(ctx)
	require.NoError(t, err)
	r, _ = findReport(reports, cardType)
	assert.True(t, r.OK())
	assert.Equal(t, 3, r.CompDefs)
}

// ============================================================================
// Comp def updates
// ============================================================================

func TestUpdateCompDef_Cardinality(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()

	person := createPerson(t, svc, "Alice", "a@example.org", "b@example.org")

	_, _, err := svc.UpdateCompDef(ctx, personType, model.NewCompositionDef("", emailType, model.CardinalityOne))
	require.Error(t, err)
	var violation *dmxerrors.ErrCardinalityViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, person.ID, violation.ObjectID)

	typ, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	cd, _ := typ.CompDef(emailType)
	assert.True(t, cd.IsMany())

	second := person.ChildTopics.TopicsOrNil(emailType)[1].ID
	_, _, err = svc.UpdateTopic(ctx, updateChildren(person.ID, model.NewChildTopicsModel().AddDeletionRef(emailType, second)))
	require.NoError(t, err)

	vc := model.NewViewConfigModel().Set("widget", "email")
	upd := model.NewCompositionDef("", emailType, model.CardinalityOne)
	upd.ViewConfig = vc
	typ, d, err := svc.UpdateCompDef(ctx, personType, upd)
	require.NoError(t, err)
	assert.True(t, d.Has(DirectiveUpdateTopicType, typ.ID))
	cd, _ = typ.CompDef(emailType)
	assert.False(t, cd.IsMany())
	widget, ok := cd.ViewConfig.Get("widget")
	require.True(t, ok)
	assert.Equal(t, "email", widget.String())

	// the single remaining email is now read as a single child
	fetched, err := svc.GetTopic(ctx, person.ID, true)
	require.NoError(t, err)
	assert.False(t, fetched.ChildTopics.IsMulti(emailType))
	assert.Equal(t, "a@example.org", fetched.ChildTopics.StringValueOr(emailType, ""))

	_, _, err = svc.UpdateCompDef(ctx, personType, model.NewAggregationDef("", emailType, model.CardinalityOne))
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation))
}

func TestUpdateTypeViewConfig(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()

	typ, _, err := svc.UpdateTypeViewConfig(ctx, personType, model.NewViewConfigModel().Set("color", "blue"))
	require.NoError(t, err)
	color, _ := typ.ViewConfig.Get("color")
	assert.Equal(t, "blue", color.String())

	typ, _, err = svc.UpdateTypeViewConfig(ctx, personType, model.NewViewConfigModel().Set("color", "red"))
	require.NoError(t, err)
	color, _ = typ.ViewConfig.Get("color")
	assert.Equal(t, "red", color.String())

	configs, err := svc.GetTopicsByType(ctx, model.ViewConfigType, false)
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}

// ============================================================================
// Type deletion
// ============================================================================

func TestDeleteTopicType(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	topics, assocs := store.Stats()
	installPersonTypes(t, svc)

	person := createPerson(t, svc, "Alice", "a@example.org")

	_, err := svc.DeleteTopicType(ctx, personType)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation), "type with instances")

	_, err = svc.DeleteTopicType(ctx, nameType)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation), "type used as child type")

	_, err = svc.DeleteTopicType(ctx, model.CardinalityType)
	assert.True(t, dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation), "core type")

	_, err = svc.DeleteAssocType(ctx, personType)
	assert.True(t, dmxerrors.IsNotFound(err))

	_, err = svc.DeleteTopic(ctx, person.ID)
	require.NoError(t, err)

	d, err := svc.DeleteTopicType(ctx, personType)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count(DirectiveDeleteTopicType))
	assert.False(t, svc.TypeCache().Contains(personType))

	_, err = svc.GetTopicType(ctx, personType)
	assert.True(t, dmxerrors.IsNotFound(err))

	for _, uri := range []string{nameType, emailType} {
		_, err = svc.DeleteTopicType(ctx, uri)
		require.NoError(t, err)
	}
	topics2, assocs2 := store.Stats()
	assert.Equal(t, topics, topics2)
	assert.Equal(t, assocs, assocs2)
}

// ============================================================================
// Type cache
// ============================================================================

func TestTypeCache_ServesClones(t *testing.T) {
	rec := newCountingRecorder()
	svc, _ := newTestService(t, WithRecorder(rec))
	installPersonTypes(t, svc)
	ctx := context.Background()

	first, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	assert.True(t, svc.TypeCache().Contains(personType))

	first.CompDefs = nil
	first.Value = model.NewSimpleValue("changed")

	second, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	assert.Len(t, second.CompDefs, 2)
	assert.Equal(t, "Person", second.Name())

	third, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	if diff := cmp.Diff(second, third, exportAll); diff != "" {
		t.Errorf("cached type changed between reads:\n%s", diff)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Greater(t, rec.hits, 0)
	assert.Greater(t, rec.misses, 0)
	assert.Greater(t, rec.created["topic"], 0)
	assert.Greater(t, rec.ops["get_type/ok"], 2)
}

func TestTypeCache_MutationInvalidates(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()
	createTextType(t, svc, "dmx.test.phone")

	before, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	require.Len(t, before.CompDefs, 2)

	_, _, err = svc.AddCompDef(ctx, personType, model.NewCompositionDef("", "dmx.test.phone", model.CardinalityMany), -1)
	require.NoError(t, err)

	after, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	assert.Equal(t, []string{nameType, emailType, "dmx.test.phone"}, after.CompDefURIs())

	// a failed mutation leaves the cached type intact
	_, _, err = svc.AddCompDef(ctx, personType, model.NewCompositionDef("", "dmx.test.missing", model.CardinalityMany), -1)
	require.Error(t, err)
	after, err = svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	assert.Len(t, after.CompDefs, 3)
}

func TestTypeCache_SingleflightLoad(t *testing.T) {
	cache := NewTypeCache(nil)

	var loads int32
	release := make(chan struct{})
	load := func() (*model.TypeModel, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return model.NewTopicTypeModel("dmx.test.x", "X", model.DataTypeText), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			typ, err := cache.Get("dmx.test.x", load)
			assert.NoError(t, err)
			assert.Equal(t, "X", typ.Name())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, 1, cache.Len())

	cache.Invalidate("dmx.test.x")
	assert.False(t, cache.Contains("dmx.test.x"))
}

func TestTypeCache_LoadErrorIsNotCached(t *testing.T) {
	cache := NewTypeCache(nil)
	_, err := cache.Get("dmx.test.x", func() (*model.TypeModel, error) {
		return nil, dmxerrors.NewNotFound("type", "dmx.test.x")
	})
	assert.True(t, dmxerrors.IsNotFound(err))
	assert.Equal(t, 0, cache.Len())
}

func TestTypeCache_InvalidationDuringLoadIsNotCached(t *testing.T) {
	cache := NewTypeCache(nil)
	loaded := func() *model.TypeModel {
		return model.NewTopicTypeModel("dmx.test.x", "X", model.DataTypeText)
	}

	// a writer commits while the reader still holds the old definition
	typ, err := cache.Get("dmx.test.x", func() (*model.TypeModel, error) {
		cache.Invalidate("dmx.test.x")
		return loaded(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "X", typ.Name())
	assert.False(t, cache.Contains("dmx.test.x"))

	_, err = cache.Get("dmx.test.x", func() (*model.TypeModel, error) {
		cache.Clear()
		return loaded(), nil
	})
	require.NoError(t, err)
	assert.False(t, cache.Contains("dmx.test.x"))

	// invalidating another type does not block caching
	_, err = cache.Get("dmx.test.x", func() (*model.TypeModel, error) {
		cache.Invalidate("dmx.test.y")
		return loaded(), nil
	})
	require.NoError(t, err)
	assert.True(t, cache.Contains("dmx.test.x"))
}

func TestWarmTypeCache(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()
	svc.TypeCache().Clear()

	require.NoError(t, svc.WarmTypeCache(ctx))

	uris, err := svc.TypeURIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(uris), svc.TypeCache().Len())
	assert.True(t, svc.TypeCache().Contains(personType))
	assert.True(t, svc.TypeCache().Contains(model.AssocComposition))

	types, err := svc.GetAllTopicTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeType, types[0].URI)
	assert.Equal(t, personType, types[len(types)-1].URI)
}

func TestMoveTo(t *testing.T) {
	order := []string{"a", "b", "c"}
	assert.Equal(t, []string{"c", "a", "b"}, moveTo(order, "c", 0))
	assert.Equal(t, []string{"b", "a", "c"}, moveTo(order, "a", 1))
	assert.Equal(t, []string{"b", "c", "a"}, moveTo(order, "a", -1))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}
