package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

func isValidation(err error) bool {
	return dmxerrors.IsErrorType(err, dmxerrors.ErrorTypeValidation)
}

func TestDeleteTopic_RejectsTypeSystemTopics(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()
	person := createPerson(t, svc, "Alice", "a@example.org")

	typ, _, err := svc.UpdateTypeViewConfig(ctx, personType, model.NewViewConfigModel().Set("icon", "user"))
	require.NoError(t, err)
	require.NotNil(t, typ.ViewConfig)

	_, err = svc.DeleteTopic(ctx, typ.ID)
	assert.True(t, isValidation(err), "type topic: %v", err)

	one, err := svc.GetTopicByURI(ctx, model.CardinalityOne, false)
	require.NoError(t, err)
	_, err = svc.DeleteTopic(ctx, one.ID)
	assert.True(t, isValidation(err), "core topic: %v", err)

	_, err = svc.DeleteTopic(ctx, typ.ViewConfig.TopicID)
	assert.True(t, isValidation(err), "view config: %v", err)

	// nothing changed, not even behind the cache
	svc.TypeCache().Clear()
	typ, err = svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	assert.Equal(t, []string{nameType, emailType}, typ.CompDefURIs())
	assert.False(t, typ.ViewConfig.IsEmpty())

	fetched, err := svc.GetTopic(ctx, person.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Alice", fetched.ChildTopics.StringValueOr(nameType, ""))
}

func TestDeleteAssociation_RejectsTypeDefinitionAssociations(t *testing.T) {
	svc, store := newTestService(t)
	installCardType(t, svc)
	ctx := context.Background()

	typ, err := svc.GetTopicType(ctx, cardType)
	require.NoError(t, err)

	_, err = svc.DeleteAssociation(ctx, typ.CompDefs[1].AssocID)
	assert.True(t, isValidation(err), "comp def: %v", err)

	_, _, err = svc.UpdateAssociation(ctx, &model.AssociationModel{DMXObjectModel: model.DMXObjectModel{
		ID:    typ.CompDefs[1].AssocID,
		Value: model.NewSimpleValue("x"),
	}})
	assert.True(t, isValidation(err), "comp def update: %v", err)

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	starts, err := tx.FetchRelatedAssociations(typ.ID, sequenceStartFilter)
	require.NoError(t, err)
	links, err := tx.FetchRelatedAssociations(typ.CompDefs[0].AssocID, successorFilter)
	require.NoError(t, err)
	dataTypes, err := tx.FetchRelatedTopics(typ.ID, dataTypeFilter)
	require.NoError(t, err)
	require.NoError(t, tx.Finish())
	require.Len(t, starts, 1)
	require.Len(t, links, 1)
	require.Len(t, dataTypes, 1)

	for name, id := range map[string]int64{
		"sequence start": starts[0].RelatingAssoc.ID,
		"sequence link":  links[0].RelatingAssoc.ID,
		"data type link": dataTypes[0].RelatingAssoc.ID,
	} {
		_, err = svc.DeleteAssociation(ctx, id)
		assert.True(t, isValidation(err), "%s: %v", name, err)
	}

	svc.TypeCache().Clear()
	typ, err = svc.GetTopicType(ctx, cardType)
	require.NoError(t, err)
	assert.Equal(t, []string{aType, bType, cType}, typ.CompDefURIs())
	assert.Equal(t, model.DataTypeValue, typ.DataTypeURI)

	reports, err := svc.CheckSequences(ctx)
	require.NoError(t, err)
	for _, r := range reports {
		assert.True(t, r.OK(), "%s: %s", r.TypeURI, r.Error)
	}
}

func TestDeleteAssociation_InstanceCompositionAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()
	person := createPerson(t, svc, "Alice")

	name, err := person.ChildTopics.Topic(nameType)
	require.NoError(t, err)
	_, err = svc.DeleteAssociation(ctx, name.RelatingAssoc.ID)
	require.NoError(t, err)

	fetched, err := svc.GetTopic(ctx, person.ID, true)
	require.NoError(t, err)
	assert.False(t, fetched.ChildTopics.Has(nameType))
}

func TestUpdateTopic_TypeTopics(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()
	person := createPerson(t, svc, "Alice")

	typ, err := svc.GetTopicType(ctx, personType)
	require.NoError(t, err)

	_, _, err = svc.UpdateTopic(ctx, &model.TopicModel{DMXObjectModel: model.DMXObjectModel{ID: typ.ID, URI: "dmx.test.renamed"}})
	assert.True(t, isValidation(err), "type URI change: %v", err)

	svc.TypeCache().Clear()
	_, err = svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	_, err = svc.GetTopic(ctx, person.ID, true)
	require.NoError(t, err)

	// the display name may change and is visible through the cache right away
	require.True(t, svc.TypeCache().Contains(personType))
	_, _, err = svc.UpdateTopic(ctx, &model.TopicModel{DMXObjectModel: model.DMXObjectModel{ID: typ.ID, Value: model.NewSimpleValue("Human")}})
	require.NoError(t, err)
	typ, err = svc.GetTopicType(ctx, personType)
	require.NoError(t, err)
	assert.Equal(t, "Human", typ.Name())
}

func TestUpdateTopic_CoreNamespace(t *testing.T) {
	svc, _ := newTestService(t)
	installPersonTypes(t, svc)
	ctx := context.Background()
	person := createPerson(t, svc, "Alice")

	one, err := svc.GetTopicByURI(ctx, model.CardinalityOne, false)
	require.NoError(t, err)
	_, _, err = svc.UpdateTopic(ctx, &model.TopicModel{DMXObjectModel: model.DMXObjectModel{ID: one.ID, Value: model.NewSimpleValue("Single")}})
	assert.True(t, isValidation(err), "core topic: %v", err)

	_, _, err = svc.UpdateTopic(ctx, &model.TopicModel{DMXObjectModel: model.DMXObjectModel{ID: person.ID, URI: "dmx.core.alice"}})
	assert.True(t, isValidation(err), "core URI: %v", err)

	one, err = svc.GetTopicByURI(ctx, model.CardinalityOne, false)
	require.NoError(t, err)
	assert.Equal(t, "One", one.Value.String())
}
