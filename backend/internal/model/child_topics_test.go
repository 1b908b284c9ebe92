package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmxerrors "dmx-platform/backend/pkg/errors"
)

const (
	testName  = "dmx.contacts.name"
	testEmail = "dmx.contacts.email"
)

func TestChildTopics_SingleAndMulti(t *testing.T) {
	c := NewChildTopicsModel().
		SetValue(testName, "Alice").
		AddValue(testEmail, "a@x.com").
		AddValue(testEmail, "b@x.com")

	assert.Equal(t, []string{testName, testEmail}, c.Keys())
	assert.False(t, c.IsMulti(testName))
	assert.True(t, c.IsMulti(testEmail))
	assert.Equal(t, "Alice", c.StringValueOr(testName, ""))

	emails := c.TopicsOrNil(testEmail)
	require.Len(t, emails, 2)
	assert.Equal(t, testEmail, emails[0].TypeURI)
	assert.Equal(t, "b@x.com", emails[1].Value.String())

	c.SetValue(testName, "Bob")
	assert.Equal(t, "Bob", c.StringValueOr(testName, ""))
	assert.Equal(t, 2, c.Len())
}

func TestChildTopics_MissingKey(t *testing.T) {
	c := NewChildTopicsModel()

	_, err := c.Topic(testName)
	require.Error(t, err)
	assert.True(t, dmxerrors.IsNotFound(err))

	assert.Nil(t, c.TopicOrNil(testName))
	assert.Equal(t, "def", c.StringValueOr(testName, "def"))
	assert.Equal(t, int64(9), c.IntValueOr(testName, 9))
}

func TestChildTopics_References(t *testing.T) {
	c := NewChildTopicsModel().
		AddRef(testEmail, 10).
		AddDeletionRef(testEmail, 11).
		SetRefByURI(testName, "dmx.test.alice")

	emails := c.TopicsOrNil(testEmail)
	require.Len(t, emails, 2)
	assert.True(t, emails[0].IsReference())
	assert.Equal(t, int64(10), emails[0].ID)
	assert.True(t, emails[1].IsDeletionRef())

	name := c.TopicOrNil(testName)
	require.NotNil(t, name)
	assert.Equal(t, RefByURI, name.Ref)
	assert.Equal(t, "dmx.test.alice", name.URI)
}

func TestChildTopics_SetListAndRemove(t *testing.T) {
	c := NewChildTopicsModel().SetList(testEmail, []*RelatedTopicModel{
		NewRelatedTopicModel(NewTopicModel(testEmail, "x@y.z")),
	})
	assert.True(t, c.IsReplace(testEmail))
	assert.True(t, c.IsMulti(testEmail))

	c.Remove(testEmail)
	assert.False(t, c.Has(testEmail))
	assert.Empty(t, c.Keys())
}

func TestChildTopics_CloneIsDeep(t *testing.T) {
	inner := NewChildTopicsModel().SetValue("dmx.contacts.city", "Berlin")
	c := NewChildTopicsModel().SetComposite("dmx.contacts.address", inner)

	cp := c.Clone()
	inner.SetValue("dmx.contacts.city", "Paris")

	addr := cp.TopicOrNil("dmx.contacts.address")
	require.NotNil(t, addr)
	assert.Equal(t, "Berlin", addr.ChildTopics.StringValueOr("dmx.contacts.city", ""))
}

func TestCompDefURI(t *testing.T) {
	assert.Equal(t, testName, CompDefURI(testName, ""))
	uri := CompDefURI("dmx.datetime.date", "dmx.contacts.date_of_birth")
	assert.Equal(t, "dmx.datetime.date#dmx.contacts.date_of_birth", uri)
	assert.Equal(t, "dmx.datetime.date", ChildTypeURIOf(uri))
}

func TestChildTopics_JSONKeepsOrderAndRefs(t *testing.T) {
	c := NewChildTopicsModel().
		SetValue(testName, "Alice").
		AddValue(testEmail, "a@x.com").
		AddRef(testEmail, 5).
		AddDeletionRef(testEmail, 6)

	b, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded ChildTopicsModel
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, c.Keys(), decoded.Keys())
	assert.Equal(t, "Alice", decoded.StringValueOr(testName, ""))

	emails := decoded.TopicsOrNil(testEmail)
	require.Len(t, emails, 3)
	assert.Equal(t, RefNone, emails[0].Ref)
	assert.Equal(t, testEmail, emails[0].TypeURI)
	assert.Equal(t, UnassignedID, emails[0].ID)
	assert.Equal(t, RefByID, emails[1].Ref)
	assert.Equal(t, int64(5), emails[1].ID)
	assert.Equal(t, RefDeletion, emails[2].Ref)
	assert.Equal(t, int64(6), emails[2].ID)
}

func TestChildTopics_JSONShorthand(t *testing.T) {
	var c ChildTopicsModel
	err := json.Unmarshal([]byte(`{"z.name":"Carol","a.tags":[{"ref_uri":"tag.go"},"plain"]}`), &c)
	require.NoError(t, err)

	assert.Equal(t, []string{"z.name", "a.tags"}, c.Keys())
	tags := c.TopicsOrNil("a.tags")
	require.Len(t, tags, 2)
	assert.Equal(t, RefByURI, tags[0].Ref)
	assert.Equal(t, "tag.go", tags[0].URI)
	assert.Equal(t, "plain", tags[1].Value.String())

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &c))
}
