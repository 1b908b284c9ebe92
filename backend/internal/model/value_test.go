package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimpleValue_Normalizes(t *testing.T) {
	assert.Equal(t, int64(42), NewSimpleValue(42).Value())
	assert.Equal(t, int64(7), NewSimpleValue(int32(7)).Value())
	assert.Equal(t, float64(1.5), NewSimpleValue(float32(1.5)).Value())
	assert.Equal(t, "", NewSimpleValue(nil).Value())
	assert.True(t, NewSimpleValue(nil).IsEmpty())
}

func TestSimpleValue_Equal(t *testing.T) {
	assert.True(t, NewSimpleValue(1).Equal(NewSimpleValue(1.0)))
	assert.True(t, NewSimpleValue("a").Equal(NewSimpleValue("a")))
	assert.False(t, NewSimpleValue("1").Equal(NewSimpleValue(1)))
	assert.False(t, NewSimpleValue(true).Equal(NewSimpleValue("true")))
}

func TestSimpleValue_TypedGetters(t *testing.T) {
	i, err := NewSimpleValue("12").Int()
	require.NoError(t, err)
	assert.Equal(t, int64(12), i)

	b, err := NewSimpleValue("true").Bool()
	require.NoError(t, err)
	assert.True(t, b)

	_, err = NewSimpleValue(true).Int()
	assert.Error(t, err)

	assert.Equal(t, "2.5", NewSimpleValue(2.5).String())
}

func TestSimpleValue_JSON(t *testing.T) {
	var v SimpleValue
	require.NoError(t, json.Unmarshal([]byte(`3`), &v))
	assert.Equal(t, int64(3), v.Value())

	require.NoError(t, json.Unmarshal([]byte(`3.25`), &v))
	assert.Equal(t, 3.25, v.Value())

	require.NoError(t, json.Unmarshal([]byte(`"x"`), &v))
	assert.Equal(t, "x", v.Value())

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))

	b, err := json.Marshal(NewSimpleValue(false))
	require.NoError(t, err)
	assert.Equal(t, `false`, string(b))
}
