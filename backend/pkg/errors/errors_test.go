package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("update topic 12: %w", NewCardinalityViolation(12, "dmx.contacts.name", "2 values"))

	assert.True(t, IsErrorType(err, ErrorTypeCardinality))
	assert.False(t, IsErrorType(err, ErrorTypeNotFound))
	assert.Equal(t, ErrorTypeCardinality, TypeOf(err))

	var cv *ErrCardinalityViolation
	assert.True(t, errors.As(err, &cv))
	assert.Equal(t, int64(12), cv.ObjectID)
	assert.Equal(t, "dmx.contacts.name", cv.CompDefURI)
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStorage("store topic", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsErrorType(err, ErrorTypeStorage))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestForeignError(t *testing.T) {
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("boom")))
	assert.True(t, IsNotFound(NewNotFoundID("topic", 7)))
}
