package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents a missing topic, association, type or comp def
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeAmbiguity represents a lookup that unexpectedly yielded more than one result
	ErrorTypeAmbiguity ErrorType = "ambiguity"
	// ErrorTypeSequenceCorruption represents a comp def sequence chain that cannot be walked
	ErrorTypeSequenceCorruption ErrorType = "sequence_corruption"
	// ErrorTypeCardinality represents a cardinality violation
	ErrorTypeCardinality ErrorType = "cardinality"
	// ErrorTypeCyclicType represents a cyclic type composition
	ErrorTypeCyclicType ErrorType = "cyclic_type"
	// ErrorTypeValidation represents malformed input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStorage represents storage backend failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorType returns the category of the error
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Model Errors

// ErrNotFound is returned when a referenced object does not exist
type ErrNotFound struct {
	*BaseError
	What string // "topic", "association", "type", "comp def", "child topic"
	Key  string // id or uri that was looked up
}

func NewNotFound(what, key string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", what, key), nil),
		What:      what,
		Key:       key,
	}
}

// NewNotFoundID is a shorthand for id based lookups
func NewNotFoundID(what string, id int64) *ErrNotFound {
	return NewNotFound(what, fmt.Sprintf("%d", id))
}

// ErrAmbiguity is returned when a single-valued lookup yields more than one result.
// It signals a corrupted graph and is never repaired automatically.
type ErrAmbiguity struct {
	*BaseError
	ObjectID   int64
	CompDefURI string
	Count      int
}

func NewAmbiguity(objectID int64, compDefURI string, count int) *ErrAmbiguity {
	return &ErrAmbiguity{
		BaseError: NewBaseError(ErrorTypeAmbiguity,
			fmt.Sprintf("object %d has %d children for single-valued comp def %q", objectID, count, compDefURI), nil),
		ObjectID:   objectID,
		CompDefURI: compDefURI,
		Count:      count,
	}
}

// NewAmbiguousLookup reports an exact-match lookup with several hits
func NewAmbiguousLookup(key, value string, count int) *ErrAmbiguity {
	return &ErrAmbiguity{
		BaseError: NewBaseError(ErrorTypeAmbiguity,
			fmt.Sprintf("%d objects match %s=%q", count, key, value), nil),
		ObjectID: -1,
		Count:    count,
	}
}

// ErrSequenceCorruption is returned when a type's comp def sequence cannot be walked
type ErrSequenceCorruption struct {
	*BaseError
	TypeURI string
	Reason  string
}

func NewSequenceCorruption(typeURI, reason string) *ErrSequenceCorruption {
	return &ErrSequenceCorruption{
		BaseError: NewBaseError(ErrorTypeSequenceCorruption,
			fmt.Sprintf("comp def sequence of %q is corrupted: %s", typeURI, reason), nil),
		TypeURI: typeURI,
		Reason:  reason,
	}
}

// ErrCardinalityViolation is returned when an update does not fit a comp def's cardinality
type ErrCardinalityViolation struct {
	*BaseError
	ObjectID   int64
	CompDefURI string
}

func NewCardinalityViolation(objectID int64, compDefURI, reason string) *ErrCardinalityViolation {
	return &ErrCardinalityViolation{
		BaseError: NewBaseError(ErrorTypeCardinality,
			fmt.Sprintf("cardinality violation at %q (object %d): %s", compDefURI, objectID, reason), nil),
		ObjectID:   objectID,
		CompDefURI: compDefURI,
	}
}

// ErrCyclicTypeDefinition is returned when a type mutation would make the composition graph cyclic
type ErrCyclicTypeDefinition struct {
	*BaseError
	TypeURI string
	Path    []string
}

func NewCyclicTypeDefinition(typeURI string, path []string) *ErrCyclicTypeDefinition {
	return &ErrCyclicTypeDefinition{
		BaseError: NewBaseError(ErrorTypeCyclicType,
			fmt.Sprintf("type %q would become cyclic via %v", typeURI, path), nil),
		TypeURI: typeURI,
		Path:    path,
	}
}

// ErrValidation is returned for malformed input. It is raised before any store mutation.
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Storage Errors

// ErrStorage wraps a failure of the underlying graph store
type ErrStorage struct {
	*BaseError
	Operation string
}

func NewStorage(operation string, err error) *ErrStorage {
	return &ErrStorage{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	ErrorType() ErrorType
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var te typedError
	if errors.As(err, &te) {
		return te.ErrorType() == errType
	}
	return false
}

// TypeOf returns the category of err, or "" for foreign errors
func TypeOf(err error) ErrorType {
	var te typedError
	if errors.As(err, &te) {
		return te.ErrorType()
	}
	return ""
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}
