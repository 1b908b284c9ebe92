// Package storage defines the contract between the core engine and a graph store.
package storage

import (
	"context"

	"dmx-platform/backend/internal/model"
)

// Storage opens transactions against a graph store
type Storage interface {
	// BeginTx starts a transaction. Callers must call Finish on every path;
	// writes persist only if Success was called before Finish.
	BeginTx(ctx context.Context) (Transaction, error)
	Close(ctx context.Context) error
}

// Transaction is a scoped unit of work. All graph operations go through it.
type Transaction interface {
	ID() string
	Success()
	Finish() error

	// Topics
	FetchTopic(id int64) (*model.TopicModel, error)
	FetchTopicByURI(uri string) (*model.TopicModel, error)
	// FetchTopicByValue is an exact-match lookup; the type must be key-indexed
	FetchTopicByValue(typeURI string, value model.SimpleValue) (*model.TopicModel, error)
	FetchTopicsByType(typeURI string) ([]*model.TopicModel, error)
	// QueryTopics is a case-insensitive fulltext match over fulltext-indexed values.
	// An empty typeURI searches all types.
	QueryTopics(term, typeURI string) ([]*model.TopicModel, error)
	// StoreTopic inserts the topic and assigns its id
	StoreTopic(topic *model.TopicModel) error
	StoreTopicURI(id int64, uri string) error
	StoreTopicValue(id int64, value model.SimpleValue, modes model.IndexModes) error
	DeleteTopic(id int64) error

	// Associations
	FetchAssociation(id int64) (*model.AssociationModel, error)
	FetchAssociationByURI(uri string) (*model.AssociationModel, error)
	FetchAssociationsByType(typeURI string) ([]*model.AssociationModel, error)
	// StoreAssociation inserts the association and assigns its id; both players must exist
	StoreAssociation(assoc *model.AssociationModel) error
	StoreAssociationValue(id int64, value model.SimpleValue) error
	DeleteAssociation(id int64) error

	// Traversal
	FetchObjectKind(id int64) (model.ObjectKind, error)
	FetchObjectTypeURI(id int64) (string, error)
	// FetchAssociations returns all associations the object plays a role in
	FetchAssociations(objectID int64) ([]*model.AssociationModel, error)
	// FetchRelatedTopics returns the topics at the other end of matching associations,
	// each carrying its relating association, ordered by association id.
	FetchRelatedTopics(objectID int64, filter model.RelatedFilter) ([]*model.RelatedTopicModel, error)
	FetchRelatedAssociations(objectID int64, filter model.RelatedFilter) ([]*model.RelatedAssociationModel, error)
}
