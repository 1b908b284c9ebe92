// Package core is the typed composite-value engine. It translates topics and
// associations with nested child topics into graph operations on a storage.Storage.
package core

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	"dmx-platform/backend/internal/storage"
	dmxerrors "dmx-platform/backend/pkg/errors"
	"dmx-platform/backend/pkg/logger"
)

// Service runs every public operation in its own storage transaction
type Service struct {
	store    storage.Storage
	cache    *TypeCache
	validate *validator.Validate
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates the engine on top of a store
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: validator.New(),
		recorder: nopRecorder{},
		logger:   logger.Named("core"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewTypeCache(s.recorder)
	return s
}

// TypeCache exposes the cache for maintenance tooling
func (s *Service) TypeCache() *TypeCache {
	return s.cache
}

// unitOfWork is the state of one running operation
type unitOfWork struct {
	svc        *Service
	tx         storage.Transaction
	log        *zap.Logger
	directives Directives
	dirty      map[string]struct{}
	created    map[model.ObjectKind]int
	deleted    map[model.ObjectKind]int
}

// run executes fn inside a transaction. The transaction is marked successful only
// if fn returns nil; Finish runs on every path.
func (s *Service) run(ctx context.Context, op string, fn func(u *unitOfWork) error) (d Directives, err error) {
	start := time.Now()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		s.recorder.ObserveOperation(op, "error", time.Since(start))
		return nil, err
	}

	u := &unitOfWork{
		svc:     s,
		tx:      tx,
		log:     s.logger.With(zap.String("tx_id", tx.ID()), zap.String("op", op)),
		dirty:   make(map[string]struct{}),
		created: make(map[model.ObjectKind]int),
		deleted: make(map[model.ObjectKind]int),
	}

	defer func() {
		if ferr := tx.Finish(); ferr != nil && err == nil {
			err = dmxerrors.NewStorage("finish", ferr)
		}
		// types mutated by this unit of work may have been loaded by concurrent readers meanwhile
		if len(u.dirty) > 0 {
			s.cache.Invalidate(u.dirtyURIs()...)
		}

		status := "ok"
		if err != nil {
			status = "error"
			d = nil
			u.log.Debug("Operation rolled back", zap.Error(err))
		} else {
			s.recordCounts(u)
		}
		s.recorder.ObserveOperation(op, status, time.Since(start))
	}()

	if err = fn(u); err != nil {
		return nil, err
	}
	tx.Success()
	return u.directives, nil
}

func (s *Service) recordCounts(u *unitOfWork) {
	for kind, n := range u.created {
		s.recorder.ObjectsCreated(kind.String(), n)
	}
	for kind, n := range u.deleted {
		s.recorder.ObjectsDeleted(kind.String(), n)
	}
}

// markDirty takes a type out of the cache for the rest of the unit of work
func (u *unitOfWork) markDirty(typeURI string) {
	u.dirty[typeURI] = struct{}{}
	u.svc.cache.Invalidate(typeURI)
}

func (u *unitOfWork) dirtyURIs() []string {
	uris := make([]string, 0, len(u.dirty))
	for uri := range u.dirty {
		uris = append(uris, uri)
	}
	return uris
}

// fetchType returns a materialized type, bypassing the cache for types this unit of work changed
func (u *unitOfWork) fetchType(uri string) (*model.TypeModel, error) {
	if _, ok := u.dirty[uri]; ok {
		return u.loadType(uri)
	}
	return u.svc.cache.Get(uri, func() (*model.TypeModel, error) {
		return u.loadType(uri)
	})
}

// ============================================================================
// Topics
// ============================================================================

// CreateTopic stores a topic together with its composite value
func (s *Service) CreateTopic(ctx context.Context, topic *model.TopicModel) (*model.TopicModel, Directives, error) {
	var out *model.TopicModel
	d, err := s.run(ctx, "create_topic", func(u *unitOfWork) error {
		id, err := u.createTopic(topic)
		if err != nil {
			return err
		}
		out, err = u.getTopic(id, true)
		return err
	})
	return out, d, err
}

// UpdateTopic applies the given value to a stored topic. Child topics not mentioned are left as they are.
func (s *Service) UpdateTopic(ctx context.Context, topic *model.TopicModel) (*model.TopicModel, Directives, error) {
	var out *model.TopicModel
	d, err := s.run(ctx, "update_topic", func(u *unitOfWork) error {
		if err := u.updateTopic(topic); err != nil {
			return err
		}
		var err error
		out, err = u.getTopic(topic.ID, true)
		return err
	})
	return out, d, err
}

// DeleteTopic deletes a topic, its composition children and all its associations.
// Types are deleted with DeleteTopicType or DeleteAssocType.
func (s *Service) DeleteTopic(ctx context.Context, id int64) (Directives, error) {
	return s.run(ctx, "delete_topic", func(u *unitOfWork) error {
		kind, err := u.tx.FetchObjectKind(id)
		if err != nil {
			return err
		}
		if kind != model.KindTopic {
			return dmxerrors.NewNotFoundID("topic", id)
		}
		topic, err := u.tx.FetchTopic(id)
		if err != nil {
			return err
		}
		if err := u.checkTopicDeletable(topic); err != nil {
			return err
		}
		return u.deleteObject(id, make(map[int64]bool))
	})
}

// GetTopic fetches a topic, optionally with its child topics
func (s *Service) GetTopic(ctx context.Context, id int64, withChildren bool) (*model.TopicModel, error) {
	var out *model.TopicModel
	_, err := s.run(ctx, "get_topic", func(u *unitOfWork) error {
		var err error
		out, err = u.getTopic(id, withChildren)
		return err
	})
	return out, err
}

// GetTopicByURI fetches a topic by its URI
func (s *Service) GetTopicByURI(ctx context.Context, uri string, withChildren bool) (*model.TopicModel, error) {
	var out *model.TopicModel
	_, err := s.run(ctx, "get_topic", func(u *unitOfWork) error {
		t, err := u.tx.FetchTopicByURI(uri)
		if err != nil {
			return err
		}
		out, err = u.getTopic(t.ID, withChildren)
		return err
	})
	return out, err
}

// GetTopicByValue does an exact-match lookup on a key-indexed type
func (s *Service) GetTopicByValue(ctx context.Context, typeURI string, value interface{}) (*model.TopicModel, error) {
	var out *model.TopicModel
	_, err := s.run(ctx, "get_topic", func(u *unitOfWork) error {
		t, err := u.tx.FetchTopicByValue(typeURI, model.NewSimpleValue(value))
		if err != nil {
			return err
		}
		out, err = u.getTopic(t.ID, true)
		return err
	})
	return out, err
}

// GetTopicsByType returns all instances of a topic type
func (s *Service) GetTopicsByType(ctx context.Context, typeURI string, withChildren bool) ([]*model.TopicModel, error) {
	var out []*model.TopicModel
	_, err := s.run(ctx, "get_topics", func(u *unitOfWork) error {
		if _, err := u.fetchType(typeURI); err != nil {
			return err
		}
		topics, err := u.tx.FetchTopicsByType(typeURI)
		if err != nil {
			return err
		}
		for _, t := range topics {
			if withChildren {
				if err := u.populate(&t.DMXObjectModel, nil); err != nil {
					return err
				}
			}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}

// SearchTopics runs a fulltext query. An empty typeURI searches all types.
func (s *Service) SearchTopics(ctx context.Context, term, typeURI string) ([]*model.TopicModel, error) {
	var out []*model.TopicModel
	_, err := s.run(ctx, "search_topics", func(u *unitOfWork) error {
		var err error
		out, err = u.tx.QueryTopics(term, typeURI)
		return err
	})
	return out, err
}

// GetRelatedTopics returns the topics related to an object through matching associations
func (s *Service) GetRelatedTopics(ctx context.Context, objectID int64, filter model.RelatedFilter) ([]*model.RelatedTopicModel, error) {
	var out []*model.RelatedTopicModel
	_, err := s.run(ctx, "get_related_topics", func(u *unitOfWork) error {
		if _, err := u.tx.FetchObjectKind(objectID); err != nil {
			return err
		}
		var err error
		out, err = u.tx.FetchRelatedTopics(objectID, filter)
		return err
	})
	return out, err
}

// FetchChildTopics populates the child topics of a stored topic. With compDefURIs
// given, only those comp defs are fetched.
func (s *Service) FetchChildTopics(ctx context.Context, topic *model.TopicModel, compDefURIs ...string) error {
	_, err := s.run(ctx, "fetch_child_topics", func(u *unitOfWork) error {
		return u.populate(&topic.DMXObjectModel, compDefURIs)
	})
	return err
}

func (u *unitOfWork) getTopic(id int64, withChildren bool) (*model.TopicModel, error) {
	t, err := u.tx.FetchTopic(id)
	if err != nil {
		return nil, err
	}
	if withChildren {
		if err := u.populate(&t.DMXObjectModel, nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// populate fetches the children of a stored object according to its type
func (u *unitOfWork) populate(obj *model.DMXObjectModel, subset []string) error {
	typ, err := u.fetchType(obj.TypeURI)
	if err != nil {
		return err
	}
	obj.ChildTopics = nil
	if typ.IsSimple() {
		return nil
	}
	return u.fetchChildTopics(obj, typ, subset)
}

// ============================================================================
// Associations
// ============================================================================

// CreateAssociation stores an association. Players given by URI are resolved first.
func (s *Service) CreateAssociation(ctx context.Context, assoc *model.AssociationModel) (*model.AssociationModel, Directives, error) {
	var out *model.AssociationModel
	d, err := s.run(ctx, "create_association", func(u *unitOfWork) error {
		id, err := u.createAssociation(assoc)
		if err != nil {
			return err
		}
		out, err = u.getAssociation(id, true)
		return err
	})
	return out, d, err
}

// UpdateAssociation updates an association's URI and value
func (s *Service) UpdateAssociation(ctx context.Context, assoc *model.AssociationModel) (*model.AssociationModel, Directives, error) {
	var out *model.AssociationModel
	d, err := s.run(ctx, "update_association", func(u *unitOfWork) error {
		if err := u.updateAssociation(assoc); err != nil {
			return err
		}
		var err error
		out, err = u.getAssociation(assoc.ID, true)
		return err
	})
	return out, d, err
}

// DeleteAssociation deletes an association and everything that depends on it.
// Comp defs are removed with RemoveCompDef.
func (s *Service) DeleteAssociation(ctx context.Context, id int64) (Directives, error) {
	return s.run(ctx, "delete_association", func(u *unitOfWork) error {
		kind, err := u.tx.FetchObjectKind(id)
		if err != nil {
			return err
		}
		if kind != model.KindAssociation {
			return dmxerrors.NewNotFoundID("association", id)
		}
		assoc, err := u.tx.FetchAssociation(id)
		if err != nil {
			return err
		}
		if err := u.checkAssocMutable(assoc); err != nil {
			return err
		}
		return u.deleteObject(id, make(map[int64]bool))
	})
}

// GetAssociation fetches an association, optionally with its child topics
func (s *Service) GetAssociation(ctx context.Context, id int64, withChildren bool) (*model.AssociationModel, error) {
	var out *model.AssociationModel
	_, err := s.run(ctx, "get_association", func(u *unitOfWork) error {
		var err error
		out, err = u.getAssociation(id, withChildren)
		return err
	})
	return out, err
}

// GetAssociations returns all associations an object plays a role in
func (s *Service) GetAssociations(ctx context.Context, objectID int64) ([]*model.AssociationModel, error) {
	var out []*model.AssociationModel
	_, err := s.run(ctx, "get_associations", func(u *unitOfWork) error {
		if _, err := u.tx.FetchObjectKind(objectID); err != nil {
			return err
		}
		var err error
		out, err = u.tx.FetchAssociations(objectID)
		return err
	})
	return out, err
}

func (u *unitOfWork) getAssociation(id int64, withChildren bool) (*model.AssociationModel, error) {
	a, err := u.tx.FetchAssociation(id)
	if err != nil {
		return nil, err
	}
	if withChildren {
		if err := u.populate(&a.DMXObjectModel, nil); err != nil {
			return nil, err
		}
	}
	return a, nil
}
