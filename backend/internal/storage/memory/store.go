// Package memory is an in-process graph store. Transactions are serialized and
// rolled back through an undo log.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	"dmx-platform/backend/internal/storage"
	dmxerrors "dmx-platform/backend/pkg/errors"
	"dmx-platform/backend/pkg/logger"
)

type topicRecord struct {
	id      int64
	uri     string
	typeURI string
	value   model.SimpleValue
	modes   model.IndexModes
}

type assocRecord struct {
	id      int64
	uri     string
	typeURI string
	value   model.SimpleValue
	p1, p2  model.PlayerModel
}

var errClosed = errors.New("memory store is closed")

// Store holds the whole graph in maps
type Store struct {
	sem    chan struct{}
	closed atomic.Bool
	logger *zap.Logger

	nextID   int64
	topics   map[int64]*topicRecord
	assocs   map[int64]*assocRecord
	uris     map[string]int64
	incident map[int64]map[int64]struct{}
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sem:      make(chan struct{}, 1),
		logger:   logger.Named("memory-store"),
		nextID:   1,
		topics:   make(map[int64]*topicRecord),
		assocs:   make(map[int64]*assocRecord),
		uris:     make(map[string]int64),
		incident: make(map[int64]map[int64]struct{}),
	}
}

var _ storage.Storage = (*Store)(nil)

// BeginTx waits for exclusive access to the graph
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	if s.closed.Load() {
		return nil, dmxerrors.NewStorage("begin", errClosed)
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, dmxerrors.NewStorage("begin", ctx.Err())
	}
	return &tx{store: s, id: uuid.NewString()}, nil
}

// Close rejects further transactions
func (s *Store) Close(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}

// Stats reports object counts
func (s *Store) Stats() (topics, assocs int) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	return len(s.topics), len(s.assocs)
}

// tx is only used by one goroutine at a time
type tx struct {
	store    *Store
	id       string
	undo     []func()
	success  bool
	finished bool
}

var _ storage.Transaction = (*tx)(nil)

func (t *tx) ID() string { return t.id }

func (t *tx) Success() { t.success = true }

// Finish commits or rolls back and releases the store
func (t *tx) Finish() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if !t.success {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		t.store.logger.Debug("Transaction rolled back",
			zap.String("tx_id", t.id),
			zap.Int("undone", len(t.undo)),
		)
	}
	t.undo = nil
	<-t.store.sem
	return nil
}

func (t *tx) onRollback(f func()) {
	t.undo = append(t.undo, f)
}

// ============================================================================
// Topics
// ============================================================================

func (t *tx) FetchTopic(id int64) (*model.TopicModel, error) {
	r, ok := t.store.topics[id]
	if !ok {
		return nil, dmxerrors.NewNotFoundID("topic", id)
	}
	return r.toModel(), nil
}

func (t *tx) FetchTopicByURI(uri string) (*model.TopicModel, error) {
	id, ok := t.store.uris[uri]
	if !ok {
		return nil, dmxerrors.NewNotFound("topic", uri)
	}
	r, ok := t.store.topics[id]
	if !ok {
		return nil, dmxerrors.NewNotFound("topic", uri)
	}
	return r.toModel(), nil
}

func (t *tx) FetchTopicByValue(typeURI string, value model.SimpleValue) (*model.TopicModel, error) {
	var found []*topicRecord
	for _, r := range t.store.topics {
		if r.typeURI == typeURI && r.modes.HasKey() && r.value.Equal(value) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return nil, dmxerrors.NewNotFound(typeURI, value.String())
	case 1:
		return found[0].toModel(), nil
	default:
		return nil, dmxerrors.NewAmbiguousLookup(typeURI, value.String(), len(found))
	}
}

func (t *tx) FetchTopicsByType(typeURI string) ([]*model.TopicModel, error) {
	var out []*model.TopicModel
	for _, id := range t.sortedTopicIDs() {
		if r := t.store.topics[id]; r.typeURI == typeURI {
			out = append(out, r.toModel())
		}
	}
	return out, nil
}

func (t *tx) QueryTopics(term, typeURI string) ([]*model.TopicModel, error) {
	needle := strings.ToLower(term)
	var out []*model.TopicModel
	for _, id := range t.sortedTopicIDs() {
		r := t.store.topics[id]
		if !r.modes.HasFulltext() || (typeURI != "" && r.typeURI != typeURI) {
			continue
		}
		if strings.Contains(strings.ToLower(r.value.String()), needle) {
			out = append(out, r.toModel())
		}
	}
	return out, nil
}

func (t *tx) StoreTopic(topic *model.TopicModel) error {
	if topic.URI != "" {
		if _, taken := t.store.uris[topic.URI]; taken {
			return dmxerrors.NewValidation("uri", "URI "+topic.URI+" is not unique")
		}
	}
	id := t.store.nextID
	t.store.nextID++
	t.onRollback(func() { t.store.nextID-- })

	r := &topicRecord{id: id, uri: topic.URI, typeURI: topic.TypeURI, value: topic.Value}
	t.store.topics[id] = r
	t.setURI(id, "", topic.URI)
	t.onRollback(func() { delete(t.store.topics, id) })

	topic.ID = id
	return nil
}

func (t *tx) StoreTopicURI(id int64, uri string) error {
	r, ok := t.store.topics[id]
	if !ok {
		return dmxerrors.NewNotFoundID("topic", id)
	}
	if uri == r.uri {
		return nil
	}
	if other, taken := t.store.uris[uri]; taken && uri != "" && other != id {
		return dmxerrors.NewValidation("uri", "URI "+uri+" is not unique")
	}
	old := r.uri
	t.setURI(id, old, uri)
	r.uri = uri
	t.onRollback(func() { r.uri = old })
	return nil
}

func (t *tx) StoreTopicValue(id int64, value model.SimpleValue, modes model.IndexModes) error {
	r, ok := t.store.topics[id]
	if !ok {
		return dmxerrors.NewNotFoundID("topic", id)
	}
	oldValue, oldModes := r.value, r.modes
	r.value, r.modes = value, append(model.IndexModes(nil), modes...)
	t.onRollback(func() { r.value, r.modes = oldValue, oldModes })
	return nil
}

func (t *tx) DeleteTopic(id int64) error {
	r, ok := t.store.topics[id]
	if !ok {
		return dmxerrors.NewNotFoundID("topic", id)
	}
	if len(t.store.incident[id]) > 0 {
		return dmxerrors.NewValidation("topic", "topic still has associations")
	}
	delete(t.store.topics, id)
	t.setURI(id, r.uri, "")
	t.onRollback(func() { t.store.topics[id] = r })
	return nil
}

// ============================================================================
// Associations
// ============================================================================

func (t *tx) FetchAssociation(id int64) (*model.AssociationModel, error) {
	r, ok := t.store.assocs[id]
	if !ok {
		return nil, dmxerrors.NewNotFoundID("association", id)
	}
	return r.toModel(), nil
}

func (t *tx) FetchAssociationByURI(uri string) (*model.AssociationModel, error) {
	id, ok := t.store.uris[uri]
	if !ok {
		return nil, dmxerrors.NewNotFound("association", uri)
	}
	r, ok := t.store.assocs[id]
	if !ok {
		return nil, dmxerrors.NewNotFound("association", uri)
	}
	return r.toModel(), nil
}

func (t *tx) FetchAssociationsByType(typeURI string) ([]*model.AssociationModel, error) {
	var out []*model.AssociationModel
	for _, id := range t.sortedAssocIDs() {
		if r := t.store.assocs[id]; r.typeURI == typeURI {
			out = append(out, r.toModel())
		}
	}
	return out, nil
}

func (t *tx) StoreAssociation(assoc *model.AssociationModel) error {
	for _, p := range []model.PlayerModel{assoc.Player1, assoc.Player2} {
		if !t.exists(p) {
			return dmxerrors.NewNotFoundID(p.Kind.String()+" player", p.ID)
		}
	}
	if assoc.URI != "" {
		if _, taken := t.store.uris[assoc.URI]; taken {
			return dmxerrors.NewValidation("uri", "URI "+assoc.URI+" is not unique")
		}
	}

	id := t.store.nextID
	t.store.nextID++
	t.onRollback(func() { t.store.nextID-- })

	r := &assocRecord{
		id:      id,
		uri:     assoc.URI,
		typeURI: assoc.TypeURI,
		value:   assoc.Value,
		p1:      assoc.Player1,
		p2:      assoc.Player2,
	}
	t.store.assocs[id] = r
	t.setURI(id, "", assoc.URI)
	t.link(r.p1.ID, id)
	t.link(r.p2.ID, id)
	t.onRollback(func() { delete(t.store.assocs, id) })

	assoc.ID = id
	return nil
}

func (t *tx) StoreAssociationValue(id int64, value model.SimpleValue) error {
	r, ok := t.store.assocs[id]
	if !ok {
		return dmxerrors.NewNotFoundID("association", id)
	}
	old := r.value
	r.value = value
	t.onRollback(func() { r.value = old })
	return nil
}

func (t *tx) DeleteAssociation(id int64) error {
	r, ok := t.store.assocs[id]
	if !ok {
		return dmxerrors.NewNotFoundID("association", id)
	}
	if len(t.store.incident[id]) > 0 {
		return dmxerrors.NewValidation("association", "association still has associations")
	}
	t.unlink(r.p1.ID, id)
	t.unlink(r.p2.ID, id)
	t.setURI(id, r.uri, "")
	delete(t.store.assocs, id)
	t.onRollback(func() { t.store.assocs[id] = r })
	return nil
}

// ============================================================================
// Traversal
// ============================================================================

func (t *tx) FetchObjectKind(id int64) (model.ObjectKind, error) {
	if _, ok := t.store.topics[id]; ok {
		return model.KindTopic, nil
	}
	if _, ok := t.store.assocs[id]; ok {
		return model.KindAssociation, nil
	}
	return 0, dmxerrors.NewNotFoundID("object", id)
}

func (t *tx) FetchObjectTypeURI(id int64) (string, error) {
	if r, ok := t.store.topics[id]; ok {
		return r.typeURI, nil
	}
	if r, ok := t.store.assocs[id]; ok {
		return r.typeURI, nil
	}
	return "", dmxerrors.NewNotFoundID("object", id)
}

func (t *tx) FetchAssociations(objectID int64) ([]*model.AssociationModel, error) {
	var out []*model.AssociationModel
	for _, id := range t.incidentIDs(objectID) {
		out = append(out, t.store.assocs[id].toModel())
	}
	return out, nil
}

func (t *tx) FetchRelatedTopics(objectID int64, filter model.RelatedFilter) ([]*model.RelatedTopicModel, error) {
	var out []*model.RelatedTopicModel
	for _, assocID := range t.incidentIDs(objectID) {
		a := t.store.assocs[assocID].toModel()
		for _, other := range others(a, objectID) {
			r, ok := t.store.topics[other.ID]
			if !ok || other.Kind != model.KindTopic {
				continue
			}
			if !filter.Matches(a, objectID, r.typeURI) {
				continue
			}
			out = append(out, &model.RelatedTopicModel{TopicModel: *r.toModel(), RelatingAssoc: a})
			break
		}
	}
	return out, nil
}

func (t *tx) FetchRelatedAssociations(objectID int64, filter model.RelatedFilter) ([]*model.RelatedAssociationModel, error) {
	var out []*model.RelatedAssociationModel
	for _, assocID := range t.incidentIDs(objectID) {
		a := t.store.assocs[assocID].toModel()
		for _, other := range others(a, objectID) {
			r, ok := t.store.assocs[other.ID]
			if !ok || other.Kind != model.KindAssociation {
				continue
			}
			if !filter.Matches(a, objectID, r.typeURI) {
				continue
			}
			out = append(out, &model.RelatedAssociationModel{AssociationModel: *r.toModel(), RelatingAssoc: a})
			break
		}
	}
	return out, nil
}

// others returns the players opposite objectID; both for a self-association
func others(a *model.AssociationModel, objectID int64) []model.PlayerModel {
	var out []model.PlayerModel
	if a.Player1.ID == objectID {
		out = append(out, a.Player2)
	}
	if a.Player2.ID == objectID {
		out = append(out, a.Player1)
	}
	return out
}

// ============================================================================
// Helpers
// ============================================================================

func (t *tx) exists(p model.PlayerModel) bool {
	if p.Kind == model.KindAssociation {
		_, ok := t.store.assocs[p.ID]
		return ok
	}
	_, ok := t.store.topics[p.ID]
	return ok
}

func (t *tx) setURI(id int64, old, uri string) {
	if old != "" {
		delete(t.store.uris, old)
		t.onRollback(func() { t.store.uris[old] = id })
	}
	if uri != "" {
		t.store.uris[uri] = id
		t.onRollback(func() { delete(t.store.uris, uri) })
	}
}

func (t *tx) link(objectID, assocID int64) {
	set, ok := t.store.incident[objectID]
	if !ok {
		set = make(map[int64]struct{})
		t.store.incident[objectID] = set
	}
	if _, dup := set[assocID]; dup {
		return
	}
	set[assocID] = struct{}{}
	t.onRollback(func() { delete(set, assocID) })
}

func (t *tx) unlink(objectID, assocID int64) {
	set := t.store.incident[objectID]
	if _, ok := set[assocID]; !ok {
		return
	}
	delete(set, assocID)
	t.onRollback(func() { set[assocID] = struct{}{} })
}

func (t *tx) incidentIDs(objectID int64) []int64 {
	set := t.store.incident[objectID]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *tx) sortedTopicIDs() []int64 {
	ids := make([]int64, 0, len(t.store.topics))
	for id := range t.store.topics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *tx) sortedAssocIDs() []int64 {
	ids := make([]int64, 0, len(t.store.assocs))
	for id := range t.store.assocs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *topicRecord) toModel() *model.TopicModel {
	t := model.NewTopicModel(r.typeURI, r.value)
	t.ID = r.id
	t.URI = r.uri
	return t
}

func (r *assocRecord) toModel() *model.AssociationModel {
	a := model.NewAssociationModel(r.typeURI, r.p1, r.p2)
	a.ID = r.id
	a.URI = r.uri
	a.Value = r.value
	return a
}
