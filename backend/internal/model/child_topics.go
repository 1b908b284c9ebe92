package model

import (
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// childEntry holds the value stored under one comp def URI
type childEntry struct {
	multi   bool
	replace bool // explicit set semantics: on update, unlisted children are detached
	one     *RelatedTopicModel
	many    []*RelatedTopicModel
}

// ChildTopicsModel is the in-memory form of a composite value: an ordered mapping from
// comp def URI to one child topic (single cardinality) or a list of them (multi cardinality).
// It only records intent. Nothing is stored until the model is handed to the engine.
type ChildTopicsModel struct {
	keys    []string
	entries map[string]*childEntry
}

// NewChildTopicsModel creates an empty model
func NewChildTopicsModel() *ChildTopicsModel {
	return &ChildTopicsModel{entries: make(map[string]*childEntry)}
}

// CompDefURI builds the key a child is stored under
func CompDefURI(childTypeURI, customAssocTypeURI string) string {
	if customAssocTypeURI == "" {
		return childTypeURI
	}
	return childTypeURI + compDefSeparator + customAssocTypeURI
}

// ChildTypeURIOf extracts the child type from a comp def URI
func ChildTypeURIOf(compDefURI string) string {
	for i := 0; i < len(compDefURI); i++ {
		if compDefURI[i] == compDefSeparator[0] {
			return compDefURI[:i]
		}
	}
	return compDefURI
}

func (c *ChildTopicsModel) entry(compDefURI string) *childEntry {
	if c.entries == nil {
		c.entries = make(map[string]*childEntry)
	}
	e, ok := c.entries[compDefURI]
	if !ok {
		e = &childEntry{}
		c.entries[compDefURI] = e
		c.keys = append(c.keys, compDefURI)
	}
	return e
}

// ============================================================================
// Accessors
// ============================================================================

// Keys returns the comp def URIs in insertion order
func (c *ChildTopicsModel) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Len returns the number of comp def URIs present
func (c *ChildTopicsModel) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Has reports whether compDefURI is present
func (c *ChildTopicsModel) Has(compDefURI string) bool {
	if c == nil {
		return false
	}
	_, ok := c.entries[compDefURI]
	return ok
}

// IsMulti reports whether compDefURI holds a list
func (c *ChildTopicsModel) IsMulti(compDefURI string) bool {
	if c == nil {
		return false
	}
	e, ok := c.entries[compDefURI]
	return ok && e.multi
}

// IsReplace reports whether the list under compDefURI carries explicit set semantics
func (c *ChildTopicsModel) IsReplace(compDefURI string) bool {
	if c == nil {
		return false
	}
	e, ok := c.entries[compDefURI]
	return ok && e.replace
}

// Topic returns the single child under compDefURI
func (c *ChildTopicsModel) Topic(compDefURI string) (*RelatedTopicModel, error) {
	t := c.TopicOrNil(compDefURI)
	if t == nil {
		return nil, dmxerrors.NewNotFound("child topic", compDefURI)
	}
	return t, nil
}

// TopicOrNil returns the single child under compDefURI or nil.
// For a list the first element is returned.
func (c *ChildTopicsModel) TopicOrNil(compDefURI string) *RelatedTopicModel {
	if c == nil {
		return nil
	}
	e, ok := c.entries[compDefURI]
	if !ok {
		return nil
	}
	if e.multi {
		if len(e.many) == 0 {
			return nil
		}
		return e.many[0]
	}
	return e.one
}

// Topics returns the children under compDefURI as a list
func (c *ChildTopicsModel) Topics(compDefURI string) ([]*RelatedTopicModel, error) {
	if !c.Has(compDefURI) {
		return nil, dmxerrors.NewNotFound("child topics", compDefURI)
	}
	return c.TopicsOrNil(compDefURI), nil
}

// TopicsOrNil returns the children under compDefURI; a single child is returned as a one-element list
func (c *ChildTopicsModel) TopicsOrNil(compDefURI string) []*RelatedTopicModel {
	if c == nil {
		return nil
	}
	e, ok := c.entries[compDefURI]
	if !ok {
		return nil
	}
	if e.multi {
		return append([]*RelatedTopicModel(nil), e.many...)
	}
	if e.one == nil {
		return nil
	}
	return []*RelatedTopicModel{e.one}
}

// Value returns the simple value of the single child under compDefURI
func (c *ChildTopicsModel) Value(compDefURI string) (SimpleValue, error) {
	t, err := c.Topic(compDefURI)
	if err != nil {
		return SimpleValue{}, err
	}
	return t.Value, nil
}

// StringValue returns the child value under compDefURI as string
func (c *ChildTopicsModel) StringValue(compDefURI string) (string, error) {
	v, err := c.Value(compDefURI)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// StringValueOr returns the child value under compDefURI or def
func (c *ChildTopicsModel) StringValueOr(compDefURI, def string) string {
	s, err := c.StringValue(compDefURI)
	if err != nil {
		return def
	}
	return s
}

// IntValue returns the child value under compDefURI as int64
func (c *ChildTopicsModel) IntValue(compDefURI string) (int64, error) {
	v, err := c.Value(compDefURI)
	if err != nil {
		return 0, err
	}
	return v.Int()
}

// IntValueOr returns the child value under compDefURI or def
func (c *ChildTopicsModel) IntValueOr(compDefURI string, def int64) int64 {
	i, err := c.IntValue(compDefURI)
	if err != nil {
		return def
	}
	return i
}

// BoolValue returns the child value under compDefURI as bool
func (c *ChildTopicsModel) BoolValue(compDefURI string) (bool, error) {
	v, err := c.Value(compDefURI)
	if err != nil {
		return false, err
	}
	return v.Bool()
}

// BoolValueOr returns the child value under compDefURI or def
func (c *ChildTopicsModel) BoolValueOr(compDefURI string, def bool) bool {
	b, err := c.BoolValue(compDefURI)
	if err != nil {
		return def
	}
	return b
}

// ============================================================================
// Single cardinality
// ============================================================================

// Set puts a single child under compDefURI, replacing what was there
func (c *ChildTopicsModel) Set(compDefURI string, topic *RelatedTopicModel) *ChildTopicsModel {
	e := c.entry(compDefURI)
	e.multi, e.replace, e.many = false, false, nil
	e.one = topic
	return c
}

// SetValue puts a single simple child
func (c *ChildTopicsModel) SetValue(compDefURI string, value interface{}) *ChildTopicsModel {
	return c.Set(compDefURI, valueEntry(compDefURI, value))
}

// SetComposite puts a single composite child
func (c *ChildTopicsModel) SetComposite(compDefURI string, children *ChildTopicsModel) *ChildTopicsModel {
	return c.Set(compDefURI, compositeEntry(compDefURI, children))
}

// SetRef attaches an existing topic by id as the single child
func (c *ChildTopicsModel) SetRef(compDefURI string, topicID int64) *ChildTopicsModel {
	return c.Set(compDefURI, refEntry(RefByID, topicID, ""))
}

// SetRefByURI attaches an existing topic by URI as the single child
func (c *ChildTopicsModel) SetRefByURI(compDefURI, topicURI string) *ChildTopicsModel {
	return c.Set(compDefURI, refEntry(RefByURI, UnassignedID, topicURI))
}

// SetDeletionRef detaches the single child with the given id
func (c *ChildTopicsModel) SetDeletionRef(compDefURI string, topicID int64) *ChildTopicsModel {
	return c.Set(compDefURI, refEntry(RefDeletion, topicID, ""))
}

// ============================================================================
// Multi cardinality
// ============================================================================

// Add appends a child to the list under compDefURI
func (c *ChildTopicsModel) Add(compDefURI string, topic *RelatedTopicModel) *ChildTopicsModel {
	e := c.entry(compDefURI)
	if !e.multi {
		e.multi = true
		if e.one != nil {
			e.many = []*RelatedTopicModel{e.one}
			e.one = nil
		}
	}
	e.many = append(e.many, topic)
	return c
}

// AddValue appends a simple child
func (c *ChildTopicsModel) AddValue(compDefURI string, value interface{}) *ChildTopicsModel {
	return c.Add(compDefURI, valueEntry(compDefURI, value))
}

// AddComposite appends a composite child
func (c *ChildTopicsModel) AddComposite(compDefURI string, children *ChildTopicsModel) *ChildTopicsModel {
	return c.Add(compDefURI, compositeEntry(compDefURI, children))
}

// AddRef appends a reference to an existing topic by id
func (c *ChildTopicsModel) AddRef(compDefURI string, topicID int64) *ChildTopicsModel {
	return c.Add(compDefURI, refEntry(RefByID, topicID, ""))
}

// AddRefByURI appends a reference to an existing topic by URI
func (c *ChildTopicsModel) AddRefByURI(compDefURI, topicURI string) *ChildTopicsModel {
	return c.Add(compDefURI, refEntry(RefByURI, UnassignedID, topicURI))
}

// AddDeletionRef marks an existing child for removal on the next update
func (c *ChildTopicsModel) AddDeletionRef(compDefURI string, topicID int64) *ChildTopicsModel {
	return c.Add(compDefURI, refEntry(RefDeletion, topicID, ""))
}

// SetList puts a list with explicit set semantics: on update, existing children
// that are not listed are detached.
func (c *ChildTopicsModel) SetList(compDefURI string, topics []*RelatedTopicModel) *ChildTopicsModel {
	e := c.entry(compDefURI)
	e.multi, e.replace, e.one = true, true, nil
	e.many = append([]*RelatedTopicModel(nil), topics...)
	return c
}

// Remove drops compDefURI from the model
func (c *ChildTopicsModel) Remove(compDefURI string) *ChildTopicsModel {
	if !c.Has(compDefURI) {
		return c
	}
	delete(c.entries, compDefURI)
	for i, k := range c.keys {
		if k == compDefURI {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	return c
}

// Clone returns a deep copy
func (c *ChildTopicsModel) Clone() *ChildTopicsModel {
	if c == nil {
		return nil
	}
	out := NewChildTopicsModel()
	for _, k := range c.keys {
		e := c.entries[k]
		ce := out.entry(k)
		ce.multi, ce.replace = e.multi, e.replace
		ce.one = e.one.Clone()
		for _, t := range e.many {
			ce.many = append(ce.many, t.Clone())
		}
	}
	return out
}

func valueEntry(compDefURI string, value interface{}) *RelatedTopicModel {
	return &RelatedTopicModel{TopicModel: *NewTopicModel(ChildTypeURIOf(compDefURI), value)}
}

func compositeEntry(compDefURI string, children *ChildTopicsModel) *RelatedTopicModel {
	return &RelatedTopicModel{TopicModel: *NewCompositeTopicModel(ChildTypeURIOf(compDefURI), children)}
}

func refEntry(kind RefKind, id int64, uri string) *RelatedTopicModel {
	r := &RelatedTopicModel{TopicModel: TopicModel{DMXObjectModel{ID: id, URI: uri}}, Ref: kind}
	return r
}
