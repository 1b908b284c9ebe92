package model

// UnassignedID marks a model that has not been stored yet
const UnassignedID int64 = -1

// DMXObjectModel holds the fields shared by topics and associations
type DMXObjectModel struct {
	ID          int64             `json:"id"`
	URI         string            `json:"uri,omitempty"`
	TypeURI     string            `json:"typeUri"`
	Value       SimpleValue       `json:"value"`
	ChildTopics *ChildTopicsModel `json:"children,omitempty"`
}

// IsStored reports whether the store has assigned an id
func (o *DMXObjectModel) IsStored() bool {
	return o.ID != UnassignedID && o.ID != 0
}

// Children returns the child topics, creating an empty model on first use
func (o *DMXObjectModel) Children() *ChildTopicsModel {
	if o.ChildTopics == nil {
		o.ChildTopics = NewChildTopicsModel()
	}
	return o.ChildTopics
}

// Object is the capability shared by topics and associations
type Object interface {
	Base() *DMXObjectModel
	Kind() ObjectKind
}

// Same reports whether two objects denote the same stored entity
func Same(a, b Object) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Base().IsStored() && a.Base().ID == b.Base().ID
}

// TopicModel is a graph node
type TopicModel struct {
	DMXObjectModel
}

// NewTopicModel creates an unsaved topic
func NewTopicModel(typeURI string, value interface{}) *TopicModel {
	return &TopicModel{DMXObjectModel{ID: UnassignedID, TypeURI: typeURI, Value: NewSimpleValue(value)}}
}

// NewCompositeTopicModel creates an unsaved topic with a composite value
func NewCompositeTopicModel(typeURI string, children *ChildTopicsModel) *TopicModel {
	return &TopicModel{DMXObjectModel{ID: UnassignedID, TypeURI: typeURI, ChildTopics: children}}
}

func (t *TopicModel) Base() *DMXObjectModel { return &t.DMXObjectModel }
func (t *TopicModel) Kind() ObjectKind      { return KindTopic }

// Clone returns a deep copy
func (t *TopicModel) Clone() *TopicModel {
	if t == nil {
		return nil
	}
	c := *t
	c.ChildTopics = t.ChildTopics.Clone()
	return &c
}

// AssociationModel is a typed edge between two players
type AssociationModel struct {
	DMXObjectModel
	Player1 PlayerModel `json:"player1"`
	Player2 PlayerModel `json:"player2"`
}

// NewAssociationModel creates an unsaved association
func NewAssociationModel(typeURI string, p1, p2 PlayerModel) *AssociationModel {
	return &AssociationModel{
		DMXObjectModel: DMXObjectModel{ID: UnassignedID, TypeURI: typeURI},
		Player1:        p1,
		Player2:        p2,
	}
}

func (a *AssociationModel) Base() *DMXObjectModel { return &a.DMXObjectModel }
func (a *AssociationModel) Kind() ObjectKind      { return KindAssociation }

// Clone returns a deep copy
func (a *AssociationModel) Clone() *AssociationModel {
	if a == nil {
		return nil
	}
	c := *a
	c.ChildTopics = a.ChildTopics.Clone()
	return &c
}

// Split returns the player with id myID and the opposite player
func (a *AssociationModel) Split(myID int64) (me, other PlayerModel, ok bool) {
	switch myID {
	case a.Player1.ID:
		return a.Player1, a.Player2, true
	case a.Player2.ID:
		return a.Player2, a.Player1, true
	}
	return PlayerModel{}, PlayerModel{}, false
}

// PlayerByRole returns the player filling roleTypeURI
func (a *AssociationModel) PlayerByRole(roleTypeURI string) (PlayerModel, bool) {
	switch roleTypeURI {
	case a.Player1.RoleTypeURI:
		return a.Player1, true
	case a.Player2.RoleTypeURI:
		return a.Player2, true
	}
	return PlayerModel{}, false
}

// HasPlayer reports whether the object with id plays a role in the association
func (a *AssociationModel) HasPlayer(id int64) bool {
	return a.Player1.ID == id || a.Player2.ID == id
}

// RefKind tells how a child entry of an update refers to its topic
type RefKind int

const (
	// RefNone is a by-value entry: the topic model itself is created or updated
	RefNone RefKind = iota
	// RefByID attaches an existing topic by id
	RefByID
	// RefByURI attaches an existing topic by URI
	RefByURI
	// RefDeletion detaches (and for compositions deletes) an existing child
	RefDeletion
)

// RelatedTopicModel is a topic together with the association that relates it
type RelatedTopicModel struct {
	TopicModel
	Ref           RefKind           `json:"-"`
	RelatingAssoc *AssociationModel `json:"assoc,omitempty"`
}

// NewRelatedTopicModel wraps a topic model as a by-value child entry
func NewRelatedTopicModel(topic *TopicModel) *RelatedTopicModel {
	return &RelatedTopicModel{TopicModel: *topic}
}

// IsReference reports whether the entry attaches an existing topic
func (r *RelatedTopicModel) IsReference() bool {
	return r.Ref == RefByID || r.Ref == RefByURI
}

// IsDeletionRef reports whether the entry is a deletion tombstone
func (r *RelatedTopicModel) IsDeletionRef() bool {
	return r.Ref == RefDeletion
}

// Clone returns a deep copy
func (r *RelatedTopicModel) Clone() *RelatedTopicModel {
	if r == nil {
		return nil
	}
	c := *r
	c.ChildTopics = r.ChildTopics.Clone()
	c.RelatingAssoc = r.RelatingAssoc.Clone()
	return &c
}

// RelatedAssociationModel is an association together with the association that relates it
type RelatedAssociationModel struct {
	AssociationModel
	RelatingAssoc *AssociationModel `json:"assoc,omitempty"`
}
