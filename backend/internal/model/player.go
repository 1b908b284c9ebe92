package model

import "fmt"

// ObjectKind distinguishes the two kinds of graph objects
type ObjectKind int

const (
	KindTopic ObjectKind = iota + 1
	KindAssociation
)

func (k ObjectKind) String() string {
	switch k {
	case KindTopic:
		return "topic"
	case KindAssociation:
		return "association"
	default:
		return "unknown"
	}
}

// PlayerModel is one end of an association: a topic or an association filling a role.
// A topic player may be given by URI; the engine resolves it to an id before storing.
type PlayerModel struct {
	Kind        ObjectKind `json:"kind"`
	ID          int64      `json:"id"`
	URI         string     `json:"uri,omitempty"`
	RoleTypeURI string     `json:"roleTypeUri"`
}

// NewTopicPlayer creates a topic player referenced by id
func NewTopicPlayer(topicID int64, roleTypeURI string) PlayerModel {
	return PlayerModel{Kind: KindTopic, ID: topicID, RoleTypeURI: roleTypeURI}
}

// NewTopicPlayerByURI creates a topic player resolved lazily by URI
func NewTopicPlayerByURI(topicURI, roleTypeURI string) PlayerModel {
	return PlayerModel{Kind: KindTopic, ID: UnassignedID, URI: topicURI, RoleTypeURI: roleTypeURI}
}

// NewAssocPlayer creates an association player
func NewAssocPlayer(assocID int64, roleTypeURI string) PlayerModel {
	return PlayerModel{Kind: KindAssociation, ID: assocID, RoleTypeURI: roleTypeURI}
}

// HasID reports whether the player id is resolved
func (p PlayerModel) HasID() bool {
	return p.ID != UnassignedID && p.ID != 0
}

// PlayerID returns the resolved player id
func (p PlayerModel) PlayerID() int64 {
	return p.ID
}

// IsTopic reports whether a topic fills the role
func (p PlayerModel) IsTopic() bool {
	return p.Kind == KindTopic
}

func (p PlayerModel) String() string {
	if !p.HasID() && p.URI != "" {
		return fmt.Sprintf("%s uri=%s role=%s", p.Kind, p.URI, p.RoleTypeURI)
	}
	return fmt.Sprintf("%s %d role=%s", p.Kind, p.ID, p.RoleTypeURI)
}

// RelatedFilter narrows a related-object traversal. Empty fields are wildcards.
type RelatedFilter struct {
	AssocTypeURI      string
	MyRoleTypeURI     string
	OthersRoleTypeURI string
	OthersTypeURI     string
}

// Matches checks an association seen from the player with id myID.
// othersTypeURI is the type of the object at the other end.
func (f RelatedFilter) Matches(assoc *AssociationModel, myID int64, othersTypeURI string) bool {
	if f.AssocTypeURI != "" && assoc.TypeURI != f.AssocTypeURI {
		return false
	}
	if f.OthersTypeURI != "" && othersTypeURI != f.OthersTypeURI {
		return false
	}
	// both orientations are tried so self-associations match either way round
	if assoc.Player1.ID == myID && f.matchRoles(assoc.Player1, assoc.Player2) {
		return true
	}
	return assoc.Player2.ID == myID && f.matchRoles(assoc.Player2, assoc.Player1)
}

func (f RelatedFilter) matchRoles(me, other PlayerModel) bool {
	if f.MyRoleTypeURI != "" && me.RoleTypeURI != f.MyRoleTypeURI {
		return false
	}
	return f.OthersRoleTypeURI == "" || other.RoleTypeURI == f.OthersRoleTypeURI
}
