package core

// DirectiveKind names a change a client should apply to its view of the graph
type DirectiveKind string

const (
	DirectiveUpdateTopic     DirectiveKind = "UPDATE_TOPIC"
	DirectiveDeleteTopic     DirectiveKind = "DELETE_TOPIC"
	DirectiveUpdateAssoc     DirectiveKind = "UPDATE_ASSOCIATION"
	DirectiveDeleteAssoc     DirectiveKind = "DELETE_ASSOCIATION"
	DirectiveUpdateTopicType DirectiveKind = "UPDATE_TOPIC_TYPE"
	DirectiveDeleteTopicType DirectiveKind = "DELETE_TOPIC_TYPE"
	DirectiveUpdateAssocType DirectiveKind = "UPDATE_ASSOCIATION_TYPE"
	DirectiveDeleteAssocType DirectiveKind = "DELETE_ASSOCIATION_TYPE"
)

// Directive describes one side effect of a mutating operation
type Directive struct {
	Kind    DirectiveKind `json:"type"`
	ID      int64         `json:"id"`
	URI     string        `json:"uri,omitempty"`
	TypeURI string        `json:"typeUri,omitempty"`
}

// Directives accumulates the side effects of one operation. Mutating service
// calls return it; nothing is collected in ambient state.
type Directives []Directive

func (d *Directives) add(kind DirectiveKind, id int64, uri, typeURI string) {
	*d = append(*d, Directive{Kind: kind, ID: id, URI: uri, TypeURI: typeURI})
}

// Count returns the number of directives of the given kind
func (d Directives) Count(kind DirectiveKind) int {
	n := 0
	for _, x := range d {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

// Has reports whether a directive of kind exists for the object id
func (d Directives) Has(kind DirectiveKind, id int64) bool {
	for _, x := range d {
		if x.Kind == kind && x.ID == id {
			return true
		}
	}
	return false
}
