package core

import (
	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// ============================================================================
// Type system guards
// ============================================================================

// The generic topic and association operations must not touch the graph
// encoding of types; those objects change only through the type operations.

// checkTopicDeletable rejects type topics, core sentinels and view configs
func (u *unitOfWork) checkTopicDeletable(t *model.TopicModel) error {
	switch {
	case isTypeTopic(t.TypeURI):
		return dmxerrors.NewValidation("id", "topic "+itoa(t.ID)+" is the type "+t.URI+"; delete it as a type")
	case isCoreURI(t.URI):
		return dmxerrors.NewValidation("id", "core topic "+t.URI+" cannot be deleted")
	case t.TypeURI == model.ViewConfigType:
		return dmxerrors.NewValidation("id", "view config "+itoa(t.ID)+" is changed through its type")
	}
	return nil
}

// checkTopicUpdatable rejects updates of core sentinels and view configs, and URI changes of types
func (u *unitOfWork) checkTopicUpdatable(stored, next *model.TopicModel) error {
	if isCoreURI(stored.URI) {
		return dmxerrors.NewValidation("id", "core topic "+stored.URI+" cannot be changed")
	}
	if stored.TypeURI == model.ViewConfigType {
		return dmxerrors.NewValidation("id", "view config "+itoa(stored.ID)+" is changed through its type")
	}
	if next.URI == "" || next.URI == stored.URI {
		return nil
	}
	if isTypeTopic(stored.TypeURI) {
		return dmxerrors.NewValidation("uri", "the URI of type "+stored.URI+" is referenced by its instances and cannot change")
	}
	if isCoreURI(next.URI) {
		return dmxerrors.NewValidation("uri", "the dmx.core namespace is reserved")
	}
	return nil
}

// checkAssocMutable rejects comp defs, sequence links and the compositions that
// attach data types, index modes, cardinalities and view configs to types and comp defs
func (u *unitOfWork) checkAssocMutable(a *model.AssociationModel) error {
	switch {
	case isCompDefAssoc(a.TypeURI):
		return dmxerrors.NewValidation("id", "association "+itoa(a.ID)+" is a comp def; use the comp def operations of its type")
	case a.TypeURI == model.AssocSequence || a.TypeURI == model.AssocSequenceStart:
		return dmxerrors.NewValidation("id", "association "+itoa(a.ID)+" is a comp def sequence link")
	case a.TypeURI != model.AssocComposition:
		return nil
	}
	parent, ok := a.PlayerByRole(model.RoleParent)
	if !ok {
		return nil
	}
	schema, err := u.isSchemaObject(parent)
	if err != nil {
		return err
	}
	if schema {
		return dmxerrors.NewValidation("id", "association "+itoa(a.ID)+" belongs to a type definition")
	}
	return nil
}

// isSchemaObject reports whether a player is a type topic or a comp def
func (u *unitOfWork) isSchemaObject(p model.PlayerModel) (bool, error) {
	if p.IsTopic() {
		t, err := u.tx.FetchTopic(p.ID)
		if err != nil {
			return false, err
		}
		return isTypeTopic(t.TypeURI), nil
	}
	a, err := u.tx.FetchAssociation(p.ID)
	if err != nil {
		return false, err
	}
	return isCompDefAssoc(a.TypeURI), nil
}
