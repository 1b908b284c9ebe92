package core

import (
	"strconv"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// deleteObject deletes a topic or association depth-first: composition children
// and owned view configs first, then every incident association, then the object itself.
func (u *unitOfWork) deleteObject(id int64, visited map[int64]bool) error {
	kind, err := u.tx.FetchObjectKind(id)
	if err != nil {
		if dmxerrors.IsNotFound(err) {
			// already removed further down the same cascade
			return nil
		}
		return err
	}
	if kind == model.KindAssociation {
		return u.deleteAssociation(id, visited)
	}
	if visited[id] {
		return nil
	}
	visited[id] = true

	topic, err := u.tx.FetchTopic(id)
	if err != nil {
		return err
	}
	if err := u.deleteOwned(id, topic.TypeURI, visited); err != nil {
		return err
	}
	if err := u.deleteIncident(id, visited); err != nil {
		return err
	}
	if err := u.tx.DeleteTopic(id); err != nil {
		return err
	}
	u.deleted[model.KindTopic]++
	u.directives.add(DirectiveDeleteTopic, id, topic.URI, topic.TypeURI)
	u.log.Debug("Topic deleted", zap.Int64("topic_id", id), zap.String("type_uri", topic.TypeURI))
	return nil
}

// deleteAssociation deletes an association with its composition children and
// everything attached to it. Its players survive.
func (u *unitOfWork) deleteAssociation(id int64, visited map[int64]bool) error {
	if visited[id] {
		return nil
	}
	visited[id] = true
	assoc, err := u.tx.FetchAssociation(id)
	if err != nil {
		if dmxerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := u.deleteOwned(id, assoc.TypeURI, visited); err != nil {
		return err
	}
	if err := u.deleteIncident(id, visited); err != nil {
		return err
	}
	if err := u.tx.DeleteAssociation(id); err != nil {
		return err
	}
	u.deleted[model.KindAssociation]++
	u.directives.add(DirectiveDeleteAssoc, id, assoc.URI, assoc.TypeURI)
	return nil
}

// deleteOwned deletes the composition children of an object and its view config
func (u *unitOfWork) deleteOwned(id int64, typeURI string, visited map[int64]bool) error {
	typ, err := u.fetchType(typeURI)
	switch {
	case dmxerrors.IsNotFound(err):
		typ = nil
	case err != nil:
		return err
	}

	if typ != nil && !typ.IsSimple() {
		for _, cd := range typ.CompDefs {
			if !cd.IsComposition() {
				continue
			}
			children, err := u.tx.FetchRelatedTopics(id, cd.ChildFilter())
			if err != nil {
				return err
			}
			for _, child := range children {
				if err := u.deleteObject(child.ID, visited); err != nil {
					return err
				}
			}
		}
	}

	configs, err := u.tx.FetchRelatedTopics(id, viewConfigFilter)
	if err != nil {
		return err
	}
	for _, vc := range configs {
		if err := u.deleteObject(vc.ID, visited); err != nil {
			return err
		}
	}
	return nil
}

// deleteIncident deletes every association the object still plays a role in
func (u *unitOfWork) deleteIncident(id int64, visited map[int64]bool) error {
	assocs, err := u.tx.FetchAssociations(id)
	if err != nil {
		return err
	}
	for _, a := range assocs {
		if err := u.deleteAssociation(a.ID, visited); err != nil {
			return err
		}
	}
	return nil
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
