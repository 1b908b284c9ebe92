package core

import (
	"sort"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// ============================================================================
// Fetch
// ============================================================================

// fetchChildTopics materializes the children of a stored object, following the
// type's comp defs in sequence order and recursing into composite children.
func (u *unitOfWork) fetchChildTopics(obj *model.DMXObjectModel, typ *model.TypeModel, subset []string) error {
	want := make(map[string]bool, len(subset))
	for _, uri := range subset {
		if _, ok := typ.CompDef(uri); !ok {
			return dmxerrors.NewNotFound("comp def", typ.URI+"/"+uri)
		}
		want[uri] = true
	}

	children := model.NewChildTopicsModel()
	for _, cd := range typ.CompDefs {
		if len(want) > 0 && !want[cd.URI()] {
			continue
		}
		related, err := u.fetchChildren(obj.ID, cd)
		if err != nil {
			return err
		}
		if !cd.IsMany() && len(related) > 1 {
			return dmxerrors.NewAmbiguity(obj.ID, cd.URI(), len(related))
		}

		for _, child := range related {
			if err := u.populateChild(child); err != nil {
				return err
			}
			if cd.IsMany() {
				children.Add(cd.URI(), child)
			} else {
				children.Set(cd.URI(), child)
			}
		}
	}
	obj.ChildTopics = children
	return nil
}

// fetchChildren returns the children under one comp def ordered by relating association id
func (u *unitOfWork) fetchChildren(parentID int64, cd *model.CompDefModel) ([]*model.RelatedTopicModel, error) {
	related, err := u.tx.FetchRelatedTopics(parentID, cd.ChildFilter())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(related, func(i, j int) bool {
		return related[i].RelatingAssoc.ID < related[j].RelatingAssoc.ID
	})
	return related, nil
}

// populateChild fetches the nested value of a child and of its relating association
func (u *unitOfWork) populateChild(child *model.RelatedTopicModel) error {
	childType, err := u.fetchType(child.TypeURI)
	if err != nil {
		return err
	}
	if !childType.IsSimple() {
		if err := u.fetchChildTopics(&child.DMXObjectModel, childType, nil); err != nil {
			return err
		}
	}

	assoc := child.RelatingAssoc
	if assoc == nil {
		return nil
	}
	assocType, err := u.fetchType(assoc.TypeURI)
	if err != nil {
		return err
	}
	if assocType.IsSimple() {
		return nil
	}
	return u.fetchChildTopics(&assoc.DMXObjectModel, assocType, nil)
}

// ============================================================================
// Create
// ============================================================================

// createTopic validates the whole value first, then stores the topic and its children
func (u *unitOfWork) createTopic(topic *model.TopicModel) (int64, error) {
	if topic == nil {
		return 0, dmxerrors.NewValidation("topic", "missing")
	}
	typ, err := u.fetchType(topic.TypeURI)
	if err != nil {
		return 0, err
	}
	if typ.TypeURI != model.TopicType {
		return 0, dmxerrors.NewValidation("typeUri", topic.TypeURI+" is not a topic type")
	}
	if topic.IsStored() {
		return 0, dmxerrors.NewValidation("id", "topic is already stored")
	}
	if typ.IsSimple() {
		if err := checkDataType("value", typ.DataTypeURI, topic.Value); err != nil {
			return 0, err
		}
	}
	if err := u.validateChildren(model.UnassignedID, topic.ChildTopics, typ, "children", false); err != nil {
		return 0, err
	}

	id, err := u.storeTopicDeep(&topic.DMXObjectModel, typ)
	if err != nil {
		return 0, err
	}
	u.log.Info("Topic created",
		zap.Int64("topic_id", id),
		zap.String("type_uri", typ.URI),
	)
	return id, nil
}

// storeTopicDeep stores a validated by-value topic and everything below it
func (u *unitOfWork) storeTopicDeep(obj *model.DMXObjectModel, typ *model.TypeModel) (int64, error) {
	t := model.NewTopicModel(typ.URI, obj.Value)
	t.URI = obj.URI
	if !typ.IsSimple() {
		t.Value = model.SimpleValue{}
	}
	if err := u.tx.StoreTopic(t); err != nil {
		return 0, err
	}
	u.created[model.KindTopic]++
	obj.ID = t.ID
	u.directives.add(DirectiveUpdateTopic, t.ID, t.URI, typ.URI)

	if typ.IsSimple() {
		if len(typ.IndexModes) > 0 {
			if err := u.tx.StoreTopicValue(t.ID, t.Value, typ.IndexModes); err != nil {
				return 0, err
			}
		}
		return t.ID, nil
	}

	if err := u.createChildren(t.ID, obj.ChildTopics, typ); err != nil {
		return 0, err
	}
	return t.ID, u.refreshLabel(t.ID, model.KindTopic, typ)
}

// createChildren attaches every entry of a validated child model to a freshly stored parent
func (u *unitOfWork) createChildren(parentID int64, children *model.ChildTopicsModel, typ *model.TypeModel) error {
	for _, key := range children.Keys() {
		cd, _ := typ.CompDef(key)
		for _, e := range children.TopicsOrNil(key) {
			if e.IsDeletionRef() {
				continue
			}
			if _, err := u.attachChild(parentID, cd, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// attachChild creates (or resolves) the child of one entry and the instance association to it
func (u *unitOfWork) attachChild(parentID int64, cd *model.CompDefModel, e *model.RelatedTopicModel) (int64, error) {
	var childID int64
	if e.IsReference() {
		t, err := u.resolveRef(e, cd, cd.URI())
		if err != nil {
			return 0, err
		}
		childID = t.ID
	} else {
		childType, err := u.fetchType(cd.ChildTypeURI)
		if err != nil {
			return 0, err
		}
		if childID, err = u.storeTopicDeep(&e.DMXObjectModel, childType); err != nil {
			return 0, err
		}
	}

	parent, err := u.playerFor(parentID, model.RoleParent)
	if err != nil {
		return 0, err
	}
	assoc, err := u.storeAssocModel(model.NewAssociationModel(cd.InstanceLevelAssocTypeURI(),
		parent,
		model.NewTopicPlayer(childID, model.RoleChild),
	))
	if err != nil {
		return 0, err
	}
	u.directives.add(DirectiveUpdateAssoc, assoc.ID, "", assoc.TypeURI)
	return childID, nil
}

// playerFor builds a player for a stored object of either kind
func (u *unitOfWork) playerFor(id int64, role string) (model.PlayerModel, error) {
	kind, err := u.tx.FetchObjectKind(id)
	if err != nil {
		return model.PlayerModel{}, err
	}
	if kind == model.KindAssociation {
		return model.NewAssocPlayer(id, role), nil
	}
	return model.NewTopicPlayer(id, role), nil
}

// ============================================================================
// Update
// ============================================================================

// updateTopic validates the new value and applies it to the stored topic
func (u *unitOfWork) updateTopic(topic *model.TopicModel) error {
	if topic == nil || !topic.IsStored() {
		return dmxerrors.NewValidation("id", "update needs a stored topic")
	}
	stored, err := u.tx.FetchTopic(topic.ID)
	if err != nil {
		return err
	}
	if topic.TypeURI != "" && topic.TypeURI != stored.TypeURI {
		return dmxerrors.NewValidation("typeUri", "the type of topic cannot change")
	}
	if err := u.checkTopicUpdatable(stored, topic); err != nil {
		return err
	}
	typ, err := u.fetchType(stored.TypeURI)
	if err != nil {
		return err
	}
	if typ.IsSimple() {
		if err := checkDataType("value", typ.DataTypeURI, topic.Value); err != nil {
			return err
		}
	}
	if err := u.validateChildren(stored.ID, topic.ChildTopics, typ, "children", true); err != nil {
		return err
	}

	if topic.URI != "" && topic.URI != stored.URI {
		if err := u.tx.StoreTopicURI(stored.ID, topic.URI); err != nil {
			return err
		}
	}
	if err := u.updateObject(stored.ID, model.KindTopic, stored.Value, &topic.DMXObjectModel, typ); err != nil {
		return err
	}
	if isTypeTopic(stored.TypeURI) {
		// the type name is part of the cached type
		u.markDirty(stored.URI)
	}
	u.directives.add(DirectiveUpdateTopic, stored.ID, topic.URI, stored.TypeURI)
	u.log.Info("Topic updated",
		zap.Int64("topic_id", stored.ID),
		zap.String("type_uri", stored.TypeURI),
	)
	return nil
}

// updateObject applies a validated value to a stored topic or association
func (u *unitOfWork) updateObject(id int64, kind model.ObjectKind, oldValue model.SimpleValue, obj *model.DMXObjectModel, typ *model.TypeModel) error {
	if typ.IsSimple() {
		if obj.Value.Equal(oldValue) {
			return nil
		}
		return u.storeValue(id, kind, obj.Value, typ)
	}
	if obj.ChildTopics.Len() == 0 {
		return nil
	}
	if err := u.updateChildren(id, obj.ChildTopics, typ); err != nil {
		return err
	}
	return u.refreshLabel(id, kind, typ)
}

func (u *unitOfWork) updateChildren(parentID int64, children *model.ChildTopicsModel, typ *model.TypeModel) error {
	for _, key := range children.Keys() {
		cd, _ := typ.CompDef(key)
		existing, err := u.fetchChildren(parentID, cd)
		if err != nil {
			return err
		}
		entries := children.TopicsOrNil(key)
		if cd.IsMany() {
			err = u.updateMany(parentID, cd, existing, entries, children.IsReplace(key))
		} else {
			if len(existing) > 1 {
				return dmxerrors.NewAmbiguity(parentID, cd.URI(), len(existing))
			}
			var current *model.RelatedTopicModel
			if len(existing) == 1 {
				current = existing[0]
			}
			var next *model.RelatedTopicModel
			if len(entries) == 1 {
				next = entries[0]
			}
			err = u.updateOne(parentID, cd, current, next)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// updateOne applies the single-cardinality assignment for one comp def
func (u *unitOfWork) updateOne(parentID int64, cd *model.CompDefModel, current, next *model.RelatedTopicModel) error {
	if next == nil {
		return nil
	}
	switch {
	case next.IsDeletionRef():
		if current == nil || current.ID != next.ID {
			return dmxerrors.NewNotFound("child topic", cd.URI()+"/"+itoa(next.ID))
		}
		return u.detachChild(cd, current)

	case next.IsReference():
		target, err := u.resolveRef(next, cd, cd.URI())
		if err != nil {
			return err
		}
		if current != nil && current.ID == target.ID {
			return nil
		}
		if current != nil {
			if err := u.detachChild(cd, current); err != nil {
				return err
			}
		}
		_, err = u.attachChild(parentID, cd, &model.RelatedTopicModel{
			TopicModel: model.TopicModel{DMXObjectModel: model.DMXObjectModel{ID: target.ID}},
			Ref:        model.RefByID,
		})
		return err
	}

	if current == nil {
		if next.IsStored() {
			return dmxerrors.NewNotFound("child topic", cd.URI()+"/"+itoa(next.ID))
		}
		_, err := u.attachChild(parentID, cd, next)
		return err
	}
	if next.IsStored() && next.ID != current.ID {
		return dmxerrors.NewValidation(cd.URI(), "topic "+itoa(next.ID)+" is not the current child")
	}
	return u.updateChildInPlace(parentID, cd, current, next)
}

// updateChildInPlace updates an existing child by value. A changed simple value of an
// aggregated child is not written through; a new child is attached instead.
func (u *unitOfWork) updateChildInPlace(parentID int64, cd *model.CompDefModel, current, next *model.RelatedTopicModel) error {
	childType, err := u.fetchType(cd.ChildTypeURI)
	if err != nil {
		return err
	}
	if childType.IsSimple() {
		if current.Value.Equal(next.Value) {
			return nil
		}
		if !cd.IsComposition() {
			if err := u.detachChild(cd, current); err != nil {
				return err
			}
			fresh := &model.RelatedTopicModel{TopicModel: *model.NewTopicModel(cd.ChildTypeURI, next.Value)}
			_, err := u.attachChild(parentID, cd, fresh)
			return err
		}
	}
	if err := u.updateObject(current.ID, model.KindTopic, current.Value, &next.DMXObjectModel, childType); err != nil {
		return err
	}
	u.directives.add(DirectiveUpdateTopic, current.ID, current.URI, current.TypeURI)
	return nil
}

// updateMany reconciles the children of a many-cardinality comp def. Unchanged
// children keep their associations.
func (u *unitOfWork) updateMany(parentID int64, cd *model.CompDefModel, existing, entries []*model.RelatedTopicModel, replace bool) error {
	byID := make(map[int64]*model.RelatedTopicModel, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
	}
	keep := make(map[int64]bool, len(existing))

	childType, err := u.fetchType(cd.ChildTypeURI)
	if err != nil {
		return err
	}

	for _, e := range entries {
		switch {
		case e.IsDeletionRef():
			current, ok := byID[e.ID]
			if !ok {
				return dmxerrors.NewNotFound("child topic", cd.URI()+"/"+itoa(e.ID))
			}
			if err := u.detachChild(cd, current); err != nil {
				return err
			}
			delete(byID, e.ID)

		case e.IsReference():
			target, err := u.resolveRef(e, cd, cd.URI())
			if err != nil {
				return err
			}
			keep[target.ID] = true
			if _, ok := byID[target.ID]; ok {
				continue
			}
			_, err = u.attachChild(parentID, cd, &model.RelatedTopicModel{
				TopicModel: model.TopicModel{DMXObjectModel: model.DMXObjectModel{ID: target.ID}},
				Ref:        model.RefByID,
			})
			if err != nil {
				return err
			}
			byID[target.ID] = nil

		case e.IsStored():
			current, ok := byID[e.ID]
			if !ok || current == nil {
				return dmxerrors.NewNotFound("child topic", cd.URI()+"/"+itoa(e.ID))
			}
			keep[e.ID] = true
			if err := u.updateChildInPlace(parentID, cd, current, e); err != nil {
				return err
			}

		default:
			if match := matchSimple(childType, byID, keep, e); match != nil {
				keep[match.ID] = true
				continue
			}
			id, err := u.attachChild(parentID, cd, e)
			if err != nil {
				return err
			}
			keep[id] = true
			byID[id] = nil
		}
	}

	if !replace {
		return nil
	}
	for _, current := range existing {
		if _, still := byID[current.ID]; !still || keep[current.ID] {
			continue
		}
		if err := u.detachChild(cd, current); err != nil {
			return err
		}
	}
	return nil
}

// matchSimple finds an existing, not yet claimed simple child with the entry's value
func matchSimple(childType *model.TypeModel, byID map[int64]*model.RelatedTopicModel, keep map[int64]bool, e *model.RelatedTopicModel) *model.RelatedTopicModel {
	if !childType.IsSimple() {
		return nil
	}
	var best *model.RelatedTopicModel
	for id, current := range byID {
		if current == nil || keep[id] || !current.Value.Equal(e.Value) {
			continue
		}
		if best == nil || current.ID < best.ID {
			best = current
		}
	}
	return best
}

// detachChild removes the instance association; a composition child is deleted with it
func (u *unitOfWork) detachChild(cd *model.CompDefModel, child *model.RelatedTopicModel) error {
	visited := make(map[int64]bool)
	if cd.IsComposition() {
		return u.deleteObject(child.ID, visited)
	}
	return u.deleteAssociation(child.RelatingAssoc.ID, visited)
}

// ============================================================================
// Values and labels
// ============================================================================

func (u *unitOfWork) storeValue(id int64, kind model.ObjectKind, v model.SimpleValue, typ *model.TypeModel) error {
	if kind == model.KindAssociation {
		return u.tx.StoreAssociationValue(id, v)
	}
	return u.tx.StoreTopicValue(id, v, typ.IndexModes)
}

// refreshLabel sets a composite object's value to the label of its first present child
func (u *unitOfWork) refreshLabel(id int64, kind model.ObjectKind, typ *model.TypeModel) error {
	label := model.SimpleValue{}
	for _, cd := range typ.CompDefs {
		children, err := u.fetchChildren(id, cd)
		if err != nil {
			return err
		}
		if len(children) > 0 && !children[0].Value.IsEmpty() {
			label = model.NewSimpleValue(children[0].Value.String())
			break
		}
	}
	return u.storeValue(id, kind, label, typ)
}

// ============================================================================
// Associations
// ============================================================================

func (u *unitOfWork) createAssociation(assoc *model.AssociationModel) (int64, error) {
	if assoc == nil {
		return 0, dmxerrors.NewValidation("association", "missing")
	}
	if assoc.IsStored() {
		return 0, dmxerrors.NewValidation("id", "association is already stored")
	}
	typ, err := u.fetchType(assoc.TypeURI)
	if err != nil {
		return 0, err
	}
	if !typ.IsAssocType() {
		return 0, dmxerrors.NewValidation("typeUri", assoc.TypeURI+" is not an association type")
	}

	players := []*model.PlayerModel{&assoc.Player1, &assoc.Player2}
	for i, p := range players {
		field := "player" + itoa(int64(i+1))
		if err := u.validateRoleType(field+".roleTypeUri", p.RoleTypeURI); err != nil {
			return 0, err
		}
		if err := u.resolvePlayer(field, p); err != nil {
			return 0, err
		}
	}
	if typ.IsSimple() {
		if err := checkDataType("value", typ.DataTypeURI, assoc.Value); err != nil {
			return 0, err
		}
	}
	if err := u.validateChildren(model.UnassignedID, assoc.ChildTopics, typ, "children", false); err != nil {
		return 0, err
	}

	a := model.NewAssociationModel(typ.URI, assoc.Player1, assoc.Player2)
	a.URI = assoc.URI
	if typ.IsSimple() {
		a.Value = assoc.Value
	}
	if _, err := u.storeAssocModel(a); err != nil {
		return 0, err
	}
	assoc.ID = a.ID
	if !typ.IsSimple() {
		if err := u.createChildren(a.ID, assoc.ChildTopics, typ); err != nil {
			return 0, err
		}
		if err := u.refreshLabel(a.ID, model.KindAssociation, typ); err != nil {
			return 0, err
		}
	}

	u.directives.add(DirectiveUpdateAssoc, a.ID, a.URI, a.TypeURI)
	u.log.Info("Association created",
		zap.Int64("assoc_id", a.ID),
		zap.String("type_uri", a.TypeURI),
		zap.Int64("player1", a.Player1.ID),
		zap.Int64("player2", a.Player2.ID),
	)
	return a.ID, nil
}

// resolvePlayer turns a by-URI topic player into an id and checks the player exists
func (u *unitOfWork) resolvePlayer(field string, p *model.PlayerModel) error {
	if !p.HasID() {
		if p.URI == "" || p.Kind == model.KindAssociation {
			return dmxerrors.NewValidation(field, "player needs an id or a topic URI")
		}
		t, err := u.tx.FetchTopicByURI(p.URI)
		if err != nil {
			return err
		}
		p.ID, p.Kind = t.ID, model.KindTopic
		return nil
	}
	kind, err := u.tx.FetchObjectKind(p.ID)
	if err != nil {
		return err
	}
	if p.Kind == 0 {
		p.Kind = kind
	}
	if kind != p.Kind {
		return dmxerrors.NewValidation(field, "player "+itoa(p.ID)+" is a "+kind.String())
	}
	return nil
}

// updateAssociation updates the URI and value of a stored association. Players are fixed.
func (u *unitOfWork) updateAssociation(assoc *model.AssociationModel) error {
	if assoc == nil || !assoc.IsStored() {
		return dmxerrors.NewValidation("id", "update needs a stored association")
	}
	stored, err := u.tx.FetchAssociation(assoc.ID)
	if err != nil {
		return err
	}
	if assoc.TypeURI != "" && assoc.TypeURI != stored.TypeURI {
		return dmxerrors.NewValidation("typeUri", "the type of an association cannot change")
	}
	if err := u.checkAssocMutable(stored); err != nil {
		return err
	}
	typ, err := u.fetchType(stored.TypeURI)
	if err != nil {
		return err
	}
	if typ.IsSimple() {
		if err := checkDataType("value", typ.DataTypeURI, assoc.Value); err != nil {
			return err
		}
	}
	if err := u.validateChildren(stored.ID, assoc.ChildTopics, typ, "children", true); err != nil {
		return err
	}
	if assoc.URI != "" && assoc.URI != stored.URI {
		return dmxerrors.NewValidation("uri", "association URIs are fixed at creation")
	}
	if err := u.updateObject(stored.ID, model.KindAssociation, stored.Value, &assoc.DMXObjectModel, typ); err != nil {
		return err
	}
	u.directives.add(DirectiveUpdateAssoc, stored.ID, stored.URI, stored.TypeURI)
	return nil
}
