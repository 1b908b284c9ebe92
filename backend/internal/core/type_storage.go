package core

import (
	"sort"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

var (
	dataTypeFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocComposition,
		MyRoleTypeURI:     model.RoleParent,
		OthersRoleTypeURI: model.RoleChild,
		OthersTypeURI:     model.DataTypeType,
	}
	indexModeFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocComposition,
		MyRoleTypeURI:     model.RoleParent,
		OthersRoleTypeURI: model.RoleChild,
		OthersTypeURI:     model.IndexModeType,
	}
	viewConfigFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocComposition,
		MyRoleTypeURI:     model.RoleParent,
		OthersRoleTypeURI: model.RoleChild,
		OthersTypeURI:     model.ViewConfigType,
	}
	parentCardinalityFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocComposition,
		MyRoleTypeURI:     model.RoleParent,
		OthersRoleTypeURI: model.RoleParentCardinality,
		OthersTypeURI:     model.CardinalityType,
	}
	childCardinalityFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocComposition,
		MyRoleTypeURI:     model.RoleParent,
		OthersRoleTypeURI: model.RoleChildCardinality,
		OthersTypeURI:     model.CardinalityType,
	}
	customAssocTypeFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocComposition,
		MyRoleTypeURI:     model.RoleParent,
		OthersRoleTypeURI: model.RoleCustomAssocType,
		OthersTypeURI:     model.AssocType,
	}
)

func isTypeTopic(typeURI string) bool {
	return typeURI == model.TopicType || typeURI == model.AssocType || typeURI == model.MetaType
}

func isCompDefAssoc(typeURI string) bool {
	return typeURI == model.AssocCompositionDef || typeURI == model.AssocAggregationDef
}

// ============================================================================
// Loading
// ============================================================================

// loadType materializes a type from the graph, bypassing the cache
func (u *unitOfWork) loadType(uri string) (*model.TypeModel, error) {
	topic, err := u.fetchTypeTopic(uri)
	if err != nil {
		return nil, err
	}

	typ := &model.TypeModel{TopicModel: *topic}

	dataType, err := u.singleRelated(topic.ID, dataTypeFilter, "data type")
	if err != nil {
		return nil, err
	}
	if dataType == nil {
		return nil, dmxerrors.NewNotFound("data type of type", uri)
	}
	typ.DataTypeURI = dataType.URI

	modes, err := u.tx.FetchRelatedTopics(topic.ID, indexModeFilter)
	if err != nil {
		return nil, err
	}
	for _, m := range modes {
		typ.IndexModes = append(typ.IndexModes, model.IndexMode(m.URI))
	}

	if typ.ViewConfig, err = u.loadViewConfig(topic.ID); err != nil {
		return nil, err
	}

	chain, err := u.walkSequence(topic.ID, uri)
	if err != nil {
		return nil, err
	}
	for _, link := range chain {
		cd, err := u.loadCompDef(link.compDef, uri)
		if err != nil {
			return nil, err
		}
		typ.CompDefs = append(typ.CompDefs, cd)
	}

	u.log.Debug("Type loaded",
		zap.String("type_uri", uri),
		zap.Int("comp_defs", len(typ.CompDefs)),
	)
	return typ, nil
}

func (u *unitOfWork) fetchTypeTopic(uri string) (*model.TopicModel, error) {
	topic, err := u.tx.FetchTopicByURI(uri)
	if err != nil {
		if dmxerrors.IsNotFound(err) {
			return nil, dmxerrors.NewNotFound("type", uri)
		}
		return nil, err
	}
	if !isTypeTopic(topic.TypeURI) {
		return nil, dmxerrors.NewNotFound("type", uri)
	}
	return topic, nil
}

func (u *unitOfWork) loadCompDef(assoc *model.AssociationModel, parentTypeURI string) (*model.CompDefModel, error) {
	cd := &model.CompDefModel{AssocID: assoc.ID, Kind: assoc.TypeURI, ParentTypeURI: parentTypeURI}

	child, ok := assoc.PlayerByRole(model.RoleChildType)
	if !ok {
		return nil, dmxerrors.NewSequenceCorruption(parentTypeURI, "comp def without child type player")
	}
	childTopic, err := u.tx.FetchTopic(child.ID)
	if err != nil {
		return nil, err
	}
	cd.ChildTypeURI = childTopic.URI

	if c, err := u.singleRelated(assoc.ID, parentCardinalityFilter, "parent cardinality"); err != nil {
		return nil, err
	} else if c != nil {
		cd.ParentCardinalityURI = c.URI
	}
	c, err := u.singleRelated(assoc.ID, childCardinalityFilter, "child cardinality")
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, dmxerrors.NewNotFound("child cardinality of comp def", cd.ChildTypeURI)
	}
	cd.ChildCardinalityURI = c.URI

	custom, err := u.singleRelated(assoc.ID, customAssocTypeFilter, "custom association type")
	if err != nil {
		return nil, err
	}
	if custom != nil {
		cd.CustomAssocTypeURI = custom.URI
	}

	if cd.ViewConfig, err = u.loadViewConfig(assoc.ID); err != nil {
		return nil, err
	}
	return cd, nil
}

func (u *unitOfWork) loadViewConfig(ownerID int64) (*model.ViewConfigModel, error) {
	t, err := u.singleRelated(ownerID, viewConfigFilter, "view config")
	if err != nil || t == nil {
		return nil, err
	}
	return model.DecodeViewConfig(t.ID, t.Value.String())
}

// singleRelated returns the only related topic matching filter, or nil
func (u *unitOfWork) singleRelated(objectID int64, filter model.RelatedFilter, what string) (*model.RelatedTopicModel, error) {
	related, err := u.tx.FetchRelatedTopics(objectID, filter)
	if err != nil {
		return nil, err
	}
	switch len(related) {
	case 0:
		return nil, nil
	case 1:
		return related[0], nil
	default:
		return nil, dmxerrors.NewAmbiguity(objectID, what, len(related))
	}
}

// compDefAssocs returns all comp def associations whose parent is the type topic, ordered by id
func (u *unitOfWork) compDefAssocs(typeID int64) ([]*model.AssociationModel, error) {
	assocs, err := u.tx.FetchAssociations(typeID)
	if err != nil {
		return nil, err
	}
	var out []*model.AssociationModel
	for _, a := range assocs {
		if !isCompDefAssoc(a.TypeURI) {
			continue
		}
		if p, ok := a.PlayerByRole(model.RoleParentType); ok && p.ID == typeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// instances returns the ids of all topics or associations of a type
func (u *unitOfWork) instances(typ *model.TypeModel) ([]int64, error) {
	var ids []int64
	if typ.IsAssocType() {
		assocs, err := u.tx.FetchAssociationsByType(typ.URI)
		if err != nil {
			return nil, err
		}
		for _, a := range assocs {
			ids = append(ids, a.ID)
		}
		return ids, nil
	}
	topics, err := u.tx.FetchTopicsByType(typ.URI)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// ============================================================================
// Creation
// ============================================================================

// createType stores a type topic and appends its comp defs
func (u *unitOfWork) createType(tm *model.TypeModel, kind string) (*model.TypeModel, error) {
	if err := u.validateType(tm); err != nil {
		return nil, err
	}
	if _, err := u.tx.FetchTopicByURI(tm.URI); err == nil {
		return nil, dmxerrors.NewValidation("uri", "type "+tm.URI+" already exists")
	} else if !dmxerrors.IsNotFound(err) {
		return nil, err
	}
	for _, cd := range tm.CompDefs {
		if cd.ParentTypeURI != "" && cd.ParentTypeURI != tm.URI {
			return nil, dmxerrors.NewValidation("compDefs", "comp def "+cd.URI()+" belongs to "+cd.ParentTypeURI)
		}
	}

	topic := model.NewTopicModel(kind, tm.Value)
	topic.URI = tm.URI
	if err := u.tx.StoreTopic(topic); err != nil {
		return nil, err
	}
	u.created[model.KindTopic]++
	u.markDirty(tm.URI)

	if err := u.linkByURI(topic.ID, tm.DataTypeURI, model.RoleChild); err != nil {
		return nil, err
	}
	for _, mode := range tm.IndexModes {
		if err := u.linkByURI(topic.ID, string(mode), model.RoleChild); err != nil {
			return nil, err
		}
	}
	if err := u.storeViewConfig(topic.ID, tm.ViewConfig); err != nil {
		return nil, err
	}

	for _, cd := range tm.CompDefs {
		cd := cd.Clone()
		cd.ParentTypeURI = tm.URI
		if err := u.addCompDef(tm.URI, cd, -1); err != nil {
			return nil, err
		}
	}

	u.log.Info("Type created",
		zap.String("type_uri", tm.URI),
		zap.String("kind", kind),
		zap.Int("comp_defs", len(tm.CompDefs)),
	)
	u.typeDirective(kind, false, topic.ID, tm.URI)
	return u.fetchType(tm.URI)
}

func (u *unitOfWork) typeDirective(kind string, deleted bool, id int64, uri string) {
	switch {
	case kind == model.AssocType && deleted:
		u.directives.add(DirectiveDeleteAssocType, id, uri, kind)
	case kind == model.AssocType:
		u.directives.add(DirectiveUpdateAssocType, id, uri, kind)
	case deleted:
		u.directives.add(DirectiveDeleteTopicType, id, uri, kind)
	default:
		u.directives.add(DirectiveUpdateTopicType, id, uri, kind)
	}
}

// linkByURI composition-links the topic with the given URI as child of ownerID
func (u *unitOfWork) linkByURI(ownerID int64, childURI, childRole string) error {
	child, err := u.tx.FetchTopicByURI(childURI)
	if err != nil {
		return err
	}
	return u.storeAssoc(model.AssocComposition,
		model.NewTopicPlayer(ownerID, model.RoleParent),
		model.NewTopicPlayer(child.ID, childRole),
	)
}

func (u *unitOfWork) linkAssocByURI(ownerAssocID int64, childURI, childRole string) error {
	child, err := u.tx.FetchTopicByURI(childURI)
	if err != nil {
		return err
	}
	return u.storeAssoc(model.AssocComposition,
		model.NewAssocPlayer(ownerAssocID, model.RoleParent),
		model.NewTopicPlayer(child.ID, childRole),
	)
}

func (u *unitOfWork) storeAssoc(typeURI string, p1, p2 model.PlayerModel) error {
	_, err := u.storeAssocModel(model.NewAssociationModel(typeURI, p1, p2))
	return err
}

func (u *unitOfWork) storeAssocModel(a *model.AssociationModel) (*model.AssociationModel, error) {
	if err := u.tx.StoreAssociation(a); err != nil {
		return nil, err
	}
	u.created[model.KindAssociation]++
	return a, nil
}

// storeViewConfig stores a view config topic owned by a type topic or comp def association
func (u *unitOfWork) storeViewConfig(ownerID int64, vc *model.ViewConfigModel) error {
	if vc.IsEmpty() {
		return nil
	}
	encoded, err := vc.Encode()
	if err != nil {
		return dmxerrors.NewValidation("viewConfig", err.Error())
	}
	topic := model.NewTopicModel(model.ViewConfigType, encoded)
	if err := u.tx.StoreTopic(topic); err != nil {
		return err
	}
	u.created[model.KindTopic]++

	kind, err := u.tx.FetchObjectKind(ownerID)
	if err != nil {
		return err
	}
	owner := model.NewTopicPlayer(ownerID, model.RoleParent)
	if kind == model.KindAssociation {
		owner = model.NewAssocPlayer(ownerID, model.RoleParent)
	}
	return u.storeAssoc(model.AssocComposition, owner, model.NewTopicPlayer(topic.ID, model.RoleChild))
}

// replaceViewConfig deletes the owner's view config topic and stores vc instead
func (u *unitOfWork) replaceViewConfig(ownerID int64, vc *model.ViewConfigModel) error {
	old, err := u.singleRelated(ownerID, viewConfigFilter, "view config")
	if err != nil {
		return err
	}
	if old != nil {
		if err := u.deleteObject(old.ID, make(map[int64]bool)); err != nil {
			return err
		}
	}
	return u.storeViewConfig(ownerID, vc)
}

// ============================================================================
// Comp defs
// ============================================================================

// addCompDef creates a comp def and splices it into the sequence at pos (negative or past the end appends)
func (u *unitOfWork) addCompDef(typeURI string, cd *model.CompDefModel, pos int) error {
	typ, err := u.fetchType(typeURI)
	if err != nil {
		return err
	}
	cd.ParentTypeURI = typeURI
	if err := u.validateCompDef(typ, cd); err != nil {
		return err
	}
	if _, exists := typ.CompDef(cd.URI()); exists {
		return dmxerrors.NewValidation("compDef", "type "+typeURI+" already has comp def "+cd.URI())
	}
	if err := u.checkCycle(typeURI, cd.ChildTypeURI); err != nil {
		return err
	}

	chain, err := u.walkSequence(typ.ID, typeURI)
	if err != nil {
		return err
	}

	childType, err := u.fetchTypeTopic(cd.ChildTypeURI)
	if err != nil {
		return err
	}
	assoc, err := u.storeAssocModel(model.NewAssociationModel(cd.Kind,
		model.NewTopicPlayer(typ.ID, model.RoleParentType),
		model.NewTopicPlayer(childType.ID, model.RoleChildType),
	))
	if err != nil {
		return err
	}
	cd.AssocID = assoc.ID

	if cd.ParentCardinalityURI == "" {
		cd.ParentCardinalityURI = model.CardinalityOne
		if !cd.IsComposition() {
			cd.ParentCardinalityURI = model.CardinalityMany
		}
	}
	if err := u.linkAssocByURI(assoc.ID, cd.ParentCardinalityURI, model.RoleParentCardinality); err != nil {
		return err
	}
	if err := u.linkAssocByURI(assoc.ID, cd.ChildCardinalityURI, model.RoleChildCardinality); err != nil {
		return err
	}
	if cd.CustomAssocTypeURI != "" {
		if err := u.linkAssocByURI(assoc.ID, cd.CustomAssocTypeURI, model.RoleCustomAssocType); err != nil {
			return err
		}
	}
	if err := u.storeViewConfig(assoc.ID, cd.ViewConfig); err != nil {
		return err
	}

	if err := u.insertIntoSequence(typ.ID, chain, assoc, pos); err != nil {
		return err
	}
	u.markDirty(typeURI)

	u.log.Info("Comp def added",
		zap.String("type_uri", typeURI),
		zap.String("comp_def_uri", cd.URI()),
		zap.Int("position", pos),
	)
	return nil
}

// removeCompDef unlinks a comp def from the sequence and deletes it. Instance
// associations are removed as well; composition children are deleted with them.
func (u *unitOfWork) removeCompDef(typeURI, compDefURI string) error {
	typ, err := u.fetchType(typeURI)
	if err != nil {
		return err
	}
	cd, ok := typ.CompDef(compDefURI)
	if !ok {
		return dmxerrors.NewNotFound("comp def", typeURI+"/"+compDefURI)
	}

	chain, err := u.walkSequence(typ.ID, typeURI)
	if err != nil {
		return err
	}
	idx := chain.indexOf(cd.AssocID)
	if idx < 0 {
		return dmxerrors.NewSequenceCorruption(typeURI, "comp def "+compDefURI+" is not in the sequence")
	}

	ids, err := u.instances(typ)
	if err != nil {
		return err
	}
	removed := 0
	for _, id := range ids {
		children, err := u.tx.FetchRelatedTopics(id, cd.ChildFilter())
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := u.detachChild(cd, child); err != nil {
				return err
			}
			removed++
		}
	}

	if err := u.removeFromSequence(typ.ID, chain, idx); err != nil {
		return err
	}
	if err := u.deleteObject(cd.AssocID, make(map[int64]bool)); err != nil {
		return err
	}
	u.markDirty(typeURI)

	u.log.Info("Comp def removed",
		zap.String("type_uri", typeURI),
		zap.String("comp_def_uri", compDefURI),
		zap.Int("instance_children_removed", removed),
	)
	return nil
}

// reorderCompDefs relinks the sequence in the given order, which must be a permutation of the current one
func (u *unitOfWork) reorderCompDefs(typeURI string, order []string) error {
	typ, err := u.fetchType(typeURI)
	if err != nil {
		return err
	}
	if len(order) != len(typ.CompDefs) {
		return dmxerrors.NewValidation("order", "expected all comp defs of "+typeURI)
	}
	seen := make(map[string]bool, len(order))
	assocIDs := make([]int64, 0, len(order))
	for _, uri := range order {
		cd, ok := typ.CompDef(uri)
		if !ok {
			return dmxerrors.NewNotFound("comp def", typeURI+"/"+uri)
		}
		if seen[uri] {
			return dmxerrors.NewValidation("order", "comp def "+uri+" listed twice")
		}
		seen[uri] = true
		assocIDs = append(assocIDs, cd.AssocID)
	}

	chain, err := u.walkSequence(typ.ID, typeURI)
	if err != nil {
		return err
	}
	if err := u.unlinkSequence(chain); err != nil {
		return err
	}
	if err := u.linkSequence(typ.ID, assocIDs); err != nil {
		return err
	}
	u.markDirty(typeURI)

	u.log.Info("Comp defs reordered",
		zap.String("type_uri", typeURI),
		zap.Strings("order", order),
	)
	return nil
}

// updateCompDef changes the cardinalities and view config of an existing comp def
func (u *unitOfWork) updateCompDef(typeURI string, cd *model.CompDefModel) error {
	typ, err := u.fetchType(typeURI)
	if err != nil {
		return err
	}
	cd.ParentTypeURI = typeURI
	existing, ok := typ.CompDef(cd.URI())
	if !ok {
		return dmxerrors.NewNotFound("comp def", typeURI+"/"+cd.URI())
	}
	if cd.Kind == "" {
		cd.Kind = existing.Kind
	}
	if err := u.validate(cd); err != nil {
		return err
	}
	if cd.Kind != existing.Kind {
		return dmxerrors.NewValidation("assocTypeUri", "the kind of comp def "+cd.URI()+" cannot change")
	}

	if existing.IsMany() && !cd.IsMany() {
		ids, err := u.instances(typ)
		if err != nil {
			return err
		}
		for _, id := range ids {
			children, err := u.tx.FetchRelatedTopics(id, existing.ChildFilter())
			if err != nil {
				return err
			}
			if len(children) > 1 {
				return dmxerrors.NewCardinalityViolation(id, cd.URI(), "instance holds more than one child")
			}
		}
	}

	if cd.ChildCardinalityURI != existing.ChildCardinalityURI {
		if err := u.relinkCardinality(existing.AssocID, childCardinalityFilter, cd.ChildCardinalityURI, model.RoleChildCardinality); err != nil {
			return err
		}
	}
	if cd.ParentCardinalityURI != "" && cd.ParentCardinalityURI != existing.ParentCardinalityURI {
		if err := u.relinkCardinality(existing.AssocID, parentCardinalityFilter, cd.ParentCardinalityURI, model.RoleParentCardinality); err != nil {
			return err
		}
	}
	if cd.ViewConfig != nil {
		if err := u.replaceViewConfig(existing.AssocID, cd.ViewConfig); err != nil {
			return err
		}
	}
	u.markDirty(typeURI)

	u.log.Info("Comp def updated",
		zap.String("type_uri", typeURI),
		zap.String("comp_def_uri", cd.URI()),
		zap.String("child_cardinality", cd.ChildCardinalityURI),
	)
	return nil
}

func (u *unitOfWork) relinkCardinality(assocID int64, filter model.RelatedFilter, cardinalityURI, role string) error {
	old, err := u.singleRelated(assocID, filter, "cardinality")
	if err != nil {
		return err
	}
	if old != nil {
		if err := u.deleteAssociation(old.RelatingAssoc.ID, make(map[int64]bool)); err != nil {
			return err
		}
	}
	return u.linkAssocByURI(assocID, cardinalityURI, role)
}

// checkCycle rejects a comp def parent -> child if parent is reachable from child
func (u *unitOfWork) checkCycle(parentURI, childURI string) error {
	path := []string{parentURI, childURI}
	if childURI == parentURI {
		return dmxerrors.NewCyclicTypeDefinition(parentURI, path)
	}

	type step struct {
		uri  string
		path []string
	}
	queue := []step{{uri: childURI, path: path}}
	visited := map[string]bool{childURI: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		typ, err := u.fetchType(cur.uri)
		if err != nil {
			return err
		}
		for _, cd := range typ.CompDefs {
			next := append(append([]string(nil), cur.path...), cd.ChildTypeURI)
			if cd.ChildTypeURI == parentURI {
				return dmxerrors.NewCyclicTypeDefinition(parentURI, next)
			}
			if !visited[cd.ChildTypeURI] {
				visited[cd.ChildTypeURI] = true
				queue = append(queue, step{uri: cd.ChildTypeURI, path: next})
			}
		}
	}
	return nil
}

// ============================================================================
// Deletion
// ============================================================================

// deleteType removes a type that has no instances and is not used as a child type
func (u *unitOfWork) deleteType(uri, kind string) error {
	typ, err := u.fetchType(uri)
	if err != nil {
		return err
	}
	if typ.TypeURI != kind {
		return dmxerrors.NewNotFound(kindName(kind), uri)
	}
	if isCoreURI(uri) {
		return dmxerrors.NewValidation("uri", "core type "+uri+" cannot be deleted")
	}

	ids, err := u.instances(typ)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return dmxerrors.NewValidation("type", "type "+uri+" still has instances")
	}

	assocs, err := u.tx.FetchAssociations(typ.ID)
	if err != nil {
		return err
	}
	for _, a := range assocs {
		if !isCompDefAssoc(a.TypeURI) {
			continue
		}
		if p, ok := a.PlayerByRole(model.RoleChildType); ok && p.ID == typ.ID {
			parent, _ := a.PlayerByRole(model.RoleParentType)
			parentTopic, err := u.tx.FetchTopic(parent.ID)
			if err != nil {
				return err
			}
			return dmxerrors.NewValidation("type", "type "+uri+" is a child type of "+parentTopic.URI)
		}
	}
	if typ.IsAssocType() {
		// types whose comp defs use this association type at instance level
		custom, err := u.tx.FetchRelatedAssociations(typ.ID, model.RelatedFilter{
			AssocTypeURI:      model.AssocComposition,
			MyRoleTypeURI:     model.RoleCustomAssocType,
			OthersRoleTypeURI: model.RoleParent,
		})
		if err != nil {
			return err
		}
		if len(custom) > 0 {
			return dmxerrors.NewValidation("type", "association type "+uri+" is used by a comp def")
		}
	}

	chain, err := u.walkSequence(typ.ID, uri)
	if err != nil {
		return err
	}
	if err := u.unlinkSequence(chain); err != nil {
		return err
	}
	for _, cd := range typ.CompDefs {
		if err := u.deleteObject(cd.AssocID, make(map[int64]bool)); err != nil {
			return err
		}
	}
	if err := u.deleteObject(typ.ID, make(map[int64]bool)); err != nil {
		return err
	}
	u.markDirty(uri)

	u.log.Info("Type deleted", zap.String("type_uri", uri))
	u.typeDirective(kind, true, typ.ID, uri)
	return nil
}

func kindName(kind string) string {
	if kind == model.AssocType {
		return "association type"
	}
	return "topic type"
}
