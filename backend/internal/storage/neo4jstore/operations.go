package neo4jstore

import (
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

const topicReturn = `
	RETURN t.id AS id, t.uri AS uri, t.type_uri AS type_uri, t.value AS value
	ORDER BY id`

// assocReturn expects the associations bound to a
const assocReturn = `
	MATCH (a)-[r:PLAYER]->(p:Object)
	WITH a, r, p ORDER BY a.id, r.pos
	RETURN a.id AS id, a.uri AS uri, a.type_uri AS type_uri, a.value AS value,
	       collect({id: p.id, role: r.role_type, assoc: p:Assoc}) AS players
	ORDER BY id`

// ============================================================================
// Topics
// ============================================================================

func (t *tx) FetchTopic(id int64) (*model.TopicModel, error) {
	records, err := t.run("fetch topic", `MATCH (t:Topic {id: $id})`+topicReturn,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, dmxerrors.NewNotFoundID("topic", id)
	}
	return topicFromRecord(records[0]), nil
}

func (t *tx) FetchTopicByURI(uri string) (*model.TopicModel, error) {
	records, err := t.run("fetch topic by uri", `MATCH (t:Topic {uri: $uri})`+topicReturn,
		map[string]interface{}{"uri": uri})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, dmxerrors.NewNotFound("topic", uri)
	}
	return topicFromRecord(records[0]), nil
}

func (t *tx) FetchTopicByValue(typeURI string, value model.SimpleValue) (*model.TopicModel, error) {
	records, err := t.run("fetch topic by value", `
		MATCH (t:Topic {type_uri: $type_uri})
		WHERE t.key = true AND t.value = $value`+topicReturn,
		map[string]interface{}{"type_uri": typeURI, "value": value.Value()})
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, dmxerrors.NewNotFound(typeURI, value.String())
	case 1:
		return topicFromRecord(records[0]), nil
	default:
		return nil, dmxerrors.NewAmbiguousLookup(typeURI, value.String(), len(records))
	}
}

func (t *tx) FetchTopicsByType(typeURI string) ([]*model.TopicModel, error) {
	records, err := t.run("fetch topics by type", `MATCH (t:Topic {type_uri: $type_uri})`+topicReturn,
		map[string]interface{}{"type_uri": typeURI})
	if err != nil {
		return nil, err
	}
	return topicsFromRecords(records), nil
}

func (t *tx) QueryTopics(term, typeURI string) ([]*model.TopicModel, error) {
	records, err := t.run("query topics", `
		MATCH (t:Topic)
		WHERE t.fulltext = true
		  AND ($type_uri = '' OR t.type_uri = $type_uri)
		  AND toLower(toString(t.value)) CONTAINS $needle`+topicReturn,
		map[string]interface{}{"type_uri": typeURI, "needle": strings.ToLower(term)})
	if err != nil {
		return nil, err
	}
	return topicsFromRecords(records), nil
}

func (t *tx) StoreTopic(topic *model.TopicModel) error {
	if topic.URI != "" {
		taken, err := t.uriTaken(topic.URI, model.UnassignedID)
		if err != nil {
			return err
		}
		if taken {
			return dmxerrors.NewValidation("uri", "URI "+topic.URI+" is not unique")
		}
	}
	id, err := t.nextID()
	if err != nil {
		return err
	}
	_, err = t.run("store topic", `
		CREATE (t:Object:Topic {id: $id, uri: $uri, type_uri: $type_uri, value: $value, key: false, fulltext: false})
	`, map[string]interface{}{
		"id":       id,
		"uri":      nullable(topic.URI),
		"type_uri": topic.TypeURI,
		"value":    topic.Value.Value(),
	})
	if err != nil {
		return err
	}
	topic.ID = id
	return nil
}

func (t *tx) StoreTopicURI(id int64, uri string) error {
	if uri != "" {
		taken, err := t.uriTaken(uri, id)
		if err != nil {
			return err
		}
		if taken {
			return dmxerrors.NewValidation("uri", "URI "+uri+" is not unique")
		}
	}
	records, err := t.run("store topic uri", `
		MATCH (t:Topic {id: $id})
		SET t.uri = $uri
		RETURN t.id AS id
	`, map[string]interface{}{"id": id, "uri": nullable(uri)})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return dmxerrors.NewNotFoundID("topic", id)
	}
	return nil
}

func (t *tx) StoreTopicValue(id int64, value model.SimpleValue, modes model.IndexModes) error {
	records, err := t.run("store topic value", `
		MATCH (t:Topic {id: $id})
		SET t.value = $value, t.key = $key, t.fulltext = $fulltext
		RETURN t.id AS id
	`, map[string]interface{}{
		"id":       id,
		"value":    value.Value(),
		"key":      modes.HasKey(),
		"fulltext": modes.HasFulltext(),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return dmxerrors.NewNotFoundID("topic", id)
	}
	return nil
}

func (t *tx) DeleteTopic(id int64) error {
	if err := t.checkDetached(id, "topic"); err != nil {
		return err
	}
	_, err := t.run("delete topic", `MATCH (t:Topic {id: $id}) DELETE t`,
		map[string]interface{}{"id": id})
	return err
}

// ============================================================================
// Associations
// ============================================================================

func (t *tx) FetchAssociation(id int64) (*model.AssociationModel, error) {
	records, err := t.run("fetch association", `MATCH (a:Assoc {id: $id})`+assocReturn,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, dmxerrors.NewNotFoundID("association", id)
	}
	return assocFromRecord(records[0]), nil
}

func (t *tx) FetchAssociationByURI(uri string) (*model.AssociationModel, error) {
	records, err := t.run("fetch association by uri", `MATCH (a:Assoc {uri: $uri})`+assocReturn,
		map[string]interface{}{"uri": uri})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, dmxerrors.NewNotFound("association", uri)
	}
	return assocFromRecord(records[0]), nil
}

func (t *tx) FetchAssociationsByType(typeURI string) ([]*model.AssociationModel, error) {
	records, err := t.run("fetch associations by type", `MATCH (a:Assoc {type_uri: $type_uri})`+assocReturn,
		map[string]interface{}{"type_uri": typeURI})
	if err != nil {
		return nil, err
	}
	return assocsFromRecords(records), nil
}

func (t *tx) StoreAssociation(assoc *model.AssociationModel) error {
	if err := t.checkPlayers(assoc.Player1, assoc.Player2); err != nil {
		return err
	}
	if assoc.URI != "" {
		taken, err := t.uriTaken(assoc.URI, model.UnassignedID)
		if err != nil {
			return err
		}
		if taken {
			return dmxerrors.NewValidation("uri", "URI "+assoc.URI+" is not unique")
		}
	}
	id, err := t.nextID()
	if err != nil {
		return err
	}
	_, err = t.run("store association", `
		MATCH (p1:Object {id: $p1}), (p2:Object {id: $p2})
		CREATE (a:Object:Assoc {id: $id, uri: $uri, type_uri: $type_uri, value: $value})
		CREATE (a)-[:PLAYER {role_type: $r1, pos: 1}]->(p1)
		CREATE (a)-[:PLAYER {role_type: $r2, pos: 2}]->(p2)
	`, map[string]interface{}{
		"id":       id,
		"uri":      nullable(assoc.URI),
		"type_uri": assoc.TypeURI,
		"value":    assoc.Value.Value(),
		"p1":       assoc.Player1.ID,
		"r1":       assoc.Player1.RoleTypeURI,
		"p2":       assoc.Player2.ID,
		"r2":       assoc.Player2.RoleTypeURI,
	})
	if err != nil {
		return err
	}
	assoc.ID = id
	return nil
}

func (t *tx) StoreAssociationValue(id int64, value model.SimpleValue) error {
	records, err := t.run("store association value", `
		MATCH (a:Assoc {id: $id})
		SET a.value = $value
		RETURN a.id AS id
	`, map[string]interface{}{"id": id, "value": value.Value()})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return dmxerrors.NewNotFoundID("association", id)
	}
	return nil
}

func (t *tx) DeleteAssociation(id int64) error {
	if err := t.checkDetached(id, "association"); err != nil {
		return err
	}
	_, err := t.run("delete association", `MATCH (a:Assoc {id: $id}) DETACH DELETE a`,
		map[string]interface{}{"id": id})
	return err
}

// ============================================================================
// Traversal
// ============================================================================

func (t *tx) FetchObjectKind(id int64) (model.ObjectKind, error) {
	record, err := t.fetchObject(id)
	if err != nil {
		return 0, err
	}
	if getBoolFromRecord(record, "assoc") {
		return model.KindAssociation, nil
	}
	return model.KindTopic, nil
}

func (t *tx) FetchObjectTypeURI(id int64) (string, error) {
	record, err := t.fetchObject(id)
	if err != nil {
		return "", err
	}
	return getStringFromRecord(record, "type_uri"), nil
}

func (t *tx) FetchAssociations(objectID int64) ([]*model.AssociationModel, error) {
	records, err := t.run("fetch incident associations", `
		MATCH (a:Assoc)-[:PLAYER]->(:Object {id: $id})
		WITH DISTINCT a`+assocReturn,
		map[string]interface{}{"id": objectID})
	if err != nil {
		return nil, err
	}
	return assocsFromRecords(records), nil
}

func (t *tx) FetchRelatedTopics(objectID int64, filter model.RelatedFilter) ([]*model.RelatedTopicModel, error) {
	assocs, err := t.fetchRelating(objectID, filter, "Topic")
	if err != nil {
		return nil, err
	}
	ids := otherIDs(assocs, objectID, model.KindTopic)
	if len(ids) == 0 {
		return nil, nil
	}
	records, err := t.run("fetch related topics", `
		MATCH (t:Topic) WHERE t.id IN $ids`+topicReturn,
		map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	topics := make(map[int64]*model.TopicModel, len(records))
	for _, rec := range records {
		topic := topicFromRecord(rec)
		topics[topic.ID] = topic
	}

	var out []*model.RelatedTopicModel
	for _, a := range assocs {
		for _, other := range others(a, objectID) {
			topic, ok := topics[other.ID]
			if !ok || other.Kind != model.KindTopic {
				continue
			}
			if !filter.Matches(a, objectID, topic.TypeURI) {
				continue
			}
			out = append(out, &model.RelatedTopicModel{TopicModel: *topic.Clone(), RelatingAssoc: a})
			break
		}
	}
	return out, nil
}

func (t *tx) FetchRelatedAssociations(objectID int64, filter model.RelatedFilter) ([]*model.RelatedAssociationModel, error) {
	assocs, err := t.fetchRelating(objectID, filter, "Assoc")
	if err != nil {
		return nil, err
	}
	ids := otherIDs(assocs, objectID, model.KindAssociation)
	if len(ids) == 0 {
		return nil, nil
	}
	records, err := t.run("fetch related associations", `
		MATCH (a:Assoc) WHERE a.id IN $ids`+assocReturn,
		map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	related := make(map[int64]*model.AssociationModel, len(records))
	for _, rec := range records {
		a := assocFromRecord(rec)
		related[a.ID] = a
	}

	var out []*model.RelatedAssociationModel
	for _, a := range assocs {
		for _, other := range others(a, objectID) {
			r, ok := related[other.ID]
			if !ok || other.Kind != model.KindAssociation {
				continue
			}
			if !filter.Matches(a, objectID, r.TypeURI) {
				continue
			}
			out = append(out, &model.RelatedAssociationModel{AssociationModel: *r.Clone(), RelatingAssoc: a})
			break
		}
	}
	return out, nil
}

// relatingQuery selects the associations connecting an object to a player with
// the given label. Unset filter fields match anything.
func relatingQuery(otherLabel string) string {
	return `
		MATCH (a:Assoc)-[mine:PLAYER]->(:Object {id: $id})
		WHERE ($assoc_type IS NULL OR a.type_uri = $assoc_type)
		  AND ($my_role IS NULL OR mine.role_type = $my_role)
		MATCH (a)-[theirs:PLAYER]->(o:` + otherLabel + `)
		WHERE theirs <> mine
		  AND ($others_role IS NULL OR theirs.role_type = $others_role)
		  AND ($others_type IS NULL OR o.type_uri = $others_type)
		WITH DISTINCT a` + assocReturn
}

func relatingParams(objectID int64, filter model.RelatedFilter) map[string]interface{} {
	return map[string]interface{}{
		"id":          objectID,
		"assoc_type":  nullable(filter.AssocTypeURI),
		"my_role":     nullable(filter.MyRoleTypeURI),
		"others_role": nullable(filter.OthersRoleTypeURI),
		"others_type": nullable(filter.OthersTypeURI),
	}
}

// fetchRelating narrows the incident associations in the query; the caller
// still applies the filter to pick the matching player orientation.
func (t *tx) fetchRelating(objectID int64, filter model.RelatedFilter, otherLabel string) ([]*model.AssociationModel, error) {
	records, err := t.run("fetch relating associations", relatingQuery(otherLabel), relatingParams(objectID, filter))
	if err != nil {
		return nil, err
	}
	return assocsFromRecords(records), nil
}

// ============================================================================
// Checks
// ============================================================================

func (t *tx) fetchObject(id int64) (*neo4j.Record, error) {
	records, err := t.run("fetch object", `
		MATCH (o:Object {id: $id})
		RETURN o:Assoc AS assoc, o.type_uri AS type_uri
	`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, dmxerrors.NewNotFoundID("object", id)
	}
	return records[0], nil
}

// checkDetached fails unless the object exists and plays no role in any association
func (t *tx) checkDetached(id int64, what string) error {
	label := "Topic"
	if what == "association" {
		label = "Assoc"
	}
	records, err := t.run("check incident", `
		MATCH (o:`+label+` {id: $id})
		OPTIONAL MATCH (o)<-[r:PLAYER]-()
		RETURN o.id AS id, count(r) AS incident
	`, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return dmxerrors.NewNotFoundID(what, id)
	}
	if getInt64FromRecord(records[0], "incident") > 0 {
		return dmxerrors.NewValidation(what, what+" still has associations")
	}
	return nil
}

// checkPlayers verifies that both players exist with the declared kind
func (t *tx) checkPlayers(players ...model.PlayerModel) error {
	ids := make([]int64, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	records, err := t.run("check players", `
		MATCH (o:Object) WHERE o.id IN $ids
		RETURN o.id AS id, o:Assoc AS assoc
	`, map[string]interface{}{"ids": ids})
	if err != nil {
		return err
	}
	kinds := make(map[int64]model.ObjectKind, len(records))
	for _, rec := range records {
		kind := model.KindTopic
		if getBoolFromRecord(rec, "assoc") {
			kind = model.KindAssociation
		}
		kinds[getInt64FromRecord(rec, "id")] = kind
	}
	for _, p := range players {
		if kind, ok := kinds[p.ID]; !ok || kind != p.Kind {
			return dmxerrors.NewNotFoundID(p.Kind.String()+" player", p.ID)
		}
	}
	return nil
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

func otherIDs(assocs []*model.AssociationModel, objectID int64, kind model.ObjectKind) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range assocs {
		for _, p := range others(a, objectID) {
			if p.Kind == kind && !seen[p.ID] {
				seen[p.ID] = true
				ids = append(ids, p.ID)
			}
		}
	}
	return ids
}
