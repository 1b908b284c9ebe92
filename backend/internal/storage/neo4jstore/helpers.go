package neo4jstore

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"dmx-platform/backend/internal/model"
)

// ============================================================================
// Record decoding
// ============================================================================

func topicFromRecord(record *neo4j.Record) *model.TopicModel {
	value, _ := record.Get("value")
	t := model.NewTopicModel(getStringFromRecord(record, "type_uri"), value)
	t.ID = getInt64FromRecord(record, "id")
	t.URI = getStringFromRecord(record, "uri")
	return t
}

func topicsFromRecords(records []*neo4j.Record) []*model.TopicModel {
	out := make([]*model.TopicModel, 0, len(records))
	for _, rec := range records {
		out = append(out, topicFromRecord(rec))
	}
	return out
}

func assocFromRecord(record *neo4j.Record) *model.AssociationModel {
	players := getPlayersFromRecord(record, "players")
	var p1, p2 model.PlayerModel
	if len(players) > 0 {
		p1 = players[0]
	}
	if len(players) > 1 {
		p2 = players[1]
	}
	a := model.NewAssociationModel(getStringFromRecord(record, "type_uri"), p1, p2)
	a.ID = getInt64FromRecord(record, "id")
	a.URI = getStringFromRecord(record, "uri")
	if value, ok := record.Get("value"); ok {
		a.Value = model.NewSimpleValue(value)
	}
	return a
}

func assocsFromRecords(records []*neo4j.Record) []*model.AssociationModel {
	out := make([]*model.AssociationModel, 0, len(records))
	for _, rec := range records {
		out = append(out, assocFromRecord(rec))
	}
	return out
}

// getPlayersFromRecord decodes the collected {id, role, assoc} maps
func getPlayersFromRecord(record *neo4j.Record, key string) []model.PlayerModel {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	list, ok := val.([]interface{})
	if !ok {
		return nil
	}
	players := make([]model.PlayerModel, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id := getInt64FromMap(m, "id")
		role := getStringFromMap(m, "role", "")
		if assoc, _ := m["assoc"].(bool); assoc {
			players = append(players, model.NewAssocPlayer(id, role))
		} else {
			players = append(players, model.NewTopicPlayer(id, role))
		}
	}
	return players
}

// nullable maps the empty string to a missing property
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getInt64FromMap(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
