package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

type sentinel struct {
	uri     string
	typeURI string
	name    string
}

// The meta type is typed by itself; topic type and association type are meta type instances.
// All other sentinels are ordinary instances of the types above them.
var (
	metaSentinels = []sentinel{
		{model.MetaType, model.MetaType, "Meta Type"},
		{model.TopicType, model.MetaType, "Topic Type"},
		{model.AssocType, model.MetaType, "Association Type"},
	}
	topicTypeSentinels = []sentinel{
		{model.DataTypeType, model.TopicType, "Data Type"},
		{model.RoleTypeType, model.TopicType, "Role Type"},
		{model.CardinalityType, model.TopicType, "Cardinality"},
		{model.IndexModeType, model.TopicType, "Index Mode"},
		{model.ViewConfigType, model.TopicType, "View Configuration"},
	}
	assocTypeSentinels = []sentinel{
		{model.AssocGeneric, model.AssocType, "Association"},
		{model.AssocComposition, model.AssocType, "Composition"},
		{model.AssocAggregation, model.AssocType, "Aggregation"},
		{model.AssocCompositionDef, model.AssocType, "Composition Definition"},
		{model.AssocAggregationDef, model.AssocType, "Aggregation Definition"},
		{model.AssocSequence, model.AssocType, "Sequence"},
		{model.AssocSequenceStart, model.AssocType, "Sequence Start"},
	}
	instanceSentinels = []sentinel{
		{model.DataTypeText, model.DataTypeType, "Text"},
		{model.DataTypeHTML, model.DataTypeType, "HTML"},
		{model.DataTypeNumber, model.DataTypeType, "Number"},
		{model.DataTypeBoolean, model.DataTypeType, "Boolean"},
		{model.DataTypeValue, model.DataTypeType, "Value"},
		{model.DataTypeEntity, model.DataTypeType, "Entity"},
		{model.CardinalityOne, model.CardinalityType, "One"},
		{model.CardinalityMany, model.CardinalityType, "Many"},
		{string(model.IndexKey), model.IndexModeType, "Key"},
		{string(model.IndexFulltext), model.IndexModeType, "Fulltext"},
		{string(model.IndexFulltextKey), model.IndexModeType, "Fulltext Key"},
		{model.RoleDefault, model.RoleTypeType, "Default"},
		{model.RoleParent, model.RoleTypeType, "Parent"},
		{model.RoleChild, model.RoleTypeType, "Child"},
		{model.RoleParentType, model.RoleTypeType, "Parent Type"},
		{model.RoleChildType, model.RoleTypeType, "Child Type"},
		{model.RoleType, model.RoleTypeType, "Type"},
		{model.RoleFirst, model.RoleTypeType, "First"},
		{model.RolePredecessor, model.RoleTypeType, "Predecessor"},
		{model.RoleSuccessor, model.RoleTypeType, "Successor"},
		{model.RoleParentCardinality, model.RoleTypeType, "Parent Cardinality"},
		{model.RoleChildCardinality, model.RoleTypeType, "Child Cardinality"},
		{model.RoleCustomAssocType, model.RoleTypeType, "Custom Association Type"},
	}
)

func isCoreURI(uri string) bool {
	return strings.HasPrefix(uri, "dmx.core.")
}

// Bootstrap creates the sentinel types once. It is a no-op on an initialized store.
func (s *Service) Bootstrap(ctx context.Context) error {
	_, err := s.run(ctx, "bootstrap", func(u *unitOfWork) error {
		if _, err := u.tx.FetchTopicByURI(model.MetaType); err == nil {
			u.log.Debug("Store already bootstrapped")
			return nil
		} else if !dmxerrors.IsNotFound(err) {
			return err
		}
		return u.bootstrap()
	})
	if err == nil {
		s.cache.Clear()
	}
	return err
}

func (u *unitOfWork) bootstrap() error {
	groups := [][]sentinel{metaSentinels, topicTypeSentinels, assocTypeSentinels, instanceSentinels}

	ids := make(map[string]int64)
	for _, group := range groups {
		for _, st := range group {
			t := model.NewTopicModel(st.typeURI, st.name)
			t.URI = st.uri
			if err := u.tx.StoreTopic(t); err != nil {
				return err
			}
			u.created[model.KindTopic]++
			ids[st.uri] = t.ID
		}
	}

	// sentinel types are simple text types
	textID := ids[model.DataTypeText]
	for _, group := range [][]sentinel{metaSentinels, topicTypeSentinels, assocTypeSentinels} {
		for _, st := range group {
			if err := u.storeAssoc(model.AssocComposition,
				model.NewTopicPlayer(ids[st.uri], model.RoleParent),
				model.NewTopicPlayer(textID, model.RoleChild),
			); err != nil {
				return err
			}
		}
	}

	u.log.Info("Store bootstrapped", zap.Int("sentinels", len(ids)))
	return nil
}
