package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// ============================================================================
// Topics
// ============================================================================

// listTopics dispatches on the query: uri, type+value, q (fulltext) or type
func (h *Handler) listTopics(c *gin.Context) {
	ctx := c.Request.Context()
	typeURI := c.Query("type")
	children := boolQuery(c, "children")

	switch {
	case c.Query("uri") != "":
		topic, err := h.svc.GetTopicByURI(ctx, c.Query("uri"), children)
		if err != nil {
			h.writeError(c, "get_topic_by_uri", err)
			return
		}
		c.JSON(http.StatusOK, topic)

	case c.Query("value") != "" && typeURI != "":
		value, err := h.typedValue(c, typeURI, c.Query("value"))
		if err != nil {
			h.writeError(c, "get_topic_by_value", err)
			return
		}
		topic, err := h.svc.GetTopicByValue(ctx, typeURI, value)
		if err != nil {
			h.writeError(c, "get_topic_by_value", err)
			return
		}
		c.JSON(http.StatusOK, topic)

	case c.Query("q") != "":
		topics, err := h.svc.SearchTopics(ctx, c.Query("q"), typeURI)
		if err != nil {
			h.writeError(c, "search_topics", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": nonNil(topics)})

	case typeURI != "":
		topics, err := h.svc.GetTopicsByType(ctx, typeURI, children)
		if err != nil {
			h.writeError(c, "get_topics_by_type", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": nonNil(topics)})

	default:
		badRequest(c, dmxerrors.NewValidation("query", "one of uri, type or q is required"))
	}
}

// typedValue converts a query string to the data type of typeURI
func (h *Handler) typedValue(c *gin.Context, typeURI, raw string) (interface{}, error) {
	typ, err := h.svc.GetTopicType(c.Request.Context(), typeURI)
	if err != nil {
		return nil, err
	}
	switch typ.DataTypeURI {
	case model.DataTypeNumber:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, dmxerrors.NewValidation("value", "not a number")
		}
		return f, nil
	case model.DataTypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, dmxerrors.NewValidation("value", "not a boolean")
		}
		return b, nil
	default:
		return raw, nil
	}
}

func (h *Handler) getTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	topic, err := h.svc.GetTopic(c.Request.Context(), id, boolQuery(c, "children"))
	if err != nil {
		h.writeError(c, "get_topic", err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

func (h *Handler) createTopic(c *gin.Context) {
	var topic model.TopicModel
	if err := c.ShouldBindJSON(&topic); err != nil {
		badRequest(c, err)
		return
	}
	topic.ID = model.UnassignedID

	created, directives, err := h.svc.CreateTopic(c.Request.Context(), &topic)
	if err != nil {
		h.writeError(c, "create_topic", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"topic": created, "directives": directives})
}

func (h *Handler) updateTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var topic model.TopicModel
	if err := c.ShouldBindJSON(&topic); err != nil {
		badRequest(c, err)
		return
	}
	topic.ID = id

	updated, directives, err := h.svc.UpdateTopic(c.Request.Context(), &topic)
	if err != nil {
		h.writeError(c, "update_topic", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": updated, "directives": directives})
}

func (h *Handler) deleteTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	directives, err := h.svc.DeleteTopic(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "delete_topic", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"directives": directives})
}

func (h *Handler) getRelatedTopics(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	filter := model.RelatedFilter{
		AssocTypeURI:      c.Query("assoc_type"),
		MyRoleTypeURI:     c.Query("my_role"),
		OthersRoleTypeURI: c.Query("others_role"),
		OthersTypeURI:     c.Query("others_type"),
	}
	topics, err := h.svc.GetRelatedTopics(c.Request.Context(), id, filter)
	if err != nil {
		h.writeError(c, "get_related_topics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": nonNil(topics)})
}

func (h *Handler) getAssociations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	assocs, err := h.svc.GetAssociations(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get_associations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"associations": nonNil(assocs)})
}

// nonNil keeps empty results as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ============================================================================
// Associations
// ============================================================================

func (h *Handler) createAssociation(c *gin.Context) {
	var assoc model.AssociationModel
	if err := c.ShouldBindJSON(&assoc); err != nil {
		badRequest(c, err)
		return
	}
	assoc.ID = model.UnassignedID

	created, directives, err := h.svc.CreateAssociation(c.Request.Context(), &assoc)
	if err != nil {
		h.writeError(c, "create_association", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"association": created, "directives": directives})
}

func (h *Handler) getAssociation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	assoc, err := h.svc.GetAssociation(c.Request.Context(), id, boolQuery(c, "children"))
	if err != nil {
		h.writeError(c, "get_association", err)
		return
	}
	c.JSON(http.StatusOK, assoc)
}

func (h *Handler) updateAssociation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var assoc model.AssociationModel
	if err := c.ShouldBindJSON(&assoc); err != nil {
		badRequest(c, err)
		return
	}
	assoc.ID = id

	updated, directives, err := h.svc.UpdateAssociation(c.Request.Context(), &assoc)
	if err != nil {
		h.writeError(c, "update_association", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"association": updated, "directives": directives})
}

func (h *Handler) deleteAssociation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	directives, err := h.svc.DeleteAssociation(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "delete_association", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"directives": directives})
}
