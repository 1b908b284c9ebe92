package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dmx-platform/backend/internal/core"
	"dmx-platform/backend/internal/model"
)

// ============================================================================
// Types
// ============================================================================

func (h *Handler) listTopicTypes(c *gin.Context) {
	types, err := h.svc.GetAllTopicTypes(c.Request.Context())
	if err != nil {
		h.writeError(c, "get_topic_types", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": nonNil(types)})
}

func (h *Handler) listAssocTypes(c *gin.Context) {
	types, err := h.svc.GetAllAssocTypes(c.Request.Context())
	if err != nil {
		h.writeError(c, "get_assoc_types", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": nonNil(types)})
}

func (h *Handler) getTopicType(c *gin.Context) {
	typ, err := h.svc.GetTopicType(c.Request.Context(), c.Param("uri"))
	if err != nil {
		h.writeError(c, "get_topic_type", err)
		return
	}
	c.JSON(http.StatusOK, typ)
}

func (h *Handler) getAssocType(c *gin.Context) {
	typ, err := h.svc.GetAssocType(c.Request.Context(), c.Param("uri"))
	if err != nil {
		h.writeError(c, "get_assoc_type", err)
		return
	}
	c.JSON(http.StatusOK, typ)
}

func (h *Handler) createTopicType(c *gin.Context) {
	h.createType(c, "create_topic_type", h.svc.CreateTopicType)
}

func (h *Handler) createAssocType(c *gin.Context) {
	h.createType(c, "create_assoc_type", h.svc.CreateAssocType)
}

type typeMutation func(*gin.Context) (*model.TypeModel, core.Directives, error)

func (h *Handler) createType(c *gin.Context, op string, create func(ctx context.Context, tm *model.TypeModel) (*model.TypeModel, core.Directives, error)) {
	var tm model.TypeModel
	if err := c.ShouldBindJSON(&tm); err != nil {
		badRequest(c, err)
		return
	}
	tm.ID = model.UnassignedID
	for _, cd := range tm.CompDefs {
		if cd.ParentTypeURI == "" {
			cd.ParentTypeURI = tm.URI
		}
	}

	created, directives, err := create(c.Request.Context(), &tm)
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"type": created, "directives": directives})
}

func (h *Handler) deleteTopicType(c *gin.Context) {
	directives, err := h.svc.DeleteTopicType(c.Request.Context(), c.Param("uri"))
	if err != nil {
		h.writeError(c, "delete_topic_type", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"directives": directives})
}

func (h *Handler) deleteAssocType(c *gin.Context) {
	directives, err := h.svc.DeleteAssocType(c.Request.Context(), c.Param("uri"))
	if err != nil {
		h.writeError(c, "delete_assoc_type", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"directives": directives})
}

// ============================================================================
// Comp defs and view configs
// ============================================================================

// mutate runs a type mutation and writes the resulting type with its directives
func (h *Handler) mutate(c *gin.Context, op string, fn typeMutation) {
	typ, directives, err := fn(c)
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": typ, "directives": directives})
}

func (h *Handler) addCompDef(c *gin.Context) {
	pos, ok := posQuery(c)
	if !ok {
		return
	}
	var cd model.CompDefModel
	if err := c.ShouldBindJSON(&cd); err != nil {
		badRequest(c, err)
		return
	}
	typeURI := c.Param("uri")
	cd.AssocID = model.UnassignedID
	cd.ParentTypeURI = typeURI

	h.mutate(c, "add_comp_def", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.AddCompDef(c.Request.Context(), typeURI, &cd, pos)
	})
}

func (h *Handler) updateCompDef(c *gin.Context) {
	var cd model.CompDefModel
	if err := c.ShouldBindJSON(&cd); err != nil {
		badRequest(c, err)
		return
	}
	typeURI := c.Param("uri")
	cd.ParentTypeURI = typeURI

	h.mutate(c, "update_comp_def", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.UpdateCompDef(c.Request.Context(), typeURI, &cd)
	})
}

func (h *Handler) removeCompDef(c *gin.Context) {
	h.mutate(c, "remove_comp_def", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.RemoveCompDef(c.Request.Context(), c.Param("uri"), c.Param("compDef"))
	})
}

func (h *Handler) moveCompDef(c *gin.Context) {
	pos, ok := posQuery(c)
	if !ok {
		return
	}
	h.mutate(c, "move_comp_def", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.MoveCompDef(c.Request.Context(), c.Param("uri"), c.Param("compDef"), pos)
	})
}

func (h *Handler) reorderCompDefs(c *gin.Context) {
	var req struct {
		CompDefURIs []string `json:"compDefUris" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.mutate(c, "reorder_comp_defs", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.ReorderCompDefs(c.Request.Context(), c.Param("uri"), req.CompDefURIs)
	})
}

func (h *Handler) updateViewConfig(c *gin.Context) {
	var req struct {
		Settings map[string]interface{} `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	vc := model.NewViewConfigModel()
	for k, v := range req.Settings {
		vc.Set(k, v)
	}
	h.mutate(c, "update_view_config", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.UpdateTypeViewConfig(c.Request.Context(), c.Param("uri"), vc)
	})
}

// ============================================================================
// Sequence maintenance
// ============================================================================

func (h *Handler) checkSequences(c *gin.Context) {
	reports, err := h.svc.CheckSequences(c.Request.Context())
	if err != nil {
		h.writeError(c, "check_sequences", err)
		return
	}
	broken := 0
	for _, r := range reports {
		if !r.OK() {
			broken++
		}
	}
	c.JSON(http.StatusOK, gin.H{"reports": nonNil(reports), "broken": broken})
}

func (h *Handler) repairSequence(c *gin.Context) {
	h.mutate(c, "repair_sequence", func(c *gin.Context) (*model.TypeModel, core.Directives, error) {
		return h.svc.RepairSequence(c.Request.Context(), c.Param("uri"))
	})
}
