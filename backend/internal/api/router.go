// Package api is the REST adapter over core.Service.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dmx-platform/backend/internal/core"
	"dmx-platform/backend/internal/metrics"
)

// Handler serves the HTTP API
type Handler struct {
	svc       *core.Service
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewHandler creates a handler. collector may be nil.
func NewHandler(svc *core.Service, collector *metrics.Collector, log *zap.Logger) *Handler {
	return &Handler{svc: svc, collector: collector, logger: log}
}

// Router builds the gin engine with all routes
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(h.logger, h.collector))
	router.Use(gin.Recovery())
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.collector != nil {
		router.GET("/metrics", gin.WrapH(h.collector.Handler()))
	}

	api := router.Group("/api")
	{
		// Topics
		api.GET("/topics", h.listTopics)
		api.POST("/topics", h.createTopic)
		api.GET("/topics/:id", h.getTopic)
		api.PUT("/topics/:id", h.updateTopic)
		api.DELETE("/topics/:id", h.deleteTopic)
		api.GET("/topics/:id/related", h.getRelatedTopics)
		api.GET("/topics/:id/associations", h.getAssociations)

		// Associations
		api.POST("/associations", h.createAssociation)
		api.GET("/associations/:id", h.getAssociation)
		api.PUT("/associations/:id", h.updateAssociation)
		api.DELETE("/associations/:id", h.deleteAssociation)

		// Types
		api.GET("/topic-types", h.listTopicTypes)
		api.POST("/topic-types", h.createTopicType)
		api.GET("/topic-types/:uri", h.getTopicType)
		api.DELETE("/topic-types/:uri", h.deleteTopicType)
		api.GET("/assoc-types", h.listAssocTypes)
		api.POST("/assoc-types", h.createAssocType)
		api.GET("/assoc-types/:uri", h.getAssocType)
		api.DELETE("/assoc-types/:uri", h.deleteAssocType)

		// Comp defs of either type kind
		api.POST("/types/:uri/comp-defs", h.addCompDef)
		api.PUT("/types/:uri/comp-defs", h.updateCompDef)
		api.DELETE("/types/:uri/comp-defs/:compDef", h.removeCompDef)
		api.POST("/types/:uri/comp-defs/:compDef/move", h.moveCompDef)
		api.PUT("/types/:uri/comp-def-order", h.reorderCompDefs)
		api.PUT("/types/:uri/view-config", h.updateViewConfig)

		// Sequence maintenance
		api.GET("/sequences", h.checkSequences)
		api.POST("/sequences/:uri/repair", h.repairSequence)
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)

		if collector != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			collector.ObserveHTTP(c.Request.Method, route, status, latency)
		}
	}
}

// CORS middleware
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
