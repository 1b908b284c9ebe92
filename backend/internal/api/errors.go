package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dmxerrors "dmx-platform/backend/pkg/errors"
)

var statusByErrorType = map[dmxerrors.ErrorType]int{
	dmxerrors.ErrorTypeNotFound:           http.StatusNotFound,
	dmxerrors.ErrorTypeValidation:         http.StatusBadRequest,
	dmxerrors.ErrorTypeAmbiguity:          http.StatusConflict,
	dmxerrors.ErrorTypeCardinality:        http.StatusUnprocessableEntity,
	dmxerrors.ErrorTypeCyclicType:         http.StatusUnprocessableEntity,
	dmxerrors.ErrorTypeSequenceCorruption: http.StatusConflict,
	dmxerrors.ErrorTypeStorage:            http.StatusServiceUnavailable,
}

// writeError maps engine errors to HTTP statuses. Unclassified errors are logged and hidden.
func (h *Handler) writeError(c *gin.Context, op string, err error) {
	errType := dmxerrors.TypeOf(err)
	status, ok := statusByErrorType[errType]
	if !ok {
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "type": errType})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "type": dmxerrors.ErrorTypeValidation})
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, dmxerrors.NewValidation(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// posQuery parses the optional pos query parameter; -1 means append
func posQuery(c *gin.Context) (int, bool) {
	raw := c.Query("pos")
	if raw == "" {
		return -1, true
	}
	pos, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, dmxerrors.NewValidation("pos", "must be an integer"))
		return 0, false
	}
	return pos, true
}

func boolQuery(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(c.Query(name))
	return b
}
