package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string  `json:"error"`
	IDs   []int64 `json:"ids,omitempty"`
}

// writeError maps domain errors to status codes. Anything unclassified is a
// 500 whose details only reach the log.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
		extraction *domain.ExtractionError
		signature  *domain.SignatureError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, errorResponse{Error: conflict.Error(), IDs: conflict.IDs})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Error()})
	case errors.As(err, &extraction):
		logger.Warn("intent oracle failed", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusBadGateway, errorResponse{Error: "intent service unavailable"})
	case errors.As(err, &signature):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid signature"})
	default:
		logger.Error("request failed", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
