package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AssistantHandler struct {
	service assistant.AssistantUseCase
	logger  *zap.Logger
}

type queryRequest struct {
	Prompt string `json:"prompt"`
	Lang   string `json:"lang"`
}

type actionRequest struct {
	Action string             `json:"action"`
	Params intent.QueryParams `json:"params"`
	Lang   string             `json:"lang"`
}

func NewAssistantHandler(service assistant.AssistantUseCase, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{service: service, logger: logger}
}

func (h *AssistantHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.query)
	router.POST("/actions", h.runAction)
}

func (h *AssistantHandler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope("Invalid request body", err.Error()))
		return
	}

	env, err := h.service.Query(c.Request.Context(), req.Prompt, req.Lang)
	if err != nil {
		h.writeEnvelopeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

func (h *AssistantHandler) runAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope("Invalid request body", err.Error()))
		return
	}

	out, err := h.service.RunAction(c.Request.Context(), req.Action, req.Params, req.Lang)
	if err != nil {
		h.writeEnvelopeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// writeEnvelopeError keeps assistant failures in the envelope shape.
func (h *AssistantHandler) writeEnvelopeError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		extraction *domain.ExtractionError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorEnvelope(validation.Message, validation.Message))
	case errors.As(err, &extraction):
		h.logger.Warn("intent oracle failed", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusBadGateway, errorEnvelope("Intent service unavailable", "Intent service unavailable"))
	default:
		h.logger.Error("assistant query failed", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusInternalServerError, errorEnvelope("Internal server error", "Internal server error"))
	}
}

func errorEnvelope(message string, errs ...string) assistant.Envelope {
	return assistant.Envelope{
		Status:  assistant.StatusError,
		Message: message,
		Errors:  errs,
	}
}
