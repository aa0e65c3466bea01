package api

import (
	"io"
	"net/http"

	"github.com/Domenick1991/airbooking/internal/service/payments"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 65536

type PaymentHandler struct {
	service payments.PaymentUseCase
	logger  *zap.Logger
}

type checkoutRequest struct {
	OrderID int64 `json:"order_id"`
}

type checkoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func NewPaymentHandler(service payments.PaymentUseCase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

// Register mounts the user-facing payment routes.
func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/checkout-session", h.checkout)
	router.GET("", h.list)
}

// RegisterWebhook mounts the processor callback, which carries no user identity.
func (h *PaymentHandler) RegisterWebhook(router *gin.RouterGroup) {
	router.POST("/webhook", h.webhook)
}

func (h *PaymentHandler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "order_id is required"})
		return
	}

	session, err := h.service.CreateCheckoutSession(c.Request.Context(), userID(c), req.OrderID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, checkoutResponse{ID: session.ID, URL: session.URL})
}

func (h *PaymentHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "failed to read body"})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
