package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"github.com/Domenick1991/airbooking/internal/service/orders"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service orders.OrderUseCase
	now     func() time.Time
	logger  *zap.Logger
}

type createOrderRequest struct {
	Tickets       []int64 `json:"tickets"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
}

type orderResponse struct {
	ID            int64                  `json:"id"`
	Amount        string                 `json:"amount"`
	Currency      string                 `json:"currency"`
	PaymentMethod string                 `json:"payment_method"`
	Status        string                 `json:"status"`
	CreatedAt     string                 `json:"created_at"`
	ExpiresAt     string                 `json:"expires_at"`
	TimeRemaining *int                   `json:"time_remaining"`
	TicketsInfo   []assistant.TicketView `json:"tickets_info"`
}

func NewOrderHandler(service orders.OrderUseCase, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, now: time.Now, logger: logger}
}

func (h *OrderHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancel)
}

func (h *OrderHandler) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	order, err := h.service.Create(c.Request.Context(), orders.CreateOrderInput{
		UserID:        userID(c),
		TicketIDs:     req.Tickets,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order, h.now()))
}

func (h *OrderHandler) list(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	list, err := h.service.List(c.Request.Context(), userID(c), includeInactive)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]orderResponse, 0, len(list))
	for i := range list {
		out = append(out, newOrderResponse(&list[i], h.now()))
	}
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.service.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order, h.now()))
}

func (h *OrderHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.service.Cancel(c.Request.Context(), userID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order, h.now()))
}

func newOrderResponse(o *domain.Order, now time.Time) orderResponse {
	tickets := make([]assistant.TicketView, 0, len(o.Tickets))
	for _, t := range o.Tickets {
		tickets = append(tickets, assistant.NewTicketView(t))
	}
	return orderResponse{
		ID:            o.ID,
		Amount:        o.Amount.StringFixed(2),
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		ExpiresAt:     o.ExpiresAt.Format(time.RFC3339),
		TimeRemaining: o.TimeRemaining(now),
		TicketsInfo:   tickets,
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}
