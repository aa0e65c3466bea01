package api

import (
	"net/http"

	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"github.com/Domenick1991/airbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FlightHandler struct {
	service flights.FlightUseCase
	logger  *zap.Logger
}

type flightResponse struct {
	ID int64 `json:"id"`
	assistant.FlightView
}

func NewFlightHandler(service flights.FlightUseCase, logger *zap.Logger) *FlightHandler {
	return &FlightHandler{service: service, logger: logger}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]flightResponse, 0, len(list))
	for _, f := range list {
		out = append(out, flightResponse{ID: f.ID, FlightView: assistant.NewFlightView(f)})
	}
	c.JSON(http.StatusOK, out)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, flightResponse{ID: flight.ID, FlightView: assistant.NewFlightView(*flight)})
}
