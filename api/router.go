package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/airbooking/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Assistant *AssistantHandler
	Orders    *OrderHandler
	Payments  *PaymentHandler
	Flights   *FlightHandler
	Chat      *ChatHandler
}

func NewRouter(cfg config.HTTPConfig, h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Recovery(logger), AccessLog(logger))
	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", requestIDHeader, userIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := RateLimit(cfg.RatePerMinute, cfg.RateBurst, logger)

	h.Assistant.Register(router.Group("/nl-query", limit))
	h.Chat.Register(router.Group("/ws", limit))
	h.Flights.Register(router.Group("/flights"))
	h.Orders.Register(router.Group("/orders", Identity()))
	h.Payments.Register(router.Group("/payments", Identity()))
	h.Payments.RegisterWebhook(router.Group("/payments"))

	return router
}
