package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Domenick1991/airbooking/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	userIDHeader    = "X-User-ID"

	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// RequestID propagates the caller's request id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs every request and records it in the HTTP metrics.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(started)
		monitoring.TrackHTTPRequest(c.Request.Method, route, c.Writer.Status(), elapsed)

		logger.Info("http request",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	})
}

// limiterIdleTTL is how long a client IP may stay silent before its limiter
// is dropped.
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(limit rate.Limit, burst int, idleTTL time.Duration) *ipLimiters {
	return &ipLimiters{
		limiters:  make(map[string]*ipLimiter),
		limit:     limit,
		burst:     burst,
		idleTTL:   idleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *ipLimiters) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.sweep(now)
	}

	entry, ok := s.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops limiters idle for longer than idleTTL. Callers hold mu.
func (s *ipLimiters) sweep(now time.Time) {
	for ip, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > s.idleTTL {
			delete(s.limiters, ip)
		}
	}
	s.lastSweep = now
}

// RateLimit allows perMinute requests per client IP with the given burst.
func RateLimit(perMinute, burst int, logger *zap.Logger) gin.HandlerFunc {
	store := newIPLimiters(rate.Every(time.Minute/time.Duration(perMinute)), burst, limiterIdleTTL)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !store.get(ip).Allow() {
			logger.Warn("rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}

// Identity reads the caller id set by the fronting auth layer.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + userIDHeader})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
