package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/ratelimit"
)

const (
	RequestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxLogger    = "logger"
)

// RequestID берёт X-Request-ID или генерирует новый и кладёт логгер с ним в контекст.
func RequestID(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(ctxRequestID, id)
		c.Set(ctxLogger, logger.With(zap.String("request_id", id)))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// loggerFrom returns the request-scoped logger, or fallback outside RequestID.
func loggerFrom(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(ctxLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return fallback
}

func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		loggerFrom(c, logger).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Recovery отдаёт тот же generic error, что и при сбое upstream.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				loggerFrom(c, logger).Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, domain.ErrorResponse())
			}
		}()

		c.Next()
	}
}

func CORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncRequestsInFlight()
		defer m.DecRequestsInFlight()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		m.RecordRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// RateLimit - по IP клиента. nil limiter = выключено.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		if limiter.Allow(key) {
			c.Next()
			return
		}

		if m != nil {
			m.RecordRateLimitHit("http")
		}
		wait := time.Until(limiter.ResetTime(key))
		loggerFrom(c, logger).Warn("rate limit exceeded",
			zap.String("client_ip", key),
			zap.Duration("retry_after", wait),
		)

		c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.ErrorResponse())
	}
}
