// Package httpapi exposes the story proxy over HTTP.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/ratelimit"
)

type RouterDeps struct {
	Handler *Handler
	Logger  *zap.Logger
	// Metrics nil - без /metrics и без сбора
	Metrics        *metrics.Metrics
	Limiter        *ratelimit.Limiter
	AllowedOrigins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(deps.Handler.MethodNotAllowed)

	r.Use(RequestID(deps.Logger))
	r.Use(Recovery(deps.Logger))
	r.Use(AccessLog(deps.Logger))
	r.Use(CORS(deps.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/health", deps.Handler.Health)

	api := r.Group("/api")
	api.POST("/chatgpt", RateLimit(deps.Limiter, deps.Metrics, deps.Logger), deps.Handler.Story)

	return r
}
