package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
)

type Handler struct {
	completion service.CompletionService
	logger     *zap.Logger
}

func NewHandler(completion service.CompletionService, logger *zap.Logger) *Handler {
	return &Handler{completion: completion, logger: logger}
}

// Story - POST /api/chatgpt. Любой сбой upstream отдаётся как 200 + generic error,
// клиент смотрит на reply/error, а не на статус.
func (h *Handler) Story(c *gin.Context) {
	logger := loggerFrom(c, h.logger)

	var req domain.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("malformed story request", zap.Error(err))
		c.JSON(http.StatusBadRequest, domain.ErrorResponse())
		return
	}

	reply, err := h.completion.Complete(c.Request.Context(), req.Story)
	if err != nil {
		logger.Error("error processing story request", zap.Error(err))
		c.JSON(http.StatusOK, domain.ErrorResponse())
		return
	}

	c.JSON(http.StatusOK, domain.ReplyResponse(reply))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, domain.ErrorResponse())
}
