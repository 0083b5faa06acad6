package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/pkg/response"
)

// Handler handles notification log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListMine handles GET /notifications/me.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	logs, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load notifications")
		return
	}
	response.OK(c, logs)
}
