package points

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/pkg/response"
)

// Handler handles points HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a points handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Me handles GET /points/me: ledger plus derived balance.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ledger, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load points")
		return
	}
	balance := 0
	for _, tx := range ledger {
		balance += tx.Amount
	}
	response.OK(c, gin.H{"balance": balance, "transactions": ledger})
}

// AdjustRequest is the body for POST /points/adjust (platform admin).
type AdjustRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// Adjust handles POST /points/adjust (platform admin): a manual ledger entry.
func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user_id")
		return
	}
	tx, err := h.repo.Adjust(c.Request.Context(), userID, req.Amount, req.Reason)
	if err != nil {
		response.Internal(c, "failed to adjust points")
		return
	}
	response.Created(c, tx)
}
