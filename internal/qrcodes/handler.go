package qrcodes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/pkg/response"
)

const pngSize = 256

// Handler handles QR identity HTTP endpoints.
type Handler struct {
	repo   *Repository
	orgs   *organizations.Repository
	logger *zap.Logger
}

// NewHandler creates a qrcodes handler.
func NewHandler(repo *Repository, orgs *organizations.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, orgs: orgs, logger: logger}
}

// Me handles GET /qrcodes/me?organization_id=. Mints the identity on first access.
func (h *Handler) Me(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		response.BadRequest(c, "invalid organization_id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	qr, err := h.repo.GetOrCreate(c.Request.Context(), userID, orgID)
	if err != nil {
		response.Internal(c, "failed to load qr code")
		return
	}
	response.OK(c, qr)
}

// Image handles GET /qrcodes/me/image?organization_id= and returns the token
// rendered as a PNG.
func (h *Handler) Image(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		response.BadRequest(c, "invalid organization_id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	qr, err := h.repo.GetOrCreate(c.Request.Context(), userID, orgID)
	if err != nil {
		response.Internal(c, "failed to load qr code")
		return
	}
	png, err := qrcode.Encode(qr.Token, qrcode.Medium, pngSize)
	if err != nil {
		h.logger.Error("qr png encoding failed", zap.Error(err))
		response.Internal(c, "failed to render qr code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// SetActiveRequest is the body for PATCH /qrcodes/:id.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive handles PATCH /qrcodes/:id (org organizer or platform admin).
// Deactivated tokens no longer resolve at scan time.
func (h *Handler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid qr code id")
		return
	}
	qr, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "qr code not found")
		return
	}
	role := c.MustGet(middleware.ContextUserRole).(string)
	if role != string(models.RoleAdmin) {
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		ok, err := h.orgs.UserCanManage(c.Request.Context(), qr.OrganizationID, userID)
		if err != nil || !ok {
			response.Forbidden(c, "only organization organizers can manage qr codes")
			return
		}
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		response.Internal(c, "failed to update qr code")
		return
	}
	qr.IsActive = *req.Active
	response.OK(c, qr)
}

// EnsureForMember mints a QR identity for a freshly joined member. Errors are
// logged, not surfaced: the identity is minted lazily on first access anyway.
func (h *Handler) EnsureForMember(ctx context.Context, orgID, userID uuid.UUID) {
	if _, err := h.repo.GetOrCreate(ctx, userID, orgID); err != nil {
		h.logger.Warn("qr provisioning on join failed",
			zap.String("org_id", orgID.String()),
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}
